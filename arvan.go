package ddnsd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"
)

const (
	DefaultArvanURL = "https://napi.arvancloud.ir/cdn/4.0"
	ArvanDefaultTTL = 120
)

// NewArvan returns a Provider backed by the ArvanCloud CDN DNS API.
// Target.Zone is the domain and Target.ID the record identifier.
// An empty baseURL selects DefaultArvanURL.
func NewArvan(apiKey, baseURL string) Provider {
	if baseURL == "" {
		baseURL = DefaultArvanURL
	}
	return &arvanProvider{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: cleanhttp.DefaultClient(),
		logger:     zap.NewNop(),
	}
}

type arvanProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func (a *arvanProvider) SetLogger(l *zap.Logger) { a.logger = l.Named("arvan") }

func (a *arvanProvider) SetHTTPClient(c *http.Client) { a.httpClient = c }

type arvanValue struct {
	IP      string `json:"ip"`
	Port    int    `json:"port"`
	Weight  int    `json:"weight"`
	Country string `json:"country"`
}

type arvanIPFilterMode struct {
	Count     string `json:"count"`
	Order     string `json:"order"`
	GeoFilter string `json:"geo_filter"`
}

type arvanRecord struct {
	Value         []arvanValue      `json:"value"`
	Type          string            `json:"type"`
	Name          string            `json:"name"`
	TTL           int               `json:"ttl"`
	Cloud         bool              `json:"cloud"`
	UpstreamHTTPS string            `json:"upstream_https"`
	IPFilterMode  arvanIPFilterMode `json:"ip_filter_mode"`
}

func (a *arvanProvider) recordURL(t Target) string {
	return a.baseURL + "/domains/" + url.PathEscape(t.Zone) + "/dns-records/" + url.PathEscape(t.ID)
}

func (a *arvanProvider) Read(ctx context.Context, t Target) (string, error) {
	body, err := a.do(ctx, "read arvan record", http.MethodGet, a.recordURL(t), nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		Data struct {
			Value []arvanValue `json:"value"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ProviderError{Op: "read arvan record", Status: http.StatusOK, Body: string(body), Err: fmt.Errorf("error decoding response: %w", err)}
	}
	if len(resp.Data.Value) == 0 || resp.Data.Value[0].IP == "" {
		return "", &ProviderError{Op: "read arvan record", Status: http.StatusOK, Body: string(body), Err: errors.New("response has no address in data.value")}
	}
	a.logger.Debug("read record", zap.String("domain", t.Zone), zap.String("id", t.ID), zap.String("ip", resp.Data.Value[0].IP))
	return resp.Data.Value[0].IP, nil
}

func (a *arvanProvider) Write(ctx context.Context, t Target, addr string) error {
	ttl := t.TTL
	if ttl == 0 {
		ttl = ArvanDefaultTTL
	}
	payload, err := json.Marshal(arvanRecord{
		Value:         []arvanValue{{IP: addr, Port: 80, Weight: 1000, Country: "US"}},
		Type:          t.Type,
		Name:          t.Name,
		TTL:           ttl,
		Cloud:         false,
		UpstreamHTTPS: "default",
		IPFilterMode:  arvanIPFilterMode{Count: "single", Order: "none", GeoFilter: "none"},
	})
	if err != nil {
		return fmt.Errorf("error encoding arvan record: %w", err)
	}
	a.logger.Debug("updating record", zap.String("domain", t.Zone), zap.String("id", t.ID), zap.String("ip", addr))
	_, err = a.do(ctx, "update arvan record", http.MethodPut, a.recordURL(t), payload)
	return err
}

func (a *arvanProvider) do(ctx context.Context, op, method, u string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Authorization", a.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("error reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Op: op, Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
