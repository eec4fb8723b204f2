package ddnsd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/multierr"
)

// DefaultEchoURL answers a plain GET with the caller's address.
const DefaultEchoURL = "https://api.ipify.org"

// DefaultResolver is used by the daemon when no resolver is configured.
var DefaultResolver = WebResolver(DefaultEchoURL)

// WebResolver constructs a resolver which uses external web services to look up a "public" IP address.
//
// Each serviceURL must speak http and return status "200 OK",
// with a valid IPv4 or IPv6 address as the first line of the response body.
// All other responses are a *NetworkError.
//
// If only one serviceURL is given,
// then the resolver makes exactly one request and returns its answer.
// If several are given,
// then the resolver requests from up to three of them and only returns successfully if the first two non-error responses agreed on the IP.
// This approach is taken due to the sensitive nature of having control over DNS records.
//
// The resolver never retries; the Reconciler's interval is the retry policy.
func WebResolver(serviceURL ...string) Resolver {
	if len(serviceURL) == 0 {
		serviceURL = []string{DefaultEchoURL}
	}
	return &webResolver{serviceURLs: serviceURL}
}

type webResolver struct {
	httpClient  *http.Client
	serviceURLs []string
}

func (wr *webResolver) SetHTTPClient(c *http.Client) { wr.httpClient = c }

// Resolve implements ddnsd.Resolver.
func (wr *webResolver) Resolve(ctx context.Context) (string, error) {
	if len(wr.serviceURLs) == 1 {
		return wr.lookup(ctx, wr.serviceURLs[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		addr string
		err  error
	}

	useCount := len(wr.serviceURLs)
	if useCount > 3 {
		useCount = 3
	}
	results := make(chan result, useCount)

	var wg sync.WaitGroup
	wg.Add(useCount)
	for _, u := range wr.serviceURLs[:useCount] {
		u := u
		go func() {
			defer wg.Done()
			var r result
			r.addr, r.err = wr.lookup(ctx, u)
			results <- r
		}()
	}
	go func() { wg.Wait(); close(results) }()

	var errs error
	var addr string
	for r := range results {
		if r.err != nil {
			errs = multierr.Append(errs, r.err)
			continue
		}
		if addr == "" {
			addr = r.addr
			continue
		}
		if addr == r.addr {
			return addr, nil
		}
		return "", &NetworkError{Op: "resolve", Err: fmt.Errorf("IP resolvers did not agree on our IP: %s != %s", addr, r.addr)}
	}
	return "", &NetworkError{Op: "resolve", Err: fmt.Errorf("not enough resolvers responded without errors: %w", errs)}
}

func (wr *webResolver) lookup(ctx context.Context, serviceURL string) (string, error) {
	// bounds every lookup even when the caller passed a context without a deadline
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL, nil)
	if err != nil {
		return "", &NetworkError{Op: "resolve", Err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = cleanhttp.DefaultClient()
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return "", &NetworkError{Op: "resolve", Err: fmt.Errorf("http request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &NetworkError{Op: "resolve", Err: fmt.Errorf("http request returned %s", resp.Status)}
	}

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil && line == "" {
		return "", &NetworkError{Op: "resolve", Err: errors.New("empty response body")}
	}
	return parseAddr("resolve", strings.TrimSpace(line))
}
