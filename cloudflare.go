package ddnsd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"
)

// CloudflareTTLAuto is the TTL value Cloudflare treats as "automatic".
const CloudflareTTLAuto = 1

// NewCloudflare returns a Provider backed by the Cloudflare v4 API using a scoped API token.
// Target.Zone is the zone ID.
// Records are located by Target.ID when it differs from Target.Name, and by name and type otherwise.
func NewCloudflare(token string, opts ...cloudflare.Option) (Provider, error) {
	api, err := cloudflare.NewWithAPIToken(token, cloudflareOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	return newCloudflareProvider(api), nil
}

// NewCloudflareWithKey is NewCloudflare for the legacy global API key and account email.
func NewCloudflareWithKey(key, email string, opts ...cloudflare.Option) (Provider, error) {
	api, err := cloudflare.New(key, email, cloudflareOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	return newCloudflareProvider(api), nil
}

// cloudflareOptions disables the client's own retries; the loop interval is the retry policy.
func cloudflareOptions(opts []cloudflare.Option) []cloudflare.Option {
	return append([]cloudflare.Option{cloudflare.UsingRetryPolicy(0, 0, 0)}, opts...)
}

func newCloudflareProvider(api *cloudflare.API) *cloudflareProvider {
	return &cloudflareProvider{
		api:     api,
		logger:  zap.NewNop(),
		comment: "managed by ddnsd",
	}
}

// cloudflareProvider implements ddnsd.Provider.
type cloudflareProvider struct {
	api     *cloudflare.API
	logger  *zap.Logger
	comment string // attached to every record written
}

func (cf *cloudflareProvider) SetLogger(l *zap.Logger) { cf.logger = l.Named("cloudflare") }

func (cf *cloudflareProvider) SetHTTPClient(c *http.Client) { cloudflare.HTTPClient(c)(cf.api) }

func (cf *cloudflareProvider) Read(ctx context.Context, t Target) (string, error) {
	record, err := cf.find(ctx, t)
	if err != nil {
		return "", err
	}
	cf.logger.Debug("read record",
		zap.String("zone", t.Zone),
		zap.String("id", record.ID),
		zap.String("content", record.Content),
	)
	return record.Content, nil
}

func (cf *cloudflareProvider) Write(ctx context.Context, t Target, addr string) error {
	id := t.ID
	if !cf.hasRecordID(t) {
		record, err := cf.find(ctx, t)
		if err != nil {
			return err
		}
		id = record.ID
	}

	ttl := t.TTL
	if ttl == 0 {
		ttl = CloudflareTTLAuto
	}
	proxied := false
	cf.logger.Debug("updating record", zap.String("zone", t.Zone), zap.String("id", id), zap.String("content", addr))
	record, err := cf.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(t.Zone), cloudflare.UpdateDNSRecordParams{
		ID:      id,
		Type:    t.Type,
		Name:    t.Name,
		Content: addr,
		TTL:     ttl,
		Proxied: &proxied,
		Comment: cf.comment,
	})
	if err != nil {
		return classify("update cloudflare record", err)
	}
	cf.logger.Info("updated record", zap.String("id", record.ID), zap.String("name", record.Name), zap.String("content", record.Content))
	return nil
}

func (cf *cloudflareProvider) hasRecordID(t Target) bool {
	return t.ID != "" && t.ID != t.Name
}

func (cf *cloudflareProvider) find(ctx context.Context, t Target) (cloudflare.DNSRecord, error) {
	rc := cloudflare.ZoneIdentifier(t.Zone)
	if cf.hasRecordID(t) {
		record, err := cf.api.GetDNSRecord(ctx, rc, t.ID)
		if err != nil {
			return cloudflare.DNSRecord{}, classify("get cloudflare record", err)
		}
		return record, nil
	}

	records, _, err := cf.api.ListDNSRecords(ctx, rc, cloudflare.ListDNSRecordsParams{
		Type: t.Type,
		Name: t.Name,
	})
	if err != nil {
		return cloudflare.DNSRecord{}, classify("list cloudflare records", err)
	}
	if len(records) == 0 {
		return cloudflare.DNSRecord{}, &ProviderError{
			Op:  "list cloudflare records",
			Err: fmt.Errorf("%s record %s: %w", t.Type, t.Name, ErrRecordNotFound),
		}
	}
	if len(records) > 1 {
		cf.logger.Warn("more than one record matched; using the first",
			zap.String("name", t.Name),
			zap.Int("count", len(records)),
		)
	}
	return records[0], nil
}

// VerifyCloudflareToken reports whether token is accepted by Cloudflare and active.
func VerifyCloudflareToken(ctx context.Context, token string, opts ...cloudflare.Option) error {
	api, err := cloudflare.NewWithAPIToken(token, cloudflareOptions(opts)...)
	if err != nil {
		return fmt.Errorf("error creating api client: %w", err)
	}
	result, err := api.VerifyAPIToken(ctx)
	if err != nil {
		return classify("verify cloudflare token", err)
	}
	if result.Status != "active" {
		return &ProviderError{Op: "verify cloudflare token", Err: errors.New(`expected api token status to be "active"; got "` + result.Status + `"`)}
	}
	return nil
}
