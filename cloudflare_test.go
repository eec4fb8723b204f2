package ddnsd_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cloudflare/cloudflare-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Travis-Britz/ddnsd"
)

type fakeCloudflare struct {
	mu      sync.Mutex
	records map[string]map[string]any // id -> record
	updates []map[string]any
	status  int // forced status for updates; 0 means success
}

func newFakeCloudflare(records ...map[string]any) *fakeCloudflare {
	f := &fakeCloudflare{records: map[string]map[string]any{}}
	for _, r := range records {
		f.records[r["id"].(string)] = r
	}
	return f
}

func (f *fakeCloudflare) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"success":false,"errors":[{"code":9109,"message":"Unauthorized to access requested resource"}],"messages":[],"result":null}`)
		return
	}

	var id string
	switch {
	case r.URL.Path == "/user/tokens/verify":
		io.WriteString(w, `{"success":true,"errors":[],"messages":[],"result":{"id":"tok","status":"active"}}`)
		return
	case r.URL.Path == "/zones/zone1/dns_records" && r.Method == http.MethodGet:
		var matches []map[string]any
		for _, rec := range f.records {
			if rec["name"] == r.URL.Query().Get("name") && rec["type"] == r.URL.Query().Get("type") {
				matches = append(matches, rec)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":     true,
			"errors":      []any{},
			"messages":    []any{},
			"result":      matches,
			"result_info": map[string]any{"page": 1, "per_page": 100, "count": len(matches), "total_count": len(matches), "total_pages": 1},
		})
		return
	default:
		if _, err := fmt.Sscanf(r.URL.Path, "/zones/zone1/dns_records/%s", &id); err != nil {
			http.NotFound(w, r)
			return
		}
	}

	rec, ok := f.records[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"success":false,"errors":[{"code":81044,"message":"Record does not exist."}],"messages":[],"result":null}`)
		return
	}
	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"success": true, "errors": []any{}, "messages": []any{}, "result": rec})
	case http.MethodPut, http.MethodPatch:
		if f.status != 0 {
			w.WriteHeader(f.status)
			io.WriteString(w, `{"success":false,"errors":[{"code":10000,"message":"Authentication error"}],"messages":[],"result":null}`)
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.updates = append(f.updates, body)
		rec["content"] = body["content"]
		json.NewEncoder(w).Encode(map[string]any{"success": true, "errors": []any{}, "messages": []any{}, "result": rec})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func cfRecord(id, name, content string) map[string]any {
	return map[string]any{"id": id, "type": "A", "name": name, "content": content, "ttl": 1, "proxied": false, "zone_id": "zone1"}
}

func newTestCloudflare(t *testing.T, f *fakeCloudflare) ddnsd.Provider {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	p, err := ddnsd.NewCloudflare("test-token", cloudflare.BaseURL(srv.URL))
	require.NoError(t, err)
	return p
}

func TestCloudflareReadByName(t *testing.T) {
	f := newFakeCloudflare(cfRecord("rec1", "home.example.com", "198.51.100.1"))
	p := newTestCloudflare(t, f)

	got, err := p.Read(context.Background(), ddnsd.Target{Zone: "zone1", Name: "home.example.com", Type: "A"})
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1", got)
}

func TestCloudflareReadByID(t *testing.T) {
	f := newFakeCloudflare(cfRecord("rec1", "home.example.com", "198.51.100.1"))
	p := newTestCloudflare(t, f)

	got, err := p.Read(context.Background(), ddnsd.Target{Zone: "zone1", ID: "rec1", Name: "home.example.com", Type: "A"})
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1", got)
}

func TestCloudflareReadMissing(t *testing.T) {
	p := newTestCloudflare(t, newFakeCloudflare())

	_, err := p.Read(context.Background(), ddnsd.Target{Zone: "zone1", Name: "missing.example.com", Type: "A"})
	var pe *ddnsd.ProviderError
	require.True(t, errors.As(err, &pe), "expected *ProviderError; got %T", err)
	assert.ErrorIs(t, err, ddnsd.ErrRecordNotFound)
}

func TestCloudflareWrite(t *testing.T) {
	f := newFakeCloudflare(cfRecord("rec1", "home.example.com", "198.51.100.1"))
	p := newTestCloudflare(t, f)

	err := p.Write(context.Background(), ddnsd.Target{Zone: "zone1", Name: "home.example.com", Type: "A"}, "203.0.113.9")
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.updates, 1)
	u := f.updates[0]
	assert.Equal(t, "203.0.113.9", u["content"])
	assert.Equal(t, "A", u["type"])
	assert.Equal(t, "home.example.com", u["name"])
	assert.EqualValues(t, 1, u["ttl"])
	assert.Equal(t, false, u["proxied"])
	assert.Equal(t, "managed by ddnsd", u["comment"])
	assert.Equal(t, "203.0.113.9", f.records["rec1"]["content"])
}

func TestCloudflareWriteByID(t *testing.T) {
	f := newFakeCloudflare(
		cfRecord("rec1", "home.example.com", "198.51.100.1"),
		cfRecord("rec2", "home.example.com", "198.51.100.1"),
	)
	p := newTestCloudflare(t, f)

	err := p.Write(context.Background(), ddnsd.Target{Zone: "zone1", ID: "rec2", Name: "home.example.com", Type: "A", TTL: 300}, "203.0.113.9")
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.updates, 1)
	assert.EqualValues(t, 300, f.updates[0]["ttl"])
	assert.Equal(t, "198.51.100.1", f.records["rec1"]["content"])
	assert.Equal(t, "203.0.113.9", f.records["rec2"]["content"])
}

func TestCloudflareWriteRejected(t *testing.T) {
	f := newFakeCloudflare(cfRecord("rec1", "home.example.com", "198.51.100.1"))
	f.status = http.StatusForbidden
	p := newTestCloudflare(t, f)

	err := p.Write(context.Background(), ddnsd.Target{Zone: "zone1", ID: "rec1", Name: "home.example.com", Type: "A"}, "203.0.113.9")
	var pe *ddnsd.ProviderError
	assert.True(t, errors.As(err, &pe), "expected *ProviderError; got %T", err)
}

func TestCloudflareReconcile(t *testing.T) {
	f := newFakeCloudflare(cfRecord("rec1", "home.example.com", "198.51.100.1"))
	p := newTestCloudflare(t, f)

	r, err := ddnsd.New(p, ddnsd.StaticResolver("203.0.113.9"), []ddnsd.Target{{Zone: "zone1", Name: "home.example.com", Type: "A"}})
	require.NoError(t, err)

	results := r.Cycle(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, ddnsd.Updated, results[0].Outcome)
	assert.Equal(t, "198.51.100.1", results[0].Current)

	results = r.Cycle(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, ddnsd.Unchanged, results[0].Outcome)
}

func TestVerifyCloudflareToken(t *testing.T) {
	srv := httptest.NewServer(newFakeCloudflare())
	defer srv.Close()

	assert.NoError(t, ddnsd.VerifyCloudflareToken(context.Background(), "test-token", cloudflare.BaseURL(srv.URL)))
	assert.Error(t, ddnsd.VerifyCloudflareToken(context.Background(), "wrong-token", cloudflare.BaseURL(srv.URL)))
}
