package ddnsd_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Travis-Britz/ddnsd"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("Expected Cache-Control: no-cache; got %q", r.Header.Get("Cache-Control"))
		}
		io.WriteString(w, "192.168.2.1\n")
	}))
	defer srv.Close()
	wr := ddnsd.WebResolver(srv.URL)
	res, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}

	if expected, got := "192.168.2.1", res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestLookupStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	_, err := ddnsd.WebResolver(srv.URL).Resolve(context.Background())
	var ne *ddnsd.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("Expected *NetworkError; got %T (%v)", err, err)
	}
}

func TestLookupUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := ddnsd.WebResolver(url).Resolve(context.Background())
	var ne *ddnsd.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("Expected *NetworkError; got %T (%v)", err, err)
	}
}

func TestMismatch(t *testing.T) {
	ips := []string{"192.168.2.1", "10.0.0.10", "127.0.0.1"}
	var srvs []string
	for _, ip := range ips {
		ip := ip
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, ip)
		}))
		defer srv.Close()
		srvs = append(srvs, srv.URL)
	}
	wr := ddnsd.WebResolver(srvs...)
	res, err := wr.Resolve(context.Background())
	if err == nil {
		t.Fatalf("Expected error response; got err == nil")
	}
	if res != "" {
		t.Fatalf("Expected empty address; got %q", res)
	}
}

func TestOneFailure(t *testing.T) {
	ips := []string{"192.168.2.1", "invalid ip", "192.168.2.1"}
	var srvs []string
	for _, ip := range ips {
		ip := ip
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, ip)
		}))
		defer srv.Close()
		srvs = append(srvs, srv.URL)
	}
	wr := ddnsd.WebResolver(srvs...)
	res, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected, got := "192.168.2.1", res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestTwoFailures(t *testing.T) {
	ips := []string{"192.168.2.1", "a", "a"}
	var srvs []string
	for _, ip := range ips {
		ip := ip
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, ip)
		}))
		defer srv.Close()
		srvs = append(srvs, srv.URL)
	}
	wr := ddnsd.WebResolver(srvs...)
	res, err := wr.Resolve(context.Background())
	if err == nil {
		t.Fatalf("Expected error response; got err == nil")
	}
	if res != "" {
		t.Fatalf("Expected empty address; got %q", res)
	}
	var ne *ddnsd.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("Expected *NetworkError; got %T", err)
	}
}

func TestConcurrency(t *testing.T) {
	ips := []string{"192.168.2.1", "192.168.2.1", "192.168.2.1"}
	var srvs []string
	for _, ip := range ips {
		ip := ip
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(50 * time.Millisecond)
			io.WriteString(w, ip)
		}))
		defer srv.Close()
		srvs = append(srvs, srv.URL)
	}
	wr := ddnsd.WebResolver(srvs...)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	res, err := wr.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected, got := "192.168.2.1", res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestHitCount(t *testing.T) {
	var mu sync.Mutex
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		// forcing every request to fail should prevent early returns with in-flight requests
		io.WriteString(w, "invalid ip")
		mu.Unlock()
	}))
	defer srv.Close()

	wrs := []ddnsd.Resolver{
		ddnsd.WebResolver(srv.URL),
		ddnsd.WebResolver(srv.URL, srv.URL),
		ddnsd.WebResolver(srv.URL, srv.URL, srv.URL),
		ddnsd.WebResolver(srv.URL, srv.URL, srv.URL, srv.URL),
		ddnsd.WebResolver(srv.URL, srv.URL, srv.URL, srv.URL, srv.URL),
	}
	for i, wr := range wrs {
		mu.Lock()
		hits = 0
		mu.Unlock()
		_, err := wr.Resolve(context.Background())
		if err == nil {
			t.Fatalf("Expected an error; got err == nil")
		}
		mu.Lock()
		h := hits
		mu.Unlock()
		expected := i + 1
		if expected > 3 {
			expected = 3
		}
		if h != expected {
			t.Fatalf("resolver %d: Expected %d hits; got %d", i, expected, h)
		}
	}
}
