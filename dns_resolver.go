package ddnsd

import (
	"context"
	"errors"
	"fmt"

	"github.com/miekg/dns"
)

const (
	DefaultEchoServer = "resolver1.opendns.com:53"
	DefaultEchoName   = "myip.opendns.com"
)

// DNSResolver constructs a resolver that asks a DNS server which answers a query for name with the caller's address.
// Empty arguments select OpenDNS. Only A records are requested.
func DNSResolver(server, name string) Resolver {
	if server == "" {
		server = DefaultEchoServer
	}
	if name == "" {
		name = DefaultEchoName
	}
	return &dnsResolver{server: server, name: name, client: new(dns.Client)}
}

type dnsResolver struct {
	server string
	name   string
	client *dns.Client
}

func (r *dnsResolver) Resolve(ctx context.Context) (string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(r.name), dns.TypeA)

	resp, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return "", &NetworkError{Op: "resolve", Err: fmt.Errorf("dns query to %s failed: %w", r.server, err)}
	}
	if resp.Rcode != dns.RcodeSuccess {
		return "", &NetworkError{Op: "resolve", Err: fmt.Errorf("dns query to %s returned %s", r.server, dns.RcodeToString[resp.Rcode])}
	}
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			return parseAddr("resolve", a.A.String())
		}
	}
	return "", &NetworkError{Op: "resolve", Err: errors.New("dns answer contained no A record")}
}
