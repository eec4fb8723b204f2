package ddnsd

import (
	"context"
	"strings"
)

// Resolver looks up the address the record should point at.
//
// Implementations make a single attempt and return an error wrapping a [*NetworkError] on failure;
// the Reconciler's interval is the retry policy.
// A nil error always comes with a non-empty address.
type Resolver interface {
	Resolve(context.Context) (string, error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(context.Context) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context) (string, error) {
	return f(ctx)
}

// Provider is the capability set a DNS provider adapter implements.
//
// Read returns the literal address currently stored for the target.
// A missing record or an unexpected response shape is a [*ProviderError].
// Write replaces the stored address, re-sending every other attribute the provider requires.
type Provider interface {
	Read(ctx context.Context, target Target) (string, error)
	Write(ctx context.Context, target Target, addr string) error
}

// Target identifies one DNS record managed by a Reconciler.
type Target struct {
	Zone string // zone ID or domain, depending on the provider
	ID   string // record identifier; providers that locate records by name accept an empty ID
	Name string
	Type string
	TTL  int // 0 selects the provider default
}

// String returns the label used for the target in reports.
func (t Target) String() string {
	switch {
	case t.Name != "" && t.ID != "" && t.ID != t.Name:
		return t.Name + " (" + t.ID + ")"
	case t.Name != "":
		return t.Name
	default:
		return t.ID
	}
}

// SplitTargets expands a delimiter-separated list of record identifiers into one Target each.
// Entries are trimmed and empty entries are dropped.
// When name is empty, each identifier doubles as the record name.
func SplitTargets(zone, ids, name, recordType string, ttl int) []Target {
	var targets []Target
	for _, id := range strings.Split(ids, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		n := name
		if n == "" {
			n = id
		}
		targets = append(targets, Target{
			Zone: zone,
			ID:   id,
			Name: n,
			Type: recordType,
			TTL:  ttl,
		})
	}
	return targets
}
