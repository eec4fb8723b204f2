package ddnsd

import (
	"context"
)

// StaticResolver constructs a resolver that always answers addr.
// The address is validated on every call so that a bad value is reported as a failed cycle.
func StaticResolver(addr string) Resolver {
	return staticResolver(addr)
}

type staticResolver string

func (s staticResolver) Resolve(context.Context) (string, error) {
	return parseAddr("resolve", string(s))
}
