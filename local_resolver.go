package ddnsd

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"go.uber.org/multierr"
)

// InterfaceResolver constructs a resolver that returns the first global unicast address found on the given interfaces.
// If no interfaces are provided then all interfaces will be searched.
// This suits records that point at a host on a private network.
func InterfaceResolver(iface ...string) Resolver {
	return interfaceResolver{ifaces: iface}
}

type interfaceResolver struct {
	ifaces []string
}

func (r interfaceResolver) Resolve(ctx context.Context) (string, error) {
	if len(r.ifaces) == 0 {
		addrs, err := net.InterfaceAddrs()
		if err != nil {
			return "", &NetworkError{Op: "resolve", Err: fmt.Errorf("error getting interface addresses: %w", err)}
		}
		if addr, ok := firstGlobal(addrs); ok {
			return addr, nil
		}
		return "", &NetworkError{Op: "resolve", Err: fmt.Errorf("no global unicast address on any interface")}
	}

	var errs error
	for _, name := range r.ifaces {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("error getting interface %s by name: %w", name, err))
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("error looking up addresses for interface %s: %w", name, err))
			continue
		}
		if addr, ok := firstGlobal(addrs); ok {
			return addr, nil
		}
	}
	if errs == nil {
		errs = fmt.Errorf("no global unicast address on %v", r.ifaces)
	}
	return "", &NetworkError{Op: "resolve", Err: errs}
}

// firstGlobal skips loopback, link-local and unspecified addresses.
// addr: ip+net:192.168.86.253/24
// addr: ip+net:fe80::2cc9:801b:3551:9a43/64
func firstGlobal(addrs []net.Addr) (string, bool) {
	for _, a := range addrs {
		p, err := netip.ParsePrefix(a.String())
		if err != nil {
			continue
		}
		if ip := p.Addr(); ip.IsGlobalUnicast() {
			return ip.String(), true
		}
	}
	return "", false
}
