package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/Travis-Britz/ddnsd"
	"github.com/Travis-Britz/ddnsd/internal/config"
)

func buildProvider(ctx context.Context, cfg *config.Config) (ddnsd.Provider, error) {
	switch cfg.Provider {
	case config.ProviderCloudflare:
		if cfg.APIEmail != "" {
			return ddnsd.NewCloudflareWithKey(cfg.APIKey, cfg.APIEmail)
		}
		return ddnsd.NewCloudflare(cfg.APIKey)
	case config.ProviderArvan:
		return ddnsd.NewArvan(cfg.APIKey, cfg.ProviderURL), nil
	case config.ProviderRoute53:
		return ddnsd.NewRoute53(ctx)
	case config.ProviderDNSPod:
		return ddnsd.NewDNSPod(cfg.APIKey, cfg.APISecret)
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// buildResolver interprets the resolver setting:
// empty for the default echo service, "dns" or "dns:host:port" for a DNS echo,
// "iface:eth0,wlan0" for local interfaces, otherwise a comma-separated list of echo URLs.
// A static address overrides the setting.
func buildResolver(setting, static string) (ddnsd.Resolver, error) {
	if static != "" {
		if _, err := ddnsd.StaticResolver(static).Resolve(context.Background()); err != nil {
			return nil, err
		}
		return ddnsd.StaticResolver(static), nil
	}
	setting = strings.TrimSpace(setting)
	switch {
	case setting == "":
		return ddnsd.DefaultResolver, nil
	case setting == "dns":
		return ddnsd.DNSResolver("", ""), nil
	case strings.HasPrefix(setting, "dns:"):
		return ddnsd.DNSResolver(strings.TrimPrefix(setting, "dns:"), ""), nil
	case strings.HasPrefix(setting, "iface:"):
		return ddnsd.InterfaceResolver(splitList(strings.TrimPrefix(setting, "iface:"))...), nil
	}
	urls := splitList(setting)
	for _, u := range urls {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return nil, &ddnsd.ConfigError{Field: "resolver", Reason: fmt.Sprintf("%q is not an http(s) URL", u)}
		}
	}
	return ddnsd.WebResolver(urls...), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
