package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Travis-Britz/ddnsd"
	"github.com/Travis-Britz/ddnsd/internal/config"
)

var verifyCloudflareToken = ddnsd.VerifyCloudflareToken

func readSecret() (string, error) {
	b, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("error reading from stdin: %w", err)
	}
	return string(b), nil
}

// runSetup prompts for each configuration value, offering the current value as the default,
// and saves the result to path. Environment references in an existing file are saved unexpanded.
func runSetup(path string, in io.Reader, out io.Writer, secret func() (string, error)) error {
	cfg := &config.Config{Provider: config.ProviderCloudflare, RecordType: "A", Interval: 5}
	if config.Exists(path) {
		existing, err := config.Read(path)
		if err != nil {
			return err
		}
		cfg = existing
	}

	r := bufio.NewReader(in)
	ask := func(label, current string) (string, error) {
		if current != "" {
			fmt.Fprintf(out, "%s [%s]: ", label, current)
		} else {
			fmt.Fprintf(out, "%s: ", label)
		}
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
		return current, nil
	}

	var err error
	if cfg.Provider, err = ask("Provider (cloudflare, arvan, route53, dnspod)", cfg.Provider); err != nil {
		return err
	}
	cfg.Provider = strings.ToLower(cfg.Provider)
	if cfg.Provider != config.ProviderRoute53 {
		fmt.Fprintf(out, "Enter API key (leave blank to keep the current key): \n")
		key, err := secret()
		if err != nil {
			return err
		}
		if key = strings.TrimSpace(key); key != "" {
			cfg.APIKey = key
		}
	}
	if cfg.Provider == config.ProviderDNSPod {
		if cfg.APISecret, err = ask("API secret", cfg.APISecret); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		label string
		value *string
	}{
		{"Domain or zone ID", &cfg.Domain},
		{"Record name", &cfg.RecordName},
		{"Record IDs (comma separated)", &cfg.RecordIDs},
		{"Record type", &cfg.RecordType},
	} {
		if *f.value, err = ask(f.label, *f.value); err != nil {
			return err
		}
	}
	interval, err := ask("Interval in minutes", strconv.FormatFloat(float64(cfg.Interval), 'f', -1, 64))
	if err != nil {
		return err
	}
	minutes, err := strconv.ParseFloat(interval, 64)
	if err != nil {
		return &ddnsd.ConfigError{Field: "interval", Reason: fmt.Sprintf("%q is not a number of minutes", interval)}
	}
	cfg.Interval = config.Minutes(minutes)

	resolved := cfg.Expanded()
	if err := resolved.Validate(); err != nil {
		return err
	}
	if cfg.Provider == config.ProviderCloudflare && resolved.APIEmail == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fmt.Fprintln(out, "verifying token...")
		if err := verifyCloudflareToken(ctx, resolved.APIKey); err != nil {
			return fmt.Errorf("unable to verify api token: %w", err)
		}
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "configuration written to %q\n", path)
	return nil
}
