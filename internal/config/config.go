package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.yaml.in/yaml/v3"

	"github.com/Travis-Britz/ddnsd"
)

const (
	ProviderCloudflare = "cloudflare"
	ProviderArvan      = "arvan"
	ProviderRoute53    = "route53"
	ProviderDNSPod     = "dnspod"
)

// Config is the flat configuration record persisted between runs.
type Config struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	APIEmail    string  `yaml:"api_email,omitempty"`
	APISecret   string  `yaml:"api_secret,omitempty"`
	RecordName  string  `yaml:"record_name"`
	Domain      string  `yaml:"domain"`
	RecordIDs   string  `yaml:"record_ids"`
	RecordType  string  `yaml:"record_type"`
	TTL         int     `yaml:"ttl,omitempty"`
	Interval    Minutes `yaml:"interval"`
	Resolver    string  `yaml:"resolver,omitempty"`
	ProviderURL string  `yaml:"provider_url,omitempty"`
}

// Minutes is a duration written in (possibly fractional) minutes.
// A blank value decodes as zero.
type Minutes float64

func (m *Minutes) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimSpace(value.Value)
	if s == "" || value.Tag == "!!null" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("interval %q is not a number of minutes", value.Value)
	}
	*m = Minutes(f)
	return nil
}

func (m Minutes) Duration() time.Duration {
	return time.Duration(float64(m) * float64(time.Minute))
}

// Load reads the configuration file at path and expands ${ENV_VAR} references
// in the credential fields. Use Read to get the record as written.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	return cfg.Expanded(), nil
}

// Read reads the configuration file at path without expanding environment references,
// so that saving the result keeps them intact.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.RecordType == "" {
		cfg.RecordType = "A"
	}
	return &cfg, nil
}

// Expanded returns a copy of c with ${ENV_VAR} references in the credential fields expanded.
func (c *Config) Expanded() *Config {
	cp := *c
	cp.APIKey = os.ExpandEnv(c.APIKey)
	cp.APIEmail = os.ExpandEnv(c.APIEmail)
	cp.APISecret = os.ExpandEnv(c.APISecret)
	return &cp
}

// Save writes cfg to path with owner-only permissions.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("setting config file permissions: %w", err)
	}
	return nil
}

// Validate reports every problem with the record.
// A zero interval is valid here; the daemon then performs no periodic checks.
func (c *Config) Validate() error {
	var err error
	missing := func(field string) {
		err = multierr.Append(err, &ddnsd.ConfigError{Field: field, Reason: "is required"})
	}

	switch c.Provider {
	case ProviderCloudflare, ProviderArvan, ProviderDNSPod:
		if c.APIKey == "" {
			missing("api_key")
		}
	case ProviderRoute53:
	case "":
		missing("provider")
	default:
		err = multierr.Append(err, &ddnsd.ConfigError{Field: "provider", Reason: fmt.Sprintf("%q is not one of cloudflare, arvan, route53, dnspod", c.Provider)})
	}
	if c.Provider == ProviderDNSPod && c.APISecret == "" {
		missing("api_secret")
	}
	if c.Domain == "" {
		missing("domain")
	}
	switch {
	case (c.Provider == ProviderArvan || c.Provider == ProviderDNSPod) && strings.TrimSpace(c.RecordIDs) == "":
		// these providers address records by ID only
		err = multierr.Append(err, &ddnsd.ConfigError{Field: "record_ids", Reason: fmt.Sprintf("is required for %s", c.Provider)})
	case len(c.Targets()) == 0:
		missing("record_ids")
	}
	if c.Interval < 0 {
		err = multierr.Append(err, &ddnsd.ConfigError{Field: "interval", Reason: "cannot be negative"})
	}
	if c.TTL < 0 {
		err = multierr.Append(err, &ddnsd.ConfigError{Field: "ttl", Reason: "cannot be negative"})
	}
	return err
}

// Targets expands record_ids into one target per entry.
// Without record_ids, record_name is treated as the list instead;
// Validate only allows that for providers that can look records up by name.
func (c *Config) Targets() []ddnsd.Target {
	if strings.TrimSpace(c.RecordIDs) == "" {
		return ddnsd.SplitTargets(c.Domain, c.RecordName, "", c.RecordType, c.TTL)
	}
	return ddnsd.SplitTargets(c.Domain, c.RecordIDs, c.RecordName, c.RecordType, c.TTL)
}

// CheckPermissions refuses a config file that other users can read.
func CheckPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking config file permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for \"%s\": expected file permissions \"-rw-------\"; found \"%s\"", path, fs.FileMode(perms))
	}
	return nil
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
