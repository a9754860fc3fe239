// Package config loads the optional YAML configuration and provides defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIURL is the public retro registry endpoint
	DefaultAPIURL = "http://retro.domain-registry.nl/"
	// DefaultSearchPath is the search path template; {term} is replaced by the escaped search term
	DefaultSearchPath = "search/" + TermPlaceholder
	// DefaultTimeout is the default request timeout in seconds
	DefaultTimeout = 30

	// TermPlaceholder marks where the search term goes in a path template
	TermPlaceholder = "{term}"
)

// Config is the root configuration structure.
type Config struct {
	APIURL     string `yaml:"api_url,omitempty"`
	SearchPath string `yaml:"search_path,omitempty"`
	// Timeout in seconds. Nil means unset, 0 disables the bound.
	Timeout  *int `yaml:"timeout,omitempty"`
	Insecure bool `yaml:"insecure,omitempty"`
}

// Validate checks the endpoint and timeout, when set.
func (c *Config) Validate() error {
	if c.APIURL != "" {
		if err := ValidateAPIURL(c.APIURL); err != nil {
			return err
		}
	}
	if c.Timeout != nil && *c.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %d (must not be negative)", *c.Timeout)
	}
	return nil
}

// ValidateAPIURL requires an absolute http or https URL.
func ValidateAPIURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api_url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid api_url %q: missing host", raw)
	}
	return nil
}

// LoadConfig reads YAML and validates it.
// Returns empty config if file missing.
func LoadConfig(filePath string) (*Config, error) {
	// #nosec G304 -- filePath is user-controlled via CLI flag by design
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// GetAPIURL provides default fallback.
func (c *Config) GetAPIURL() string {
	if c.APIURL != "" {
		return c.APIURL
	}
	return DefaultAPIURL
}

// GetSearchPath provides default fallback.
func (c *Config) GetSearchPath() string {
	if c.SearchPath != "" {
		return c.SearchPath
	}
	return DefaultSearchPath
}

// GetTimeout provides default fallback (seconds).
// Returns 0 if explicitly set to 0 (no timeout).
func (c *Config) GetTimeout() int {
	if c.Timeout != nil && *c.Timeout >= 0 {
		return *c.Timeout
	}
	return DefaultTimeout
}

// SearchURL joins the endpoint and the path template, substituting the
// path-escaped term for every {term} placeholder.
func (c *Config) SearchURL(term string) string {
	path := strings.ReplaceAll(c.GetSearchPath(), TermPlaceholder, url.PathEscape(term))
	return strings.TrimRight(c.GetAPIURL(), "/") + "/" + strings.TrimLeft(path, "/")
}

// ApplyIntOverride applies a CLI flag override to an optional config int field.
// A changed flag wins over the file, including an explicit 0.
func ApplyIntOverride(flagChanged bool, flagValue int, target **int) {
	if flagChanged && flagValue >= 0 {
		v := flagValue
		*target = &v
	}
}

// ApplyStringOverride applies a CLI flag override to a config string field with default fallback.
// If the CLI value is non-empty, it overrides the config value.
// Otherwise, if the config value is empty, the default value is applied.
func ApplyStringOverride(cliValue string, target *string, defaultVal string) {
	if cliValue != "" {
		*target = cliValue
	} else if *target == "" {
		*target = defaultVal
	}
}

// ApplyBoolOverride enables a config flag when the CLI flag was set.
func ApplyBoolOverride(flagChanged bool, flagValue bool, target *bool) {
	if flagChanged {
		*target = flagValue
	}
}
