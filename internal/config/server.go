package config

import (
	"fmt"
	"net/url"
	"time"
)

// RPCConfig represents the [rpc] section: how the node is reached.
type RPCConfig struct {
	URL   string `toml:"url" mapstructure:"url"`
	WSURL string `toml:"ws_url" mapstructure:"ws_url"`

	// RequestsPerSecond throttles outgoing calls; 0 disables throttling.
	RequestsPerSecond float64       `toml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `toml:"burst" mapstructure:"burst"`
	Timeout           time.Duration `toml:"timeout" mapstructure:"timeout"`

	CacheSize int    `toml:"cache_size" mapstructure:"cache_size"`
	Finality  uint64 `toml:"finality" mapstructure:"finality"`
}

// Validate performs validation on the RPC configuration
func (r *RPCConfig) Validate() error {
	if err := validateURL(r.URL, "http", "https"); err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if r.WSURL != "" {
		if err := validateURL(r.WSURL, "ws", "wss"); err != nil {
			return fmt.Errorf("ws_url: %w", err)
		}
	}
	if r.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative, got %v", r.RequestsPerSecond)
	}
	if r.Burst < 0 {
		return fmt.Errorf("burst must be non-negative, got %d", r.Burst)
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", r.Timeout)
	}
	if r.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", r.CacheSize)
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("%q has no host", raw)
			}
			return nil
		}
	}
	return fmt.Errorf("%q must use one of %v", raw, schemes)
}
