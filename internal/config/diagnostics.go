package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/LeJamon/goickb/internal/log"
)

// LogConfig represents the [log] section
type LogConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
}

// MetricsConfig represents the [metrics] section
// Prometheus metrics are served on Listen when set
type MetricsConfig struct {
	Listen    string `toml:"listen" mapstructure:"listen"`
	Namespace string `toml:"namespace" mapstructure:"namespace"`
}

// Validate performs validation on the log configuration
func (l *LogConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %s (valid options: debug, info, warn, error)", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case log.LogFormatPlain, log.LogFormatText, log.LogFormatJSON:
	default:
		return fmt.Errorf("unknown log format: %s (valid options: plain, text, json)", l.Format)
	}
	return nil
}

// Validate performs validation on the metrics configuration
func (m *MetricsConfig) Validate() error {
	if m.Listen == "" {
		// Metrics disabled
		return nil
	}
	if _, _, err := net.SplitHostPort(m.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", m.Listen, err)
	}
	if m.Namespace == "" {
		return fmt.Errorf("namespace is required when metrics are enabled")
	}
	return nil
}

// IsEnabled returns true if metrics are served
func (m *MetricsConfig) IsEnabled() bool {
	return m.Listen != ""
}
