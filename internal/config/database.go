package config

import (
	"fmt"
	"slices"

	"github.com/LeJamon/goickb/internal/storage/compression"
)

// StorageConfig represents the [storage] section
type StorageConfig struct {
	// HeaderStorePath is the pebble directory for final headers and
	// transactions. Empty keeps the cache in memory only.
	HeaderStorePath string `toml:"header_store_path" mapstructure:"header_store_path"`

	// Compression names the header store value compressor.
	Compression string `toml:"compression" mapstructure:"compression"`

	// ExecLogPath is the sqlite file cycle records are appended to, or a
	// postgres:// URL. Empty disables the execution log.
	ExecLogPath string `toml:"exec_log_path" mapstructure:"exec_log_path"`
}

// Validate performs validation on the storage configuration
func (s *StorageConfig) Validate() error {
	if s.HeaderStorePath != "" && !slices.Contains(compression.Available(), s.Compression) {
		return fmt.Errorf("unknown compression %q (available: %v)", s.Compression, compression.Available())
	}
	return nil
}

// HasHeaderStore returns true if headers are persisted
func (s *StorageConfig) HasHeaderStore() bool {
	return s.HeaderStorePath != ""
}

// HasExecLog returns true if cycle records are persisted
func (s *StorageConfig) HasExecLog() bool {
	return s.ExecLogPath != ""
}
