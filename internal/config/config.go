package config

import (
	"path/filepath"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
	NetworkDevnet  = "devnet"
)

// Config represents the complete ickbd configuration
type Config struct {
	// Network selects the system script deps; devnet requires them in [scripts].
	Network string `toml:"network" mapstructure:"network"`

	RPC     RPCConfig     `toml:"rpc" mapstructure:"rpc"`
	Scripts ScriptsConfig `toml:"scripts" mapstructure:"scripts"`
	Bot     BotConfig     `toml:"bot" mapstructure:"bot"`
	Storage StorageConfig `toml:"storage" mapstructure:"storage"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`
	Metrics MetricsConfig `toml:"metrics" mapstructure:"metrics"`

	// Internal fields for configuration management
	configPath string `toml:"-" mapstructure:"-"`
}

// ConfigPaths holds the paths to configuration files
type ConfigPaths struct {
	Main string // Path to main config file (ickbd.toml)
}

// DefaultConfigPaths returns the default configuration file paths
func DefaultConfigPaths() ConfigPaths {
	return ConfigPaths{Main: "ickbd.toml"}
}

// ConfigPathsFromDir returns configuration paths for a specific directory
func ConfigPathsFromDir(configDir string) ConfigPaths {
	return ConfigPaths{Main: filepath.Join(configDir, "ickbd.toml")}
}

// GetConfigPath returns the path to the main configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// IsPublicNetwork reports whether system scripts come from built-in deps.
func (c *Config) IsPublicNetwork() bool {
	return c.Network == NetworkMainnet || c.Network == NetworkTestnet
}
