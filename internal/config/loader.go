package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ICKBD_BOT_PRIVATE_KEY.
const EnvPrefix = "ICKBD"

// LoadConfig loads configuration from multiple sources in priority order:
// 1. Default values
// 2. Configuration file (ickbd.toml)
// 3. Environment variables (ICKBD_ prefix)
func LoadConfig(paths ConfigPaths) (*Config, error) {
	v := viper.New()

	// 1. Set defaults first
	setDefaults(v)

	// 2. Load main configuration file
	if err := loadMainConfig(v, paths.Main); err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	// 3. Set up environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Apply network-specific defaults after loading config to know the network
	ApplyNetworkDefaults(v)

	// 4. Unmarshal main config into struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.configPath = paths.Main

	// 5. Validate the complete configuration
	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// loadMainConfig loads the main configuration file
func loadMainConfig(v *viper.Viper, configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config path cannot be empty")
	}

	v.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return nil
}

// LoadConfigFromDir loads configuration from a directory containing ickbd.toml
func LoadConfigFromDir(configDir string) (*Config, error) {
	return LoadConfig(ConfigPathsFromDir(configDir))
}

// LoadDefaultConfig loads configuration from default locations
func LoadDefaultConfig() (*Config, error) {
	return LoadConfig(DefaultConfigPaths())
}

// ReloadConfig reloads configuration from the same paths
func ReloadConfig(existingConfig *Config) (*Config, error) {
	return LoadConfig(ConfigPaths{Main: existingConfig.GetConfigPath()})
}

// SaveExampleConfig saves an example configuration file
func SaveExampleConfig(configPath string) error {
	v := viper.New()
	for key, value := range generateExampleConfig() {
		v.Set(key, value)
	}

	v.SetConfigFile(configPath)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}
	return nil
}

// generateExampleConfig generates example configuration values. Script
// hashes are placeholders to be replaced with the target deployment.
func generateExampleConfig() map[string]interface{} {
	placeholder := "0x" + strings.Repeat("00", 32)
	script := func(hashType string) map[string]interface{} {
		return map[string]interface{}{
			"code_hash": placeholder,
			"hash_type": hashType,
			"args":      "0x",
			"cell_deps": []map[string]interface{}{
				{"tx_hash": placeholder, "index": 0, "dep_type": "code"},
			},
		}
	}
	return map[string]interface{}{
		"network": NetworkTestnet,

		"rpc.url":    "https://testnet.ckb.dev/rpc",
		"rpc.ws_url": "ws://127.0.0.1:28114",

		"scripts.xudt":        script("data1"),
		"scripts.logic":       script("data1"),
		"scripts.owned_owner": script("data1"),
		"scripts.order":       script("data1"),

		"bot.private_key_file": "/etc/ickbd/key",
		"bot.min_udt":          "100000",
		"bot.max_udt":          "200000",

		"storage.header_store_path": "/var/lib/ickbd/headers",
		"storage.exec_log_path":     "/var/lib/ickbd/cycles.db",

		"metrics.listen": "127.0.0.1:9100",
	}
}
