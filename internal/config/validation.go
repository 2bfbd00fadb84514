package config

import (
	"fmt"
)

// ValidateConfig performs comprehensive validation on the complete configuration
func ValidateConfig(config *Config) error {
	switch config.Network {
	case NetworkMainnet, NetworkTestnet, NetworkDevnet:
	default:
		return fmt.Errorf("unknown network: %s (valid options: mainnet, testnet, devnet)", config.Network)
	}

	if err := config.RPC.Validate(); err != nil {
		return fmt.Errorf("rpc validation failed: %w", err)
	}

	if _, err := config.Deployment(); err != nil {
		return fmt.Errorf("scripts validation failed: %w", err)
	}

	if err := config.Bot.Validate(); err != nil {
		return fmt.Errorf("bot validation failed: %w", err)
	}

	if err := config.Storage.Validate(); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}

	if err := config.Log.Validate(); err != nil {
		return fmt.Errorf("log validation failed: %w", err)
	}

	if err := config.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics validation failed: %w", err)
	}

	return nil
}
