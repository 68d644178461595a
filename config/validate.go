package config

import (
	"fmt"
	"math/big"
	"strings"
)

var validLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "warning": {}, "error": {}}

// ValidateConfig rejects configurations the node cannot run with.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if _, ok := validLevels[strings.ToLower(strings.TrimSpace(cfg.Log.Level))]; !ok {
		return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
	}
	if cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log: retention settings must not be negative")
	}
	if (cfg.Telemetry.Traces || cfg.Telemetry.Metrics) && strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: Endpoint required when exporters are enabled")
	}
	if cfg.DevFaucet.Enabled {
		if strings.EqualFold(cfg.Environment, "prod") || strings.EqualFold(cfg.Environment, "production") {
			return fmt.Errorf("dev_faucet: not allowed in environment %s", cfg.Environment)
		}
		if _, err := cfg.DevFaucet.ParseAmount(); err != nil {
			return err
		}
	}
	return nil
}

// ParseAmount returns the faucet grant in base units.
func (f DevFaucet) ParseAmount() (*big.Int, error) {
	trimmed := strings.TrimSpace(f.Amount)
	if trimmed == "" {
		return nil, fmt.Errorf("dev_faucet: Amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("dev_faucet: invalid Amount %q", f.Amount)
	}
	return amount, nil
}
