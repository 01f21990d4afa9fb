package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

// Load reads configuration from a YAML file, layered over Defaults.
// An empty path returns the defaults untouched.
func Load(path string) (*AppConfig, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Throttle.BreakerThreshold == 0 {
		cfg.Throttle.BreakerThreshold = 5
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects configs whose agent tables reference unknown vendors.
// A missing vendor rule is a config error, not a throttle decision.
func validate(cfg *AppConfig) error {
	for agent, vendor := range cfg.Agents.Vendors {
		if vendor == domain.VendorInternal {
			continue
		}
		if _, ok := cfg.Throttle.Rules[vendor]; !ok {
			return fmt.Errorf("agent %s maps to vendor %s with no throttle rule", agent, vendor)
		}
	}
	return nil
}
