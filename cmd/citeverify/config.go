// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citeverify/pkg/types"
)

// setDefaults registers every key of types.DefaultConfig with v so that
// CITEVERIFY_* environment variables can override any of them.
func setDefaults(v *viper.Viper) error {
	return setDefaultsFrom(v, types.DefaultConfig())
}

func setDefaultsFrom(v *viper.Viper, cfg any) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding default configuration: %w", err)
	}
	defaults := viper.New()
	defaults.SetConfigType("yaml")
	if err := defaults.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("reading default configuration: %w", err)
	}
	for _, key := range defaults.AllKeys() {
		v.SetDefault(key, defaults.Get(key))
	}
	// omitempty keys missing from the marshalled defaults
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("metrics.textfile", "")
	return nil
}

// loadConfig decodes v over the defaults.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(cfg types.Config) error {
	switch cfg.Cache.Backend {
	case types.CacheMemory, types.CacheSQLite, types.CacheRedis, types.CacheNone:
	default:
		return fmt.Errorf("cache.backend %q: use memory, sqlite, redis, or none", cfg.Cache.Backend)
	}
	if cfg.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative")
	}
	seen := make(map[string]bool, len(cfg.Registries))
	for _, r := range cfg.Registries {
		if seen[r.Name] {
			return fmt.Errorf("registry %q configured twice", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}
