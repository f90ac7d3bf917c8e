package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables consulted by Load.
const (
	envPrefix  = "SCHOLAR_"
	envConfig  = "SCHOLAR_CONFIG"
	envDotFile = "SCHOLAR_ENV_FILE"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SCHOLAR_CONFIG is set
//  3. env (prefix SCHOLAR_), optionally seeded from the dotenv file named by SCHOLAR_ENV_FILE
func Load(_ context.Context) (*Config, error) {
	base := New()

	if path := os.Getenv(envDotFile); path != "" {
		// godotenv never overrides variables already present in the process env.
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("%w: dotenv %s: %v", ErrLoadConfig, path, err)
		}
	}

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// SCHOLAR_PASS_THRESHOLD -> pass_threshold. Keys stay flat to match the
	// koanf tags; sources can only be configured through the file.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}
	// Internal variables are not config keys.
	k.Delete("config")
	k.Delete("env_file")

	cfg := *base
	if k.Exists("sources") {
		// A configured source list replaces the defaults rather than merging into them.
		cfg.Sources = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
