// Package config provides configuration loading for archd.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/archd/internal/logging"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load loads configuration from a YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (SERVER_PORT, DKB_BACKEND, MAPPER_TOP_K, ...)
//  2. YAML config file
//  3. Defaults
//
// Environment variables map to config keys by splitting on the first
// underscore: SERVER_PORT -> server.port, DKB_SEED_DIR -> dkb.seed_dir.
// An empty configPath skips the file and uses env + defaults only.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		info, err := os.Stat(configPath)
		switch {
		case os.IsNotExist(err):
			// File is optional; env + defaults still apply.
		case err != nil:
			return nil, fmt.Errorf("stat config file: %w", err)
		default:
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
			}
			content, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		// SECTION_FIELD_NAME -> section.field_name. Only the first
		// underscore separates section from field.
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
// The numeric defaults here are part of the behavioral contract: the
// mapper threshold, scoring weights, and extraction caps must match the
// documented values for output parity across deployments.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging = logging.NewDefaultConfig()
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "fastembed"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}

	if cfg.Catalog.SnapshotPath == "" {
		cfg.Catalog.SnapshotPath = "dkb_embeddings.json"
	}

	if cfg.Mapper.SimilarityThreshold == 0 {
		cfg.Mapper.SimilarityThreshold = 0.25
	}
	if cfg.Mapper.TopK == 0 {
		cfg.Mapper.TopK = 3
	}

	if cfg.DKB.Backend == "" {
		cfg.DKB.Backend = "memory"
	}
	if cfg.DKB.SeedDir == "" {
		cfg.DKB.SeedDir = "dkb_seed"
	}
	if cfg.DKB.Database == "" {
		cfg.DKB.Database = "neo4j"
	}
	if cfg.DKB.Weights == (DKBWeights{}) {
		cfg.DKB.Weights = DKBWeights{Promotes: 2, Hinders: 5, Suits: 1, MeetsConstraint: 3}
	}

	if cfg.Session.MaxHistory == 0 {
		cfg.Session.MaxHistory = 10
	}
	if cfg.Session.Timeout == 0 {
		cfg.Session.Timeout = 60 * time.Minute
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = 5 * time.Minute
	}

	if cfg.Analysis.MaxEntities == 0 {
		cfg.Analysis.MaxEntities = 10
	}
	if cfg.Analysis.MaxRelationships == 0 {
		cfg.Analysis.MaxRelationships = 15
	}
}
