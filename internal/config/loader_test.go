package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", cfg.Embeddings.Model)

	assert.Equal(t, "dkb_embeddings.json", cfg.Catalog.SnapshotPath)
	assert.Equal(t, float32(0.25), cfg.Mapper.SimilarityThreshold)
	assert.Equal(t, 3, cfg.Mapper.TopK)

	assert.Equal(t, "memory", cfg.DKB.Backend)
	assert.Equal(t, "dkb_seed", cfg.DKB.SeedDir)
	assert.Equal(t, DKBWeights{Promotes: 2, Hinders: 5, Suits: 1, MeetsConstraint: 3}, cfg.DKB.Weights)

	assert.Equal(t, 10, cfg.Session.MaxHistory)
	assert.Equal(t, 60*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Session.CleanupInterval)

	assert.Equal(t, 10, cfg.Analysis.MaxEntities)
	assert.Equal(t, 15, cfg.Analysis.MaxRelationships)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 0.0.0.0
  port: 9090
mapper:
  similarity_threshold: 0.5
  top_k: 5
dkb:
  backend: neo4j
  uri: bolt://localhost:7687
session:
  max_history: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, float32(0.5), cfg.Mapper.SimilarityThreshold)
	assert.Equal(t, 5, cfg.Mapper.TopK)
	assert.Equal(t, "neo4j", cfg.DKB.Backend)
	assert.Equal(t, "bolt://localhost:7687", cfg.DKB.URI)
	assert.Equal(t, 4, cfg.Session.MaxHistory)

	// Untouched sections still get their defaults.
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, 10, cfg.Analysis.MaxEntities)
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad provider", func(c *Config) { c.Embeddings.Provider = "magic" }, "embeddings.provider"},
		{"tei without base url", func(c *Config) { c.Embeddings.Provider = "tei" }, "base_url"},
		{"threshold out of range", func(c *Config) { c.Mapper.SimilarityThreshold = 1.5 }, "similarity_threshold"},
		{"bad backend", func(c *Config) { c.DKB.Backend = "oracle" }, "dkb.backend"},
		{"neo4j without uri", func(c *Config) { c.DKB.Backend = "neo4j" }, "dkb.uri"},
		{"negative weight", func(c *Config) { c.DKB.Weights.Hinders = -1 }, "weights"},
		{"zero entities", func(c *Config) { c.Analysis.MaxEntities = -1 }, "max_entities"},
		{"negative cleanup interval", func(c *Config) { c.Session.CleanupInterval = -time.Minute }, "cleanup_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
