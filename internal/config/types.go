package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/archd/internal/logging"
)

// Config is the root configuration for archd.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    logging.Config   `koanf:"logging"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Mapper     MapperConfig     `koanf:"mapper"`
	DKB        DKBConfig        `koanf:"dkb"`
	Session    SessionConfig    `koanf:"session"`
	Analysis   AnalysisConfig   `koanf:"analysis"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "fastembed" (local ONNX) or "tei" (HTTP, OpenAI-compatible).
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	CacheDir string `koanf:"cache_dir"`
}

// CatalogConfig locates the concept embeddings snapshot.
type CatalogConfig struct {
	SnapshotPath string `koanf:"snapshot_path"`
}

// MapperConfig tunes the hybrid concept-mapping stage.
type MapperConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a vector
	// match to count. Default 0.25.
	SimilarityThreshold float32 `koanf:"similarity_threshold"`
	// TopK is how many nearest concepts are considered per text snippet.
	// Default 3.
	TopK int `koanf:"top_k"`
}

// DKBWeights are the pattern scoring weights. All positive; the hinders
// weight is applied as a penalty. Defaults: 2, 5, 1, 3.
type DKBWeights struct {
	Promotes        int `koanf:"promotes"`
	Hinders         int `koanf:"hinders"`
	Suits           int `koanf:"suits"`
	MeetsConstraint int `koanf:"meets_constraint"`
}

// DKBConfig selects and configures the pattern graph backend.
type DKBConfig struct {
	// Backend is "memory" (seed JSON loaded in process) or "neo4j".
	Backend  string     `koanf:"backend"`
	SeedDir  string     `koanf:"seed_dir"`
	URI      string     `koanf:"uri"`
	Username string     `koanf:"username"`
	Password string     `koanf:"password"`
	Database string     `koanf:"database"`
	Weights  DKBWeights `koanf:"weights"`
}

// SessionConfig tunes the in-memory conversation store.
type SessionConfig struct {
	// MaxHistory is the number of user/assistant message pairs kept.
	MaxHistory      int           `koanf:"max_history"`
	Timeout         time.Duration `koanf:"timeout"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// AnalysisConfig holds requirement-extraction limits.
type AnalysisConfig struct {
	MaxEntities      int `koanf:"max_entities"`
	MaxRelationships int `koanf:"max_relationships"`
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch c.Embeddings.Provider {
	case "fastembed", "tei":
	default:
		return fmt.Errorf("embeddings.provider must be fastembed or tei, got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Provider == "tei" && c.Embeddings.BaseURL == "" {
		return fmt.Errorf("embeddings.base_url is required for the tei provider")
	}
	if c.Mapper.SimilarityThreshold < 0 || c.Mapper.SimilarityThreshold > 1 {
		return fmt.Errorf("mapper.similarity_threshold out of [0,1]: %v", c.Mapper.SimilarityThreshold)
	}
	if c.Mapper.TopK <= 0 {
		return fmt.Errorf("mapper.top_k must be positive")
	}
	switch c.DKB.Backend {
	case "memory", "neo4j":
	default:
		return fmt.Errorf("dkb.backend must be memory or neo4j, got %q", c.DKB.Backend)
	}
	if c.DKB.Backend == "neo4j" && c.DKB.URI == "" {
		return fmt.Errorf("dkb.uri is required for the neo4j backend")
	}
	if c.DKB.Weights.Promotes < 0 || c.DKB.Weights.Hinders < 0 ||
		c.DKB.Weights.Suits < 0 || c.DKB.Weights.MeetsConstraint < 0 {
		return fmt.Errorf("dkb.weights must be non-negative")
	}
	if c.Analysis.MaxEntities <= 0 {
		return fmt.Errorf("analysis.max_entities must be positive")
	}
	if c.Analysis.MaxRelationships <= 0 {
		return fmt.Errorf("analysis.max_relationships must be positive")
	}
	if c.Session.MaxHistory <= 0 {
		return fmt.Errorf("session.max_history must be positive")
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("session.timeout must be positive")
	}
	if c.Session.CleanupInterval <= 0 {
		return fmt.Errorf("session.cleanup_interval must be positive")
	}
	return nil
}
