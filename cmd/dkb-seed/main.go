// Dkb-seed populates the design knowledge base and builds the concept
// embedding snapshot archd serves from.
//
// It loads the seed JSON files (patterns, components, component types,
// concepts, relationships), optionally writes them into a Neo4j graph,
// and embeds every concept into a snapshot file for the concept mapper.
//
// Usage:
//
//	# Build the embedding snapshot from seed files
//	dkb-seed -seed ./dkb_seed -out dkb_embeddings.json
//
//	# Also seed a Neo4j graph
//	dkb-seed -seed ./dkb_seed -out dkb_embeddings.json \
//	  -neo4j bolt://localhost:7687 -user neo4j -password secret
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/archd/internal/catalog"
	"github.com/fyrsmithlabs/archd/internal/dkb"
	"github.com/fyrsmithlabs/archd/internal/embeddings"
	"github.com/fyrsmithlabs/archd/internal/logging"
)

func main() {
	seedDir := flag.String("seed", "dkb_seed", "directory holding the seed JSON files")
	outPath := flag.String("out", "dkb_embeddings.json", "path for the embedding snapshot")
	model := flag.String("model", "sentence-transformers/all-MiniLM-L6-v2", "embedding model")
	cacheDir := flag.String("cache", "", "model cache directory")
	neo4jURI := flag.String("neo4j", "", "Neo4j URI; when set the graph is re-seeded")
	username := flag.String("user", "neo4j", "Neo4j username")
	password := flag.String("password", "", "Neo4j password")
	database := flag.String("database", "neo4j", "Neo4j database")
	flag.Parse()

	if err := run(context.Background(), seedOptions{
		seedDir:  *seedDir,
		outPath:  *outPath,
		model:    *model,
		cacheDir: *cacheDir,
		neo4jURI: *neo4jURI,
		username: *username,
		password: *password,
		database: *database,
	}); err != nil {
		log.Fatalf("Seeding error: %v", err)
	}
}

type seedOptions struct {
	seedDir  string
	outPath  string
	model    string
	cacheDir string
	neo4jURI string
	username string
	password string
	database string
}

func run(ctx context.Context, opts seedOptions) error {
	logger, err := logging.New(logging.Config{Level: "info", Format: "console"})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	seed, err := dkb.LoadSeed(opts.seedDir)
	if err != nil {
		return fmt.Errorf("loading seed: %w", err)
	}
	logger.Info("seed loaded",
		zap.String("dir", opts.seedDir),
		zap.Int("patterns", len(seed.Patterns)),
		zap.Int("components", len(seed.Components)),
	)

	if opts.neo4jURI != "" {
		store, err := dkb.NewNeo4jStore(ctx, dkb.Neo4jConfig{
			URI:      opts.neo4jURI,
			Username: opts.username,
			Password: opts.password,
			Database: opts.database,
		}, dkb.DefaultWeights(), logger)
		if err != nil {
			return fmt.Errorf("connecting to graph: %w", err)
		}
		defer store.Close(ctx)

		if err := store.Seed(ctx, seed); err != nil {
			return err
		}
		logger.Info("graph re-seeded", zap.String("uri", opts.neo4jURI))
	}

	return writeSnapshot(ctx, seed, opts, logger)
}

// writeSnapshot embeds every concept as "Label: Name. Description" and
// writes the snapshot file the server loads at startup.
func writeSnapshot(ctx context.Context, seed *dkb.Seed, opts seedOptions, logger *zap.Logger) error {
	var concepts []catalog.Concept
	appendGroup := func(label string, group []dkb.SeedConcept) {
		for _, c := range group {
			concepts = append(concepts, catalog.Concept{
				Name:        c.Name,
				Description: c.Description,
				Label:       label,
			})
		}
	}
	appendGroup("NFR", seed.Concepts.NFRs)
	appendGroup("Constraint", seed.Concepts.Constraints)
	appendGroup("Domain", seed.Concepts.Domains)

	if len(concepts) == 0 {
		return fmt.Errorf("seed contains no concepts to embed")
	}

	texts := make([]string, len(concepts))
	for i, c := range concepts {
		texts[i] = fmt.Sprintf("%s: %s. %s", c.Label, c.Name, c.Description)
	}

	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Model:    opts.model,
		CacheDir: opts.cacheDir,
	})
	if err != nil {
		return fmt.Errorf("initializing embeddings: %w", err)
	}
	defer provider.Close()

	logger.Info("embedding concepts", zap.Int("count", len(concepts)), zap.String("model", opts.model))
	vectors, err := provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding concepts: %w", err)
	}

	snap := catalog.Snapshot{Concepts: concepts, Embeddings: vectors}
	if err := snap.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(opts.outPath, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	logger.Info("snapshot written", zap.String("path", opts.outPath), zap.Int("concepts", len(concepts)))
	return nil
}
