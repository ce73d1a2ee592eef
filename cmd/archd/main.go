// Archd is the architecture recommendation daemon.
//
// It serves the requirements-analysis and pattern-ranking pipeline over
// HTTP: free-form requirements text goes in, a structured requirements
// record and a ranked list of architecture patterns with a component
// stack come out.
//
// Configuration is loaded from an optional YAML file plus environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults (embedded knowledge base from ./dkb_seed)
//	archd
//
//	# Start with a config file
//	archd -config archd.yaml
//
//	# Configure via environment
//	SERVER_PORT=9090 DKB_BACKEND=neo4j DKB_URI=bolt://localhost:7687 archd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/archd/internal/catalog"
	"github.com/fyrsmithlabs/archd/internal/config"
	"github.com/fyrsmithlabs/archd/internal/dkb"
	"github.com/fyrsmithlabs/archd/internal/embeddings"
	archhttp "github.com/fyrsmithlabs/archd/internal/http"
	"github.com/fyrsmithlabs/archd/internal/logging"
	"github.com/fyrsmithlabs/archd/internal/mapper"
	"github.com/fyrsmithlabs/archd/internal/nlp"
	"github.com/fyrsmithlabs/archd/internal/recommend"
	"github.com/fyrsmithlabs/archd/internal/requirements"
	"github.com/fyrsmithlabs/archd/internal/session"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  archd           Start the archd daemon\n")
			fmt.Fprintf(os.Stderr, "  archd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("archd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until the context is cancelled.
//
// Initialization order:
//  1. Configuration and logger
//  2. Linguistic annotator (fatal on failure, never degrade per request)
//  3. Embeddings provider, concept catalog, knowledge base (degrade to
//     "not ready" when unavailable)
//  4. HTTP server with session store and metrics
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting archd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("dkb_backend", cfg.DKB.Backend),
	)

	annotator, err := nlp.NewAnnotator()
	if err != nil {
		return fmt.Errorf("initializing linguistic annotator: %w", err)
	}
	analyzer := requirements.NewAnalyzer(annotator, requirements.Config{
		MaxEntities:      cfg.Analysis.MaxEntities,
		MaxRelationships: cfg.Analysis.MaxRelationships,
	})

	recsvc, closers := initRecommendation(ctx, cfg, logger)
	defer func() {
		for _, close := range closers {
			close()
		}
	}()

	sessions := session.NewStore(session.Config{
		MaxHistory: cfg.Session.MaxHistory,
		Timeout:    cfg.Session.Timeout,
	}, logger)
	go sessions.RunJanitor(ctx, cfg.Session.CleanupInterval)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := archhttp.NewServer(analyzer, recsvc, sessions, registry, logger, archhttp.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// initRecommendation wires the mapper and knowledge base. Failures here
// are logged and leave the service not-ready instead of aborting: the
// analyze endpoints still work without a knowledge base.
func initRecommendation(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*recommend.Service, []func()) {
	var closers []func()

	var conceptMapper recommend.ConceptMapper
	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider: cfg.Embeddings.Provider,
		Model:    cfg.Embeddings.Model,
		BaseURL:  cfg.Embeddings.BaseURL,
		CacheDir: cfg.Embeddings.CacheDir,
	})
	if err != nil {
		logger.Warn("embeddings provider unavailable, recommendations disabled", zap.Error(err))
	} else {
		closers = append(closers, func() { _ = provider.Close() })
		snap, err := catalog.LoadSnapshot(cfg.Catalog.SnapshotPath)
		if err != nil {
			logger.Warn("concept catalog unavailable, recommendations disabled",
				zap.String("path", cfg.Catalog.SnapshotPath), zap.Error(err))
		} else {
			cat, err := catalog.New(ctx, snap, logger)
			if err != nil {
				logger.Warn("concept catalog unusable, recommendations disabled", zap.Error(err))
			} else {
				conceptMapper = mapper.New(cat, provider, mapper.Config{
					SimilarityThreshold: cfg.Mapper.SimilarityThreshold,
					TopK:                cfg.Mapper.TopK,
				}, logger)
			}
		}
	}

	weights := dkb.Weights{
		Promotes:        cfg.DKB.Weights.Promotes,
		Hinders:         cfg.DKB.Weights.Hinders,
		Suits:           cfg.DKB.Weights.Suits,
		MeetsConstraint: cfg.DKB.Weights.MeetsConstraint,
	}

	var store dkb.Store
	switch cfg.DKB.Backend {
	case "neo4j":
		neoStore, err := dkb.NewNeo4jStore(ctx, dkb.Neo4jConfig{
			URI:      cfg.DKB.URI,
			Username: cfg.DKB.Username,
			Password: cfg.DKB.Password,
			Database: cfg.DKB.Database,
		}, weights, logger)
		if err != nil {
			logger.Warn("graph database unreachable, recommendations disabled", zap.Error(err))
		} else {
			store = neoStore
			closers = append(closers, func() { _ = neoStore.Close(context.Background()) })
		}
	default:
		seed, err := dkb.LoadSeed(cfg.DKB.SeedDir)
		if err != nil {
			logger.Warn("knowledge base seed unavailable, recommendations disabled",
				zap.String("dir", cfg.DKB.SeedDir), zap.Error(err))
		} else {
			memStore, err := dkb.NewMemoryStore(seed, weights, logger)
			if err != nil {
				logger.Warn("knowledge base unusable, recommendations disabled", zap.Error(err))
			} else {
				store = memStore
			}
		}
	}

	return recommend.NewService(conceptMapper, store, logger), closers
}
