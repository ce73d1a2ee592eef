// Package catalog loads the read-only concept catalog: named knowledge
// concepts (quality attributes, constraints, domains) with precomputed
// embedding vectors. The catalog is loaded once at startup from a
// snapshot file and indexed into an in-memory chromem-go collection for
// nearest-neighbor lookup. Safe for concurrent reads after load.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

var (
	// ErrNotInitialized indicates the catalog snapshot was not loaded.
	ErrNotInitialized = errors.New("concept catalog not initialized")

	// ErrInvalidSnapshot indicates a malformed snapshot file.
	ErrInvalidSnapshot = errors.New("invalid catalog snapshot")
)

// Concept is one catalog entry.
type Concept struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Label       string `json:"label"`
}

// Snapshot is the on-disk catalog format. The i-th embedding belongs to
// the i-th concept; the file is produced by the seeding tool with the
// same model the server embeds queries with.
type Snapshot struct {
	Concepts   []Concept   `json:"concepts"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Neighbor is a nearest-concept result.
type Neighbor struct {
	Concept    Concept
	Similarity float32
}

// Catalog indexes concepts for keyword and vector lookup.
type Catalog struct {
	concepts   []Concept
	collection *chromem.Collection
	logger     *zap.Logger
}

// LoadSnapshot reads and validates a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Validate checks internal consistency of the snapshot.
func (s *Snapshot) Validate() error {
	if len(s.Concepts) == 0 {
		return fmt.Errorf("%w: no concepts", ErrInvalidSnapshot)
	}
	if len(s.Concepts) != len(s.Embeddings) {
		return fmt.Errorf("%w: %d concepts but %d embeddings", ErrInvalidSnapshot, len(s.Concepts), len(s.Embeddings))
	}
	dim := len(s.Embeddings[0])
	for i, c := range s.Concepts {
		if c.Name == "" {
			return fmt.Errorf("%w: concept %d has no name", ErrInvalidSnapshot, i)
		}
		if len(s.Embeddings[i]) != dim {
			return fmt.Errorf("%w: embedding %d has dimension %d, expected %d", ErrInvalidSnapshot, i, len(s.Embeddings[i]), dim)
		}
	}
	return nil
}

// New indexes a snapshot into an in-memory vector collection.
func New(ctx context.Context, snap *Snapshot, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	// Embeddings are precomputed; the collection must never embed on its
	// own.
	embedFn := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("catalog collection does not embed text")
	}
	collection, err := db.CreateCollection("concepts", nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("creating concept collection: %w", err)
	}

	docs := make([]chromem.Document, len(snap.Concepts))
	for i, c := range snap.Concepts {
		docs[i] = chromem.Document{
			ID: fmt.Sprintf("concept_%d", i),
			Metadata: map[string]string{
				"name":  c.Name,
				"label": c.Label,
			},
			Embedding: snap.Embeddings[i],
			Content:   c.Description,
		}
	}
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("indexing concepts: %w", err)
	}

	logger.Info("concept catalog loaded",
		zap.Int("concepts", len(snap.Concepts)),
		zap.Int("dimension", len(snap.Embeddings[0])),
	)

	return &Catalog{
		concepts:   snap.Concepts,
		collection: collection,
		logger:     logger,
	}, nil
}

// Concepts returns all catalog entries in snapshot order. The returned
// slice must not be mutated.
func (c *Catalog) Concepts() []Concept {
	return c.concepts
}

// Nearest returns up to k concepts closest to the query vector by
// cosine similarity, most similar first.
func (c *Catalog) Nearest(ctx context.Context, vector []float32, k int) ([]Neighbor, error) {
	if count := c.collection.Count(); k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := c.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying concepts: %w", err)
	}

	neighbors := make([]Neighbor, 0, len(results))
	for _, res := range results {
		neighbors = append(neighbors, Neighbor{
			Concept: Concept{
				Name:        res.Metadata["name"],
				Description: res.Content,
				Label:       res.Metadata["label"],
			},
			Similarity: res.Similarity,
		})
	}
	return neighbors, nil
}
