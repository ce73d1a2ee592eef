// Package mapper projects a requirements analysis onto the fixed
// vocabulary of knowledge-base concepts. Two complementary strategies
// run per request and their results are unioned: exact keyword
// containment of concept names, and nearest-neighbor similarity over
// embedding vectors.
package mapper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/archd/internal/catalog"
	"github.com/fyrsmithlabs/archd/internal/requirements"
)

// Inputs are the mapped concept-name sets handed to the pattern ranker.
type Inputs struct {
	NFRs        []string `json:"nfrs"`
	Constraints []string `json:"constraints"`
	Domains     []string `json:"domains"`
}

// Embedder is the subset of the embeddings provider the mapper needs.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ConceptIndex is the catalog surface the mapper consumes.
type ConceptIndex interface {
	Concepts() []catalog.Concept
	Nearest(ctx context.Context, vector []float32, k int) ([]catalog.Neighbor, error)
}

// Config tunes the vector strategy. The defaults are part of the
// output contract; change them only with revalidated fixtures.
type Config struct {
	// SimilarityThreshold is the minimum cosine similarity for a vector
	// match. Default 0.25.
	SimilarityThreshold float32
	// TopK is how many nearest concepts are considered per snippet.
	// Default 3.
	TopK int
}

// Mapper maps analysis text onto concept buckets.
type Mapper struct {
	index    ConceptIndex
	embedder Embedder
	cfg      Config
	logger   *zap.Logger
}

// New wires the mapper to a concept index and an embedder.
func New(index ConceptIndex, embedder Embedder, cfg Config, logger *zap.Logger) *Mapper {
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.25
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{index: index, embedder: embedder, cfg: cfg, logger: logger}
}

// Map derives the three concept sets from an analysis. Empty input
// yields three empty sets without touching the embedding model.
func (m *Mapper) Map(ctx context.Context, analysis *requirements.Analysis) (Inputs, error) {
	buckets := newBuckets()
	snippets := snippetsOf(analysis)
	if len(snippets) == 0 {
		return buckets.inputs(), nil
	}

	m.matchKeywords(snippets, buckets)
	if err := m.matchVectors(ctx, snippets, buckets); err != nil {
		return Inputs{}, err
	}

	inputs := buckets.inputs()
	m.logger.Debug("mapped analysis onto concepts",
		zap.Int("snippets", len(snippets)),
		zap.Int("nfrs", len(inputs.NFRs)),
		zap.Int("constraints", len(inputs.Constraints)),
		zap.Int("domains", len(inputs.Domains)),
	)
	return inputs, nil
}

// snippetsOf collects the text fragments worth mapping: the summary and
// every requirement/constraint sentence.
func snippetsOf(analysis *requirements.Analysis) []string {
	var snippets []string
	add := func(s string) {
		if strings.TrimSpace(s) != "" {
			snippets = append(snippets, s)
		}
	}
	add(analysis.Summary)
	for _, fr := range analysis.FunctionalRequirements {
		add(fr.Text)
	}
	for _, nfr := range analysis.NonFunctionalRequirements {
		add(nfr.Text)
	}
	for _, c := range analysis.Constraints {
		add(c.Text)
	}
	return snippets
}

func (m *Mapper) matchKeywords(snippets []string, buckets *conceptBuckets) {
	lowered := make([]string, len(snippets))
	for i, s := range snippets {
		lowered[i] = strings.ToLower(s)
	}
	for _, concept := range m.index.Concepts() {
		name := strings.ToLower(concept.Name)
		for _, snippet := range lowered {
			if strings.Contains(snippet, name) {
				buckets.add(concept.Label, concept.Name)
				break
			}
		}
	}
}

func (m *Mapper) matchVectors(ctx context.Context, snippets []string, buckets *conceptBuckets) error {
	for _, snippet := range snippets {
		vector, err := m.embedder.EmbedQuery(ctx, snippet)
		if err != nil {
			return fmt.Errorf("embedding snippet: %w", err)
		}
		neighbors, err := m.index.Nearest(ctx, vector, m.cfg.TopK)
		if err != nil {
			return fmt.Errorf("matching snippet: %w", err)
		}
		for _, n := range neighbors {
			if n.Similarity >= m.cfg.SimilarityThreshold {
				buckets.add(n.Concept.Label, n.Concept.Name)
			}
		}
	}
	return nil
}

// conceptBuckets accumulates deduplicated concept names per bucket.
type conceptBuckets struct {
	nfrs        map[string]bool
	constraints map[string]bool
	domains     map[string]bool
}

func newBuckets() *conceptBuckets {
	return &conceptBuckets{
		nfrs:        map[string]bool{},
		constraints: map[string]bool{},
		domains:     map[string]bool{},
	}
}

// add routes a concept into its bucket by label. Unknown labels are
// ignored.
func (b *conceptBuckets) add(label, name string) {
	switch strings.ToLower(label) {
	case "nfr", "quality_attribute", "quality":
		b.nfrs[name] = true
	case "constraint", "technical_constraint":
		b.constraints[name] = true
	case "domain", "industry", "system_type":
		b.domains[name] = true
	}
}

func (b *conceptBuckets) inputs() Inputs {
	return Inputs{
		NFRs:        sortedKeys(b.nfrs),
		Constraints: sortedKeys(b.constraints),
		Domains:     sortedKeys(b.domains),
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
