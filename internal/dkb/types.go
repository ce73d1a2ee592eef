// Package dkb is the design knowledge base: a graph of architecture
// patterns, the concepts they promote/hinder/suit/meet, and the
// component types they require. It ranks patterns against mapped
// concept sets with an additive weighted score.
//
// Two backends implement the Store interface: an in-memory graph
// loaded from seed JSON files, and a Neo4j database queried live.
package dkb

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/archd/internal/mapper"
)

// ErrNotInitialized indicates the knowledge base is missing or
// unreachable. Callers surface this as a "not ready" condition, not a
// server fault.
var ErrNotInitialized = errors.New("design knowledge base not initialized")

// RankedPattern is one scored pattern in the total order.
type RankedPattern struct {
	Pattern     string  `json:"pattern"`
	Description string  `json:"description"`
	FitScore    int     `json:"fitScore"`
	BaseCost    float64 `json:"baseCost"`
}

// ComponentOption is one concrete technology that implements a
// required component type.
type ComponentOption struct {
	Name      string   `json:"name"`
	License   string   `json:"license"`
	CostModel string   `json:"cost_model"`
	Tags      []string `json:"tags"`
}

// Stack maps each required component type of a pattern to its known
// alternatives. A required type with no known components maps to an
// empty list.
type Stack map[string][]ComponentOption

// Weights are the scoring coefficients. The defaults (2, 5, 1, 3) are
// part of the output contract.
type Weights struct {
	Promotes        int
	Hinders         int
	Suits           int
	MeetsConstraint int
}

// DefaultWeights returns the contract scoring coefficients.
func DefaultWeights() Weights {
	return Weights{Promotes: 2, Hinders: 5, Suits: 1, MeetsConstraint: 3}
}

// Store ranks patterns and resolves component stacks.
type Store interface {
	// RankPatterns scores every pattern against the mapped inputs and
	// returns the total order: fitScore descending, then baseCost
	// ascending, then name ascending. An empty graph yields an empty
	// slice, not an error.
	RankPatterns(ctx context.Context, inputs mapper.Inputs) ([]RankedPattern, error)

	// StackFor resolves the required component types of a pattern and
	// their alternative implementations.
	StackFor(ctx context.Context, pattern string) (Stack, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
