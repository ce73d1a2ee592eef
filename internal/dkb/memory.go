package dkb

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/archd/internal/mapper"
)

// conceptLabel distinguishes the node kind a concept edge targets. The
// scoring pass only counts an edge when the target carries the label
// the relationship type is defined for, mirroring the typed label
// matches of the graph query.
type conceptLabel int

const (
	labelNFR conceptLabel = iota
	labelConstraint
	labelDomain
)

type memPattern struct {
	name        string
	description string
	baseCost    float64
	// concept names per relationship type, label-checked at build time
	promotes    []string
	hinders     []string
	suits       []string
	meets       []string
	requiredIDs []string
}

// MemoryStore is the embedded knowledge base backend, built once from
// seed data and read-only afterwards.
type MemoryStore struct {
	patterns   []memPattern
	typeNames  map[string]string            // type id -> name
	components map[string][]ComponentOption // type id -> alternatives
	weights    Weights
	logger     *zap.Logger
}

// NewMemoryStore builds the in-memory graph from a seed.
func NewMemoryStore(seed *Seed, weights Weights, logger *zap.Logger) (*MemoryStore, error) {
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conceptNames := map[string]string{}
	conceptLabels := map[string]conceptLabel{}
	for _, c := range seed.Concepts.NFRs {
		conceptNames[c.ID] = c.Name
		conceptLabels[c.ID] = labelNFR
	}
	for _, c := range seed.Concepts.Constraints {
		conceptNames[c.ID] = c.Name
		conceptLabels[c.ID] = labelConstraint
	}
	for _, c := range seed.Concepts.Domains {
		conceptNames[c.ID] = c.Name
		conceptLabels[c.ID] = labelDomain
	}

	byID := map[string]*memPattern{}
	patterns := make([]memPattern, 0, len(seed.Patterns))
	for _, p := range seed.Patterns {
		patterns = append(patterns, memPattern{
			name:        p.Name,
			description: p.Description,
			baseCost:    p.Cost,
		})
	}
	for i, p := range seed.Patterns {
		byID[p.ID] = &patterns[i]
	}

	for _, link := range seed.Relationships.ConceptLinks {
		pat := byID[link.PatternID]
		name := conceptNames[link.ConceptID]
		label := conceptLabels[link.ConceptID]
		switch {
		case link.RelType == "PROMOTES" && label == labelNFR:
			pat.promotes = append(pat.promotes, name)
		case link.RelType == "HINDERS" && label == labelNFR:
			pat.hinders = append(pat.hinders, name)
		case link.RelType == "SUITS" && label == labelDomain:
			pat.suits = append(pat.suits, name)
		case link.RelType == "MEETS_CONSTRAINT" && label == labelConstraint:
			pat.meets = append(pat.meets, name)
		}
	}
	for _, link := range seed.Relationships.RequirementLinks {
		byID[link.PatternID].requiredIDs = append(byID[link.PatternID].requiredIDs, link.TypeID)
	}

	typeNames := map[string]string{}
	for _, ct := range seed.ComponentTypes {
		typeNames[ct.ID] = ct.Name
	}
	components := map[string][]ComponentOption{}
	for _, c := range seed.Components {
		if c.TypeID == "" {
			continue
		}
		tags := c.Tags
		if tags == nil {
			tags = []string{}
		}
		components[c.TypeID] = append(components[c.TypeID], ComponentOption{
			Name:      c.Name,
			License:   c.License,
			CostModel: c.CostModel,
			Tags:      tags,
		})
	}

	logger.Info("knowledge base loaded",
		zap.Int("patterns", len(patterns)),
		zap.Int("component_types", len(typeNames)),
		zap.Int("components", len(seed.Components)),
	)

	return &MemoryStore{
		patterns:   patterns,
		typeNames:  typeNames,
		components: components,
		weights:    weights,
		logger:     logger,
	}, nil
}

// RankPatterns scores every pattern against the mapped inputs.
func (s *MemoryStore) RankPatterns(_ context.Context, inputs mapper.Inputs) ([]RankedPattern, error) {
	nfrs := toSet(inputs.NFRs)
	constraints := toSet(inputs.Constraints)
	domains := toSet(inputs.Domains)

	ranked := make([]RankedPattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		score := s.weights.Promotes*countIn(p.promotes, nfrs) -
			s.weights.Hinders*countIn(p.hinders, nfrs) +
			s.weights.Suits*countIn(p.suits, domains) +
			s.weights.MeetsConstraint*countIn(p.meets, constraints)
		ranked = append(ranked, RankedPattern{
			Pattern:     p.name,
			Description: p.description,
			FitScore:    score,
			BaseCost:    p.baseCost,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FitScore != ranked[j].FitScore {
			return ranked[i].FitScore > ranked[j].FitScore
		}
		if ranked[i].BaseCost != ranked[j].BaseCost {
			return ranked[i].BaseCost < ranked[j].BaseCost
		}
		return ranked[i].Pattern < ranked[j].Pattern
	})
	return ranked, nil
}

// StackFor resolves required component types and their alternatives
// for the named pattern.
func (s *MemoryStore) StackFor(_ context.Context, pattern string) (Stack, error) {
	stack := Stack{}
	for _, p := range s.patterns {
		if p.name != pattern {
			continue
		}
		for _, typeID := range p.requiredIDs {
			options := s.components[typeID]
			if options == nil {
				options = []ComponentOption{}
			}
			stack[s.typeNames[typeID]] = options
		}
		return stack, nil
	}
	return stack, nil
}

// Close is a no-op for the embedded backend.
func (s *MemoryStore) Close(context.Context) error {
	return nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func countIn(names []string, set map[string]bool) int {
	n := 0
	for _, name := range names {
		if set[name] {
			n++
		}
	}
	return n
}
