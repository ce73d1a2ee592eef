package dkb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInvalidSeed indicates malformed or inconsistent seed data.
var ErrInvalidSeed = errors.New("invalid knowledge base seed")

// Seed JSON schemas. One file per node kind plus a relationships file;
// all references go through ids so names stay free-form.

// SeedPattern is a pattern node.
type SeedPattern struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	PatternType string  `json:"pattern_type"`
	Template    string  `json:"template"`
	Cost        float64 `json:"cost"`
}

// SeedComponent is a concrete technology node.
type SeedComponent struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	License     string   `json:"license"`
	CostModel   string   `json:"cost_model"`
	Tags        []string `json:"tags"`
	TypeID      string   `json:"type_id"`
}

// SeedComponentType is a technology category node.
type SeedComponentType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SeedConcept is a single NFR/Constraint/Domain node.
type SeedConcept struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SeedConcepts groups concepts by label.
type SeedConcepts struct {
	NFRs        []SeedConcept `json:"nfrs"`
	Constraints []SeedConcept `json:"constraints"`
	Domains     []SeedConcept `json:"domains"`
}

// SeedRequirementLink is a Pattern-REQUIRES->ComponentType edge.
type SeedRequirementLink struct {
	PatternID string `json:"pattern_id"`
	TypeID    string `json:"type_id"`
}

// SeedConceptLink is a typed Pattern->Concept edge. RelType is one of
// PROMOTES, HINDERS, SUITS, MEETS_CONSTRAINT.
type SeedConceptLink struct {
	PatternID string `json:"pattern_id"`
	ConceptID string `json:"concept_id"`
	RelType   string `json:"rel_type"`
}

// SeedRelationships groups the edge files.
type SeedRelationships struct {
	RequirementLinks []SeedRequirementLink `json:"requirement_links"`
	ConceptLinks     []SeedConceptLink     `json:"concept_links"`
}

// Seed is the full knowledge base content.
type Seed struct {
	Patterns       []SeedPattern
	Components     []SeedComponent
	ComponentTypes []SeedComponentType
	Concepts       SeedConcepts
	Relationships  SeedRelationships
}

// LoadSeed reads the five seed files from dir.
func LoadSeed(dir string) (*Seed, error) {
	var seed Seed
	files := []struct {
		name string
		dst  any
	}{
		{"patterns.json", &seed.Patterns},
		{"components.json", &seed.Components},
		{"component_types.json", &seed.ComponentTypes},
		{"concepts.json", &seed.Concepts},
		{"relationships.json", &seed.Relationships},
	}
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			return nil, fmt.Errorf("reading seed file %s: %w", f.name, err)
		}
		if err := json.Unmarshal(data, f.dst); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSeed, f.name, err)
		}
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate checks referential integrity of the seed.
func (s *Seed) Validate() error {
	patterns := map[string]bool{}
	for _, p := range s.Patterns {
		if p.ID == "" || p.Name == "" {
			return fmt.Errorf("%w: pattern missing id or name", ErrInvalidSeed)
		}
		if patterns[p.ID] {
			return fmt.Errorf("%w: duplicate pattern id %q", ErrInvalidSeed, p.ID)
		}
		patterns[p.ID] = true
	}

	types := map[string]bool{}
	for _, ct := range s.ComponentTypes {
		types[ct.ID] = true
	}
	for _, c := range s.Components {
		if c.TypeID != "" && !types[c.TypeID] {
			return fmt.Errorf("%w: component %q references unknown type %q", ErrInvalidSeed, c.ID, c.TypeID)
		}
	}

	concepts := map[string]bool{}
	for _, group := range [][]SeedConcept{s.Concepts.NFRs, s.Concepts.Constraints, s.Concepts.Domains} {
		for _, c := range group {
			concepts[c.ID] = true
		}
	}

	for _, link := range s.Relationships.RequirementLinks {
		if !patterns[link.PatternID] {
			return fmt.Errorf("%w: requirement link references unknown pattern %q", ErrInvalidSeed, link.PatternID)
		}
		if !types[link.TypeID] {
			return fmt.Errorf("%w: requirement link references unknown type %q", ErrInvalidSeed, link.TypeID)
		}
	}
	for _, link := range s.Relationships.ConceptLinks {
		if !patterns[link.PatternID] {
			return fmt.Errorf("%w: concept link references unknown pattern %q", ErrInvalidSeed, link.PatternID)
		}
		if !concepts[link.ConceptID] {
			return fmt.Errorf("%w: concept link references unknown concept %q", ErrInvalidSeed, link.ConceptID)
		}
		switch link.RelType {
		case "PROMOTES", "HINDERS", "SUITS", "MEETS_CONSTRAINT":
		default:
			return fmt.Errorf("%w: unknown relationship type %q", ErrInvalidSeed, link.RelType)
		}
	}
	return nil
}
