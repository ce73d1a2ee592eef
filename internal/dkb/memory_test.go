package dkb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/archd/internal/mapper"
)

func testSeed() *Seed {
	return &Seed{
		Patterns: []SeedPattern{
			{ID: "pat_mono", Name: "Modular Monolith", Description: "One deployable unit.", Cost: 1},
			{ID: "pat_micro", Name: "Microservices", Description: "Independent services.", Cost: 4},
			{ID: "pat_sls", Name: "Serverless", Description: "Managed functions.", Cost: 2},
		},
		ComponentTypes: []SeedComponentType{
			{ID: "ct_db", Name: "Database"},
			{ID: "ct_broker", Name: "Message Broker"},
		},
		Components: []SeedComponent{
			{ID: "cmp_pg", Name: "PostgreSQL", License: "PostgreSQL", CostModel: "free", Tags: []string{"sql"}, TypeID: "ct_db"},
			{ID: "cmp_mysql", Name: "MySQL", License: "GPL-2.0", CostModel: "free", TypeID: "ct_db"},
		},
		Concepts: SeedConcepts{
			NFRs: []SeedConcept{
				{ID: "nfr_scal", Name: "Scalability"},
				{ID: "nfr_maint", Name: "Maintainability"},
			},
			Constraints: []SeedConcept{{ID: "con_aws", Name: "AWS"}},
			Domains:     []SeedConcept{{ID: "dom_ecom", Name: "E-Commerce"}},
		},
		Relationships: SeedRelationships{
			RequirementLinks: []SeedRequirementLink{
				{PatternID: "pat_micro", TypeID: "ct_db"},
				{PatternID: "pat_micro", TypeID: "ct_broker"},
			},
			ConceptLinks: []SeedConceptLink{
				{PatternID: "pat_micro", ConceptID: "nfr_scal", RelType: "PROMOTES"},
				{PatternID: "pat_micro", ConceptID: "nfr_maint", RelType: "HINDERS"},
				{PatternID: "pat_micro", ConceptID: "con_aws", RelType: "MEETS_CONSTRAINT"},
				{PatternID: "pat_mono", ConceptID: "nfr_maint", RelType: "PROMOTES"},
				{PatternID: "pat_mono", ConceptID: "nfr_scal", RelType: "HINDERS"},
				{PatternID: "pat_mono", ConceptID: "dom_ecom", RelType: "SUITS"},
				{PatternID: "pat_sls", ConceptID: "nfr_scal", RelType: "PROMOTES"},
			},
		},
	}
}

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	store, err := NewMemoryStore(testSeed(), Weights{}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestRankPatterns_WeightArithmetic(t *testing.T) {
	store := newTestStore(t)

	inputs := mapper.Inputs{
		NFRs:        []string{"Scalability", "Maintainability"},
		Constraints: []string{"AWS"},
		Domains:     []string{"E-Commerce"},
	}
	ranked, err := store.RankPatterns(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	byName := map[string]RankedPattern{}
	for _, r := range ranked {
		byName[r.Pattern] = r
	}

	// 2*promotes - 5*hinders + 1*suits + 3*meets_constraint
	assert.Equal(t, 2-5+0+3, byName["Microservices"].FitScore)
	assert.Equal(t, 2-5+1+0, byName["Modular Monolith"].FitScore)
	assert.Equal(t, 2, byName["Serverless"].FitScore)

	assert.Equal(t, "Serverless", ranked[0].Pattern)
}

func TestRankPatterns_TieBreaks(t *testing.T) {
	store := newTestStore(t)

	// No inputs: every score is zero, so ordering falls back to base
	// cost ascending.
	ranked, err := store.RankPatterns(context.Background(), mapper.Inputs{})
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "Modular Monolith", ranked[0].Pattern)
	assert.Equal(t, "Serverless", ranked[1].Pattern)
	assert.Equal(t, "Microservices", ranked[2].Pattern)
	for _, r := range ranked {
		assert.Zero(t, r.FitScore)
	}
}

func TestRankPatterns_NameTieBreak(t *testing.T) {
	seed := testSeed()
	seed.Patterns = []SeedPattern{
		{ID: "p1", Name: "Beta", Cost: 1},
		{ID: "p2", Name: "Alpha", Cost: 1},
	}
	seed.Relationships = SeedRelationships{}
	store, err := NewMemoryStore(seed, Weights{}, zap.NewNop())
	require.NoError(t, err)

	ranked, err := store.RankPatterns(context.Background(), mapper.Inputs{})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Alpha", ranked[0].Pattern)
	assert.Equal(t, "Beta", ranked[1].Pattern)
}

func TestRankPatterns_LabelMismatchedLinkIgnored(t *testing.T) {
	seed := testSeed()
	// A SUITS edge pointing at an NFR must never contribute to the score.
	seed.Relationships.ConceptLinks = append(seed.Relationships.ConceptLinks,
		SeedConceptLink{PatternID: "pat_sls", ConceptID: "nfr_scal", RelType: "SUITS"})
	store, err := NewMemoryStore(seed, Weights{}, zap.NewNop())
	require.NoError(t, err)

	ranked, err := store.RankPatterns(context.Background(), mapper.Inputs{
		NFRs:    []string{"Scalability"},
		Domains: []string{"Scalability"},
	})
	require.NoError(t, err)
	for _, r := range ranked {
		if r.Pattern == "Serverless" {
			assert.Equal(t, 2, r.FitScore)
		}
	}
}

func TestRankPatterns_Deterministic(t *testing.T) {
	store := newTestStore(t)
	inputs := mapper.Inputs{NFRs: []string{"Scalability"}}

	first, err := store.RankPatterns(context.Background(), inputs)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := store.RankPatterns(context.Background(), inputs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRankPatterns_CustomWeights(t *testing.T) {
	store, err := NewMemoryStore(testSeed(), Weights{Promotes: 10, Hinders: 1, Suits: 1, MeetsConstraint: 1}, zap.NewNop())
	require.NoError(t, err)

	ranked, err := store.RankPatterns(context.Background(), mapper.Inputs{
		NFRs: []string{"Scalability", "Maintainability"},
	})
	require.NoError(t, err)

	byName := map[string]int{}
	for _, r := range ranked {
		byName[r.Pattern] = r.FitScore
	}
	assert.Equal(t, 10-1, byName["Microservices"])
	assert.Equal(t, 10-1, byName["Modular Monolith"])
	assert.Equal(t, 10, byName["Serverless"])
}

func TestStackFor(t *testing.T) {
	store := newTestStore(t)

	stack, err := store.StackFor(context.Background(), "Microservices")
	require.NoError(t, err)
	require.Len(t, stack, 2)

	dbs := stack["Database"]
	require.Len(t, dbs, 2)
	assert.Equal(t, "PostgreSQL", dbs[0].Name)
	assert.Equal(t, []string{"sql"}, dbs[0].Tags)

	// The broker type has no seeded alternatives but still appears.
	brokers, ok := stack["Message Broker"]
	require.True(t, ok)
	assert.Empty(t, brokers)
}

func TestStackFor_UnknownPattern(t *testing.T) {
	store := newTestStore(t)
	stack, err := store.StackFor(context.Background(), "Space Elevator")
	require.NoError(t, err)
	assert.Empty(t, stack)
}

func TestSeedValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, testSeed().Validate())
	})

	t.Run("duplicate pattern id", func(t *testing.T) {
		seed := testSeed()
		seed.Patterns = append(seed.Patterns, seed.Patterns[0])
		assert.ErrorIs(t, seed.Validate(), ErrInvalidSeed)
	})

	t.Run("component with unknown type", func(t *testing.T) {
		seed := testSeed()
		seed.Components = append(seed.Components, SeedComponent{ID: "cmp_x", Name: "X", TypeID: "ct_missing"})
		assert.ErrorIs(t, seed.Validate(), ErrInvalidSeed)
	})

	t.Run("concept link to unknown pattern", func(t *testing.T) {
		seed := testSeed()
		seed.Relationships.ConceptLinks = append(seed.Relationships.ConceptLinks,
			SeedConceptLink{PatternID: "pat_ghost", ConceptID: "nfr_scal", RelType: "PROMOTES"})
		assert.ErrorIs(t, seed.Validate(), ErrInvalidSeed)
	})

	t.Run("unknown relationship type", func(t *testing.T) {
		seed := testSeed()
		seed.Relationships.ConceptLinks = append(seed.Relationships.ConceptLinks,
			SeedConceptLink{PatternID: "pat_mono", ConceptID: "nfr_scal", RelType: "LOVES"})
		assert.ErrorIs(t, seed.Validate(), ErrInvalidSeed)
	})
}

func TestLoadSeed(t *testing.T) {
	seed, err := LoadSeed("testdata/seed")
	require.NoError(t, err)

	assert.Len(t, seed.Patterns, 2)
	assert.Len(t, seed.ComponentTypes, 1)
	assert.Len(t, seed.Components, 1)
	assert.Len(t, seed.Concepts.NFRs, 1)
	assert.Len(t, seed.Relationships.ConceptLinks, 1)
}

func TestLoadSeed_MissingDir(t *testing.T) {
	_, err := LoadSeed("testdata/nope")
	assert.Error(t, err)
}
