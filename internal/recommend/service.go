// Package recommend orchestrates the knowledge-base query stage: map a
// requirements analysis onto concepts, rank patterns, and resolve the
// component stack for the winner.
package recommend

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/archd/internal/dkb"
	"github.com/fyrsmithlabs/archd/internal/mapper"
	"github.com/fyrsmithlabs/archd/internal/requirements"
)

// ErrNotInitialized indicates the mapper or the knowledge base is not
// available. Distinct from an empty ranking, which is a valid result.
var ErrNotInitialized = errors.New("recommendation pipeline not initialized")

// TopChoiceStack is the resolved component stack for the top pattern.
type TopChoiceStack struct {
	Pattern    string    `json:"pattern"`
	Components dkb.Stack `json:"components"`
}

// Recommendation is the ranked output. TopChoiceStack is null when the
// graph holds no patterns; callers must treat that as "no
// recommendation possible", not an error.
type Recommendation struct {
	RankedPatterns []dkb.RankedPattern `json:"ranked_patterns"`
	TopChoiceStack *TopChoiceStack     `json:"top_choice_stack"`
	MappedInputs   mapper.Inputs       `json:"mapped_inputs"`
}

// ConceptMapper maps an analysis onto concept sets.
type ConceptMapper interface {
	Map(ctx context.Context, analysis *requirements.Analysis) (mapper.Inputs, error)
}

// Service runs the two knowledge-base stages.
type Service struct {
	mapper ConceptMapper
	store  dkb.Store
	logger *zap.Logger
}

// NewService wires the service. Either dependency may be nil when its
// backing resource failed to load; Recommend then reports
// ErrNotInitialized.
func NewService(conceptMapper ConceptMapper, store dkb.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{mapper: conceptMapper, store: store, logger: logger}
}

// Ready reports whether both stages have their backing resources.
func (s *Service) Ready() bool {
	return s.mapper != nil && s.store != nil
}

// Recommend maps the analysis and ranks patterns against it.
func (s *Service) Recommend(ctx context.Context, analysis *requirements.Analysis) (*Recommendation, error) {
	if !s.Ready() {
		return nil, ErrNotInitialized
	}

	inputs, err := s.mapper.Map(ctx, analysis)
	if err != nil {
		return nil, err
	}

	ranked, err := s.store.RankPatterns(ctx, inputs)
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{
		RankedPatterns: ranked,
		MappedInputs:   inputs,
	}
	if len(ranked) == 0 {
		s.logger.Info("no patterns in knowledge base, returning empty recommendation")
		return rec, nil
	}

	top := ranked[0].Pattern
	stack, err := s.store.StackFor(ctx, top)
	if err != nil {
		return nil, err
	}
	rec.TopChoiceStack = &TopChoiceStack{Pattern: top, Components: stack}

	s.logger.Info("recommendation computed",
		zap.String("top_pattern", top),
		zap.Int("candidates", len(ranked)),
	)
	return rec, nil
}
