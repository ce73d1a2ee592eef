package dkb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/archd/internal/mapper"
)

// Neo4jConfig holds connection settings for the graph backend.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jStore queries a live Neo4j graph. Each ranking request runs its
// own read session; the store itself holds no mutable state.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	weights  Weights
	logger   *zap.Logger
}

// NewNeo4jStore connects to the graph and verifies connectivity. A
// failure wraps ErrNotInitialized so callers can report "not ready"
// instead of a fault.
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig, weights Weights, logger *zap.Logger) (*Neo4jStore, error) {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: creating driver: %v", ErrNotInitialized, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	logger.Info("connected to graph database", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))

	return &Neo4jStore{
		driver:   driver,
		database: cfg.Database,
		weights:  weights,
		logger:   logger,
	}, nil
}

// rankingQuery scores matches additively instead of filtering, so a
// pattern meeting only some constraints still surfaces, ranked below
// one meeting all of them.
const rankingQuery = `
WITH $nfrs AS nfrs, $constraints AS constraints, $domains AS domains
MATCH (p:Pattern)
WITH p, p.cost AS baseCost, nfrs, constraints, domains

OPTIONAL MATCH (p)-[:PROMOTES]->(n:NFR) WHERE n.name IN nfrs
WITH p, baseCost, nfrs, constraints, domains, count(n) * $wPromotes AS promoteScore

OPTIONAL MATCH (p)-[:HINDERS]->(n:NFR) WHERE n.name IN nfrs
WITH p, baseCost, nfrs, constraints, domains, promoteScore, count(n) * $wHinders AS hinderScore

OPTIONAL MATCH (p)-[:SUITS]->(d:Domain) WHERE d.name IN domains
WITH p, baseCost, nfrs, constraints, domains, promoteScore, hinderScore, count(d) * $wSuits AS domainScore

OPTIONAL MATCH (p)-[:MEETS_CONSTRAINT]->(c:Constraint) WHERE c.name IN constraints
WITH p, baseCost, promoteScore, hinderScore, domainScore, count(c) * $wMeets AS constraintScore

WITH p, baseCost, (promoteScore + domainScore + constraintScore - hinderScore) AS fitScore
RETURN p.name AS pattern, p.description AS description, fitScore, baseCost
ORDER BY fitScore DESC, baseCost ASC, pattern ASC
`

// RankPatterns executes the weighted scoring query.
func (s *Neo4jStore) RankPatterns(ctx context.Context, inputs mapper.Inputs) ([]RankedPattern, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	params := map[string]any{
		"nfrs":        asAnySlice(inputs.NFRs),
		"constraints": asAnySlice(inputs.Constraints),
		"domains":     asAnySlice(inputs.Domains),
		"wPromotes":   s.weights.Promotes,
		"wHinders":    s.weights.Hinders,
		"wSuits":      s.weights.Suits,
		"wMeets":      s.weights.MeetsConstraint,
	}

	result, err := session.Run(ctx, rankingQuery, params)
	if err != nil {
		return nil, fmt.Errorf("ranking patterns: %w", err)
	}

	var ranked []RankedPattern
	for result.Next(ctx) {
		record := result.Record()
		rp := RankedPattern{}
		if v, ok := record.Get("pattern"); ok {
			rp.Pattern, _ = v.(string)
		}
		if v, ok := record.Get("description"); ok {
			rp.Description, _ = v.(string)
		}
		if v, ok := record.Get("fitScore"); ok {
			rp.FitScore = int(asInt64(v))
		}
		if v, ok := record.Get("baseCost"); ok {
			rp.BaseCost = asFloat64(v)
		}
		ranked = append(ranked, rp)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("ranking patterns: %w", err)
	}
	if ranked == nil {
		ranked = []RankedPattern{}
	}
	return ranked, nil
}

const stackQuery = `
MATCH (p:Pattern {name: $pattern})-[:REQUIRES]->(ct:ComponentType)
OPTIONAL MATCH (ct)<-[:IS_A]-(c:Component)
RETURN ct.name AS componentType,
       collect({name: c.name, license: c.license, cost_model: c.cost_model, tags: c.tags}) AS alternatives
`

// StackFor resolves the component stack for the named pattern.
func (s *Neo4jStore) StackFor(ctx context.Context, pattern string) (Stack, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, stackQuery, map[string]any{"pattern": pattern})
	if err != nil {
		return nil, fmt.Errorf("resolving stack: %w", err)
	}

	stack := Stack{}
	for result.Next(ctx) {
		record := result.Record()
		typeName := ""
		if v, ok := record.Get("componentType"); ok {
			typeName, _ = v.(string)
		}
		options := []ComponentOption{}
		if v, ok := record.Get("alternatives"); ok {
			raw, _ := v.([]any)
			for _, item := range raw {
				m, _ := item.(map[string]any)
				if m == nil || m["name"] == nil {
					// OPTIONAL MATCH with no component yields a row of nulls.
					continue
				}
				options = append(options, ComponentOption{
					Name:      asString(m["name"]),
					License:   asString(m["license"]),
					CostModel: asString(m["cost_model"]),
					Tags:      asStringSlice(m["tags"]),
				})
			}
		}
		stack[typeName] = options
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("resolving stack: %w", err)
	}
	return stack, nil
}

// Seed replaces the graph content with the given seed. Used by the
// seeding tool, not the server.
func (s *Neo4jStore) Seed(ctx context.Context, seed *Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
			return nil, err
		}

		for _, p := range seed.Patterns {
			_, err := tx.Run(ctx, `
				MERGE (pat:Pattern {id: $id})
				SET pat.name = $name, pat.description = $description,
				    pat.pattern_type = $patternType, pat.template = $template,
				    pat.cost = $cost`,
				map[string]any{
					"id": p.ID, "name": p.Name, "description": p.Description,
					"patternType": p.PatternType, "template": p.Template, "cost": p.Cost,
				})
			if err != nil {
				return nil, err
			}
		}
		for _, ct := range seed.ComponentTypes {
			_, err := tx.Run(ctx, `
				MERGE (ct:ComponentType {id: $id})
				SET ct.name = $name, ct.description = $description`,
				map[string]any{"id": ct.ID, "name": ct.Name, "description": ct.Description})
			if err != nil {
				return nil, err
			}
		}
		for _, c := range seed.Components {
			_, err := tx.Run(ctx, `
				MERGE (comp:Component {id: $id})
				SET comp.name = $name, comp.description = $description,
				    comp.license = $license, comp.cost_model = $costModel,
				    comp.tags = $tags`,
				map[string]any{
					"id": c.ID, "name": c.Name, "description": c.Description,
					"license": c.License, "costModel": c.CostModel, "tags": c.Tags,
				})
			if err != nil {
				return nil, err
			}
			if c.TypeID != "" {
				_, err := tx.Run(ctx, `
					MATCH (c:Component {id: $cid})
					MATCH (ct:ComponentType {id: $tid})
					MERGE (c)-[:IS_A]->(ct)`,
					map[string]any{"cid": c.ID, "tid": c.TypeID})
				if err != nil {
					return nil, err
				}
			}
		}

		conceptGroups := []struct {
			label    string
			concepts []SeedConcept
		}{
			{"NFR", seed.Concepts.NFRs},
			{"Constraint", seed.Concepts.Constraints},
			{"Domain", seed.Concepts.Domains},
		}
		for _, group := range conceptGroups {
			for _, c := range group.concepts {
				// Labels cannot be parameterized; group.label comes from
				// the fixed list above.
				query := fmt.Sprintf(`MERGE (n:%s {id: $id}) SET n.name = $name, n.description = $description`, group.label)
				_, err := tx.Run(ctx, query, map[string]any{"id": c.ID, "name": c.Name, "description": c.Description})
				if err != nil {
					return nil, err
				}
			}
		}

		for _, link := range seed.Relationships.RequirementLinks {
			_, err := tx.Run(ctx, `
				MATCH (p:Pattern {id: $pid})
				MATCH (ct:ComponentType {id: $tid})
				MERGE (p)-[:REQUIRES]->(ct)`,
				map[string]any{"pid": link.PatternID, "tid": link.TypeID})
			if err != nil {
				return nil, err
			}
		}
		for _, link := range seed.Relationships.ConceptLinks {
			// RelType is validated against the closed set in Validate.
			query := fmt.Sprintf(`
				MATCH (p:Pattern {id: $pid})
				MATCH (c {id: $cid})
				MERGE (p)-[:%s]->(c)`, link.RelType)
			_, err := tx.Run(ctx, query, map[string]any{"pid": link.PatternID, "cid": link.ConceptID})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("seeding graph: %w", err)
	}

	s.logger.Info("graph seeded",
		zap.Int("patterns", len(seed.Patterns)),
		zap.Int("components", len(seed.Components)),
	)
	return nil
}

// Close shuts down the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func asAnySlice(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
