// Package requirements turns free-form requirements prose into a
// structured analysis: functional and non-functional requirements,
// constraints, actors, domain entities, relationships, business rules,
// and a confidence score.
package requirements

// Priority levels assigned to extracted requirements.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// FunctionalRequirement is a behavior the system must exhibit.
type FunctionalRequirement struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

// NonFunctionalRequirement is a quality attribute, optionally with an
// extracted numeric target (e.g. value "200", unit "ms").
type NonFunctionalRequirement struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Value    string `json:"value,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Priority string `json:"priority"`
}

// Constraint restricts the solution space: a required technology,
// compliance standard, or deployment target.
type Constraint struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	Mandatory bool   `json:"mandatory"`
}

// Entity is a domain object mentioned in the text.
type Entity struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Attributes []string `json:"attributes"`
}

// Relationship links two actors/entities through a typed verb relation.
type Relationship struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// BusinessRule is a conditional or policy statement.
type BusinessRule struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Analysis is the aggregate result of one analysis pass. Immutable once
// returned.
type Analysis struct {
	Summary                   string                     `json:"summary"`
	FunctionalRequirements    []FunctionalRequirement    `json:"functional_requirements"`
	NonFunctionalRequirements []NonFunctionalRequirement `json:"non_functional_requirements"`
	Constraints               []Constraint               `json:"constraints"`
	Actors                    []string                   `json:"actors"`
	Entities                  []Entity                   `json:"entities"`
	Relationships             []Relationship             `json:"relationships"`
	BusinessRules             []BusinessRule             `json:"business_rules"`
	TechnologiesMentioned     []string                   `json:"technologies_mentioned"`
	Confidence                float64                    `json:"confidence"`
	RawInput                  string                     `json:"raw_input"`
}
