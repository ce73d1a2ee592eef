package recommend

import (
	"strings"

	"github.com/fyrsmithlabs/archd/internal/requirements"
)

// MissingConstraint reports a constraint the narrative does not cover.
type MissingConstraint struct {
	Constraint string   `json:"constraint"`
	Keywords   []string `json:"keywords"`
}

// ValidationResult summarizes a narrative check.
type ValidationResult struct {
	Valid              bool                `json:"valid"`
	MissingConstraints []MissingConstraint `json:"missing_constraints"`
	Notes              []string            `json:"notes"`
}

// ValidateNarrative checks that a generated architecture narrative
// mentions every extracted hard constraint (deployment platform,
// compliance standard, required technology) and is long enough to be a
// complete proposal.
func ValidateNarrative(analysis *requirements.Analysis, narrative string) ValidationResult {
	result := ValidationResult{
		MissingConstraints: []MissingConstraint{},
		Notes:              []string{},
	}
	lowered := strings.ToLower(narrative)

	for _, c := range analysis.Constraints {
		keywords := constraintKeywords(c)
		if len(keywords) > 0 {
			if !containsAnyFold(lowered, keywords) {
				result.MissingConstraints = append(result.MissingConstraints, MissingConstraint{
					Constraint: c.Text,
					Keywords:   keywords,
				})
			}
		} else if c.Text != "" && !strings.Contains(lowered, strings.ToLower(c.Text)) {
			result.MissingConstraints = append(result.MissingConstraints, MissingConstraint{
				Constraint: c.Text,
				Keywords:   []string{},
			})
		}
	}

	if len(narrative) < 50 {
		result.Notes = append(result.Notes, "Recommendation appears too short to be a complete architecture.")
	}

	result.Valid = len(result.MissingConstraints) == 0 && len(result.Notes) == 0
	return result
}

// constraintKeywords derives short probe words from a constraint's
// value, text, and type fields.
func constraintKeywords(c requirements.Constraint) []string {
	var keywords []string
	for _, field := range []string{c.Value, c.Text, c.Type} {
		for _, word := range strings.Fields(field) {
			if word = strings.TrimSpace(word); len(word) > 2 {
				keywords = append(keywords, word)
			}
		}
	}
	return keywords
}

func containsAnyFold(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
