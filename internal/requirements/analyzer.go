package requirements

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/archd/internal/nlp"
)

// Classification vocabularies. Category rules are ordered slices, not
// maps: the first matching category wins and that order is part of the
// output contract.

type categoryRule struct {
	category string
	keywords []string
}

var nfrRules = []categoryRule{
	{"performance", []string{"latency", "response time", "throughput", "speed", "fast", "milliseconds", "seconds", "performance"}},
	{"scalability", []string{"concurrent", "scale", "load", "traffic", "requests per second", "rps", "capacity"}},
	{"security", []string{"secure", "encryption", "authentication", "authorization", "ssl", "tls", "gdpr", "compliance", "security"}},
	{"availability", []string{"uptime", "available", "24/7", "downtime", "reliability", "sla", "availability"}},
	{"usability", []string{"user-friendly", "intuitive", "easy to use", "ux", "ui", "usability"}},
	{"maintainability", []string{"maintainable", "modular", "extensible", "upgradable", "maintainability"}},
	{"portability", []string{"cross-platform", "mobile", "web", "desktop", "portability"}},
}

var constraintRules = []categoryRule{
	{"technology", []string{"must use", "built with", "using", "powered by", "based on"}},
	{"compliance", []string{"comply", "compliant", "gdpr", "hipaa", "pci", "regulation", "standard"}},
	{"deployment", []string{"deploy", "deployed", "host", "hosted"}},
}

var relationshipRules = []categoryRule{
	{"requests", []string{"request", "ask for", "order", "book"}},
	{"manages", []string{"manage", "control", "administer", "supervise"}},
	{"processes", []string{"process", "handle", "execute", "perform"}},
	{"contains", []string{"contain", "include", "have", "consist of"}},
	{"uses", []string{"use", "utilize", "employ"}},
	{"creates", []string{"create", "generate", "produce", "add"}},
	{"views", []string{"view", "see", "display", "show", "browse"}},
	{"accepts", []string{"accept", "receive", "take"}},
	{"rates", []string{"rate", "review", "evaluate"}},
}

var (
	functionalKeywords = []string{"can", "should", "shall", "will", "able to", "allow", "enable", "provide"}

	actionVerbs = map[string]bool{
		"request": true, "accept": true, "view": true, "create": true,
		"delete": true, "update": true, "add": true, "remove": true,
		"send": true, "receive": true, "book": true, "cancel": true,
		"rate": true, "review": true, "search": true, "filter": true,
		"browse": true, "select": true, "submit": true, "approve": true,
		"reject": true,
	}

	roleNouns = map[string]bool{
		"user": true, "admin": true, "customer": true, "driver": true,
		"manager": true, "client": true, "seller": true, "buyer": true,
		"guest": true, "member": true, "owner": true, "operator": true,
		"employee": true, "staff": true,
	}

	domainNouns = map[string]bool{
		"ride": true, "user": true, "driver": true, "order": true,
		"payment": true, "booking": true, "product": true, "service": true,
		"account": true, "profile": true, "reservation": true,
		"transaction": true, "request": true, "review": true,
		"rating": true, "history": true,
	}

	excludedEntityNouns = map[string]bool{
		"application": true, "system": true, "latency": true,
		"processing": true, "matching": true,
	}

	excludedAttributeAdjectives = map[string]bool{"concurrent": true, "intercity": true}

	ruleIndicators = []string{"if", "when", "only", "rule", "policy", "unless", "except", "condition"}

	techKeywords = []string{
		"aws", "azure", "gcp", "stripe", "paypal", "react", "angular",
		"vue", "python", "java", "node", "docker", "kubernetes", "mysql",
		"postgresql", "mongodb", "redis", "kafka", "rabbitmq", "graphql",
		"rest",
	}

	constraintTechnologies = []string{
		"stripe", "paypal", "aws", "azure", "gcp", "react", "angular",
		"vue", "python", "java", "node", "mysql", "postgresql", "mongodb",
	}
	complianceStandards = []string{"gdpr", "hipaa", "pci", "sox", "iso"}
	deploymentPlatforms = []string{"aws", "azure", "gcp", "heroku", "vercel", "netlify", "on-premise", "cloud"}

	summaryTechMentions = map[string]bool{
		"aws": true, "stripe": true, "gdpr": true, "azure": true, "gcp": true,
	}

	acronymTech = map[string]bool{"aws": true, "gcp": true, "api": true}

	strongConstraintMarkers = []string{"must use", "deployed on", "built with", "powered by"}
	namedStandards          = []string{"gdpr", "hipaa", "pci"}
)

// The unit vocabulary accepted by these expressions is a compatibility
// contract; comma-grouped digits are normalized by stripping separators.
var (
	numericUnitRe     = regexp.MustCompile(`(?i)(\d+(?:,\d+)*(?:\.\d+)?)\s*(%|ms|seconds?|minutes?|hours?|days?|users?|requests?|rpm|qps)`)
	numericConcurrRe  = regexp.MustCompile(`(?i)(\d+(?:,\d+)*(?:\.\d+)?)\s*(concurrent(?:ly)?|simultaneous(?:ly)?)`)
	metricPresenceRe  = regexp.MustCompile(`(?i)\d+\s*(ms|seconds?|%|users?|concurrent)`)
	highPriorityWords = []string{"critical", "must", "essential", "required", "shall"}
	medPriorityWords  = []string{"should", "important"}
)

// Config bounds the analyzer's output sizes.
type Config struct {
	MaxEntities      int
	MaxRelationships int
}

// Analyzer synthesizes a structured Analysis from annotated text. Safe
// for concurrent use: it holds only read-only configuration and the
// shared annotator.
type Analyzer struct {
	annotator *nlp.Annotator
	cfg       Config
}

// NewAnalyzer wires the analyzer to a linguistic annotator.
func NewAnalyzer(annotator *nlp.Annotator, cfg Config) *Analyzer {
	if cfg.MaxEntities <= 0 {
		cfg.MaxEntities = 10
	}
	if cfg.MaxRelationships <= 0 {
		cfg.MaxRelationships = 15
	}
	return &Analyzer{annotator: annotator, cfg: cfg}
}

// Analyze extracts the structured requirements record from text. The
// context string is accepted for forward compatibility and does not
// influence classification.
func (a *Analyzer) Analyze(text, _ string) (*Analysis, error) {
	doc, err := a.annotator.Annotate(text)
	if err != nil {
		return nil, fmt.Errorf("analyzing requirements: %w", err)
	}

	functional := a.extractFunctional(doc)
	nonFunctional := a.extractNonFunctional(doc)
	actors := a.extractActors(doc)
	entities := a.extractEntities(doc)

	out := &Analysis{
		Summary:                   a.summarize(doc),
		FunctionalRequirements:    functional,
		NonFunctionalRequirements: nonFunctional,
		Constraints:               a.extractConstraints(doc),
		Actors:                    actors,
		Entities:                  entities,
		Relationships:             a.extractRelationships(doc, actors, entities),
		BusinessRules:             a.extractBusinessRules(doc),
		TechnologiesMentioned:     a.extractTechnologies(doc),
		Confidence:                a.confidence(doc, len(functional), len(nonFunctional)),
		RawInput:                  text,
	}
	return out, nil
}

func (a *Analyzer) summarize(doc *nlp.Document) string {
	var parts []string
	if len(doc.Sentences) > 0 {
		parts = append(parts, doc.Sentences[0].Text)
	}

	var mentions []string
	seen := map[string]bool{}
	for _, sent := range doc.Sentences {
		for _, tok := range sent.Tokens {
			low := strings.ToLower(tok.Text)
			if tok.Tag == nlp.ProperN && summaryTechMentions[low] && !seen[tok.Text] {
				seen[tok.Text] = true
				mentions = append(mentions, tok.Text)
			}
		}
	}
	if len(mentions) > 0 {
		parts = append(parts, strings.Join(mentions, ", "))
	}

	summary := strings.Join(parts, ". ")
	if runes := []rune(summary); len(runes) > 200 {
		summary = string(runes[:200])
	}
	return summary
}

func (a *Analyzer) extractFunctional(doc *nlp.Document) []FunctionalRequirement {
	reqs := []FunctionalRequirement{}
	for _, sent := range doc.Sentences {
		low := strings.ToLower(sent.Text)

		hasKeyword := containsAny(low, functionalKeywords)
		hasAction := false
		for _, tok := range sent.Tokens {
			if tok.Tag == nlp.Verb && actionVerbs[tok.Lemma] {
				hasAction = true
				break
			}
		}

		// A measurable quality statement or a hard constraint sentence
		// is never double-counted as a functional requirement.
		if (hasKeyword || hasAction) && !hasNFRWithMetric(low) && !isStrongConstraint(low) {
			reqs = append(reqs, FunctionalRequirement{
				ID:       fmt.Sprintf("FR%d", len(reqs)+1),
				Text:     sent.Text,
				Priority: priorityOf(low),
			})
		}
	}
	return reqs
}

func (a *Analyzer) extractNonFunctional(doc *nlp.Document) []NonFunctionalRequirement {
	nfrs := []NonFunctionalRequirement{}
	for _, sent := range doc.Sentences {
		low := strings.ToLower(sent.Text)
		if isStrongConstraint(low) {
			continue
		}

		category := ""
		for _, rule := range nfrRules {
			if containsAny(low, rule.keywords) {
				category = rule.category
				break
			}
		}
		if category == "" {
			continue
		}

		value, unit := extractNumericValue(sent.Text)
		nfrs = append(nfrs, NonFunctionalRequirement{
			ID:       fmt.Sprintf("NFR%d", len(nfrs)+1),
			Text:     sent.Text,
			Category: category,
			Value:    value,
			Unit:     unit,
			Priority: priorityOf(low),
		})
	}
	return nfrs
}

func (a *Analyzer) extractConstraints(doc *nlp.Document) []Constraint {
	constraints := []Constraint{}
	for _, sent := range doc.Sentences {
		low := strings.ToLower(sent.Text)
		mandatory := strings.Contains(low, "must") || strings.Contains(low, "required")

		matched := false
		for _, rule := range constraintRules {
			if !containsAny(low, rule.keywords) {
				continue
			}
			value := extractConstraintValue(low, rule.category)
			// Extraction precision over recall: a category match without
			// a recognizable value is not a constraint.
			if value == "" || len(value) <= 2 || strings.HasPrefix(value, prefixOf(sent.Text, 20)) {
				continue
			}
			constraints = append(constraints, Constraint{
				ID:        fmt.Sprintf("C%d", len(constraints)+1),
				Text:      sent.Text,
				Type:      rule.category,
				Value:     value,
				Mandatory: mandatory,
			})
			matched = true
			break
		}

		if !matched && (strings.Contains(low, "comply") || strings.Contains(low, "compliant")) {
			if value := extractConstraintValue(low, "compliance"); value != "" {
				constraints = append(constraints, Constraint{
					ID:        fmt.Sprintf("C%d", len(constraints)+1),
					Text:      sent.Text,
					Type:      "compliance",
					Value:     value,
					Mandatory: mandatory,
				})
			}
		}
	}
	return constraints
}

func (a *Analyzer) extractActors(doc *nlp.Document) []string {
	actors := map[string]bool{}

	for _, sent := range doc.Sentences {
		for _, ent := range sent.Entities {
			if ent.Label == "PERSON" || ent.Label == "GPE" {
				actors[ent.Text] = true
			}
		}
		for _, tok := range sent.Tokens {
			low := strings.ToLower(tok.Text)
			if roleNouns[low] {
				actors[capitalize(tok.Text)] = true
			}
			if strings.HasSuffix(low, "s") && roleNouns[low[:len(low)-1]] {
				actors[capitalize(low[:len(low)-1])] = true
			}
		}

		low := strings.ToLower(sent.Text)
		if (strings.Contains(low, "payment") || strings.Contains(low, "stripe") || strings.Contains(low, "paypal")) &&
			containsAny(low, []string{"process", "gateway", "service"}) {
			actors["PaymentGateway"] = true
		}
		if strings.Contains(low, "notification") || strings.Contains(low, "email") {
			actors["NotificationService"] = true
		}
	}

	out := make([]string, 0, len(actors))
	for a := range actors {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func (a *Analyzer) extractEntities(doc *nlp.Document) []Entity {
	type record struct {
		name  string
		attrs map[string]bool
	}
	var order []string
	byName := map[string]*record{}

	for _, sent := range doc.Sentences {
		for _, chunk := range sent.Chunks {
			if chunk.Head.Tag != nlp.Noun {
				continue
			}
			name := strings.ToLower(chunk.Head.Text)
			if excludedEntityNouns[name] {
				continue
			}
			if !domainNouns[name] && !domainNouns[strings.TrimRight(name, "s")] {
				continue
			}

			attrs := map[string]bool{}
			for _, tok := range chunk.Tokens {
				low := strings.ToLower(tok.Text)
				switch {
				case tok.Tag == nlp.Adjective && !excludedAttributeAdjectives[low]:
					attrs[low] = true
				case tok.Tag == nlp.Noun && tok != chunk.Head && !excludedEntityNouns[low]:
					attrs[low] = true
				}
			}

			final := name
			if strings.HasSuffix(name, "s") && domainNouns[name[:len(name)-1]] {
				final = name[:len(name)-1]
			}
			key := capitalize(final)
			rec, ok := byName[key]
			if !ok {
				rec = &record{name: key, attrs: map[string]bool{}}
				byName[key] = rec
				order = append(order, key)
			}
			for attr := range attrs {
				rec.attrs[attr] = true
			}
		}
	}

	// First mention in document order decides which entities survive the
	// cap; attributes are sorted for stable output.
	entities := []Entity{}
	for _, key := range order {
		if len(entities) == a.cfg.MaxEntities {
			break
		}
		rec := byName[key]
		attrs := make([]string, 0, len(rec.attrs))
		for attr := range rec.attrs {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)
		entities = append(entities, Entity{Name: rec.name, Type: "domain_entity", Attributes: attrs})
	}
	return entities
}

func (a *Analyzer) extractRelationships(doc *nlp.Document, actors []string, entities []Entity) []Relationship {
	known := map[string]string{}
	for _, actor := range actors {
		known[strings.ToLower(actor)] = actor
	}
	for _, ent := range entities {
		known[strings.ToLower(ent.Name)] = ent.Name
	}

	resolve := func(word string) string {
		low := strings.ToLower(word)
		if name, ok := known[low]; ok {
			return name
		}
		if strings.HasSuffix(low, "s") {
			if name, ok := known[low[:len(low)-1]]; ok {
				return name
			}
		}
		return ""
	}

	rels := []Relationship{}
	for _, sent := range doc.Sentences {
		for _, rel := range sent.Relations {
			if len(rels) == a.cfg.MaxRelationships {
				return rels
			}
			source := resolve(rel.Subject)
			target := resolve(rel.Object)
			if source == "" || target == "" || source == target {
				continue
			}
			rels = append(rels, Relationship{
				Source: source,
				Target: target,
				Type:   relationshipType(rel.Verb.Lemma),
			})
		}
	}
	return rels
}

func (a *Analyzer) extractBusinessRules(doc *nlp.Document) []BusinessRule {
	rules := []BusinessRule{}
	for _, sent := range doc.Sentences {
		low := strings.ToLower(sent.Text)

		hasIndicator := false
		padded := " " + low + " "
		for _, ind := range ruleIndicators {
			if strings.Contains(padded, " "+ind+" ") || strings.HasPrefix(low, ind+" ") {
				hasIndicator = true
				break
			}
		}

		if hasIndicator && !isStrongConstraint(low) {
			rules = append(rules, BusinessRule{
				ID:       fmt.Sprintf("BR%d", len(rules)+1),
				Text:     sent.Text,
				Category: "business_logic",
			})
		}
	}
	return rules
}

func (a *Analyzer) extractTechnologies(doc *nlp.Document) []string {
	found := map[string]bool{}
	for _, sent := range doc.Sentences {
		for _, tok := range sent.Tokens {
			low := strings.ToLower(tok.Text)
			for _, tech := range techKeywords {
				if low == tech {
					found[canonicalTech(low)] = true
				}
			}
		}
	}
	out := make([]string, 0, len(found))
	for t := range found {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (a *Analyzer) confidence(doc *nlp.Document, functional, nonFunctional int) float64 {
	score := 0.5
	if functional > 0 {
		score += 0.2
	}
	if nonFunctional > 0 {
		score += 0.15
	}
	if doc.TokenCount > 20 {
		score += 0.1
	}
	if doc.HasNumericToken {
		score += 0.05
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// extractNumericValue pulls the first value/unit pair out of a sentence,
// preferring conventional units over concurrency qualifiers.
func extractNumericValue(text string) (value, unit string) {
	for _, re := range []*regexp.Regexp{numericUnitRe, numericConcurrRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.ReplaceAll(m[1], ",", ""), m[2]
		}
	}
	return "", ""
}

// extractConstraintValue looks up the category-specific vocabulary
// inside the lowercased sentence and returns the canonical form.
func extractConstraintValue(low, constraintType string) string {
	switch constraintType {
	case "technology":
		for _, tech := range constraintTechnologies {
			if strings.Contains(low, tech) {
				return canonicalTech(tech)
			}
		}
	case "compliance":
		for _, std := range complianceStandards {
			if strings.Contains(low, std) {
				return strings.ToUpper(std)
			}
		}
	case "deployment":
		for _, platform := range deploymentPlatforms {
			if strings.Contains(low, platform) {
				return canonicalTech(platform)
			}
		}
	}
	return ""
}

func hasNFRWithMetric(low string) bool {
	hasKeyword := false
	for _, rule := range nfrRules {
		if containsAny(low, rule.keywords) {
			hasKeyword = true
			break
		}
	}
	return hasKeyword && metricPresenceRe.MatchString(low)
}

func isStrongConstraint(low string) bool {
	if containsAny(low, strongConstraintMarkers) {
		return true
	}
	return (strings.Contains(low, "comply") || strings.Contains(low, "compliant")) &&
		containsAny(low, namedStandards)
}

func priorityOf(low string) string {
	if containsAny(low, highPriorityWords) {
		return PriorityHigh
	}
	if containsAny(low, medPriorityWords) {
		return PriorityMedium
	}
	return PriorityLow
}

func relationshipType(lemma string) string {
	for _, rule := range relationshipRules {
		for _, verb := range rule.keywords {
			if lemma == verb {
				return rule.category
			}
		}
	}
	return "interacts_with"
}

func canonicalTech(low string) string {
	if acronymTech[low] {
		return strings.ToUpper(low)
	}
	return capitalize(low)
}

// capitalize uppercases the first rune and lowercases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[:1])) + strings.ToLower(string(runes[1:]))
}

func prefixOf(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
