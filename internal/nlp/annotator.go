// Package nlp provides linguistic annotation for requirements text:
// sentence segmentation, part-of-speech tagging, lemmas, named entities,
// noun chunks, and shallow verb subject/object roles.
//
// Annotation is backed by prose's general-purpose English tagger. The
// coarse tag categories consumed downstream (NOUN, VERB, ADJ, PROPN, NUM)
// are derived from the Penn Treebank tags prose emits; callers must not
// depend on the exact fine-grained tagset.
package nlp

import (
	"fmt"
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// Coarse part-of-speech categories.
const (
	Noun      = "NOUN"
	ProperN   = "PROPN"
	Verb      = "VERB"
	Adjective = "ADJ"
	Number    = "NUM"
	Other     = "X"
)

// Token is a single annotated word.
type Token struct {
	Text  string
	Tag   string // coarse category: NOUN, VERB, ADJ, PROPN, NUM, X
	PTB   string // raw Penn Treebank tag
	Lemma string // base form (verbs and plural nouns reduced)
}

// EntitySpan is a recognized named entity.
type EntitySpan struct {
	Text  string
	Label string // PERSON, GPE
}

// NounChunk is a contiguous nominal phrase. Head is the last common-noun
// or proper-noun token of the run.
type NounChunk struct {
	Tokens []Token
	Head   Token
}

// VerbRelation pairs a verb with its nearest nominal subject and object
// in the same sentence. Either side may be empty when no nominal was
// found on that side of the verb.
type VerbRelation struct {
	Verb    Token
	Subject string
	Object  string
}

// Sentence is an annotated span of the input.
type Sentence struct {
	Text      string
	Tokens    []Token
	Entities  []EntitySpan
	Chunks    []NounChunk
	Relations []VerbRelation
}

// Document is the full annotation of one input text.
type Document struct {
	Text       string
	Sentences  []Sentence
	TokenCount int
	// HasNumericToken reports whether any token looks like a number.
	HasNumericToken bool
}

// Annotator produces Documents. It holds no per-request state and is
// safe for concurrent use after construction.
type Annotator struct{}

// NewAnnotator constructs the annotator and verifies the tagging model
// works by annotating a probe sentence. A failure here is fatal to
// startup: the system must never degrade silently per request.
func NewAnnotator() (*Annotator, error) {
	a := &Annotator{}
	if _, err := a.Annotate("The system should respond quickly."); err != nil {
		return nil, fmt.Errorf("linguistic model unavailable: %w", err)
	}
	return a, nil
}

// Annotate is a pure function of the input text.
func (a *Annotator) Annotate(text string) (*Document, error) {
	doc := &Document{Text: text}
	if strings.TrimSpace(text) == "" {
		return doc, nil
	}

	outer, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("annotating document: %w", err)
	}

	for _, sent := range outer.Sentences() {
		s, err := annotateSentence(strings.TrimSpace(sent.Text))
		if err != nil {
			return nil, err
		}
		doc.Sentences = append(doc.Sentences, s)
		doc.TokenCount += len(s.Tokens)
		for _, tok := range s.Tokens {
			if tok.Tag == Number || looksNumeric(tok.Text) {
				doc.HasNumericToken = true
			}
		}
	}
	return doc, nil
}

func annotateSentence(text string) (Sentence, error) {
	s := Sentence{Text: text}
	if text == "" {
		return s, nil
	}

	inner, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return s, fmt.Errorf("annotating sentence: %w", err)
	}

	for _, tok := range inner.Tokens() {
		coarse := coarseTag(tok.Tag)
		s.Tokens = append(s.Tokens, Token{
			Text:  tok.Text,
			Tag:   coarse,
			PTB:   tok.Tag,
			Lemma: lemma(tok.Text, coarse),
		})
	}
	for _, ent := range inner.Entities() {
		s.Entities = append(s.Entities, EntitySpan{Text: ent.Text, Label: ent.Label})
	}

	s.Chunks = nounChunks(s.Tokens)
	s.Relations = verbRelations(s.Tokens)
	return s, nil
}

// coarseTag maps Penn Treebank tags to the coarse categories the
// synthesizer consumes. Modals fold into VERB.
func coarseTag(ptb string) string {
	switch {
	case ptb == "NN" || ptb == "NNS":
		return Noun
	case ptb == "NNP" || ptb == "NNPS":
		return ProperN
	case strings.HasPrefix(ptb, "VB") || ptb == "MD":
		return Verb
	case strings.HasPrefix(ptb, "JJ"):
		return Adjective
	case ptb == "CD":
		return Number
	default:
		return Other
	}
}

// nounChunks finds maximal runs of adjectives and nominals that end in a
// nominal. The head is the last nominal of the run.
func nounChunks(tokens []Token) []NounChunk {
	var chunks []NounChunk
	var run []Token
	flush := func() {
		// Trim trailing adjectives so the run ends at its head.
		end := len(run)
		for end > 0 && run[end-1].Tag == Adjective {
			end--
		}
		if end > 0 {
			chunk := make([]Token, end)
			copy(chunk, run[:end])
			chunks = append(chunks, NounChunk{Tokens: chunk, Head: chunk[end-1]})
		}
		run = run[:0]
	}
	for _, tok := range tokens {
		switch tok.Tag {
		case Noun, ProperN, Adjective:
			run = append(run, tok)
		default:
			flush()
		}
	}
	flush()
	return chunks
}

// verbRelations assigns each verb its nearest preceding nominal as
// subject and nearest following nominal as object. This is a shallow
// stand-in for a dependency parse; it is sufficient to resolve
// actor/entity pairs in simple declarative requirement sentences.
func verbRelations(tokens []Token) []VerbRelation {
	var rels []VerbRelation
	for i, tok := range tokens {
		if tok.Tag != Verb || tok.PTB == "MD" {
			continue
		}
		rel := VerbRelation{Verb: tok}
		for j := i - 1; j >= 0; j-- {
			if tokens[j].Tag == Noun || tokens[j].Tag == ProperN {
				rel.Subject = tokens[j].Text
				break
			}
		}
		for j := i + 1; j < len(tokens); j++ {
			if tokens[j].Tag == Noun || tokens[j].Tag == ProperN {
				rel.Object = tokens[j].Text
				break
			}
		}
		rels = append(rels, rel)
	}
	return rels
}

// looksNumeric reports whether a token is number-like, accepting
// comma-grouped digits and decimals.
func looksNumeric(text string) bool {
	seen := false
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			seen = true
		case r == ',' || r == '.':
		default:
			return false
		}
	}
	return seen
}
