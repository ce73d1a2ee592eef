package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLemma(t *testing.T) {
	tests := []struct {
		text string
		tag  string
		want string
	}{
		{"requested", Verb, "request"},
		{"managing", Verb, "manage"},
		{"books", Verb, "book"},
		{"creates", Verb, "create"},
		{"submitted", Verb, "submit"},
		{"complies", Verb, "comply"},
		{"was", Verb, "be"},
		{"sent", Verb, "send"},
		{"paid", Verb, "pay"},
		{"teleporting", Verb, "teleporting"}, // outside the vocabulary, left alone
		{"rides", Noun, "ride"},
		{"companies", Noun, "company"},
		{"access", Noun, "access"}, // double-s nouns keep their suffix
		{"Drivers", Noun, "driver"},
		{"AWS", ProperN, "aws"},
		{"fast", Adjective, "fast"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, lemma(tt.text, tt.tag))
		})
	}
}

func TestCoarseTag(t *testing.T) {
	tests := []struct {
		ptb  string
		want string
	}{
		{"NN", Noun},
		{"NNS", Noun},
		{"NNP", ProperN},
		{"NNPS", ProperN},
		{"VB", Verb},
		{"VBZ", Verb},
		{"MD", Verb},
		{"JJ", Adjective},
		{"JJR", Adjective},
		{"CD", Number},
		{"DT", Other},
		{"IN", Other},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, coarseTag(tt.ptb), "ptb %s", tt.ptb)
	}
}

func tok(text, tag string) Token {
	return Token{Text: text, Tag: tag, Lemma: lemma(text, tag)}
}

func TestNounChunks(t *testing.T) {
	tokens := []Token{
		tok("The", Other),
		tok("mobile", Adjective),
		tok("payment", Noun),
		tok("gateway", Noun),
		tok("processes", Verb),
		tok("secure", Adjective),
		tok("transactions", Noun),
	}

	chunks := nounChunks(tokens)
	require.Len(t, chunks, 2)

	assert.Equal(t, "gateway", chunks[0].Head.Text)
	assert.Len(t, chunks[0].Tokens, 3)

	assert.Equal(t, "transactions", chunks[1].Head.Text)
	assert.Len(t, chunks[1].Tokens, 2)
}

func TestNounChunks_TrailingAdjectiveDropped(t *testing.T) {
	tokens := []Token{
		tok("service", Noun),
		tok("available", Adjective),
	}
	chunks := nounChunks(tokens)
	require.Len(t, chunks, 1)
	assert.Equal(t, "service", chunks[0].Head.Text)
	assert.Len(t, chunks[0].Tokens, 1)
}

func TestVerbRelations(t *testing.T) {
	tokens := []Token{
		tok("Users", Noun),
		{Text: "can", Tag: Verb, PTB: "MD"},
		{Text: "book", Tag: Verb, PTB: "VB", Lemma: "book"},
		tok("rides", Noun),
	}

	rels := verbRelations(tokens)
	require.Len(t, rels, 1) // the modal is skipped
	assert.Equal(t, "book", rels[0].Verb.Lemma)
	assert.Equal(t, "Users", rels[0].Subject)
	assert.Equal(t, "rides", rels[0].Object)
}

func TestVerbRelations_MissingSides(t *testing.T) {
	rels := verbRelations([]Token{
		{Text: "respond", Tag: Verb, PTB: "VB", Lemma: "respond"},
		tok("quickly", Other),
	})
	require.Len(t, rels, 1)
	assert.Empty(t, rels[0].Subject)
	assert.Empty(t, rels[0].Object)
}

func TestLooksNumeric(t *testing.T) {
	assert.True(t, looksNumeric("200"))
	assert.True(t, looksNumeric("10,000"))
	assert.True(t, looksNumeric("99.9"))
	assert.False(t, looksNumeric("200ms"))
	assert.False(t, looksNumeric(","))
	assert.False(t, looksNumeric("fast"))
}

func TestAnnotate(t *testing.T) {
	a, err := NewAnnotator()
	require.NoError(t, err)

	doc, err := a.Annotate("Users can book rides. The system must support 10,000 concurrent users.")
	require.NoError(t, err)
	require.Len(t, doc.Sentences, 2)
	assert.Greater(t, doc.TokenCount, 0)
	assert.True(t, doc.HasNumericToken)
}

func TestAnnotate_Empty(t *testing.T) {
	a, err := NewAnnotator()
	require.NoError(t, err)

	doc, err := a.Annotate("   ")
	require.NoError(t, err)
	assert.Empty(t, doc.Sentences)
	assert.Zero(t, doc.TokenCount)
}
