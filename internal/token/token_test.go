package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple words",
			input: "the quick brown fox",
			want:  []string{"the", "quick", "brown", "fox"},
		},
		{
			name:  "punctuation discarded",
			input: "hello, world! (again)",
			want:  []string{"hello", "world", "again"},
		},
		{
			name:  "mixed whitespace",
			input: "one\ttwo\n\nthree  four",
			want:  []string{"one", "two", "three", "four"},
		},
		{
			name:  "digits kept in words",
			input: "step 2 requires v3",
			want:  []string{"step", "2", "requires", "v3"},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
		{
			name:  "whitespace only",
			input: "   \n\t  ",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			got := make([]string, len(tokens))
			for i, tok := range tokens {
				got[i] = tok.Text
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenizeSpans(t *testing.T) {
	input := "alpha beta, gamma"
	tokens := Tokenize(input)
	require.Len(t, tokens, 3)

	for _, tok := range tokens {
		assert.Equal(t, tok.Text, input[tok.Start:tok.End])
	}
	assert.Equal(t, 0, tokens[0].Start)
	assert.Equal(t, len(input), tokens[2].End)
}

func TestTokenizeDeterministic(t *testing.T) {
	input := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)

	first := Tokenize(input)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Tokenize(input))
	}
	assert.Equal(t, len(first), Count(input))
}

func TestOverlapRatio(t *testing.T) {
	mkWindow := func(words ...string) []Token {
		toks := make([]Token, len(words))
		for i, w := range words {
			toks[i] = Token{Text: w}
		}
		return toks
	}

	tests := []struct {
		name string
		a, b []Token
		want float64
	}{
		{
			name: "identical windows",
			a:    mkWindow("red", "green", "blue"),
			b:    mkWindow("red", "green", "blue"),
			want: 1.0,
		},
		{
			name: "disjoint windows",
			a:    mkWindow("red", "green"),
			b:    mkWindow("blue", "yellow"),
			want: 0.0,
		},
		{
			name: "half shared",
			a:    mkWindow("red", "green", "blue"),
			b:    mkWindow("red", "green", "yellow"),
			want: 0.5,
		},
		{
			name: "case folded",
			a:    mkWindow("Red", "GREEN"),
			b:    mkWindow("red", "green"),
			want: 1.0,
		},
		{
			name: "empty window",
			a:    mkWindow(),
			b:    mkWindow("red"),
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, OverlapRatio(tt.a, tt.b), 1e-9)
		})
	}
}

// repeatVocab builds text cycling through n distinct words until count
// tokens are emitted.
func repeatVocab(prefix string, n, count int) string {
	var sb strings.Builder
	for i := 0; i < count; i++ {
		sb.WriteString(prefix)
		sb.WriteString(strings.Repeat("x", i%n))
		sb.WriteByte(' ')
	}
	return sb.String()
}

func TestDetectCleanTopicShift(t *testing.T) {
	// Two halves with disjoint vocabularies. The shift sits exactly at the
	// midpoint token.
	text := repeatVocab("alpha", 20, 500) + repeatVocab("beta", 20, 500)
	tokens := Tokenize(text)
	require.Len(t, tokens, 1000)

	d := NewBoundaryDetector()
	boundaries := d.Detect(tokens)

	require.Len(t, boundaries, 1)
	assert.Equal(t, 500, boundaries[0].TokenIndex)
	assert.Equal(t, tokens[500].Start, boundaries[0].Offset)
	assert.Less(t, boundaries[0].Overlap, d.OverlapThreshold)
}

func TestDetectUniformText(t *testing.T) {
	// A single repeating vocabulary never drops below the threshold
	tokens := Tokenize(repeatVocab("word", 15, 600))

	boundaries := NewBoundaryDetector().Detect(tokens)
	assert.Empty(t, boundaries)
}

func TestDetectShortText(t *testing.T) {
	tokens := Tokenize("too short for even two windows")
	assert.Nil(t, NewBoundaryDetector().Detect(tokens))
}

func TestDetectDebounceSuppressesNoise(t *testing.T) {
	// One anomalous low-overlap region shorter than the debounce run
	// requirement is ignored.
	text := repeatVocab("alpha", 20, 500) + repeatVocab("beta", 20, 500)
	tokens := Tokenize(text)

	d := &BoundaryDetector{
		WindowSize:       DefaultWindowSize,
		OverlapThreshold: DefaultOverlapThreshold,
		DebounceWindows:  4,
	}
	// A clean shift produces a short below-threshold run; requiring a run
	// of 4 suppresses it.
	assert.Empty(t, d.Detect(tokens))
}

func TestDetectDeterministic(t *testing.T) {
	text := repeatVocab("alpha", 20, 400) + repeatVocab("beta", 20, 300) + repeatVocab("gamma", 20, 400)
	tokens := Tokenize(text)

	d := NewBoundaryDetector()
	first := d.Detect(tokens)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, d.Detect(tokens))
	}
}
