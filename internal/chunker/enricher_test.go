package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tok "github.com/weave-logic-ai/recall/internal/token"
	"github.com/weave-logic-ai/recall/pkg/types"
)

func TestEnrichContextWindows(t *testing.T) {
	content := "## Phase 1: Research\n" + strings.TrimSpace(vocabText("early", 10, 60)) + "\n\n" +
		"## Phase 2: Delivery\n" + strings.TrimSpace(vocabText("late", 10, 60)) + "\n"
	doc := testDoc(content, types.ContentTypeEpisodic)

	cfg := DefaultConfig(StrategyEventBased)
	c, err := New(StrategyEventBased, cfg)
	require.NoError(t, err)

	chunks := NewEnricher(cfg).Enrich(doc, c.Chunk(doc))
	require.Len(t, chunks, 2)

	// Document edges bound the windows
	assert.Empty(t, chunks[0].Metadata.ContextBefore)
	assert.Empty(t, chunks[1].Metadata.ContextAfter)

	// Interior windows hold at most ContextWindowSize tokens of the
	// neighboring text
	before := chunks[1].Metadata.ContextBefore
	require.NotEmpty(t, before)
	assert.LessOrEqual(t, tok.Count(before), cfg.ContextWindowSize)
	assert.Contains(t, chunks[0].Content, before)

	after := chunks[0].Metadata.ContextAfter
	require.NotEmpty(t, after)
	assert.LessOrEqual(t, tok.Count(after), cfg.ContextWindowSize)
	assert.Contains(t, chunks[1].Content, after)
}

func TestEnrichConfidenceBlend(t *testing.T) {
	cfg := DefaultConfig(StrategySemanticBoundary)
	e := NewEnricher(cfg)

	tests := []struct {
		name       string
		boundary   float64
		tokenCount int
		want       float64
	}{
		{
			name:       "well sized certain boundary",
			boundary:   1.0,
			tokenCount: 200,
			want:       1.0,
		},
		{
			name:       "well sized neutral boundary",
			boundary:   0.5,
			tokenCount: 200,
			want:       0.75,
		},
		{
			name:       "tiny chunk drags confidence down",
			boundary:   0.5,
			tokenCount: 6, // a quarter of the 24-token floor
			want:       0.375,
		},
		{
			name:       "oversized chunk penalized",
			boundary:   1.0,
			tokenCount: cfg.MaxTokens * 2,
			want:       0.75,
		},
		{
			name:       "floor clamps at 0.1",
			boundary:   0.0,
			tokenCount: 1,
			want:       0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &types.Chunk{
				TokenCount: tt.tokenCount,
				Metadata:   types.ChunkMetadata{Confidence: tt.boundary},
			}
			assert.InDelta(t, tt.want, e.confidence(c), 1e-9)
		})
	}
}

func TestEnrichFallbackConfidenceUntouched(t *testing.T) {
	doc := testDoc("Plain prose with no event structure.", types.ContentTypeEpisodic)
	cfg := DefaultConfig(StrategyEventBased)

	c, err := New(StrategyEventBased, cfg)
	require.NoError(t, err)

	chunks := NewEnricher(cfg).Enrich(doc, c.Chunk(doc))
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Metadata.Fallback)
	assert.InDelta(t, 0.2, chunks[0].Metadata.Confidence, 1e-9)
}

func TestEnrichStampsContentType(t *testing.T) {
	cfg := DefaultConfig(StrategySemanticBoundary)
	c, err := New(StrategySemanticBoundary, cfg)
	require.NoError(t, err)

	// Undeclared content resolves to generic
	doc := testDoc("Short untyped note.", "")
	chunks := NewEnricher(cfg).Enrich(doc, c.Chunk(doc))
	require.Len(t, chunks, 1)
	assert.Equal(t, types.ContentTypeGeneric, chunks[0].ContentType)

	doc = testDoc("Short typed note.", types.ContentTypeSemantic)
	chunks = NewEnricher(cfg).Enrich(doc, c.Chunk(doc))
	require.Len(t, chunks, 1)
	assert.Equal(t, types.ContentTypeSemantic, chunks[0].ContentType)
}

func TestEnrichEmptyChunkList(t *testing.T) {
	cfg := DefaultConfig(StrategySemanticBoundary)
	out := NewEnricher(cfg).Enrich(testDoc("", ""), []*types.Chunk{})
	assert.Empty(t, out)
}
