package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tok "github.com/weave-logic-ai/recall/internal/token"
	"github.com/weave-logic-ai/recall/pkg/types"
)

func testDoc(content string, ct types.ContentType) *types.Document {
	return &types.Document{
		ID:          DocumentID("/notes/test.md"),
		SourcePath:  "/notes/test.md",
		Content:     content,
		ContentType: ct,
	}
}

// vocabText emits count tokens drawn from n distinct words
func vocabText(prefix string, n, count int) string {
	var sb strings.Builder
	for i := 0; i < count; i++ {
		sb.WriteString(prefix)
		sb.WriteString(strings.Repeat("z", i%n))
		sb.WriteByte(' ')
	}
	return sb.String()
}

func TestNewUnknownStrategy(t *testing.T) {
	_, err := New(Strategy("bogus"), Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStrategy)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig(StrategySemanticBoundary)
	cfg.MaxTokens = -1
	_, err := New(StrategySemanticBoundary, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfig)
}

func TestEmptyDocumentYieldsEmptyChunkList(t *testing.T) {
	strategies := []Strategy{
		StrategyEventBased,
		StrategySemanticBoundary,
		StrategyPreferenceSignal,
		StrategyStepBased,
		StrategyPassthrough,
	}

	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			c, err := New(s, Config{})
			require.NoError(t, err)

			for _, content := range []string{"", "   \n\t  "} {
				chunks := c.Chunk(testDoc(content, ""))
				assert.NotNil(t, chunks)
				assert.Empty(t, chunks)
			}
		})
	}
}

func TestEventChunkerPhaseHeadings(t *testing.T) {
	content := "## Phase 1: Discovery\n" +
		"We interviewed users and catalogued pain points over two weeks.\n\n" +
		"## Phase 2: Prototyping\n" +
		"Built three throwaway prototypes and benchmarked each.\n"

	c, err := New(StrategyEventBased, Config{})
	require.NoError(t, err)

	chunks := c.Chunk(testDoc(content, types.ContentTypeEpisodic))
	require.Len(t, chunks, 2)

	assert.Contains(t, chunks[0].Content, "Phase 1")
	assert.Contains(t, chunks[1].Content, "Phase 2")

	// Temporal chain: forward link on the first, backward on the second
	assert.Empty(t, chunks[0].Metadata.PrevChunkID)
	assert.Equal(t, chunks[1].ID, chunks[0].Metadata.NextChunkID)
	assert.Equal(t, chunks[0].ID, chunks[1].Metadata.PrevChunkID)
	assert.Empty(t, chunks[1].Metadata.NextChunkID)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.SequenceIndex)
		assert.False(t, chunk.Metadata.Fallback)
	}
}

func TestEventChunkerPreamble(t *testing.T) {
	content := "Some introductory notes before anything started.\n\n" +
		"Task started: migrate the billing tables\n" +
		"Ran the migration in a maintenance window.\n"

	c, err := New(StrategyEventBased, Config{})
	require.NoError(t, err)

	chunks := c.Chunk(testDoc(content, types.ContentTypeEpisodic))
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Content, "introductory")
	assert.Contains(t, chunks[1].Content, "Task started")
}

func TestEventChunkerNoMarkersFallsBack(t *testing.T) {
	c, err := New(StrategyEventBased, Config{})
	require.NoError(t, err)

	chunks := c.Chunk(testDoc("Plain prose with no event structure at all.", types.ContentTypeEpisodic))
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Metadata.Fallback)
	assert.InDelta(t, 0.2, chunks[0].Metadata.Confidence, 1e-9)
	assert.Equal(t, 0, chunks[0].StartOffset)
}

func TestSemanticChunkerTopicShift(t *testing.T) {
	// 1000 tokens with a clean vocabulary shift at the midpoint. With a
	// 600-token cap the shift, not the cap, must drive the split.
	content := vocabText("alpha", 20, 500) + vocabText("beta", 20, 500)
	doc := testDoc(content, types.ContentTypeSemantic)

	cfg := DefaultConfig(StrategySemanticBoundary)
	cfg.MaxTokens = 600
	c, err := New(StrategySemanticBoundary, cfg)
	require.NoError(t, err)

	chunks := c.Chunk(doc)
	require.Len(t, chunks, 2)

	// Split lands within 50 tokens of the midpoint
	assert.InDelta(t, 500, chunks[0].TokenCount, 50)
	assert.InDelta(t, 500, chunks[1].TokenCount, 50)
	assert.Equal(t, chunks[0].EndOffset, chunks[1].StartOffset)

	// Boundary confidence reflects the overlap drop
	assert.Greater(t, chunks[0].Metadata.Confidence, 0.5)
}

func TestSemanticChunkerMaxTokensCap(t *testing.T) {
	// Uniform vocabulary: no topic shifts, the cap alone forces splits
	content := vocabText("word", 15, 1500)
	cfg := DefaultConfig(StrategySemanticBoundary)
	cfg.MaxTokens = 400

	c, err := New(StrategySemanticBoundary, cfg)
	require.NoError(t, err)

	chunks := c.Chunk(testDoc(content, types.ContentTypeSemantic))
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, cfg.MaxTokens)
	}
}

func TestSemanticChunkerMergesSmallChunks(t *testing.T) {
	content := vocabText("alpha", 20, 500) + vocabText("beta", 20, 500)
	cfg := DefaultConfig(StrategySemanticBoundary)
	cfg.MaxTokens = 1200
	cfg.MinChunkSize = 550 // both halves fall below the floor

	c, err := New(StrategySemanticBoundary, cfg)
	require.NoError(t, err)

	chunks := c.Chunk(testDoc(content, types.ContentTypeSemantic))
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(content), chunks[0].EndOffset)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
}

func TestSemanticChunkerMergeRespectsMaxTokens(t *testing.T) {
	// Uniform vocabulary just past the cap: the forced split leaves a tail
	// below the floor whose only neighbor is already at the cap. The tail
	// must stay small rather than push the neighbor over the cap.
	content := vocabText("word", 15, 615)
	cfg := DefaultConfig(StrategySemanticBoundary)
	cfg.MaxTokens = 600

	c, err := New(StrategySemanticBoundary, cfg)
	require.NoError(t, err)

	chunks := c.Chunk(testDoc(content, types.ContentTypeSemantic))
	require.Len(t, chunks, 2)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, cfg.MaxTokens)
		assert.False(t, chunk.Metadata.Fallback)
	}
	assert.Equal(t, 600, chunks[0].TokenCount)
	assert.Equal(t, 15, chunks[1].TokenCount)
}

func TestSemanticChunkerContiguousOrdered(t *testing.T) {
	content := vocabText("alpha", 20, 300) + vocabText("beta", 20, 300) + vocabText("gamma", 20, 300)
	c, err := New(StrategySemanticBoundary, Config{})
	require.NoError(t, err)

	doc := testDoc(content, types.ContentTypeSemantic)
	chunks := c.Chunk(doc)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(content), chunks[len(chunks)-1].EndOffset)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].EndOffset, chunks[i].StartOffset)
		assert.Equal(t, i, chunks[i].SequenceIndex)
	}
}

func TestChunkingDeterministic(t *testing.T) {
	content := vocabText("alpha", 20, 400) + vocabText("beta", 20, 400)
	doc := testDoc(content, types.ContentTypeSemantic)

	c, err := New(StrategySemanticBoundary, Config{})
	require.NoError(t, err)

	first := c.Chunk(doc)
	second := c.Chunk(doc)
	require.Equal(t, len(first), len(second))

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].StartOffset, second[i].StartOffset)
		assert.Equal(t, first[i].EndOffset, second[i].EndOffset)
		assert.Equal(t, first[i].Metadata.PrevChunkID, second[i].Metadata.PrevChunkID)
		assert.Equal(t, first[i].Metadata.NextChunkID, second[i].Metadata.NextChunkID)
	}
}

func TestPreferenceChunkerExtractsDecisions(t *testing.T) {
	content := "The team met on Tuesday to review storage options.\n\n" +
		"We decided to use Postgres instead of MySQL because of the richer\n" +
		"index types and better JSON support.\n\n" +
		"Lunch was sandwiches.\n"

	c, err := New(StrategyPreferenceSignal, Config{})
	require.NoError(t, err)

	chunks := c.Chunk(testDoc(content, types.ContentTypePreference))
	require.Len(t, chunks, 1)

	assert.Contains(t, chunks[0].Content, "decided to use Postgres")
	require.Len(t, chunks[0].Metadata.Alternatives, 1)
	assert.Equal(t, "MySQL because of the richer", chunks[0].Metadata.Alternatives[0])
	assert.InDelta(t, 0.85, chunks[0].Metadata.Confidence, 1e-9)
}

func TestPreferenceChunkerCapsLongParagraphs(t *testing.T) {
	// One giant paragraph with the decision keyword buried in the middle
	long := strings.TrimSpace(vocabText("filler", 30, 300)) + " we decided on sqlite " +
		strings.TrimSpace(vocabText("other", 30, 300))

	c, err := New(StrategyPreferenceSignal, Config{})
	require.NoError(t, err)

	chunks := c.Chunk(testDoc(long, types.ContentTypePreference))
	require.Len(t, chunks, 1)
	assert.LessOrEqual(t, chunks[0].TokenCount, DefaultPreferenceMaxTokens)
	assert.Contains(t, chunks[0].Content, "decided")
}

func TestPreferenceChunkerNoSignalsFallsBack(t *testing.T) {
	c, err := New(StrategyPreferenceSignal, Config{})
	require.NoError(t, err)

	chunks := c.Chunk(testDoc("Nothing notable happened today.", types.ContentTypePreference))
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Metadata.Fallback)
}

func TestStepChunkerPrerequisiteChain(t *testing.T) {
	content := "Deploy runbook for the API service.\n\n" +
		"1. Build the release artifact and tag it.\n" +
		"2. Push the image to the registry.\n" +
		"3. Roll the deployment and watch error rates.\n"

	c, err := New(StrategyStepBased, Config{})
	require.NoError(t, err)

	chunks := c.Chunk(testDoc(content, types.ContentTypeProcedural))
	require.Len(t, chunks, 4) // preamble + three steps

	preamble, s1, s2, s3 := chunks[0], chunks[1], chunks[2], chunks[3]
	assert.Contains(t, preamble.Content, "runbook")
	assert.Empty(t, preamble.Metadata.Prerequisites)

	assert.Empty(t, s1.Metadata.Prerequisites)
	assert.Equal(t, []string{s1.ID}, s2.Metadata.Prerequisites)
	assert.Equal(t, []string{s2.ID}, s3.Metadata.Prerequisites)
}

func TestStepChunkerExplicitPrerequisites(t *testing.T) {
	content := "1. Provision the database.\n" +
		"2. Configure DNS records.\n" +
		"3. Run schema migrations. Requires step 1.\n"

	c, err := New(StrategyStepBased, Config{})
	require.NoError(t, err)

	chunks := c.Chunk(testDoc(content, types.ContentTypeProcedural))
	require.Len(t, chunks, 3)

	// Explicit language overrides the depends-on-previous default
	assert.Equal(t, []string{chunks[0].ID}, chunks[2].Metadata.Prerequisites)
}

func TestStepChunkerOutcomeAnnotation(t *testing.T) {
	content := "1. Restart the worker pool.\n" +
		"Outcome: queue depth returns to baseline within five minutes.\n" +
		"2. Verify the dashboards.\n"

	c, err := New(StrategyStepBased, Config{})
	require.NoError(t, err)

	chunks := c.Chunk(testDoc(content, types.ContentTypeProcedural))
	require.Len(t, chunks, 2)
	assert.Equal(t, "queue depth returns to baseline within five minutes.", chunks[0].Metadata.Outcome)
	assert.Empty(t, chunks[1].Metadata.Outcome)
}

func TestStepChunkerNoDelimitersFallsBack(t *testing.T) {
	c, err := New(StrategyStepBased, Config{})
	require.NoError(t, err)

	chunks := c.Chunk(testDoc("Freeform notes without any numbered structure.", types.ContentTypeProcedural))
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Metadata.Fallback)
}

func TestPassthroughKeepsDocumentWhole(t *testing.T) {
	content := vocabText("scratch", 10, 900) // well past the default cap
	c, err := New(StrategyPassthrough, Config{})
	require.NoError(t, err)

	chunks := c.Chunk(testDoc(content, types.ContentTypeWorking))
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(content), chunks[0].EndOffset)
	assert.False(t, chunks[0].Metadata.Fallback)
	assert.InDelta(t, 1.0, chunks[0].Metadata.Confidence, 1e-9)
}

func TestChunkOffsetsMatchContent(t *testing.T) {
	content := "## Phase 1: Setup\nInstalled dependencies.\n\n## Phase 2: Launch\nShipped it.\n"
	doc := testDoc(content, types.ContentTypeEpisodic)

	c, err := New(StrategyEventBased, Config{})
	require.NoError(t, err)

	for _, chunk := range c.Chunk(doc) {
		assert.Equal(t, content[chunk.StartOffset:chunk.EndOffset], chunk.Content)
		assert.Equal(t, tok.Count(chunk.Content), chunk.TokenCount)
	}
}

func TestDocumentIDStable(t *testing.T) {
	a := DocumentID("/notes/a.md")
	assert.Equal(t, a, DocumentID("/notes/a.md"))
	assert.NotEqual(t, a, DocumentID("/notes/b.md"))
}
