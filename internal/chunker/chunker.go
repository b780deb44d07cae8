package chunker

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	tok "github.com/weave-logic-ai/recall/internal/token"
	"github.com/weave-logic-ai/recall/pkg/types"
)

// Strategy identifies a chunking algorithm
type Strategy string

const (
	StrategyEventBased       Strategy = "event_based"
	StrategySemanticBoundary Strategy = "semantic_boundary"
	StrategyPreferenceSignal Strategy = "preference_signal"
	StrategyStepBased        Strategy = "step_based"

	// StrategyPassthrough emits the document as a single chunk. Used for
	// working-memory content which is kept whole.
	StrategyPassthrough Strategy = "passthrough"
)

// Confidence assigned to fallback whole-document chunks
const fallbackConfidence = 0.2

// Chunker splits a document into an ordered list of chunks. Implementations
// never fail: empty input yields an empty slice and unusable markers degrade
// to a single whole-document fallback chunk flagged low confidence.
type Chunker interface {
	Strategy() Strategy
	Chunk(doc *types.Document) []*types.Chunk
}

// New constructs the chunker for a strategy. The config is normalized
// against the strategy defaults; invalid values are reported eagerly.
func New(strategy Strategy, cfg Config) (Chunker, error) {
	cfg, err := cfg.Normalize(strategy)
	if err != nil {
		return nil, err
	}

	switch strategy {
	case StrategyEventBased:
		return newEventChunker(cfg), nil
	case StrategySemanticBoundary:
		return newSemanticChunker(cfg), nil
	case StrategyPreferenceSignal:
		return newPreferenceChunker(cfg), nil
	case StrategyStepBased:
		return newStepChunker(cfg), nil
	case StrategyPassthrough:
		return &passthroughChunker{cfg: cfg}, nil
	default:
		return nil, errUnknownStrategy(strategy)
	}
}

// chunkID derives a deterministic chunk identifier from the owning document
// and the chunk's sequence index, so reprocessing an unchanged document
// reproduces identical chunk IDs and link metadata.
func chunkID(docID string, seq int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(docID+"/chunk/"+strconv.Itoa(seq))).String()
}

// DocumentID derives a stable document identifier from its source path
func DocumentID(sourcePath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("recall://"+sourcePath)).String()
}

// newChunk builds a chunk over doc[start:end) at sequence index seq with an
// initial boundary confidence. The enricher later blends the confidence with
// size fit and attaches context windows.
func newChunk(doc *types.Document, start, end, seq int, confidence float64) *types.Chunk {
	content := doc.Content[start:end]
	return &types.Chunk{
		ID:            chunkID(doc.ID, seq),
		DocumentID:    doc.ID,
		Content:       content,
		TokenCount:    tok.Count(content),
		StartOffset:   start,
		EndOffset:     end,
		SequenceIndex: seq,
		ContentType:   doc.ContentType,
		Metadata:      types.ChunkMetadata{Confidence: confidence},
		CreatedAt:     time.Now().UTC(),
	}
}

// Fallback wraps the whole document in the single low-confidence chunk
// used when no strategy can segment it. Callers degrade to this instead of
// failing the document.
func Fallback(doc *types.Document) []*types.Chunk {
	return fallbackChunks(doc)
}

// fallbackChunks returns the single whole-document fallback chunk used when
// a strategy finds no usable boundaries. Exempt from the maxTokens bound and
// always flagged low confidence.
func fallbackChunks(doc *types.Document) []*types.Chunk {
	c := newChunk(doc, 0, len(doc.Content), 0, fallbackConfidence)
	c.Metadata.Fallback = true
	return []*types.Chunk{c}
}

// isEmptyDocument reports whether doc has no chunkable content
func isEmptyDocument(doc *types.Document) bool {
	return strings.TrimSpace(doc.Content) == ""
}

// splitOversized enforces the maxTokens hard cap by cutting a span into
// token-aligned segments of at most maxTokens tokens each. Returned spans
// are byte offsets into the document content.
func splitOversized(doc *types.Document, start, end, maxTokens int) [][2]int {
	tokens := tok.Tokenize(doc.Content[start:end])
	if len(tokens) <= maxTokens {
		return [][2]int{{start, end}}
	}

	spans := make([][2]int, 0, len(tokens)/maxTokens+1)
	segStart := start
	for i := maxTokens; i < len(tokens); i += maxTokens {
		cut := start + tokens[i].Start
		spans = append(spans, [2]int{segStart, cut})
		segStart = cut
	}
	spans = append(spans, [2]int{segStart, end})
	return spans
}

// passthroughChunker emits the whole document as one chunk. The maxTokens
// bound does not apply: working content is deliberately kept intact.
type passthroughChunker struct {
	cfg Config
}

func (p *passthroughChunker) Strategy() Strategy { return StrategyPassthrough }

func (p *passthroughChunker) Chunk(doc *types.Document) []*types.Chunk {
	if isEmptyDocument(doc) {
		return []*types.Chunk{}
	}
	c := newChunk(doc, 0, len(doc.Content), 0, 1.0)
	return []*types.Chunk{c}
}
