package chunker

import (
	tok "github.com/weave-logic-ai/recall/internal/token"
	"github.com/weave-logic-ai/recall/pkg/types"
)

// semanticChunker splits at topic shifts found by the sliding-window overlap
// detector, then enforces the maxTokens cap and the minChunkSize floor.
type semanticChunker struct {
	cfg      Config
	detector *tok.BoundaryDetector
}

func newSemanticChunker(cfg Config) *semanticChunker {
	return &semanticChunker{
		cfg: cfg,
		detector: &tok.BoundaryDetector{
			WindowSize:       cfg.WindowSize,
			OverlapThreshold: cfg.OverlapThreshold,
			DebounceWindows:  cfg.DebounceWindows,
		},
	}
}

func (s *semanticChunker) Strategy() Strategy { return StrategySemanticBoundary }

func (s *semanticChunker) Chunk(doc *types.Document) []*types.Chunk {
	if isEmptyDocument(doc) {
		return []*types.Chunk{}
	}

	tokens := tok.Tokenize(doc.Content)
	boundaries := s.detector.Detect(tokens)

	// Segment spans between detected boundaries. Confidence reflects how
	// far below the threshold the triggering overlap ratio fell.
	type segment struct {
		start, end int
		confidence float64
	}
	segs := make([]segment, 0, len(boundaries)+1)
	prev := 0
	for _, b := range boundaries {
		segs = append(segs, segment{start: prev, end: b.Offset, confidence: s.boundaryConfidence(b.Overlap)})
		prev = b.Offset
	}
	segs = append(segs, segment{start: prev, end: len(doc.Content), confidence: neutralConfidence})

	// Hard cap: forced splits carry neutral confidence since no topic shift
	// was observed at the cut point.
	chunks := make([]*types.Chunk, 0, len(segs))
	seq := 0
	for _, seg := range segs {
		spans := splitOversized(doc, seg.start, seg.end, s.cfg.MaxTokens)
		for i, span := range spans {
			conf := seg.confidence
			if len(spans) > 1 && i+1 < len(spans) {
				conf = neutralConfidence
			}
			chunks = append(chunks, newChunk(doc, span[0], span[1], seq, conf))
			seq++
		}
	}

	return s.mergeSmall(doc, chunks)
}

const neutralConfidence = 0.5

// boundaryConfidence maps a triggering overlap ratio to (0.5, 1]: a ratio at
// the threshold is barely better than neutral, a ratio of zero is certain.
func (s *semanticChunker) boundaryConfidence(overlap float64) float64 {
	certainty := (s.cfg.OverlapThreshold - overlap) / s.cfg.OverlapThreshold
	if certainty < 0 {
		certainty = 0
	}
	return neutralConfidence + certainty/2
}

// mergeSmall folds chunks below the minChunkSize floor into an adjacent
// chunk, preferring the shorter neighbor; on a tie it merges forward. A merge
// never lifts the result above maxTokens: a small chunk neither neighbor can
// absorb within the cap is kept as is.
func (s *semanticChunker) mergeSmall(doc *types.Document, chunks []*types.Chunk) []*types.Chunk {
	if s.cfg.MinChunkSize <= 0 {
		return chunks
	}

	for {
		merged := false
		for i := 0; i < len(chunks) && len(chunks) > 1; i++ {
			if chunks[i].TokenCount >= s.cfg.MinChunkSize {
				continue
			}
			target, ok := mergeTarget(chunks, i, s.cfg.MaxTokens)
			if !ok {
				continue
			}

			lo, hi := i, target
			if target < i {
				lo, hi = target, i
			}

			c := newChunk(doc, chunks[lo].StartOffset, chunks[hi].EndOffset, chunks[lo].SequenceIndex, minConf(chunks[lo], chunks[hi]))
			out := make([]*types.Chunk, 0, len(chunks)-1)
			out = append(out, chunks[:lo]...)
			out = append(out, c)
			out = append(out, chunks[hi+1:]...)
			chunks = out
			merged = true
			break
		}
		if !merged {
			break
		}
	}

	// Renumber and re-derive IDs after merging
	for i, c := range chunks {
		c.SequenceIndex = i
		c.ID = chunkID(doc.ID, i)
	}
	return chunks
}

// mergeTarget picks the neighbor to absorb chunk idx among those whose
// combined token count stays within maxTokens: the shorter of the two,
// forward on a tie. Splits are token-aligned so the combined count is the
// sum of the parts.
func mergeTarget(chunks []*types.Chunk, idx, maxTokens int) (int, bool) {
	fits := func(j int) bool {
		return j >= 0 && j < len(chunks) && chunks[idx].TokenCount+chunks[j].TokenCount <= maxTokens
	}

	switch {
	case fits(idx-1) && fits(idx+1):
		if chunks[idx-1].TokenCount < chunks[idx+1].TokenCount {
			return idx - 1, true
		}
		return idx + 1, true
	case fits(idx + 1):
		return idx + 1, true
	case fits(idx - 1):
		return idx - 1, true
	}
	return 0, false
}

func minConf(a, b *types.Chunk) float64 {
	if a.Metadata.Confidence < b.Metadata.Confidence {
		return a.Metadata.Confidence
	}
	return b.Metadata.Confidence
}
