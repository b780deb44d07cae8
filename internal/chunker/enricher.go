package chunker

import (
	"github.com/weave-logic-ai/recall/internal/token"
	"github.com/weave-logic-ai/recall/pkg/types"
)

// Enricher post-processes raw strategy output: surrounding context snippets,
// a blended confidence score, and the resolved content type.
type Enricher struct {
	cfg Config
}

func NewEnricher(cfg Config) *Enricher {
	return &Enricher{cfg: cfg}
}

// Enrich mutates chunks in place and returns them for convenience.
// Enrichment is deterministic for a given document and chunk set.
func (e *Enricher) Enrich(doc *types.Document, chunks []*types.Chunk) []*types.Chunk {
	if len(chunks) == 0 {
		return chunks
	}

	toks := token.Tokenize(doc.Content)
	contentType := doc.ContentType
	if contentType == "" {
		contentType = types.ContentTypeGeneric
	}

	for _, c := range chunks {
		c.Metadata.ContextBefore = e.contextBefore(doc.Content, toks, c.StartOffset)
		c.Metadata.ContextAfter = e.contextAfter(doc.Content, toks, c.EndOffset)
		c.Metadata.Confidence = e.confidence(c)
		c.ContentType = contentType
	}
	return chunks
}

// confidence blends the strategy's boundary certainty with how well the
// chunk's size fits the configured bounds. Whole-document fallback chunks
// keep their flagged low confidence untouched.
func (e *Enricher) confidence(c *types.Chunk) float64 {
	if c.Metadata.Fallback {
		return c.Metadata.Confidence
	}
	score := 0.5*c.Metadata.Confidence + 0.5*e.sizeFit(c.TokenCount)
	if score < 0.1 {
		return 0.1
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

// sizeFit is 1.0 inside [MinChunkSize, MaxTokens] and degrades
// proportionally outside the band
func (e *Enricher) sizeFit(tokens int) float64 {
	switch {
	case tokens <= 0:
		return 0
	case e.cfg.MinChunkSize > 0 && tokens < e.cfg.MinChunkSize:
		return float64(tokens) / float64(e.cfg.MinChunkSize)
	case e.cfg.MaxTokens > 0 && tokens > e.cfg.MaxTokens:
		return float64(e.cfg.MaxTokens) / float64(tokens)
	default:
		return 1.0
	}
}

// contextBefore returns up to ContextWindowSize tokens of text immediately
// preceding offset, bounded by the document start
func (e *Enricher) contextBefore(content string, toks []token.Token, offset int) string {
	if e.cfg.ContextWindowSize == 0 || offset <= 0 {
		return ""
	}
	// index of the first token at or past the chunk start
	end := len(toks)
	for i, t := range toks {
		if t.End > offset {
			end = i
			break
		}
	}
	start := end - e.cfg.ContextWindowSize
	if start < 0 {
		start = 0
	}
	if start >= end {
		return ""
	}
	return content[toks[start].Start:toks[end-1].End]
}

// contextAfter returns up to ContextWindowSize tokens of text immediately
// following offset, bounded by the document end
func (e *Enricher) contextAfter(content string, toks []token.Token, offset int) string {
	if e.cfg.ContextWindowSize == 0 || offset >= len(content) {
		return ""
	}
	start := len(toks)
	for i, t := range toks {
		if t.Start >= offset {
			start = i
			break
		}
	}
	end := start + e.cfg.ContextWindowSize
	if end > len(toks) {
		end = len(toks)
	}
	if start >= end {
		return ""
	}
	return content[toks[start].Start:toks[end-1].End]
}
