package chunker

import (
	"regexp"
	"strings"

	tok "github.com/weave-logic-ai/recall/internal/token"
	"github.com/weave-logic-ai/recall/pkg/types"
)

// alternativePattern captures the rejected option in phrases like
// "chose X instead of Y" or "preferred X over Y"
var alternativePattern = regexp.MustCompile(`(?i)\b(?:instead of|rather than|over using|as opposed to)\s+([^.,;:\n]+)`)

// optionLinePattern matches bullet lines enumerating candidate options
var optionLinePattern = regexp.MustCompile(`(?mi)^\s*[-*]\s*(?:option\s*\d*[:.]?\s*)(.+)$`)

// preferenceChunker extracts decision statements: each decision-keyword
// match expands to its enclosing paragraph, capped at maxTokens.
type preferenceChunker struct {
	cfg      Config
	keywords []string
}

func newPreferenceChunker(cfg Config) *preferenceChunker {
	kws := make([]string, len(cfg.DecisionKeywords))
	for i, k := range cfg.DecisionKeywords {
		kws[i] = strings.ToLower(k)
	}
	return &preferenceChunker{cfg: cfg, keywords: kws}
}

func (p *preferenceChunker) Strategy() Strategy { return StrategyPreferenceSignal }

func (p *preferenceChunker) Chunk(doc *types.Document) []*types.Chunk {
	if isEmptyDocument(doc) {
		return []*types.Chunk{}
	}

	paragraphs := paragraphSpans(doc.Content)
	chunks := make([]*types.Chunk, 0)
	seq := 0

	for _, para := range paragraphs {
		text := doc.Content[para[0]:para[1]]
		matchOff := p.firstKeywordOffset(text)
		if matchOff < 0 {
			continue
		}

		start, end := p.capToWindow(doc.Content, para[0], para[1], para[0]+matchOff)
		c := newChunk(doc, start, end, seq, 0.85)
		c.Metadata.Alternatives = extractAlternatives(text)
		chunks = append(chunks, c)
		seq++
	}

	if len(chunks) == 0 {
		return fallbackChunks(doc)
	}
	return chunks
}

// firstKeywordOffset returns the byte offset of the first decision keyword
// in text, or -1 when none matches
func (p *preferenceChunker) firstKeywordOffset(text string) int {
	lower := strings.ToLower(text)
	best := -1
	for _, kw := range p.keywords {
		if idx := strings.Index(lower, kw); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}

// capToWindow bounds the paragraph span [paraStart, paraEnd) to at most
// maxTokens tokens. When the paragraph fits, it is kept whole; otherwise the
// window is centered on the keyword match and clipped to the paragraph.
func (p *preferenceChunker) capToWindow(content string, paraStart, paraEnd, matchOff int) (int, int) {
	tokens := tok.Tokenize(content[paraStart:paraEnd])
	if len(tokens) <= p.cfg.MaxTokens {
		return paraStart, paraEnd
	}

	// Token index containing the match
	matchRel := matchOff - paraStart
	matchTok := 0
	for i, t := range tokens {
		if t.Start > matchRel {
			break
		}
		matchTok = i
	}

	half := p.cfg.MaxTokens / 2
	lo := matchTok - half
	if lo < 0 {
		lo = 0
	}
	hi := lo + p.cfg.MaxTokens
	if hi > len(tokens) {
		hi = len(tokens)
		lo = hi - p.cfg.MaxTokens
	}

	start := paraStart + tokens[lo].Start
	end := paraStart + tokens[hi-1].End
	return start, end
}

// extractAlternatives collects alternative options mentioned near a decision
func extractAlternatives(text string) []string {
	alts := make([]string, 0, 2)
	for _, m := range alternativePattern.FindAllStringSubmatch(text, -1) {
		alts = append(alts, strings.TrimSpace(m[1]))
	}
	for _, m := range optionLinePattern.FindAllStringSubmatch(text, -1) {
		alts = append(alts, strings.TrimSpace(m[1]))
	}
	if len(alts) == 0 {
		return nil
	}
	return alts
}

// paragraphSpans returns the byte spans of non-empty paragraphs, where
// paragraphs are separated by blank lines
func paragraphSpans(content string) [][2]int {
	spans := make([][2]int, 0)
	start := -1
	lineStart := 0

	flush := func(end int) {
		if start >= 0 {
			spans = append(spans, [2]int{start, end})
			start = -1
		}
	}

	for i := 0; i <= len(content); i++ {
		if i == len(content) || content[i] == '\n' {
			line := content[lineStart:i]
			if strings.TrimSpace(line) == "" {
				flush(lineStart)
			} else if start < 0 {
				start = lineStart
			}
			lineStart = i + 1
		}
	}
	flush(len(content))
	return spans
}
