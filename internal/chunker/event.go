package chunker

import (
	"regexp"
	"sort"

	"github.com/weave-logic-ai/recall/pkg/types"
)

// Event boundary cues: phase-transition headings and task start/end lines.
var (
	phaseHeadingPattern = regexp.MustCompile(`(?mi)^#{1,6}\s+.*\b(phase|stage|session|sprint|milestone|day)\b.*$`)
	taskCuePattern      = regexp.MustCompile(`(?mi)^(?:task\s+(?:started|completed|ended)|started:|completed:|finished:)\b.*$`)
)

// eventChunker splits at explicit event/phase boundary markers and links
// adjacent chunks into a temporal chain.
type eventChunker struct {
	cfg Config
}

func newEventChunker(cfg Config) *eventChunker {
	return &eventChunker{cfg: cfg}
}

func (e *eventChunker) Strategy() Strategy { return StrategyEventBased }

func (e *eventChunker) Chunk(doc *types.Document) []*types.Chunk {
	if isEmptyDocument(doc) {
		return []*types.Chunk{}
	}

	marks := eventMarkers(doc.Content)
	if len(marks) == 0 {
		return fallbackChunks(doc)
	}

	// Section spans: text before the first marker forms a preamble section,
	// then one section per marker up to the next marker.
	cuts := make([]int, 0, len(marks)+1)
	if marks[0] > 0 {
		cuts = append(cuts, 0)
	}
	cuts = append(cuts, marks...)

	chunks := make([]*types.Chunk, 0, len(cuts))
	seq := 0
	for i, start := range cuts {
		end := len(doc.Content)
		if i+1 < len(cuts) {
			end = cuts[i+1]
		}
		// Hard cap still applies within an event section
		for _, span := range splitOversized(doc, start, end, e.cfg.MaxTokens) {
			c := newChunk(doc, span[0], span[1], seq, 0.9)
			chunks = append(chunks, c)
			seq++
		}
	}

	linkTemporalChain(chunks)
	return chunks
}

// eventMarkers returns the sorted byte offsets of event boundary markers
func eventMarkers(content string) []int {
	offsets := make([]int, 0)
	for _, pat := range []*regexp.Regexp{phaseHeadingPattern, taskCuePattern} {
		for _, loc := range pat.FindAllStringIndex(content, -1) {
			offsets = append(offsets, loc[0])
		}
	}
	sort.Ints(offsets)

	// Collapse duplicates from overlapping patterns
	out := offsets[:0]
	for i, off := range offsets {
		if i == 0 || off != out[len(out)-1] {
			out = append(out, off)
		}
	}
	return out
}

// linkTemporalChain wires forward/backward links between adjacent chunks
func linkTemporalChain(chunks []*types.Chunk) {
	for i, c := range chunks {
		if i > 0 {
			c.Metadata.PrevChunkID = chunks[i-1].ID
		}
		if i+1 < len(chunks) {
			c.Metadata.NextChunkID = chunks[i+1].ID
		}
	}
}
