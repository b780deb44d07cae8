package chunker

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/weave-logic-ai/recall/pkg/types"
)

// Explicit prerequisite language overrides the default depends-on-previous
// ordering: "requires step 2", "depends on steps 1 and 3", "after step 4".
var prerequisitePattern = regexp.MustCompile(`(?i)\b(?:requires|depends\s+on|after\s+completing|after)\s+steps?\s+((?:\d+\s*(?:,\s*|\s+and\s+)?)+)`)

// outcomePattern captures a declared outcome annotation inside a step
var outcomePattern = regexp.MustCompile(`(?mi)^\s*(?:outcome|result|expected\s+result)\s*[:\-]\s*(.+)$`)

var stepNumberPattern = regexp.MustCompile(`\d+`)

// stepChunker splits on explicit step delimiters and builds a prerequisite
// graph across the resulting step chunks.
type stepChunker struct {
	cfg        Config
	delimiters []*regexp.Regexp
}

func newStepChunker(cfg Config) *stepChunker {
	delims := make([]*regexp.Regexp, 0, len(cfg.StepDelimiters))
	for _, pat := range cfg.StepDelimiters {
		if re, err := regexp.Compile(pat); err == nil {
			delims = append(delims, re)
		}
	}
	return &stepChunker{cfg: cfg, delimiters: delims}
}

func (s *stepChunker) Strategy() Strategy { return StrategyStepBased }

func (s *stepChunker) Chunk(doc *types.Document) []*types.Chunk {
	if isEmptyDocument(doc) {
		return []*types.Chunk{}
	}

	// All configured delimiter patterns invalid, or no step markers found:
	// degrade to the whole-document fallback.
	marks := s.stepMarkers(doc.Content)
	if len(s.delimiters) == 0 || len(marks) == 0 {
		return fallbackChunks(doc)
	}

	cuts := make([]int, 0, len(marks)+1)
	if marks[0] > 0 {
		cuts = append(cuts, 0) // preamble before the first step
	}
	cuts = append(cuts, marks...)

	chunks := make([]*types.Chunk, 0, len(cuts))
	// stepIDs maps the 1-based step ordinal to the chunk ID of its first
	// chunk, for resolving explicit prerequisite references
	stepIDs := make(map[int]string)
	stepOrdinal := 0
	seq := 0

	for i, start := range cuts {
		end := len(doc.Content)
		if i+1 < len(cuts) {
			end = cuts[i+1]
		}
		isStep := start == marks[0] || containsInt(marks, start)

		spans := splitOversized(doc, start, end, s.cfg.MaxTokens)
		var head *types.Chunk
		for j, span := range spans {
			c := newChunk(doc, span[0], span[1], seq, 0.9)
			if j == 0 {
				head = c
			}
			chunks = append(chunks, c)
			seq++
		}

		if !isStep {
			continue
		}
		stepOrdinal++
		stepIDs[stepOrdinal] = head.ID

		text := doc.Content[start:end]
		if m := outcomePattern.FindStringSubmatch(text); m != nil {
			head.Metadata.Outcome = strings.TrimSpace(m[1])
		}
		head.Metadata.Prerequisites = s.prerequisites(text, stepOrdinal, stepIDs)
	}

	return chunks
}

// prerequisites resolves the step's dependencies. Explicit prerequisite
// language wins; otherwise a step depends on the step before it.
func (s *stepChunker) prerequisites(text string, ordinal int, stepIDs map[int]string) []string {
	if m := prerequisitePattern.FindStringSubmatch(text); m != nil {
		ids := make([]string, 0, 2)
		for _, num := range stepNumberPattern.FindAllString(m[1], -1) {
			n, err := strconv.Atoi(num)
			if err != nil || n >= ordinal {
				continue // forward or self references are ignored
			}
			if id, ok := stepIDs[n]; ok {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			return ids
		}
	}

	if prev, ok := stepIDs[ordinal-1]; ok {
		return []string{prev}
	}
	return nil
}

// stepMarkers returns sorted, deduplicated byte offsets of step starts
func (s *stepChunker) stepMarkers(content string) []int {
	offsets := make([]int, 0)
	for _, re := range s.delimiters {
		for _, loc := range re.FindAllStringIndex(content, -1) {
			offsets = append(offsets, loc[0])
		}
	}
	sort.Ints(offsets)

	out := offsets[:0]
	for i, off := range offsets {
		if i == 0 || off != out[len(out)-1] {
			out = append(out, off)
		}
	}
	return out
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
