package token

import "strings"

// Boundary detection defaults. The overlap threshold and debounce count are
// tunable heuristics, not hard invariants.
const (
	DefaultWindowSize       = 50
	DefaultOverlapThreshold = 0.3
	DefaultDebounceWindows  = 1
)

// Boundary marks a detected topic shift between two adjacent token windows
type Boundary struct {
	// TokenIndex is the index of the first token after the boundary
	TokenIndex int

	// Offset is the byte offset of that token in the source text
	Offset int

	// Overlap is the token-set overlap ratio that triggered the boundary.
	// The further below the threshold, the more certain the shift.
	Overlap float64
}

// BoundaryDetector locates topic shifts by comparing the token-set overlap
// of the windows immediately before and after each candidate position. The
// candidate position advances by half a window. A run of below-threshold
// positions must be at least DebounceWindows long to count, and the whole
// run collapses to a single boundary at its lowest-overlap position, which
// suppresses noise from single anomalous sentences.
type BoundaryDetector struct {
	WindowSize       int
	OverlapThreshold float64
	DebounceWindows  int
}

// NewBoundaryDetector returns a detector with default parameters
func NewBoundaryDetector() *BoundaryDetector {
	return &BoundaryDetector{
		WindowSize:       DefaultWindowSize,
		OverlapThreshold: DefaultOverlapThreshold,
		DebounceWindows:  DefaultDebounceWindows,
	}
}

// Detect returns the boundaries found in tokens, in order. Texts shorter
// than two windows yield no boundaries.
func (d *BoundaryDetector) Detect(tokens []Token) []Boundary {
	w := d.WindowSize
	if w <= 0 {
		w = DefaultWindowSize
	}
	debounce := d.DebounceWindows
	if debounce <= 0 {
		debounce = 1
	}
	stride := w / 2
	if stride < 1 {
		stride = 1
	}

	if len(tokens) < 2*w {
		return nil
	}

	boundaries := make([]Boundary, 0)

	run := 0       // length of the current below-threshold run
	lowIndex := -1 // position with the lowest overlap in the run
	lowOverlap := 0.0

	flush := func() {
		if run >= debounce && lowIndex >= 0 {
			boundaries = append(boundaries, Boundary{
				TokenIndex: lowIndex,
				Offset:     tokens[lowIndex].Start,
				Overlap:    lowOverlap,
			})
		}
		run = 0
		lowIndex = -1
	}

	for p := w; p+w <= len(tokens); p += stride {
		overlap := OverlapRatio(tokens[p-w:p], tokens[p:p+w])
		if overlap < d.OverlapThreshold {
			if run == 0 || overlap < lowOverlap {
				lowOverlap = overlap
				lowIndex = p
			}
			run++
			continue
		}
		flush()
	}
	flush()

	return boundaries
}

// OverlapRatio computes the Jaccard-style token-set overlap between two
// windows: |intersection| / |union| over case-folded token text.
func OverlapRatio(a, b []Token) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[strings.ToLower(t.Text)] = struct{}{}
	}

	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[strings.ToLower(t.Text)] = struct{}{}
	}

	intersection := 0
	for w := range setB {
		if _, ok := setA[w]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
