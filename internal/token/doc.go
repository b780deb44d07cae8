// Package token provides the tokenization and topic-shift detection
// primitives shared by every chunking strategy.
//
// The tokenizer is a deterministic whitespace/punctuation splitter. It is
// deliberately dependency-free: token counts feed chunk size invariants, so
// they must be stable across runs and releases rather than exact for any
// particular embedding model.
//
// The boundary detector slides a fixed-width token window across the text
// and compares consecutive windows by token-set overlap (intersection over
// union). An overlap ratio below the configured threshold, sustained for a
// debounce count of windows, marks a topic shift.
//
//	tokens := token.Tokenize(text)
//	d := token.NewBoundaryDetector()
//	for _, b := range d.Detect(tokens) {
//	    fmt.Printf("shift at byte %d (overlap %.2f)\n", b.Offset, b.Overlap)
//	}
package token
