// Package chunker divides documents into bounded chunks for embedding and
// retrieval.
//
// Four strategies cover the content types the engine ingests:
//   - Event-Based: splits at phase headings and task-lifecycle cues, linking
//     adjacent chunks into a temporal chain
//   - Semantic-Boundary: sliding-window token overlap detects topic shifts
//   - Preference-Signal: extracts decision statements with their enclosing
//     paragraph and any stated alternatives
//   - Step-Based: splits on step delimiters and records a prerequisite graph
//
// A fifth passthrough strategy emits working-memory content as a single
// chunk.
//
// # Selection
//
// Select maps a declared content type directly to a strategy; undeclared
// content is classified by structural heuristics (step delimiters, decision
// keyword density, phase headings) with semantic boundary detection as the
// fallback. Selection and chunking are deterministic: the same document and
// configuration always produce the same chunk set with the same IDs.
//
// # Contract
//
// Every strategy returns chunks in document order. Empty input yields an
// empty slice, never an error. When a strategy's markers are absent or
// unusable it degrades to a single whole-document chunk flagged as a
// fallback with low confidence.
//
// # Enrichment
//
// The Enricher attaches surrounding context snippets, blends the strategy's
// boundary certainty with a size-fit term into the final confidence score,
// and stamps the resolved content type:
//
//	strategy, _ := chunker.Select(doc.Content, doc.ContentType, cfg)
//	c, _ := chunker.New(strategy, cfg)
//	chunks := chunker.NewEnricher(cfg).Enrich(doc, c.Chunk(doc))
package chunker
