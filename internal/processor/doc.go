// Package processor wires chunking, embedding, and storage into the
// document ingestion pipeline.
//
// ProcessDocument runs one document through strategy selection, chunking,
// and enrichment, then persists the document record and its chunk set.
// Reprocessing the same source path replaces the previous chunk set in one
// transaction, so readers only ever observe a complete generation of
// chunks. A non-blocking per-path guard rejects concurrent reprocessing of
// the same source path; distinct paths process in parallel freely.
//
// Chunking never fails for degenerate input. Empty documents produce an
// empty chunk set and a strategy selection failure degrades to the single
// low-confidence whole-document chunk.
//
// EmbedPending sweeps chunks that have no embedding under the active
// model, generates vectors in bounded-concurrency batches, and persists
// whatever succeeded. Failures are counted and left pending rather than
// failing the sweep, so repeated runs converge.
package processor
