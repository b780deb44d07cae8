// Package types defines the core data model shared across the engine:
// documents, chunks and their metadata, embeddings, search queries, and
// search results, together with the error taxonomy.
//
// A Document is immutable once ingested. Processing it yields an ordered,
// non-overlapping set of Chunks (modulo a configured context window), each
// carrying strategy-specific metadata. Chunks are embedded once per model
// and retrieved through hybrid keyword + vector search.
//
// Lifecycle of a chunk:
//
//	Created -> Enriched -> Embedded -> Indexed -> Superseded (on reprocess)
//
// SearchResults are ephemeral and never persisted.
package types
