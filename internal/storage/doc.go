// Package storage persists documents, chunks, and embeddings in SQLite and
// serves the retrieval primitives behind hybrid search.
//
// # Schema
//
// Three tables plus an FTS5 index:
//
//   - documents: one row per ingested source path
//   - chunks: the active chunk set per document, metadata as JSON
//   - embeddings: one vector per (chunk, model), stored as a little-endian
//     float32 blob
//   - chunks_fts: external-content FTS5 index over chunk content, kept in
//     sync by triggers
//
// ReplaceChunks supersedes a document's previous chunk set in one
// transaction; foreign key cascades remove the superseded embeddings with
// their chunks. Embedding upserts are last-write-wins per (chunk, model).
//
// # Drivers
//
// Two build configurations share this package:
//
//   - cgo + sqlite_vec tag: github.com/mattn/go-sqlite3 with the sqlite-vec
//     extension, similarity computed in SQL
//   - default / purego: modernc.org/sqlite, similarity computed by a full
//     scan in Go
//
// The scan path is O(n) per query, which is the documented tradeoff at the
// target corpus scale. Both paths apply the same threshold, ordering, and
// tie-break rules, so results are identical apart from speed.
//
// # Migrations
//
// Schema changes ship as versioned SQL migrations compared with semver;
// opening a database applies anything newer than its recorded version.
package storage
