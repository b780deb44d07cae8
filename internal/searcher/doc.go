// Package searcher implements hybrid retrieval over stored chunks.
//
// A query is scored along two independent legs. The keyword leg runs the
// storage full-text index and yields a BM25-derived score in [0,1]. The
// vector leg embeds the query, scans stored embeddings for the active
// model, and yields cosine similarity rescaled to [0,1] via (cos+1)/2.
// The legs run concurrently and are fused per chunk:
//
//	combinedScore = ftsWeight*keywordScore + vectorWeight*vectorScore
//
// Weights are independent knobs and need not sum to one. The similarity
// threshold filters on the vector score in hybrid mode; in keyword-only
// mode it filters on the combined score instead, since no vector score
// exists. Final ordering is fully deterministic: combined score
// descending, then chunk creation time descending, then chunk ID.
//
// FindSimilarChunks reuses the vector leg seeded with a stored chunk's
// own embedding, excluding that chunk from its results.
//
// Results are ephemeral. Nothing in this package writes to storage, and
// repeated queries recompute from current data, so superseded chunks
// disappear from results as soon as their document is reprocessed.
package searcher
