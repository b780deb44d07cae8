// Package embedder turns chunk text into unit-length embedding vectors.
//
// A Provider is a thin transport to an embedding model: the Jina and OpenAI
// HTTP APIs, or a deterministic offline provider for development. The
// Generator wraps a Provider with the behavior every caller needs:
//
//   - every vector is normalized to unit length before it is returned or
//     cached
//   - results are cached in a bounded LRU keyed by a SHA-256 hash of the
//     input text, so identical text across different chunks is embedded
//     once
//   - cache hit/miss counters are exposed through Stats
//
// Bulk work goes through EmbedAll, which splits the input into provider
// batches, runs them under bounded concurrency, and retries transient
// failures with exponential backoff. A batch that exhausts its retries
// marks only its own items failed; sibling batches are unaffected, and the
// per-item report always covers every input.
//
// NewFromEnv selects a provider from the environment, preferring configured
// API keys and falling back to the offline local provider.
package embedder
