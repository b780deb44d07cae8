package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/weave-logic-ai/recall/pkg/types"
)

// ErrNotFound is returned when a requested entity doesn't exist
var ErrNotFound = fmt.Errorf("%w: not found", types.ErrStorage)

// Storage persists documents, chunks, and embeddings, and serves the
// keyword and vector retrieval primitives hybrid search is built on.
type Storage interface {
	// Document operations
	UpsertDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, sourcePath string) (*types.Document, error)

	// Chunk operations. ReplaceChunks supersedes a document's previous
	// chunk set atomically: old chunks and their embeddings are removed
	// and the new set inserted in one transaction.
	ReplaceChunks(ctx context.Context, documentID string, chunks []*types.Chunk) error
	GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error)
	ListChunksByDocument(ctx context.Context, documentID string) ([]*types.Chunk, error)

	// ListChunksMissingEmbeddings returns up to limit chunks that have no
	// embedding under model, oldest first. A limit <= 0 means no limit.
	ListChunksMissingEmbeddings(ctx context.Context, model string, limit int) ([]*types.Chunk, error)

	// Embedding operations. Upserts are last-write-wins per
	// (chunk id, model). UpsertEmbeddings writes the whole batch in one
	// transaction.
	UpsertEmbedding(ctx context.Context, emb *types.Embedding) error
	UpsertEmbeddings(ctx context.Context, embs []*types.Embedding) error
	GetEmbedding(ctx context.Context, chunkID, model string) (*types.Embedding, error)

	// Search primitives
	SearchText(ctx context.Context, query string, limit int) ([]TextResult, error)
	SearchVector(ctx context.Context, vector []float32, opts VectorQuery) ([]VectorResult, error)

	// Stats reports corpus-level counts
	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// VectorQuery parameterizes a similarity scan
type VectorQuery struct {
	// Limit bounds the result count; <= 0 returns all matches
	Limit int

	// Threshold drops results with cosine similarity below it
	Threshold float64

	// Model restricts the scan to embeddings under one model identifier
	Model string

	// ExcludeChunkID removes one chunk from the results, used by
	// similar-chunk lookups to drop the source chunk
	ExcludeChunkID string
}

// TextResult is one keyword search hit with its normalized score in [0,1]
type TextResult struct {
	ChunkID string
	Score   float64
}

// VectorResult is one similarity search hit. Similarity is raw cosine in
// [-1,1]; rescaling to [0,1] happens at the search layer.
type VectorResult struct {
	ChunkID    string
	Similarity float64
}

// Stats summarizes the persisted corpus
type Stats struct {
	Documents      int       `json:"documents"`
	Chunks         int       `json:"chunks"`
	Embeddings     int       `json:"embeddings"`
	Models         []string  `json:"models,omitempty"`
	LastProcessed  time.Time `json:"last_processed,omitzero"`
	SchemaVersion  string    `json:"schema_version"`
	VectorBackend  string    `json:"vector_backend"`
	DatabasePath   string    `json:"database_path"`
	DatabaseSizeMB float64   `json:"database_size_mb"`
}
