package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ContentType classifies a document and drives chunking strategy selection
type ContentType string

const (
	ContentTypeEpisodic   ContentType = "episodic"   // event/phase narratives
	ContentTypeSemantic   ContentType = "semantic"   // conceptual prose
	ContentTypePreference ContentType = "preference" // decisions and tradeoffs
	ContentTypeProcedural ContentType = "procedural" // step-by-step instructions
	ContentTypeWorking    ContentType = "working"    // scratch state, kept whole
	ContentTypeGeneric    ContentType = "generic"    // anything else
)

// ValidContentType reports whether ct is a recognized content type
func ValidContentType(ct ContentType) bool {
	switch ct {
	case ContentTypeEpisodic, ContentTypeSemantic, ContentTypePreference,
		ContentTypeProcedural, ContentTypeWorking, ContentTypeGeneric:
		return true
	}
	return false
}

// Document is an ingested source text. Documents are immutable once created;
// reprocessing produces a new chunk set that supersedes the old one.
type Document struct {
	ID          string
	SourcePath  string
	Content     string
	ContentType ContentType
	CreatedAt   time.Time
}

// ChunkMetadata carries strategy-specific annotations for a chunk.
// It is serialized to JSON in the metadata column of the chunk record.
type ChunkMetadata struct {
	// Context windows around the chunk boundary, bounded by document edges
	ContextBefore string `json:"context_before,omitempty"`
	ContextAfter  string `json:"context_after,omitempty"`

	// Confidence in the boundary decision, in [0,1]
	Confidence float64 `json:"confidence"`

	// Temporal chain links (event-based strategy)
	PrevChunkID string `json:"prev_chunk_id,omitempty"`
	NextChunkID string `json:"next_chunk_id,omitempty"`

	// Prerequisite step chunk IDs (step-based strategy)
	Prerequisites []string `json:"prerequisites,omitempty"`

	// Declared outcome annotation (step-based strategy)
	Outcome string `json:"outcome,omitempty"`

	// Alternative options captured near a decision marker (preference strategy)
	Alternatives []string `json:"alternatives,omitempty"`

	// Fallback marks a whole-document chunk produced when a strategy could
	// not find usable boundaries. Fallback chunks are exempt from the
	// maxTokens bound and are always low confidence.
	Fallback bool `json:"fallback,omitempty"`
}

// Chunk is a bounded span of a document treated as a unit for embedding
// and retrieval
type Chunk struct {
	// Identification
	ID         string
	DocumentID string

	// Content
	Content    string
	TokenCount int

	// Span into the source document, byte offsets [StartOffset, EndOffset)
	StartOffset int
	EndOffset   int

	// Total order within the owning document
	SequenceIndex int

	ContentType ContentType
	Metadata    ChunkMetadata
	CreatedAt   time.Time
}

// ContentHash returns the SHA-256 hex digest of the chunk content.
// Identical text across different chunks hashes identically, which is what
// lets the embedding cache deduplicate by content rather than by chunk ID.
func (c *Chunk) ContentHash() string {
	h := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(h[:])
}

// Validate performs structural validation of the chunk
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID is required")
	}
	if c.DocumentID == "" {
		return errors.New("document ID is required")
	}
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.StartOffset < 0 || c.EndOffset < c.StartOffset {
		return errors.New("invalid chunk span")
	}
	if c.SequenceIndex < 0 {
		return errors.New("sequence index must be >= 0")
	}
	if !ValidContentType(c.ContentType) {
		return errors.New("invalid content type")
	}
	return nil
}

// Embedding is a unit-normalized vector for a chunk under a specific model.
// One active embedding exists per (chunk, model) pair.
type Embedding struct {
	ID        int64
	ChunkID   string
	Vector    []float32
	Dimension int
	Model     string
	CreatedAt time.Time
}
