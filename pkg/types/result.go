package types

import "time"

// SearchQuery contains the parameters for a retrieval request
type SearchQuery struct {
	Query string
	Limit int

	// UseHybrid enables vector scoring in addition to keyword scoring
	UseHybrid bool

	// Score fusion weights. Independent knobs; they need not sum to 1.
	FTSWeight    float64
	VectorWeight float64

	// SimilarityThreshold filters results. In hybrid mode it applies to the
	// vector score; in keyword-only mode it applies to the combined score.
	SimilarityThreshold float64
}

// SearchResult is a single ranked retrieval hit. Results are ephemeral:
// computed per query, never persisted.
type SearchResult struct {
	ChunkID string

	// Scores, each normalized to [0,1]. VectorScore is rescaled from
	// cosine [-1,1] via (cos+1)/2.
	KeywordScore  float64
	VectorScore   float64
	CombinedScore float64

	Content   string
	Snippet   string
	CreatedAt time.Time
}

// Validate checks if the search result is well formed
func (sr *SearchResult) Validate() error {
	if sr.ChunkID == "" {
		return ErrInvalidChunkID
	}
	if sr.KeywordScore < 0 || sr.KeywordScore > 1 {
		return ErrInvalidScore
	}
	if sr.VectorScore < 0 || sr.VectorScore > 1 {
		return ErrInvalidScore
	}
	if sr.Content == "" {
		return ErrEmptyContent
	}
	return nil
}
