package searcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/weave-logic-ai/recall/internal/storage"
	"github.com/weave-logic-ai/recall/pkg/types"
)

// Query limits and fusion defaults applied when the caller leaves the
// corresponding SearchQuery fields zero.
const (
	DefaultLimit = 10
	MaxLimit     = 100

	DefaultFTSWeight    = 0.3
	DefaultVectorWeight = 0.7

	// snippetRadius is the number of bytes of context shown on each side
	// of the first query term match
	snippetRadius = 100
)

// Embedder is the slice of the embedding generator the searcher needs:
// one query -> one vector, plus the model identifier used to scope the
// stored embeddings it compares against.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Searcher ranks stored chunks against a query by fusing keyword and
// vector scores. Results are computed per query and never persisted.
type Searcher struct {
	store    storage.Storage
	embedder Embedder
}

// New creates a Searcher over the given storage and embedder
func New(store storage.Storage, emb Embedder) *Searcher {
	return &Searcher{store: store, embedder: emb}
}

// candidate accumulates per-chunk scores from the two retrieval legs
// before fusion. Both scores are normalized to [0,1]; a chunk missing
// from one leg keeps a zero score for it.
type candidate struct {
	keywordScore float64
	vectorScore  float64
	hasVector    bool
}

type textOutcome struct {
	results []storage.TextResult
	err     error
}

type vectorOutcome struct {
	results []storage.VectorResult
	err     error
}

// Search runs keyword retrieval, optionally fuses in vector retrieval,
// and returns ranked results.
//
// combinedScore = ftsWeight*keywordScore + vectorWeight*vectorScore, with
// the vector score rescaled from cosine [-1,1] to [0,1] via (cos+1)/2.
// The similarity threshold applies to the vector score in hybrid mode and
// to the combined score in keyword-only mode. Ordering is combined score
// descending, then chunk creation time descending, then chunk ID.
func (s *Searcher) Search(ctx context.Context, q types.SearchQuery) ([]types.SearchResult, error) {
	if err := normalizeQuery(&q); err != nil {
		return nil, err
	}

	if !q.UseHybrid {
		text, err := s.store.SearchText(ctx, q.Query, 0)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
		return s.rank(ctx, q, collect(text, nil))
	}

	// Run both legs concurrently. Each leg owns its buffered channel so
	// neither goroutine blocks if the other finishes first.
	textCh := make(chan textOutcome, 1)
	vecCh := make(chan vectorOutcome, 1)

	go func() {
		results, err := s.store.SearchText(ctx, q.Query, 0)
		textCh <- textOutcome{results: results, err: err}
	}()

	go func() {
		vector, err := s.embedder.Embed(ctx, q.Query)
		if err != nil {
			vecCh <- vectorOutcome{err: fmt.Errorf("embed query: %w", err)}
			return
		}
		results, err := s.store.SearchVector(ctx, vector, storage.VectorQuery{
			Threshold: rawCosineThreshold(q.SimilarityThreshold),
			Model:     s.embedder.Model(),
		})
		vecCh <- vectorOutcome{results: results, err: err}
	}()

	text := <-textCh
	vec := <-vecCh

	if text.err != nil && vec.err != nil {
		return nil, fmt.Errorf("hybrid search: keyword: %v; vector: %w", text.err, vec.err)
	}

	if vec.err != nil {
		// Vector leg unavailable, degrade to keyword-only semantics so
		// the threshold still means something.
		q.UseHybrid = false
		return s.rank(ctx, q, collect(text.results, nil))
	}
	if text.err != nil {
		return s.rank(ctx, q, collect(nil, vec.results))
	}

	cands := collect(text.results, vec.results)

	// Storage already filtered the vector leg by threshold; chunks found
	// only by keyword carry no vector score and fail any positive one.
	if q.SimilarityThreshold > 0 {
		for id, c := range cands {
			if !c.hasVector {
				delete(cands, id)
			}
		}
	}

	return s.rank(ctx, q, cands)
}

// FindSimilarChunks returns chunks nearest to the given chunk's stored
// embedding, excluding the chunk itself. The threshold applies to the
// rescaled vector score, same as hybrid search.
func (s *Searcher) FindSimilarChunks(ctx context.Context, chunkID string, limit int, threshold float64) ([]types.SearchResult, error) {
	if chunkID == "" {
		return nil, fmt.Errorf("%w: chunk ID required", types.ErrInput)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: similarity threshold %v outside [0,1]", types.ErrConfig, threshold)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	emb, err := s.store.GetEmbedding(ctx, chunkID, s.embedder.Model())
	if err != nil {
		return nil, fmt.Errorf("source chunk %s: %w", chunkID, err)
	}

	hits, err := s.store.SearchVector(ctx, emb.Vector, storage.VectorQuery{
		Threshold:      rawCosineThreshold(threshold),
		Model:          s.embedder.Model(),
		ExcludeChunkID: chunkID,
	})
	if err != nil {
		return nil, fmt.Errorf("similar chunks: %w", err)
	}

	q := types.SearchQuery{Limit: limit, UseHybrid: true, VectorWeight: 1}
	return s.rank(ctx, q, collect(nil, hits))
}

// collect merges the two result legs into per-chunk candidates
func collect(text []storage.TextResult, vec []storage.VectorResult) map[string]*candidate {
	cands := make(map[string]*candidate, len(text)+len(vec))
	for _, r := range text {
		cands[r.ChunkID] = &candidate{keywordScore: r.Score}
	}
	for _, r := range vec {
		c, ok := cands[r.ChunkID]
		if !ok {
			c = &candidate{}
			cands[r.ChunkID] = c
		}
		c.vectorScore = rescaleCosine(r.Similarity)
		c.hasVector = true
	}
	return cands
}

// rank fuses candidate scores, loads chunk content, sorts, and truncates
func (s *Searcher) rank(ctx context.Context, q types.SearchQuery, cands map[string]*candidate) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, 0, len(cands))
	for id, c := range cands {
		combined := q.FTSWeight*c.keywordScore + q.VectorWeight*c.vectorScore
		if !q.UseHybrid && combined < q.SimilarityThreshold {
			continue
		}

		chunk, err := s.store.GetChunk(ctx, id)
		if err != nil {
			// Superseded between scoring and loading, skip
			continue
		}

		results = append(results, types.SearchResult{
			ChunkID:       id,
			KeywordScore:  c.keywordScore,
			VectorScore:   c.vectorScore,
			CombinedScore: combined,
			Content:       chunk.Content,
			Snippet:       makeSnippet(chunk.Content, q.Query),
			CreatedAt:     chunk.CreatedAt,
		})
	}

	sortResults(results)
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func normalizeQuery(q *types.SearchQuery) error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: empty query", types.ErrInput)
	}
	if q.FTSWeight < 0 || q.VectorWeight < 0 {
		return fmt.Errorf("%w: negative fusion weight", types.ErrConfig)
	}
	if q.SimilarityThreshold < 0 || q.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold %v outside [0,1]", types.ErrConfig, q.SimilarityThreshold)
	}
	if q.FTSWeight == 0 && q.VectorWeight == 0 {
		q.FTSWeight = DefaultFTSWeight
		q.VectorWeight = DefaultVectorWeight
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return nil
}

// rescaleCosine maps cosine similarity [-1,1] onto [0,1]
func rescaleCosine(cos float64) float64 {
	return (cos + 1) / 2
}

// rawCosineThreshold inverts rescaleCosine so a [0,1] score threshold can
// be pushed down into the storage scan, which compares raw cosine values
func rawCosineThreshold(t float64) float64 {
	return 2*t - 1
}

func sortResults(results []types.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ChunkID < results[j].ChunkID
	})
}

// makeSnippet extracts a short excerpt around the first query term found
// in the content, or the content head when no term matches
func makeSnippet(content, query string) string {
	lower := strings.ToLower(content)
	at := -1
	for _, term := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if idx := strings.Index(lower, term); idx >= 0 && (at < 0 || idx < at) {
			at = idx
		}
	}

	start, end := 0, len(content)
	if at >= 0 {
		start = at - snippetRadius
		end = at + snippetRadius
	} else if end > 2*snippetRadius {
		end = 2 * snippetRadius
	}
	if start < 0 {
		start = 0
	}
	if end > len(content) {
		end = len(content)
	}

	// Snap to rune boundaries so multi-byte characters are never split
	for start > 0 && !isRuneStart(content[start]) {
		start--
	}
	for end < len(content) && !isRuneStart(content[end]) {
		end++
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}
	return snippet
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
