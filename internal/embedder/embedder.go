package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/weave-logic-ai/recall/pkg/types"
)

// DefaultCacheSize bounds the embedding cache when no size is configured
const DefaultCacheSize = 10000

// Provider computes raw embedding vectors for a batch of texts. Providers
// are stateless transports; caching and normalization live in the Generator.
type Provider interface {
	// EmbedBatch returns one vector per input text, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension this provider produces
	Dimension() int

	// Name identifies the provider
	Name() string

	// Model returns the model identifier embeddings are attributed to
	Model() string

	// Close releases provider resources
	Close() error
}

// CacheStats is a point-in-time snapshot of cache effectiveness
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// Generator wraps a Provider with unit normalization and an LRU cache keyed
// by content hash, so identical text across different chunks is embedded
// once. Eviction only costs recomputation; the cache is never a source of
// truth. Safe for concurrent use.
type Generator struct {
	provider Provider
	cache    *lru.Cache[string, []float32]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewGenerator builds a Generator over provider with a cache of at most
// cacheSize entries. A non-positive size falls back to DefaultCacheSize.
func NewGenerator(provider Provider, cacheSize int) (*Generator, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil embedding provider", types.ErrProvider)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("%w: create cache: %v", types.ErrProvider, err)
	}
	return &Generator{provider: provider, cache: cache}, nil
}

// Embed returns the unit-normalized embedding of text, from cache when the
// same content was embedded before.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in input order. Cached entries are served without
// a provider call; only the misses go to the provider, in one request.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts provided", types.ErrInput)
	}
	for i, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("%w: text at index %d is empty", types.ErrInput, i)
		}
	}

	vectors := make([][]float32, len(texts))
	missTexts := make([]string, 0, len(texts))

	// The same text may appear more than once in a batch; only the first
	// occurrence goes to the provider.
	pending := make(map[string][]int)

	for i, t := range texts {
		hash := ContentHash(t)
		if v, ok := g.cache.Get(hash); ok {
			g.hits.Add(1)
			vectors[i] = cloneVector(v)
			continue
		}
		g.misses.Add(1)
		if idxs, dup := pending[hash]; dup {
			pending[hash] = append(idxs, i)
			continue
		}
		pending[hash] = []int{i}
		missTexts = append(missTexts, t)
	}

	if len(missTexts) > 0 {
		raw, err := g.provider.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(raw) != len(missTexts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", types.ErrProvider, len(raw), len(missTexts))
		}
		for j, v := range raw {
			normalized := Normalize(v)
			hash := ContentHash(missTexts[j])
			g.cache.Add(hash, normalized)
			for _, i := range pending[hash] {
				vectors[i] = cloneVector(normalized)
			}
		}
	}

	return vectors, nil
}

// Stats returns the cache hit/miss counters and current entry count
func (g *Generator) Stats() CacheStats {
	return CacheStats{
		Hits:    g.hits.Load(),
		Misses:  g.misses.Load(),
		Entries: g.cache.Len(),
	}
}

// Dimension returns the underlying provider's vector dimension
func (g *Generator) Dimension() int { return g.provider.Dimension() }

// Model returns the underlying provider's model identifier
func (g *Generator) Model() string { return g.provider.Model() }

// ProviderName returns the underlying provider's name
func (g *Generator) ProviderName() string { return g.provider.Name() }

// Close releases the underlying provider
func (g *Generator) Close() error { return g.provider.Close() }

// ContentHash is the cache key for text: SHA-256, hex encoded
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Normalize scales v to unit length. A zero vector is returned unchanged
// since it has no direction to preserve.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
