package embedder

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/weave-logic-ai/recall/pkg/types"
)

// Batch processing defaults
const (
	DefaultBatchSize     = 50
	DefaultMaxConcurrent = 4
)

// BatchConfig bounds a bulk embedding run: provider requests hold at most
// BatchSize texts and at most MaxConcurrent requests are in flight at once.
type BatchConfig struct {
	BatchSize     int
	MaxConcurrent int
	Retry         RetryConfig
}

// DefaultBatchConfig returns the documented batch defaults
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		BatchSize:     DefaultBatchSize,
		MaxConcurrent: DefaultMaxConcurrent,
		Retry:         DefaultRetryConfig(),
	}
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = DefaultRetryConfig()
	}
	return c
}

// ItemResult reports the outcome of embedding one input text. A failed item
// carries its error; its siblings are unaffected.
type ItemResult struct {
	Index  int
	Vector []float32
	Err    error
}

// EmbedAll embeds texts in batches under bounded concurrency. Exhausted
// retries mark the affected items failed without aborting the run, so the
// result always holds one entry per input, in input order. Cancellation is
// honored between batches: batches not yet dispatched fail with the context
// error, in-flight batches complete.
func (g *Generator) EmbedAll(ctx context.Context, texts []string, cfg BatchConfig) []ItemResult {
	cfg = cfg.withDefaults()

	results := make([]ItemResult, len(texts))
	for i := range results {
		results[i].Index = i
	}

	// Empty texts fail individually up front and never reach the provider
	todo := make([]int, 0, len(texts))
	for i, t := range texts {
		if t == "" {
			results[i].Err = fmt.Errorf("%w: empty text", types.ErrInput)
			continue
		}
		todo = append(todo, i)
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(cfg.MaxConcurrent)

	for start := 0; start < len(todo); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(todo) {
			end = len(todo)
		}
		indices := todo[start:end]

		// Cooperative cancellation point between batches
		if err := ctx.Err(); err != nil {
			for _, i := range indices {
				results[i].Err = err
			}
			continue
		}

		grp.Go(func() error {
			batch := make([]string, len(indices))
			for j, i := range indices {
				batch[j] = texts[i]
			}

			vectors, err := retryWithBackoff(grpCtx, cfg.Retry, func() ([][]float32, error) {
				return g.EmbedBatch(grpCtx, batch)
			})
			if err != nil {
				// Errors from EmbedBatch already carry the taxonomy sentinel
				for _, i := range indices {
					results[i].Err = err
				}
				return nil // partial failure, keep sibling batches running
			}

			// Disjoint index sets per batch, no locking needed
			for j, i := range indices {
				results[i].Vector = vectors[j]
			}
			return nil
		})
	}

	_ = grp.Wait()
	return results
}
