package processor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weave-logic-ai/recall/internal/chunker"
	"github.com/weave-logic-ai/recall/internal/embedder"
	"github.com/weave-logic-ai/recall/internal/storage"
	"github.com/weave-logic-ai/recall/pkg/types"
)

// ErrInFlight is returned when a document's source path is already being
// processed by another call
var ErrInFlight = errors.New("document is already being processed")

// StrategyFallback labels results where strategy selection failed and the
// document degraded to the single whole-document fallback chunk
const StrategyFallback chunker.Strategy = "fallback"

// Processor coordinates the ingestion pipeline: select strategy -> chunk ->
// enrich -> persist. Reprocessing a source path supersedes its prior chunks.
type Processor struct {
	store    storage.Storage
	embedder *embedder.Generator
	cfg      Config
	guard    *pathGuard
}

// Config contains processor configuration
type Config struct {
	// Chunking applies to every document; zero fields take the
	// per-strategy defaults
	Chunking chunker.Config

	// Batch controls embedding generation in EmbedPending
	Batch embedder.BatchConfig

	// Workers bounds concurrent document processing in ProcessAll
	// (default: runtime.NumCPU())
	Workers int
}

// Input is one document to process
type Input struct {
	Content    string
	SourcePath string

	// ContentType, when set, picks the chunking strategy directly instead
	// of the structural heuristics
	ContentType types.ContentType
}

// Result reports one processed document
type Result struct {
	DocumentID   string
	Chunks       []*types.Chunk
	StrategyUsed chunker.Strategy
	Stats        ProcessStats
}

// ProcessStats summarizes the work done for one document
type ProcessStats struct {
	ChunkCount int
	TokenCount int
	Duration   time.Duration
}

// ItemResult is the per-document outcome of a batch run. Exactly one of
// Result and Err is set.
type ItemResult struct {
	Index  int
	Result *Result
	Err    error
}

// EmbedReport summarizes an EmbedPending run
type EmbedReport struct {
	Requested int
	Embedded  int
	Failed    int
}

// String renders the partial-success summary, e.g. "18 of 20 chunks embedded"
func (r EmbedReport) String() string {
	if r.Failed == 0 {
		return fmt.Sprintf("%d of %d chunks embedded", r.Embedded, r.Requested)
	}
	return fmt.Sprintf("%d of %d chunks embedded, %d pending retry", r.Embedded, r.Requested, r.Failed)
}

// Stats aggregates corpus counts with embedding cache counters
type Stats struct {
	TotalDocuments  int       `json:"total_documents"`
	TotalChunks     int       `json:"total_chunks"`
	TotalEmbeddings int       `json:"total_embeddings"`
	CacheHits       uint64    `json:"cache_hits"`
	CacheMisses     uint64    `json:"cache_misses"`
	Models          []string  `json:"models,omitempty"`
	LastProcessed   time.Time `json:"last_processed,omitzero"`
	SchemaVersion   string    `json:"schema_version"`
	VectorBackend   string    `json:"vector_backend"`
	DatabaseSizeMB  float64   `json:"database_size_mb"`
}

// New creates a Processor. Configuration is validated eagerly so invalid
// settings fail here rather than mid-pipeline.
func New(store storage.Storage, gen *embedder.Generator, cfg Config) (*Processor, error) {
	if _, err := cfg.Chunking.Normalize(chunker.StrategySemanticBoundary); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Processor{
		store:    store,
		embedder: gen,
		cfg:      cfg,
		guard:    newPathGuard(),
	}, nil
}

// ProcessDocument chunks and persists one document. The previous chunk set
// for the same source path is superseded atomically. Degenerate input never
// fails: an empty document yields an empty chunk list, and a strategy
// selection failure degrades to the whole-document fallback chunk.
func (p *Processor) ProcessDocument(ctx context.Context, content, sourcePath string, contentType types.ContentType) (*Result, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("%w: source path required", types.ErrInput)
	}
	if !p.guard.TryAcquire(sourcePath) {
		return nil, fmt.Errorf("%w: %s", ErrInFlight, sourcePath)
	}
	defer p.guard.Release(sourcePath)

	start := time.Now()
	doc := &types.Document{
		ID:          chunker.DocumentID(sourcePath),
		SourcePath:  sourcePath,
		Content:     content,
		ContentType: contentType,
		CreatedAt:   start.UTC(),
	}

	chunks, strategy, err := p.chunk(doc)
	if err != nil {
		return nil, err
	}

	if err := p.store.UpsertDocument(ctx, doc); err != nil {
		return nil, err
	}
	if err := p.store.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return nil, err
	}

	tokens := 0
	for _, c := range chunks {
		tokens += c.TokenCount
	}
	return &Result{
		DocumentID:   doc.ID,
		Chunks:       chunks,
		StrategyUsed: strategy,
		Stats: ProcessStats{
			ChunkCount: len(chunks),
			TokenCount: tokens,
			Duration:   time.Since(start),
		},
	}, nil
}

// chunk runs strategy selection, chunking, and enrichment. Configuration
// errors propagate; strategy errors degrade to the fallback chunk.
func (p *Processor) chunk(doc *types.Document) ([]*types.Chunk, chunker.Strategy, error) {
	// Selection heuristics need the default keyword and delimiter sets
	// filled in before any strategy is known
	selCfg, err := p.cfg.Chunking.Normalize(chunker.StrategySemanticBoundary)
	if err != nil {
		return nil, "", err
	}

	strategy, err := chunker.Select(doc.Content, doc.ContentType, selCfg)
	if err != nil {
		if errors.Is(err, types.ErrConfig) {
			return nil, "", err
		}
		chunks := chunker.NewEnricher(selCfg).Enrich(doc, chunker.Fallback(doc))
		return chunks, StrategyFallback, nil
	}

	cfg, err := p.cfg.Chunking.Normalize(strategy)
	if err != nil {
		return nil, "", err
	}
	c, err := chunker.New(strategy, cfg)
	if err != nil {
		return nil, "", err
	}

	chunks := chunker.NewEnricher(cfg).Enrich(doc, c.Chunk(doc))
	return chunks, strategy, nil
}

// ProcessAll processes documents concurrently under the configured worker
// bound and reports per-item outcomes. One bad document never aborts its
// siblings; only context cancellation stops the run early.
func (p *Processor) ProcessAll(ctx context.Context, inputs []Input) []ItemResult {
	results := make([]ItemResult, len(inputs))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(p.cfg.Workers)

	for i, in := range inputs {
		results[i].Index = i
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			res, err := p.ProcessDocument(gctx, in.Content, in.SourcePath, in.ContentType)
			results[i].Result = res
			results[i].Err = err
			return nil
		})
	}

	_ = grp.Wait()
	return results
}

// EmbedRequest names one chunk's text for embedding
type EmbedRequest struct {
	ChunkID string
	Text    string
}

// GenerateAndStoreBatch embeds the requested texts and persists whatever
// succeeded under the active model. Failed items are counted in the report
// and skipped; siblings are unaffected.
func (p *Processor) GenerateAndStoreBatch(ctx context.Context, reqs []EmbedRequest) ([]*types.Embedding, *EmbedReport, error) {
	report := &EmbedReport{Requested: len(reqs)}
	if len(reqs) == 0 {
		return nil, report, nil
	}

	model := p.embedder.Model()
	texts := make([]string, len(reqs))
	for i, r := range reqs {
		texts[i] = r.Text
	}

	embeddings := make([]*types.Embedding, 0, len(reqs))
	for _, item := range p.embedder.EmbedAll(ctx, texts, p.cfg.Batch) {
		if item.Err != nil {
			report.Failed++
			continue
		}
		embeddings = append(embeddings, &types.Embedding{
			ChunkID:   reqs[item.Index].ChunkID,
			Vector:    item.Vector,
			Dimension: len(item.Vector),
			Model:     model,
		})
	}

	if len(embeddings) > 0 {
		if err := p.store.UpsertEmbeddings(ctx, embeddings); err != nil {
			return nil, nil, err
		}
	}
	report.Embedded = len(embeddings)
	return embeddings, report, nil
}

// EmbedPending generates and stores embeddings for every chunk that has
// none under the active model. Failed items are reported, not fatal; they
// stay pending for the next run.
func (p *Processor) EmbedPending(ctx context.Context) (*EmbedReport, error) {
	chunks, err := p.store.ListChunksMissingEmbeddings(ctx, p.embedder.Model(), 0)
	if err != nil {
		return nil, err
	}

	reqs := make([]EmbedRequest, len(chunks))
	for i, c := range chunks {
		reqs[i] = EmbedRequest{ChunkID: c.ID, Text: c.Content}
	}

	_, report, err := p.GenerateAndStoreBatch(ctx, reqs)
	return report, err
}

// Stats reports corpus counts plus embedding cache counters
func (p *Processor) Stats(ctx context.Context) (*Stats, error) {
	stored, err := p.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	cache := p.embedder.Stats()

	return &Stats{
		TotalDocuments:  stored.Documents,
		TotalChunks:     stored.Chunks,
		TotalEmbeddings: stored.Embeddings,
		CacheHits:       cache.Hits,
		CacheMisses:     cache.Misses,
		Models:          stored.Models,
		LastProcessed:   stored.LastProcessed,
		SchemaVersion:   stored.SchemaVersion,
		VectorBackend:   stored.VectorBackend,
		DatabaseSizeMB:  stored.DatabaseSizeMB,
	}, nil
}
