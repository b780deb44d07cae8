package embedder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/weave-logic-ai/recall/pkg/types"
)

// fakeProvider records calls and serves canned vectors
type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	batches [][]string
	failOn  string // texts containing this substring fail the whole batch
	vector  func(text string) []float32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		vector: func(text string) []float32 {
			return []float32{float32(len(text)), 3, 4}
		},
	}
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failOn != "" && strings.Contains(t, f.failOn) {
			return nil, fmt.Errorf("%w: synthetic failure", types.ErrProvider)
		}
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProvider) Dimension() int { return 3 }
func (f *fakeProvider) Name() string   { return "fake" }
func (f *fakeProvider) Model() string  { return "fake-model" }
func (f *fakeProvider) Close() error   { return nil }

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestContentHash(t *testing.T) {
	if ContentHash("alpha") != ContentHash("alpha") {
		t.Error("hash of identical text differs")
	}
	if ContentHash("alpha") == ContentHash("beta") {
		t.Error("hash of different texts collides")
	}
	if len(ContentHash("x")) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(ContentHash("x")))
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input []float32
	}{
		{"already unit", []float32{1, 0, 0}},
		{"pythagorean", []float32{3, 4}},
		{"negative components", []float32{-2, 5, -7}},
		{"tiny values", []float32{1e-5, 2e-5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			norm := vectorNorm(Normalize(tt.input))
			if math.Abs(norm-1.0) > 1e-6 {
				t.Errorf("norm = %v, want 1.0", norm)
			}
		})
	}

	zero := []float32{0, 0, 0}
	if got := Normalize(zero); vectorNorm(got) != 0 {
		t.Errorf("zero vector should stay zero, got %v", got)
	}
}

func TestGeneratorCacheIdempotence(t *testing.T) {
	provider := newFakeProvider()
	gen, err := NewGenerator(provider, 16)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	ctx := context.Background()
	first, err := gen.Embed(ctx, "the same text")
	if err != nil {
		t.Fatalf("first embed: %v", err)
	}
	second, err := gen.Embed(ctx, "the same text")
	if err != nil {
		t.Fatalf("second embed: %v", err)
	}

	if provider.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", provider.callCount())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d: %v vs %v", i, first[i], second[i])
		}
	}

	stats := gen.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit / 1 miss", stats)
	}
	if stats.Entries != 1 {
		t.Errorf("entries = %d, want 1", stats.Entries)
	}
}

func TestGeneratorCachedVectorIsACopy(t *testing.T) {
	gen, err := NewGenerator(newFakeProvider(), 16)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	ctx := context.Background()
	first, _ := gen.Embed(ctx, "mutate me")
	first[0] = 99

	second, _ := gen.Embed(ctx, "mutate me")
	if second[0] == 99 {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestGeneratorBatchDeduplicatesIdenticalText(t *testing.T) {
	provider := newFakeProvider()
	gen, err := NewGenerator(provider, 16)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	vectors, err := gen.EmbedBatch(context.Background(), []string{"dup", "other", "dup"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}
	for i, v := range vectors {
		if v == nil {
			t.Fatalf("vector %d is nil", i)
		}
	}

	if len(provider.batches) != 1 {
		t.Fatalf("provider saw %d batches, want 1", len(provider.batches))
	}
	if got := provider.batches[0]; len(got) != 2 {
		t.Errorf("provider saw texts %v, want the 2 unique ones", got)
	}
}

func TestGeneratorNormalizesProviderOutput(t *testing.T) {
	gen, err := NewGenerator(newFakeProvider(), 16)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	v, err := gen.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if norm := vectorNorm(v); math.Abs(norm-1.0) > 1e-6 {
		t.Errorf("returned vector norm = %v, want 1.0", norm)
	}
}

func TestEmbedBatchValidation(t *testing.T) {
	gen, err := NewGenerator(newFakeProvider(), 16)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	if _, err := gen.EmbedBatch(context.Background(), nil); !errors.Is(err, types.ErrInput) {
		t.Errorf("empty batch: got %v, want ErrInput", err)
	}
	if _, err := gen.EmbedBatch(context.Background(), []string{"ok", ""}); !errors.Is(err, types.ErrInput) {
		t.Errorf("empty text: got %v, want ErrInput", err)
	}
}

func TestLocalProviderDeterministic(t *testing.T) {
	p := NewLocalProvider()
	ctx := context.Background()

	a, err := p.EmbedBatch(ctx, []string{"hello world"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	b, err := p.EmbedBatch(ctx, []string{"hello world"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}

	if len(a[0]) != LocalDimension {
		t.Fatalf("dimension = %d, want %d", len(a[0]), LocalDimension)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("vectors differ at %d across runs", i)
		}
	}

	c, _ := p.EmbedBatch(ctx, []string{"different text"})
	same := true
	for i := range a[0] {
		if a[0][i] != c[0][i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}
}

func TestRetryWithBackoffEventualSuccess(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 1, MaxDelay: 10, Multiplier: 2}

	attempts := 0
	got, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("retryWithBackoff: %v", err)
	}
	if got != 42 || attempts != 3 {
		t.Errorf("got %d after %d attempts, want 42 after 3", got, attempts)
	}
}

func TestRetryWithBackoffExhaustion(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: 1, MaxDelay: 10, Multiplier: 2}

	sentinel := errors.New("always fails")
	attempts := 0
	_, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
		attempts++
		return 0, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("got %v, want the last error", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryWithBackoffCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultRetryConfig()
	_, err := retryWithBackoff(ctx, cfg, func() (int, error) {
		return 0, errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "quantum"})
	if !errors.Is(err, types.ErrConfig) {
		t.Errorf("got %v, want ErrConfig", err)
	}
}

func TestNewFromEnvDefaultsToLocal(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	gen, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	defer func() {
		_ = gen.Close()
	}()

	if gen.ProviderName() != ProviderLocal {
		t.Errorf("provider = %s, want %s", gen.ProviderName(), ProviderLocal)
	}
	if gen.Dimension() != LocalDimension {
		t.Errorf("dimension = %d, want %d", gen.Dimension(), LocalDimension)
	}
}

func TestDetectProviderPreference(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		jinaKey  string
		openai   string
		want     string
	}{
		{"explicit wins", ProviderOpenAI, "jk", "ok", ProviderOpenAI},
		{"jina key first", "", "jk", "ok", ProviderJina},
		{"openai key next", "", "", "ok", ProviderOpenAI},
		{"nothing set", "", "", "", ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvProvider, tt.explicit)
			t.Setenv(EnvJinaAPIKey, tt.jinaKey)
			t.Setenv(EnvOpenAIAPIKey, tt.openai)

			if got := DetectProvider(); got != tt.want {
				t.Errorf("DetectProvider() = %s, want %s", got, tt.want)
			}
		})
	}
}
