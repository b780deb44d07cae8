package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/weave-logic-ai/recall/pkg/types"
)

const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "local-hash-v1"

	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	jinaEndpoint   = "https://api.jina.ai/v1/embeddings"
	openAIEndpoint = "https://api.openai.com/v1/embeddings"

	providerTimeout = 30 * time.Second
)

// httpProvider talks to an OpenAI-compatible embeddings endpoint. Jina and
// OpenAI share the request/response shape and differ only in endpoint,
// model, and dimension.
type httpProvider struct {
	name      string
	endpoint  string
	apiKey    string
	model     string
	dimension int
	client    *http.Client
}

// NewJinaProvider returns a Provider backed by the Jina embeddings API
func NewJinaProvider(apiKey string) (Provider, error) {
	return newHTTPProvider(ProviderJina, jinaEndpoint, apiKey, DefaultJinaModel, JinaDimension)
}

// NewOpenAIProvider returns a Provider backed by the OpenAI embeddings API
func NewOpenAIProvider(apiKey string) (Provider, error) {
	return newHTTPProvider(ProviderOpenAI, openAIEndpoint, apiKey, DefaultOpenAIModel, OpenAIDimension)
}

func newHTTPProvider(name, endpoint, apiKey, model string, dimension int) (*httpProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no API key for provider %s", types.ErrConfig, name)
	}
	return &httpProvider{
		name:      name,
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		client:    &http.Client{Timeout: providerTimeout},
	}, nil
}

func (p *httpProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{
		"input": texts,
		"model": p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s call: %v", types.ErrProvider, p.name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s returned %d: %s", types.ErrProvider, p.name, resp.StatusCode, msg)
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", types.ErrProvider, p.name, err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d texts", types.ErrProvider, p.name, len(apiResp.Data), len(texts))
	}

	// Responses may arrive out of order; the index field is authoritative
	vectors := make([][]float32, len(texts))
	for _, d := range apiResp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: %s returned index %d out of range", types.ErrProvider, p.name, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (p *httpProvider) Dimension() int { return p.dimension }
func (p *httpProvider) Name() string   { return p.name }
func (p *httpProvider) Model() string  { return p.model }

func (p *httpProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// LocalProvider derives vectors from a keyed expansion of the text's
// SHA-256 digest. The vectors carry no semantic signal but are stable
// across runs, which keeps the pipeline fully offline for development and
// deterministic for tests.
type LocalProvider struct {
	model string
}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{model: DefaultLocalModel}
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = localVector(text)
	}
	return vectors, nil
}

// localVector expands the text digest into LocalDimension components,
// centered on zero so cosine similarities spread over [-1, 1]
func localVector(text string) []float32 {
	seed := sha256.Sum256([]byte(text))
	v := make([]float32, LocalDimension)

	block := seed[:]
	for i := 0; i < LocalDimension; i++ {
		if i%8 == 0 && i > 0 {
			next := sha256.Sum256(block)
			block = next[:]
		}
		bits := binary.LittleEndian.Uint32(block[(i%8)*4 : (i%8)*4+4])
		v[i] = float32(bits)/float32(1<<31) - 1.0
	}
	return v
}

func (l *LocalProvider) Dimension() int { return LocalDimension }
func (l *LocalProvider) Name() string   { return ProviderLocal }
func (l *LocalProvider) Model() string  { return l.model }
func (l *LocalProvider) Close() error   { return nil }
