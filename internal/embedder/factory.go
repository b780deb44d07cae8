package embedder

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/weave-logic-ai/recall/pkg/types"
)

// Environment variables consulted by NewFromEnv
const (
	EnvProvider  = "RECALL_EMBEDDING_PROVIDER"
	EnvCacheSize = "RECALL_EMBEDDING_CACHE_SIZE"

	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Config holds explicit embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	CacheSize int
}

// New builds a Generator from explicit configuration
func New(cfg Config) (*Generator, error) {
	provider, err := newProvider(strings.ToLower(cfg.Provider), cfg.APIKey)
	if err != nil {
		return nil, err
	}
	return NewGenerator(provider, cfg.CacheSize)
}

// NewFromEnv builds a Generator from the environment. An explicit
// RECALL_EMBEDDING_PROVIDER wins; otherwise the first available API key
// selects the provider, falling back to the offline local provider.
func NewFromEnv() (*Generator, error) {
	cacheSize := 0
	if s := os.Getenv(EnvCacheSize); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: invalid %s %q", types.ErrConfig, EnvCacheSize, s)
		}
		cacheSize = n
	}

	name := strings.ToLower(os.Getenv(EnvProvider))
	if name == "" {
		name = detectProvider()
	}

	provider, err := newProvider(name, "")
	if err != nil {
		return nil, err
	}
	return NewGenerator(provider, cacheSize)
}

// DetectProvider reports which provider NewFromEnv would select
func DetectProvider() string {
	if name := strings.ToLower(os.Getenv(EnvProvider)); name != "" {
		return name
	}
	return detectProvider()
}

func detectProvider() string {
	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}

func newProvider(name, apiKey string) (Provider, error) {
	switch name {
	case ProviderJina:
		if apiKey == "" {
			apiKey = os.Getenv(EnvJinaAPIKey)
		}
		return NewJinaProvider(apiKey)
	case ProviderOpenAI:
		if apiKey == "" {
			apiKey = os.Getenv(EnvOpenAIAPIKey)
		}
		return NewOpenAIProvider(apiKey)
	case ProviderLocal:
		return NewLocalProvider(), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", types.ErrConfig, name)
	}
}
