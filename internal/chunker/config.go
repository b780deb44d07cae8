package chunker

import (
	"fmt"

	"github.com/weave-logic-ai/recall/internal/token"
	"github.com/weave-logic-ai/recall/pkg/types"
)

// Default chunk sizing. Preference chunks are deliberately small: a decision
// plus its immediate context, not the surrounding discussion.
const (
	DefaultMaxTokens           = 512
	DefaultMinChunkSize        = 24
	DefaultContextWindowSize   = 32
	DefaultPreferenceMaxTokens = 128

	// DefaultDecisionDensity is decision-keyword matches per 100 tokens
	// above which undeclared content is treated as preference material
	DefaultDecisionDensity = 0.75
)

// DefaultDecisionKeywords are the markers the preference strategy and the
// selector scan for
var DefaultDecisionKeywords = []string{
	"decided", "decision", "chose", "chosen", "selected",
	"prefer", "preferred", "agreed", "opted", "went with", "instead of",
}

// DefaultStepDelimiters are regex patterns matching the start of a step
var DefaultStepDelimiters = []string{
	`(?m)^\s*\d+[.)]\s+`,
	`(?mi)^#{1,6}\s*step\s+\d+\b.*$`,
}

// Config parameterizes a chunking strategy. Zero values are filled from
// defaults by Normalize; invalid values are rejected by Validate before any
// processing begins.
type Config struct {
	// MaxTokens is the hard cap on chunk size. Only the designated
	// whole-document fallback chunk may exceed it.
	MaxTokens int

	// MinChunkSize is the floor below which a chunk is merged into an
	// adjacent chunk
	MinChunkSize int

	// Sliding-window boundary detection parameters
	WindowSize       int
	OverlapThreshold float64
	DebounceWindows  int

	// ContextWindowSize is the number of tokens of neighboring text the
	// enricher attaches on each side of a chunk
	ContextWindowSize int

	// DecisionKeywords mark preference/decision statements
	DecisionKeywords []string

	// DecisionDensity is the keyword-matches-per-100-tokens threshold the
	// selector uses when inferring preference content
	DecisionDensity float64

	// StepDelimiters are regex patterns marking step starts
	StepDelimiters []string
}

// DefaultConfig returns the documented defaults for strategy
func DefaultConfig(strategy Strategy) Config {
	cfg := Config{
		MaxTokens:         DefaultMaxTokens,
		MinChunkSize:      DefaultMinChunkSize,
		WindowSize:        token.DefaultWindowSize,
		OverlapThreshold:  token.DefaultOverlapThreshold,
		DebounceWindows:   token.DefaultDebounceWindows,
		ContextWindowSize: DefaultContextWindowSize,
		DecisionKeywords:  DefaultDecisionKeywords,
		DecisionDensity:   DefaultDecisionDensity,
		StepDelimiters:    DefaultStepDelimiters,
	}
	if strategy == StrategyPreferenceSignal {
		cfg.MaxTokens = DefaultPreferenceMaxTokens
	}
	return cfg
}

// Validate rejects invalid configuration eagerly, before any processing
func (c Config) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: maxTokens must be positive, got %d", types.ErrConfig, c.MaxTokens)
	}
	if c.MinChunkSize < 0 {
		return fmt.Errorf("%w: minChunkSize must be >= 0, got %d", types.ErrConfig, c.MinChunkSize)
	}
	if c.MinChunkSize >= c.MaxTokens {
		return fmt.Errorf("%w: minChunkSize %d must be below maxTokens %d", types.ErrConfig, c.MinChunkSize, c.MaxTokens)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: windowSize must be positive, got %d", types.ErrConfig, c.WindowSize)
	}
	if c.OverlapThreshold <= 0 || c.OverlapThreshold >= 1 {
		return fmt.Errorf("%w: overlapThreshold must be in (0,1), got %g", types.ErrConfig, c.OverlapThreshold)
	}
	if c.DebounceWindows < 1 {
		return fmt.Errorf("%w: debounceWindows must be >= 1, got %d", types.ErrConfig, c.DebounceWindows)
	}
	if c.ContextWindowSize < 0 {
		return fmt.Errorf("%w: contextWindowSize must be >= 0, got %d", types.ErrConfig, c.ContextWindowSize)
	}
	if c.DecisionDensity < 0 {
		return fmt.Errorf("%w: decisionDensity must be >= 0, got %g", types.ErrConfig, c.DecisionDensity)
	}
	return nil
}

// Normalize fills zero-valued fields from the strategy defaults and then
// validates the result
func (c Config) Normalize(strategy Strategy) (Config, error) {
	def := DefaultConfig(strategy)
	if c.MaxTokens == 0 {
		c.MaxTokens = def.MaxTokens
	}
	if c.MinChunkSize == 0 {
		c.MinChunkSize = def.MinChunkSize
	}
	if c.WindowSize == 0 {
		c.WindowSize = def.WindowSize
	}
	if c.OverlapThreshold == 0 {
		c.OverlapThreshold = def.OverlapThreshold
	}
	if c.DebounceWindows == 0 {
		c.DebounceWindows = def.DebounceWindows
	}
	if c.ContextWindowSize == 0 {
		c.ContextWindowSize = def.ContextWindowSize
	}
	if c.DecisionKeywords == nil {
		c.DecisionKeywords = def.DecisionKeywords
	}
	if c.DecisionDensity == 0 {
		c.DecisionDensity = def.DecisionDensity
	}
	if c.StepDelimiters == nil {
		c.StepDelimiters = def.StepDelimiters
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
