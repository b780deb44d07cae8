package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/weave-logic-ai/recall/internal/token"
	"github.com/weave-logic-ai/recall/pkg/types"
)

func errUnknownStrategy(strategy Strategy) error {
	return fmt.Errorf("%w: unknown chunking strategy %q", types.ErrStrategy, strategy)
}

// declaredStrategies maps a declared content type to its chunker
var declaredStrategies = map[types.ContentType]Strategy{
	types.ContentTypeEpisodic:   StrategyEventBased,
	types.ContentTypeSemantic:   StrategySemanticBoundary,
	types.ContentTypeGeneric:    StrategySemanticBoundary,
	types.ContentTypePreference: StrategyPreferenceSignal,
	types.ContentTypeProcedural: StrategyStepBased,
	types.ContentTypeWorking:    StrategyPassthrough,
}

// Select chooses the chunking strategy for a document. A declared content
// type maps directly; otherwise structural heuristics run in priority order
// and the first match wins, falling back to semantic boundary detection.
// Selection depends only on its arguments, so the same document always gets
// the same strategy.
func Select(content string, declared types.ContentType, cfg Config) (Strategy, error) {
	if declared != "" {
		strategy, ok := declaredStrategies[declared]
		if !ok {
			return "", fmt.Errorf("%w: unknown content type %q", types.ErrStrategy, declared)
		}
		return strategy, nil
	}

	if countDelimiterMatches(content, cfg.StepDelimiters) >= 2 {
		return StrategyStepBased, nil
	}
	if decisionDensity(content, cfg.DecisionKeywords) > cfg.DecisionDensity {
		return StrategyPreferenceSignal, nil
	}
	if phaseHeadingPattern.MatchString(content) || taskCuePattern.MatchString(content) {
		return StrategyEventBased, nil
	}
	return StrategySemanticBoundary, nil
}

// ForDocument selects and constructs the chunker for doc in one call
func ForDocument(doc *types.Document, cfg Config) (Chunker, error) {
	strategy, err := Select(doc.Content, doc.ContentType, cfg)
	if err != nil {
		return nil, err
	}
	normalized, err := cfg.Normalize(strategy)
	if err != nil {
		return nil, err
	}
	return New(strategy, normalized)
}

// countDelimiterMatches counts step-delimiter hits across all patterns.
// A single numbered line is common in prose; two or more indicate a
// procedure.
func countDelimiterMatches(content string, patterns []string) int {
	n := 0
	for _, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			continue
		}
		n += len(re.FindAllStringIndex(content, -1))
	}
	return n
}

// decisionDensity is keyword matches per 100 tokens
func decisionDensity(content string, keywords []string) float64 {
	total := token.Count(content)
	if total == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matches := 0
	for _, kw := range keywords {
		matches += strings.Count(lower, strings.ToLower(kw))
	}
	return float64(matches) / float64(total) * 100
}
