// ABOUTME: Maps free-text prompts to a tool call: scoring, selection, extraction.
// ABOUTME: Selection is deterministic; ties break by declaration order by default.

package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askbridge/askbridge/internal/registry"
)

// ErrEmptyPrompt indicates the prompt contained no routable text.
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// ErrNoMatchingTool indicates no tool cleared the confidence threshold.
var ErrNoMatchingTool = errors.New("no matching tool")

// ErrAmbiguousMatch indicates two or more tools tied above threshold and
// tie-breaking is disabled.
var ErrAmbiguousMatch = errors.New("ambiguous match")

// ErrIncompleteArguments indicates required parameters could not be
// extracted from the prompt.
var ErrIncompleteArguments = errors.New("incomplete arguments")

// Decision names the tool to invoke, the arguments extracted from the
// prompt, and the selection confidence. Never persisted.
type Decision struct {
	Tool       string
	Server     string
	Arguments  map[string]any
	Confidence float64
}

// TieBreak selects how equal top scores are resolved.
type TieBreak int

const (
	// TieBreakFirst resolves ties by declaration order: first registered wins.
	// This is the default; it makes repeated asks reproducible.
	TieBreakFirst TieBreak = iota
	// TieBreakError rejects ties with ErrAmbiguousMatch.
	TieBreakError
)

// Config contains the router's selection policy.
type Config struct {
	// MinConfidence is the score a tool must clear to be selected.
	MinConfidence float64
	TieBreak      TieBreak
}

// Router selects a tool for a prompt by composing a scorer with a selection
// policy, then extracts call arguments per the tool's parameter schema.
// Stateless per request; safe for concurrent use.
type Router struct {
	snapshot *registry.Snapshot
	scorer   Scorer
	cfg      Config
	logger   *slog.Logger
}

// New creates a Router over the given snapshot.
func New(snapshot *registry.Snapshot, scorer Scorer, cfg Config, logger *slog.Logger) *Router {
	if scorer == nil {
		scorer = NewKeywordScorer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		snapshot: snapshot,
		scorer:   scorer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Route picks the best-matching tool for the prompt and builds its call
// arguments. Fails with ErrNoMatchingTool, ErrAmbiguousMatch, or
// ErrIncompleteArguments.
func (r *Router) Route(prompt string) (Decision, error) {
	normalized := strings.TrimSpace(prompt)
	if normalized == "" || len(tokenize(normalized)) == 0 {
		return Decision{}, ErrEmptyPrompt
	}

	// Score every tool in declaration order. Iteration order matters: the
	// first tool holding the top score wins ties under TieBreakFirst.
	var best registry.ToolDescriptor
	bestScore := -1.0
	tied := 0

	for _, tool := range r.snapshot.List() {
		score := r.scorer.Score(normalized, tool)
		r.logger.Debug("scored tool",
			"tool", tool.Name,
			"server", tool.Server,
			"score", score,
		)

		switch {
		case score > bestScore:
			best = tool
			bestScore = score
			tied = 1
		case score == bestScore:
			tied++
		}
	}

	if bestScore <= 0 || bestScore < r.cfg.MinConfidence {
		r.logger.Info("no tool cleared threshold",
			"best_score", bestScore,
			"threshold", r.cfg.MinConfidence,
		)
		return Decision{}, fmt.Errorf("%w: best score %.2f below threshold %.2f",
			ErrNoMatchingTool, bestScore, r.cfg.MinConfidence)
	}

	if tied > 1 && r.cfg.TieBreak == TieBreakError {
		return Decision{}, fmt.Errorf("%w: %d tools scored %.2f", ErrAmbiguousMatch, tied, bestScore)
	}

	args, err := extractArguments(normalized, best)
	if err != nil {
		return Decision{}, err
	}

	r.logger.Info("routed prompt",
		"tool", best.Name,
		"server", best.Server,
		"confidence", bestScore,
		"tied", tied,
	)

	return Decision{
		Tool:       best.Name,
		Server:     best.Server,
		Arguments:  args,
		Confidence: bestScore,
	}, nil
}
