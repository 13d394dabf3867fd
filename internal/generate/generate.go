// Package generate turns a problem statement into three scored solution
// proposals using an LLM, with a deterministic demo set as fallback.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/solutionlab/internal/config"
	"github.com/TobiSchelling/solutionlab/internal/literature"
	"github.com/TobiSchelling/solutionlab/internal/llm"
)

// maxSearchTerms bounds terms reported when a model returns no review.
const maxSearchTerms = 6

// LiteratureScanner finds recent publications for a description.
type LiteratureScanner interface {
	Scan(ctx context.Context, description string) ([]literature.Item, error)
}

type Options struct {
	MaxTokens   int
	Temperature float64
	// FallbackOnError serves the demo set for upstream failures other than
	// rate limiting. When false those errors are returned to the caller.
	FallbackOnError bool
}

func OptionsFromConfig(cfg config.Generator) Options {
	return Options{
		MaxTokens:       cfg.MaxTokens,
		Temperature:     cfg.Temperature,
		FallbackOnError: cfg.FallbackOnError,
	}
}

// Generator produces solution proposals for problem descriptions.
type Generator struct {
	provider   llm.Provider
	configured bool
	scanner    LiteratureScanner
	opts       Options
	log        *zap.Logger
}

// New creates a Generator. provider and scanner may be nil; without a
// configured provider every call returns the fallback set.
func New(provider llm.Provider, scanner LiteratureScanner, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2000
	}
	return &Generator{
		provider:   provider,
		configured: provider != nil && provider.IsConfigured(),
		scanner:    scanner,
		opts:       opts,
		log:        logger,
	}
}

// Generate returns three proposals for description. Upstream problems
// resolve to the fallback set; only an empty description, cancellation
// of ctx, or (with FallbackOnError off) an upstream error is returned.
func (g *Generator) Generate(ctx context.Context, description string) (*Result, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	items, err := g.scanLiterature(ctx, description)
	if err != nil {
		return nil, err
	}

	if !g.configured {
		g.log.Info("no LLM provider configured, using fallback solutions")
		return Fallback(description, ReasonNoCredentials, items), nil
	}

	text, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      BuildPrompt(description, items),
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
		JSON:        true,
	})
	if err != nil {
		return g.handleUpstreamError(ctx, description, items, err)
	}

	proposals, review, err := ParseResponse(text)
	if err != nil {
		g.log.Warn("could not parse model response, using fallback solutions",
			zap.String("provider", g.provider.Name()), zap.Error(err))
		return Fallback(description, ReasonInvalidResponse, items), nil
	}

	if review == nil && len(items) > 0 {
		review = &LiteratureReview{SearchTerms: literature.SearchTerms(description, maxSearchTerms)}
	}
	if review != nil {
		review.ResearchSources = appendCitations(review.ResearchSources, items)
	}

	g.log.Info("generated solutions",
		zap.String("provider", g.provider.Name()),
		zap.Int("solutions", len(proposals)),
		zap.Int("literature_items", len(items)))

	return &Result{
		Solutions:        proposals,
		LiteratureReview: review,
		Source:           SourceModel,
		Provider:         g.provider.Name(),
	}, nil
}

func (g *Generator) handleUpstreamError(ctx context.Context, description string, items []literature.Item, err error) (*Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("generating solutions: %w", ctxErr)
	}

	switch {
	case llm.IsRateLimited(err):
		g.log.Warn("LLM quota exceeded, using fallback solutions", zap.Error(err))
		return Fallback(description, ReasonRateLimited, items), nil
	case errors.Is(err, llm.ErrNotConfigured):
		return Fallback(description, ReasonNoCredentials, items), nil
	case !g.opts.FallbackOnError:
		return nil, fmt.Errorf("generating solutions: %w", err)
	default:
		g.log.Warn("LLM request failed, using fallback solutions", zap.Error(err))
		return Fallback(description, ReasonUpstreamError, items), nil
	}
}

// scanLiterature never fails generation except on cancellation.
func (g *Generator) scanLiterature(ctx context.Context, description string) ([]literature.Item, error) {
	if g.scanner == nil {
		return nil, nil
	}
	items, err := g.scanner.Scan(ctx, description)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("scanning literature: %w", ctxErr)
		}
		g.log.Warn("literature scan failed", zap.Error(err))
		return nil, nil
	}
	return items, nil
}
