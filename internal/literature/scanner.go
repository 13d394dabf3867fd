package literature

import (
	"context"
	"os"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/solutionlab/internal/config"
)

// maxTerms bounds the keywords extracted from a description.
const maxTerms = 6

// Searcher is a single literature source.
type Searcher interface {
	Name() string
	Search(ctx context.Context, terms []string) ([]Item, error)
}

// Scanner fans a search out to every configured source and merges the results.
type Scanner struct {
	searchers []Searcher
	maxItems  int
	log       *zap.Logger
}

// New builds a Scanner from configuration. NewsAPI is included only when
// enabled and its key is present.
func New(cfg config.Literature, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	var searchers []Searcher
	if len(cfg.Feeds) > 0 {
		searchers = append(searchers, NewFeedSearcher(cfg.Feeds, cfg.DaysBack, logger))
	}
	if cfg.NewsAPI.Enabled {
		news := NewNewsAPISearcher(os.Getenv(cfg.NewsAPI.APIKeyEnv), cfg.NewsAPI.PageSize, cfg.DaysBack, logger)
		if news.IsConfigured() {
			searchers = append(searchers, news)
		} else {
			logger.Warn("newsapi enabled but key not set", zap.String("env", cfg.NewsAPI.APIKeyEnv))
		}
	}
	return NewScanner(searchers, cfg.MaxItems, logger)
}

func NewScanner(searchers []Searcher, maxItems int, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{searchers: searchers, maxItems: maxItems, log: logger}
}

// Enabled reports whether any source is configured.
func (s *Scanner) Enabled() bool {
	return s != nil && len(s.searchers) > 0
}

// Scan searches every source for items related to description. Individual
// source failures are logged; only cancellation of ctx is returned.
// Results are deduplicated by URL, newest first, capped at maxItems.
func (s *Scanner) Scan(ctx context.Context, description string) ([]Item, error) {
	terms := SearchTerms(description, maxTerms)
	if !s.Enabled() || len(terms) == 0 {
		return nil, nil
	}

	results := make([][]Item, len(s.searchers))
	g, gctx := errgroup.WithContext(ctx)
	for i, searcher := range s.searchers {
		g.Go(func() error {
			items, err := searcher.Search(gctx, terms)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.Warn("literature source failed", zap.String("source", searcher.Name()), zap.Error(err))
				return nil
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var merged []Item
	for _, items := range results {
		for _, item := range items {
			if _, dup := seen[item.URL]; dup {
				continue
			}
			seen[item.URL] = struct{}{}
			merged = append(merged, item)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Published.After(merged[j].Published)
	})
	if s.maxItems > 0 && len(merged) > s.maxItems {
		merged = merged[:s.maxItems]
	}
	return merged, nil
}
