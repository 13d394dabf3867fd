package literature

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/solutionlab/internal/config"
)

const (
	maxPerFeed      = 20
	feedConcurrency = 4
)

// FeedSearcher matches recent entries of configured RSS/Atom feeds against
// search terms.
type FeedSearcher struct {
	feeds    []config.Feed
	daysBack int
	log      *zap.Logger
	now      func() time.Time
}

func NewFeedSearcher(feeds []config.Feed, daysBack int, logger *zap.Logger) *FeedSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedSearcher{feeds: feeds, daysBack: daysBack, log: logger, now: time.Now}
}

func (fs *FeedSearcher) Name() string { return "feeds" }

// Search fetches every feed concurrently. A feed that fails to load is
// logged and skipped.
func (fs *FeedSearcher) Search(ctx context.Context, terms []string) ([]Item, error) {
	if len(terms) == 0 || len(fs.feeds) == 0 {
		return nil, nil
	}
	cutoff := fs.now().AddDate(0, 0, -fs.daysBack)

	all := make([][]Item, len(fs.feeds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(feedConcurrency)
	for i, fc := range fs.feeds {
		g.Go(func() error {
			name := fc.Name
			if name == "" {
				name = publisherFromURL(fc.URL)
			}
			items, err := fs.parseFeed(ctx, fc.URL, name, terms, cutoff)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fs.log.Warn("failed to parse feed", zap.String("url", fc.URL), zap.Error(err))
				return nil
			}
			fs.log.Debug("feed searched", zap.String("feed", name), zap.Int("matches", len(items)))
			all[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Item
	for _, items := range all {
		out = append(out, items...)
	}
	return out, nil
}

func (fs *FeedSearcher) parseFeed(ctx context.Context, feedURL, publisher string, terms []string, cutoff time.Time) ([]Item, error) {
	feed, err := gofeed.NewParser().ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, entry := range feed.Items {
		if len(items) >= maxPerFeed {
			break
		}
		item, ok := parseItem(entry, publisher)
		if !ok {
			continue
		}
		if !item.Published.IsZero() && item.Published.Before(cutoff) {
			continue
		}
		if !matches(item.Title+" "+item.Summary, terms) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func parseItem(entry *gofeed.Item, publisher string) (Item, bool) {
	link := entry.Link
	if link == "" {
		link = entry.GUID
	}
	title := strings.TrimSpace(entry.Title)
	if link == "" || title == "" {
		return Item{}, false
	}

	var published time.Time
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	var summary string
	if entry.Description != "" {
		summary = stripHTML(entry.Description)
	} else if entry.Content != "" {
		summary = stripHTML(entry.Content)
	}

	return Item{
		Title:     title,
		URL:       link,
		Publisher: publisher,
		Published: published,
		Summary:   summary,
	}, true
}
