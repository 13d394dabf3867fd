package literature

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPISearcher queries the NewsAPI "everything" endpoint.
type NewsAPISearcher struct {
	apiKey   string
	baseURL  string
	pageSize int
	daysBack int
	client   *http.Client
	log      *zap.Logger
	now      func() time.Time
}

func NewNewsAPISearcher(apiKey string, pageSize, daysBack int, logger *zap.Logger) *NewsAPISearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	return &NewsAPISearcher{
		apiKey:   apiKey,
		baseURL:  newsAPIBaseURL,
		pageSize: pageSize,
		daysBack: daysBack,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      logger,
		now:      time.Now,
	}
}

func (c *NewsAPISearcher) Name() string { return "newsapi" }

// IsConfigured returns whether the API key is available.
func (c *NewsAPISearcher) IsConfigured() bool {
	return c.apiKey != ""
}

// Search returns articles matching any of terms.
func (c *NewsAPISearcher) Search(ctx context.Context, terms []string) ([]Item, error) {
	if c.apiKey == "" || len(terms) == 0 {
		return nil, nil
	}

	now := c.now()
	params := url.Values{
		"q":        {strings.Join(terms, " OR ")},
		"from":     {now.AddDate(0, 0, -c.daysBack).Format("2006-01-02")},
		"to":       {now.Format("2006-01-02")},
		"language": {"en"},
		"pageSize": {strconv.Itoa(c.pageSize)},
		"sortBy":   {"relevancy"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating newsapi request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi returned %d", resp.StatusCode)
	}

	var result struct {
		Status   string `json:"status"`
		Articles []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			Description string `json:"description"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding newsapi response: %w", err)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q", result.Status)
	}

	var items []Item
	for _, a := range result.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}
		if a.Title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}

		var published time.Time
		if a.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
				published = t
			}
		}

		publisher := "NewsAPI"
		if a.Source.Name != "" {
			publisher = a.Source.Name
		}

		items = append(items, Item{
			Title:     strings.TrimSpace(a.Title),
			URL:       a.URL,
			Publisher: publisher,
			Published: published,
			Summary:   strings.TrimSpace(a.Description),
		})
	}

	c.log.Debug("newsapi searched", zap.Int("articles", len(items)), zap.Strings("terms", terms))
	return items, nil
}
