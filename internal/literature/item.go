// Package literature scans RSS/Atom feeds and NewsAPI for recent items
// related to a problem statement.
package literature

import (
	"net/url"
	"strings"
	"time"
)

// Item is a recent publication matching a search.
type Item struct {
	Title     string
	URL       string
	Publisher string
	Published time.Time // zero when the source gives no date
	Summary   string
}

// Citation formats the item the way research sources are listed.
func (i Item) Citation() string {
	if i.Publisher == "" {
		return i.Title
	}
	return i.Publisher + " - " + i.Title
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(s)

	return strings.Join(strings.Fields(s), " ")
}

// publisherFromURL derives a display name from a feed host,
// e.g. https://www.nature.com/nature.rss -> "Nature".
func publisherFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds.", "export."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	if name == "" {
		return feedURL
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
