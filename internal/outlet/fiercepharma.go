// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outlet

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/capacity-news/pkg/types"
)

const (
	fierceName    = "Fierce Pharma"
	fierceDomain  = "fiercepharma.com"
	fierceBaseURL = "https://www.fiercepharma.com"
)

// fierceFeeds lists candidate RSS endpoints; the first one that fetches wins.
var fierceFeeds = []string{
	"https://www.fiercepharma.com/rss/xml",
	"https://www.fiercepharma.com/rss.xml",
}

// FiercePharma discovers articles through the outlet's RSS feed.
type FiercePharma struct {
	fetch *Fetcher
	out   io.Writer

	// feeds is overridable for tests.
	feeds []string
}

// NewFiercePharma wires the Fierce Pharma adapter.
func NewFiercePharma(fetch *Fetcher, out io.Writer) *FiercePharma {
	return &FiercePharma{fetch: fetch, out: out, feeds: fierceFeeds}
}

func (f *FiercePharma) Name() string   { return fierceName }
func (f *FiercePharma) Domain() string { return fierceDomain }

// RSS feed XML structures.
type rssFeed struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

// Discover reads the RSS feed and returns items newer than cutoff. Feeds
// carry their full history in one document, so maxPages does not apply.
func (f *FiercePharma) Discover(ctx context.Context, cutoff time.Time, seen *SeenSet, maxPages int) ([]types.DiscoveryItem, error) {
	var (
		content []byte
		feedURL string
	)
	for _, candidate := range f.feeds {
		body, err := f.fetch.Raw(ctx, candidate)
		if err != nil {
			fmt.Fprintf(f.out, "  warning: feed %s failed: %v\n", candidate, err)
			continue
		}
		content, feedURL = body, candidate
		break
	}
	if content == nil {
		return nil, fmt.Errorf("no RSS feed reachable for %s", fierceName)
	}

	var feed rssFeed
	if err := xml.Unmarshal(content, &feed); err != nil {
		return nil, fmt.Errorf("parsing RSS feed %s: %w", feedURL, err)
	}
	fmt.Fprintf(f.out, "  found %d items in RSS feed\n", len(feed.Channel.Items))

	var discoveries []types.DiscoveryItem
	for _, item := range feed.Channel.Items {
		articleURL := CleanText(item.Link)
		if articleURL == "" {
			continue
		}
		if strings.HasPrefix(articleURL, "/") {
			articleURL = fierceBaseURL + articleURL
		}
		if seen.Has(articleURL) {
			continue
		}

		publishedAt, ok := ParseDate(item.PubDate)
		if !ok {
			fmt.Fprintf(f.out, "  warning: could not parse date %q for %s\n", item.PubDate, articleURL)
			continue
		}
		if publishedAt.Before(cutoff) {
			continue
		}

		discoveries = append(discoveries, types.DiscoveryItem{
			URL:         articleURL,
			Title:       CleanText(item.Title),
			PublishedAt: publishedAt,
			FeedURL:     feedURL,
		})
	}
	return discoveries, nil
}

// Parse extracts title, published date, and body text from an article page.
func (f *FiercePharma) Parse(ctx context.Context, articleURL string) (types.ParsedArticle, error) {
	doc, err := f.fetch.Page(ctx, articleURL)
	if err != nil {
		return types.ParsedArticle{}, err
	}

	published := ""
	if t, ok := ParseDate(publishedText(doc)); ok {
		published = FormatISO(t)
	}

	return types.ParsedArticle{
		Title:       SelectorText(doc, "h1", "header h1"),
		PublishedAt: published,
		Body: BodyText(doc,
			"article .article-body",
			"article .content",
			"article",
			".article-content",
			".content-body"),
	}, nil
}
