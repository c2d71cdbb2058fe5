// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outlet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/capacity-news/pkg/types"
)

const (
	bpiName    = "BioProcess International"
	bpiDomain  = "bioprocessintl.com"
	bpiBaseURL = "https://www.bioprocessintl.com"
)

// BioProcessIntl discovers articles from the facilities-capacity listing.
type BioProcessIntl struct {
	fetch *Fetcher
	out   io.Writer

	// listingURL is overridable for tests.
	listingURL string
}

// NewBioProcessIntl wires the BioProcess International adapter.
func NewBioProcessIntl(fetch *Fetcher, out io.Writer) *BioProcessIntl {
	return &BioProcessIntl{
		fetch:      fetch,
		out:        out,
		listingURL: bpiBaseURL + "/bioprocess-insider/facilities-capacity",
	}
}

func (b *BioProcessIntl) Name() string   { return bpiName }
func (b *BioProcessIntl) Domain() string { return bpiDomain }

// Discover pages through the listing, stopping at maxPages, on an empty
// page, or once a full page of results is entirely older than cutoff.
func (b *BioProcessIntl) Discover(ctx context.Context, cutoff time.Time, seen *SeenSet, maxPages int) ([]types.DiscoveryItem, error) {
	var discoveries []types.DiscoveryItem

	for page := 1; page <= maxPages; page++ {
		doc, err := b.fetch.Page(ctx, fmt.Sprintf("%s?page=%d", b.listingURL, page))
		if err != nil {
			if page == 1 {
				return nil, err
			}
			fmt.Fprintf(b.out, "  warning: listing page %d failed: %v\n", page, err)
			break
		}

		container := doc.Find(`[data-template="list-content"]`).First()
		scope := container
		if container.Length() == 0 {
			scope = doc.Selection
		}

		var pageItems []types.DiscoveryItem
		scope.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			href, _ := link.Attr("href")
			if !strings.Contains(href, "/facilities-capacity/") {
				return
			}
			href = absoluteURL(bpiBaseURL, href)
			if seen.Has(href) {
				return
			}

			card := link.Closest(`article, div[class*="ContentCard"], div[class*="ContentPreview"]`)
			title := ""
			dateText := ""
			if card.Length() > 0 {
				title = CleanText(card.Find(".ContentCard-Title").First().Text())
				dateText = CleanText(card.Find(".ContentCard-Date").First().Text())
			}
			if title == "" {
				title = CleanText(link.Text())
			}

			item := types.DiscoveryItem{URL: href, Title: title}
			if t, ok := ParseDate(dateText); ok {
				item.PublishedAt = t
			}
			pageItems = append(pageItems, item)
		})

		if len(pageItems) == 0 {
			break
		}
		discoveries = append(discoveries, pageItems...)

		if allOlderThan(pageItems, cutoff) {
			break
		}
	}
	return discoveries, nil
}

// allOlderThan reports whether every item carries a parsed date earlier
// than cutoff. Undated items keep pagination going.
func allOlderThan(items []types.DiscoveryItem, cutoff time.Time) bool {
	for _, item := range items {
		if item.PublishedAt.IsZero() || !item.PublishedAt.Before(cutoff) {
			return false
		}
	}
	return true
}

// absoluteURL joins a possibly relative href against the outlet base.
func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return base + "/" + strings.TrimPrefix(href, "/")
}

// Parse extracts the article. The published date falls back to JSON-LD
// metadata, and the body falls back to the streamed-payload extractor when
// selector-based extraction yields nothing usable.
func (b *BioProcessIntl) Parse(ctx context.Context, articleURL string) (types.ParsedArticle, error) {
	doc, err := b.fetch.Page(ctx, articleURL)
	if err != nil {
		return types.ParsedArticle{}, err
	}

	title := SelectorText(doc, "h1", "header h1")

	published, ok := ParseDate(publishedText(doc))
	if !ok {
		if t, found := jsonLDDate(doc); found {
			published, ok = t, true
		}
	}
	publishedStr := ""
	if ok {
		publishedStr = FormatISO(published)
	}

	body := BodyText(doc,
		"article .article-body",
		"article .content",
		"article",
		".article-content",
		".content-body")
	if len(body) < 200 {
		if streamed := streamedBody(doc, title); streamed != "" {
			body = streamed
		}
	}

	return types.ParsedArticle{Title: title, PublishedAt: publishedStr, Body: body}, nil
}

// jsonLDDate pulls datePublished out of any ld+json script on the page.
func jsonLDDate(doc *goquery.Document) (time.Time, bool) {
	var result time.Time
	found := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(script.Text()), &payload); err != nil {
			return true
		}
		entries, isList := payload.([]any)
		if !isList {
			entries = []any{payload}
		}
		for _, entry := range entries {
			obj, isMap := entry.(map[string]any)
			if !isMap {
				continue
			}
			datePublished, _ := obj["datePublished"].(string)
			if datePublished == "" {
				continue
			}
			if t, ok := ParseDate(datePublished); ok {
				result, found = t, true
				return false
			}
		}
		return true
	})
	return result, found
}

var enqueuePattern = regexp.MustCompile(`(?s)enqueue\("(.*)"\)`)

// streamedBody recovers article text from the client-side streaming payload
// some BioProcess pages ship instead of server-rendered paragraphs. The
// payload is an escaped JSON blob; candidate strings are filtered down to
// prose and, when possible, to fragments sharing vocabulary with the title.
func streamedBody(doc *goquery.Document, title string) string {
	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), "streamController.enqueue") {
			script = s.Text()
			return false
		}
		return true
	})
	if script == "" {
		return ""
	}

	m := enqueuePattern.FindStringSubmatch(script)
	if m == nil {
		return ""
	}

	unescaped, err := strconv.Unquote(`"` + m[1] + `"`)
	if err != nil {
		return ""
	}
	var payload any
	if err := json.Unmarshal([]byte(unescaped), &payload); err != nil {
		return ""
	}

	var candidates []string
	walkStrings(payload, &candidates)

	var cleaned []string
	for _, text := range candidates {
		if len(text) < 80 || strings.Contains(text, "mailto:") || strings.Contains(text, "http") {
			continue
		}
		if strings.Count(text, " ") < 8 {
			continue
		}
		cleaned = append(cleaned, CleanText(text))
	}
	if len(cleaned) == 0 {
		return ""
	}

	filtered := cleaned
	if title != "" {
		withoutTitle := make([]string, 0, len(cleaned))
		for _, text := range cleaned {
			if !strings.Contains(text, title) {
				withoutTitle = append(withoutTitle, text)
			}
		}
		filtered = withoutTitle

		if keywords := titleKeywords(title); len(keywords) > 0 {
			var hits []string
			for _, text := range filtered {
				lowered := strings.ToLower(text)
				for _, k := range keywords {
					if strings.Contains(lowered, k) {
						hits = append(hits, text)
						break
					}
				}
			}
			if len(hits) > 0 {
				filtered = hits
			}
		}
		if len(filtered) == 0 {
			filtered = cleaned
		}
	}

	return strings.Join(filtered, " ")
}

// walkStrings collects every string value in a decoded JSON structure.
func walkStrings(value any, out *[]string) {
	switch v := value.(type) {
	case string:
		*out = append(*out, v)
	case []any:
		for _, item := range v {
			walkStrings(item, out)
		}
	case map[string]any:
		for _, item := range v {
			walkStrings(item, out)
		}
	}
}

var wordPattern = regexp.MustCompile(`[A-Za-z]{3,}`)

var keywordStopwords = map[string]struct{}{
	"from": {}, "deal": {}, "with": {}, "into": {}, "will": {}, "this": {},
	"that": {}, "acquire": {}, "acquires": {}, "acquisition": {},
}

// titleKeywords extracts lowercase content words from a title for matching
// streamed fragments against the article subject.
func titleKeywords(title string) []string {
	var keywords []string
	for _, word := range wordPattern.FindAllString(title, -1) {
		lowered := strings.ToLower(word)
		if _, stop := keywordStopwords[lowered]; stop {
			continue
		}
		keywords = append(keywords, lowered)
	}
	return keywords
}
