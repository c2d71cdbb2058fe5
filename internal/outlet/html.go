// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outlet

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/capacity-news/internal/httputil"
)

// Fetcher wraps the shared HTTP client and retry policy for page loads.
type Fetcher struct {
	Client  *http.Client
	Retries int
}

// Raw fetches a URL and returns the response bytes.
func (f *Fetcher) Raw(ctx context.Context, url string) ([]byte, error) {
	return httputil.FetchHTML(ctx, f.Client, url, f.Retries)
}

// Page fetches a URL and parses it into a goquery document.
func (f *Fetcher) Page(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.Raw(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}
	return doc, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanText collapses whitespace runs into single spaces and trims.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// SelectorText returns the cleaned text of the first selector that matches
// a non-empty node. Meta tags contribute their content attribute.
func SelectorText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if goquery.NodeName(node) == "meta" {
			if content, ok := node.Attr("content"); ok && content != "" {
				return CleanText(content)
			}
			continue
		}
		if text := CleanText(node.Text()); text != "" {
			return text
		}
	}
	return ""
}

// BodyText joins the paragraph text under the first matching container.
// Articles without paragraph markup fall through to the next selector.
func BodyText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		var paragraphs []string
		node.Find("p").Each(func(_ int, p *goquery.Selection) {
			if text := CleanText(p.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, " ")
		}
	}
	return ""
}

// publishedText extracts the raw published-date string from an article
// page: a time element's datetime attribute, then its text, then the
// article:published_time meta tag.
func publishedText(doc *goquery.Document) string {
	timeTag := doc.Find("time").First()
	if timeTag.Length() > 0 {
		if dt, ok := timeTag.Attr("datetime"); ok && dt != "" {
			return dt
		}
		if text := CleanText(timeTag.Text()); text != "" {
			return text
		}
	}
	return SelectorText(doc,
		"meta[property='article:published_time']",
		"meta[name='article:published_time']")
}
