// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outlet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/capacity-news/pkg/types"
)

const (
	pharmaCommerceName   = "Pharmaceutical Commerce"
	pharmaCommerceDomain = "pharmaceuticalcommerce.com"
	pharmaCommerceBase   = "https://www.pharmaceuticalcommerce.com"

	sanityProjectID = "0vv8moc6"
	sanityDataset   = "pharma_commerce"
)

// PharmaCommerce discovers articles from the /news listing. Published
// dates on the site are unreliable, so Parse can confirm them against the
// outlet's Sanity content API.
type PharmaCommerce struct {
	fetch *Fetcher
	out   io.Writer

	// listingURL and sanityURL are overridable for tests.
	listingURL string
	sanityURL  string

	// sanityToken optionally authenticates content API lookups.
	sanityToken string
}

// NewPharmaCommerce wires the Pharmaceutical Commerce adapter. The token
// may be empty; the content API answers anonymous queries at a lower rate.
func NewPharmaCommerce(fetch *Fetcher, out io.Writer, sanityToken string) *PharmaCommerce {
	return &PharmaCommerce{
		fetch:       fetch,
		out:         out,
		listingURL:  pharmaCommerceBase + "/news",
		sanityURL:   fmt.Sprintf("https://%s.api.sanity.io/v1/data/query/%s", sanityProjectID, sanityDataset),
		sanityToken: sanityToken,
	}
}

func (p *PharmaCommerce) Name() string   { return pharmaCommerceName }
func (p *PharmaCommerce) Domain() string { return pharmaCommerceDomain }

// cardDatePattern pulls a display date out of surrounding card text when a
// listing card has no time element.
var cardDatePattern = regexp.MustCompile(`(?i)(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`)

// Discover pages through the news listing with the same stop rule as the
// other listing outlets: empty page, maxPages, or a full page older than
// cutoff.
func (p *PharmaCommerce) Discover(ctx context.Context, cutoff time.Time, seen *SeenSet, maxPages int) ([]types.DiscoveryItem, error) {
	var discoveries []types.DiscoveryItem

	for page := 1; page <= maxPages; page++ {
		doc, err := p.fetch.Page(ctx, fmt.Sprintf("%s?page=%d", p.listingURL, page))
		if err != nil {
			if page == 1 {
				return nil, err
			}
			fmt.Fprintf(p.out, "  warning: listing page %d failed: %v\n", page, err)
			break
		}

		var pageItems []types.DiscoveryItem
		doc.Find("article, .views-row, .listing-item, .card").Each(func(_ int, card *goquery.Selection) {
			link := card.Find("a[href]").First()
			if link.Length() == 0 {
				return
			}
			href, _ := link.Attr("href")
			href = absoluteURL(pharmaCommerceBase, href)
			if !strings.Contains(href, "/view/") {
				return
			}
			if seen.Has(href) {
				return
			}

			dateText := ""
			timeTag := card.Find("time").First()
			if timeTag.Length() > 0 {
				if dt, ok := timeTag.Attr("datetime"); ok && dt != "" {
					dateText = dt
				} else {
					dateText = CleanText(timeTag.Text())
				}
			} else {
				dateText = cardDatePattern.FindString(CleanText(card.Text()))
			}

			item := types.DiscoveryItem{URL: href, Title: CleanText(link.Text())}
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

// Parse prefers the JSON-LD articleBody the site embeds, falling back to
// selector-based extraction, and lets the Sanity content API override the
// published date when it knows the article.
func (p *PharmaCommerce) Parse(ctx context.Context, articleURL string) (types.ParsedArticle, error) {
	doc, err := p.fetch.Page(ctx, articleURL)
	if err != nil {
		return types.ParsedArticle{}, err
	}

	title := SelectorText(doc, "h1", "header h1")
	published, havePublished := ParseDate(publishedText(doc))

	var body string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var payload map[string]any
		if err := json.Unmarshal([]byte(script.Text()), &payload); err != nil {
			return true
		}
		articleBody, _ := payload["articleBody"].(string)
		if articleBody == "" {
			return true
		}
		body = CleanText(articleBody)
		if title == "" {
			headline, _ := payload["headline"].(string)
			title = CleanText(headline)
		}
		if !havePublished {
			if datePublished, _ := payload["datePublished"].(string); datePublished != "" {
				published, havePublished = ParseDate(datePublished)
			}
		}
		return false
	})

	if body == "" {
		body = BodyText(doc,
			"article .article-body",
			"article .content",
			"article .body",
			"article",
			".article-content",
			".content-body",
			".field--name-body")
	}

	slug := articleSlug(articleURL)
	if confirmed, ok := p.sanityPublishedDate(ctx, title, slug); ok {
		published, havePublished = confirmed, true
	}

	publishedStr := ""
	if havePublished {
		publishedStr = FormatISO(published)
	}
	return types.ParsedArticle{Title: title, PublishedAt: publishedStr, Body: body}, nil
}

// articleSlug returns the trailing path segment of the article URL.
func articleSlug(articleURL string) string {
	trimmed := strings.TrimRight(articleURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

type sanityResponse struct {
	Result struct {
		Published string `json:"published"`
	} `json:"result"`
}

// sanityPublishedDate queries the outlet's Sanity dataset for the article's
// canonical published date, by slug when available and title otherwise.
// Lookup failures are silent; the page date stands.
func (p *PharmaCommerce) sanityPublishedDate(ctx context.Context, title, slug string) (time.Time, bool) {
	if title == "" && slug == "" {
		return time.Time{}, false
	}

	params := url.Values{}
	if slug != "" {
		params.Set("query", "*[_type=='article' && url.current==$slug][0]{published}")
		params.Set("$slug", fmt.Sprintf("%q", slug))
	} else {
		params.Set("query", "*[_type=='article' && title==$title][0]{published}")
		params.Set("$title", fmt.Sprintf("%q", title))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.sanityURL+"?"+params.Encode(), nil)
	if err != nil {
		return time.Time{}, false
	}
	if p.sanityToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.sanityToken)
	}

	httpResp, err := p.fetch.Client.Do(req)
	if err != nil {
		return time.Time{}, false
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return time.Time{}, false
	}

	var resp sanityResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil || resp.Result.Published == "" {
		return time.Time{}, false
	}
	return ParseDate(resp.Result.Published)
}
