// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/capacity-news/internal/extract"
	"github.com/pdiddy/capacity-news/pkg/types"
)

// reprocessExisting re-fetches and re-classifies persisted records before
// the merge. A record whose outlet cannot be resolved, whose URL is
// missing, or whose re-fetch fails passes through unmodified. Returns the
// updated list and the number of records actually reprocessed.
func (p *Pipeline) reprocessExisting(ctx context.Context, articles []types.Article) ([]types.Article, int) {
	allowed := make(map[string]struct{}, len(p.cfg.Reprocess.Outlets))
	for _, name := range p.cfg.Reprocess.Outlets {
		allowed[strings.ToLower(name)] = struct{}{}
	}

	maxArticles := p.cfg.Discovery.MaxArticles
	fmt.Fprintf(p.out, "reprocessing %d existing articles\n", len(articles))

	processed, failed := 0, 0
	result := make([]types.Article, 0, len(articles))
	for _, a := range articles {
		if a.URL == "" {
			result = append(result, a)
			continue
		}
		adapter := p.registry.Resolve(a.Outlet, a.URL)
		if adapter == nil {
			result = append(result, a)
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToLower(adapter.Name())]; !ok {
				result = append(result, a)
				continue
			}
		}
		if maxArticles > 0 && processed >= maxArticles {
			result = append(result, a)
			continue
		}

		parsed, err := adapter.Parse(ctx, a.URL)
		if err != nil {
			fmt.Fprintf(p.out, "warning: reprocess failed for %s: %v\n", a.URL, err)
			failed++
			result = append(result, a)
			continue
		}
		result = append(result, refreshArticle(a, adapter.Name(), parsed))
		processed++
	}

	fmt.Fprintf(p.out, "reprocessed %d articles (%d failed)\n", processed, failed)
	return result, processed
}

// refreshArticle recomputes the classification fields from freshly parsed
// text, carrying the rest of the persisted record through. The record keeps
// its stored outlet string; the adapter name stands in only when it is empty.
func refreshArticle(a types.Article, adapterName string, parsed types.ParsedArticle) types.Article {
	title := parsed.Title
	if title == "" {
		title = a.Title
	}
	published := parsed.PublishedAt
	if published == "" {
		published = a.PublishedAt
	}
	outletName := a.Outlet
	if outletName == "" {
		outletName = adapterName
	}

	analysis := extract.Analyze(title, parsed.Body)

	keyFacts := extract.KeyFactsText(analysis.Facts)
	if keyFacts == "" && hasFlag(analysis.Flags, types.FlagBioManufacturingSignal) {
		keyFacts = "Biologics/manufacturing signal"
	}

	a.ID = extract.ArticleID(outletName, published, title)
	a.Outlet = outletName
	a.Title = title
	a.PublishedAt = published
	a.Status = analysis.Status
	a.EventTypes = analysis.EventTypes
	a.KeyFactsText = keyFacts
	a.Flags = analysis.Flags
	a.HasBioreactorL = analysis.HasBioreactorL
	a.HasFootprint = analysis.HasFootprint
	a.HasFillFinishOutput = analysis.HasFillFinishOutput
	a.HasCapex = analysis.HasCapex
	a.Facts = analysis.Facts
	return a
}
