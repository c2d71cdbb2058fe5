// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates one capacity-news run: load the corpus,
// optionally reprocess existing records, discover and parse new articles
// per outlet, classify them, and fold everything back into the corpus.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/capacity-news/internal/corpus"
	"github.com/pdiddy/capacity-news/internal/extract"
	"github.com/pdiddy/capacity-news/internal/outlet"
	"github.com/pdiddy/capacity-news/pkg/types"
)

// timeNow is overridable for tests.
var timeNow = time.Now

// Pipeline runs the discovery-to-corpus flow over a fixed outlet registry.
type Pipeline struct {
	cfg      types.PipelineConfig
	registry *outlet.Registry
	out      io.Writer
}

// New builds a pipeline. Status output goes to out.
func New(cfg types.PipelineConfig, registry *outlet.Registry, out io.Writer) *Pipeline {
	return &Pipeline{cfg: cfg, registry: registry, out: out}
}

// OutletStats counts one outlet's contribution to a run.
type OutletStats struct {
	Outlet      string `yaml:"outlet"`
	Discovered  int    `yaml:"discovered"`
	New         int    `yaml:"new"`
	SkippedSeen int    `yaml:"skipped_seen"`
	ParsedOK    int    `yaml:"parsed_ok"`
	ParseFailed int    `yaml:"parse_failed"`
	Pertinent   int    `yaml:"pertinent"`
	NeedsReview int    `yaml:"needs_review"`
}

// RunReport summarizes a completed run for the optional YAML report.
type RunReport struct {
	StartedAt   string        `yaml:"started_at"`
	FinishedAt  string        `yaml:"finished_at"`
	Cutoff      string        `yaml:"cutoff"`
	Outlets     []OutletStats `yaml:"outlets"`
	Reprocessed int           `yaml:"reprocessed"`
	NewArticles int           `yaml:"new_articles"`
	Removed     int           `yaml:"removed_by_retention"`
	CorpusSize  int           `yaml:"corpus_size"`
}

// limiter caps accepted articles across all outlets. A zero limit means
// no cap. Discovery still runs once the cap is hit; only parsing stops.
type limiter struct {
	mu    sync.Mutex
	used  int
	limit int
}

func (l *limiter) claim() bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.used >= l.limit {
		return false
	}
	l.used++
	return true
}

// release returns a slot claimed for an article that was not accepted, so a
// parse failure does not count against the cap.
func (l *limiter) release() {
	if l.limit <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.used > 0 {
		l.used--
	}
}

// Run executes one full pipeline pass.
func (p *Pipeline) Run(ctx context.Context) error {
	started := timeNow()

	months := p.cfg.Discovery.BackfillMonths
	if months <= 0 {
		months = 12
	}
	maxPages := p.cfg.Discovery.MaxPages
	if maxPages <= 0 {
		maxPages = 20
	}
	years := p.cfg.Corpus.RetentionYears
	if years <= 0 {
		years = 5
	}
	cutoff := started.Add(-time.Duration(months) * 30 * 24 * time.Hour)

	existing, err := corpus.Load(p.cfg.Corpus.DataFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "loaded %d existing articles from %s\n", len(existing), p.cfg.Corpus.DataFile)

	reprocessed := 0
	if p.cfg.Reprocess.Enabled {
		existing, reprocessed = p.reprocessExisting(ctx, existing)
	}

	seen := outlet.NewSeenSet()
	for _, a := range existing {
		if a.URL != "" {
			seen.Add(a.URL)
		}
	}

	limit := &limiter{limit: p.cfg.Discovery.MaxArticles}
	adapters := p.registry.All()
	statsPerOutlet := make([]OutletStats, len(adapters))
	articlesPerOutlet := make([][]types.Article, len(adapters))

	fmt.Fprintf(p.out, "discovering back to %s across %d outlets\n",
		cutoff.Format("2006-01-02"), len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter outlet.Adapter) {
			defer wg.Done()
			statsPerOutlet[i], articlesPerOutlet[i] = p.runOutlet(ctx, adapter, cutoff, maxPages, seen, limit)
		}(i, adapter)
	}
	wg.Wait()

	var newArticles []types.Article
	for i := range adapters {
		s := statsPerOutlet[i]
		fmt.Fprintf(p.out, "%s: discovered=%d new=%d skipped_seen=%d parsed_ok=%d parse_failed=%d pertinent=%d needs_review=%d\n",
			s.Outlet, s.Discovered, s.New, s.SkippedSeen, s.ParsedOK, s.ParseFailed, s.Pertinent, s.NeedsReview)
		newArticles = append(newArticles, articlesPerOutlet[i]...)
	}

	merged := corpus.Merge(existing, newArticles)
	kept, removed := corpus.FilterRetention(merged, years, started)
	corpus.SortByDate(kept)

	if err := corpus.Save(p.cfg.Corpus.DataFile, kept); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "\nsaved %d articles (%d new, %d removed by retention)\n",
		len(kept), len(newArticles), removed)

	if p.cfg.Index.IndexDir != "" {
		if err := p.rebuildIndex(ctx, kept); err != nil {
			fmt.Fprintf(p.out, "warning: index rebuild failed: %v\n", err)
		}
	}

	if p.cfg.ReportFile != "" {
		report := RunReport{
			StartedAt:   started.UTC().Format(time.RFC3339),
			FinishedAt:  timeNow().UTC().Format(time.RFC3339),
			Cutoff:      cutoff.Format("2006-01-02"),
			Outlets:     statsPerOutlet,
			Reprocessed: reprocessed,
			NewArticles: len(newArticles),
			Removed:     removed,
			CorpusSize:  len(kept),
		}
		if err := writeReport(p.cfg.ReportFile, report); err != nil {
			fmt.Fprintf(p.out, "warning: run report write failed: %v\n", err)
		}
	}

	return nil
}

// runOutlet discovers and parses one outlet's articles. Discovery failure
// skips the outlet; parse failures skip single articles.
func (p *Pipeline) runOutlet(ctx context.Context, adapter outlet.Adapter, cutoff time.Time, maxPages int, seen *outlet.SeenSet, limit *limiter) (OutletStats, []types.Article) {
	stats := OutletStats{Outlet: adapter.Name()}

	items, err := adapter.Discover(ctx, cutoff, seen, maxPages)
	if err != nil {
		fmt.Fprintf(p.out, "warning: discovery failed for %s: %v\n", adapter.Name(), err)
		return stats, nil
	}
	stats.Discovered = len(items)

	if earliest, ok := earliestDated(items); ok && earliest.After(cutoff.Add(30*24*time.Hour)) {
		fmt.Fprintf(p.out, "warning: %s reaches back only to %s, short of the %s cutoff\n",
			adapter.Name(), earliest.Format("2006-01-02"), cutoff.Format("2006-01-02"))
	}

	var articles []types.Article
	for _, item := range items {
		if seen.Has(item.URL) {
			stats.SkippedSeen++
			continue
		}
		if !limit.claim() {
			continue
		}
		if !seen.Add(item.URL) {
			stats.SkippedSeen++
			continue
		}
		parsed, err := adapter.Parse(ctx, item.URL)
		if err != nil {
			fmt.Fprintf(p.out, "warning: parse failed for %s: %v\n", item.URL, err)
			stats.ParseFailed++
			limit.release()
			continue
		}
		stats.ParsedOK++
		stats.New++

		article := buildArticle(adapter.Name(), item, parsed)
		switch article.Status {
		case types.StatusPertinent:
			stats.Pertinent++
		case types.StatusNeedsReview:
			stats.NeedsReview++
		}
		articles = append(articles, article)
	}
	return stats, articles
}

// earliestDated returns the oldest parsed discovery date, if any item has one.
func earliestDated(items []types.DiscoveryItem) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, item := range items {
		if item.PublishedAt.IsZero() {
			continue
		}
		if !found || item.PublishedAt.Before(earliest) {
			earliest = item.PublishedAt
			found = true
		}
	}
	return earliest, found
}

// buildArticle classifies a parsed article and assembles the persisted
// record. Missing parsed fields fall back to discovery-time values.
func buildArticle(outletName string, item types.DiscoveryItem, parsed types.ParsedArticle) types.Article {
	title := parsed.Title
	if title == "" {
		title = item.Title
	}
	if title == "" {
		title = "Untitled"
	}

	published := parsed.PublishedAt
	if published == "" && !item.PublishedAt.IsZero() {
		published = item.PublishedAt.Format("2006-01-02")
	}

	analysis := extract.Analyze(title, parsed.Body)

	keyFacts := extract.KeyFactsText(analysis.Facts)
	if keyFacts == "" && hasFlag(analysis.Flags, types.FlagBioManufacturingSignal) {
		keyFacts = "Biologics/manufacturing signal"
	}

	return types.Article{
		ID:                  extract.ArticleID(outletName, published, title),
		PublishedAt:         published,
		Outlet:              outletName,
		Title:               title,
		URL:                 item.URL,
		Status:              analysis.Status,
		CompanyPrimary:      "",
		EventTypes:          analysis.EventTypes,
		KeyFactsText:        keyFacts,
		Flags:               analysis.Flags,
		HasBioreactorL:      analysis.HasBioreactorL,
		HasFootprint:        analysis.HasFootprint,
		HasFillFinishOutput: analysis.HasFillFinishOutput,
		HasCapex:            analysis.HasCapex,
		Facts:               analysis.Facts,
	}
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

func (p *Pipeline) rebuildIndex(ctx context.Context, articles []types.Article) error {
	idx, err := corpus.NewIndex(p.cfg.Index)
	if err != nil {
		return err
	}
	defer idx.Close()
	return idx.Rebuild(ctx, articles, p.out)
}

func writeReport(path string, report RunReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
