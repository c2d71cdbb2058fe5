package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/capacity-news/internal/corpus"
	"github.com/pdiddy/capacity-news/internal/outlet"
	"github.com/pdiddy/capacity-news/pkg/types"
)

// fakeAdapter is a scripted outlet for pipeline tests.
type fakeAdapter struct {
	name        string
	domain      string
	items       []types.DiscoveryItem
	discoverErr error
	parsed      map[string]types.ParsedArticle
	parseErr    map[string]error
	parseCalls  []string
}

func (f *fakeAdapter) Name() string   { return f.name }
func (f *fakeAdapter) Domain() string { return f.domain }

func (f *fakeAdapter) Discover(_ context.Context, cutoff time.Time, seen *outlet.SeenSet, _ int) ([]types.DiscoveryItem, error) {
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	var out []types.DiscoveryItem
	for _, item := range f.items {
		if seen.Has(item.URL) {
			continue
		}
		if !item.PublishedAt.IsZero() && item.PublishedAt.Before(cutoff) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeAdapter) Parse(_ context.Context, articleURL string) (types.ParsedArticle, error) {
	f.parseCalls = append(f.parseCalls, articleURL)
	if err := f.parseErr[articleURL]; err != nil {
		return types.ParsedArticle{}, err
	}
	return f.parsed[articleURL], nil
}

const bioreactorBody = "The new facility will add a 2,000L single-use bioreactor train. " +
	"The expansion supports growing demand for monoclonal antibody manufacturing across the region, " +
	"and the company said the additional cell culture capacity positions the site to serve late-stage " +
	"clinical and commercial programs as they move through the pipeline in the years ahead."

func fixedClock(t *testing.T, at time.Time) {
	t.Helper()
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = time.Now })
}

func TestRun(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(t, now)

	dataFile := filepath.Join(t.TempDir(), "capacity_news.json")
	existing := []types.Article{
		{ID: "kept", URL: "https://a.test/kept", Title: "Kept", PublishedAt: "2026-05-01", Outlet: "Outlet A", Status: types.StatusNeedsReview},
		{ID: "stale", URL: "https://a.test/stale", Title: "Stale", PublishedAt: "2018-01-01", Outlet: "Outlet A", Status: types.StatusNotPertinent},
	}
	if err := corpus.Save(dataFile, existing); err != nil {
		t.Fatal(err)
	}

	a := &fakeAdapter{
		name: "Outlet A", domain: "a.test",
		items: []types.DiscoveryItem{
			{URL: "https://a.test/new", Title: "Listing title", PublishedAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
			{URL: "https://a.test/kept", Title: "Kept", PublishedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
			{URL: "https://a.test/broken", Title: "Broken", PublishedAt: time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)},
		},
		parsed: map[string]types.ParsedArticle{
			"https://a.test/new": {Title: "CDMO adds bioreactor train", PublishedAt: "2026-07-01", Body: bioreactorBody},
		},
		parseErr: map[string]error{
			"https://a.test/broken": errors.New("HTTP 500"),
		},
	}
	b := &fakeAdapter{
		name: "Outlet B", domain: "b.test",
		discoverErr: errors.New("listing unreachable"),
	}

	var out bytes.Buffer
	p := New(types.PipelineConfig{
		Corpus: types.CorpusConfig{DataFile: dataFile, RetentionYears: 5},
	}, outlet.NewRegistry(a, b), &out)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	saved, err := corpus.Load(dataFile)
	if err != nil {
		t.Fatal(err)
	}

	// Stale record dropped, kept record untouched, one new article added.
	if len(saved) != 2 {
		t.Fatalf("saved %d articles %+v, want 2", len(saved), saved)
	}
	// Sorted newest first.
	if saved[0].URL != "https://a.test/new" || saved[1].URL != "https://a.test/kept" {
		t.Fatalf("wrong order: %s, %s", saved[0].URL, saved[1].URL)
	}

	got := saved[0]
	if got.Status != types.StatusPertinent {
		t.Errorf("status = %s, want PERTINENT", got.Status)
	}
	if !got.HasBioreactorL || len(got.Facts) == 0 {
		t.Errorf("facts missing: %+v", got)
	}
	if got.ID != "outlet-a-2026-07-01-cdmo-adds-bioreactor-train" {
		t.Errorf("id = %q", got.ID)
	}

	text := out.String()
	if !strings.Contains(text, "discovery failed for Outlet B") {
		t.Errorf("missing discovery failure warning:\n%s", text)
	}
	if !strings.Contains(text, "parse failed for https://a.test/broken") {
		t.Errorf("missing parse failure warning:\n%s", text)
	}
	if !strings.Contains(text, "Outlet A: discovered=2 new=1 skipped_seen=0 parsed_ok=1 parse_failed=1 pertinent=1 needs_review=0") {
		t.Errorf("missing outlet stats line:\n%s", text)
	}
}

func TestRunMaxArticlesCap(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(t, now)

	dataFile := filepath.Join(t.TempDir(), "capacity_news.json")
	published := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	a := &fakeAdapter{
		name: "Outlet A", domain: "a.test",
		items: []types.DiscoveryItem{
			{URL: "https://a.test/1", Title: "One", PublishedAt: published},
			{URL: "https://a.test/2", Title: "Two", PublishedAt: published},
			{URL: "https://a.test/3", Title: "Three", PublishedAt: published},
		},
		parsed: map[string]types.ParsedArticle{},
	}

	var out bytes.Buffer
	p := New(types.PipelineConfig{
		Discovery: types.DiscoveryConfig{MaxArticles: 1},
		Corpus:    types.CorpusConfig{DataFile: dataFile},
	}, outlet.NewRegistry(a), &out)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(a.parseCalls) != 1 {
		t.Errorf("parsed %d articles %v, want 1", len(a.parseCalls), a.parseCalls)
	}
	saved, err := corpus.Load(dataFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 {
		t.Errorf("saved %d articles, want 1", len(saved))
	}
}

func TestRunCapCountsAcceptedArticles(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(t, now)

	dataFile := filepath.Join(t.TempDir(), "capacity_news.json")
	published := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	a := &fakeAdapter{
		name: "Outlet A", domain: "a.test",
		items: []types.DiscoveryItem{
			{URL: "https://a.test/broken", Title: "Broken", PublishedAt: published},
			{URL: "https://a.test/good", Title: "Good", PublishedAt: published},
		},
		parsed: map[string]types.ParsedArticle{
			"https://a.test/good": {Title: "Good", PublishedAt: "2026-07-01", Body: bioreactorBody},
		},
		parseErr: map[string]error{
			"https://a.test/broken": errors.New("HTTP 500"),
		},
	}

	var out bytes.Buffer
	p := New(types.PipelineConfig{
		Discovery: types.DiscoveryConfig{MaxArticles: 1},
		Corpus:    types.CorpusConfig{DataFile: dataFile},
	}, outlet.NewRegistry(a), &out)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// The failed parse must not consume the only cap slot.
	if len(a.parseCalls) != 2 {
		t.Errorf("parse calls = %v, want both items attempted", a.parseCalls)
	}
	saved, err := corpus.Load(dataFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || saved[0].URL != "https://a.test/good" {
		t.Fatalf("saved %+v, want only the good article", saved)
	}
}

func TestRunWritesReport(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(t, now)

	dir := t.TempDir()
	reportFile := filepath.Join(dir, "report.yaml")

	a := &fakeAdapter{name: "Outlet A", domain: "a.test"}
	var out bytes.Buffer
	p := New(types.PipelineConfig{
		Corpus:     types.CorpusConfig{DataFile: filepath.Join(dir, "corpus.json")},
		ReportFile: reportFile,
	}, outlet.NewRegistry(a), &out)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	data, err := os.ReadFile(reportFile)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	text := string(data)
	for _, want := range []string{"started_at:", "cutoff:", "2025-08-06", "outlet: Outlet A"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestReprocessExisting(t *testing.T) {
	a := &fakeAdapter{
		name: "Outlet A", domain: "a.test",
		parsed: map[string]types.ParsedArticle{
			"https://a.test/x": {Title: "Refreshed title", PublishedAt: "2026-03-01", Body: bioreactorBody},
		},
		parseErr: map[string]error{
			"https://a.test/broken": errors.New("HTTP 500"),
		},
	}
	b := &fakeAdapter{name: "Outlet B", domain: "b.test"}

	existing := []types.Article{
		{ID: "old-id", URL: "https://a.test/x", Title: "Old title", PublishedAt: "2020-01-01", Outlet: "Renamed A", Status: types.StatusNotPertinent, CompanyPrimary: "Acme"},
		{ID: "broken", URL: "https://a.test/broken", Title: "Broken", Outlet: "Outlet A", Status: types.StatusNeedsReview},
		{ID: "foreign", URL: "https://elsewhere.test/y", Title: "Foreign", Outlet: "Gone Outlet", Status: types.StatusPertinent},
		{ID: "no-url", Title: "Legacy", Status: types.StatusNotPertinent},
	}

	var out bytes.Buffer
	p := New(types.PipelineConfig{
		Reprocess: types.ReprocessConfig{Enabled: true},
	}, outlet.NewRegistry(a, b), &out)

	result, processed := p.reprocessExisting(context.Background(), existing)
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	if len(result) != 4 {
		t.Fatalf("got %d records, want 4", len(result))
	}

	// Resolved by domain despite the stale outlet name; classification
	// fields replaced, outlet string and company carried through.
	refreshed := result[0]
	if refreshed.Title != "Refreshed title" || refreshed.PublishedAt != "2026-03-01" {
		t.Errorf("record not refreshed: %+v", refreshed)
	}
	if refreshed.Outlet != "Renamed A" {
		t.Errorf("outlet = %q, want stored outlet kept", refreshed.Outlet)
	}
	if refreshed.Status != types.StatusPertinent {
		t.Errorf("status = %s", refreshed.Status)
	}
	if refreshed.CompanyPrimary != "Acme" {
		t.Errorf("company_primary = %q, want carried through", refreshed.CompanyPrimary)
	}
	if refreshed.ID != "renamed-a-2026-03-01-refreshed-title" {
		t.Errorf("id = %q, want recomputed from stored outlet", refreshed.ID)
	}

	// Parse failure, unresolvable outlet, and url-less records pass through.
	for i, wantID := range map[int]string{1: "broken", 2: "foreign", 3: "no-url"} {
		if result[i].ID != wantID {
			t.Errorf("record %d = %+v, want untouched %s", i, result[i], wantID)
		}
	}
}

func TestRefreshArticleOutletFallback(t *testing.T) {
	parsed := types.ParsedArticle{Title: "Refreshed title", PublishedAt: "2026-03-01", Body: bioreactorBody}

	// An empty stored outlet falls back to the adapter name.
	got := refreshArticle(types.Article{URL: "https://a.test/x"}, "Outlet A", parsed)
	if got.Outlet != "Outlet A" {
		t.Errorf("outlet = %q, want adapter name fallback", got.Outlet)
	}
	if got.ID != "outlet-a-2026-03-01-refreshed-title" {
		t.Errorf("id = %q", got.ID)
	}
}

func TestReprocessOutletFilter(t *testing.T) {
	a := &fakeAdapter{
		name: "Outlet A", domain: "a.test",
		parsed: map[string]types.ParsedArticle{
			"https://a.test/x": {Title: "Refreshed", Body: bioreactorBody},
		},
	}
	b := &fakeAdapter{
		name: "Outlet B", domain: "b.test",
		parsed: map[string]types.ParsedArticle{
			"https://b.test/y": {Title: "Should not be touched", Body: ""},
		},
	}

	existing := []types.Article{
		{ID: "one", URL: "https://a.test/x", Outlet: "Outlet A", Title: "A"},
		{ID: "two", URL: "https://b.test/y", Outlet: "Outlet B", Title: "B"},
	}

	var out bytes.Buffer
	p := New(types.PipelineConfig{
		Reprocess: types.ReprocessConfig{Enabled: true, Outlets: []string{"outlet a"}},
	}, outlet.NewRegistry(a, b), &out)

	result, processed := p.reprocessExisting(context.Background(), existing)
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	if result[0].Title != "Refreshed" {
		t.Errorf("allowed outlet not reprocessed: %+v", result[0])
	}
	if result[1].Title != "B" {
		t.Errorf("filtered outlet was reprocessed: %+v", result[1])
	}
	if len(b.parseCalls) != 0 {
		t.Errorf("filtered outlet parsed %v", b.parseCalls)
	}
}

func TestBuildArticleFallbacks(t *testing.T) {
	item := types.DiscoveryItem{
		URL:         "https://a.test/x",
		Title:       "Listing title",
		PublishedAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
	}

	// Parsed fields win.
	got := buildArticle("Outlet A", item, types.ParsedArticle{Title: "Parsed title", PublishedAt: "2026-02-04", Body: ""})
	if got.Title != "Parsed title" || got.PublishedAt != "2026-02-04" {
		t.Errorf("parsed fields lost: %+v", got)
	}

	// Discovery values fill parsed gaps.
	got = buildArticle("Outlet A", item, types.ParsedArticle{})
	if got.Title != "Listing title" || got.PublishedAt != "2026-02-03" {
		t.Errorf("discovery fallback broken: %+v", got)
	}

	// Nothing anywhere.
	got = buildArticle("Outlet A", types.DiscoveryItem{URL: "https://a.test/y"}, types.ParsedArticle{})
	if got.Title != "Untitled" || got.PublishedAt != "" {
		t.Errorf("final fallback broken: %+v", got)
	}
	if got.ID == "" {
		t.Error("id must never be empty")
	}
}
