// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/capacity-news/pkg/types"
)

// Merge folds new articles into the existing corpus keyed by URL. A new
// article replaces the existing record at its URL wholesale. Existing
// records without a URL cannot be keyed and are appended unchanged after
// all keyed records; new articles without a URL are dropped.
func Merge(existing, incoming []types.Article) []types.Article {
	byURL := make(map[string]types.Article)
	var order []string
	var unkeyed []types.Article

	for _, a := range existing {
		if a.URL == "" {
			unkeyed = append(unkeyed, a)
			continue
		}
		if _, ok := byURL[a.URL]; !ok {
			order = append(order, a.URL)
		}
		byURL[a.URL] = a
	}
	for _, a := range incoming {
		if a.URL == "" {
			continue
		}
		if _, ok := byURL[a.URL]; !ok {
			order = append(order, a.URL)
		}
		byURL[a.URL] = a
	}

	merged := make([]types.Article, 0, len(order)+len(unkeyed))
	for _, url := range order {
		merged = append(merged, byURL[url])
	}
	merged = append(merged, unkeyed...)
	return merged
}

// FilterRetention drops articles whose parsed published_at is older than
// now minus years*365 days. Articles with a missing or unparseable date
// are always retained. Returns the kept list and the number removed.
func FilterRetention(articles []types.Article, years int, now time.Time) ([]types.Article, int) {
	if years <= 0 {
		return articles, 0
	}
	cutoff := now.Add(-time.Duration(years) * 365 * 24 * time.Hour)

	kept := make([]types.Article, 0, len(articles))
	removed := 0
	for _, a := range articles {
		if t, ok := parseWhen(a.PublishedAt); ok && t.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	return kept, removed
}

// SortByDate orders articles newest first. Unparseable or missing dates
// sort to the end.
func SortByDate(articles []types.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		ti, _ := parseWhen(articles[i].PublishedAt)
		tj, _ := parseWhen(articles[j].PublishedAt)
		return ti.After(tj)
	})
}

// parseWhen parses the published_at forms the corpus has accumulated:
// bare ISO dates and full RFC 3339 timestamps, with or without a Z
// suffix.
func parseWhen(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	normalized := strings.Replace(value, "Z", "+00:00", 1)
	for _, layout := range []string{
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
