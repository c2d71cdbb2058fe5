// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package outlet integrates news sources. Each outlet implements the
// Adapter strategy: discovery walks a listing page or feed and yields
// candidate URLs, and parse turns one article page into plain fields. The
// Registry is a static map of the configured outlets; no reflective
// module scanning.
package outlet

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/capacity-news/pkg/types"
)

// Adapter integrates one news source.
type Adapter interface {
	// Name is the outlet's display name, used as the Article.Outlet value
	// and as the reprocessing lookup key.
	Name() string

	// Domain is the outlet's host name, used as the fallback lookup key
	// when a persisted record's outlet name no longer matches.
	Domain() string

	// Discover scans the outlet's listing or feed for candidate articles
	// newer than cutoff, skipping URLs already in seen. Listing adapters
	// stop paging once a full page of results is entirely older than
	// cutoff, and walk at most maxPages pages.
	Discover(ctx context.Context, cutoff time.Time, seen *SeenSet, maxPages int) ([]types.DiscoveryItem, error)

	// Parse fetches one article page and extracts title, published date,
	// and body text. Any field may come back empty.
	Parse(ctx context.Context, articleURL string) (types.ParsedArticle, error)
}

// SeenSet is a concurrency-safe set of article URLs shared between
// adapters running in parallel. Add claims a URL atomically so two
// adapters never both accept the same cross-outlet duplicate.
type SeenSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewSeenSet returns a set seeded with urls.
func NewSeenSet(urls ...string) *SeenSet {
	s := &SeenSet{urls: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		if u != "" {
			s.urls[u] = struct{}{}
		}
	}
	return s
}

// Has reports whether url is already in the set.
func (s *SeenSet) Has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.urls[url]
	return ok
}

// Add inserts url and reports whether it was newly added.
func (s *SeenSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}

// Len returns the number of URLs in the set.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

// Registry holds the configured outlet adapters in a fixed order.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// All returns the adapters in registration order.
func (r *Registry) All() []Adapter {
	return r.adapters
}

// ByName returns the adapter with the given outlet name, or nil.
func (r *Registry) ByName(name string) Adapter {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// Resolve finds the adapter for a persisted record: by outlet name first,
// then by the adapter domain appearing in the record URL. Returns nil when
// neither matches.
func (r *Registry) Resolve(outletName, articleURL string) Adapter {
	if a := r.ByName(outletName); a != nil {
		return a
	}
	if articleURL == "" {
		return nil
	}
	for _, a := range r.adapters {
		if strings.Contains(articleURL, a.Domain()) {
			return a
		}
	}
	return nil
}
