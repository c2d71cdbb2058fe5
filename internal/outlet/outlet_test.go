// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outlet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/capacity-news/pkg/types"
)

type stubAdapter struct {
	name   string
	domain string
}

func (s *stubAdapter) Name() string   { return s.name }
func (s *stubAdapter) Domain() string { return s.domain }
func (s *stubAdapter) Discover(context.Context, time.Time, *SeenSet, int) ([]types.DiscoveryItem, error) {
	return nil, nil
}
func (s *stubAdapter) Parse(context.Context, string) (types.ParsedArticle, error) {
	return types.ParsedArticle{}, nil
}

func TestSeenSetClaimOnce(t *testing.T) {
	seen := NewSeenSet("https://example.com/existing")

	if !seen.Has("https://example.com/existing") {
		t.Error("seeded URL should be present")
	}
	if !seen.Add("https://example.com/new") {
		t.Error("first Add should claim the URL")
	}
	if seen.Add("https://example.com/new") {
		t.Error("second Add must report the URL as already claimed")
	}
	if seen.Len() != 2 {
		t.Errorf("Len() = %d, want 2", seen.Len())
	}
}

func TestSeenSetConcurrentClaims(t *testing.T) {
	// Many goroutines race for the same URL; exactly one may win.
	seen := NewSeenSet()
	var wg sync.WaitGroup
	wins := make(chan struct{}, 32)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if seen.Add("https://example.com/contested") {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Errorf("%d goroutines claimed the URL, want exactly 1", won)
	}
}

func TestRegistryResolve(t *testing.T) {
	fierce := &stubAdapter{name: "Fierce Pharma", domain: "fiercepharma.com"}
	bpi := &stubAdapter{name: "BioProcess International", domain: "bioprocessintl.com"}
	reg := NewRegistry(fierce, bpi)

	tests := []struct {
		name       string
		outletName string
		url        string
		want       Adapter
	}{
		{"by outlet name", "Fierce Pharma", "", fierce},
		{"by domain fallback", "Renamed Outlet", "https://www.bioprocessintl.com/a/b", bpi},
		{"name wins over domain", "Fierce Pharma", "https://www.bioprocessintl.com/a", fierce},
		{"unresolvable", "Unknown", "https://example.com/x", nil},
		{"unresolvable without url", "Unknown", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reg.Resolve(tt.outletName, tt.url); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %v, want %v", tt.outletName, tt.url, got, tt.want)
			}
		})
	}
}
