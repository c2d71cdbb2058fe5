// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pdiddy/capacity-news/pkg/types"
)

// pad grows a body past the low-evidence threshold without adding any
// domain or numeric signal.
func pad(body string) string {
	return body + strings.Repeat(" The announcement drew broad attention across the industry press.", 7)
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

func TestAnalyzePertinent(t *testing.T) {
	a := Analyze(
		"Contract manufacturer expands biologics capacity",
		pad("The new facility will add a 2,000L single-use bioreactor train."),
	)

	if a.Status != types.StatusPertinent {
		t.Fatalf("status = %s, want PERTINENT (flags %v)", a.Status, a.Flags)
	}
	if len(a.Facts) == 0 {
		t.Error("PERTINENT article must carry at least one fact")
	}
	if !a.HasBioreactorL {
		t.Error("HasBioreactorL = false, want true")
	}
}

func TestAnalyzeSmallMoleculeVeto(t *testing.T) {
	// Small-molecule-only articles are out of scope regardless of numeric
	// facts present.
	a := Analyze(
		"Generics maker invests in tablet production",
		pad("The company will invest $450 million to build the oral solid dose plant."),
	)

	if a.Status != types.StatusNotPertinent {
		t.Fatalf("status = %s, want NOT_PERTINENT", a.Status)
	}
	if !hasFlag(a.Flags, types.FlagSmallMoleculeOnly) {
		t.Errorf("flags = %v, want SMALL_MOLECULE_ONLY", a.Flags)
	}
	if !a.HasCapex {
		t.Error("HasCapex = false, want true; the veto must not erase extracted facts")
	}
}

func TestAnalyzeWeakBiologicsSignal(t *testing.T) {
	a := Analyze(
		"Manufacturer adds production space",
		pad("The new plant spans 200,000 square feet."),
	)

	if a.Status != types.StatusNeedsReview {
		t.Fatalf("status = %s, want NEEDS_REVIEW", a.Status)
	}
	if !hasFlag(a.Flags, types.FlagWeakBiologicsSignal) {
		t.Errorf("flags = %v, want WEAK_BIOLOGICS_SIGNAL", a.Flags)
	}
}

func TestAnalyzeMixedSignalsDowngraded(t *testing.T) {
	// Both biologics and small-molecule terms present: never auto-accept.
	a := Analyze(
		"Site handles vaccines and tablets",
		pad("The vaccine facility adds a 2,000L bioreactor alongside the tablet line."),
	)

	if a.Status != types.StatusNeedsReview {
		t.Fatalf("status = %s, want NEEDS_REVIEW", a.Status)
	}
	if !hasFlag(a.Flags, types.FlagSmallMoleculeMention) {
		t.Errorf("flags = %v, want SMALL_MOLECULE_MENTION", a.Flags)
	}
}

func TestAnalyzeNoNumericFacts(t *testing.T) {
	a := Analyze(
		"Vaccine maker plans manufacturing push",
		pad("The vaccine manufacturing facility in Ohio will support future programs."),
	)

	if a.Status != types.StatusNeedsReview {
		t.Fatalf("status = %s, want NEEDS_REVIEW", a.Status)
	}
	if !hasFlag(a.Flags, types.FlagNoNumericFacts) {
		t.Errorf("flags = %v, want NO_NUMERIC_FACTS", a.Flags)
	}
	if !hasFlag(a.Flags, types.FlagBioManufacturingSignal) {
		t.Errorf("flags = %v, want BIO_MANUFACTURING_SIGNAL", a.Flags)
	}
}

func TestAnalyzeNoSignalForcedNotPertinent(t *testing.T) {
	a := Analyze("Quarterly update", pad("The company reiterated its full-year outlook."))

	if a.Status != types.StatusNotPertinent {
		t.Fatalf("status = %s, want NOT_PERTINENT", a.Status)
	}
	if len(a.Facts) != 0 || len(a.EventTypes) != 0 {
		t.Errorf("expected no facts or events, got %v / %v", a.Facts, a.EventTypes)
	}
}

func TestAnalyzeShortBodyLowEvidence(t *testing.T) {
	a := Analyze("Vaccine plant expansion announced", "The vaccine plant will expand capacity.")

	if !hasFlag(a.Flags, types.FlagLowEvidence) {
		t.Errorf("flags = %v, want LOW_EVIDENCE", a.Flags)
	}
	if a.Status == types.StatusPertinent {
		t.Error("short body without facts must not stay PERTINENT")
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	title := "CDMO breaks ground on fill-finish site"
	body := pad("The aseptic fill-finish line will produce 50 million vials per year. The company will invest $120 million in the buildout.")

	first := Analyze(title, body)
	second := Analyze(title, body)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated analysis diverged:\n first: %+v\nsecond: %+v", first, second)
	}
}

func TestKeyFactsText(t *testing.T) {
	facts := []types.Fact{
		{Type: types.FactBioreactorVolume, ValueRaw: "2,000L"},
		{Type: types.FactCapex, ValueRaw: "$450 million"},
	}
	got := KeyFactsText(facts)
	want := "bioreactor_volume: 2,000L; capex: $450 million"
	if got != want {
		t.Errorf("KeyFactsText() = %q, want %q", got, want)
	}

	if got := KeyFactsText(nil); got != "" {
		t.Errorf("KeyFactsText(nil) = %q, want empty", got)
	}
}

func TestArticleID(t *testing.T) {
	id := ArticleID("Fierce Pharma", "2026-03-14", "Company Expands Site!")
	if id != "fierce-pharma-2026-03-14-company-expands-site" {
		t.Errorf("ArticleID() = %q", id)
	}

	long := ArticleID("Outlet", "2026-01-01", strings.Repeat("very long title ", 20))
	if len(long) > 120 {
		t.Errorf("len(id) = %d, want <= 120", len(long))
	}

	if a, b := ArticleID("O", "2026-01-01", "T"), ArticleID("O", "2026-01-01", "T"); a != b {
		t.Error("ArticleID must be deterministic")
	}
}
