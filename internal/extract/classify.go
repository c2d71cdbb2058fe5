// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"github.com/pdiddy/capacity-news/pkg/types"
)

// Domain term vocabularies for the relevance decision.
var (
	biologicsTerms = []string{
		"monoclonal", "mab", "biologics", "vaccine", "viral vector", "aav", "lentiviral",
		"cell therapy", "gene therapy", "plasmid", "mrna", "lnp", "fill-finish",
		"aseptic", "lyophilization", "bioreactor", "single-use", "cell culture",
		"radioligand", "rlt", "radiopharmaceutical",
	}
	smallMoleculeTerms = []string{
		"small molecule", "api synthesis", "oral solid dose", "osd", "tablet",
		"capsule", "chemical synthesis",
	}
	manufacturingTerms = []string{
		"manufacturing", "facility", "plant", "site", "campus", "suite", "line",
		"fill-finish", "bioreactor", "aseptic", "cleanroom", "cell culture",
	}
)

// Analysis is the classifier's verdict for one article.
type Analysis struct {
	Status     types.Status
	Flags      []string
	EventTypes []types.EventType
	FactSet
}

// Analyze classifies an article from its title and body text. The decision
// policy is an ordered list: later rules override earlier ones, so the steps
// run strictly in sequence inside this one function.
func Analyze(title, body string) Analysis {
	combined := strings.TrimSpace(title + " " + body)
	factSource := strings.TrimSpace(body)
	if factSource == "" {
		factSource = combined
	}

	a := Analysis{
		Status:     types.StatusNotPertinent,
		FactSet:    Facts(factSource),
		EventTypes: EventTypes(factSource),
	}

	hasBiologics := containsAny(combined, biologicsTerms)
	hasSmallMolecule := containsAny(combined, smallMoleculeTerms)
	manufacturingHit := containsAny(factSource, manufacturingTerms)
	numericTrigger := a.HasBioreactorL || a.HasFootprint || a.HasFillFinishOutput || a.HasCapex
	hasSignal := hasBiologics || manufacturingHit

	// Small-molecule-only manufacturing news is out of scope, whatever
	// other signals say.
	if hasSmallMolecule && !hasBiologics {
		a.Flags = append(a.Flags, types.FlagSmallMoleculeOnly)
	} else if hasBiologics && (numericTrigger || len(a.EventTypes) > 0 || manufacturingHit) {
		a.Status = types.StatusPertinent
	} else if numericTrigger && !hasBiologics {
		a.Status = types.StatusNeedsReview
		a.Flags = append(a.Flags, types.FlagWeakBiologicsSignal)
	}

	// Mixed-signal articles go to a human, never auto-accept.
	if hasSmallMolecule && hasBiologics {
		a.Flags = append(a.Flags, types.FlagSmallMoleculeMention)
		if a.Status == types.StatusPertinent {
			a.Status = types.StatusNeedsReview
		}
	}

	// A pertinence claim must be backed by at least one structured fact.
	if a.Status == types.StatusPertinent && len(a.Facts) == 0 {
		a.Status = types.StatusNeedsReview
		a.Flags = append(a.Flags, types.FlagNoNumericFacts)
	}

	if a.Status == types.StatusNeedsReview && len(a.Facts) == 0 && len(a.EventTypes) == 0 && hasSignal {
		a.Flags = append(a.Flags, types.FlagBioManufacturingSignal)
	}

	// Final safety net: nothing extracted and no domain signal at all.
	if len(a.Facts) == 0 && len(a.EventTypes) == 0 && !hasSignal {
		a.Status = types.StatusNotPertinent
	}

	// Short or empty bodies cannot support a firm pertinence claim.
	if len(body) < 400 && len(a.Facts) == 0 {
		a.Flags = append(a.Flags, types.FlagLowEvidence)
		if a.Status == types.StatusPertinent {
			a.Status = types.StatusNeedsReview
		}
	}

	return a
}

// KeyFactsText joins fact summaries into the human-readable key_facts_text
// field.
func KeyFactsText(facts []types.Fact) string {
	if len(facts) == 0 {
		return ""
	}
	summaries := make([]string, 0, len(facts))
	for _, f := range facts {
		summaries = append(summaries, strings.TrimSpace(fmt.Sprintf("%s: %s", f.Type, f.ValueRaw)))
	}
	return strings.Join(summaries, "; ")
}

// ArticleID builds the deterministic record ID: a slug of outlet, published
// date, and title, truncated to 120 characters. When the full slug comes out
// empty the date is dropped from the input.
func ArticleID(outlet, publishedAt, title string) string {
	s := slug.Make(fmt.Sprintf("%s-%s-%s", outlet, publishedAt, title))
	if s == "" {
		return slug.Make(outlet + "-" + title)
	}
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
