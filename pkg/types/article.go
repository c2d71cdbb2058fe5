// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the capacity-news pipeline.
package types

import (
	"bytes"
	"strconv"
	"time"
)

// Status is the pipeline's relevance verdict for an article.
type Status string

const (
	StatusPertinent    Status = "PERTINENT"
	StatusNeedsReview  Status = "NEEDS_REVIEW"
	StatusNotPertinent Status = "NOT_PERTINENT"
)

// EventType is a coarse category of manufacturing-capacity news.
type EventType string

const (
	EventExpansion    EventType = "expansion"
	EventNewFacility  EventType = "new_facility"
	EventConstruction EventType = "construction"
	EventShutdown     EventType = "shutdown"
	EventOutsourcing  EventType = "outsourcing"
)

// FactType categorizes a structured numeric extraction.
type FactType string

const (
	FactBioreactorVolume  FactType = "bioreactor_volume"
	FactCapacityVolume    FactType = "capacity_volume"
	FactFacilityFootprint FactType = "facility_footprint"
	FactFillFinishOutput  FactType = "fill_finish_output"
	FactFillFinishRate    FactType = "fill_finish_rate"
	FactCapex             FactType = "capex"
)

// Classifier flag vocabulary. Flags annotate an article's status with the
// reason a human reviewer should (or should not) look at it.
const (
	FlagSmallMoleculeOnly      = "SMALL_MOLECULE_ONLY"
	FlagWeakBiologicsSignal    = "WEAK_BIOLOGICS_SIGNAL"
	FlagSmallMoleculeMention   = "SMALL_MOLECULE_MENTION"
	FlagNoNumericFacts         = "NO_NUMERIC_FACTS"
	FlagBioManufacturingSignal = "BIO_MANUFACTURING_SIGNAL"
	FlagLowEvidence            = "LOW_EVIDENCE"
)

// Magnitude is a normalized numeric value that may be absent. Legacy corpus
// files store absent values as the empty string, so Magnitude marshals to a
// JSON number when Valid and to "" otherwise, and accepts either on read.
type Magnitude struct {
	Value float64
	Valid bool
}

// Mag returns a valid Magnitude holding v.
func Mag(v float64) Magnitude {
	return Magnitude{Value: v, Valid: true}
}

// MarshalJSON implements json.Marshaler.
func (m Magnitude) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte(`""`), nil
	}
	return strconv.AppendFloat(nil, m.Value, 'f', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler. Numbers, numeric strings,
// the empty string, and null are all accepted.
func (m *Magnitude) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" || string(data) == `""` {
		*m = Magnitude{}
		return nil
	}
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparseable legacy value; treat as absent rather than failing the load.
		*m = Magnitude{}
		return nil
	}
	*m = Magnitude{Value: v, Valid: true}
	return nil
}

// MarshalYAML mirrors the JSON representation for YAML exports.
func (m Magnitude) MarshalYAML() (any, error) {
	if !m.Valid {
		return "", nil
	}
	return m.Value, nil
}

// Fact is a structured, typed, evidence-backed numeric extraction from
// article text. Every fact carries the sentence it came from so the
// extraction can be audited against the source.
type Fact struct {
	// Type categorizes the fact family the pattern rule belongs to.
	Type FactType `json:"fact_type" yaml:"fact_type"`

	// ValueRaw is the matched source text, verbatim.
	ValueRaw string `json:"value_raw" yaml:"value_raw"`

	// ValueNorm is the normalized numeric magnitude, absent when the raw
	// text does not parse. The fact is kept either way.
	ValueNorm Magnitude `json:"value_norm" yaml:"value_norm"`

	// Unit is the measurement unit ("L", "sq ft", "vials", "USD", ...).
	Unit string `json:"unit" yaml:"unit"`

	// EvidenceSnippet is the sentence the fact was extracted from.
	EvidenceSnippet string `json:"evidence_snippet" yaml:"evidence_snippet"`

	// Context is a short category tag ("bioreactor", "capacity",
	// "footprint", "fill_finish", "investment").
	Context string `json:"context" yaml:"context"`
}

// Article is the persisted record for one news article. URL is the corpus
// merge key and is unique across the persisted list.
type Article struct {
	// ID is a deterministic slug of outlet, published date, and title,
	// truncated to 120 characters.
	ID string `json:"id" yaml:"id"`

	// PublishedAt is an ISO date string ("2026-01-16"), empty when unknown.
	PublishedAt string `json:"published_at" yaml:"published_at"`

	// Outlet is the news source name.
	Outlet string `json:"outlet" yaml:"outlet"`

	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`

	// Status is the relevance verdict.
	Status Status `json:"status" yaml:"status"`

	// CompanyPrimary is an unfilled placeholder for future entity linking.
	CompanyPrimary string `json:"company_primary" yaml:"company_primary"`

	// EventTypes lists detected event categories in first-seen order.
	EventTypes []EventType `json:"event_types" yaml:"event_types"`

	// KeyFactsText is a human-readable join of fact summaries.
	KeyFactsText string `json:"key_facts_text" yaml:"key_facts_text"`

	// Flags lists classifier annotations in the order they were applied.
	Flags []string `json:"flags" yaml:"flags"`

	HasBioreactorL      bool `json:"has_bioreactor_L" yaml:"has_bioreactor_L"`
	HasFootprint        bool `json:"has_footprint" yaml:"has_footprint"`
	HasFillFinishOutput bool `json:"has_fillfinish_output" yaml:"has_fillfinish_output"`
	HasCapex            bool `json:"has_capex" yaml:"has_capex"`

	Facts []Fact `json:"facts" yaml:"facts"`
}

// DiscoveryItem is a candidate article found on a listing page or feed.
// It exists for the duration of one run and is discarded after parsing.
type DiscoveryItem struct {
	URL   string
	Title string

	// PublishedAt is the listing-time date; zero when the listing did not
	// carry one.
	PublishedAt time.Time

	// FeedURL records which feed produced the item, when discovery went
	// through RSS.
	FeedURL string
}

// ParsedArticle is the output of fetching and extracting one article page.
// Any field may be empty; the orchestrator substitutes discovery-time
// fallbacks before building the Article record.
type ParsedArticle struct {
	Title string

	// PublishedAt is an ISO date string, empty when the page carried no
	// parseable date.
	PublishedAt string

	Body string
}
