// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/capacity-news/pkg/types"
)

// Pattern rules per fact family. Each matches a quantity plus a unit; the
// surrounding sentence must additionally pass a context-noun gate before a
// match becomes a fact.
var (
	bioreactorPattern = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*|\d+(?:\.\d+)?)\s*(?:x\s*)?(\d{1,3}(?:,\d{3})*|\d+(?:\.\d+)?)?\s*-?\s*(?:l|liter|liters|litre|litres)\b`)
	capacityPattern   = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*|\d+(?:\.\d+)?)(?:\s*(?:x\s*)?(\d{1,3}(?:,\d{3})*|\d+(?:\.\d+)?))?\s*-?\s*(?:l|liter|liters|litre|litres)\b`)
	footprintPattern  = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*|\d+(?:\.\d+)?|(?:one|two|three|four|five|six|seven|eight|nine|ten)(?:\s+and\s+a\s+half)?)\s*-?\s*(sq\.?\s*ft|sq ft|square\s*-?\s*feet|square\s*-?\s*foot|sqft|sqm|m2|m²)\b`)
	fillFinishPattern = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*|\d+(?:\.\d+)?|(?:one|two|three|four|five|six|seven|eight|nine|ten))\s*(million|billion)?\s*(vials|syringes|doses)\b`)
	fillRatePattern   = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*|\d+(?:\.\d+)?|(?:one|two|three|four|five|six|seven|eight|nine|ten))\s*(vials|syringes|doses)\s*(?:per|/)\s*(minute|min|hour|hr)\b`)
	capexPattern      = regexp.MustCompile(`(?i)(?:\$\s*)?(\d+(?:\.\d+)?)\s*(billion|million|b|m)\b`)
	capexRawPattern   = regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})+(?:\.\d+)?)`)
)

// Context gates and vetoes, all matched against the lowercased sentence.
var (
	bioreactorNouns = []string{"bioreactor", "single-use", "fermenter", "cell culture", "train"}
	capacityNouns   = []string{"capacity", "batch-fed", "cell culture", "manufacturing", "site", "facility", "plant"}
	footprintNouns  = []string{"facility", "site", "plant", "campus", "building", "cleanroom"}
	annualCadence   = []string{"per year", "annually", "/year", "per month", "annual"}

	salesTerms    = []string{"sales", "revenue", "earnings", "net income", "profit", "profitability", "ebitda", "quarter", "q1", "q2", "q3", "q4"}
	currencyTerms = []string{"$", "usd", "us$", "dollar", "dollars", "eur", "€", "euro", "euros", "gbp", "£", "pound", "pounds"}

	capexPositiveTerms = []string{
		"invest", "investment", "investing", "capex", "capital expenditure", "spend", "spending",
		"build", "construction", "facility", "plant", "site", "campus", "expansion", "expanded",
		"greenfield", "retrofit", "commissioning", "manufacturing", "production", "upgrade",
	}
	capexNegativeTerms = []string{
		"ad spend", "advertising", "marketing", "sales", "revenue", "earnings",
		"net income", "profit", "profitability", "ebitda", "price", "pricing",
		"lawsuit", "litigation", "settlement", "fine", "penalty", "damages",
		"insider trading", "allegations", "shares", "stock",
	}
)

// FactSet is the extractor's output: the deduplicated facts plus the four
// presence booleans the classifier uses as its numeric trigger.
type FactSet struct {
	Facts []types.Fact

	HasBioreactorL      bool
	HasFootprint        bool
	HasFillFinishOutput bool
	HasCapex            bool
}

// Facts scans each sentence of text independently and returns the typed
// facts it finds. A fact's normalized value may be absent when the raw match
// does not parse; the evidence is recorded regardless.
func Facts(text string) FactSet {
	var set FactSet

	for _, sentence := range SplitSentences(text) {
		lowered := strings.ToLower(sentence)

		for _, m := range bioreactorPattern.FindAllStringSubmatch(sentence, -1) {
			if !containsAny(lowered, bioreactorNouns) {
				continue
			}
			set.Facts = append(set.Facts, types.Fact{
				Type:            types.FactBioreactorVolume,
				ValueRaw:        m[0],
				ValueNorm:       volumeNorm(m[1], m[2]),
				Unit:            "L",
				EvidenceSnippet: sentence,
				Context:         "bioreactor",
			})
			set.HasBioreactorL = true
		}

		for _, m := range capacityPattern.FindAllStringSubmatch(sentence, -1) {
			if !containsAny(lowered, capacityNouns) {
				continue
			}
			set.Facts = append(set.Facts, types.Fact{
				Type:            types.FactCapacityVolume,
				ValueRaw:        m[0],
				ValueNorm:       volumeNorm(m[1], m[2]),
				Unit:            "L",
				EvidenceSnippet: sentence,
				Context:         "capacity",
			})
			set.HasBioreactorL = true
		}

		for _, m := range footprintPattern.FindAllStringSubmatch(sentence, -1) {
			if !containsAny(lowered, footprintNouns) {
				continue
			}
			norm := parseNumeric(m[1])
			if norm.Valid && strings.Contains(strings.ToLower(m[0]), "million") {
				norm = types.Mag(norm.Value * 1_000_000)
			}
			set.Facts = append(set.Facts, types.Fact{
				Type:            types.FactFacilityFootprint,
				ValueRaw:        m[0],
				ValueNorm:       norm,
				Unit:            m[2],
				EvidenceSnippet: sentence,
				Context:         "footprint",
			})
			set.HasFootprint = true
		}

		for _, m := range fillFinishPattern.FindAllStringSubmatch(sentence, -1) {
			if !containsAny(lowered, annualCadence) {
				continue
			}
			norm := parseNumeric(m[1])
			if norm.Valid {
				switch strings.ToLower(m[2]) {
				case "million":
					norm = types.Mag(norm.Value * 1_000_000)
				case "billion":
					norm = types.Mag(norm.Value * 1_000_000_000)
				}
			}
			set.Facts = append(set.Facts, types.Fact{
				Type:            types.FactFillFinishOutput,
				ValueRaw:        m[0],
				ValueNorm:       norm,
				Unit:            m[3],
				EvidenceSnippet: sentence,
				Context:         "fill_finish",
			})
			set.HasFillFinishOutput = true
		}

		for _, m := range fillRatePattern.FindAllStringSubmatch(sentence, -1) {
			norm := parseNumeric(m[1])
			if !norm.Valid {
				continue
			}
			set.Facts = append(set.Facts, types.Fact{
				Type:            types.FactFillFinishRate,
				ValueRaw:        m[0],
				ValueNorm:       norm,
				Unit:            m[2] + "/" + m[3],
				EvidenceSnippet: sentence,
				Context:         "fill_finish",
			})
			set.HasFillFinishOutput = true
		}

		extractCapex(sentence, lowered, &set)
	}

	set.Facts = dedupeFacts(set.Facts)
	return set
}

// extractCapex matches currency-scaled amounts ("$450 million") and, absent
// that pattern, raw dollar amounts with thousands separators. Negative
// context (sales results, litigation, stock moves) vetoes the sentence
// unconditionally, even when investment language is also present.
func extractCapex(sentence, lowered string, set *FactSet) {
	isSales := containsAny(lowered, salesTerms)
	isCapex := containsAny(lowered, capexPositiveTerms)
	isNonCapex := containsAny(lowered, capexNegativeTerms)
	hasCurrency := containsAny(lowered, currencyTerms)

	if m := capexPattern.FindStringSubmatch(sentence); m != nil {
		if isSales || isNonCapex || !isCapex {
			return
		}
		if !hasCurrency {
			// Avoid "million liters" and other non-monetary quantities.
			return
		}
		set.Facts = append(set.Facts, types.Fact{
			Type:            types.FactCapex,
			ValueRaw:        m[0],
			ValueNorm:       normalizeCapex(m[1], m[2]),
			Unit:            "USD",
			EvidenceSnippet: sentence,
			Context:         "investment",
		})
		set.HasCapex = true
		return
	}

	if !isCapex || isSales || isNonCapex {
		return
	}
	if m := capexRawPattern.FindStringSubmatch(sentence); m != nil {
		set.Facts = append(set.Facts, types.Fact{
			Type:            types.FactCapex,
			ValueRaw:        m[0],
			ValueNorm:       parseNumeric(m[1]),
			Unit:            "USD",
			EvidenceSnippet: sentence,
			Context:         "investment",
		})
		set.HasCapex = true
	}
}

// volumeNorm combines the primary quantity with an optional "N x M"
// multiplier; both must parse for the product to be used.
func volumeNorm(primary, secondary string) types.Magnitude {
	p := parseNumeric(primary)
	if secondary == "" {
		return p
	}
	s := parseNumeric(secondary)
	if p.Valid && s.Valid {
		return types.Mag(p.Value * s.Value)
	}
	return p
}

// normalizeCapex scales a currency amount by its magnitude word.
func normalizeCapex(value, scale string) types.Magnitude {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return types.Magnitude{}
	}
	switch strings.ToLower(scale) {
	case "billion", "b":
		return types.Mag(v * 1_000_000_000)
	case "million", "m":
		return types.Mag(v * 1_000_000)
	}
	return types.Magnitude{}
}

type factKey struct {
	factType types.FactType
	norm     types.Magnitude
	evidence string
}

// dedupeFacts removes repeats of (type, normalized value, evidence sentence).
// A capacity_volume fact is also suppressed when an equivalent
// bioreactor_volume fact was already recorded for the same sentence, so one
// piece of text never counts twice.
func dedupeFacts(facts []types.Fact) []types.Fact {
	seen := make(map[factKey]struct{}, len(facts))
	deduped := facts[:0:0]
	for _, f := range facts {
		if f.Type == types.FactCapacityVolume {
			if _, ok := seen[factKey{types.FactBioreactorVolume, f.ValueNorm, f.EvidenceSnippet}]; ok {
				continue
			}
		}
		key := factKey{f.Type, f.ValueNorm, f.EvidenceSnippet}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, f)
	}
	return deduped
}
