// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns free-form article text into typed, evidence-backed
// numeric facts, detected event categories, and a relevance classification.
// Everything in this package is a pure function of its text inputs, so
// reprocessing an unchanged article always reproduces the same result.
package extract

import (
	"strconv"
	"strings"

	"github.com/pdiddy/capacity-news/pkg/types"
)

// SplitSentences splits text at '.', '!', or '?' followed by whitespace.
// Evidence snippets are always single sentences, never cross-sentence.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && isSpace(text[i+1]) {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// containsAny reports whether the lowercased text contains any of terms.
// Terms are expected to already be lowercase.
func containsAny(text string, terms []string) bool {
	lowered := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// wordNumbers is the closed set of spelled-out quantities the patterns accept.
var wordNumbers = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// parseNumeric converts a matched quantity to a Magnitude. It accepts digit
// sequences with thousands separators, decimals, and the spelled-out numbers
// one through ten. Anything else yields an absent Magnitude; the caller keeps
// the fact with its evidence either way.
func parseNumeric(raw string) types.Magnitude {
	cleaned := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, ",", "")))
	if cleaned == "" {
		return types.Magnitude{}
	}
	if v, ok := wordNumbers[cleaned]; ok {
		return types.Mag(v)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return types.Magnitude{}
	}
	return types.Mag(v)
}
