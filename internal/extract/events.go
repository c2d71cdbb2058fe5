// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"

	"github.com/pdiddy/capacity-news/pkg/types"
)

// eventRules maps each event category to its fixed trigger phrases. The
// slice order fixes the order categories appear in detection output.
var eventRules = []struct {
	Type    types.EventType
	Phrases []string
}{
	{types.EventExpansion, []string{
		"capacity expansion", "expanding capacity", "expand capacity", "expanded capacity",
		"increase capacity", "increased capacity", "doubling capacity", "add capacity",
		"capacity upgrade",
	}},
	{types.EventNewFacility, []string{
		"new facility", "new site", "greenfield", "groundbreaking", "grand opening",
		"opened a facility", "opened a site", "opened a plant", "opened a campus",
		"opens a facility", "opens a site", "opens a plant", "opens a campus",
		"facility opening", "site opening", "plant opening", "campus opening",
	}},
	{types.EventConstruction, []string{
		"facility construction", "plant construction", "site construction",
		"under construction", "construction begins", "construction started",
		"retrofit facility", "retrofit plant", "retrofit site", "commissioning",
		"commissioned facility", "buildout", "ground-up build", "greenfield build",
	}},
	{types.EventShutdown, []string{
		"facility shutdown", "plant shutdown", "site shutdown", "facility closure",
		"plant closure", "site closure", "closure of a plant", "closure of the plant",
		"closure of its plant", "closure of a facility", "closure of the facility",
		"closure of its facility", "close its facility", "close its plant", "close its site",
		"closing its facility", "closing its plant", "closing its site",
		"closing the facility", "closing the plant", "closing the site",
		"mothball", "halted production", "halted operations",
		"suspend production", "suspended production", "shut down", "shut-down",
	}},
	{types.EventOutsourcing, []string{
		"cdmo", "cmo", "contract manufacturing", "capacity reservation", "reserved capacity",
		"dedicated line", "dedicated suite", "long-term agreement", "manufacturing agreement",
		"outsourcing", "contracted manufacturing",
	}},
}

var (
	closureTerms      = []string{"closure", "closed", "closing", "shutter", "shut down"}
	facilityTypeNouns = []string{"plant", "facility", "site", "campus"}
)

// EventTypes returns the categories whose phrase list matches text, in rule
// order with no duplicates. A second, sentence-level pass flags shutdown
// whenever closure language and a facility-type noun share a sentence,
// catching paraphrased closures the fixed phrase list misses.
func EventTypes(text string) []types.EventType {
	lowered := strings.ToLower(text)

	var events []types.EventType
	for _, rule := range eventRules {
		if containsAny(lowered, rule.Phrases) {
			events = append(events, rule.Type)
		}
	}

	for _, sentence := range SplitSentences(lowered) {
		if containsAny(sentence, closureTerms) && containsAny(sentence, facilityTypeNouns) {
			if !hasEvent(events, types.EventShutdown) {
				events = append(events, types.EventShutdown)
			}
			break
		}
	}
	return events
}

func hasEvent(events []types.EventType, e types.EventType) bool {
	for _, have := range events {
		if have == e {
			return true
		}
	}
	return false
}
