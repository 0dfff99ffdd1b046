package patterndb

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FieldMatch is one rule-table hit: a field name, its extracted value,
// and the rule's confidence.
type FieldMatch struct {
	Field      string
	Value      string
	Confidence float32
}

// Apply runs the rule table over rawHTML for the given platform (as
// detected by DetectPlatform), plus every platform-agnostic rule.
// existing carries the fields Layer 1 (the Structured Extractor)
// already populated at a known confidence; Apply never emits a field
// at a confidence lower than or equal to an existing entry, so a
// pattern-engine guess can never clobber a higher-confidence
// structured-data value.
func Apply(rawHTML []byte, platform Platform, existing map[string]float32) []FieldMatch {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(rawHTML)))
	if err != nil {
		return nil
	}

	ordered := orderedRules(platform)

	var matches []FieldMatch
	seen := make(map[string]bool)
	for _, rule := range ordered {
		if seen[rule.Field] {
			continue
		}
		if existingConf, ok := existing[rule.Field]; ok && existingConf >= rule.Confidence {
			continue
		}

		sel := doc.Find(rule.Selector)
		if sel.Length() == 0 {
			continue
		}

		value := strings.TrimSpace(sel.First().Text())
		if value == "" {
			value = strings.TrimSpace(sel.First().AttrOr("content", ""))
		}
		if value == "" {
			continue
		}

		matches = append(matches, FieldMatch{Field: rule.Field, Value: value, Confidence: rule.Confidence})
		seen[rule.Field] = true
	}

	return matches
}

// orderedRules returns platform-specific rules first (highest
// confidence first), then generic rules, matching the teacher's
// first-match-wins evaluation model extended with a confidence
// tiebreak since Cortex allows multiple platforms' rules to coexist
// in one table.
func orderedRules(platform Platform) []FieldRule {
	var specific, generic []FieldRule
	for _, r := range Rules {
		if r.Platform == "" {
			generic = append(generic, r)
		} else if r.Platform == platform {
			specific = append(specific, r)
		}
	}
	sort.SliceStable(specific, func(i, j int) bool { return specific[i].Confidence > specific[j].Confidence })
	sort.SliceStable(generic, func(i, j int) bool { return generic[i].Confidence > generic[j].Confidence })
	return append(specific, generic...)
}
