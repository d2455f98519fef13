// Package extract implements the default heuristic entity and relation
// extraction used by relationship discovery. Both sides sit behind the
// domain interfaces so a real NER or relation-extraction model can replace
// them without touching the discovery and merge logic.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Words that start sentences without naming anything.
var entityStopwords = map[string]bool{
	"The": true,
	"A":   true,
	"An":  true,
}

const minEntityLength = 3

var trailingPunct = regexp.MustCompile(`[,.!?;:]$`)

// HeuristicExtractor finds candidate entities as contiguous runs of
// capitalized words.
type HeuristicExtractor struct{}

func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

func (e *HeuristicExtractor) Entities(text string) []string {
	words := strings.Fields(text)
	var entities []string

	i := 0
	for i < len(words) {
		word := words[i]
		if !isCapitalized(word) || entityStopwords[word] {
			i++
			continue
		}

		// Collect consecutive capitalized words into one phrase.
		j := i + 1
		phrase := word
		for j < len(words) && isCapitalized(words[j]) {
			phrase += " " + words[j]
			j++
		}

		phrase = trailingPunct.ReplaceAllString(phrase, "")
		if len(phrase) >= minEntityLength {
			entities = append(entities, phrase)
		}
		i = j
	}

	return entities
}

func isCapitalized(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}

// relationPatterns is the fixed catalog of relation types and the phrase
// alternations that signal them, matched case-insensitively.
var relationPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"part_of", regexp.MustCompile(`(?i)(?:is part of|comprises|contains|includes)`)},
	{"similar_to", regexp.MustCompile(`(?i)(?:similar to|like|analogous to|resembles)`)},
	{"causes", regexp.MustCompile(`(?i)(?:causes|leads to|results in|triggers)`)},
	{"related_to", regexp.MustCompile(`(?i)(?:related to|associated with|connected to)`)},
	{"parent_of", regexp.MustCompile(`(?i)(?:parent|superclass|category of)`)},
	{"child_of", regexp.MustCompile(`(?i)(?:child|instance of|subclass of)`)},
	{"collaborates_with", regexp.MustCompile(`(?i)(?:works with|collaborates with|partners with)`)},
	{"depends_on", regexp.MustCompile(`(?i)(?:depends on|relies on|requires)`)},
	{"influences", regexp.MustCompile(`(?i)(?:influences|affects|impacts)`)},
	{"opposite_of", regexp.MustCompile(`(?i)(?:opposite of|opposite to|contrary to)`)},
}

// PatternMatcher tests text against the relation catalog.
type PatternMatcher struct{}

func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// Match returns the relation type names expressed by text, in catalog order.
func (m *PatternMatcher) Match(text string) []string {
	var matched []string
	for _, rp := range relationPatterns {
		if rp.pattern.MatchString(text) {
			matched = append(matched, rp.name)
		}
	}
	return matched
}

// RelationTypes lists the catalog's relation type names in order.
func RelationTypes() []string {
	names := make([]string, len(relationPatterns))
	for i, rp := range relationPatterns {
		names[i] = rp.name
	}
	return names
}
