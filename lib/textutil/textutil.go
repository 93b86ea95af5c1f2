package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases the name and strips all whitespace, it is used for
// comparing names typed by a person against names rendered by the portal.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// CleanLabel removes non-printable characters and collapses inner whitespace
// the way the portal's option labels render on screen.
func CleanLabel(label string) string {
	label = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, label)
	label = strings.TrimSpace(label)
	label = whitespaceRegex.ReplaceAllString(label, " ")
	return label
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// BestMatch finds the candidate that corresponds to target. Exact matches on
// the normalized names win, then the most Jaro-Winkler similar candidate at or
// above threshold, then the first candidate that starts with the target.
// It returns -1 when nothing matches.
func BestMatch(target string, candidates []string, threshold float64) int {
	normalizedTarget := NormalizeName(target)
	if normalizedTarget == "" {
		return -1
	}

	normalized := make([]string, len(candidates))
	for i, c := range candidates {
		normalized[i] = NormalizeName(c)
		if normalized[i] == normalizedTarget {
			return i
		}
	}

	best := -1
	bestSimilarity := 0.0
	for i, c := range normalized {
		similarity := matchr.JaroWinkler(normalizedTarget, c, false)
		if similarity >= threshold && similarity > bestSimilarity {
			bestSimilarity = similarity
			best = i
		}
	}
	if best >= 0 {
		return best
	}

	for i, c := range normalized {
		if strings.HasPrefix(c, normalizedTarget) {
			return i
		}
	}
	return -1
}

// SafeFilename replaces the characters that are unsafe in file names the same
// way for every artifact this tool writes.
func SafeFilename(s string) string {
	return strings.NewReplacer("/", "-", "\\", "-", " ", "_").Replace(s)
}
