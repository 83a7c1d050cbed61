// Package textnorm holds the text cleanup helpers used while reading résumé documents.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text and collapses every whitespace run into a single space.
// Decomposed accents are composed (NFC) first so equal words compare equal.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(text))), " ")
}

// ExtractBetweenMarkers returns the normalized lines strictly between the first
// exact occurrence of start and the first following exact occurrence of end.
// A missing start yields nil; a missing end runs to the end of lines.
func ExtractBetweenMarkers(lines []string, start, end string) []string {
	from := -1
	for i, l := range lines {
		if l == start {
			from = i + 1
			break
		}
	}
	if from < 0 {
		return nil
	}

	to := len(lines)
	for i := from; i < len(lines); i++ {
		if lines[i] == end {
			to = i
			break
		}
	}

	out := make([]string, 0, to-from)
	for _, l := range lines[from:to] {
		out = append(out, Normalize(l))
	}
	return out
}

var (
	cefrLevel     = regexp.MustCompile(`(?i)([abc])[\-\s]*(\d{1,2})\b`)
	digitLevel    = regexp.MustCompile(`([^\d]*?)(\d{1,2})\b`)
	nonWord       = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	trailingPunct = regexp.MustCompile(`[^\p{L}\p{N}_\s]+$`)
	trailingDash  = regexp.MustCompile(`[\-\s]+$`)
)

// CleanLanguageEntry splits a "language + level" entry such as "English (B2)".
// The level is "" when none is found.
func CleanLanguageEntry(text string) (string, string) {
	if m := cefrLevel.FindStringSubmatchIndex(text); m != nil {
		level := strings.ToUpper(text[m[2]:m[3]]) + text[m[4]:m[5]]

		before := nonWord.ReplaceAllString(text[:m[2]], " ")
		return strings.TrimSpace(Normalize(before) + " " + level), level
	}

	if m := digitLevel.FindStringSubmatch(text); m != nil {
		before := strings.TrimSpace(m[1])
		before = trailingPunct.ReplaceAllString(before, "")
		before = strings.TrimSpace(trailingDash.ReplaceAllString(before, ""))
		if before != "" {
			return Normalize(before) + " " + m[2], m[2]
		}
	}

	return Normalize(text), ""
}

// positionLevels is checked in order; the first hit wins.
var positionLevels = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(SENIOR)\b`),
	regexp.MustCompile(`(?i)\b(JUNIOR)\b`),
	regexp.MustCompile(`(?i)\b(MIDDLE)\b`),
	regexp.MustCompile(`(?i)\b(LEAD)\b`),
	regexp.MustCompile(`(?i)\b(INTERN|INTERNSHIP)\b`),
	regexp.MustCompile(`(?i)\b(ENTRY[- ]LEVEL)\b`),
	regexp.MustCompile(`(?i)\b(PRINCIPAL)\b`),
	regexp.MustCompile(`(?i)\b(STAFF)\b`),
	regexp.MustCompile(`(?i)\b(SR\.)`),
	regexp.MustCompile(`(?i)\b(JR\.)`),
}

var (
	doubledSlash   = regexp.MustCompile(`\s+/\s*/\s*`)
	edgeSeparators = regexp.MustCompile(`^\s*[/\s]+|[/\s]+\s*$`)
)

// ExtractPositionLevel pulls a seniority keyword out of a position line.
// It returns the upper-cased keyword ("" when none) and the normalized remainder.
func ExtractPositionLevel(text string) (string, string) {
	upper := strings.ToUpper(text)

	var level string
	for _, re := range positionLevels {
		m := re.FindStringSubmatch(upper)
		if m == nil {
			continue
		}
		level = strings.ToUpper(m[1])
		text = removeFirstFold(text, m[1])
		break
	}

	if level != "" {
		text = doubledSlash.ReplaceAllString(text, "/")
		text = edgeSeparators.ReplaceAllString(text, "")
		text = strings.Join(strings.Fields(text), " ")
	}

	return level, Normalize(text)
}

// levelLiterals removes the first case-insensitive occurrence of a matched
// keyword, keyed by its upper-case spelling.
var levelLiterals = func() map[string]*regexp.Regexp {
	words := []string{
		"SENIOR", "JUNIOR", "MIDDLE", "LEAD", "INTERN", "INTERNSHIP",
		"ENTRY-LEVEL", "ENTRY LEVEL", "PRINCIPAL", "STAFF", "SR.", "JR.",
	}
	m := make(map[string]*regexp.Regexp, len(words))
	for _, w := range words {
		m[w] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(w))
	}
	return m
}()

// removeFirstFold drops the first case-insensitive occurrence of keyword from s.
func removeFirstFold(s, keyword string) string {
	re, ok := levelLiterals[strings.ToUpper(keyword)]
	if !ok {
		return s
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}
