// Package textutil provides text normalization and error-code pattern
// extraction for the diagnostic pipeline.
package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize lowercases text, trims surrounding whitespace, and collapses
// internal whitespace runs to single spaces. Empty input yields "".
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(strings.TrimSpace(text))
	return whitespaceRe.ReplaceAllString(text, " ")
}

// SanitizeInput strips surrounding whitespace and truncates to maxLength
// runes. Cutting on runes keeps the result valid UTF-8.
func SanitizeInput(text string, maxLength int) string {
	text = strings.TrimSpace(text)
	if maxLength <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) > maxLength {
		return string(runes[:maxLength])
	}
	return text
}

var (
	erCodeRe     = regexp.MustCompile(`(?i)\b(er\d{3,4})\b`)
	errorWordRe  = regexp.MustCompile(`(?i)\berror\s*(?:code)?\s*(\d{1,4})\b`)
	ePrefixRe    = regexp.MustCompile(`(?i)\b(e\d{1,4})\b`)
	bareNumberRe = regexp.MustCompile(`\b(\d{3,4})\b`)
	numberOnlyRe = regexp.MustCompile(`^\d{3,4}$`)
)

// contextKeywords mark a bare number as a probable error code. Without one
// of these, arbitrary numerals in conversation are ignored.
var contextKeywords = []string{"error", "code", "fault", "issue", "problem", "showing"}

// ExtractErrorCode extracts an error-code token from a raw message. Patterns
// are tried in order and the first match wins: explicit ER### formats beat
// "error N" phrasings, which beat E-prefixed numbers, which beat bare
// numbers. Bare 3-4 digit numbers are returned as-is (no ER prefix) and only
// when they are the entire trimmed message or a context keyword is present.
// Returns "" when nothing matches.
func ExtractErrorCode(message string) string {
	if message == "" {
		return ""
	}

	if m := erCodeRe.FindStringSubmatch(message); m != nil {
		return strings.ToUpper(m[1])
	}

	if m := errorWordRe.FindStringSubmatch(message); m != nil {
		return "ER" + zeroPad(m[1], 3)
	}

	if m := ePrefixRe.FindStringSubmatch(message); m != nil {
		return "ER" + zeroPad(m[1][1:], 3)
	}

	if m := bareNumberRe.FindStringSubmatch(message); m != nil {
		if numberOnlyRe.MatchString(strings.TrimSpace(message)) {
			return m[1]
		}
		lower := strings.ToLower(message)
		for _, kw := range contextKeywords {
			if strings.Contains(lower, kw) {
				return m[1]
			}
		}
	}

	return ""
}

func zeroPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// stopWords are excluded from keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "is": {}, "it": {}, "this": {}, "that": {}, "i": {}, "my": {},
}

// Keywords extracts meaningful words from text: normalized, stop words
// removed, and words of length <= 2 dropped.
func Keywords(text string) []string {
	if text == "" {
		return nil
	}
	var keywords []string
	for _, w := range strings.Fields(Normalize(text)) {
		if _, stop := stopWords[w]; stop || len(w) <= 2 {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}
