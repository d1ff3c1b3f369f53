// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textnorm normalizes disease phrases before they are used as
// lookup keys or annotator queries, and derives the modified search phrase
// used when an exact search finds nothing.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultStopWords are removed by Modify when no stop-word list is configured.
var DefaultStopWords = []string{"type"}

// maxShortToken is the longest trailing token Modify drops when it contains a digit.
const maxShortToken = 4

// quoting lists characters stripped from phrases. OMIM wraps susceptibility
// and non-disease phenotypes in braces and brackets.
const quoting = "\"{}[]"

// Normalize trims the phrase, strips quoting characters and a leading "?",
// applies NFKC, collapses runs of whitespace and lowercases the result.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(quoting, r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "?")
	s = strings.Trim(s, "'")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// Key returns the case-insensitive lookup key for a code or phrase.
func Key(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Modify derives the alternative phrase for a failed exact search:
// stop words are removed, trailing short tokens containing digits are
// dropped from every comma-separated clause, and the clauses are rejoined
// in reverse order ("cataract, juvenile" becomes "juvenile cataract").
// It returns "" when the transform leaves the phrase unchanged or empty.
func Modify(phrase string, stopWords []string) string {
	if len(stopWords) == 0 {
		stopWords = DefaultStopWords
	}
	stops := make(map[string]bool, len(stopWords))
	for _, w := range stopWords {
		stops[strings.ToLower(w)] = true
	}

	normalized := Normalize(phrase)

	var clauses []string
	for _, raw := range strings.Split(normalized, ",") {
		var kept []string
		for _, tok := range strings.Fields(raw) {
			if stops[strings.Trim(tok, ";:.")] {
				continue
			}
			kept = append(kept, tok)
		}
		for len(kept) > 0 && isShortDigitToken(kept[len(kept)-1]) {
			kept = kept[:len(kept)-1]
		}
		if len(kept) > 0 {
			clauses = append(clauses, strings.Join(kept, " "))
		}
	}
	if len(clauses) == 0 {
		return ""
	}

	for i, j := 0, len(clauses)-1; i < j; i, j = i+1, j-1 {
		clauses[i], clauses[j] = clauses[j], clauses[i]
	}
	modified := strings.Join(clauses, " ")
	if modified == normalized {
		return ""
	}
	return modified
}

func isShortDigitToken(tok string) bool {
	if len([]rune(tok)) > maxShortToken {
		return false
	}
	for _, r := range tok {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Trail accumulates the code and phrases tried while resolving one record.
type Trail struct {
	parts []string
}

// Add appends s unless it is blank or already present.
func (t *Trail) Add(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	for _, p := range t.parts {
		if p == s {
			return
		}
	}
	t.parts = append(t.parts, s)
}

// String joins the trail with " | ".
func (t *Trail) String() string {
	return strings.Join(t.parts, " | ")
}
