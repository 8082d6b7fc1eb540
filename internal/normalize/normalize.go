// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize canonicalizes titles, author strings, and DOIs so that
// similarity scoring compares content rather than formatting.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "for": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "with": {}, "by": {}, "from": {}, "and": {}, "or": {},
	"using": {}, "based": {},
}

// punctuation splits tokens ("Deep:Learning"); apostrophes and backticks
// are dropped so contractions stay one token.
var punctuation = strings.NewReplacer(
	":", " ", "–", " ", "—", " ",
	"(", " ", ")", " ", "[", " ", "]", " ", "{", " ", "}", " ",
	`"`, " ", "'", "", "`", "",
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldAccents removes combining marks ("Schrödinger" -> "Schrodinger").
func FoldAccents(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeTitle lower-cases s, drops punctuation and stopwords, removes
// every character outside [a-z0-9 ], and collapses whitespace.
func NormalizeTitle(s string) string {
	s = punctuation.Replace(strings.ToLower(FoldAccents(s)))
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		w = keepASCIIAlnum(w)
		if w == "" {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func keepASCIIAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// authorSeparators splits an author string into per-author groups.
var authorSeparators = regexp.MustCompile(`(?i)\s*(?:,|;|&|\band\b)\s*`)

// ExtractSurname returns the last word of the first author group, where
// groups are separated by ",", ";", or "and". "Smith, J." and
// "John Smith and Jane Doe" both yield "Smith".
func ExtractSurname(authors string) string {
	for _, group := range authorSeparators.Split(authors, -1) {
		fields := strings.Fields(group)
		if len(fields) == 0 {
			continue
		}
		return strings.TrimFunc(fields[len(fields)-1], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
	}
	return ""
}

// nameSeparators splits an author list into individual names.
var nameSeparators = regexp.MustCompile(`(?i)\s*(?:;|&|\band\b)\s*`)

var etAl = regexp.MustCompile(`(?i)\bet\.?\s+al\b\.?`)

// Surnames returns the lower-cased, accent-folded surnames of every author
// in the string, keeping only tokens longer than two letters. It accepts
// "Last, First", "First Last", "Last F" and comma-separated lists of either.
func Surnames(authors string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(name string) {
		s := surnameToken(name)
		if len(s) <= 2 {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, piece := range nameSeparators.Split(etAl.ReplaceAllString(authors, ""), -1) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		segments := splitTrim(piece, ",")
		switch {
		case len(segments) == 1:
			add(surnameOf(segments[0]))
		case len(segments) == 2 && (isInitials(segments[1]) || len(strings.Fields(segments[0])) == 1):
			// "Smith, J." or "Smith, John"
			add(lastWord(segments[0]))
		case alternatesInitials(segments):
			// "Smith, J., Doe, A."
			for i := 0; i < len(segments); i += 2 {
				add(lastWord(segments[i]))
			}
		default:
			for _, seg := range segments {
				if isInitials(seg) {
					continue
				}
				add(surnameOf(seg))
			}
		}
	}
	return out
}

// surnameOf picks the surname from a single "First Last" or "Last F" name.
func surnameOf(name string) string {
	fields := strings.Fields(name)
	for i := len(fields) - 1; i >= 0; i-- {
		if !isInitials(fields[i]) {
			return fields[i]
		}
	}
	return ""
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func surnameToken(s string) string {
	return keepASCIIAlnum(strings.ToLower(FoldAccents(s)))
}

// isInitials reports whether every word of s is an initial such as "J.",
// "J.K." or "JK".
func isInitials(s string) bool {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		letters := 0
		for _, r := range f {
			switch {
			case r == '.' || r == '-':
			case unicode.IsLetter(r):
				letters++
			default:
				return false
			}
		}
		if letters == 0 || letters > 2 {
			return false
		}
		if letters == 2 && !strings.Contains(f, ".") && strings.ToUpper(f) != f {
			return false
		}
	}
	return true
}

func alternatesInitials(segments []string) bool {
	if len(segments)%2 != 0 {
		return false
	}
	for i := 1; i < len(segments); i += 2 {
		if !isInitials(segments[i]) || isInitials(segments[i-1]) {
			return false
		}
	}
	return true
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"doi:",
}

// NormalizeDOI trims whitespace, strips resolver and "doi:" prefixes, and
// lower-cases the result.
func NormalizeDOI(doi string) string {
	d := strings.ToLower(strings.TrimSpace(doi))
	for _, p := range doiPrefixes {
		if strings.HasPrefix(d, p) {
			d = strings.TrimSpace(strings.TrimPrefix(d, p))
			break
		}
	}
	return d
}
