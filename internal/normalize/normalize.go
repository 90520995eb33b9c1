// Package normalize turns raw lyric and query text into the comparable forms
// stored in and matched against the search columns.
package normalize

import (
	"strings"
	"unicode"
)

// Punctuation is the character class removed from lyrics and query tokens.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[]^_`{|}~"

// QueryJoiner joins query tokens; it reads as a logical AND.
const QueryJoiner = "&"

var punctuation [128]bool

func init() {
	for _, r := range Punctuation {
		punctuation[r] = true
	}
}

func isPunctuation(r rune) bool {
	return r < 128 && punctuation[r]
}

// Lyrics normalizes raw lyric text for the search column: chord annotations in
// brackets are dropped, punctuation removed, newlines and whitespace runs
// collapsed to single spaces, and the result lower-cased.
func Lyrics(raw string) string {
	return strings.ToLower(collapseSpaces(removePunctuation(stripChords(raw))))
}

// SearchQuery formats free text as an AND query over its whitespace separated
// tokens, e.g. "  Amazing GRACE! " becomes "amazing&grace". Blank input gives
// an empty query.
func SearchQuery(raw string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := removePunctuation(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return strings.Join(tokens, QueryJoiner)
}

// IsNumeric reports whether s is a non-empty run of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// stripChords drops everything enclosed in square brackets. Nesting is tracked
// with a depth counter so "[a[b]c]" is removed whole.
func stripChords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func removePunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if isPunctuation(r) {
			return -1
		}
		return r
	}, s)
}

// collapseSpaces turns newlines into spaces, squeezes runs of two or more
// whitespace characters into one space and trims the ends.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	run := 0
	var last rune
	flush := func() {
		switch run {
		case 0:
		case 1:
			b.WriteRune(last)
		default:
			b.WriteByte(' ')
		}
		run = 0
	}
	for _, r := range s {
		if r == '\n' {
			r = ' '
		}
		if unicode.IsSpace(r) {
			run++
			last = r
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return strings.TrimSpace(b.String())
}
