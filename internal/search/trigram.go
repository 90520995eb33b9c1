package search

import (
	"strings"
	"unicode"
)

// Trigram matching follows pg_trgm: text is lower-cased and split into words
// of letters and digits, each word is padded with two spaces in front and one
// behind, and every three-rune window of a padded word is a trigram.

func trigramWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// trigrams returns the trigrams of s in text order, duplicates included.
func trigrams(s string) []string {
	var out []string
	for _, w := range trigramWords(s) {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			out = append(out, string(padded[i:i+3]))
		}
	}
	return out
}

type trigramSet map[string]struct{}

func newTrigramSet(s string) trigramSet {
	set := trigramSet{}
	for _, t := range trigrams(s) {
		set[t] = struct{}{}
	}
	return set
}

func (set trigramSet) similarity(other trigramSet) float64 {
	if len(set) == 0 || len(other) == 0 {
		return 0
	}
	common := 0
	for t := range other {
		if _, ok := set[t]; ok {
			common++
		}
	}
	return float64(common) / float64(len(set)+len(other)-common)
}

// wordSimilarity is the best ratio between the set and any contiguous extent
// of text's ordered trigrams. Extents are only scored when they start and end
// on a trigram in the set, since any other boundary can only lower the ratio.
func (set trigramSet) wordSimilarity(text string) float64 {
	if len(set) == 0 {
		return 0
	}
	seq := trigrams(text)
	best := 0.0
	seen := make(map[string]struct{}, len(set))
	for i := range seq {
		if _, ok := set[seq[i]]; !ok {
			continue
		}
		clear(seen)
		count, extent := 0, 0
		for j := i; j < len(seq); j++ {
			t := seq[j]
			_, inSet := set[t]
			if _, dup := seen[t]; !dup {
				seen[t] = struct{}{}
				extent++
				if inSet {
					count++
				}
			}
			if !inSet {
				continue
			}
			if sml := float64(count) / float64(len(set)+extent-count); sml > best {
				best = sml
			}
			if count == len(set) {
				break
			}
		}
		if best == 1 {
			return best
		}
	}
	return best
}

// Similarity returns the trigram similarity of a and b in [0,1].
func Similarity(a, b string) float64 {
	return newTrigramSet(a).similarity(newTrigramSet(b))
}

// WordSimilarity returns how well the trigrams of a are covered by some
// continuous stretch of b, in [0,1]. A phrase found verbatim inside b scores 1.
func WordSimilarity(a, b string) float64 {
	return newTrigramSet(a).wordSimilarity(b)
}
