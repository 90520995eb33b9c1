// Package search ranks songs against free text queries. Candidates are
// fetched by the database layer; everything that decides whether a row
// matches and how well happens here.
package search

import (
	"sort"
	"strings"

	"github.com/Church-Life-Apps/Backend/internal/models"
	"github.com/Church-Life-Apps/Backend/internal/normalize"
)

const (
	// SimilarityThreshold is the minimum trigram similarity for a title or
	// author to count as a fuzzy match.
	SimilarityThreshold = 0.3
	// WordSimilarityThreshold is the minimum word similarity for a lyric.
	WordSimilarityThreshold = 0.6

	MaxTextResults   = 20
	MaxNumberResults = 100
)

// Candidate is one song row paired with at most one of its lyric sections.
// A song with several sections appears once per section.
type Candidate struct {
	Song models.Song
	// Lyrics is the normalized section text, empty when the song has no
	// lyrics. Terms is derived from it when nil.
	Lyrics string
	Terms  Vector
}

// Match is a ranked song.
type Match struct {
	Song     models.Song
	Likeness float64
}

// Matcher holds a query prepared for scoring many candidates.
type Matcher struct {
	text     string
	lower    string
	trigrams trigramSet
	query    Query
}

func NewMatcher(text string) *Matcher {
	text = strings.TrimSpace(text)
	return &Matcher{
		text:     text,
		lower:    strings.ToLower(text),
		trigrams: newTrigramSet(text),
		query:    ParseQuery(normalize.SearchQuery(text)),
	}
}

// Query returns the parsed full text query.
func (m *Matcher) Query() Query { return m.query }

// Score returns the likeness of c and whether c qualifies at all.
//
// A row qualifies when its title or author contains the query or is similar
// to it, or when its lyric section contains every query term or a stretch
// of the lyric is word-similar to the query.
func (m *Matcher) Score(c Candidate) (float64, bool) {
	if m.lower == "" {
		return 0, false
	}
	simTitle := m.trigrams.similarity(newTrigramSet(c.Song.Title))
	simAuthor := m.trigrams.similarity(newTrigramSet(c.Song.Author))
	wordSim := 0.0
	rank := 0.0
	matched := false
	if c.Lyrics != "" {
		wordSim = m.trigrams.wordSimilarity(c.Lyrics)
		terms := c.Terms
		if terms == nil {
			terms = Analyze(c.Lyrics)
		}
		rank = terms.Rank(m.query)
		matched = terms.Matches(m.query) || wordSim >= WordSimilarityThreshold
	}
	matched = matched ||
		strings.Contains(strings.ToLower(c.Song.Title), m.lower) ||
		strings.Contains(strings.ToLower(c.Song.Author), m.lower) ||
		simTitle >= SimilarityThreshold ||
		simAuthor >= SimilarityThreshold
	if !matched {
		return 0, false
	}
	return simTitle + simAuthor + wordSim + rank, true
}

// RankMatches scores every candidate, keeps the best scoring row per song and
// orders the songs by likeness, then by number. At most limit matches are
// returned; limit <= 0 means no cap.
func RankMatches(text string, rows []Candidate, limit int) []Match {
	m := NewMatcher(text)
	index := map[string]int{}
	var out []Match
	for _, row := range rows {
		likeness, ok := m.Score(row)
		if !ok {
			continue
		}
		if i, seen := index[row.Song.ID]; seen {
			if likeness > out[i].Likeness {
				out[i].Likeness = likeness
			}
			continue
		}
		index[row.Song.ID] = len(out)
		out = append(out, Match{Song: row.Song, Likeness: likeness})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Likeness != b.Likeness {
			return a.Likeness > b.Likeness
		}
		if a.Song.Number != b.Song.Number {
			return a.Song.Number < b.Song.Number
		}
		return a.Song.SongbookID < b.Song.SongbookID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Rank returns the songs of RankMatches without their scores.
func Rank(text string, rows []Candidate, limit int) []models.Song {
	matches := RankMatches(text, rows, limit)
	songs := make([]models.Song, len(matches))
	for i, m := range matches {
		songs[i] = m.Song
	}
	return songs
}
