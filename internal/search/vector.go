package search

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	snowballeng "github.com/kljensen/snowball/english"

	"github.com/Church-Life-Apps/Backend/internal/normalize"
)

// Vector maps stemmed terms to their 1-based word positions in a normalized
// lyric. It is stored alongside the lyric in the search_terms column.
type Vector map[string][]int

// Postgres english stop word list.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`i me my myself we our ours ourselves you your yours
		yourself yourselves he him his himself she her hers herself it its itself they them
		their theirs themselves what which who whom this that these those am is are was were
		be been being have has had having do does did doing a an the and but if or because
		as until while of at by for with about against between into through during before
		after above below to from up down in out on off over under again further then once
		here there when where why how all any both each few more most other some such no nor
		not only own same so than too very s t can will just don should now`) {
		stopWords[w] = struct{}{}
	}
}

// term reduces a single word to its indexed form. Stop words have none.
func term(word string) (string, bool) {
	w := strings.ToLower(word)
	if w == "" {
		return "", false
	}
	if _, stop := stopWords[w]; stop {
		return "", false
	}
	return snowballeng.Stem(w, false), true
}

// Analyze builds the term vector of normalized text. Stop words are skipped
// but still take up a position.
func Analyze(normalized string) Vector {
	v := Vector{}
	for i, w := range strings.Fields(normalized) {
		t, ok := term(w)
		if !ok {
			continue
		}
		v[t] = append(v[t], i+1)
	}
	return v
}

// Query is a parsed AND query: the distinct stemmed terms that must all occur.
type Query struct {
	Terms []string
}

// ParseQuery reads a query built by normalize.SearchQuery.
func ParseQuery(tokenized string) Query {
	var q Query
	seen := map[string]struct{}{}
	for _, tok := range strings.Split(tokenized, normalize.QueryJoiner) {
		t, ok := term(tok)
		if !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		q.Terms = append(q.Terms, t)
	}
	return q
}

func (q Query) Empty() bool { return len(q.Terms) == 0 }

// String renders q in to_tsquery syntax.
func (q Query) String() string {
	return strings.Join(q.Terms, normalize.QueryJoiner)
}

// Matches reports whether every query term occurs in v. An empty query
// matches nothing.
func (v Vector) Matches(q Query) bool {
	if q.Empty() {
		return false
	}
	for _, t := range q.Terms {
		if len(v[t]) == 0 {
			return false
		}
	}
	return true
}

const (
	// every lexeme carries the default D weight
	termWeight = 0.1
	// sum of 1/n^2, used to bound the single-term score
	zeta2 = 1.64493406685
)

// Rank scores how well v answers q, following ts_rank with default weights:
// a single term is scored by its frequency, several terms by how close
// together they occur.
func (v Vector) Rank(q Query) float64 {
	switch len(q.Terms) {
	case 0:
		return 0
	case 1:
		return v.rankFrequency(q)
	default:
		return v.rankProximity(q)
	}
}

func (v Vector) rankFrequency(q Query) float64 {
	res := 0.0
	for _, t := range q.Terms {
		pos := v[t]
		if len(pos) == 0 {
			continue
		}
		resj := 0.0
		for j := range pos {
			resj += termWeight / float64((j+1)*(j+1))
		}
		// with a single weight class the max-weight correction cancels out
		res += resj / zeta2
	}
	return res / float64(len(q.Terms))
}

func (v Vector) rankProximity(q Query) float64 {
	res := -1.0
	for i := 1; i < len(q.Terms); i++ {
		pi := v[q.Terms[i]]
		if len(pi) == 0 {
			continue
		}
		for k := 0; k < i; k++ {
			pk := v[q.Terms[k]]
			for _, a := range pi {
				for _, b := range pk {
					d := a - b
					if d < 0 {
						d = -d
					}
					if d == 0 {
						continue
					}
					curw := math.Sqrt(termWeight * termWeight * wordDistance(d))
					if res < 0 {
						res = curw
					} else {
						res = 1 - (1-res)*(1-curw)
					}
				}
			}
		}
	}
	if res < 0 {
		return 0
	}
	return res
}

func wordDistance(d int) float64 {
	if d > 100 {
		return 1e-30
	}
	return 1 / (1.005 + 0.05*math.Exp(float64(d)/1.5-2))
}

// Value implements driver.Valuer. The JSON goes out as text since lib/pq
// would send a byte slice as bytea.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		v = Vector{}
	}
	b, err := json.Marshal(map[string][]int(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *Vector) Scan(src any) error {
	var data []byte
	switch s := src.(type) {
	case nil:
		*v = Vector{}
		return nil
	case []byte:
		data = s
	case string:
		data = []byte(s)
	default:
		return fmt.Errorf("cannot scan %T into search.Vector", src)
	}
	m := map[string][]int{}
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("error decoding search terms: %w", err)
	}
	if m == nil {
		m = map[string][]int{}
	}
	*v = Vector(m)
	return nil
}

// IndexLyric derives both search columns of a lyric section from its raw text.
func IndexLyric(raw string) (string, Vector) {
	searchLyrics := normalize.Lyrics(raw)
	return searchLyrics, Analyze(searchLyrics)
}
