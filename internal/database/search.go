package database

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Church-Life-Apps/Backend/internal/models"
	"github.com/Church-Life-Apps/Backend/internal/search"
)

// SearchSongsByNumber returns songs whose number starts with the given
// digits, optionally within one songbook, in ascending number order.
func (db *DB) SearchSongsByNumber(ctx context.Context, digits, songbookID string) ([]models.Song, error) {
	query := `
		SELECT ` + songColumns + `
		FROM songs
		WHERE number::text LIKE $1::text || '%'
			AND ($2::text = '' OR songbook_id = $2)
		ORDER BY number, songbook_id
		LIMIT $3`

	log.Debug().Str("digits", digits).Str("songbook", songbookID).Msg("searching songs by number")
	rows, err := db.QueryContext(ctx, query, digits, songbookID, search.MaxNumberResults)
	if err != nil {
		return nil, storageError("searching songs by number", err)
	}
	return collectSongs(rows)
}

// SearchCandidates fetches every song/lyric row that could match text. The
// filter is deliberately loose: the ranking engine decides the final match
// set and order. Songs without lyrics come back as a single row with empty
// lyric fields.
func (db *DB) SearchCandidates(ctx context.Context, text, songbookID string) ([]search.Candidate, error) {
	query := `
		SELECT ` + prefixed("s") + `,
			COALESCE(l.search_lyrics, ''),
			COALESCE(l.search_terms, '{}'::jsonb)
		FROM songs s
		LEFT JOIN lyrics l ON l.song_id = s.id
		WHERE ($1::text = '' OR s.songbook_id = $1)
			AND (
				s.title ILIKE $2
				OR s.author ILIKE $2
				OR s.title % $3
				OR s.author % $3
				OR $3 <% l.search_lyrics
				OR l.search_vector @@ plainto_tsquery('english', $3)
			)`

	log.Debug().Str("text", text).Str("songbook", songbookID).Msg("fetching search candidates")
	rows, err := db.QueryContext(ctx, query, songbookID, containsPattern(text), text)
	if err != nil {
		return nil, storageError("fetching search candidates", err)
	}
	defer rows.Close()

	candidates := []search.Candidate{}
	for rows.Next() {
		var c search.Candidate
		dest := append(songDest(&c.Song), &c.Lyrics, &c.Terms)
		if err := rows.Scan(dest...); err != nil {
			return nil, storageError("scanning search candidate", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating search candidates", err)
	}
	return candidates, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s anywhere, with LIKE
// wildcards in s taken literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
