package database

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Church-Life-Apps/Backend/internal/models"
	"github.com/Church-Life-Apps/Backend/internal/search"
)

const upsertLyricQuery = `
	INSERT INTO lyrics (song_id, lyric_type, verse_number, lyrics, search_lyrics, search_terms, inserted_dt, updated_dt)
	VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	ON CONFLICT (song_id, lyric_type, verse_number) DO UPDATE SET
		lyrics = EXCLUDED.lyrics,
		search_lyrics = EXCLUDED.search_lyrics,
		search_terms = EXCLUDED.search_terms,
		updated_dt = now()
	RETURNING song_id, lyric_type, verse_number, lyrics, search_lyrics`

// upsertLyric writes a lyric section and re-derives its search columns from
// the raw text, replacing whatever was indexed before.
func upsertLyric(ctx context.Context, q querier, l models.Lyric) (models.Lyric, error) {
	searchLyrics, terms := search.IndexLyric(l.Lyrics)

	var saved models.Lyric
	err := q.QueryRowContext(ctx, upsertLyricQuery,
		l.SongID, string(l.LyricType), l.VerseNumber, l.Lyrics, searchLyrics, terms,
	).Scan(&saved.SongID, &saved.LyricType, &saved.VerseNumber, &saved.Lyrics, &saved.SearchLyrics)
	return saved, err
}

// UpsertLyric inserts or replaces one lyric section. The song must exist;
// otherwise the returned StorageError is a foreign key violation.
func (db *DB) UpsertLyric(ctx context.Context, l models.Lyric) (*models.Lyric, error) {
	log.Debug().
		Str("song_id", l.SongID).
		Str("lyric_type", string(l.LyricType)).
		Int("verse", l.VerseNumber).
		Msg("upserting lyric")
	saved, err := upsertLyric(ctx, db, l)
	if err != nil {
		return nil, storageError("upserting lyric", err)
	}
	return &saved, nil
}
