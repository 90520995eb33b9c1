package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Church-Life-Apps/Backend/internal/models"
)

const songColumns = `id, songbook_id, number, title, author, music, presentation_order, image_url, audio_url`

// prefixed returns songColumns qualified with a table alias.
func prefixed(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.songbook_id, %[1]s.number, %[1]s.title, %[1]s.author, `+
		`%[1]s.music, %[1]s.presentation_order, %[1]s.image_url, %[1]s.audio_url`, alias)
}

func songDest(s *models.Song) []any {
	return []any{&s.ID, &s.SongbookID, &s.Number, &s.Title, &s.Author, &s.Music,
		&s.PresentationOrder, &s.ImageURL, &s.AudioURL}
}

func scanSong(row rowScanner) (models.Song, error) {
	var s models.Song
	err := row.Scan(songDest(&s)...)
	return s, err
}

const upsertSongQuery = `
	INSERT INTO songs (` + songColumns + `, inserted_dt, updated_dt)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	ON CONFLICT (songbook_id, number) DO UPDATE SET
		title = EXCLUDED.title,
		author = EXCLUDED.author,
		music = EXCLUDED.music,
		presentation_order = EXCLUDED.presentation_order,
		image_url = EXCLUDED.image_url,
		audio_url = EXCLUDED.audio_url,
		updated_dt = now()
	RETURNING ` + songColumns

func upsertSong(ctx context.Context, q querier, s models.Song) (models.Song, error) {
	return scanSong(q.QueryRowContext(ctx, upsertSongQuery,
		s.ID, s.SongbookID, s.Number, s.Title, s.Author, s.Music,
		s.PresentationOrder, s.ImageURL, s.AudioURL))
}

// UpsertSong inserts a song or updates the one already holding its
// (songbook, number). The stored row is returned, so on update its ID is the
// existing song's, not necessarily s.ID.
func (db *DB) UpsertSong(ctx context.Context, s models.Song) (*models.Song, error) {
	log.Debug().Str("songbook", s.SongbookID).Int("number", s.Number).Msg("upserting song")
	saved, err := upsertSong(ctx, db, s)
	if err != nil {
		return nil, storageError("upserting song", err)
	}
	return &saved, nil
}

// QuerySongsForSongbook lists the songs of a songbook by number. An unknown
// songbook gives an empty list.
func (db *DB) QuerySongsForSongbook(ctx context.Context, songbookID string) ([]models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE songbook_id = $1 ORDER BY number`

	rows, err := db.QueryContext(ctx, query, songbookID)
	if err != nil {
		return nil, storageError("querying songs", err)
	}
	return collectSongs(rows)
}

func collectSongs(rows *sql.Rows) ([]models.Song, error) {
	defer rows.Close()

	songs := []models.Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, storageError("scanning song", err)
		}
		songs = append(songs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating songs", err)
	}
	return songs, nil
}

const songWithLyricsQuery = `
	SELECT %s, l.lyric_type, l.verse_number, l.lyrics, l.search_lyrics
	FROM songs s LEFT JOIN lyrics l ON l.song_id = s.id
	%s
	ORDER BY s.songbook_id, s.number, l.lyric_type, l.verse_number`

// collectSongsWithLyrics folds joined song/lyric rows back into songs. Rows
// must arrive grouped by song.
func collectSongsWithLyrics(rows *sql.Rows) ([]models.SongWithLyrics, error) {
	defer rows.Close()

	out := []models.SongWithLyrics{}
	for rows.Next() {
		var (
			s            models.Song
			lyricType    sql.NullString
			verseNumber  sql.NullInt64
			lyrics       sql.NullString
			searchLyrics sql.NullString
		)
		dest := append(songDest(&s), &lyricType, &verseNumber, &lyrics, &searchLyrics)
		if err := rows.Scan(dest...); err != nil {
			return nil, storageError("scanning song with lyrics", err)
		}
		if len(out) == 0 || out[len(out)-1].ID != s.ID {
			out = append(out, models.SongWithLyrics{Song: s, Lyrics: []models.Lyric{}})
		}
		if !lyricType.Valid {
			continue
		}
		cur := &out[len(out)-1]
		cur.Lyrics = append(cur.Lyrics, models.Lyric{
			SongID:       s.ID,
			LyricType:    models.LyricType(lyricType.String),
			VerseNumber:  int(verseNumber.Int64),
			Lyrics:       lyrics.String,
			SearchLyrics: searchLyrics.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating songs with lyrics", err)
	}
	return out, nil
}

// QuerySongWithLyrics returns a song and its lyric sections ordered by type
// then verse number.
func (db *DB) QuerySongWithLyrics(ctx context.Context, songbookID string, number int) (*models.SongWithLyrics, error) {
	query := fmt.Sprintf(songWithLyricsQuery, prefixed("s"), `WHERE s.songbook_id = $1 AND s.number = $2`)

	rows, err := db.QueryContext(ctx, query, songbookID, number)
	if err != nil {
		return nil, storageError("querying song with lyrics", err)
	}
	songs, err := collectSongsWithLyrics(rows)
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, ErrSongNotFound
	}
	return &songs[0], nil
}

// QueryAllSongsWithLyrics returns the whole catalog. Used to rebuild the
// mirror index.
func (db *DB) QueryAllSongsWithLyrics(ctx context.Context) ([]models.SongWithLyrics, error) {
	query := fmt.Sprintf(songWithLyricsQuery, prefixed("s"), "")

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageError("querying all songs", err)
	}
	return collectSongsWithLyrics(rows)
}
