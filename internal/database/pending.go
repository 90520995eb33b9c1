package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Church-Life-Apps/Backend/internal/models"
)

const pendingColumns = `id, songbook_id, number, title, author, music, presentation_order, ` +
	`image_url, audio_url, lyrics, requester_name, requester_email, requester_note`

func scanPendingSong(row rowScanner) (models.PendingSong, error) {
	var (
		p    models.PendingSong
		blob []byte
	)
	err := row.Scan(&p.ID, &p.SongbookID, &p.Number, &p.Title, &p.Author, &p.Music,
		&p.PresentationOrder, &p.ImageURL, &p.AudioURL, &blob,
		&p.RequesterName, &p.RequesterEmail, &p.RequesterNote)
	if err != nil {
		return p, err
	}
	p.Lyrics, err = models.DecodeLyrics(blob)
	if err != nil {
		return p, fmt.Errorf("error decoding pending lyrics: %w", err)
	}
	return p, nil
}

// InsertPendingSong queues a submission. Its lyrics are stored as one JSON
// blob and only indexed once the song is accepted.
func (db *DB) InsertPendingSong(ctx context.Context, p models.PendingSong) (*models.PendingSong, error) {
	blob, err := models.EncodeLyrics(p.Lyrics)
	if err != nil {
		return nil, fmt.Errorf("error encoding pending lyrics: %w", err)
	}

	query := `
		INSERT INTO pending_songs (` + pendingColumns + `, inserted_dt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, clock_timestamp())
		RETURNING ` + pendingColumns

	log.Debug().Str("pending_id", p.ID).Str("songbook", p.SongbookID).Msg("inserting pending song")
	inserted, err := scanPendingSong(db.QueryRowContext(ctx, query,
		p.ID, p.SongbookID, p.Number, p.Title, p.Author, p.Music, p.PresentationOrder,
		p.ImageURL, p.AudioURL, string(blob), p.RequesterName, p.RequesterEmail, p.RequesterNote))
	if err != nil {
		return nil, storageError("inserting pending song", err)
	}
	return &inserted, nil
}

// QueryPendingSongs lists the moderation queue, oldest first.
func (db *DB) QueryPendingSongs(ctx context.Context) ([]models.PendingSong, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_songs ORDER BY inserted_dt, id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageError("querying pending songs", err)
	}
	defer rows.Close()

	pending := []models.PendingSong{}
	for rows.Next() {
		p, err := scanPendingSong(rows)
		if err != nil {
			return nil, storageError("scanning pending song", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating pending songs", err)
	}
	return pending, nil
}

func (db *DB) GetPendingSongByID(ctx context.Context, id string) (*models.PendingSong, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_songs WHERE id = $1`

	p, err := scanPendingSong(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPendingSongNotFound
	}
	if err != nil {
		return nil, storageError("querying pending song", err)
	}
	return &p, nil
}

// DeletePendingSong removes a submission and returns it, or nil when there
// was nothing to delete.
func (db *DB) DeletePendingSong(ctx context.Context, id string) (*models.PendingSong, error) {
	query := `DELETE FROM pending_songs WHERE id = $1 RETURNING ` + pendingColumns

	log.Debug().Str("pending_id", id).Msg("deleting pending song")
	p, err := scanPendingSong(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("deleting pending song", err)
	}
	return &p, nil
}
