package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Church-Life-Apps/Backend/internal/models"
)

const songbookColumns = `id, full_name, static_metadata_link, image_url, open_to_new_songs`

func scanSongbook(row rowScanner) (models.Songbook, error) {
	var sb models.Songbook
	err := row.Scan(&sb.ID, &sb.FullName, &sb.StaticMetadataLink, &sb.ImageURL, &sb.OpenToNewSongs)
	return sb, err
}

// InsertSongbook creates a songbook. A duplicate id or name is a unique
// violation.
func (db *DB) InsertSongbook(ctx context.Context, sb models.Songbook) (*models.Songbook, error) {
	query := `
		INSERT INTO songbooks (` + songbookColumns + `, inserted_dt, updated_dt)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING ` + songbookColumns

	log.Debug().Str("songbook", sb.ID).Msg("inserting songbook")
	inserted, err := scanSongbook(db.QueryRowContext(ctx, query,
		sb.ID, sb.FullName, sb.StaticMetadataLink, sb.ImageURL, sb.OpenToNewSongs))
	if err != nil {
		return nil, storageError("inserting songbook", err)
	}
	return &inserted, nil
}

// QuerySongbooks lists every songbook.
func (db *DB) QuerySongbooks(ctx context.Context) ([]models.Songbook, error) {
	query := `SELECT ` + songbookColumns + ` FROM songbooks ORDER BY id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageError("querying songbooks", err)
	}
	defer rows.Close()

	songbooks := []models.Songbook{}
	for rows.Next() {
		sb, err := scanSongbook(rows)
		if err != nil {
			return nil, storageError("scanning songbook", err)
		}
		songbooks = append(songbooks, sb)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating songbooks", err)
	}
	return songbooks, nil
}

func (db *DB) QuerySongbook(ctx context.Context, id string) (*models.Songbook, error) {
	query := `SELECT ` + songbookColumns + ` FROM songbooks WHERE id = $1`

	sb, err := scanSongbook(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSongbookNotFound
	}
	if err != nil {
		return nil, storageError("querying songbook", err)
	}
	return &sb, nil
}
