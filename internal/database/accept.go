package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Church-Life-Apps/Backend/internal/models"
)

// AcceptPendingSong promotes a submission into the catalog in one
// transaction:
//
//  1. delete the pending row, failing with ErrPendingSongNotFound if absent
//  2. upsert the song by (songbook, number)
//  3. delete every lyric the stored song had
//  4. insert the submitted lyrics under the stored song's id
//
// Nothing is visible unless all four steps succeed. The returned song carries
// the id of the row written in step 2, which is the existing song's id when
// the submission corrects a song already in the catalog.
func (db *DB) AcceptPendingSong(ctx context.Context, p models.PendingSong) (_ *models.SongWithLyrics, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("beginning accept transaction", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error().Err(rbErr).Str("pending_id", p.ID).Msg("error rolling back accept transaction")
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM pending_songs WHERE id = $1`, p.ID)
	if err != nil {
		return nil, storageError("deleting pending song", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, storageError("checking rows affected", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPendingSongNotFound, p.ID)
	}

	song, err := upsertSong(ctx, tx, p.ToSong())
	if err != nil {
		return nil, storageError("upserting accepted song", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM lyrics WHERE song_id = $1`, song.ID); err != nil {
		return nil, storageError("deleting previous lyrics", err)
	}

	accepted := &models.SongWithLyrics{Song: song, Lyrics: make([]models.Lyric, 0, len(p.Lyrics))}
	for _, l := range p.Lyrics {
		l.SongID = song.ID
		saved, lerr := upsertLyric(ctx, tx, l)
		if lerr != nil {
			return nil, storageError("inserting accepted lyric", lerr)
		}
		accepted.Lyrics = append(accepted.Lyrics, saved)
	}

	if err = tx.Commit(); err != nil {
		return nil, storageError("committing accept transaction", err)
	}

	log.Info().
		Str("pending_id", p.ID).
		Str("song_id", song.ID).
		Str("songbook", song.SongbookID).
		Int("number", song.Number).
		Int("lyrics", len(accepted.Lyrics)).
		Msg("accepted pending song")
	return accepted, nil
}
