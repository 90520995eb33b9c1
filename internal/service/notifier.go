package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Church-Life-Apps/Backend/internal/models"
)

// LogNotifier records moderation outcomes in the log instead of contacting
// the requester.
type LogNotifier struct{}

func (LogNotifier) SongAccepted(_ context.Context, p models.PendingSong, note string) error {
	log.Info().
		Str("pendingSongId", p.ID).
		Str("requester", p.RequesterEmail).
		Str("note", note).
		Msgf("pending song %s %d accepted", p.SongbookID, p.Number)
	return nil
}

func (LogNotifier) SongRejected(_ context.Context, p models.PendingSong, reason string) error {
	log.Info().
		Str("pendingSongId", p.ID).
		Str("requester", p.RequesterEmail).
		Str("reason", reason).
		Msgf("pending song %s %d rejected", p.SongbookID, p.Number)
	return nil
}
