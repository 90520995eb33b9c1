// Package service holds the song catalog operations exposed over HTTP. It
// sits between the handlers and the store, and fans accepted edits out to the
// search mirror, the requester notifier and the backup schedule.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Church-Life-Apps/Backend/internal/models"
	"github.com/Church-Life-Apps/Backend/internal/normalize"
	"github.com/Church-Life-Apps/Backend/internal/search"
)

// Store is the persistence the service needs. *database.DB implements it.
type Store interface {
	Ping(ctx context.Context) error

	InsertSongbook(ctx context.Context, sb models.Songbook) (*models.Songbook, error)
	QuerySongbooks(ctx context.Context) ([]models.Songbook, error)
	QuerySongbook(ctx context.Context, id string) (*models.Songbook, error)

	UpsertSong(ctx context.Context, s models.Song) (*models.Song, error)
	QuerySongsForSongbook(ctx context.Context, songbookID string) ([]models.Song, error)
	QuerySongWithLyrics(ctx context.Context, songbookID string, number int) (*models.SongWithLyrics, error)
	QueryAllSongsWithLyrics(ctx context.Context) ([]models.SongWithLyrics, error)
	UpsertLyric(ctx context.Context, l models.Lyric) (*models.Lyric, error)

	InsertPendingSong(ctx context.Context, p models.PendingSong) (*models.PendingSong, error)
	QueryPendingSongs(ctx context.Context) ([]models.PendingSong, error)
	GetPendingSongByID(ctx context.Context, id string) (*models.PendingSong, error)
	DeletePendingSong(ctx context.Context, id string) (*models.PendingSong, error)
	AcceptPendingSong(ctx context.Context, p models.PendingSong) (*models.SongWithLyrics, error)

	SearchSongsByNumber(ctx context.Context, digits, songbookID string) ([]models.Song, error)
	SearchCandidates(ctx context.Context, text, songbookID string) ([]search.Candidate, error)
}

// Mirror keeps an external search index in step with the catalog.
type Mirror interface {
	IndexSong(ctx context.Context, s models.SongWithLyrics) error
	ReindexAll(ctx context.Context, songs []models.SongWithLyrics) error
}

// Notifier tells a requester what happened to their submission.
type Notifier interface {
	SongAccepted(ctx context.Context, p models.PendingSong, note string) error
	SongRejected(ctx context.Context, p models.PendingSong, reason string) error
}

// EditRecorder is told about every catalog edit, so backups can follow them.
type EditRecorder interface {
	RecordEdit(ctx context.Context) error
}

// ErrMirrorDisabled is returned by Reindex when no mirror is configured.
var ErrMirrorDisabled = errors.New("search mirror is disabled")

type Service struct {
	store    Store
	mirror   Mirror
	notifier Notifier
	edits    EditRecorder

	wg sync.WaitGroup
}

type Option func(*Service)

func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithEditRecorder(r EditRecorder) Option {
	return func(s *Service) { s.edits = r }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, notifier: LogNotifier{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close waits for background edit bookkeeping to finish.
func (s *Service) Close() {
	s.wg.Wait()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) CreateSongbook(ctx context.Context, sb models.Songbook) (*models.Songbook, error) {
	sb.ID = strings.TrimSpace(sb.ID)
	return s.store.InsertSongbook(ctx, sb)
}

func (s *Service) Songbooks(ctx context.Context) ([]models.Songbook, error) {
	return s.store.QuerySongbooks(ctx)
}

func (s *Service) Songbook(ctx context.Context, id string) (*models.Songbook, error) {
	return s.store.QuerySongbook(ctx, id)
}

func (s *Service) Songs(ctx context.Context, songbookID string) ([]models.Song, error) {
	return s.store.QuerySongsForSongbook(ctx, songbookID)
}

func (s *Service) Song(ctx context.Context, songbookID string, number int) (*models.SongWithLyrics, error) {
	return s.store.QuerySongWithLyrics(ctx, songbookID, number)
}

// CreateSong upserts a song and each of its lyric sections. Lyrics are
// attached to the id the store settled on, which differs from song.ID when
// the songbook already had that number.
func (s *Service) CreateSong(ctx context.Context, song models.Song, lyrics []models.Lyric) (*models.SongWithLyrics, error) {
	stored, err := s.store.UpsertSong(ctx, song)
	if err != nil {
		return nil, err
	}

	out := &models.SongWithLyrics{Song: *stored, Lyrics: make([]models.Lyric, 0, len(lyrics))}
	for _, l := range lyrics {
		l.SongID = stored.ID
		saved, err := s.store.UpsertLyric(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("error saving %s %d for song %s: %w", l.LyricType, l.VerseNumber, stored.ID, err)
		}
		out.Lyrics = append(out.Lyrics, *saved)
	}

	s.afterEdit(ctx, *out)
	return out, nil
}

// UpsertLyric saves a single lyric section.
func (s *Service) UpsertLyric(ctx context.Context, l models.Lyric) (*models.Lyric, error) {
	saved, err := s.store.UpsertLyric(ctx, l)
	if err != nil {
		return nil, err
	}
	s.recordEdit(ctx)
	return saved, nil
}

func (s *Service) PendingSongs(ctx context.Context) ([]models.PendingSong, error) {
	return s.store.QueryPendingSongs(ctx)
}

func (s *Service) PendingSong(ctx context.Context, id string) (*models.PendingSong, error) {
	return s.store.GetPendingSongByID(ctx, id)
}

// SubmitPendingSong queues a submission for moderation. Submissions without
// an id are given one.
func (s *Service) SubmitPendingSong(ctx context.Context, p models.PendingSong) (*models.PendingSong, error) {
	p.EnsureID()
	return s.store.InsertPendingSong(ctx, p)
}

// AcceptPendingSong promotes a pending submission into the catalog. The store
// does the promotion atomically; the requester notice, mirror update and edit
// count only follow a committed acceptance and never fail it.
func (s *Service) AcceptPendingSong(ctx context.Context, p models.PendingSong, note string) (*models.SongWithLyrics, error) {
	song, err := s.store.AcceptPendingSong(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SongAccepted(ctx, p, note); err != nil {
		log.Error().Err(err).Str("pendingSongId", p.ID).Msg("error notifying requester of acceptance")
	}
	s.afterEdit(ctx, *song)
	return song, nil
}

// RejectPendingSong removes a pending submission and reports whether there
// was one to remove.
func (s *Service) RejectPendingSong(ctx context.Context, id, reason string) (bool, error) {
	p, err := s.store.DeletePendingSong(ctx, id)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}

	if err := s.notifier.SongRejected(ctx, *p, reason); err != nil {
		log.Error().Err(err).Str("pendingSongId", id).Msg("error notifying requester of rejection")
	}
	return true, nil
}

// Search finds songs for a free text query. All-digit input is a song number
// prefix; anything else goes through the text ranking. Blank input matches
// nothing.
func (s *Service) Search(ctx context.Context, text, songbookID string) ([]models.Song, error) {
	text = strings.TrimSpace(text)
	songbookID = strings.TrimSpace(songbookID)
	if text == "" {
		return []models.Song{}, nil
	}

	if normalize.IsNumeric(text) {
		return s.store.SearchSongsByNumber(ctx, text, songbookID)
	}

	rows, err := s.store.SearchCandidates(ctx, text, songbookID)
	if err != nil {
		return nil, err
	}
	return search.Rank(text, rows, search.MaxTextResults), nil
}

// Reindex rebuilds the search mirror from the catalog and returns how many
// songs were indexed.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.mirror == nil {
		return 0, ErrMirrorDisabled
	}
	songs, err := s.store.QueryAllSongsWithLyrics(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.mirror.ReindexAll(ctx, songs); err != nil {
		return 0, err
	}
	return len(songs), nil
}

func (s *Service) afterEdit(ctx context.Context, song models.SongWithLyrics) {
	if s.mirror != nil {
		if err := s.mirror.IndexSong(ctx, song); err != nil {
			log.Error().Err(err).Str("songId", song.ID).Msg("error indexing song in search mirror")
		}
	}
	s.recordEdit(ctx)
}

// recordEdit runs in the background so a backup never holds up a request.
func (s *Service) recordEdit(ctx context.Context) {
	if s.edits == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.edits.RecordEdit(ctx); err != nil {
			log.Error().Err(err).Msg("error recording edit for backups")
		}
	}()
}
