package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Church-Life-Apps/Backend/internal/models"
	"github.com/Church-Life-Apps/Backend/internal/search"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) InsertSongbook(ctx context.Context, sb models.Songbook) (*models.Songbook, error) {
	args := m.Called(ctx, sb)
	out, _ := args.Get(0).(*models.Songbook)
	return out, args.Error(1)
}

func (m *mockStore) QuerySongbooks(ctx context.Context) ([]models.Songbook, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Songbook)
	return out, args.Error(1)
}

func (m *mockStore) QuerySongbook(ctx context.Context, id string) (*models.Songbook, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.Songbook)
	return out, args.Error(1)
}

func (m *mockStore) UpsertSong(ctx context.Context, s models.Song) (*models.Song, error) {
	args := m.Called(ctx, s)
	out, _ := args.Get(0).(*models.Song)
	return out, args.Error(1)
}

func (m *mockStore) QuerySongsForSongbook(ctx context.Context, songbookID string) ([]models.Song, error) {
	args := m.Called(ctx, songbookID)
	out, _ := args.Get(0).([]models.Song)
	return out, args.Error(1)
}

func (m *mockStore) QuerySongWithLyrics(ctx context.Context, songbookID string, number int) (*models.SongWithLyrics, error) {
	args := m.Called(ctx, songbookID, number)
	out, _ := args.Get(0).(*models.SongWithLyrics)
	return out, args.Error(1)
}

func (m *mockStore) QueryAllSongsWithLyrics(ctx context.Context) ([]models.SongWithLyrics, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.SongWithLyrics)
	return out, args.Error(1)
}

func (m *mockStore) UpsertLyric(ctx context.Context, l models.Lyric) (*models.Lyric, error) {
	args := m.Called(ctx, l)
	out, _ := args.Get(0).(*models.Lyric)
	return out, args.Error(1)
}

func (m *mockStore) InsertPendingSong(ctx context.Context, p models.PendingSong) (*models.PendingSong, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*models.PendingSong)
	return out, args.Error(1)
}

func (m *mockStore) QueryPendingSongs(ctx context.Context) ([]models.PendingSong, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.PendingSong)
	return out, args.Error(1)
}

func (m *mockStore) GetPendingSongByID(ctx context.Context, id string) (*models.PendingSong, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.PendingSong)
	return out, args.Error(1)
}

func (m *mockStore) DeletePendingSong(ctx context.Context, id string) (*models.PendingSong, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.PendingSong)
	return out, args.Error(1)
}

func (m *mockStore) AcceptPendingSong(ctx context.Context, p models.PendingSong) (*models.SongWithLyrics, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*models.SongWithLyrics)
	return out, args.Error(1)
}

func (m *mockStore) SearchSongsByNumber(ctx context.Context, digits, songbookID string) ([]models.Song, error) {
	args := m.Called(ctx, digits, songbookID)
	out, _ := args.Get(0).([]models.Song)
	return out, args.Error(1)
}

func (m *mockStore) SearchCandidates(ctx context.Context, text, songbookID string) ([]search.Candidate, error) {
	args := m.Called(ctx, text, songbookID)
	out, _ := args.Get(0).([]search.Candidate)
	return out, args.Error(1)
}

type mockMirror struct {
	mock.Mock
}

func (m *mockMirror) IndexSong(ctx context.Context, s models.SongWithLyrics) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockMirror) ReindexAll(ctx context.Context, songs []models.SongWithLyrics) error {
	return m.Called(ctx, songs).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SongAccepted(ctx context.Context, p models.PendingSong, note string) error {
	return m.Called(ctx, p, note).Error(0)
}

func (m *mockNotifier) SongRejected(ctx context.Context, p models.PendingSong, reason string) error {
	return m.Called(ctx, p, reason).Error(0)
}

type countingRecorder struct {
	mu    sync.Mutex
	count int
	err   error
}

func (r *countingRecorder) RecordEdit(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.err
}

func (r *countingRecorder) edits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
