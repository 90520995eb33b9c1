package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Church-Life-Apps/Backend/internal/backup"
	"github.com/Church-Life-Apps/Backend/internal/database"
	"github.com/Church-Life-Apps/Backend/internal/models"
	"github.com/Church-Life-Apps/Backend/internal/service"
)

const pendingID = "5b0a1d3e-8f6c-4a52-9d7e-0c4f1b2a3e61"

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockCatalog) CreateSongbook(ctx context.Context, sb models.Songbook) (*models.Songbook, error) {
	args := m.Called(ctx, sb)
	out, _ := args.Get(0).(*models.Songbook)
	return out, args.Error(1)
}

func (m *mockCatalog) Songbooks(ctx context.Context) ([]models.Songbook, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Songbook)
	return out, args.Error(1)
}

func (m *mockCatalog) Songbook(ctx context.Context, id string) (*models.Songbook, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.Songbook)
	return out, args.Error(1)
}

func (m *mockCatalog) Songs(ctx context.Context, songbookID string) ([]models.Song, error) {
	args := m.Called(ctx, songbookID)
	out, _ := args.Get(0).([]models.Song)
	return out, args.Error(1)
}

func (m *mockCatalog) Song(ctx context.Context, songbookID string, number int) (*models.SongWithLyrics, error) {
	args := m.Called(ctx, songbookID, number)
	out, _ := args.Get(0).(*models.SongWithLyrics)
	return out, args.Error(1)
}

func (m *mockCatalog) CreateSong(ctx context.Context, song models.Song, lyrics []models.Lyric) (*models.SongWithLyrics, error) {
	args := m.Called(ctx, song, lyrics)
	out, _ := args.Get(0).(*models.SongWithLyrics)
	return out, args.Error(1)
}

func (m *mockCatalog) UpsertLyric(ctx context.Context, l models.Lyric) (*models.Lyric, error) {
	args := m.Called(ctx, l)
	out, _ := args.Get(0).(*models.Lyric)
	return out, args.Error(1)
}

func (m *mockCatalog) PendingSongs(ctx context.Context) ([]models.PendingSong, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.PendingSong)
	return out, args.Error(1)
}

func (m *mockCatalog) PendingSong(ctx context.Context, id string) (*models.PendingSong, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.PendingSong)
	return out, args.Error(1)
}

func (m *mockCatalog) SubmitPendingSong(ctx context.Context, p models.PendingSong) (*models.PendingSong, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*models.PendingSong)
	return out, args.Error(1)
}

func (m *mockCatalog) AcceptPendingSong(ctx context.Context, p models.PendingSong, note string) (*models.SongWithLyrics, error) {
	args := m.Called(ctx, p, note)
	out, _ := args.Get(0).(*models.SongWithLyrics)
	return out, args.Error(1)
}

func (m *mockCatalog) RejectPendingSong(ctx context.Context, id, reason string) (bool, error) {
	args := m.Called(ctx, id, reason)
	return args.Bool(0), args.Error(1)
}

func (m *mockCatalog) Search(ctx context.Context, text, songbookID string) ([]models.Song, error) {
	args := m.Called(ctx, text, songbookID)
	out, _ := args.Get(0).([]models.Song)
	return out, args.Error(1)
}

func (m *mockCatalog) Reindex(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type fakeBackups struct {
	list []backup.Metadata
}

func (f *fakeBackups) ListBackups() ([]backup.Metadata, error) {
	return f.list, nil
}

func (f *fakeBackups) CreateBackup(_ context.Context, backupType string) (*backup.Metadata, error) {
	meta := backup.Metadata{BackupType: backupType, Filename: "backup_" + backupType + ".sql"}
	f.list = append(f.list, meta)
	return &meta, nil
}

func newTestApp(catalog Catalog, backups Backups) *fiber.App {
	app := fiber.New()
	New(catalog, backups).Register(app.Group("/api"))
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	catalog.On("Ping", mock.Anything).Return(nil).Once()
	catalog.On("Ping", mock.Anything).Return(errors.New("db down")).Once()
	app := newTestApp(catalog, nil)

	status, body := do(t, app, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, body = do(t, app, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestSearchSongs(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	song := models.Song{ID: "a", SongbookID: "shl", Number: 7, Title: "Amazing Grace"}
	catalog.On("Search", mock.Anything, "amazing grace", "shl").Return([]models.Song{song}, nil)
	catalog.On("Search", mock.Anything, "nothing", "").Return(nil, nil)
	app := newTestApp(catalog, nil)

	status, body := do(t, app, http.MethodGet, "/api/search?searchText=amazing%20grace&songbook=shl", "")
	assert.Equal(t, http.StatusOK, status)
	matched, ok := body["matchedSongs"].([]any)
	require.True(t, ok)
	require.Len(t, matched, 1)
	assert.Equal(t, "Amazing Grace", matched[0].(map[string]any)["title"])

	status, body = do(t, app, http.MethodGet, "/api/search?searchText=nothing", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["matchedSongs"])
}

func TestSearchSongs_Blank(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	app := newTestApp(catalog, nil)

	status, body := do(t, app, http.MethodGet, "/api/search?searchText=%20%20", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "searchText is required", body["error"])
	catalog.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchSongs_StoreError(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	catalog.On("Search", mock.Anything, "grace", "").Return(nil, &database.StorageError{Op: "searching", Err: errors.New("timeout")})
	app := newTestApp(catalog, nil)

	status, body := do(t, app, http.MethodGet, "/api/search?searchText=grace", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Search failed", body["error"])
}

func TestGetSong(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	catalog.On("Song", mock.Anything, "shl", 7).Return(&models.SongWithLyrics{
		Song:   models.Song{ID: "a", SongbookID: "shl", Number: 7, Title: "Amazing Grace"},
		Lyrics: []models.Lyric{{SongID: "a", LyricType: models.LyricTypeVerse, VerseNumber: 1, Lyrics: "Amazing grace", SearchLyrics: "amazing grace"}},
	}, nil)
	catalog.On("Song", mock.Anything, "shl", 8).Return(nil, database.ErrSongNotFound)
	app := newTestApp(catalog, nil)

	status, body := do(t, app, http.MethodGet, "/api/song?songbookId=shl&number=7", "")
	assert.Equal(t, http.StatusOK, status)
	lyrics := body["lyrics"].([]any)
	require.Len(t, lyrics, 1)
	assert.NotContains(t, lyrics[0], "searchLyrics")

	status, _ = do(t, app, http.MethodGet, "/api/song?songbookId=shl&number=8", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodGet, "/api/song?songbookId=shl&number=abc", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodGet, "/api/song?number=7", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateSongbook(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	sb := models.Songbook{ID: "shl", FullName: "Songs and Hymns of Life"}
	catalog.On("CreateSongbook", mock.Anything, sb).Return(&sb, nil).Once()
	catalog.On("CreateSongbook", mock.Anything, sb).
		Return(nil, &database.StorageError{Op: "inserting songbook", Err: &pq.Error{Code: "23505"}}).Once()
	app := newTestApp(catalog, nil)

	payload := `{"id":"shl","fullName":"Songs and Hymns of Life"}`
	status, body := do(t, app, http.MethodPost, "/api/songbook", payload)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "shl", body["id"])

	status, _ = do(t, app, http.MethodPost, "/api/songbook", payload)
	assert.Equal(t, http.StatusConflict, status)

	status, body = do(t, app, http.MethodPost, "/api/songbook", `{"id":"shl"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	fields := body["fields"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "fullName", fields[0].(map[string]any)["field"])

	status, _ = do(t, app, http.MethodPost, "/api/songbook", `{`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateSong_AssignsID(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	catalog.On("CreateSong", mock.Anything,
		mock.MatchedBy(func(s models.Song) bool { return s.ID != "" && s.Number == 7 }),
		mock.MatchedBy(func(l []models.Lyric) bool { return len(l) == 1 && l[0].SongID != "" }),
	).Return(&models.SongWithLyrics{Song: models.Song{ID: "x"}}, nil)
	app := newTestApp(catalog, nil)

	payload := `{"songbookId":"shl","number":7,"title":"Amazing Grace","presentationOrder":"v1",
		"lyrics":[{"lyricType":"LYRIC_TYPE_VERSE","verseNumber":1,"lyrics":"Amazing grace"}]}`
	status, _ := do(t, app, http.MethodPost, "/api/song", payload)
	assert.Equal(t, http.StatusCreated, status)
	catalog.AssertExpectations(t)
}

func TestUpsertLyric_UnknownSong(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	catalog.On("UpsertLyric", mock.Anything, mock.Anything).
		Return(nil, &database.StorageError{Op: "upserting lyric", Err: &pq.Error{Code: "23503"}})
	app := newTestApp(catalog, nil)

	payload := `{"songId":"` + pendingID + `","lyricType":"LYRIC_TYPE_CHORUS","verseNumber":1,"lyrics":"la"}`
	status, _ := do(t, app, http.MethodPost, "/api/lyric", payload)
	assert.Equal(t, http.StatusConflict, status)
}

func TestSubmitPendingSong(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	catalog.On("SubmitPendingSong", mock.Anything, mock.MatchedBy(func(p models.PendingSong) bool {
		return p.ID != "" && p.Lyrics[0].SongID == p.ID
	})).Return(&models.PendingSong{ID: pendingID}, nil)
	app := newTestApp(catalog, nil)

	payload := `{"songbookId":"shl","number":50,"title":"New Song","author":"Someone","presentationOrder":"v1",
		"lyrics":[{"lyricType":"LYRIC_TYPE_VERSE","verseNumber":1,"lyrics":"la la"}]}`
	status, body := do(t, app, http.MethodPost, "/api/pendingsong", payload)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, pendingID, body["id"])
}

func TestGetPendingSongs(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	catalog.On("PendingSongs", mock.Anything).Return([]models.PendingSong{{ID: pendingID}}, nil)
	catalog.On("PendingSong", mock.Anything, pendingID).Return(&models.PendingSong{ID: pendingID, Lyrics: []models.Lyric{}}, nil)
	catalog.On("PendingSong", mock.Anything, "missing").Return(nil, database.ErrPendingSongNotFound)
	app := newTestApp(catalog, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/pendingsongs", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var list []models.PendingSong
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)

	status, body := do(t, app, http.MethodGet, "/api/pendingsongs/"+pendingID, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, pendingID, body["id"])

	status, _ = do(t, app, http.MethodGet, "/api/pendingsongs/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAcceptPendingSong(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	catalog.On("AcceptPendingSong", mock.Anything, mock.MatchedBy(func(p models.PendingSong) bool {
		return p.ID == pendingID
	}), "looks good").Return(&models.SongWithLyrics{Song: models.Song{ID: pendingID, Title: "New Song"}}, nil).Once()
	catalog.On("AcceptPendingSong", mock.Anything, mock.Anything, "again").
		Return(nil, database.ErrPendingSongNotFound).Once()
	app := newTestApp(catalog, nil)

	pending := `{"id":"` + pendingID + `","songbookId":"shl","number":50,"title":"New Song","author":"Someone",
		"presentationOrder":"v1","lyrics":[{"songId":"` + pendingID + `","lyricType":"LYRIC_TYPE_VERSE","verseNumber":1,"lyrics":"la"}]}`

	status, body := do(t, app, http.MethodPost, "/api/acceptpendingsong", `{"pendingSong":`+pending+`,"acceptanceNote":"looks good"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "New Song", body["title"])

	status, _ = do(t, app, http.MethodPost, "/api/acceptpendingsong", `{"pendingSong":`+pending+`,"acceptanceNote":"again"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = do(t, app, http.MethodPost, "/api/acceptpendingsong", `{"pendingSong":`+pending+`}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "acceptanceNote is required", body["error"])
}

func TestRejectPendingSong(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	catalog.On("RejectPendingSong", mock.Anything, pendingID, "duplicate").Return(true, nil).Once()
	catalog.On("RejectPendingSong", mock.Anything, pendingID, "duplicate").Return(false, nil).Once()
	app := newTestApp(catalog, nil)

	payload := `{"pendingSong":{"id":"` + pendingID + `"},"rejectionReason":"duplicate"}`
	status, body := do(t, app, http.MethodPost, "/api/rejectpendingsong", payload)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["rejected"])

	status, body = do(t, app, http.MethodPost, "/api/rejectpendingsong", payload)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["rejected"])

	status, _ = do(t, app, http.MethodPost, "/api/rejectpendingsong", `{"pendingSong":{"id":"nope"},"rejectionReason":"x"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestReindexAll(t *testing.T) {
	t.Parallel()
	catalog := &mockCatalog{}
	catalog.On("Reindex", mock.Anything).Return(0, service.ErrMirrorDisabled).Once()
	catalog.On("Reindex", mock.Anything).Return(12, nil).Once()
	app := newTestApp(catalog, nil)

	status, _ := do(t, app, http.MethodPost, "/api/admin/reindex", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := do(t, app, http.MethodPost, "/api/admin/reindex", "")
	assert.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 12, body["count"], 0)
}

func TestBackups(t *testing.T) {
	t.Parallel()

	status, _ := do(t, newTestApp(&mockCatalog{}, nil), http.MethodGet, "/api/admin/backups", "")
	assert.Equal(t, http.StatusBadRequest, status)

	app := newTestApp(&mockCatalog{}, &fakeBackups{})
	status, body := do(t, app, http.MethodPost, "/api/admin/backups", "")
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, backup.TypeManual, body["backup_type"])

	req := httptest.NewRequest(http.MethodGet, "/api/admin/backups", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var list []backup.Metadata
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "backup_manual.sql", list[0].Filename)
}
