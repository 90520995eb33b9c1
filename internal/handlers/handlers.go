package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/Church-Life-Apps/Backend/internal/backup"
	"github.com/Church-Life-Apps/Backend/internal/database"
	"github.com/Church-Life-Apps/Backend/internal/models"
	"github.com/Church-Life-Apps/Backend/internal/service"
	"github.com/Church-Life-Apps/Backend/internal/validation"
)

// Catalog is the song catalog as the handlers see it. *service.Service
// implements it.
type Catalog interface {
	Ping(ctx context.Context) error

	CreateSongbook(ctx context.Context, sb models.Songbook) (*models.Songbook, error)
	Songbooks(ctx context.Context) ([]models.Songbook, error)
	Songbook(ctx context.Context, id string) (*models.Songbook, error)

	Songs(ctx context.Context, songbookID string) ([]models.Song, error)
	Song(ctx context.Context, songbookID string, number int) (*models.SongWithLyrics, error)
	CreateSong(ctx context.Context, song models.Song, lyrics []models.Lyric) (*models.SongWithLyrics, error)
	UpsertLyric(ctx context.Context, l models.Lyric) (*models.Lyric, error)

	PendingSongs(ctx context.Context) ([]models.PendingSong, error)
	PendingSong(ctx context.Context, id string) (*models.PendingSong, error)
	SubmitPendingSong(ctx context.Context, p models.PendingSong) (*models.PendingSong, error)
	AcceptPendingSong(ctx context.Context, p models.PendingSong, note string) (*models.SongWithLyrics, error)
	RejectPendingSong(ctx context.Context, id, reason string) (bool, error)

	Search(ctx context.Context, text, songbookID string) ([]models.Song, error)
	Reindex(ctx context.Context) (int, error)
}

// Backups lists and takes database backups. *backup.Manager implements it.
type Backups interface {
	ListBackups() ([]backup.Metadata, error)
	CreateBackup(ctx context.Context, backupType string) (*backup.Metadata, error)
}

type Handler struct {
	catalog Catalog
	backups Backups
}

// New returns handlers over catalog. backups may be nil when backups are
// disabled.
func New(catalog Catalog, backups Backups) *Handler {
	return &Handler{catalog: catalog, backups: backups}
}

// Register mounts every route under router, normally the /api group.
func (h *Handler) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	router.Get("/songbooks", h.GetSongbooks)
	router.Get("/songbooks/:id", h.GetSongbook)
	router.Post("/songbook", h.CreateSongbook)

	router.Get("/songs", h.GetSongs)
	router.Get("/song", h.GetSong)
	router.Post("/song", h.CreateSong)
	router.Post("/lyric", h.UpsertLyric)

	router.Get("/pendingsongs", h.GetPendingSongs)
	router.Get("/pendingsongs/:id", h.GetPendingSong)
	router.Post("/pendingsong", h.SubmitPendingSong)
	router.Post("/acceptpendingsong", h.AcceptPendingSong)
	router.Post("/rejectpendingsong", h.RejectPendingSong)

	router.Get("/search", h.SearchSongs)

	admin := router.Group("/admin")
	admin.Post("/reindex", h.ReindexAll)
	admin.Get("/backups", h.GetBackups)
	admin.Post("/backups", h.CreateBackup)
}

// fail maps err onto a status code. Only unexpected errors are logged.
func fail(c *fiber.Ctx, err error, msg string) error {
	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Error(), "fields": ve.Fields})
	case errors.Is(err, database.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case database.IsConstraintViolation(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg + ": " + err.Error()})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg(msg)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// HealthCheck returns server health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status, code := "healthy", fiber.StatusOK
	if err := h.catalog.Ping(c.UserContext()); err != nil {
		log.Warn().Err(err).Msg("health check failed")
		status, code = "unhealthy", fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"timestamp": fiber.Map{
			"unix": time.Now().Unix(),
		},
	})
}

func (h *Handler) GetSongbooks(c *fiber.Ctx) error {
	songbooks, err := h.catalog.Songbooks(c.UserContext())
	if err != nil {
		return fail(c, err, "Failed to retrieve songbooks")
	}
	return c.JSON(songbooks)
}

func (h *Handler) GetSongbook(c *fiber.Ctx) error {
	songbook, err := h.catalog.Songbook(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err, "Failed to retrieve songbook")
	}
	return c.JSON(songbook)
}

func (h *Handler) CreateSongbook(c *fiber.Ctx) error {
	var sb models.Songbook
	if err := c.BodyParser(&sb); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Validate(sb); err != nil {
		return fail(c, err, "Invalid songbook")
	}

	created, err := h.catalog.CreateSongbook(c.UserContext(), sb)
	if err != nil {
		return fail(c, err, "Failed to create songbook")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetSongs lists the songs of one songbook in number order.
func (h *Handler) GetSongs(c *fiber.Ctx) error {
	songbookID := strings.TrimSpace(c.Query("songbookId"))
	if songbookID == "" {
		return badRequest(c, "songbookId is required")
	}

	songs, err := h.catalog.Songs(c.UserContext(), songbookID)
	if err != nil {
		return fail(c, err, "Failed to retrieve songs")
	}
	return c.JSON(songs)
}

// GetSong returns a song and its lyrics by songbook and number.
func (h *Handler) GetSong(c *fiber.Ctx) error {
	songbookID := strings.TrimSpace(c.Query("songbookId"))
	if songbookID == "" {
		return badRequest(c, "songbookId is required")
	}
	number, err := strconv.Atoi(c.Query("number"))
	if err != nil || number <= 0 {
		return badRequest(c, "number must be a positive integer")
	}

	song, err := h.catalog.Song(c.UserContext(), songbookID, number)
	if err != nil {
		return fail(c, err, "Failed to retrieve song")
	}
	return c.JSON(song)
}

// CreateSong creates or replaces a song with its lyrics
func (h *Handler) CreateSong(c *fiber.Ctx) error {
	var req models.CreateSongRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.EnsureID()
	if err := validation.Validate(req); err != nil {
		return fail(c, err, "Invalid song")
	}

	song, err := h.catalog.CreateSong(c.UserContext(), req.Song, req.Lyrics)
	if err != nil {
		return fail(c, err, "Failed to create song")
	}
	return c.Status(fiber.StatusCreated).JSON(song)
}

func (h *Handler) UpsertLyric(c *fiber.Ctx) error {
	var l models.Lyric
	if err := c.BodyParser(&l); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Validate(l); err != nil {
		return fail(c, err, "Invalid lyric")
	}

	saved, err := h.catalog.UpsertLyric(c.UserContext(), l)
	if err != nil {
		return fail(c, err, "Failed to save lyric")
	}
	return c.JSON(saved)
}

func (h *Handler) GetPendingSongs(c *fiber.Ctx) error {
	pending, err := h.catalog.PendingSongs(c.UserContext())
	if err != nil {
		return fail(c, err, "Failed to retrieve pending songs")
	}
	return c.JSON(pending)
}

func (h *Handler) GetPendingSong(c *fiber.Ctx) error {
	p, err := h.catalog.PendingSong(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err, "Failed to retrieve pending song")
	}
	return c.JSON(p)
}

// SubmitPendingSong queues a song for moderation.
func (h *Handler) SubmitPendingSong(c *fiber.Ctx) error {
	var p models.PendingSong
	if err := c.BodyParser(&p); err != nil {
		return badRequest(c, "Invalid request body")
	}
	p.EnsureID()
	if err := validation.Validate(p); err != nil {
		return fail(c, err, "Invalid pending song")
	}

	saved, err := h.catalog.SubmitPendingSong(c.UserContext(), p)
	if err != nil {
		return fail(c, err, "Failed to submit pending song")
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *Handler) AcceptPendingSong(c *fiber.Ctx) error {
	var req models.AcceptPendingSongRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Validate(req); err != nil {
		return fail(c, err, "Invalid acceptance")
	}

	song, err := h.catalog.AcceptPendingSong(c.UserContext(), req.PendingSong, req.AcceptanceNote)
	if err != nil {
		return fail(c, err, "Failed to accept pending song")
	}
	return c.JSON(song)
}

// RejectPendingSong answers {"rejected": false} when there was nothing left
// to reject.
func (h *Handler) RejectPendingSong(c *fiber.Ctx) error {
	var req models.RejectPendingSongRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Validate(req); err != nil {
		return fail(c, err, "Invalid rejection")
	}

	rejected, err := h.catalog.RejectPendingSong(c.UserContext(), req.PendingSong.ID, req.RejectionReason)
	if err != nil {
		return fail(c, err, "Failed to reject pending song")
	}
	return c.JSON(fiber.Map{"rejected": rejected})
}

// SearchSongs searches by song number prefix or free text
func (h *Handler) SearchSongs(c *fiber.Ctx) error {
	var req models.SearchRequest
	if err := c.QueryParser(&req); err != nil {
		return badRequest(c, "Invalid query")
	}
	if err := validation.Validate(req); err != nil {
		return fail(c, err, "Invalid search")
	}

	songs, err := h.catalog.Search(c.UserContext(), req.SearchText, req.Songbook)
	if err != nil {
		return fail(c, err, "Search failed")
	}
	if songs == nil {
		songs = []models.Song{}
	}
	return c.JSON(models.SearchResponse{MatchedSongs: songs})
}

// ReindexAll rebuilds the Typesense mirror from the database
func (h *Handler) ReindexAll(c *fiber.Ctx) error {
	count, err := h.catalog.Reindex(c.UserContext())
	if errors.Is(err, service.ErrMirrorDisabled) {
		return badRequest(c, "Typesense is disabled")
	}
	if err != nil {
		return fail(c, err, "Reindex failed")
	}
	return c.JSON(fiber.Map{
		"message": "Reindex completed successfully",
		"count":   count,
	})
}

func (h *Handler) GetBackups(c *fiber.Ctx) error {
	if h.backups == nil {
		return badRequest(c, "Backups are disabled")
	}
	backups, err := h.backups.ListBackups()
	if err != nil {
		return fail(c, err, "Failed to list backups")
	}
	return c.JSON(backups)
}

// CreateBackup manually triggers a backup
func (h *Handler) CreateBackup(c *fiber.Ctx) error {
	if h.backups == nil {
		return badRequest(c, "Backups are disabled")
	}
	meta, err := h.backups.CreateBackup(c.UserContext(), backup.TypeManual)
	if err != nil {
		return fail(c, err, "Failed to create backup")
	}
	return c.Status(fiber.StatusCreated).JSON(meta)
}
