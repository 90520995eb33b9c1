// Package webhook posts moderation outcomes to an HTTP endpoint so a
// separate mailer or chat bot can tell requesters what happened.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"

	"github.com/Church-Life-Apps/Backend/internal/models"
)

const (
	EventAccepted = "pending_song.accepted"
	EventRejected = "pending_song.rejected"
)

// Client sends events to a single URL. A client built without a URL is
// disabled and drops every event.
type Client struct {
	url        string
	httpClient *http.Client
	attempts   uint64
	backoff    time.Duration
	enabled    bool
}

type Config struct {
	URL     string
	Timeout time.Duration
	// Attempts is the number of tries per event; zero means 3.
	Attempts uint64
	// Backoff is the first retry delay, doubled per retry; zero means 500ms.
	Backoff time.Duration
}

// Event is the JSON body of every webhook call.
type Event struct {
	Type           string `json:"type"`
	PendingSongID  string `json:"pendingSongId"`
	SongbookID     string `json:"songbookId"`
	Number         int    `json:"number"`
	Title          string `json:"title"`
	RequesterName  string `json:"requesterName,omitempty"`
	RequesterEmail string `json:"requesterEmail,omitempty"`
	Message        string `json:"message"`
}

func New(cfg *Config) *Client {
	if cfg == nil || cfg.URL == "" {
		return &Client{enabled: false}
	}

	c := &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		attempts:   cfg.Attempts,
		backoff:    cfg.Backoff,
		enabled:    true,
	}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = 10 * time.Second
	}
	if c.attempts == 0 {
		c.attempts = 3
	}
	if c.backoff == 0 {
		c.backoff = 500 * time.Millisecond
	}
	return c
}

func (c *Client) IsEnabled() bool {
	return c.enabled
}

func (c *Client) SongAccepted(ctx context.Context, p models.PendingSong, note string) error {
	return c.Send(ctx, newEvent(EventAccepted, p, note))
}

func (c *Client) SongRejected(ctx context.Context, p models.PendingSong, reason string) error {
	return c.Send(ctx, newEvent(EventRejected, p, reason))
}

func newEvent(typ string, p models.PendingSong, message string) Event {
	return Event{
		Type:           typ,
		PendingSongID:  p.ID,
		SongbookID:     p.SongbookID,
		Number:         p.Number,
		Title:          p.Title,
		RequesterName:  p.RequesterName,
		RequesterEmail: p.RequesterEmail,
		Message:        message,
	}
}

// Send posts ev, retrying connection failures and 5xx answers with
// exponential backoff. Other non-2xx answers fail at once.
func (c *Client) Send(ctx context.Context, ev Event) error {
	if !c.enabled {
		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error encoding webhook event: %w", err)
	}

	backoff := retry.WithMaxRetries(c.attempts-1, retry.NewExponential(c.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("error sending %s webhook: %w", ev.Type, err)
	}

	log.Debug().Str("type", ev.Type).Str("pendingSongId", ev.PendingSongID).Msg("webhook delivered")
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.RetryableError(fmt.Errorf("webhook not reachable: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	if resp.StatusCode >= 500 {
		return retry.RetryableError(err)
	}
	return err
}
