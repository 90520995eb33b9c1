// Package backup dumps the catalog database on a daily schedule and after a
// run of moderation edits.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	TypeDaily  = "daily"
	TypeEdits  = "edit-threshold"
	TypeManual = "manual"

	dailyHour     = 2
	retentionDays = 7
	timestampFmt  = "2006-01-02_15-04-05"
)

// DumpFunc writes a dump of the database at dsn to path.
type DumpFunc func(ctx context.Context, dsn, path string) error

// PgDump shells out to pg_dump.
func PgDump(ctx context.Context, dsn, path string) error {
	output, err := exec.CommandContext(ctx, "pg_dump", dsn, "-f", path).CombinedOutput()
	if err != nil {
		return fmt.Errorf("pg_dump failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Metadata is the JSON sidecar written next to each dump.
type Metadata struct {
	BackupType string `json:"backup_type"`
	Timestamp  string `json:"timestamp"`
	SizeBytes  int64  `json:"size_bytes"`
	Filename   string `json:"filename"`
}

type Manager struct {
	dsn        string
	dir        string
	everyEdits int
	clock      clockwork.Clock
	dump       DumpFunc

	editsMu sync.Mutex
	edits   int

	// serializes dumps and cleanup
	mu sync.Mutex
}

type Option func(*Manager)

func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithDumpFunc(f DumpFunc) Option {
	return func(m *Manager) { m.dump = f }
}

// NewManager returns a manager writing to dir. everyEdits of zero disables
// edit-triggered backups.
func NewManager(dsn, dir string, everyEdits int, opts ...Option) *Manager {
	m := &Manager{
		dsn:        dsn,
		dir:        dir,
		everyEdits: everyEdits,
		clock:      clockwork.NewRealClock(),
		dump:       PgDump,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs the daily schedule until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go m.scheduleDaily(ctx)
	log.Info().Str("dir", m.dir).Int("everyEdits", m.everyEdits).Msg("backup manager started")
}

func (m *Manager) scheduleDaily(ctx context.Context) {
	for {
		now := m.clock.Now()
		wait := nextDaily(now).Sub(now)
		log.Debug().Dur("in", wait).Msg("next scheduled backup")

		timer := m.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}

		if _, err := m.CreateBackup(ctx, TypeDaily); err != nil {
			log.Error().Err(err).Msg("error creating daily backup")
		}
	}
}

// nextDaily is the first 02:00 strictly after now, in now's location.
func nextDaily(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), dailyHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RecordEdit counts one catalog edit and takes a backup once enough have
// accumulated since the last one.
func (m *Manager) RecordEdit(ctx context.Context) error {
	if m.everyEdits <= 0 {
		return nil
	}

	m.editsMu.Lock()
	m.edits++
	due := m.edits >= m.everyEdits
	if due {
		m.edits = 0
	}
	m.editsMu.Unlock()

	if !due {
		return nil
	}
	_, err := m.CreateBackup(ctx, TypeEdits)
	return err
}

// CreateBackup dumps the database and writes its metadata sidecar, then
// prunes backups past retention.
func (m *Manager) CreateBackup(ctx context.Context, backupType string) (*Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating backup directory: %w", err)
	}

	timestamp := m.clock.Now().Format(timestampFmt)
	base := fmt.Sprintf("backup_%s_%s", backupType, timestamp)
	filename := base + ".sql"
	path := filepath.Join(m.dir, filename)

	if err := m.dump(ctx, m.dsn, path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error getting backup file info: %w", err)
	}

	meta := &Metadata{
		BackupType: backupType,
		Timestamp:  timestamp,
		SizeBytes:  info.Size(),
		Filename:   filename,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error creating metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, base+".json"), data, 0o600); err != nil {
		return nil, fmt.Errorf("error writing metadata: %w", err)
	}

	log.Info().
		Str("file", filename).
		Float64("sizeMB", float64(info.Size())/(1024*1024)).
		Msg("backup created")

	m.cleanOldBackups(retentionDays)
	return meta, nil
}

func (m *Manager) cleanOldBackups(daysToKeep int) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		log.Error().Err(err).Msg("error reading backup directory")
		return
	}

	cutoff := m.clock.Now().AddDate(0, 0, -daysToKeep)
	deleted := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, e.Name())); err != nil {
			log.Error().Err(err).Str("file", e.Name()).Msg("error deleting old backup")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		log.Info().Int("files", deleted).Msg("cleaned up old backups")
	}
}

// ListBackups returns the metadata of every backup, newest first. A missing
// backup directory means there are none.
func (m *Manager) ListBackups() ([]Metadata, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Metadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading backup directory: %w", err)
	}

	backups := []Metadata{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			continue
		}
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("skipping unreadable backup metadata")
			continue
		}
		backups = append(backups, meta)
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].Timestamp != backups[j].Timestamp {
			return backups[i].Timestamp > backups[j].Timestamp
		}
		return backups[i].Filename < backups[j].Filename
	})
	return backups, nil
}
