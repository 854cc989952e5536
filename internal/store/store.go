// Package store persists transcript history and salvages audio from failed
// transcriptions under the app data directory.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/logger"
)

const (
	historyFile = "transcripts.log"
	failedDir   = "failed_recordings"
)

// Entry is one transcript history record, stored as a JSON line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Provider  string    `json:"provider,omitempty"`
	Language  string    `json:"language,omitempty"`
	// DurationSeconds is the recorded audio length.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	// Chunks is how many WAV chunks produced this transcript.
	Chunks int `json:"chunks,omitempty"`
}

// Config configures the store.
type Config struct {
	// Dir is the app data directory. Empty selects DefaultDir().
	Dir string `yaml:"dir" mapstructure:"dir"`
	// Retention is how long failed recordings are kept before the janitor
	// purges them.
	Retention time.Duration `yaml:"retention" mapstructure:"retention"`
	// KeepFailedAudio moves chunk WAVs to failed_recordings on transcription
	// failure instead of deleting them.
	KeepFailedAudio bool `yaml:"keep_failed_audio" mapstructure:"keep_failed_audio"`
	// CleanupSchedule is the janitor cron expression.
	CleanupSchedule string `yaml:"cleanup_schedule" mapstructure:"cleanup_schedule"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = DefaultDir()
	}
	if c.Retention <= 0 {
		c.Retention = 7 * 24 * time.Hour
	}
	if c.CleanupSchedule == "" {
		c.CleanupSchedule = "@hourly"
	}
}

// DefaultDir returns the default app data directory: $XDG_DATA_HOME/voicetap
// when set, otherwise ~/.voicetap.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "voicetap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".voicetap"
	}
	return filepath.Join(home, ".voicetap")
}

// Store owns the transcript history file and the failed-recordings directory.
// Safe for concurrent use.
type Store struct {
	cfg Config
	log *logger.Logger

	mu sync.Mutex
}

// New creates the store and its directories.
func New(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, apperr.Storage(fmt.Errorf("create data dir: %w", err))
	}
	if err := os.MkdirAll(filepath.Join(cfg.Dir, failedDir), 0o755); err != nil {
		return nil, apperr.Storage(fmt.Errorf("create failed dir: %w", err))
	}
	return &Store{cfg: cfg, log: logger.Get("store")}, nil
}

// Dir returns the app data directory.
func (s *Store) Dir() string { return s.cfg.Dir }

// HistoryPath returns the transcript log path.
func (s *Store) HistoryPath() string { return filepath.Join(s.cfg.Dir, historyFile) }

// FailedDir returns the failed-recordings directory.
func (s *Store) FailedDir() string { return filepath.Join(s.cfg.Dir, failedDir) }

// Append writes one history entry as a JSON line.
func (s *Store) Append(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	line, err := json.Marshal(e)
	if err != nil {
		return apperr.Storage(fmt.Errorf("encode entry: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.HistoryPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return apperr.Storage(fmt.Errorf("open history: %w", err))
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return apperr.Storage(fmt.Errorf("append history: %w", err))
	}
	return nil
}

// Recent returns up to limit history entries, most recent first.
// Unparseable lines are skipped.
func (s *Store) Recent(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.HistoryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Storage(fmt.Errorf("open history: %w", err))
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, apperr.Storage(fmt.Errorf("read history: %w", err))
	}

	// Reverse to most recent first, then cap.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Salvage moves a recording into failed_recordings so failed transcriptions
// never lose audio. When KeepFailedAudio is off the file is removed instead.
// Returns the salvaged path, or empty when the file was removed.
func (s *Store) Salvage(path string) (string, error) {
	if !s.cfg.KeepFailedAudio {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return "", apperr.Storage(fmt.Errorf("remove recording: %w", err))
		}
		return "", nil
	}

	dst := filepath.Join(s.FailedDir(),
		time.Now().Format("20060102_150405")+"_"+filepath.Base(path))
	if err := moveFile(path, dst); err != nil {
		return "", apperr.Storage(fmt.Errorf("salvage recording: %w", err))
	}
	s.log.Warn("recording salvaged", logger.Fields(logger.FieldAudioPath, dst))
	return dst, nil
}

// moveFile renames src to dst, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
