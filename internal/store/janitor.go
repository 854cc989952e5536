package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/logger"
)

// StartJanitor schedules periodic purges of expired failed recordings and
// runs one purge immediately. The scheduler stops when ctx is done.
func (s *Store) StartJanitor(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.CleanupSchedule, func() { s.Purge(time.Now()) }); err != nil {
		return apperr.Storage(fmt.Errorf("schedule janitor: %w", err))
	}
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()

	s.Purge(time.Now())
	return nil
}

// Purge removes failed recordings older than the retention period and any
// stale recorder temp files left in the data directory. Returns the number
// of files removed.
func (s *Store) Purge(now time.Time) int {
	cutoff := now.Add(-s.cfg.Retention)
	removed := 0

	entries, err := os.ReadDir(s.FailedDir())
	if err == nil {
		for _, e := range entries {
			info, err := e.Info()
			if err != nil || info.IsDir() {
				continue
			}
			if info.ModTime().Before(cutoff) {
				path := filepath.Join(s.FailedDir(), e.Name())
				if err := os.Remove(path); err == nil {
					removed++
				}
			}
		}
	}

	// Recorder temp files in the data dir only survive a crash; any older
	// than an hour are orphans.
	tempCutoff := now.Add(-time.Hour)
	entries, err = os.ReadDir(s.cfg.Dir)
	if err == nil {
		for _, e := range entries {
			if !strings.HasPrefix(e.Name(), "voicetap_rec_") {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(tempCutoff) {
				path := filepath.Join(s.cfg.Dir, e.Name())
				if err := os.Remove(path); err == nil {
					removed++
				}
			}
		}
	}

	if removed > 0 {
		s.log.Info("janitor purged expired files", logger.Fields("removed", removed))
	}
	return removed
}
