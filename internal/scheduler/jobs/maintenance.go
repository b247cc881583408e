package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// MaintenanceJob prunes aged report artifacts and debug dumps so the data
// directories do not grow without bound.
type MaintenanceJob struct {
	dirs   []string
	maxAge time.Duration
	logger *logger.Logger
}

// NewMaintenanceJob creates the pruning job over the given directories.
func NewMaintenanceJob(dirs []string, maxAge time.Duration, log *logger.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		dirs:   dirs,
		maxAge: maxAge,
		logger: log.WithComponent("maintenance"),
	}
}

// Name returns the job name.
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Schedule returns the cron schedule (daily, just after midnight).
func (j *MaintenanceJob) Schedule() string {
	return "0 15 0 * * *"
}

// Run removes files older than maxAge from each directory.
func (j *MaintenanceJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.maxAge)
	removed := 0

	for _, dir := range j.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read dir %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				j.logger.WithError(err).WithField("path", path).Warn("Prune failed")
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Maintenance pruned aged files")
	}

	return nil
}
