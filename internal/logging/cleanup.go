package logging

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"gorm.io/gorm"
)

// StartCleanup runs a daily goroutine that deletes system_logs older than
// retention. The audit log is never pruned.
func StartCleanup(db *gorm.DB, retention time.Duration, done chan struct{}) {
	if retention <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := PruneSystemLogs(db, time.Now().Add(-retention)); err != nil {
					slog.Error("log cleanup failed", "error", err)
				} else if n > 0 {
					slog.Info("log cleanup completed", "deleted", n)
				}
			case <-done:
				return
			}
		}
	}()
}

// PruneSystemLogs deletes system log rows written before cutoff.
func PruneSystemLogs(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
