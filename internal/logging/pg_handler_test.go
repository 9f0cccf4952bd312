package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/database"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newLogDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func TestToSystemLogMapsKnownKeys(t *testing.T) {
	caseID := uuid.NewString()
	record := slog.NewRecord(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), slog.LevelError, "claim failed", 0)
	record.AddAttrs(
		slog.String("case_id", caseID),
		slog.String("error", "version conflict"),
		slog.Float64("latency_ms", 12.6),
		slog.Int("attempt", 3),
	)

	entry := toSystemLog(record, []slog.Attr{slog.String("trace_id", "abc123"), slog.String("action", "claim")})

	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "claim failed", entry.Message)
	assert.Equal(t, "abc123", entry.TraceID)
	assert.Equal(t, "claim", entry.Action)
	require.NotNil(t, entry.CaseID)
	assert.Equal(t, caseID, *entry.CaseID)
	assert.Nil(t, entry.ActorID)
	assert.Equal(t, "version conflict", entry.Error)
	assert.Equal(t, 13, entry.LatencyMs)

	var extra map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.Extra, &extra))
	assert.Equal(t, float64(3), extra["attempt"])
}

func TestPGHandlerPersistsErrorsOnStop(t *testing.T) {
	db := newLogDB(t)
	h := NewPGHandler(db, time.Hour)
	log := slog.New(h).With("action", "resolve")

	log.Info("ignored")
	log.Error("restriction insert failed", "case_id", uuid.NewString())
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))

	h.Stop()
	h.Stop()

	require.Eventually(t, func() bool {
		var n int64
		db.Model(&models.SystemLog{}).Count(&n)
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)

	var stored models.SystemLog
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, "restriction insert failed", stored.Message)
	assert.Equal(t, "resolve", stored.Action)
}

func TestPruneSystemLogs(t *testing.T) {
	db := newLogDB(t)
	now := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	logs := []models.SystemLog{
		{ID: uuid.New(), Timestamp: now.Add(-60 * 24 * time.Hour), Level: "ERROR", Message: "old"},
		{ID: uuid.New(), Timestamp: now.Add(-24 * time.Hour), Level: "ERROR", Message: "recent"},
	}
	require.NoError(t, db.Create(&logs).Error)

	deleted, err := PruneSystemLogs(db, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.SystemLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "recent", remaining[0].Message)
}
