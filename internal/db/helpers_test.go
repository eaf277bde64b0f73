package db

import (
	"testing"
	"time"

	"github.com/banshee-data/eim/internal/config"
	"github.com/banshee-data/eim/internal/monitoring"
	"github.com/banshee-data/eim/internal/testutil"
)

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

// openTestDB opens a migrated database in a per-test directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	database, err := Open(config.DatabaseConfig{Path: testutil.TempPath(t, "test.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// openUnmigratedDB opens a database with an empty schema.
func openUnmigratedDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(config.DatabaseConfig{
		Path:        testutil.TempPath(t, "empty.db"),
		AutoMigrate: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// createTestSignal stores a signal with the given readings.
func createTestSignal(t *testing.T, database *DB, readings ...float64) *Signal {
	t.Helper()
	sig := &Signal{
		Kind:         "eda",
		SampleRateHz: 10,
		RecordedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Readings:     readings,
	}
	if err := database.CreateSignal(sig); err != nil {
		t.Fatalf("CreateSignal failed: %v", err)
	}
	return sig
}
