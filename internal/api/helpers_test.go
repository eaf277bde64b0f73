package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/banshee-data/eim/internal/config"
	"github.com/banshee-data/eim/internal/db"
	"github.com/banshee-data/eim/internal/monitoring"
	"github.com/banshee-data/eim/internal/serialmux"
	"github.com/banshee-data/eim/internal/testutil"
	"github.com/banshee-data/eim/internal/units"
)

// setupTestServer returns a server over a fresh migrated database.
func setupTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	database, err := db.Open(config.DatabaseConfig{Path: testutil.TempPath(t, "api.db")})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	mux := serialmux.NewDisabledSerialMux()
	t.Cleanup(func() { mux.Close() })
	return NewServer(mux, database, units.Micro), database
}

func createSignal(t *testing.T, database *db.DB, id string, readings ...float64) *db.Signal {
	t.Helper()
	sig := &db.Signal{
		ID:           id,
		Kind:         "eda",
		SampleRateHz: 2,
		RecordedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Readings:     readings,
		Extra:        map[string]any{"participant": "p-7"},
	}
	if err := database.CreateSignal(sig); err != nil {
		t.Fatalf("CreateSignal failed: %v", err)
	}
	return sig
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(w, req)
	return w
}
