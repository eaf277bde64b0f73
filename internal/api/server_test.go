package api

import (
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/eim/internal/analysis"
	"github.com/banshee-data/eim/internal/db"
	"github.com/banshee-data/eim/internal/testutil"
	"github.com/banshee-data/eim/internal/units"
)

func TestNewServerDefaultsPrefix(t *testing.T) {
	s := NewServer(nil, nil, "femto")
	assert.Equal(t, units.Micro, s.prefix)
}

func TestShowConfig(t *testing.T) {
	s, _ := setupTestServer(t)
	w := serve(s, testutil.NewTestRequest(http.MethodGet, "/config"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var resp configResponse
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, units.Micro, resp.Prefix)
	assert.Contains(t, resp.Conversions, units.ReadingsToSiemens)
	assert.Len(t, resp.Prefixes, len(units.ValidPrefixes))
}

func TestConvert(t *testing.T) {
	s, _ := setupTestServer(t)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		want   any
	}{
		{
			name:   "scalar",
			body:   map[string]any{"conversion": units.ToKilo, "values": 1500},
			status: http.StatusOK,
			want:   1.5,
		},
		{
			name:   "matrix keeps shape",
			body:   map[string]any{"conversion": units.ToMilli, "values": [][]float64{{1, 2}, {3, 4}}},
			status: http.StatusOK,
			want:   []any{[]any{1000.0, 2000.0}, []any{3000.0, 4000.0}},
		},
		{
			name:   "non-finite results become null",
			body:   map[string]any{"conversion": units.OhmsToSiemensName, "values": []float64{0, 2}},
			status: http.StatusOK,
			want:   []any{nil, 0.5},
		},
		{
			name:   "unknown conversion",
			body:   map[string]any{"conversion": "furlongs", "values": 1},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing conversion",
			body:   map[string]any{"values": 1},
			status: http.StatusBadRequest,
		},
		{
			name:   "string values",
			body:   map[string]any{"conversion": units.ToKilo, "values": "12"},
			status: http.StatusBadRequest,
		},
		{
			name:   "ragged values",
			body:   map[string]any{"conversion": units.ToKilo, "values": []any{[]any{1, 2}, []any{3}}},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			body:   map[string]any{"conversion": units.ToKilo, "value": 1},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, testutil.NewJSONRequest(t, http.MethodPost, "/convert", tt.body))
			testutil.AssertStatusCode(t, w.Code, tt.status)

			var resp map[string]any
			testutil.DecodeJSON(t, w, &resp)
			if tt.status != http.StatusOK {
				assert.NotEmpty(t, resp["error"])
				return
			}
			assert.Equal(t, tt.body["conversion"], resp["conversion"])
			if diff := cmp.Diff(tt.want, resp["values"]); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConvertRejectsGet(t *testing.T) {
	s, _ := setupTestServer(t)
	w := serve(s, testutil.NewTestRequest(http.MethodGet, "/convert"))
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
}

func TestSendCommand(t *testing.T) {
	s, _ := setupTestServer(t)

	form := url.Values{"command": {"R"}}
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(s, req)
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Equal(t, "Command sent successfully", w.Body.String())

	w = serve(s, httptest.NewRequest(http.MethodPost, "/command", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)
}

func TestListSignals(t *testing.T) {
	s, database := setupTestServer(t)
	createSignal(t, database, "a", 512, 513)
	createSignal(t, database, "b", 600)

	w := serve(s, testutil.NewTestRequest(http.MethodGet, "/signals"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var resp []signalSummary
	testutil.DecodeJSON(t, w, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "a", resp[0].ID)
	assert.Equal(t, 2, resp[0].Samples)
	assert.Equal(t, "p-7", resp[0].Extra["participant"])

	w = serve(s, testutil.NewTestRequest(http.MethodGet, "/signals?limit=1"))
	testutil.DecodeJSON(t, w, &resp)
	assert.Len(t, resp, 1)

	for _, bad := range []string{"0", "-3", "many"} {
		w = serve(s, testutil.NewTestRequest(http.MethodGet, "/signals?limit="+bad))
		testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)
	}
}

func TestListEmpty(t *testing.T) {
	s, _ := setupTestServer(t)
	for _, path := range []string{"/signals", "/trials"} {
		w := serve(s, testutil.NewTestRequest(http.MethodGet, path))
		testutil.AssertStatusCode(t, w.Code, http.StatusOK)
		assert.JSONEq(t, `[]`, w.Body.String(), path)
	}
}

func TestShowSignal(t *testing.T) {
	s, database := setupTestServer(t)
	createSignal(t, database, "sig-1", 512, 513)

	w := serve(s, testutil.NewTestRequest(http.MethodGet, "/signals/sig-1"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var doc map[string]any
	testutil.DecodeJSON(t, w, &doc)
	assert.Equal(t, "sig-1", doc["id"])
	assert.Equal(t, []any{512.0, 513.0}, doc["readings"])
	assert.Equal(t, "p-7", doc["participant"])

	w = serve(s, testutil.NewTestRequest(http.MethodGet, "/signals/sig-1?flat=true&sep=/"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var flat map[string]any
	testutil.DecodeJSON(t, w, &flat)
	assert.Equal(t, 513.0, flat["readings/1"])
	assert.NotContains(t, flat, "readings")

	w = serve(s, testutil.NewTestRequest(http.MethodGet, "/signals/missing"))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
}

func TestDeleteSignal(t *testing.T) {
	s, database := setupTestServer(t)
	createSignal(t, database, "free", 512)
	createSignal(t, database, "used", 512)
	require.NoError(t, database.CreateTrial(&db.Trial{ID: "t", Label: "calm", SignalIDs: []string{"used"}}))

	w := serve(s, testutil.NewTestRequest(http.MethodDelete, "/signals/free"))
	testutil.AssertStatusCode(t, w.Code, http.StatusNoContent)

	w = serve(s, testutil.NewTestRequest(http.MethodDelete, "/signals/free"))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)

	w = serve(s, testutil.NewTestRequest(http.MethodDelete, "/signals/used"))
	testutil.AssertStatusCode(t, w.Code, http.StatusConflict)
}

func TestShowConductance(t *testing.T) {
	s, database := setupTestServer(t)
	createSignal(t, database, "sig-1", 512, -1, 600)

	w := serve(s, testutil.NewTestRequest(http.MethodGet, "/signals/sig-1/conductance?prefix=nano"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var resp conductanceResponse
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, "nano", resp.Prefix)
	assert.Equal(t, 1, resp.Dropped)
	require.Len(t, resp.Points, 2)
	assert.Equal(t, 0.0, resp.Points[0].T)
	assert.Equal(t, 1.0, resp.Points[1].T, "2 Hz puts the third reading at 1s")

	want := units.Rescale(units.BioEmoReadingsToSiemens(512), units.Nano)
	assert.InDelta(t, want, resp.Points[0].V, math.Abs(want)*1e-9)
	assert.Equal(t, 2, resp.Summary.Count)
	assert.Equal(t, analysis.Summarise(analysis.Values(resp.Points)), resp.Summary)
}

func TestShowConductanceDefaultsPrefix(t *testing.T) {
	s, database := setupTestServer(t)
	createSignal(t, database, "sig-1", 512)

	w := serve(s, testutil.NewTestRequest(http.MethodGet, "/signals/sig-1/conductance"))
	var resp conductanceResponse
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, "micro", resp.Prefix)

	w = serve(s, testutil.NewTestRequest(http.MethodGet, "/signals/sig-1/conductance?prefix=femto"))
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)

	w = serve(s, testutil.NewTestRequest(http.MethodGet, "/signals/nope/conductance"))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
}

func TestShowChart(t *testing.T) {
	s, database := setupTestServer(t)
	createSignal(t, database, "sig-1", 512, 530, 549, 520)
	createSignal(t, database, "broken", -1, -2)

	w := serve(s, testutil.NewTestRequest(http.MethodGet, "/signals/sig-1/chart"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Signal sig-1")

	w = serve(s, testutil.NewTestRequest(http.MethodGet, "/signals/sig-1/chart?format=png"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="sig-1-micro.png"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"))

	w = serve(s, testutil.NewTestRequest(http.MethodGet, "/signals/sig-1/chart?format=svg"))
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)

	w = serve(s, testutil.NewTestRequest(http.MethodGet, "/signals/broken/chart"))
	testutil.AssertStatusCode(t, w.Code, http.StatusUnprocessableEntity)
}

func TestTrials(t *testing.T) {
	s, database := setupTestServer(t)
	createSignal(t, database, "s1", 512)
	createSignal(t, database, "s2", 600)
	require.NoError(t, database.CreateTrial(&db.Trial{
		ID:        "trial-1",
		Label:     "startle",
		SignalIDs: []string{"s2", "s1"},
		Extra:     map[string]any{"song": map[string]any{"title": "Boléro"}},
	}))

	w := serve(s, testutil.NewTestRequest(http.MethodGet, "/trials"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var list []db.Trial
	testutil.DecodeJSON(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"s2", "s1"}, list[0].SignalIDs)

	w = serve(s, testutil.NewTestRequest(http.MethodGet, "/trials/trial-1"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var doc map[string]any
	testutil.DecodeJSON(t, w, &doc)
	signals, ok := doc["signals"].([]any)
	require.True(t, ok, "signals should be resolved documents")
	require.Len(t, signals, 2)
	assert.Equal(t, "s2", signals[0].(map[string]any)["id"])

	w = serve(s, testutil.NewTestRequest(http.MethodGet, "/trials/trial-1?flat=1"))
	var flat map[string]any
	testutil.DecodeJSON(t, w, &flat)
	assert.Equal(t, "Boléro", flat["song.title"])
	assert.Equal(t, "s1", flat["signals.1.id"])

	w = serve(s, testutil.NewTestRequest(http.MethodGet, "/trials/missing"))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
}

func TestLoggingMiddleware(t *testing.T) {
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestStatusCodeColor(t *testing.T) {
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"304"+colorReset, statusCodeColor(304))
	assert.Equal(t, colorBoldRed+"404"+colorReset, statusCodeColor(404))
	assert.Equal(t, colorBoldRed+"503"+colorReset, statusCodeColor(503))
	assert.Equal(t, "101", statusCodeColor(101))
}
