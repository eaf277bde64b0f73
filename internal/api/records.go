package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/eim/internal/analysis"
	"github.com/banshee-data/eim/internal/db"
	"github.com/banshee-data/eim/internal/document"
	"github.com/banshee-data/eim/internal/httputil"
)

// signalSummary is a signal without its readings, for listings.
type signalSummary struct {
	ID           string         `json:"id"`
	Kind         string         `json:"kind"`
	SampleRateHz float64        `json:"sample_rate_hz"`
	RecordedAt   time.Time      `json:"recorded_at"`
	Samples      int            `json:"samples"`
	Extra        map[string]any `json:"extra,omitempty"`
}

func (s *Server) listSignals(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	signals, err := s.db.ListSignals(limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]signalSummary, len(signals))
	for i, sig := range signals {
		out[i] = signalSummary{
			ID:           sig.ID,
			Kind:         sig.Kind,
			SampleRateHz: sig.SampleRateHz,
			RecordedAt:   sig.RecordedAt,
			Samples:      len(sig.Readings),
			Extra:        sig.Extra,
		}
	}
	httputil.WriteJSONOK(w, out)
}

// showSignal returns the signal document, flattened to keypaths when the
// "flat" query parameter is true.
func (s *Server) showSignal(w http.ResponseWriter, r *http.Request) {
	sig, err := s.db.Signal(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeDocument(w, r, sig.Document())
}

func (s *Server) deleteSignal(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteSignal(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type conductanceResponse struct {
	SignalID string           `json:"signal_id"`
	Prefix   string           `json:"prefix"`
	Points   []analysis.Point `json:"points"`
	// Dropped counts readings whose conductance is not a finite number.
	Dropped int              `json:"dropped"`
	Summary analysis.Summary `json:"summary"`
}

func (s *Server) showConductance(w http.ResponseWriter, r *http.Request) {
	prefix, err := s.parsePrefix(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	sig, err := s.db.Signal(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	all := analysis.Series(sig, prefix)
	pts := analysis.Finite(all)
	httputil.WriteJSONOK(w, conductanceResponse{
		SignalID: sig.ID,
		Prefix:   string(prefix),
		Points:   pts,
		Dropped:  len(all) - len(pts),
		Summary:  analysis.Summarise(analysis.Values(pts)),
	})
}

func (s *Server) listTrials(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	trials, err := s.db.ListTrials(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if trials == nil {
		trials = []db.Trial{}
	}
	httputil.WriteJSONOK(w, trials)
}

// showTrial returns the trial document with its signals resolved in
// recording order. A dangling signal reference is reported as 404.
func (s *Server) showTrial(w http.ResponseWriter, r *http.Request) {
	t, err := s.db.Trial(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	signals, err := db.ResolveSignals(s.db, t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeDocument(w, r, t.Document(signals))
}

func writeDocument(w http.ResponseWriter, r *http.Request, doc map[string]any) {
	q := r.URL.Query()
	if flat, _ := strconv.ParseBool(q.Get("flat")); flat {
		sep := q.Get("sep")
		if sep == "" {
			sep = document.DefaultSeparator
		}
		httputil.WriteJSONOK(w, document.Flatten(doc, sep))
		return
	}
	httputil.WriteJSONOK(w, doc)
}
