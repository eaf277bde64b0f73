package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/banshee-data/eim/internal/analysis"
	"github.com/banshee-data/eim/internal/httputil"
	"github.com/banshee-data/eim/internal/report"
	"github.com/banshee-data/eim/internal/security"
)

// showChart renders the signal's conductance as a PNG image or an
// interactive HTML page, chosen by the "format" query parameter.
func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
	format := report.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = report.HTML
	}
	var contentType string
	switch format {
	case report.HTML:
		contentType = "text/html; charset=utf-8"
	case report.PNG:
		contentType = "image/png"
	default:
		httputil.BadRequest(w, fmt.Sprintf("Invalid 'format' parameter %q, valid formats are html, png", format))
		return
	}

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

	chart := report.Chart{
		Title:  fmt.Sprintf("Signal %s", sig.ID),
		YLabel: fmt.Sprintf("Conductance (%s siemens)", prefix),
		Series: []report.Series{{Name: sig.Kind, Points: analysis.Series(sig, prefix)}},
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, chart); err != nil {
		if errors.Is(err, report.ErrNoData) {
			httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, err)
		return
	}
	name := security.SanitizeFilename(fmt.Sprintf("%s-%s", sig.ID, prefix)) + "." + string(format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	w.Write(buf.Bytes())
}
