// Package api serves conversions and stored experiment records over HTTP.
package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/eim/internal/db"
	"github.com/banshee-data/eim/internal/httputil"
	"github.com/banshee-data/eim/internal/serialmux"
	"github.com/banshee-data/eim/internal/units"
	"github.com/banshee-data/eim/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const defaultListLimit = 100

type Server struct {
	m      serialmux.Mux
	db     *db.DB
	prefix units.Prefix
}

// NewServer returns a Server answering conductance queries in prefix unless
// a request asks for another one.
func NewServer(m serialmux.Mux, database *db.DB, prefix units.Prefix) *Server {
	if !units.IsValidPrefix(string(prefix)) {
		prefix = units.Micro
	}
	return &Server{
		m:      m,
		db:     database,
		prefix: prefix,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /convert", s.handleConvert)
	mux.HandleFunc("GET /config", s.showConfig)
	mux.HandleFunc("POST /command", s.sendCommandHandler)

	mux.HandleFunc("GET /signals", s.listSignals)
	mux.HandleFunc("GET /signals/{id}", s.showSignal)
	mux.HandleFunc("DELETE /signals/{id}", s.deleteSignal)
	mux.HandleFunc("GET /signals/{id}/conductance", s.showConductance)
	mux.HandleFunc("GET /signals/{id}/chart", s.showChart)

	mux.HandleFunc("GET /trials", s.listTrials)
	mux.HandleFunc("GET /trials/{id}", s.showTrial)
	return mux
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	command := r.FormValue("command")
	if command == "" {
		httputil.BadRequest(w, "command is required")
		return
	}
	if err := s.m.SendCommand(command); err != nil {
		httputil.InternalServerError(w, "Failed to send command")
		return
	}
	io.WriteString(w, "Command sent successfully")
}

type configResponse struct {
	Prefix      units.Prefix   `json:"prefix"`
	Prefixes    []units.Prefix `json:"prefixes"`
	Conversions []string       `json:"conversions"`
	Version     string         `json:"version"`
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, configResponse{
		Prefix:      s.prefix,
		Prefixes:    units.ValidPrefixes,
		Conversions: units.Names(),
		Version:     version.Version,
	})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, db.ErrSignalInUse):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, units.ErrCoercion), errors.Is(err, units.ErrUnknownConversion):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

// parseLimit reads the optional "limit" query parameter.
func parseLimit(r *http.Request) (int, error) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(l)
	if err != nil || n < 1 {
		return 0, errors.New("Invalid 'limit' parameter")
	}
	return n, nil
}

// parsePrefix reads the optional "prefix" query parameter.
func (s *Server) parsePrefix(r *http.Request) (units.Prefix, error) {
	p := r.URL.Query().Get("prefix")
	if p == "" {
		return s.prefix, nil
	}
	if !units.IsValidPrefix(p) {
		return "", errors.New("Invalid 'prefix' parameter, valid prefixes are " + units.GetValidPrefixesString())
	}
	return units.Prefix(p), nil
}
