// Package api exposes the session store and analysis results over
// HTTP as JSON. Speeds are converted to the configured display units
// at this edge; storage and analysis stay in km/h. Absent values
// (NaN in the analysis layer) serialise as JSON null.
package api

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/pitwall-data/laptime.report/internal/db"
	"github.com/pitwall-data/laptime.report/internal/units"
	"github.com/pitwall-data/laptime.report/internal/version"
)

const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db    *db.DB
	units string
}

func NewServer(database *db.DB, displayUnits string) *Server {
	return &Server{
		db:    database,
		units: displayUnits,
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
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/laps", s.listLaps)
	mux.HandleFunc("/api/pace", s.showPace)
	mux.HandleFunc("/api/race-pace", s.showRacePace)
	mux.HandleFunc("/api/gaps", s.showGaps)
	mux.HandleFunc("/api/stints", s.showStints)
	mux.HandleFunc("/api/degradation", s.showDegradation)
	mux.HandleFunc("/api/overtakes", s.showOvertakes)
	mux.HandleFunc("/api/qualifying", s.showQualifying)
	mux.HandleFunc("/api/pitstops", s.showPitStops)
	mux.HandleFunc("/api/sectors", s.showSectors)
	mux.HandleFunc("/api/speed-trap", s.showSpeedTrap)
	mux.HandleFunc("/api/brake-points", s.showBrakePoints)
	mux.HandleFunc("/api/trace", s.showTrace)
	mux.HandleFunc("/api/delta", s.showDelta)
	mux.HandleFunc("/api/config", s.showConfig)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	config := map[string]interface{}{
		"units":   s.units,
		"version": version.Version,
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}

// convertSpeed maps a stored km/h speed to the display units.
func (s *Server) convertSpeed(speedKPH float64) float64 {
	return units.ConvertSpeed(speedKPH, s.units)
}

// nullable maps absent values to nil so they serialise as JSON null.
func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
