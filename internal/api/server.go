package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/nozzle.report/internal/db"
	"github.com/banshee-data/nozzle.report/internal/nozzle"
	"github.com/banshee-data/nozzle.report/internal/serialmux"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	m       serialmux.SerialMuxInterface
	db      *db.DB
	session *nozzle.Session
}

func NewServer(m serialmux.SerialMuxInterface, db *db.DB, session *nozzle.Session) *Server {
	return &Server{
		m:       m,
		db:      db,
		session: session,
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
	mux.HandleFunc("/samples", s.listSamples)
	mux.HandleFunc("/classifications", s.listClassifications)
	mux.HandleFunc("/condition", s.showCondition)
	mux.HandleFunc("/stats", s.showStats)
	mux.HandleFunc("/command", s.sendCommandHandler)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func limitParam(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

// listSamples returns recently persisted sensor readings, newest first.
func (s *Server) listSamples(w http.ResponseWriter, r *http.Request) {
	samples, err := s.db.RecentSamples(limitParam(r, 500))
	if err != nil {
		http.Error(w, "Failed to list samples", http.StatusInternalServerError)
		return
	}
	if samples == nil {
		samples = []db.SampleRow{}
	}
	s.writeJSON(w, samples)
}

// listClassifications returns recent classification records, newest first.
func (s *Server) listClassifications(w http.ResponseWriter, r *http.Request) {
	records, err := s.db.Classifications(limitParam(r, 100))
	if err != nil {
		http.Error(w, "Failed to list classifications", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []nozzle.Classification{}
	}
	s.writeJSON(w, records)
}

type conditionResponse struct {
	Label        string                 `json:"label,omitempty"`
	Record       *nozzle.Classification `json:"record,omitempty"`
	Sample       *nozzle.Sample         `json:"sample,omitempty"`
	WindowFill   int                    `json:"window_fill"`
	Distribution map[string]float64     `json:"distribution"`
}

// showCondition reports the current nozzle state: the latest classification,
// the latest raw sample echo, window fill level, and the session's condition
// distribution. An empty response body (no label/record) means "no
// classification yet", which is distinct from any error state.
func (s *Server) showCondition(w http.ResponseWriter, r *http.Request) {
	resp := conditionResponse{
		WindowFill:   s.session.WindowLen(),
		Distribution: s.session.History().Tally(),
	}
	if rec, ok := s.session.History().Last(); ok {
		resp.Label = rec.Label
		resp.Record = &rec
	}
	if sample, ok := s.session.LastSample(); ok {
		resp.Sample = &sample
	}
	s.writeJSON(w, resp)
}

// showStats reports per-session ingest and evaluation counters.
func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.session.Stats())
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command := r.FormValue("command")

	if err := s.m.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}
