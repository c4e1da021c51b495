package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pbaille/shore/internal/companion"
	"github.com/pbaille/shore/internal/domain"
	"github.com/pbaille/shore/internal/journal"
	"github.com/rs/zerolog"
)

// Server handles HTTP requests for a journal session
type Server struct {
	journal *journal.Service
	addr    string
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a new API server
func New(j *journal.Service, addr string, log zerolog.Logger) *Server {
	return &Server{journal: j, addr: addr, log: log.With().Str("component", "api").Logger(), now: time.Now}
}

// Handler builds the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Entries
	mux.HandleFunc("GET /entries", s.listEntries)
	mux.HandleFunc("POST /entries", s.addEntry)
	mux.HandleFunc("GET /entries/{id}", s.getEntry)
	mux.HandleFunc("DELETE /entries/{id}", s.deleteEntry)

	// Day folders
	mux.HandleFunc("GET /days", s.listDays)
	mux.HandleFunc("GET /days/{day}", s.getDay)

	// Companion
	mux.HandleFunc("GET /companions", s.listCompanions)
	mux.HandleFunc("POST /entries/{id}/companion", s.startConversation)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withLogging(s.log, withCORS(mux))
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.log.Info().Str("addr", s.addr).Msg("starting server")
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(log zerolog.Logger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AddEntryRequest is the request body for adding an entry
type AddEntryRequest struct {
	Content string   `json:"content"`
	Emotion string   `json:"emotion,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var opts []journal.EntryOption
	if req.Emotion != "" {
		em, err := domain.ParseEmotion(req.Emotion)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts = append(opts, journal.WithEmotion(em))
	}
	if len(req.Tags) > 0 {
		opts = append(opts, journal.WithTags(req.Tags...))
	}

	entry, err := s.journal.Add(r.Context(), req.Content, opts...)
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.journal.FindByPrefix(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.journal.FindByPrefix(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}

	removed, err := s.journal.Remove(r.Context(), entry.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.journal.Entries()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// DaySummary is one folder on the home screen
type DaySummary struct {
	Day   domain.Day `json:"day"`
	Count int        `json:"count"`
}

func (s *Server) listDays(w http.ResponseWriter, r *http.Request) {
	groups := s.journal.GroupByDay()
	days := journal.SortedDays(groups)

	out := make([]DaySummary, 0, len(days))
	for _, d := range days {
		out = append(out, DaySummary{Day: d, Count: len(groups[d])})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days": out,
	})
}

func (s *Server) getDay(w http.ResponseWriter, r *http.Request) {
	day, err := domain.ParseDay(r.PathValue("day"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"day":     day,
		"entries": s.journal.Day(day),
	})
}

func (s *Server) listCompanions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"characters": companion.Characters(),
		"actions":    companion.Actions(),
	})
}

// StartConversationRequest picks a companion for an entry
type StartConversationRequest struct {
	Character string `json:"character"`
}

func (s *Server) startConversation(w http.ResponseWriter, r *http.Request) {
	var req StartConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.journal.FindByPrefix(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}

	conv, err := companion.Start(entry, req.Character, s.now())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// fail maps domain errors onto status codes
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, journal.ErrNotFound), errors.Is(err, companion.ErrUnknownCharacter):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, journal.ErrAmbiguousID):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
