package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

// RunSource reads past run reports.
type RunSource interface {
	LastRun() (*domain.RunReport, error)
	ListRuns(limit int) ([]*domain.RunReport, error)
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server exposes the sync status over HTTP.
type Server struct {
	runs   RunSource
	mux    *http.ServeMux
	server *http.Server
}

func NewServer(port string, runs RunSource) *Server {
	s := &Server{runs: runs, mux: http.NewServeMux()}

	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/runs", s.handleRuns)

	s.server = &http.Server{
		Addr:    ":" + port,
		Handler: s.mux,
	}
	return s
}

// Handler returns the route table, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start() {
	go func() {
		log.Printf("Starting status server on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// GET /status - last run report
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	last, err := s.runs.LastRun()
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if last == nil {
		s.jsonError(w, "No runs recorded yet", http.StatusNotFound)
		return
	}
	s.jsonResponse(w, last)
}

// GET /runs?limit=N - recent run history
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(limit)
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, runs)
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (s *Server) jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}
