// Package httpapi exposes the engine over a JSON HTTP API.
//
// Endpoints mirror the boundary operations: index, search, stats, reset,
// plus a health check. Validation errors map to 400, a missing data
// directory to 404, everything else to 500.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/scholarpath/pathfinder"
)

// Options configures the API server.
type Options struct {
	// DataDir is the default directory scanned by the index endpoint.
	DataDir string

	// SnapshotDir, when set, is written after indexing and removed on reset.
	SnapshotDir string

	// DefaultTopK applies when a search request omits top_k.
	DefaultTopK int

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server routes HTTP requests to engine operations.
type Server struct {
	engine *pathfinder.Engine
	parser pathfinder.Parser
	opts   Options
	logger *slog.Logger
}

// NewServer creates an API server around the given engine and file parser.
func NewServer(engine *pathfinder.Engine, parser pathfinder.Parser, opts Options) *Server {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 10
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		engine: engine,
		parser: parser,
		opts:   opts,
		logger: opts.Logger,
	}
}

// Router builds the HTTP handler with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/index", s.handleIndex).Methods(http.MethodPost)
	r.HandleFunc("/api/search", s.handleSearch).Methods(http.MethodPost)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/reset", s.handleReset).Methods(http.MethodPost)

	r.Use(s.requestLogger)
	return r
}

// requestLogger tags each request with an id and logs method, path, and
// duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)

		start := time.Now()
		next.ServeHTTP(w, r)

		s.logger.Info("request",
			"id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "literature navigation API is running",
	})
}

type indexRequest struct {
	DataDir string `json:"data_dir"`
}

type indexResponse struct {
	Success      bool                     `json:"success"`
	Message      string                   `json:"message"`
	NumDocuments int                      `json:"num_documents"`
	Stats        pathfinder.StatsResponse `json:"stats"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dataDir := req.DataDir
	if dataDir == "" {
		dataDir = s.opts.DataDir
	}

	if _, err := os.Stat(dataDir); err != nil {
		writeError(w, http.StatusNotFound, "data directory not found: "+dataDir)
		return
	}

	paths, err := filepath.Glob(filepath.Join(dataDir, "*.txt"))
	if err != nil || len(paths) == 0 {
		writeError(w, http.StatusBadRequest, "no text files found in "+dataDir)
		return
	}

	report, err := s.engine.IndexFiles(r.Context(), s.parser, paths)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.opts.SnapshotDir != "" {
		if err := s.engine.SaveSnapshot(s.opts.SnapshotDir, pathfinder.Float32Precision); err != nil {
			s.logger.Warn("failed to save snapshot", "dir", s.opts.SnapshotDir, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, indexResponse{
		Success:      true,
		Message:      "indexing complete",
		NumDocuments: report.NumDocuments,
		Stats:        s.engine.Stats(),
	})
}

type searchRequest struct {
	Query         string `json:"query"`
	TopK          int    `json:"top_k"`
	UseClustering *bool  `json:"use_clustering"`
	UseHybrid     *bool  `json:"use_hybrid"`
}

type searchResponse struct {
	Success bool `json:"success"`
	*pathfinder.SearchResponse
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	engineReq := pathfinder.SearchRequest{
		Query:         req.Query,
		TopK:          req.TopK,
		UseClustering: true,
		UseHybrid:     true,
	}
	if engineReq.TopK == 0 {
		engineReq.TopK = s.opts.DefaultTopK
	}
	if req.UseClustering != nil {
		engineReq.UseClustering = *req.UseClustering
	}
	if req.UseHybrid != nil {
		engineReq.UseHybrid = *req.UseHybrid
	}

	resp, err := s.engine.Search(r.Context(), engineReq)
	if err != nil {
		switch {
		case errors.Is(err, pathfinder.ErrInvalidQuery),
			errors.Is(err, pathfinder.ErrInvalidTopK),
			errors.Is(err, pathfinder.ErrEmptyIndex):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.Canceled):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Success: true, SearchResponse: resp})
}

type statsResponse struct {
	Success       bool                     `json:"success"`
	IndexStats    pathfinder.StatsResponse `json:"index_stats"`
	FilesCount    int                      `json:"files_count"`
	DataDirectory string                   `json:"data_directory"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	filesCount := 0
	if paths, err := filepath.Glob(filepath.Join(s.opts.DataDir, "*.txt")); err == nil {
		filesCount = len(paths)
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Success:       true,
		IndexStats:    s.engine.Stats(),
		FilesCount:    filesCount,
		DataDirectory: s.opts.DataDir,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.opts.SnapshotDir != "" {
		if err := os.RemoveAll(s.opts.SnapshotDir); err != nil {
			s.logger.Warn("failed to remove snapshot", "dir", s.opts.SnapshotDir, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "index reset successfully",
	})
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}
