package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/decklist/internal/classifier"
	"github.com/pbaille/decklist/internal/decklist"
	"github.com/pbaille/decklist/internal/domain"
	"github.com/pbaille/decklist/internal/export"
	"github.com/pbaille/decklist/internal/pipeline"
	"github.com/pbaille/decklist/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxUploadSize = 10 << 20

// RunArchive stores finished conversions
type RunArchive interface {
	SaveRun(source string, table *domain.Table) (*domain.Run, error)
	FindRun(prefix string) (*domain.Run, error)
	ListRuns(limit, offset int) ([]domain.Run, error)
}

// Server serves the upload page and the conversion API
type Server struct {
	pipeline *pipeline.Pipeline
	archive  RunArchive
	addr     string
	log      *zap.Logger

	maxUpload int64
}

// New creates a new API server. archive may be nil, which disables saving.
func New(p *pipeline.Pipeline, archive RunArchive, addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{pipeline: p, archive: archive, addr: addr, log: log, maxUpload: maxUploadSize}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Interactive surface
	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("POST /convert", s.convertPage)

	// JSON API
	mux.HandleFunc("POST /api/convert", s.convertJSON)
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.getRun)
	mux.HandleFunc("GET /api/runs/{id}/csv", s.getRunCSV)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("starting server", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ConvertResponse is the JSON result of a conversion
type ConvertResponse struct {
	Rows    []domain.OutputRow  `json:"rows"`
	Skipped int                 `json:"skipped"`
	Summary map[domain.Role]int `json:"summary"`
	CSV     string              `json:"csv"`
	RunID   string              `json:"run_id,omitempty"`
}

// upload is a converted decklist file
type upload struct {
	filename string
	table    *domain.Table
	csv      []byte
	run      *domain.Run
}

// convertUpload reads the multipart "file" field, capped at maxUpload bytes, converts it and optionally archives it.
// It returns an HTTP status and message on failure.
func (s *Server) convertUpload(w http.ResponseWriter, r *http.Request) (*upload, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("failed to parse form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("no file uploaded, use form field 'file'")
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".txt") {
		return nil, http.StatusBadRequest, errors.New("only .txt decklists are supported")
	}

	save := isTruthy(r.FormValue("save"))
	if save && s.archive == nil {
		return nil, http.StatusBadRequest, errors.New("run archive is disabled")
	}

	lines, err := decklist.ReadLines(file)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	s.log.Info("converting upload", zap.String("file", header.Filename), zap.Int("lines", len(lines)))
	table := s.pipeline.Convert(lines)

	csv, err := (&export.CSVWriter{}).Bytes(table)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("CSV generation failed: %w", err)
	}

	up := &upload{filename: header.Filename, table: table, csv: csv}
	if save {
		run, err := s.archive.SaveRun(header.Filename, table)
		if err != nil {
			return nil, http.StatusInternalServerError, fmt.Errorf("save run: %w", err)
		}
		up.run = run
	}
	return up, http.StatusOK, nil
}

func (s *Server) convertJSON(w http.ResponseWriter, r *http.Request) {
	up, status, err := s.convertUpload(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	resp := ConvertResponse{
		Rows:    up.table.Rows,
		Skipped: up.table.Skipped,
		Summary: classifier.Summarize(up.table.Rows),
		CSV:     string(up.csv),
	}
	if up.run != nil {
		resp.RunID = up.run.ID
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusOK, uploadPage(s.archive != nil, ""))
}

func (s *Server) convertPage(w http.ResponseWriter, r *http.Request) {
	up, status, err := s.convertUpload(w, r)
	if err != nil {
		writeHTML(w, status, uploadPage(s.archive != nil, err.Error()))
		return
	}

	writeHTML(w, http.StatusOK, resultPage(up))
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, "run archive is disabled")
		return
	}

	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	runs, err := s.archive.ListRuns(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []domain.Run{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":   runs,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) findRun(w http.ResponseWriter, r *http.Request) (*domain.Run, bool) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, "run archive is disabled")
		return nil, false
	}

	run, err := s.archive.FindRun(r.PathValue("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return run, true
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.findRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) getRunCSV(w http.ResponseWriter, r *http.Request) {
	run, ok := s.findRun(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DefaultFilename))
	table := &domain.Table{Rows: run.Rows, Skipped: run.Skipped}
	if err := (&export.CSVWriter{}).Write(w, table); err != nil {
		s.log.Error("write csv", zap.String("run", run.ID), zap.Error(err))
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
