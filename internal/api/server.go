// Package api exposes the ingestion pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/cvdrop/internal/config"
	"github.com/dharsanguruparan/cvdrop/internal/ingest"
	"github.com/dharsanguruparan/cvdrop/internal/storage"
	"github.com/dharsanguruparan/cvdrop/internal/validation"
)

const serviceName = "CVDrop CV upload service"

// Server exposes HTTP endpoints for uploads and upload lookups.
type Server struct {
	cfg       *config.Config
	svc       *ingest.Service
	files     *validation.FileValidator
	validator *validation.Validator
	queue     *asynq.Client
	log       logrus.FieldLogger
	now       func() time.Time

	handler http.Handler
	server  *http.Server
	once    sync.Once
}

// New constructs a Server. queueClient may be nil, in which case uploads are
// always ingested synchronously.
func New(cfg *config.Config, svc *ingest.Service, queueClient *asynq.Client, log logrus.FieldLogger) *Server {
	return &Server{
		cfg: cfg,
		svc: svc,
		files: &validation.FileValidator{
			MaxSize:           cfg.Upload.MaxFileSize,
			AllowedTypes:      cfg.Upload.AllowedTypes,
			AllowedExtensions: cfg.Upload.AllowedExtensions,
		},
		validator: validation.NewValidator(nil),
		queue:     queueClient,
		log:       log,
		now:       time.Now,
	}
}

// Handler returns the routed handler wrapped in the CORS and logging
// middleware.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /{$}", s.handleRoot)
		mux.HandleFunc("GET /health", s.handleHealth)
		mux.HandleFunc("POST /api/upload", s.handleUpload)
		mux.HandleFunc("GET /api/stats", s.handleStats)
		mux.HandleFunc("GET /api/form-config", s.handleFormConfig)
		mux.HandleFunc("GET /api/uploads/{id}", s.handleUploadDetails)
		mux.HandleFunc("GET /api/uploads/{id}/text", s.handleUploadText)
		if local, ok := s.svc.Backend().(*storage.LocalBackend); ok {
			prefix := strings.TrimSuffix(s.cfg.Storage.PublicPrefix, "/") + "/"
			mux.Handle("GET "+prefix, http.StripPrefix(prefix, staticFiles(local.Root())))
		}
		s.handler = corsMiddleware(s.cfg.Server.AllowedOrigins, loggingMiddleware(s.log, mux))
	})
	return s.handler
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.WithField("address", s.cfg.Server.Address).Info("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": serviceName + " is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"storage_backend": s.svc.Backend().Kind(),
		"queue_enabled":   s.queue != nil,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.log.WithError(err).Error("upload stats failed")
		respondError(w, http.StatusInternalServerError, "failed to read upload statistics")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total_uploads":   stats.TotalUploads,
		"storage_backend": stats.StorageBackend,
		"timestamp":       s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleFormConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, NewFormConfig(s.now()))
}

func (s *Server) handleUploadDetails(w http.ResponseWriter, r *http.Request) {
	details, err := s.svc.Lookup(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, ingest.ErrUploadNotFound):
		respondError(w, http.StatusNotFound, "upload not found")
	case err != nil:
		s.log.WithError(err).Error("upload lookup failed")
		respondError(w, http.StatusInternalServerError, "failed to read upload")
	default:
		respondJSON(w, http.StatusOK, details)
	}
}

func (s *Server) handleUploadText(w http.ResponseWriter, r *http.Request) {
	text, err := s.svc.Text(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, ingest.ErrUploadNotFound):
		respondError(w, http.StatusNotFound, "extracted text not found")
	case err != nil:
		s.log.WithError(err).Error("extracted text lookup failed")
		respondError(w, http.StatusInternalServerError, "failed to read extracted text")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(text))
	}
}

// staticFiles serves stored artifacts without directory listings.
func staticFiles(root string) http.Handler {
	fs := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		logrus.WithError(err).Error("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, detail any) {
	respondJSON(w, status, map[string]any{"detail": detail})
}
