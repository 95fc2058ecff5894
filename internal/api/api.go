// Package api implements the REST surface of the download server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PragmaticsGhost/scripper/internal/catalog"
	"github.com/PragmaticsGhost/scripper/internal/pipeline"
	"github.com/PragmaticsGhost/scripper/internal/source"
)

// Rate limits, per client IP.
const (
	rateWindow      = 15 * time.Minute
	generalRateMax  = 100
	loginRateMax    = 10
	downloadRateMax = 20
)

// BatchProcessor runs one submitted reference through the download pipeline.
type BatchProcessor interface {
	Process(ctx context.Context, ref source.Reference) (*pipeline.BatchResult, error)
}

// Server is the API server.
type Server struct {
	pipeline BatchProcessor
	catalog  *catalog.Store
	auth     *Authenticator
	log      *slog.Logger

	apiLimit      *RateLimiter
	loginLimit    *RateLimiter
	downloadLimit *RateLimiter
}

// New creates an API server.
func New(p BatchProcessor, cat *catalog.Store, auth *Authenticator, log *slog.Logger) *Server {
	return &Server{
		pipeline:      p,
		catalog:       cat,
		auth:          auth,
		log:           log,
		apiLimit:      NewRateLimiter(generalRateMax, rateWindow),
		loginLimit:    NewRateLimiter(loginRateMax, rateWindow),
		downloadLimit: NewRateLimiter(downloadRateMax, rateWindow),
	}
}

// RegisterRoutes registers API routes on the given mux. Every /api route
// sits behind the general rate limit; login and download carry stricter
// limits of their own.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	general := func(h http.HandlerFunc) http.HandlerFunc {
		return s.apiLimit.Middleware("Too many requests, please try again later", h)
	}

	mux.HandleFunc("GET /api/health", general(s.health))
	mux.HandleFunc("POST /api/login", general(
		s.loginLimit.Middleware("Too many login attempts, please try again later", s.login)))
	mux.HandleFunc("POST /api/download", general(s.auth.Require(
		s.downloadLimit.Middleware("Download rate limit exceeded, please try again later", s.download))))
	mux.HandleFunc("GET /api/downloads", general(s.auth.Require(s.listDownloads)))
	mux.HandleFunc("GET /api/downloads/{filename}", general(s.auth.Require(s.getDownload)))
	mux.HandleFunc("DELETE /api/downloads/{filename}", general(s.auth.Require(s.deleteDownload)))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a size-capped JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// Handlers

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}

	token, err := s.auth.Login(req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

type downloadRequest struct {
	URL string `json:"url"`
}

type downloadResponse struct {
	Success bool                   `json:"success"`
	Total   int                    `json:"total"`
	Results []pipeline.TrackResult `json:"results"`
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := decodeJSON(w, r, &req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	ref, err := source.Parse(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Only SoundCloud URLs are supported")
		return
	}

	batch, err := s.pipeline.Process(r.Context(), ref)
	if err != nil {
		s.log.Error("download failed", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "Download failed. Please check the URL and try again.")
		return
	}

	writeJSON(w, http.StatusOK, downloadResponse{
		Success: true,
		Total:   batch.Total,
		Results: batch.Results,
	})
}

type listResponse struct {
	Files []catalog.Entry `json:"files"`
}

func (s *Server) listDownloads(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.List()
	if err != nil {
		s.log.Error("listing downloads failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list downloads")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Files: entries})
}

func (s *Server) getDownload(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	f, err := s.catalog.Open(filename)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to download file")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) deleteDownload(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	if err := s.catalog.Delete(filename); err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Message: "File deleted"})
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidFilename):
		writeError(w, http.StatusBadRequest, "Invalid filename")
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "File not found")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to access file")
	}
}
