// Package server exposes the patch viewer over HTTP: a JSON API plus the
// embedded frontend.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/lundberg/patchview/internal/cli"
	"github.com/lundberg/patchview/internal/git"
	"github.com/lundberg/patchview/internal/logging"
	"github.com/lundberg/patchview/internal/patch"
	"github.com/lundberg/patchview/internal/share"
	"github.com/lundberg/patchview/internal/store"
)

// maxUploadSize bounds POST /api/patches bodies.
const maxUploadSize = 10 << 20

// Server serves the frontend and the patch API.
type Server struct {
	config *cli.Config
	repo   *git.Repo
	store  *store.Store // nil when storage is disabled
	assets fs.FS
	logger logging.Logger
	mux    *http.ServeMux

	mu        sync.RWMutex
	preloaded *patch.ParsedPatch // stdin/file mode content
}

// New creates a server. A non-nil preloaded patch puts the server in
// stdin/file mode: /api/diff always returns it and /api/commits is empty.
func New(config *cli.Config, repo *git.Repo, st *store.Store, preloaded *patch.ParsedPatch, assets fs.FS, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		config:    config,
		repo:      repo,
		store:     st,
		assets:    assets,
		logger:    logger,
		mux:       http.NewServeMux(),
		preloaded: preloaded,
	}
	s.routes()
	return s
}

// SetPreloaded swaps the preloaded patch; used by file watch reloads.
func (s *Server) SetPreloaded(p *patch.ParsedPatch) {
	s.mu.Lock()
	s.preloaded = p
	s.mu.Unlock()
}

func (s *Server) getPreloaded() *patch.ParsedPatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preloaded
}

// Handler returns the http.Handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/diff", s.handleDiff)
	s.mux.HandleFunc("GET /api/commits", s.handleCommits)
	s.mux.HandleFunc("POST /api/patches", s.handleSavePatch)
	s.mux.HandleFunc("GET /api/patches", s.handleListPatches)
	s.mux.HandleFunc("GET /api/patches/{id}", s.handleGetPatch)
	s.mux.HandleFunc("PATCH /api/patches/{id}", s.handleRenamePatch)
	s.mux.HandleFunc("DELETE /api/patches/{id}", s.handleDeletePatch)
	s.mux.HandleFunc("GET /api/patches/{id}/share", s.handleShareLink)
	s.mux.HandleFunc("GET /api/share/{token}", s.handleShared)
	s.mux.HandleFunc("GET /s/{token}", s.handleViewer)
	s.mux.Handle("GET /", http.FileServerFS(s.assets))
}

// diffResponse decorates a parse result with per-file language hints and
// a directory tree for the frontend.
type diffResponse struct {
	*patch.ParsedPatch
	Languages map[string]string   `json:"languages"`
	Tree      map[string][]string `json:"tree"`
}

func newDiffResponse(p *patch.ParsedPatch) diffResponse {
	langs := make(map[string]string, len(p.Files))
	for _, f := range p.Files {
		path := patch.EffectivePath(f)
		langs[path] = patch.DetectLanguage(path)
	}
	tree := make(map[string][]string)
	for dir, files := range patch.GroupFilesByDirectory(p.Files) {
		for _, f := range files {
			tree[dir] = append(tree[dir], patch.EffectivePath(f))
		}
	}
	return diffResponse{ParsedPatch: p, Languages: langs, Tree: tree}
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	if p := s.getPreloaded(); p != nil {
		writeJSON(w, newDiffResponse(p))
		return
	}

	base := r.URL.Query().Get("base")
	if base == "" {
		base = s.config.Base
	}
	target := r.URL.Query().Get("target")
	if target == "" {
		target = s.config.Target
	}

	var rawDiff string
	var err error
	if s.config.Mode == "commit" && target == "" {
		// A single commit is served as a mailbox patch so the viewer
		// gets author, date and message alongside the diff.
		rawDiff, err = s.repo.FormatPatch(base)
	} else {
		rawDiff, err = s.repo.Diff(base, target)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rawDiff == "" {
		writeJSON(w, newDiffResponse(&patch.ParsedPatch{}))
		return
	}

	result, err := patch.Parse(rawDiff)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, newDiffResponse(result))
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	if s.getPreloaded() != nil {
		writeJSON(w, []git.Commit{})
		return
	}

	commits, err := s.repo.Commits(50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if commits == nil {
		commits = []git.Commit{}
	}
	writeJSON(w, commits)
}

func (s *Server) handleSavePatch(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "patch storage is disabled", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	text := string(body)

	if !patch.IsValidPatch(text) {
		http.Error(w, "not a unified diff", http.StatusUnprocessableEntity)
		return
	}
	parsed, err := patch.Parse(text)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.store.Save(r.Context(), parsed)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("patch saved", "id", rec.ID, "duplicate", rec.Duplicate, "files", rec.FilesChanged)
	writeJSON(w, rec)
}

// listEntry adds a coarse relative age to a stored record.
type listEntry struct {
	store.Record
	RelativeTime string `json:"relativeTime"`
}

func (s *Server) handleListPatches(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "patch storage is disabled", http.StatusServiceUnavailable)
		return
	}

	records, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	entries := make([]listEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, listEntry{
			Record:       rec,
			RelativeTime: patch.FormatRelativeTime(rec.CreatedAt.Format(time.RFC3339)),
		})
	}
	writeJSON(w, entries)
}

func (s *Server) handleGetPatch(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "patch storage is disabled", http.StatusServiceUnavailable)
		return
	}

	rec, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	parsed, err := patch.Parse(rec.Raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, struct {
		Record store.Record `json:"record"`
		Patch  diffResponse `json:"patch"`
	}{rec, newDiffResponse(parsed)})
}

func (s *Server) handleRenamePatch(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "patch storage is disabled", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	if err := s.store.Rename(r.Context(), r.PathValue("id"), req.Title); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePatch(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "patch storage is disabled", http.StatusServiceUnavailable)
		return
	}

	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.storeError(w, err)
		return
	}
	s.logger.Info("patch deleted", "id", r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShareLink(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "patch storage is disabled", http.StatusServiceUnavailable)
		return
	}

	rec, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	token, err := share.Encode(rec.Raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(token) > share.MaxTokenLen {
		http.Error(w, "patch too large to share as a URL", http.StatusRequestEntityTooLarge)
		return
	}
	writeJSON(w, struct {
		URL string `json:"url"`
	}{"/s/" + token})
}

func (s *Server) handleShared(w http.ResponseWriter, r *http.Request) {
	raw, err := share.Decode(r.PathValue("token"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	parsed, err := patch.Parse(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, newDiffResponse(parsed))
}

// handleViewer serves the frontend for share links; the page reads the
// token from its own URL and fetches /api/share/{token}.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	if _, err := share.Decode(r.PathValue("token")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.ServeFileFS(w, r, s.assets, "index.html")
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Microsecond).String(),
		)
	})
}
