package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/logging"
	"github.com/pbaille/diffadvisor/internal/service"
	"github.com/pbaille/diffadvisor/internal/tree"
)

// Server exposes the service contracts over HTTP
type Server struct {
	svc  service.Services
	addr string
	log  *slog.Logger
}

// New creates a new API server. logger may be nil.
func New(svc service.Services, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{svc: svc, addr: addr, log: logger}
}

// Handler builds the routed, CORS-wrapped handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Projects
	mux.HandleFunc("GET /projects", s.listProjects)
	mux.HandleFunc("POST /projects", s.addProject)
	mux.HandleFunc("GET /projects/active", s.activeProject)
	mux.HandleFunc("PUT /projects/active", s.setActiveProject)
	mux.HandleFunc("DELETE /projects/{id}", s.removeProject)
	mux.HandleFunc("GET /projects/{id}/commits", s.listCommits)
	mux.HandleFunc("GET /projects/{id}/gaps", s.gapCount)

	// Commits and debriefs
	mux.HandleFunc("GET /commits/{hash}/debrief", s.getDebrief)
	mux.HandleFunc("POST /commits/{hash}/debrief/run", s.runDebrief)
	mux.HandleFunc("GET /commits/{hash}/diff", s.getDiff)
	mux.HandleFunc("POST /debriefs/{id}/reviewed", s.markReviewed)

	// Checkpoints
	mux.HandleFunc("POST /debriefs/{id}/checkpoints", s.submitCheckpoint)
	mux.HandleFunc("GET /debriefs/{id}/responses", s.listResponses)

	// Notes
	mux.HandleFunc("GET /notes", s.listNotes)
	mux.HandleFunc("POST /notes", s.saveNote)
	mux.HandleFunc("POST /notes/import", s.importNote)
	mux.HandleFunc("GET /notes/{id}", s.getNote)
	mux.HandleFunc("DELETE /notes/{id}", s.deleteNote)
	mux.HandleFunc("GET /notes/{id}/related", s.relatedNotes)
	mux.HandleFunc("GET /search", s.searchNotes)
	mux.HandleFunc("GET /tree", s.noteTree)

	// Settings
	mux.HandleFunc("GET /settings", s.getSettings)
	mux.HandleFunc("PATCH /settings", s.updateSettings)
	mux.HandleFunc("GET /skills", s.listSkills)
	mux.HandleFunc("PUT /skills/{id}", s.toggleSkill)
	mux.HandleFunc("POST /connection", s.testConnection)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(s.logRequests(mux))
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("api listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Projects

type addProjectRequest struct {
	Path string `json:"path"`
}

type setActiveRequest struct {
	ID string `json:"id"`
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.svc.Projects.Projects(r.Context())
	respond(w, projects, err)
}

func (s *Server) addProject(w http.ResponseWriter, r *http.Request) {
	var req addProjectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	p, err := s.svc.Projects.AddProject(r.Context(), req.Path)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) activeProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Projects.ActiveProject(r.Context())
	respondOne(w, p, err, "no active project")
}

func (s *Server) setActiveProject(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !decode(w, r, &req) {
		return
	}
	respondEmpty(w, s.svc.Projects.SetActiveProject(r.Context(), req.ID))
}

func (s *Server) removeProject(w http.ResponseWriter, r *http.Request) {
	respondEmpty(w, s.svc.Projects.RemoveProject(r.Context(), r.PathValue("id")))
}

func (s *Server) listCommits(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var (
		commits []domain.Commit
		err     error
	)
	switch status := domain.CommitStatus(r.URL.Query().Get("status")); status {
	case domain.StatusPending, "":
		commits, err = s.svc.Debriefs.PendingCommits(r.Context(), id)
	case domain.StatusReviewed:
		commits, err = s.svc.Debriefs.ReviewedCommits(r.Context(), id)
	default:
		writeError(w, http.StatusBadRequest, "status must be pending or reviewed")
		return
	}
	respond(w, commits, err)
}

type gapCountResponse struct {
	Count int `json:"count"`
}

func (s *Server) gapCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Debriefs.GapCount(r.Context(), r.PathValue("id"))
	respond(w, gapCountResponse{Count: n}, err)
}

// Debriefs

func (s *Server) getDebrief(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Debriefs.DebriefByCommit(r.Context(), r.PathValue("hash"))
	respondOne(w, d, err, "debrief not found")
}

func (s *Server) runDebrief(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Debriefs.RunDebrief(r.Context(), r.PathValue("hash"))
	respond(w, d, err)
}

type diffResponse struct {
	Diff string `json:"diff"`
}

func (s *Server) getDiff(w http.ResponseWriter, r *http.Request) {
	diff, err := s.svc.Debriefs.DiffContent(r.Context(), r.PathValue("hash"))
	respond(w, diffResponse{Diff: diff}, err)
}

func (s *Server) markReviewed(w http.ResponseWriter, r *http.Request) {
	respondEmpty(w, s.svc.Debriefs.MarkReviewed(r.Context(), r.PathValue("id")))
}

// Checkpoints

type checkpointRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

func (s *Server) submitCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req checkpointRequest
	if !decode(w, r, &req) {
		return
	}
	eval, err := s.svc.Checkpoint.SubmitCheckpoint(r.Context(), r.PathValue("id"), req.QuestionID, req.Answer)
	respond(w, eval, err)
}

func (s *Server) listResponses(w http.ResponseWriter, r *http.Request) {
	responses, err := s.svc.Checkpoint.Responses(r.Context(), r.PathValue("id"))
	respond(w, responses, err)
}

// Notes

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.svc.Knowledge.Notes(r.Context())
	respond(w, notes, err)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Knowledge.Note(r.Context(), r.PathValue("id"))
	respondOne(w, n, err, "note not found")
}

func (s *Server) saveNote(w http.ResponseWriter, r *http.Request) {
	var draft domain.NoteDraft
	if !decode(w, r, &draft) {
		return
	}
	n, err := s.svc.Knowledge.SaveNote(r.Context(), draft)
	respond(w, n, err)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	respondEmpty(w, s.svc.Knowledge.DeleteNote(r.Context(), r.PathValue("id")))
}

func (s *Server) searchNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.svc.Knowledge.SearchNotes(r.Context(), r.URL.Query().Get("q"))
	respond(w, notes, err)
}

func (s *Server) noteTree(w http.ResponseWriter, r *http.Request) {
	notes, err := s.svc.Knowledge.SearchNotes(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree.Build(notes))
}

func (s *Server) relatedNotes(w http.ResponseWriter, r *http.Request) {
	finder, ok := s.svc.Knowledge.(service.RelatedFinder)
	if !ok {
		s.fail(w, service.ErrUnsupported)
		return
	}
	k := 5
	if v := r.URL.Query().Get("k"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			k = n
		}
	}
	notes, err := finder.RelatedNotes(r.Context(), r.PathValue("id"), k)
	respond(w, notes, err)
}

type importRequest struct {
	URL          string `json:"url"`
	CategoryPath string `json:"category_path"`
}

func (s *Server) importNote(w http.ResponseWriter, r *http.Request) {
	importer, ok := s.svc.Knowledge.(service.URLImporter)
	if !ok {
		s.fail(w, service.ErrUnsupported)
		return
	}
	var req importRequest
	if !decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	n, err := importer.ImportURL(r.Context(), req.URL, req.CategoryPath)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// Settings

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Settings.Settings(r.Context())
	respond(w, settings, err)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if !decode(w, r, &patch) {
		return
	}
	settings, err := s.svc.Settings.UpdateSettings(r.Context(), patch)
	respond(w, settings, err)
}

func (s *Server) listSkills(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Settings.Skills(r.Context())
	respond(w, list, err)
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) toggleSkill(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decode(w, r, &req) {
		return
	}
	respondEmpty(w, s.svc.Settings.ToggleSkill(r.Context(), r.PathValue("id"), req.Enabled))
}

func (s *Server) testConnection(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Settings.TestConnection(r.Context())
	respond(w, res, err)
}

// helpers

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusOf maps service errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownCommit):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTitleRequired):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnsupported):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeError(w, code, err.Error())
}

func respond(w http.ResponseWriter, data any, err error) {
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// respondOne writes 404 for a nil entity
func respondOne[T any](w http.ResponseWriter, v *T, err error, missing string) {
	if err == nil && v == nil {
		writeError(w, http.StatusNotFound, missing)
		return
	}
	respond(w, v, err)
}

func respondEmpty(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
