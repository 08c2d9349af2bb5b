package state

import (
	"context"
	"log/slog"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/service"
)

// ProjectState is the project slice of application state
type ProjectState struct {
	Projects      []domain.Project
	ActiveProject *domain.Project
	Loading       bool
	Error         string
}

// ProjectStore orchestrates ProjectService calls
type ProjectStore struct {
	cell[ProjectState]
	svc  service.ProjectService
	opts Options
	log  *slog.Logger
}

func NewProjectStore(svc service.ProjectService, opts Options) *ProjectStore {
	return &ProjectStore{svc: svc, opts: opts, log: opts.logger().With("store", "project")}
}

// Snapshot returns the current state
func (s *ProjectStore) Snapshot() ProjectState { return s.get() }

// Subscribe registers fn for every state change
func (s *ProjectStore) Subscribe(fn func(ProjectState)) (cancel func()) { return s.subscribe(fn) }

func (s *ProjectStore) LoadProjects(ctx context.Context) {
	s.update(func(st *ProjectState) { st.Loading = true; st.Error = "" })

	projects, err := s.svc.Projects(ctx)
	if err != nil {
		s.log.Warn("load projects failed", "err", err)
		s.update(func(st *ProjectState) { st.Loading = false; st.Error = errMessage(err) })
		return
	}
	s.update(func(st *ProjectState) { st.Projects = projects; st.Loading = false })
}

// LoadActiveProject fetches the active project. A nil project is a valid result.
func (s *ProjectStore) LoadActiveProject(ctx context.Context) {
	s.update(func(st *ProjectState) { st.Loading = true; st.Error = "" })

	active, err := s.svc.ActiveProject(ctx)
	if err != nil {
		s.log.Warn("load active project failed", "err", err)
		s.update(func(st *ProjectState) { st.Loading = false; st.Error = errMessage(err) })
		return
	}
	s.update(func(st *ProjectState) { st.ActiveProject = active; st.Loading = false })
}

// SetActiveProject persists the selection then re-reads it from the service
func (s *ProjectStore) SetActiveProject(ctx context.Context, id string) {
	if err := s.svc.SetActiveProject(ctx, id); err != nil {
		s.log.Warn("set active project failed", "id", id, "err", err)
		s.update(func(st *ProjectState) { st.Error = errMessage(err) })
		return
	}
	active, err := s.svc.ActiveProject(ctx)
	if err != nil {
		s.update(func(st *ProjectState) { st.Error = errMessage(err) })
		return
	}
	s.update(func(st *ProjectState) { st.ActiveProject = active })
}
