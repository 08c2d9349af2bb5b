package state

import (
	"context"
	"log/slog"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/service"
)

// SettingsState is the settings slice of application state
type SettingsState struct {
	Settings             *domain.AppSettings
	Skills               []domain.Skill
	Loading              bool
	Error                string
	ConnectionTestResult *domain.ConnectionResult
}

// SettingsStore orchestrates SettingsService calls
type SettingsStore struct {
	cell[SettingsState]
	svc  service.SettingsService
	opts Options
	log  *slog.Logger
}

func NewSettingsStore(svc service.SettingsService, opts Options) *SettingsStore {
	return &SettingsStore{svc: svc, opts: opts, log: opts.logger().With("store", "settings")}
}

// Snapshot returns the current state
func (s *SettingsStore) Snapshot() SettingsState { return s.get() }

// Subscribe registers fn for every state change
func (s *SettingsStore) Subscribe(fn func(SettingsState)) (cancel func()) { return s.subscribe(fn) }

func (s *SettingsStore) LoadSettings(ctx context.Context) {
	s.update(func(st *SettingsState) { st.Loading = true; st.Error = "" })

	settings, err := s.svc.Settings(ctx)
	if err != nil {
		s.log.Warn("load settings failed", "err", err)
		s.update(func(st *SettingsState) { st.Loading = false; st.Error = errMessage(err) })
		return
	}
	s.update(func(st *SettingsState) { st.Settings = settings; st.Loading = false })
}

// UpdateSettings sends patch as-is and stores the merged settings the
// service returns.
func (s *SettingsStore) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) {
	settings, err := s.svc.UpdateSettings(ctx, patch)
	if err != nil {
		s.log.Warn("update settings failed", "err", err)
		s.update(func(st *SettingsState) { st.Error = errMessage(err) })
		return
	}
	s.update(func(st *SettingsState) { st.Settings = settings })
}

func (s *SettingsStore) LoadSkills(ctx context.Context) {
	skills, err := s.svc.Skills(ctx)
	if err != nil {
		s.log.Warn("load skills failed", "err", err)
		s.update(func(st *SettingsState) { st.Error = errMessage(err) })
		return
	}
	s.update(func(st *SettingsState) { st.Skills = skills })
}

// ToggleSkill persists the flag then reloads the full skill list
func (s *SettingsStore) ToggleSkill(ctx context.Context, id string, enabled bool) {
	if err := s.svc.ToggleSkill(ctx, id, enabled); err != nil {
		s.log.Warn("toggle skill failed", "id", id, "err", err)
		s.update(func(st *SettingsState) { st.Error = errMessage(err) })
		return
	}
	s.LoadSkills(ctx)
}

// TestConnection clears the previous result and records the new one. A
// failed call is recorded as an unsuccessful result, never as Error.
func (s *SettingsStore) TestConnection(ctx context.Context) {
	s.update(func(st *SettingsState) { st.ConnectionTestResult = nil })

	res, err := s.svc.TestConnection(ctx)
	if err != nil {
		s.log.Info("connection test failed", "err", err)
		res = &domain.ConnectionResult{Success: false, Message: err.Error()}
	}
	s.update(func(st *SettingsState) { st.ConnectionTestResult = res })
}
