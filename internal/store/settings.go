package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pbaille/diffadvisor/internal/domain"
)

const (
	keySettings      = "settings"
	keyActiveProject = "active_project"
)

// Settings returns the stored settings, or the defaults when none were saved
func (s *Store) Settings(ctx context.Context) (domain.AppSettings, error) {
	raw, ok, err := s.State(ctx, keySettings)
	if err != nil {
		return domain.AppSettings{}, err
	}
	settings := domain.DefaultSettings()
	if !ok {
		return settings, nil
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return domain.AppSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.AppSettings) error {
	raw, err := encodeJSON(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.SetState(ctx, keySettings, raw)
}

// ActiveProjectID returns "" when no project is active
func (s *Store) ActiveProjectID(ctx context.Context) (string, error) {
	id, _, err := s.State(ctx, keyActiveProject)
	return id, err
}

func (s *Store) SetActiveProjectID(ctx context.Context, id string) error {
	return s.SetState(ctx, keyActiveProject, id)
}

// SkillOverride is a persisted user or detection choice for one skill
type SkillOverride struct {
	Enabled      bool
	AutoDetected bool
}

func (s *Store) SkillOverrides(ctx context.Context) (map[string]SkillOverride, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, enabled, auto_detected FROM skill_overrides")
	if err != nil {
		return nil, fmt.Errorf("list skill overrides: %w", err)
	}
	defer rows.Close()

	out := map[string]SkillOverride{}
	for rows.Next() {
		var (
			id                    string
			enabled, autoDetected int
		)
		if err := rows.Scan(&id, &enabled, &autoDetected); err != nil {
			return nil, fmt.Errorf("scan skill override: %w", err)
		}
		out[id] = SkillOverride{Enabled: enabled != 0, AutoDetected: autoDetected != 0}
	}
	return out, rows.Err()
}

func (s *Store) SetSkillOverride(ctx context.Context, id string, o SkillOverride) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO skill_overrides (id, enabled, auto_detected) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET enabled = excluded.enabled, auto_detected = excluded.auto_detected
	`, id, boolInt(o.Enabled), boolInt(o.AutoDetected))
	if err != nil {
		return fmt.Errorf("set skill override: %w", err)
	}
	return nil
}
