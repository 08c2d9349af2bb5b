package backend

import (
	"context"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/llm"
)

func (b *Backend) Settings(ctx context.Context) (*domain.AppSettings, error) {
	s, err := b.store.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (b *Backend) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (*domain.AppSettings, error) {
	current, err := b.store.Settings(ctx)
	if err != nil {
		return nil, err
	}
	next := patch.Apply(current)
	if err := b.store.SaveSettings(ctx, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// Skills is the catalog with persisted overrides applied
func (b *Backend) Skills(ctx context.Context) ([]domain.Skill, error) {
	overrides, err := b.store.SkillOverrides(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Skill, len(b.catalog))
	for i, sk := range b.catalog {
		if o, ok := overrides[sk.ID]; ok {
			sk.Enabled = o.Enabled
			sk.AutoDetected = o.AutoDetected
		}
		out[i] = sk
	}
	return out, nil
}

func (b *Backend) ToggleSkill(ctx context.Context, id string, enabled bool) error {
	overrides, err := b.store.SkillOverrides(ctx)
	if err != nil {
		return err
	}
	o := overrides[id]
	o.Enabled = enabled
	return b.store.SetSkillOverride(ctx, id, o)
}

// TestConnection reports provider problems as an unsuccessful result
func (b *Backend) TestConnection(ctx context.Context) (*domain.ConnectionResult, error) {
	provider, _, err := b.provider(ctx)
	if err != nil {
		return &domain.ConnectionResult{Success: false, Message: err.Error()}, nil
	}
	reply, err := llm.Ping(ctx, provider)
	if err != nil {
		return &domain.ConnectionResult{Success: false, Message: err.Error()}, nil
	}
	return &domain.ConnectionResult{Success: true, Message: "Connection successful! Model replied: " + reply}, nil
}
