// Package backend is the local implementation of every service contract:
// SQLite for state, git for commits and diffs, and an LLM provider for
// debriefs and answer grading.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/embedding"
	"github.com/pbaille/diffadvisor/internal/llm"
	"github.com/pbaille/diffadvisor/internal/logging"
	"github.com/pbaille/diffadvisor/internal/service"
	"github.com/pbaille/diffadvisor/internal/skills"
	"github.com/pbaille/diffadvisor/internal/store"
)

// ProviderFactory builds the model provider for the current AI settings
type ProviderFactory func(ai domain.AISettings) (llm.Provider, error)

// DefaultProviderFactory uses the settings as-is
func DefaultProviderFactory(ai domain.AISettings) (llm.Provider, error) {
	return llm.New(llm.Options{
		Provider: ai.Provider,
		Model:    ai.Model,
		BaseURL:  ai.EndpointURL,
		APIKey:   ai.APIKey,
	})
}

type Options struct {
	Store *store.Store
	// Providers defaults to DefaultProviderFactory
	Providers ProviderFactory
	// Embedder is optional; without it notes are not embedded
	Embedder embedding.Embedder
	// Catalog defaults to the built-in skills
	Catalog     []domain.Skill
	CommitLimit int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Backend implements service.ProjectService, DebriefService,
// CheckpointService, KnowledgeService and SettingsService
type Backend struct {
	store       *store.Store
	providers   ProviderFactory
	embedder    embedding.Embedder
	catalog     []domain.Skill
	commitLimit int
	log         *slog.Logger
	now         func() time.Time
}

func New(opts Options) (*Backend, error) {
	if opts.Store == nil {
		return nil, errors.New("backend: store is required")
	}
	b := &Backend{
		store:       opts.Store,
		providers:   opts.Providers,
		embedder:    opts.Embedder,
		catalog:     opts.Catalog,
		commitLimit: opts.CommitLimit,
		log:         opts.Logger,
		now:         opts.Now,
	}
	if b.providers == nil {
		b.providers = DefaultProviderFactory
	}
	if b.catalog == nil {
		catalog, err := skills.Builtin()
		if err != nil {
			return nil, err
		}
		b.catalog = catalog
	}
	if b.commitLimit <= 0 {
		b.commitLimit = 50
	}
	if b.log == nil {
		b.log = logging.Discard()
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b, nil
}

// Services exposes the backend through every contract
func (b *Backend) Services() service.Services {
	return service.Services{
		Projects:   b,
		Debriefs:   b,
		Checkpoint: b,
		Knowledge:  b,
		Settings:   b,
	}
}

func newID(prefix string) string {
	return prefix + "-" + uuid.New().String()
}

// provider resolves the model provider from the stored AI settings
func (b *Backend) provider(ctx context.Context) (llm.Provider, domain.AppSettings, error) {
	settings, err := b.store.Settings(ctx)
	if err != nil {
		return nil, settings, err
	}
	p, err := b.providers(settings.AI)
	if err != nil {
		return nil, settings, fmt.Errorf("model provider: %w", err)
	}
	return p, settings, nil
}
