package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pbaille/diffadvisor/internal/backend"
	"github.com/pbaille/diffadvisor/internal/client"
	"github.com/pbaille/diffadvisor/internal/config"
	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/embedding"
	"github.com/pbaille/diffadvisor/internal/llm"
	"github.com/pbaille/diffadvisor/internal/logging"
	"github.com/pbaille/diffadvisor/internal/mock"
	"github.com/pbaille/diffadvisor/internal/prefs"
	"github.com/pbaille/diffadvisor/internal/service"
	"github.com/pbaille/diffadvisor/internal/state"
	"github.com/pbaille/diffadvisor/internal/store"
)

// env is everything a command needs, built from config and flags
type env struct {
	cfg     config.Config
	log     *slog.Logger
	svcs    service.Services
	app     *state.App
	closers []io.Closer
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i].Close()
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if backendMode != "" {
		cfg.Backend.Mode = backendMode
	}
	if dbPath != "" {
		cfg.Backend.DBPath = dbPath
	}
	if remoteURL != "" {
		cfg.Backend.RemoteURL = remoteURL
		if backendMode == "" {
			cfg.Backend.Mode = config.BackendRemote
		}
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, cfg.Validate()
}

// openEnv builds the configured backend and the state stores over it. Logs
// go to stderr so command output stays clean.
func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel(), os.Stderr)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: logger}

	svcs, err := e.openServices()
	if err != nil {
		e.Close()
		return nil, err
	}
	e.svcs = svcs

	var p state.Prefs
	if ps, err := prefs.Open(cfg.PrefsPath()); err != nil {
		logger.Warn("preferences unavailable, theme will not persist", "error", err)
	} else {
		e.closers = append(e.closers, ps)
		p = ps
	}

	e.app = state.NewApp(svcs, p, state.Options{
		Logger:        logger,
		OnNotice:      printNotice,
		DefaultNoteID: defaultNoteID(cfg),
	})
	return e, nil
}

// healthTimeout bounds the reachability check made before using a remote server
const healthTimeout = 5 * time.Second

func (e *env) openServices() (service.Services, error) {
	switch e.cfg.BackendMode() {
	case config.BackendMemory:
		return mock.New().Services(), nil
	case config.BackendRemote:
		c := client.New(e.cfg.RemoteURL(), nil)
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()
		if err := c.Health(ctx); err != nil {
			return service.Services{}, fmt.Errorf("server %s unreachable: %w", e.cfg.RemoteURL(), err)
		}
		return c.Services(), nil
	case config.BackendLocal:
		path := e.cfg.DBPath()
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return service.Services{}, fmt.Errorf("create db dir: %w", err)
			}
		}
		st, err := store.New(path)
		if err != nil {
			return service.Services{}, err
		}
		e.closers = append(e.closers, st)
		b, err := backend.New(backend.Options{
			Store:     st,
			Providers: providerFactory(e.cfg),
			Embedder:  e.embedder(),
			Logger:    e.log,
		})
		if err != nil {
			return service.Services{}, err
		}
		return b.Services(), nil
	}
	return service.Services{}, fmt.Errorf("unknown backend mode %q", e.cfg.Backend.Mode)
}

func (e *env) embedder() embedding.Embedder {
	if !e.cfg.EmbeddingEnabled() {
		return nil
	}
	svc, err := embedding.FromEnv()
	if err != nil {
		e.log.Warn("embeddings disabled", "error", err)
		return nil
	}
	return svc
}

// providerFactory fills blanks in the stored AI settings from config, and
// the key from the configured environment variable
func providerFactory(cfg config.Config) backend.ProviderFactory {
	return func(ai domain.AISettings) (llm.Provider, error) {
		opts := llm.Options{
			Provider: firstNonEmpty(ai.Provider, cfg.LLMProvider()),
			Model:    firstNonEmpty(ai.Model, cfg.LLMModel()),
			BaseURL:  firstNonEmpty(ai.EndpointURL, cfg.LLMBaseURL()),
			APIKey:   firstNonEmpty(ai.APIKey, os.Getenv(cfg.APIKeyEnv())),
		}
		p, err := llm.New(opts)
		if err != nil && opts.APIKey == "" {
			return nil, fmt.Errorf("%w (set it in settings or %s)", err, cfg.APIKeyEnv())
		}
		return p, err
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// defaultNoteID is the seeded welcome note, which only the fake backend has
func defaultNoteID(cfg config.Config) string {
	if cfg.BackendMode() == config.BackendMemory {
		return mock.DefaultNoteID
	}
	return ""
}

func printNotice(n state.Notice) {
	mark := "✓"
	if n.Kind == state.NoticeError {
		mark = "✗"
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", mark, n.Message)
}

// stateErr turns a store's recorded failure into a command error
func stateErr(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
