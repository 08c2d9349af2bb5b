package state

import (
	"log/slog"

	"github.com/pbaille/diffadvisor/internal/domain"
)

// ThemeKey is the preference key the theme is persisted under
const ThemeKey = "diffadvisor-theme"

// Prefs is a small persistent key/value store for client-local settings
type Prefs interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// ThemeStore holds the UI theme. It reads the persisted value once at
// construction and writes through on every change.
type ThemeStore struct {
	cell[domain.Theme]
	prefs Prefs
	log   *slog.Logger
}

// NewThemeStore loads the stored theme, falling back to dark when the value
// is missing, unknown or unreadable. prefs may be nil.
func NewThemeStore(prefs Prefs, opts Options) *ThemeStore {
	s := &ThemeStore{prefs: prefs, log: opts.logger().With("store", "theme")}
	s.state = domain.ThemeDark
	if prefs == nil {
		return s
	}
	raw, err := prefs.Get(ThemeKey)
	if err != nil {
		s.log.Debug("theme preference unreadable", "err", err)
		return s
	}
	if t, ok := domain.ParseTheme(raw); ok {
		s.state = t
	}
	return s
}

func (s *ThemeStore) Theme() domain.Theme { return s.get() }

// Subscribe registers fn for every theme change
func (s *ThemeStore) Subscribe(fn func(domain.Theme)) (cancel func()) { return s.subscribe(fn) }

// SetTheme switches to t. The in-memory theme changes even when persisting
// fails; the persistence error is returned.
func (s *ThemeStore) SetTheme(t domain.Theme) error {
	s.update(func(cur *domain.Theme) { *cur = t })
	return s.persist(t)
}

// Toggle flips between dark and light and returns the new theme
func (s *ThemeStore) Toggle() (domain.Theme, error) {
	var next domain.Theme
	s.update(func(cur *domain.Theme) {
		if *cur == domain.ThemeDark {
			*cur = domain.ThemeLight
		} else {
			*cur = domain.ThemeDark
		}
		next = *cur
	})
	return next, s.persist(next)
}

func (s *ThemeStore) persist(t domain.Theme) error {
	if s.prefs == nil {
		return nil
	}
	if err := s.prefs.Set(ThemeKey, string(t)); err != nil {
		s.log.Warn("persist theme failed", "err", err)
		return err
	}
	return nil
}
