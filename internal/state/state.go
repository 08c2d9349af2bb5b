// Package state holds the client-side stores that sit between a view and the
// service contracts. Each store owns one state value behind a lock, mutates
// it only from its own operations, and notifies subscribers after every
// change. Slices and maps inside a state value are never modified in place,
// so snapshots handed to subscribers stay valid.
package state

import (
	"log/slog"
	"sync"

	"github.com/pbaille/diffadvisor/internal/logging"
	"github.com/pbaille/diffadvisor/internal/service"
)

// NoticeKind classifies a transient user-facing message
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient confirmation or failure message
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Options configures store construction
type Options struct {
	Logger *slog.Logger
	// OnNotice receives transient notices from mutations
	OnNotice func(Notice)
	// DefaultNoteID is auto-selected on the first notes load when present
	DefaultNoteID string
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.Discard()
	}
	return o.Logger
}

func (o Options) notify(kind NoticeKind, msg string) {
	if o.OnNotice != nil {
		o.OnNotice(Notice{Kind: kind, Message: msg})
	}
}

// cell is a single-writer state container with change subscriptions
type cell[S any] struct {
	mu    sync.Mutex
	state S
	subs  map[int]func(S)
	next  int
}

func (c *cell[S]) get() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// update applies fn atomically, then notifies subscribers outside the lock
func (c *cell[S]) update(fn func(s *S)) {
	c.mu.Lock()
	fn(&c.state)
	snap := c.state
	subs := make([]func(S), 0, len(c.subs))
	for _, f := range c.subs {
		subs = append(subs, f)
	}
	c.mu.Unlock()

	for _, f := range subs {
		f(snap)
	}
}

func (c *cell[S]) subscribe(fn func(S)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		c.subs = map[int]func(S){}
	}
	id := c.next
	c.next++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// App bundles one instance of every store over a single set of services
type App struct {
	Projects  *ProjectStore
	Debrief   *DebriefStore
	Knowledge *KnowledgeStore
	Settings  *SettingsStore
	Theme     *ThemeStore
}

// NewApp wires every store to svcs. prefs may be nil, in which case the
// theme lives in memory only.
func NewApp(svcs service.Services, prefs Prefs, opts Options) *App {
	return &App{
		Projects:  NewProjectStore(svcs.Projects, opts),
		Debrief:   NewDebriefStore(svcs.Debriefs, svcs.Checkpoint, opts),
		Knowledge: NewKnowledgeStore(svcs.Knowledge, opts),
		Settings:  NewSettingsStore(svcs.Settings, opts),
		Theme:     NewThemeStore(prefs, opts),
	}
}
