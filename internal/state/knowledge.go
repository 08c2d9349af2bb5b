package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/service"
	"github.com/pbaille/diffadvisor/internal/tree"
)

// KnowledgeState is the knowledge-base slice of application state
type KnowledgeState struct {
	Notes         []domain.KnowledgeNote
	CurrentNote   *domain.KnowledgeNote
	SearchQuery   string
	FilteredNotes []domain.KnowledgeNote
	Loading       bool
	Error         string
}

// KnowledgeStore orchestrates KnowledgeService calls
type KnowledgeStore struct {
	cell[KnowledgeState]
	svc  service.KnowledgeService
	opts Options
	log  *slog.Logger

	selectSeq atomic.Uint64
	searchSeq atomic.Uint64
}

func NewKnowledgeStore(svc service.KnowledgeService, opts Options) *KnowledgeStore {
	return &KnowledgeStore{svc: svc, opts: opts, log: opts.logger().With("store", "knowledge")}
}

// Snapshot returns the current state
func (s *KnowledgeStore) Snapshot() KnowledgeState { return s.get() }

// Subscribe registers fn for every state change
func (s *KnowledgeStore) Subscribe(fn func(KnowledgeState)) (cancel func()) { return s.subscribe(fn) }

// Tree builds the category tree over the filtered notes
func (s *KnowledgeStore) Tree() []*tree.Node {
	return tree.Build(s.get().FilteredNotes)
}

// LoadNotes fetches every note. When nothing is selected yet, the configured
// default note is selected, or the first note when the default is absent.
func (s *KnowledgeStore) LoadNotes(ctx context.Context) {
	s.update(func(st *KnowledgeState) { st.Loading = true; st.Error = "" })

	notes, err := s.svc.Notes(ctx)
	if err != nil {
		s.log.Warn("load notes failed", "err", err)
		s.update(func(st *KnowledgeState) { st.Loading = false; st.Error = errMessage(err) })
		return
	}
	s.update(func(st *KnowledgeState) {
		st.Notes = notes
		st.FilteredNotes = notes
		st.Loading = false
		if st.CurrentNote == nil {
			st.CurrentNote = s.defaultNote(notes)
		}
	})
}

func (s *KnowledgeStore) defaultNote(notes []domain.KnowledgeNote) *domain.KnowledgeNote {
	if len(notes) == 0 {
		return nil
	}
	for _, n := range notes {
		if s.opts.DefaultNoteID != "" && n.ID == s.opts.DefaultNoteID {
			return &n
		}
	}
	first := notes[0]
	return &first
}

// SelectNote makes id current, looking in the loaded notes before asking
// the service. An id unknown to both selects nothing without an error.
func (s *KnowledgeStore) SelectNote(ctx context.Context, id string) {
	seq := s.selectSeq.Add(1)
	for _, n := range s.get().Notes {
		if n.ID == id {
			s.update(func(st *KnowledgeState) { st.CurrentNote = &n })
			return
		}
	}

	note, err := s.svc.Note(ctx, id)
	if s.selectSeq.Load() != seq {
		s.log.Debug("dropping stale note response", "id", id)
		return
	}
	if err != nil {
		s.log.Warn("select note failed", "id", id, "err", err)
		s.update(func(st *KnowledgeState) { st.Error = errMessage(err) })
		return
	}
	s.update(func(st *KnowledgeState) { st.CurrentNote = note })
}

// SetSearchQuery stores query as typed and replaces FilteredNotes with the
// service's matches. Responses to superseded queries are dropped.
func (s *KnowledgeStore) SetSearchQuery(ctx context.Context, query string) {
	seq := s.searchSeq.Add(1)
	s.update(func(st *KnowledgeState) { st.SearchQuery = query })

	matches, err := s.svc.SearchNotes(ctx, query)
	if s.searchSeq.Load() != seq {
		return
	}
	if err != nil {
		s.log.Warn("search notes failed", "query", query, "err", err)
		s.update(func(st *KnowledgeState) { st.Error = errMessage(err) })
		return
	}
	s.update(func(st *KnowledgeState) { st.FilteredNotes = matches })
}

// SaveNote upserts d, reloads every note from the service and selects the
// saved note. Unlike the other operations, failures are also returned.
func (s *KnowledgeStore) SaveNote(ctx context.Context, d domain.NoteDraft) (*domain.KnowledgeNote, error) {
	saved, notes, err := s.save(ctx, d)
	if err != nil {
		s.log.Warn("save note failed", "title", d.Title, "err", err)
		s.update(func(st *KnowledgeState) { st.Error = errMessage(err) })
		return nil, err
	}
	s.update(func(st *KnowledgeState) {
		st.Notes = notes
		st.FilteredNotes = notes
		st.CurrentNote = saved
	})
	return saved, nil
}

func (s *KnowledgeStore) save(ctx context.Context, d domain.NoteDraft) (*domain.KnowledgeNote, []domain.KnowledgeNote, error) {
	saved, err := s.svc.SaveNote(ctx, d)
	if err != nil {
		return nil, nil, err
	}
	notes, err := s.svc.Notes(ctx)
	if err != nil {
		return nil, nil, err
	}
	return saved, notes, nil
}

// SaveDebriefNotes files every note a debrief proposed into the knowledge
// base and reports the outcome as a notice. It stops at the first failure.
func (s *KnowledgeStore) SaveDebriefNotes(ctx context.Context, d *domain.DebriefResult) (int, error) {
	if d == nil || len(d.KnowledgeBaseNotes) == 0 {
		return 0, nil
	}
	saved := 0
	for _, proposed := range d.KnowledgeBaseNotes {
		if _, err := s.SaveNote(ctx, domain.DraftFromDebrief(proposed)); err != nil {
			s.opts.notify(NoticeError, errMessage(err))
			return saved, err
		}
		saved++
	}
	s.opts.notify(NoticeSuccess, fmt.Sprintf("Saved %d note(s) to knowledge base", saved))
	return saved, nil
}

// DeleteNote removes id and reloads the notes. The selection is cleared when
// it pointed at the deleted note.
func (s *KnowledgeStore) DeleteNote(ctx context.Context, id string) error {
	if err := s.svc.DeleteNote(ctx, id); err != nil {
		s.log.Warn("delete note failed", "id", id, "err", err)
		s.update(func(st *KnowledgeState) { st.Error = errMessage(err) })
		return err
	}
	notes, err := s.svc.Notes(ctx)
	if err != nil {
		s.update(func(st *KnowledgeState) { st.Error = errMessage(err) })
		return err
	}
	s.update(func(st *KnowledgeState) {
		st.Notes = notes
		st.FilteredNotes = notes
		if st.CurrentNote != nil && st.CurrentNote.ID == id {
			st.CurrentNote = nil
		}
	})
	return nil
}
