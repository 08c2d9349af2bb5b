package state

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/service"
	"golang.org/x/sync/errgroup"
)

// Answer is the latest submission for one checkpoint question
type Answer struct {
	Text       string
	Evaluation *domain.Evaluation
}

// DebriefState is the review slice of application state
type DebriefState struct {
	PendingCommits  []domain.Commit
	ReviewedCommits []domain.Commit
	CurrentDebrief  *domain.DebriefResult
	DiffContent     string
	GapCount        int
	Loading         bool
	DebriefLoading  bool
	Error           string
	// Answers is keyed by question id and reset whenever a debrief loads
	Answers map[string]Answer
}

// DebriefStore orchestrates DebriefService and CheckpointService calls
type DebriefStore struct {
	cell[DebriefState]
	debriefs    service.DebriefService
	checkpoints service.CheckpointService
	opts        Options
	log         *slog.Logger

	// seq tags LoadDebrief calls; a response whose tag is no longer current is dropped
	seq atomic.Uint64

	projectMu sync.Mutex
	projectID string
}

func NewDebriefStore(debriefs service.DebriefService, checkpoints service.CheckpointService, opts Options) *DebriefStore {
	s := &DebriefStore{
		debriefs:    debriefs,
		checkpoints: checkpoints,
		opts:        opts,
		log:         opts.logger().With("store", "debrief"),
	}
	s.state.Answers = map[string]Answer{}
	return s
}

// Snapshot returns the current state
func (s *DebriefStore) Snapshot() DebriefState { return s.get() }

// Subscribe registers fn for every state change
func (s *DebriefStore) Subscribe(fn func(DebriefState)) (cancel func()) { return s.subscribe(fn) }

func (s *DebriefStore) lastProject() string {
	s.projectMu.Lock()
	defer s.projectMu.Unlock()
	return s.projectID
}

func (s *DebriefStore) fetchCommits(ctx context.Context, projectID string) (pending, reviewed []domain.Commit, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pending, err = s.debriefs.PendingCommits(gctx, projectID)
		return err
	})
	g.Go(func() error {
		var err error
		reviewed, err = s.debriefs.ReviewedCommits(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return pending, reviewed, nil
}

// LoadCommits fetches pending and reviewed commits together. Both lists are
// replaced only when both fetches succeed.
func (s *DebriefStore) LoadCommits(ctx context.Context, projectID string) {
	s.projectMu.Lock()
	s.projectID = projectID
	s.projectMu.Unlock()

	s.update(func(st *DebriefState) { st.Loading = true; st.Error = "" })

	pending, reviewed, err := s.fetchCommits(ctx, projectID)
	if err != nil {
		s.log.Warn("load commits failed", "project", projectID, "err", err)
		s.update(func(st *DebriefState) { st.Loading = false; st.Error = errMessage(err) })
		return
	}
	s.update(func(st *DebriefState) {
		st.PendingCommits = pending
		st.ReviewedCommits = reviewed
		st.Loading = false
	})
}

// LoadDebrief runs the debrief for hash and fetches its diff concurrently.
// Answers are cleared immediately. If another LoadDebrief or ClearDebrief
// starts before this one resolves, this result is discarded.
func (s *DebriefStore) LoadDebrief(ctx context.Context, hash string) {
	seq := s.seq.Add(1)
	s.update(func(st *DebriefState) {
		st.DebriefLoading = true
		st.Error = ""
		st.Answers = map[string]Answer{}
	})

	var (
		debrief *domain.DebriefResult
		diff    string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		debrief, err = s.debriefs.RunDebrief(gctx, hash)
		return err
	})
	g.Go(func() error {
		var err error
		diff, err = s.debriefs.DiffContent(gctx, hash)
		return err
	})
	err := g.Wait()

	if s.seq.Load() != seq {
		s.log.Debug("dropping stale debrief response", "commit", hash)
		return
	}
	if err != nil {
		s.log.Warn("load debrief failed", "commit", hash, "err", err)
		s.update(func(st *DebriefState) { st.DebriefLoading = false; st.Error = errMessage(err) })
		return
	}
	s.update(func(st *DebriefState) {
		st.CurrentDebrief = debrief
		st.DiffContent = diff
		st.DebriefLoading = false
	})
}

// LoadGapCount refreshes the advisory gap counter. Failures are ignored.
func (s *DebriefStore) LoadGapCount(ctx context.Context, projectID string) {
	n, err := s.debriefs.GapCount(ctx, projectID)
	if err != nil {
		s.log.Debug("gap count unavailable", "err", err)
		return
	}
	s.update(func(st *DebriefState) { st.GapCount = n })
}

// MarkReviewed persists the pending→reviewed transition, then refreshes the
// commit lists from the service. When no project has been loaded, or the
// refresh fails, the lists are patched locally instead.
func (s *DebriefStore) MarkReviewed(ctx context.Context, debriefID string) {
	if err := s.debriefs.MarkReviewed(ctx, debriefID); err != nil {
		s.log.Warn("mark reviewed failed", "debrief", debriefID, "err", err)
		s.update(func(st *DebriefState) { st.Error = errMessage(err) })
		s.opts.notify(NoticeError, errMessage(err))
		return
	}

	var pending, reviewed []domain.Commit
	fetched := false
	if projectID := s.lastProject(); projectID != "" {
		var err error
		pending, reviewed, err = s.fetchCommits(ctx, projectID)
		if err != nil {
			s.log.Warn("refresh after mark reviewed failed, patching locally", "err", err)
		} else {
			fetched = true
		}
	}

	s.update(func(st *DebriefState) {
		cur := st.CurrentDebrief
		matches := cur != nil && cur.ID == debriefID
		if matches {
			flipped := *cur
			flipped.Status = domain.StatusReviewed
			st.CurrentDebrief = &flipped
		}
		if fetched {
			st.PendingCommits = pending
			st.ReviewedCommits = reviewed
			return
		}
		if matches {
			st.PendingCommits, st.ReviewedCommits = moveToReviewed(st.PendingCommits, st.ReviewedCommits, cur.CommitHash)
		}
	})
	s.opts.notify(NoticeSuccess, "Commit marked as reviewed")
}

// moveToReviewed removes hash from pending and prepends a reviewed copy
func moveToReviewed(pending, reviewed []domain.Commit, hash string) ([]domain.Commit, []domain.Commit) {
	idx := -1
	for i, c := range pending {
		if c.Hash == hash {
			idx = i
			break
		}
	}
	if idx < 0 {
		return pending, reviewed
	}
	moved := pending[idx]
	moved.Status = domain.StatusReviewed

	nextPending := make([]domain.Commit, 0, len(pending)-1)
	nextPending = append(nextPending, pending[:idx]...)
	nextPending = append(nextPending, pending[idx+1:]...)

	nextReviewed := make([]domain.Commit, 0, len(reviewed)+1)
	nextReviewed = append(nextReviewed, moved)
	nextReviewed = append(nextReviewed, reviewed...)
	return nextPending, nextReviewed
}

// SubmitAnswer evaluates an answer and stores it under questionID, replacing
// any earlier answer to the same question.
func (s *DebriefStore) SubmitAnswer(ctx context.Context, debriefID, questionID, text string) (*domain.Evaluation, error) {
	eval, err := s.checkpoints.SubmitCheckpoint(ctx, debriefID, questionID, text)
	if err != nil {
		s.log.Warn("submit answer failed", "debrief", debriefID, "question", questionID, "err", err)
		s.update(func(st *DebriefState) { st.Error = errMessage(err) })
		return nil, err
	}
	s.update(func(st *DebriefState) {
		next := make(map[string]Answer, len(st.Answers)+1)
		for k, v := range st.Answers {
			next[k] = v
		}
		next[questionID] = Answer{Text: text, Evaluation: eval}
		st.Answers = next
	})
	return eval, nil
}

// ClearDebrief resets the loaded debrief, used when navigating away. Any
// LoadDebrief still in flight is abandoned.
func (s *DebriefStore) ClearDebrief() {
	s.seq.Add(1)
	s.update(func(st *DebriefState) {
		st.CurrentDebrief = nil
		st.DiffContent = ""
		st.DebriefLoading = false
		st.Answers = map[string]Answer{}
	})
}
