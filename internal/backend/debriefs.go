package backend

import (
	"context"
	"fmt"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/gitlog"
	"github.com/pbaille/diffadvisor/internal/llm"
	"github.com/pbaille/diffadvisor/internal/service"
	"github.com/pbaille/diffadvisor/internal/skills"
)

// syncCommits pulls the latest history of a project into the store. Failures
// are logged; callers fall back to what was stored before.
func (b *Backend) syncCommits(ctx context.Context, projectID string) {
	p, err := b.store.GetProject(ctx, projectID)
	if err != nil || p == nil {
		return
	}
	if !gitlog.IsRepository(ctx, p.Path) {
		return
	}
	commits, err := gitlog.Log(ctx, p.Path, b.commitLimit)
	if err != nil {
		b.log.Warn("commit sync failed", "project", projectID, "error", err)
		return
	}
	if err := b.store.SyncCommits(ctx, projectID, commits); err != nil {
		b.log.Warn("commit sync failed", "project", projectID, "error", err)
	}
}

func (b *Backend) PendingCommits(ctx context.Context, projectID string) ([]domain.Commit, error) {
	b.syncCommits(ctx, projectID)
	return b.store.ListCommits(ctx, projectID, domain.StatusPending)
}

func (b *Backend) ReviewedCommits(ctx context.Context, projectID string) ([]domain.Commit, error) {
	return b.store.ListCommits(ctx, projectID, domain.StatusReviewed)
}

func (b *Backend) DebriefByCommit(ctx context.Context, hash string) (*domain.DebriefResult, error) {
	return b.store.DebriefByCommit(ctx, hash)
}

// locate finds a known commit and the project it belongs to
func (b *Backend) locate(ctx context.Context, hash string) (*domain.Commit, *domain.Project, error) {
	c, projectID, err := b.store.FindCommit(ctx, hash)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, fmt.Errorf("commit %s: %w", hash, service.ErrUnknownCommit)
	}
	p, err := b.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, fmt.Errorf("commit %s: project %s is gone", hash, projectID)
	}
	return c, p, nil
}

// RunDebrief returns the stored debrief for hash, generating and storing one
// first when the commit has never been analyzed.
func (b *Backend) RunDebrief(ctx context.Context, hash string) (*domain.DebriefResult, error) {
	if d, err := b.store.DebriefByCommit(ctx, hash); err != nil || d != nil {
		return d, err
	}

	commit, project, err := b.locate(ctx, hash)
	if err != nil {
		return nil, err
	}
	provider, settings, err := b.provider(ctx)
	if err != nil {
		return nil, err
	}
	diff, err := gitlog.Diff(ctx, project.Path, hash)
	if err != nil {
		return nil, err
	}
	list, err := b.Skills(ctx)
	if err != nil {
		return nil, err
	}

	b.log.Info("running debrief", "commit", hash, "project", project.ID, "depth", settings.Analysis.AnalysisDepth)
	d, err := llm.NewAnalyzer(provider).Analyze(ctx, llm.AnalyzeInput{
		Commit:       *commit,
		Diff:         diff,
		SkillContext: skills.Context(list),
		Depth:        settings.Analysis.AnalysisDepth,
		Language:     settings.Appearance.DebriefLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("debrief %s: %w", hash, err)
	}
	d.ID = newID("debrief")
	d.CommitHash = hash
	d.Status = commit.Status
	d.CreatedAt = b.now()
	d.SkillsUsed = nonNil(skills.EnabledIDs(list))

	if err := b.store.SaveDebrief(ctx, project.ID, d); err != nil {
		return nil, err
	}
	if err := b.store.TouchProjectAnalyzed(ctx, project.ID, d.CreatedAt); err != nil {
		b.log.Warn("touch project failed", "project", project.ID, "error", err)
	}

	if settings.Knowledge.AutoGenerateNotes {
		for _, kb := range d.KnowledgeBaseNotes {
			draft := domain.DraftFromDebrief(kb)
			draft.ProjectID = &project.ID
			if _, err := b.SaveNote(ctx, draft); err != nil {
				b.log.Warn("auto note failed", "title", kb.Title, "error", err)
			}
		}
	}
	return d, nil
}

// MarkReviewed fails for a debrief the store has never seen
func (b *Backend) MarkReviewed(ctx context.Context, debriefID string) error {
	ok, err := b.store.MarkReviewed(ctx, debriefID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mark reviewed: unknown debrief %s", debriefID)
	}
	return nil
}

func (b *Backend) DiffContent(ctx context.Context, hash string) (string, error) {
	_, project, err := b.locate(ctx, hash)
	if err != nil {
		return "", err
	}
	return gitlog.Diff(ctx, project.Path, hash)
}

func (b *Backend) GapCount(ctx context.Context, projectID string) (int, error) {
	return b.store.GapCount(ctx, projectID)
}

// Checkpoints

func (b *Backend) SubmitCheckpoint(ctx context.Context, debriefID, questionID, answer string) (*domain.Evaluation, error) {
	d, err := b.store.Debrief(ctx, debriefID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("submit checkpoint: unknown debrief %s", debriefID)
	}
	q := d.Question(questionID)
	if q == nil {
		return nil, fmt.Errorf("submit checkpoint: unknown question %s", questionID)
	}

	provider, settings, err := b.provider(ctx)
	if err != nil {
		return nil, err
	}
	eval, err := llm.NewEvaluator(provider).Evaluate(ctx, *q, answer)
	if err != nil {
		return nil, fmt.Errorf("evaluate answer: %w", err)
	}
	eval.Score = domain.ClampScore(eval.Score)

	stored := *eval
	err = b.store.InsertResponse(ctx, domain.CheckpointResponse{
		ID:           newID("resp"),
		DebriefID:    debriefID,
		QuestionID:   questionID,
		QuestionText: q.Question,
		ResponseText: answer,
		Evaluation:   &stored,
		Mode:         settings.Analysis.CheckpointMode,
		CreatedAt:    b.now(),
	})
	if err != nil {
		return nil, err
	}
	return eval, nil
}

func (b *Backend) Responses(ctx context.Context, debriefID string) ([]domain.CheckpointResponse, error) {
	return b.store.ListResponses(ctx, debriefID)
}
