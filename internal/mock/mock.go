// Package mock is the in-memory fake backend. It implements every service
// contract over seeded data and supports per-operation failure injection
// for tests.
package mock

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/service"
	"github.com/pbaille/diffadvisor/internal/skills"
)

// Backend holds all fake state behind one lock
type Backend struct {
	mu        sync.Mutex
	projects  []domain.Project
	activeID  string
	commits   []domain.Commit
	debriefs  map[string]*domain.DebriefResult
	responses []domain.CheckpointResponse
	notes     []domain.KnowledgeNote
	settings  domain.AppSettings
	skills    []domain.Skill
	failures  map[string]error
	now       func() time.Time
}

// New returns a fake backend loaded with seed data
func New() *Backend {
	return &Backend{
		projects: seedProjects(),
		activeID: "proj-1",
		commits:  seedCommits(),
		debriefs: seedDebriefs(),
		notes:    seedNotes(),
		settings: seedSettings(),
		skills:   skills.MustBuiltin(),
		failures: map[string]error{},
		now:      time.Now,
	}
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

// Fail makes the named operation (the method name, e.g. "Notes") return err
// until cleared with a nil err.
func (b *Backend) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// fail must be called with mu held
func (b *Backend) fail(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.failures[op]
}

// Projects

func (b *Backend) Projects(ctx context.Context) ([]domain.Project, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "Projects"); err != nil {
		return nil, err
	}
	return append([]domain.Project(nil), b.projects...), nil
}

func (b *Backend) ActiveProject(ctx context.Context) (*domain.Project, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "ActiveProject"); err != nil {
		return nil, err
	}
	for _, p := range b.projects {
		if p.ID == b.activeID {
			return &p, nil
		}
	}
	return nil, nil
}

func (b *Backend) SetActiveProject(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "SetActiveProject"); err != nil {
		return err
	}
	b.activeID = id
	return nil
}

func (b *Backend) AddProject(ctx context.Context, p string) (*domain.Project, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "AddProject"); err != nil {
		return nil, err
	}
	name := path.Base(strings.TrimRight(p, "/"))
	if name == "." || name == "/" {
		name = "unknown"
	}
	project := domain.Project{
		ID:           "proj-" + uuid.New().String(),
		Name:         name,
		Path:         p,
		Language:     "TypeScript",
		Frameworks:   []string{},
		ActiveSkills: []string{"security-general"},
		CreatedAt:    b.now(),
	}
	b.projects = append(b.projects, project)
	return &project, nil
}

func (b *Backend) RemoveProject(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "RemoveProject"); err != nil {
		return err
	}
	for i, p := range b.projects {
		if p.ID == id {
			b.projects = append(b.projects[:i], b.projects[i+1:]...)
			break
		}
	}
	return nil
}

// Debriefs

func (b *Backend) commitsWith(status domain.CommitStatus) []domain.Commit {
	out := []domain.Commit{}
	for _, c := range b.commits {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

func (b *Backend) PendingCommits(ctx context.Context, projectID string) ([]domain.Commit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "PendingCommits"); err != nil {
		return nil, err
	}
	return b.commitsWith(domain.StatusPending), nil
}

func (b *Backend) ReviewedCommits(ctx context.Context, projectID string) ([]domain.Commit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "ReviewedCommits"); err != nil {
		return nil, err
	}
	return b.commitsWith(domain.StatusReviewed), nil
}

func copyDebrief(d *domain.DebriefResult) *domain.DebriefResult {
	c := *d
	c.Gaps = append([]domain.Gap(nil), d.Gaps...)
	c.CheckpointQuestions = append([]domain.CheckpointQuestion(nil), d.CheckpointQuestions...)
	return &c
}

func (b *Backend) DebriefByCommit(ctx context.Context, hash string) (*domain.DebriefResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "DebriefByCommit"); err != nil {
		return nil, err
	}
	d, ok := b.debriefs[hash]
	if !ok {
		return nil, nil
	}
	return copyDebrief(d), nil
}

func (b *Backend) RunDebrief(ctx context.Context, hash string) (*domain.DebriefResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "RunDebrief"); err != nil {
		return nil, err
	}
	d, ok := b.debriefs[hash]
	if !ok {
		return nil, fmt.Errorf("run debrief %s: %w", hash, service.ErrUnknownCommit)
	}
	return copyDebrief(d), nil
}

func (b *Backend) MarkReviewed(ctx context.Context, debriefID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "MarkReviewed"); err != nil {
		return err
	}
	for _, d := range b.debriefs {
		if d.ID != debriefID {
			continue
		}
		d.Status = domain.StatusReviewed
		for i := range b.commits {
			if b.commits[i].Hash == d.CommitHash {
				b.commits[i].Status = domain.StatusReviewed
			}
		}
	}
	return nil
}

func (b *Backend) DiffContent(ctx context.Context, hash string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "DiffContent"); err != nil {
		return "", err
	}
	return seedDiff, nil
}

func (b *Backend) GapCount(ctx context.Context, projectID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "GapCount"); err != nil {
		return 0, err
	}
	total := 0
	for _, d := range b.debriefs {
		total += len(d.Gaps)
	}
	return total, nil
}

// Checkpoints

func (b *Backend) SubmitCheckpoint(ctx context.Context, debriefID, questionID, answer string) (*domain.Evaluation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "SubmitCheckpoint"); err != nil {
		return nil, err
	}

	eval := seedEvaluation()
	if strings.TrimSpace(answer) == "" {
		eval = domain.Evaluation{
			Score:            0,
			Feedback:         "No answer was given.",
			KeyPointsCovered: []string{},
			KeyPointsMissed:  eval.KeyPointsMissed,
		}
	}

	var questionText string
	for _, d := range b.debriefs {
		if d.ID == debriefID {
			if q := d.Question(questionID); q != nil {
				questionText = q.Question
			}
		}
	}

	stored := eval
	b.responses = append(b.responses, domain.CheckpointResponse{
		ID:           "resp-" + uuid.New().String(),
		DebriefID:    debriefID,
		QuestionID:   questionID,
		QuestionText: questionText,
		ResponseText: answer,
		Evaluation:   &stored,
		Mode:         b.settings.Analysis.CheckpointMode,
		CreatedAt:    b.now(),
	})
	return &eval, nil
}

func (b *Backend) Responses(ctx context.Context, debriefID string) ([]domain.CheckpointResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "Responses"); err != nil {
		return nil, err
	}
	out := []domain.CheckpointResponse{}
	for _, r := range b.responses {
		if r.DebriefID == debriefID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Knowledge

func (b *Backend) Notes(ctx context.Context) ([]domain.KnowledgeNote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "Notes"); err != nil {
		return nil, err
	}
	return append([]domain.KnowledgeNote(nil), b.notes...), nil
}

func (b *Backend) Note(ctx context.Context, id string) (*domain.KnowledgeNote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "Note"); err != nil {
		return nil, err
	}
	for _, n := range b.notes {
		if n.ID == id {
			return &n, nil
		}
	}
	return nil, nil
}

func (b *Backend) SaveNote(ctx context.Context, d domain.NoteDraft) (*domain.KnowledgeNote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "SaveNote"); err != nil {
		return nil, err
	}
	if err := service.ValidateDraft(d); err != nil {
		return nil, err
	}

	now := b.now()
	if d.ID != "" {
		for i := range b.notes {
			if b.notes[i].ID != d.ID {
				continue
			}
			n := &b.notes[i]
			n.Title = d.Title
			n.CategoryPath = d.CategoryPath
			n.Content = d.Content
			if d.ProjectID != nil {
				n.ProjectID = d.ProjectID
			}
			if d.AutoGenerated != nil {
				n.AutoGenerated = *d.AutoGenerated
			}
			if d.Tags != nil {
				n.Tags = d.Tags
			}
			n.FilePath = domain.NoteFilePath(n.CategoryPath, n.Title)
			n.UpdatedAt = now
			saved := *n
			return &saved, nil
		}
	}

	n := domain.KnowledgeNote{
		ID:           d.ID,
		ProjectID:    d.ProjectID,
		Title:        d.Title,
		CategoryPath: d.CategoryPath,
		FilePath:     domain.NoteFilePath(d.CategoryPath, d.Title),
		Tags:         d.Tags,
		Content:      d.Content,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if n.ID == "" {
		n.ID = "note-" + uuid.New().String()
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if d.AutoGenerated != nil {
		n.AutoGenerated = *d.AutoGenerated
	}
	b.notes = append(b.notes, n)
	return &n, nil
}

func (b *Backend) DeleteNote(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "DeleteNote"); err != nil {
		return err
	}
	kept := b.notes[:0]
	for _, n := range b.notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	b.notes = kept
	return nil
}

func (b *Backend) SearchNotes(ctx context.Context, query string) ([]domain.KnowledgeNote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "SearchNotes"); err != nil {
		return nil, err
	}
	out := []domain.KnowledgeNote{}
	for _, n := range b.notes {
		if service.MatchNote(n, query) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Settings

func (b *Backend) Settings(ctx context.Context) (*domain.AppSettings, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "Settings"); err != nil {
		return nil, err
	}
	s := b.settings
	return &s, nil
}

func (b *Backend) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (*domain.AppSettings, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "UpdateSettings"); err != nil {
		return nil, err
	}
	b.settings = patch.Apply(b.settings)
	s := b.settings
	return &s, nil
}

func (b *Backend) Skills(ctx context.Context) ([]domain.Skill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "Skills"); err != nil {
		return nil, err
	}
	return append([]domain.Skill(nil), b.skills...), nil
}

func (b *Backend) ToggleSkill(ctx context.Context, id string, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "ToggleSkill"); err != nil {
		return err
	}
	for i := range b.skills {
		if b.skills[i].ID == id {
			b.skills[i].Enabled = enabled
		}
	}
	return nil
}

func (b *Backend) TestConnection(ctx context.Context) (*domain.ConnectionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(ctx, "TestConnection"); err != nil {
		return nil, err
	}
	if len(b.settings.AI.APIKey) > 5 {
		return &domain.ConnectionResult{Success: true, Message: "Connection successful! Model responded."}, nil
	}
	return &domain.ConnectionResult{Success: false, Message: "Connection refused: invalid API key."}, nil
}
