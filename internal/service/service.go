// Package service defines the five contracts every backend variant satisfies.
//
// Not-found is reported as a nil pointer with a nil error. An error always
// means the call itself failed.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
)

// ErrUnknownCommit is returned by RunDebrief for a hash the backend has never seen
var ErrUnknownCommit = errors.New("unknown commit")

// ProjectService lists and selects monitored projects
type ProjectService interface {
	Projects(ctx context.Context) ([]domain.Project, error)
	ActiveProject(ctx context.Context) (*domain.Project, error)
	SetActiveProject(ctx context.Context, id string) error
	AddProject(ctx context.Context, path string) (*domain.Project, error)
	RemoveProject(ctx context.Context, id string) error
}

// DebriefService retrieves commits and their debriefs
type DebriefService interface {
	PendingCommits(ctx context.Context, projectID string) ([]domain.Commit, error)
	ReviewedCommits(ctx context.Context, projectID string) ([]domain.Commit, error)
	DebriefByCommit(ctx context.Context, hash string) (*domain.DebriefResult, error)
	RunDebrief(ctx context.Context, hash string) (*domain.DebriefResult, error)
	MarkReviewed(ctx context.Context, debriefID string) error
	DiffContent(ctx context.Context, hash string) (string, error)
	GapCount(ctx context.Context, projectID string) (int, error)
}

// CheckpointService evaluates and records checkpoint answers
type CheckpointService interface {
	SubmitCheckpoint(ctx context.Context, debriefID, questionID, answer string) (*domain.Evaluation, error)
	Responses(ctx context.Context, debriefID string) ([]domain.CheckpointResponse, error)
}

// KnowledgeService manages knowledge notes
type KnowledgeService interface {
	Notes(ctx context.Context) ([]domain.KnowledgeNote, error)
	Note(ctx context.Context, id string) (*domain.KnowledgeNote, error)
	SaveNote(ctx context.Context, draft domain.NoteDraft) (*domain.KnowledgeNote, error)
	DeleteNote(ctx context.Context, id string) error
	SearchNotes(ctx context.Context, query string) ([]domain.KnowledgeNote, error)
}

// RelatedFinder is implemented by knowledge services that can rank notes
// by similarity to another note
type RelatedFinder interface {
	RelatedNotes(ctx context.Context, id string, k int) ([]domain.KnowledgeNote, error)
}

// URLImporter is implemented by knowledge services that can turn a web page
// into a note
type URLImporter interface {
	ImportURL(ctx context.Context, rawURL, categoryPath string) (*domain.KnowledgeNote, error)
}

// ErrUnsupported is returned for optional operations a variant lacks
var ErrUnsupported = errors.New("operation not supported by this backend")

// SettingsService reads and updates application settings and skills
type SettingsService interface {
	Settings(ctx context.Context) (*domain.AppSettings, error)
	UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (*domain.AppSettings, error)
	Skills(ctx context.Context) ([]domain.Skill, error)
	ToggleSkill(ctx context.Context, id string, enabled bool) error
	TestConnection(ctx context.Context) (*domain.ConnectionResult, error)
}

// Services bundles one implementation of every contract
type Services struct {
	Projects   ProjectService
	Debriefs   DebriefService
	Checkpoint CheckpointService
	Knowledge  KnowledgeService
	Settings   SettingsService
}

// ErrTitleRequired rejects note saves without a title
var ErrTitleRequired = errors.New("note title is required")

// ValidateDraft checks the fields every save must carry. Content and
// category path may be empty strings.
func ValidateDraft(d domain.NoteDraft) error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// MatchNote is the search predicate shared by backends: case-insensitive
// substring over title, tags and content.
func MatchNote(n domain.KnowledgeNote, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}
