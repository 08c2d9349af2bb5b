package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pbaille/diffadvisor/internal/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProjects(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p := domain.Project{ID: "proj-1", Name: "api", Path: "/work/api", CreatedAt: time.Now()}
	if err := s.InsertProject(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetProject(ctx, "proj-1")
	if err != nil || got == nil {
		t.Fatalf("GetProject = %+v, %v", got, err)
	}
	if got.Frameworks == nil || got.ActiveSkills == nil || got.LastAnalyzedAt != nil {
		t.Errorf("project = %+v", got)
	}

	if err := s.TouchProjectAnalyzed(ctx, "proj-1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetProject(ctx, "proj-1"); got.LastAnalyzedAt == nil {
		t.Error("last analyzed not set")
	}

	if missing, err := s.GetProject(ctx, "nope"); missing != nil || err != nil {
		t.Errorf("missing = %+v, %v", missing, err)
	}

	if err := s.SyncCommits(ctx, "proj-1", []domain.Commit{{Hash: "abc", Message: "m", Author: "a", Timestamp: "now"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteProject(ctx, "proj-1"); err != nil {
		t.Fatal(err)
	}
	if c, _, _ := s.FindCommit(ctx, "abc"); c != nil {
		t.Errorf("commit left after delete: %+v", c)
	}
}

func TestSyncKeepsReviewStatus(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := []domain.Commit{
		{Hash: "b2", Message: "second", Author: "dev", Timestamp: "1 hour ago"},
		{Hash: "a1", Message: "first", Author: "dev", Timestamp: "2 hours ago"},
	}
	if err := s.SyncCommits(ctx, "p", first); err != nil {
		t.Fatal(err)
	}
	d := &domain.DebriefResult{ID: "d1", CommitHash: "a1", Status: domain.StatusPending, CreatedAt: time.Now(),
		Gaps: []domain.Gap{{ID: "gap-1"}, {ID: "gap-2"}}}
	if err := s.SaveDebrief(ctx, "p", d); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.MarkReviewed(ctx, "d1"); !ok || err != nil {
		t.Fatalf("MarkReviewed = %v, %v", ok, err)
	}

	// A new commit arrives on top; a1 must stay reviewed
	next := append([]domain.Commit{{Hash: "c3", Message: "third", Author: "dev", Timestamp: "now"}}, first...)
	if err := s.SyncCommits(ctx, "p", next); err != nil {
		t.Fatal(err)
	}
	pending, _ := s.ListCommits(ctx, "p", domain.StatusPending)
	reviewed, _ := s.ListCommits(ctx, "p", domain.StatusReviewed)
	if len(pending) != 2 || pending[0].Hash != "c3" || pending[1].Hash != "b2" {
		t.Errorf("pending = %+v", pending)
	}
	if len(reviewed) != 1 || reviewed[0].Hash != "a1" {
		t.Errorf("reviewed = %+v", reviewed)
	}

	got, err := s.DebriefByCommit(ctx, "a1")
	if err != nil || got == nil || got.Status != domain.StatusReviewed {
		t.Fatalf("debrief = %+v, %v", got, err)
	}
	if n, _ := s.GapCount(ctx, "p"); n != 2 {
		t.Errorf("gap count = %d", n)
	}
	if ok, _ := s.MarkReviewed(ctx, "missing"); ok {
		t.Error("unknown debrief reported as marked")
	}
	if c, projectID, _ := s.FindCommit(ctx, "b2"); c == nil || projectID != "p" {
		t.Errorf("FindCommit = %+v, %q", c, projectID)
	}
}

func TestResponsesKeepOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, text := range []string{"one", "two", "three"} {
		r := domain.CheckpointResponse{
			ID: text, DebriefID: "d1", QuestionID: "q-1", ResponseText: text,
			Mode: domain.ModeFreeText, CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if i > 0 {
			r.Evaluation = &domain.Evaluation{Score: i, KeyPointsCovered: []string{}, KeyPointsMissed: []string{}}
		}
		if err := s.InsertResponse(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	rs, err := s.ListResponses(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 3 || rs[0].ResponseText != "one" || rs[2].ResponseText != "three" {
		t.Fatalf("responses = %+v", rs)
	}
	if rs[0].Evaluation != nil || rs[2].Evaluation == nil || rs[2].Evaluation.Score != 2 {
		t.Errorf("evaluations = %+v / %+v", rs[0].Evaluation, rs[2].Evaluation)
	}
}

func TestNotesSearch(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	notes := []domain.KnowledgeNote{
		{ID: "n1", Title: "Goroutine Leaks", CategoryPath: "languages/go", Tags: []string{"concurrency"}, Content: "close your channels"},
		{ID: "n2", Title: "100% coverage", CategoryPath: "testing", Content: "myth"},
		{ID: "n3", Title: "Indexes", CategoryPath: "databases", Content: "b-trees"},
	}
	for i, n := range notes {
		n.FilePath = domain.NoteFilePath(n.CategoryPath, n.Title)
		n.CreatedAt = now.Add(time.Duration(i) * time.Second)
		n.UpdatedAt = n.CreatedAt
		if err := s.PutNote(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"   ", 3},
		{"CONCURRENCY", 1},
		{"%", 1},
		{"_", 0},
		{"tree", 1},
		{"curr", 1},
		{`"`, 0},
		{`","`, 0},
		{"[", 0},
		{"]", 0},
	}
	for _, tt := range tests {
		got, err := s.SearchNotes(ctx, tt.query)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.want {
			t.Errorf("SearchNotes(%q) = %d notes, want %d", tt.query, len(got), tt.want)
		}
	}

	if err := s.SaveEmbedding(ctx, "n1", []float64{0.1, 0.2}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteNote(ctx, "n1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.GetNote(ctx, "n1"); n != nil {
		t.Error("note survived delete")
	}
	if embs, _ := s.Embeddings(ctx); len(embs) != 0 {
		t.Errorf("embeddings = %v", embs)
	}
}

func TestSettingsDefaultsAndOverrides(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	settings, err := s.Settings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if settings != domain.DefaultSettings() {
		t.Errorf("settings = %+v", settings)
	}
	settings.Appearance.Theme = domain.ThemeLight
	if err := s.SaveSettings(ctx, settings); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Settings(ctx); got.Appearance.Theme != domain.ThemeLight {
		t.Errorf("theme = %q", got.Appearance.Theme)
	}

	if id, _ := s.ActiveProjectID(ctx); id != "" {
		t.Errorf("active = %q", id)
	}
	if err := s.SetActiveProjectID(ctx, "proj-1"); err != nil {
		t.Fatal(err)
	}
	if id, _ := s.ActiveProjectID(ctx); id != "proj-1" {
		t.Errorf("active = %q", id)
	}

	if err := s.SetSkillOverride(ctx, "react", SkillOverride{Enabled: true, AutoDetected: true}); err != nil {
		t.Fatal(err)
	}
	overrides, err := s.SkillOverrides(ctx)
	if err != nil || !overrides["react"].Enabled || !overrides["react"].AutoDetected {
		t.Errorf("overrides = %+v, %v", overrides, err)
	}
}
