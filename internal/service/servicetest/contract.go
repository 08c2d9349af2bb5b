// Package servicetest holds behavioural contract suites for the service
// interfaces. Every backend variant runs the same suites from its own tests.
package servicetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/service"
)

// Fixture names seeded data the suites rely on
type Fixture struct {
	ProjectID   string
	KnownCommit string
	DebriefID   string
	QuestionID  string
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// RunProjectContract checks ProjectService. The factory must return a
// service with at least one project and an active project.
func RunProjectContract(t *testing.T, newSvc func(t *testing.T) service.ProjectService) {
	t.Run("lists projects with required fields", func(t *testing.T) {
		projects, err := newSvc(t).Projects(ctx(t))
		if err != nil {
			t.Fatal(err)
		}
		if len(projects) == 0 {
			t.Fatal("expected at least one project")
		}
		p := projects[0]
		if p.ID == "" || p.Name == "" || p.Path == "" {
			t.Errorf("project missing fields: %+v", p)
		}
	})

	t.Run("returns an active project", func(t *testing.T) {
		p, err := newSvc(t).ActiveProject(ctx(t))
		if err != nil {
			t.Fatal(err)
		}
		if p == nil || p.ID == "" {
			t.Fatalf("active project = %+v", p)
		}
	})

	t.Run("add, select and remove", func(t *testing.T) {
		svc := newSvc(t)
		c := ctx(t)
		added, err := svc.AddProject(c, "/tmp/work/new-service")
		if err != nil {
			t.Fatal(err)
		}
		if added.ID == "" || added.Name != "new-service" {
			t.Errorf("added = %+v", added)
		}
		if err := svc.SetActiveProject(c, added.ID); err != nil {
			t.Fatal(err)
		}
		active, err := svc.ActiveProject(c)
		if err != nil {
			t.Fatal(err)
		}
		if active == nil || active.ID != added.ID {
			t.Errorf("active = %+v, want %s", active, added.ID)
		}
		if err := svc.RemoveProject(c, added.ID); err != nil {
			t.Fatal(err)
		}
		projects, err := svc.Projects(c)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range projects {
			if p.ID == added.ID {
				t.Errorf("project %s still listed after removal", added.ID)
			}
		}
	})
}

// RunDebriefContract checks DebriefService against fx.KnownCommit, which
// must be pending and have a debrief.
func RunDebriefContract(t *testing.T, newSvc func(t *testing.T) service.DebriefService, fx Fixture) {
	t.Run("pending commits are all pending", func(t *testing.T) {
		commits, err := newSvc(t).PendingCommits(ctx(t), fx.ProjectID)
		if err != nil {
			t.Fatal(err)
		}
		if len(commits) == 0 {
			t.Fatal("expected pending commits")
		}
		for _, c := range commits {
			if c.Status != domain.StatusPending {
				t.Errorf("commit %s has status %s", c.Hash, c.Status)
			}
		}
	})

	t.Run("reviewed commits are all reviewed", func(t *testing.T) {
		commits, err := newSvc(t).ReviewedCommits(ctx(t), fx.ProjectID)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range commits {
			if c.Status != domain.StatusReviewed {
				t.Errorf("commit %s has status %s", c.Hash, c.Status)
			}
		}
	})

	t.Run("debrief for a known commit", func(t *testing.T) {
		d, err := newSvc(t).DebriefByCommit(ctx(t), fx.KnownCommit)
		if err != nil {
			t.Fatal(err)
		}
		if d == nil {
			t.Fatal("expected a debrief")
		}
		if d.CommitHash != fx.KnownCommit {
			t.Errorf("commit hash = %q", d.CommitHash)
		}
		if d.ArchitecturalSummary == "" {
			t.Error("empty architectural summary")
		}
		if len(d.Gaps) == 0 || len(d.CheckpointQuestions) == 0 {
			t.Errorf("gaps = %d, questions = %d", len(d.Gaps), len(d.CheckpointQuestions))
		}
	})

	t.Run("no debrief for an unknown commit", func(t *testing.T) {
		d, err := newSvc(t).DebriefByCommit(ctx(t), "__nonexistent__")
		if err != nil {
			t.Fatal(err)
		}
		if d != nil {
			t.Errorf("expected nil, got %+v", d)
		}
	})

	t.Run("run debrief fails for an unknown commit", func(t *testing.T) {
		_, err := newSvc(t).RunDebrief(ctx(t), "__nonexistent__")
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, service.ErrUnknownCommit) && !strings.Contains(err.Error(), service.ErrUnknownCommit.Error()) {
			t.Errorf("err = %v, want unknown commit", err)
		}
	})

	t.Run("diff content for a known commit", func(t *testing.T) {
		diff, err := newSvc(t).DiffContent(ctx(t), fx.KnownCommit)
		if err != nil {
			t.Fatal(err)
		}
		if diff == "" {
			t.Error("empty diff")
		}
	})

	t.Run("gap count is positive", func(t *testing.T) {
		n, err := newSvc(t).GapCount(ctx(t), fx.ProjectID)
		if err != nil {
			t.Fatal(err)
		}
		if n <= 0 {
			t.Errorf("gap count = %d", n)
		}
	})

	t.Run("gaps are well formed", func(t *testing.T) {
		d, err := newSvc(t).RunDebrief(ctx(t), fx.KnownCommit)
		if err != nil {
			t.Fatal(err)
		}
		ids := map[string]bool{}
		for _, g := range d.Gaps {
			if !g.Severity.Valid() {
				t.Errorf("gap %s severity %q", g.ID, g.Severity)
			}
			if !g.Category.Valid() {
				t.Errorf("gap %s category %q", g.ID, g.Category)
			}
			if g.Description == "" || g.Suggestion == "" {
				t.Errorf("gap %s missing description or suggestion", g.ID)
			}
			if ids[g.ID] {
				t.Errorf("duplicate gap id %s", g.ID)
			}
			ids[g.ID] = true
		}
	})

	t.Run("mark reviewed moves the commit", func(t *testing.T) {
		svc := newSvc(t)
		c := ctx(t)
		d, err := svc.RunDebrief(c, fx.KnownCommit)
		if err != nil {
			t.Fatal(err)
		}
		if err := svc.MarkReviewed(c, d.ID); err != nil {
			t.Fatal(err)
		}
		pending, err := svc.PendingCommits(c, fx.ProjectID)
		if err != nil {
			t.Fatal(err)
		}
		for _, cm := range pending {
			if cm.Hash == fx.KnownCommit {
				t.Errorf("%s still pending", fx.KnownCommit)
			}
		}
		reviewed, err := svc.ReviewedCommits(c, fx.ProjectID)
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, cm := range reviewed {
			if cm.Hash == fx.KnownCommit && cm.Status == domain.StatusReviewed {
				found = true
			}
		}
		if !found {
			t.Errorf("%s not among reviewed commits", fx.KnownCommit)
		}
		again, err := svc.DebriefByCommit(c, fx.KnownCommit)
		if err != nil {
			t.Fatal(err)
		}
		if again == nil || again.Status != domain.StatusReviewed {
			t.Errorf("debrief status = %+v", again)
		}
	})
}

// RunCheckpointContract checks CheckpointService for fx.DebriefID / fx.QuestionID
func RunCheckpointContract(t *testing.T, newSvc func(t *testing.T) service.CheckpointService, fx Fixture) {
	t.Run("evaluation has required fields", func(t *testing.T) {
		eval, err := newSvc(t).SubmitCheckpoint(ctx(t), fx.DebriefID, fx.QuestionID, "Tokens stay valid until they expire")
		if err != nil {
			t.Fatal(err)
		}
		if eval.Score < domain.MinScore || eval.Score > domain.MaxScore {
			t.Errorf("score %d out of range", eval.Score)
		}
		if eval.Feedback == "" {
			t.Error("empty feedback")
		}
		if eval.KeyPointsCovered == nil || eval.KeyPointsMissed == nil {
			t.Error("key point lists must be non-nil")
		}
	})

	t.Run("responses are persisted in submission order", func(t *testing.T) {
		svc := newSvc(t)
		c := ctx(t)
		answers := []string{
			fmt.Sprintf("first-%d", time.Now().UnixNano()),
			fmt.Sprintf("second-%d", time.Now().UnixNano()),
		}
		for _, a := range answers {
			if _, err := svc.SubmitCheckpoint(c, fx.DebriefID, fx.QuestionID, a); err != nil {
				t.Fatal(err)
			}
		}
		responses, err := svc.Responses(c, fx.DebriefID)
		if err != nil {
			t.Fatal(err)
		}
		if len(responses) < 2 {
			t.Fatalf("responses = %d", len(responses))
		}
		tail := responses[len(responses)-2:]
		for i, r := range tail {
			if r.ResponseText != answers[i] {
				t.Errorf("response %d = %q, want %q", i, r.ResponseText, answers[i])
			}
			if r.Evaluation == nil {
				t.Errorf("response %d has no evaluation", i)
			}
		}
	})
}

// RunKnowledgeContract checks KnowledgeService. The factory must return a
// service with at least one note.
func RunKnowledgeContract(t *testing.T, newSvc func(t *testing.T) service.KnowledgeService) {
	t.Run("empty query returns every note", func(t *testing.T) {
		svc := newSvc(t)
		c := ctx(t)
		all, err := svc.Notes(c)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) == 0 {
			t.Fatal("expected seeded notes")
		}
		for _, q := range []string{"", "   "} {
			found, err := svc.SearchNotes(c, q)
			if err != nil {
				t.Fatal(err)
			}
			if len(found) != len(all) {
				t.Errorf("SearchNotes(%q) = %d notes, want %d", q, len(found), len(all))
			}
		}
	})

	t.Run("unknown note is nil", func(t *testing.T) {
		n, err := newSvc(t).Note(ctx(t), "__missing__")
		if err != nil {
			t.Fatal(err)
		}
		if n != nil {
			t.Errorf("expected nil, got %+v", n)
		}
	})

	t.Run("save inserts then updates", func(t *testing.T) {
		svc := newSvc(t)
		c := ctx(t)
		before, err := svc.Notes(c)
		if err != nil {
			t.Fatal(err)
		}

		created, err := svc.SaveNote(c, domain.NoteDraft{
			Title:        "Goroutine Leaks",
			CategoryPath: "languages/go",
			Content:      "# Goroutine Leaks\n\nBlocked senders never exit.",
			Tags:         []string{"go", "Concurrency"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if created.ID == "" || created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
			t.Errorf("created = %+v", created)
		}
		if created.FilePath != "languages/go/Goroutine Leaks.md" {
			t.Errorf("file path = %q", created.FilePath)
		}

		after, err := svc.Notes(c)
		if err != nil {
			t.Fatal(err)
		}
		if len(after) != len(before)+1 {
			t.Errorf("notes = %d, want %d", len(after), len(before)+1)
		}

		updated, err := svc.SaveNote(c, domain.NoteDraft{
			ID:           created.ID,
			Title:        created.Title,
			CategoryPath: created.CategoryPath,
			Content:      "rewritten",
		})
		if err != nil {
			t.Fatal(err)
		}
		if updated.ID != created.ID || updated.Content != "rewritten" {
			t.Errorf("updated = %+v", updated)
		}
		if len(updated.Tags) != 2 {
			t.Errorf("tags should survive an update without tags, got %v", updated.Tags)
		}
		if updated.UpdatedAt.Before(created.UpdatedAt) {
			t.Error("updated_at went backwards")
		}

		got, err := svc.Note(c, created.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.Content != "rewritten" {
			t.Errorf("Note = %+v", got)
		}

		found, err := svc.SearchNotes(c, "CONCURRENCY")
		if err != nil {
			t.Fatal(err)
		}
		if len(found) != 1 || found[0].ID != created.ID {
			t.Errorf("tag search = %+v", found)
		}
	})

	t.Run("save clears tags with an empty list", func(t *testing.T) {
		svc := newSvc(t)
		c := ctx(t)
		n, err := svc.SaveNote(c, domain.NoteDraft{Title: "Tagged", CategoryPath: "tmp", Content: "x", Tags: []string{"go"}})
		if err != nil {
			t.Fatal(err)
		}
		cleared, err := svc.SaveNote(c, domain.NoteDraft{ID: n.ID, Title: n.Title, CategoryPath: n.CategoryPath, Content: n.Content, Tags: []string{}})
		if err != nil {
			t.Fatal(err)
		}
		if len(cleared.Tags) != 0 {
			t.Errorf("tags = %v, want none", cleared.Tags)
		}
		got, err := svc.Note(c, n.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || len(got.Tags) != 0 {
			t.Errorf("stored note = %+v", got)
		}
	})

	t.Run("search matches tag values, not their encoding", func(t *testing.T) {
		svc := newSvc(t)
		c := ctx(t)
		var added []string
		for _, tags := range [][]string{{"go"}, {"x y"}} {
			n, err := svc.SaveNote(c, domain.NoteDraft{Title: "Plain " + tags[0], CategoryPath: "tmp", Content: "plain", Tags: tags})
			if err != nil {
				t.Fatal(err)
			}
			added = append(added, n.ID)
		}
		all, err := svc.Notes(c)
		if err != nil {
			t.Fatal(err)
		}
		for _, q := range []string{`"`, `","`, "[", "]", "x y"} {
			want := map[string]bool{}
			for _, n := range all {
				if service.MatchNote(n, q) {
					want[n.ID] = true
				}
			}
			found, err := svc.SearchNotes(c, q)
			if err != nil {
				t.Fatal(err)
			}
			got := map[string]bool{}
			for _, n := range found {
				got[n.ID] = true
			}
			if len(got) != len(want) {
				t.Errorf("SearchNotes(%q) = %d notes, want %d", q, len(got), len(want))
			}
			for id := range want {
				if !got[id] {
					t.Errorf("SearchNotes(%q) missed %s", q, id)
				}
			}
			if q != "x y" && (got[added[0]] || got[added[1]]) {
				t.Errorf("SearchNotes(%q) matched a note by tag encoding", q)
			}
		}
	})

	t.Run("save with unknown id inserts", func(t *testing.T) {
		svc := newSvc(t)
		c := ctx(t)
		n, err := svc.SaveNote(c, domain.NoteDraft{ID: "ext-42", Title: "External", CategoryPath: "imports", Content: "x"})
		if err != nil {
			t.Fatal(err)
		}
		got, err := svc.Note(c, n.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil {
			t.Fatal("inserted note not found")
		}
	})

	t.Run("save rejects a missing title", func(t *testing.T) {
		if _, err := newSvc(t).SaveNote(ctx(t), domain.NoteDraft{Content: "x", CategoryPath: "a"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("delete removes the note", func(t *testing.T) {
		svc := newSvc(t)
		c := ctx(t)
		n, err := svc.SaveNote(c, domain.NoteDraft{Title: "Temp", CategoryPath: "tmp", Content: "bye"})
		if err != nil {
			t.Fatal(err)
		}
		if err := svc.DeleteNote(c, n.ID); err != nil {
			t.Fatal(err)
		}
		got, err := svc.Note(c, n.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("note %s still present", n.ID)
		}
	})
}

// RunSettingsContract checks SettingsService. The factory must return a
// service with at least one skill.
func RunSettingsContract(t *testing.T, newSvc func(t *testing.T) service.SettingsService) {
	t.Run("settings have every section", func(t *testing.T) {
		s, err := newSvc(t).Settings(ctx(t))
		if err != nil {
			t.Fatal(err)
		}
		if s.AI.Provider == "" || s.Analysis.CheckpointMode == "" || s.Appearance.Theme == "" {
			t.Errorf("settings incomplete: %+v", s)
		}
	})

	t.Run("update merges a partial", func(t *testing.T) {
		svc := newSvc(t)
		c := ctx(t)
		before, err := svc.Settings(c)
		if err != nil {
			t.Fatal(err)
		}
		light := domain.ThemeLight
		after, err := svc.UpdateSettings(c, domain.SettingsPatch{
			Appearance: &domain.AppearanceSettingsPatch{Theme: &light},
		})
		if err != nil {
			t.Fatal(err)
		}
		if after.Appearance.Theme != domain.ThemeLight {
			t.Errorf("theme = %q", after.Appearance.Theme)
		}
		if after.Appearance.DebriefLanguage != before.Appearance.DebriefLanguage {
			t.Error("untouched field in patched section changed")
		}
		if after.AI != before.AI {
			t.Error("untouched section changed")
		}
		again, err := svc.Settings(c)
		if err != nil {
			t.Fatal(err)
		}
		if *again != *after {
			t.Errorf("stored settings differ from update response")
		}
	})

	t.Run("toggle skill", func(t *testing.T) {
		svc := newSvc(t)
		c := ctx(t)
		list, err := svc.Skills(c)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) == 0 {
			t.Fatal("expected skills")
		}
		target := list[0]
		if err := svc.ToggleSkill(c, target.ID, !target.Enabled); err != nil {
			t.Fatal(err)
		}
		list, err = svc.Skills(c)
		if err != nil {
			t.Fatal(err)
		}
		for _, sk := range list {
			if sk.ID == target.ID && sk.Enabled == target.Enabled {
				t.Errorf("skill %s not toggled", sk.ID)
			}
		}
	})

	t.Run("connection test returns a result", func(t *testing.T) {
		res, err := newSvc(t).TestConnection(ctx(t))
		if err != nil {
			t.Fatal(err)
		}
		if res == nil || res.Message == "" {
			t.Errorf("result = %+v", res)
		}
	})
}
