package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/gitlog"
	"github.com/pbaille/diffadvisor/internal/llm"
	"github.com/pbaille/diffadvisor/internal/service"
	"github.com/pbaille/diffadvisor/internal/service/servicetest"
	"github.com/pbaille/diffadvisor/internal/store"
)

const generatedDebrief = `{
  "architectural_summary": "Adds an entry point.",
  "patterns_identified": ["main package"],
  "gaps": [
    {"severity": "urgent", "category": "style", "description": "No flags", "suggestion": "Parse flags"}
  ],
  "checkpoint_questions": [
    {"question": "What runs first?", "concept": "entry points", "good_answer_includes": "main, init"}
  ],
  "knowledge_base_notes": [
    {"title": "Go Entry Points", "category": "/languages/go/", "tags": ["go"], "content": "main runs after init"}
  ]
}`

const gradedAnswer = "```json\n" + `{"score": 14, "feedback": "Covers expiry.", "key_points_covered": ["expiry"], "key_points_missed": ["revocation"]}` + "\n```"

// fakeModel answers by prompt kind
func fakeModel(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	switch {
	case strings.Contains(prompt, "Grade"):
		return gradedAnswer, nil
	case strings.Contains(prompt, "reviewing a commit"):
		return generatedDebrief, nil
	case strings.Contains(prompt, "Classify this content"):
		return `{"category": "languages/go", "tags": ["context", "imported"]}`, nil
	default:
		return "ok", nil
	}
}

func fakeProviders(ai domain.AISettings) (llm.Provider, error) {
	return llm.ProviderFunc(fakeModel), nil
}

type repo struct {
	dir     string
	newest  string
	initial string
}

func initRepo(t *testing.T) repo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-c", "user.name=dev", "-c", "user.email=dev@example.com"}, args...)...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	git("init", "-q")
	write("main.go", "package main\n")
	write("package.json", `{"dependencies": {"express": "^4.18.0"}}`)
	write("server.js", "const express = require('express')\n")
	git("add", ".")
	git("commit", "-q", "-m", "initial")
	write("main.go", "package main\n\nfunc main() {}\n")
	git("commit", "-q", "-am", "add main")

	commits, err := gitlog.Log(context.Background(), dir, 10)
	if err != nil || len(commits) != 2 {
		t.Fatalf("log = %+v, %v", commits, err)
	}
	return repo{dir: dir, newest: commits[0].Hash, initial: commits[1].Hash}
}

// seeded builds a backend over a fresh database holding one active project
// for r, its synced commits, a stored debrief of the newest commit and a note
func seeded(t *testing.T, r repo) *Backend {
	t.Helper()
	ctx := context.Background()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	b, err := New(Options{Store: st, Providers: fakeProviders})
	if err != nil {
		t.Fatal(err)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(st.InsertProject(ctx, domain.Project{ID: "proj-1", Name: "repo", Path: r.dir, CreatedAt: time.Now()}))
	must(st.SetActiveProjectID(ctx, "proj-1"))
	commits, err := gitlog.Log(ctx, r.dir, 10)
	must(err)
	must(st.SyncCommits(ctx, "proj-1", commits))
	must(st.SaveDebrief(ctx, "proj-1", &domain.DebriefResult{
		ID:                   "debrief-1",
		CommitHash:           r.newest,
		ArchitecturalSummary: "Adds main.",
		PatternsIdentified:   []string{},
		DecisionsMade:        []domain.Decision{},
		Gaps: []domain.Gap{
			{ID: "gap-1", Severity: domain.SeverityWarning, Category: domain.GapReliability, Description: "No tests", Suggestion: "Add a test"},
			{ID: "gap-2", Severity: domain.SeverityInfo, Category: domain.GapMaintainability, Description: "Empty main", Suggestion: "Document intent"},
		},
		CheckpointQuestions: []domain.CheckpointQuestion{
			{ID: "q-1", Question: "Why is main empty?", Concept: "scaffolding", GoodAnswerIncludes: "placeholder, build"},
		},
		KnowledgeBaseNotes: []domain.KnowledgeBaseNote{},
		SkillsUsed:         []string{},
		Status:             domain.StatusPending,
		CreatedAt:          time.Now(),
	}))
	_, err = b.SaveNote(ctx, domain.NoteDraft{Title: "JWT Expiry", CategoryPath: "concepts/security", Content: "Tokens expire.", Tags: []string{"auth"}})
	must(err)
	return b
}

func TestContracts(t *testing.T) {
	r := initRepo(t)
	fx := servicetest.Fixture{ProjectID: "proj-1", KnownCommit: r.newest, DebriefID: "debrief-1", QuestionID: "q-1"}

	t.Run("projects", func(t *testing.T) {
		servicetest.RunProjectContract(t, func(t *testing.T) service.ProjectService { return seeded(t, r) })
	})
	t.Run("debriefs", func(t *testing.T) {
		servicetest.RunDebriefContract(t, func(t *testing.T) service.DebriefService { return seeded(t, r) }, fx)
	})
	t.Run("checkpoint", func(t *testing.T) {
		servicetest.RunCheckpointContract(t, func(t *testing.T) service.CheckpointService { return seeded(t, r) }, fx)
	})
	t.Run("knowledge", func(t *testing.T) {
		servicetest.RunKnowledgeContract(t, func(t *testing.T) service.KnowledgeService { return seeded(t, r) })
	})
	t.Run("settings", func(t *testing.T) {
		servicetest.RunSettingsContract(t, func(t *testing.T) service.SettingsService { return seeded(t, r) })
	})
}

func TestRunDebriefGeneratesAndStores(t *testing.T) {
	r := initRepo(t)
	b := seeded(t, r)
	ctx := context.Background()

	d, err := b.RunDebrief(ctx, r.initial)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(d.ID, "debrief-") || d.CommitHash != r.initial || d.Status != domain.StatusPending {
		t.Errorf("identity = %s %s %s", d.ID, d.CommitHash, d.Status)
	}
	g := d.Gaps[0]
	if g.ID != "gap-1" || g.Severity != domain.SeverityInfo || g.Category != domain.GapMaintainability {
		t.Errorf("gap not normalized: %+v", g)
	}
	if len(d.SkillsUsed) == 0 {
		t.Error("expected enabled skills to be recorded")
	}

	again, err := b.RunDebrief(ctx, r.initial)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != d.ID {
		t.Errorf("second run generated %s, want stored %s", again.ID, d.ID)
	}

	p, err := b.ActiveProject(ctx)
	if err != nil || p.LastAnalyzedAt == nil {
		t.Errorf("project not touched: %+v, %v", p, err)
	}

	notes, err := b.SearchNotes(ctx, "entry points")
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || !notes[0].AutoGenerated || notes[0].FilePath != "languages/go/Go Entry Points.md" {
		t.Fatalf("auto notes = %+v", notes)
	}
	if notes[0].ProjectID == nil || *notes[0].ProjectID != "proj-1" {
		t.Errorf("auto note project = %v", notes[0].ProjectID)
	}
}

func TestRunDebriefProviderFailure(t *testing.T) {
	r := initRepo(t)
	b := seeded(t, r)
	b.providers = func(domain.AISettings) (llm.Provider, error) {
		return llm.ProviderFunc(func(context.Context, string, int64) (string, error) {
			return "", errors.New("overloaded")
		}), nil
	}
	_, err := b.RunDebrief(context.Background(), r.initial)
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("err = %v", err)
	}
	d, err := b.DebriefByCommit(context.Background(), r.initial)
	if err != nil || d != nil {
		t.Errorf("failed run stored a debrief: %+v, %v", d, err)
	}
}

func TestSubmitCheckpointRecordsResponse(t *testing.T) {
	r := initRepo(t)
	b := seeded(t, r)
	ctx := context.Background()

	eval, err := b.SubmitCheckpoint(ctx, "debrief-1", "q-1", "It is a placeholder")
	if err != nil {
		t.Fatal(err)
	}
	if eval.Score != domain.MaxScore {
		t.Errorf("score = %d, want clamped %d", eval.Score, domain.MaxScore)
	}
	responses, err := b.Responses(ctx, "debrief-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(responses) != 1 {
		t.Fatalf("responses = %d", len(responses))
	}
	got := responses[0]
	if got.QuestionText != "Why is main empty?" || got.Mode != domain.ModeFreeText || got.Evaluation == nil {
		t.Errorf("response = %+v", got)
	}

	if _, err := b.SubmitCheckpoint(ctx, "debrief-1", "q-9", "x"); err == nil {
		t.Error("expected unknown question error")
	}
	if _, err := b.SubmitCheckpoint(ctx, "debrief-9", "q-1", "x"); err == nil {
		t.Error("expected unknown debrief error")
	}
}

func TestMarkReviewedUnknownDebrief(t *testing.T) {
	b := seeded(t, initRepo(t))
	if err := b.MarkReviewed(context.Background(), "debrief-404"); err == nil {
		t.Error("expected error")
	}
}

func TestAddProjectDetectsSkills(t *testing.T) {
	r := initRepo(t)
	b := seeded(t, r)
	ctx := context.Background()

	p, err := b.AddProject(ctx, r.dir+"/")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != filepath.Base(r.dir) {
		t.Errorf("name = %q", p.Name)
	}
	if p.Language != "JavaScript" || len(p.Frameworks) == 0 {
		t.Errorf("project = %+v", p)
	}
	list, err := b.Skills(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, sk := range list {
		if sk.ID == "nodejs-express" && (!sk.Enabled || !sk.AutoDetected) {
			t.Errorf("express skill = %+v", sk)
		}
	}
}

func TestRemoveActiveProject(t *testing.T) {
	b := seeded(t, initRepo(t))
	ctx := context.Background()
	if err := b.RemoveProject(ctx, "proj-1"); err != nil {
		t.Fatal(err)
	}
	p, err := b.ActiveProject(ctx)
	if err != nil || p != nil {
		t.Errorf("active = %+v, %v", p, err)
	}
}

func TestConnectionFailureIsAResult(t *testing.T) {
	b := seeded(t, initRepo(t))
	b.providers = func(domain.AISettings) (llm.Provider, error) {
		return nil, errors.New("api key is required")
	}
	res, err := b.TestConnection(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || !strings.Contains(res.Message, "api key") {
		t.Errorf("result = %+v", res)
	}
}

type fixedEmbedder map[string][]float64

func (f fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		title, _, _ := strings.Cut(text, "\n")
		out[i] = f[title]
	}
	return out, nil
}

func TestRelatedNotes(t *testing.T) {
	b := seeded(t, initRepo(t))
	b.embedder = fixedEmbedder{
		"Channels":   {1, 0},
		"Goroutines": {0.9, 0.1},
		"CSS Grid":   {0, 1},
	}
	ctx := context.Background()

	ids := map[string]string{}
	for _, title := range []string{"Channels", "Goroutines", "CSS Grid"} {
		n, err := b.SaveNote(ctx, domain.NoteDraft{Title: title, CategoryPath: "topics"})
		if err != nil {
			t.Fatal(err)
		}
		ids[title] = n.ID
	}

	related, err := b.RelatedNotes(ctx, ids["Channels"], 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(related) != 1 || related[0].Title != "Goroutines" {
		t.Errorf("related = %+v", related)
	}

	if err := b.DeleteNote(ctx, ids["Goroutines"]); err != nil {
		t.Fatal(err)
	}
	related, err = b.RelatedNotes(ctx, ids["Channels"], 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(related) != 1 || related[0].Title != "CSS Grid" {
		t.Errorf("related after delete = %+v", related)
	}

	none, err := b.RelatedNotes(ctx, "__missing__", 3)
	if err != nil || len(none) != 0 {
		t.Errorf("unknown note = %+v, %v", none, err)
	}
}

func TestImportURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Context: Cancellation</title></head><body><p>Always pass ctx.</p></body></html>`))
	}))
	defer srv.Close()

	b := seeded(t, initRepo(t))
	n, err := b.ImportURL(context.Background(), srv.URL, "/imports/go/")
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != "Context - Cancellation" || n.CategoryPath != "imports/go" {
		t.Errorf("note = %+v", n)
	}
	if !strings.Contains(n.Content, "Always pass ctx.") || !strings.Contains(n.Content, srv.URL) {
		t.Errorf("content = %q", n.Content)
	}
}

func TestImportURLClassifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Context</title></head><body><p>Cancel early.</p></body></html>`))
	}))
	defer srv.Close()

	b := seeded(t, initRepo(t))
	n, err := b.ImportURL(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	if n.CategoryPath != "languages/go" || strings.Join(n.Tags, ",") != "imported,context" {
		t.Errorf("note = %+v", n)
	}

	// without a usable model the page still lands under imports
	b.providers = func(domain.AISettings) (llm.Provider, error) { return nil, errors.New("no key") }
	n, err = b.ImportURL(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	if n.CategoryPath != "imports" || strings.Join(n.Tags, ",") != "imported" {
		t.Errorf("note = %+v", n)
	}
}

func TestProjectName(t *testing.T) {
	tests := map[string]string{
		"/tmp/work/new-service":  "new-service",
		"/tmp/work/new-service/": "new-service",
		"repo":                   "repo",
		"/":                      "unknown",
		"":                       "unknown",
	}
	for in, want := range tests {
		if got := projectName(in); got != want {
			t.Errorf("projectName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeTitleCutsOnRunes(t *testing.T) {
	long := strings.Repeat("é", 200)
	got := sanitizeTitle(long)
	if !utf8.ValidString(got) {
		t.Fatalf("invalid utf-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != maxTitleRunes {
		t.Errorf("runes = %d, want %d", n, maxTitleRunes)
	}

	tests := map[string]string{
		"a/b: c":        "a-b - c",
		"   ":           "Imported page",
		"Go\tContexts ": "Go Contexts",
	}
	for in, want := range tests {
		if got := sanitizeTitle(in); got != want {
			t.Errorf("sanitizeTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
