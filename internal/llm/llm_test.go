package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pbaille/diffadvisor/internal/domain"
)

func fixed(resp string) ProviderFunc {
	return func(ctx context.Context, prompt string, maxTokens int64) (string, error) {
		return resp, nil
	}
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"{}", "{}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  ```\n{}\n```  ", "{}"},
	}
	for _, tt := range tests {
		if got := CleanJSON(tt.in); got != tt.want {
			t.Errorf("CleanJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnalyzeNormalizes(t *testing.T) {
	resp := "```json\n" + `{
  "architectural_summary": "Adds a login endpoint.",
  "gaps": [
    {"severity": "critical", "category": "security", "description": "plaintext password"},
    {"severity": "urgent", "category": "style", "description": "odd enums"}
  ],
  "checkpoint_questions": [{"question": "Why hash passwords?"}],
  "knowledge_base_notes": [{"title": "Hashing", "category": "/concepts/security/", "content": "..."}]
}` + "\n```"

	d, err := NewAnalyzer(fixed(resp)).Analyze(context.Background(), AnalyzeInput{
		Commit: domain.Commit{Hash: "a3f7c2d", Message: "feat: login"},
		Diff:   "@@ -1 +1 @@",
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.ArchitecturalSummary == "" || len(d.Gaps) != 2 {
		t.Fatalf("debrief = %+v", d)
	}
	if d.Gaps[0].ID != "gap-1" || d.Gaps[1].ID != "gap-2" {
		t.Errorf("gap ids = %q %q", d.Gaps[0].ID, d.Gaps[1].ID)
	}
	if d.Gaps[1].Severity != domain.SeverityInfo || d.Gaps[1].Category != domain.GapMaintainability {
		t.Errorf("unknown enums not replaced: %+v", d.Gaps[1])
	}
	if d.CheckpointQuestions[0].ID != "q-1" {
		t.Errorf("question id = %q", d.CheckpointQuestions[0].ID)
	}
	if n := d.KnowledgeBaseNotes[0]; n.Category != "concepts/security" || n.Tags == nil {
		t.Errorf("note = %+v", n)
	}
	if d.PatternsIdentified == nil || d.DecisionsMade == nil || d.SkillsUsed == nil {
		t.Error("lists should never be nil")
	}
}

func TestParseDebriefUniqueIDs(t *testing.T) {
	tests := []struct {
		name      string
		resp      string
		gaps      []string
		questions []string
	}{
		{
			name:      "supplied id taken by a later blank",
			resp:      `{"gaps": [{"id": "gap-2"}, {}], "checkpoint_questions": [{"id": "q-2", "question": "A?"}, {"question": "B?"}]}`,
			gaps:      []string{"gap-2", "gap-1"},
			questions: []string{"q-2", "q-1"},
		},
		{
			name:      "repeated ids",
			resp:      `{"gaps": [{"id": "x"}, {"id": "x"}, {"id": "gap-1"}], "checkpoint_questions": [{"id": "q-1", "question": "A?"}, {"id": "q-1", "question": "B?"}]}`,
			gaps:      []string{"x", "gap-2", "gap-1"},
			questions: []string{"q-1", "q-2"},
		},
		{
			name:      "all blank",
			resp:      `{"gaps": [{}, {"id": " "}], "checkpoint_questions": [{"question": "A?"}, {"question": "B?"}]}`,
			gaps:      []string{"gap-1", "gap-2"},
			questions: []string{"q-1", "q-2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseDebrief(tt.resp)
			if err != nil {
				t.Fatal(err)
			}
			var gaps, questions []string
			for _, g := range d.Gaps {
				gaps = append(gaps, g.ID)
			}
			for _, q := range d.CheckpointQuestions {
				questions = append(questions, q.ID)
			}
			if strings.Join(gaps, ",") != strings.Join(tt.gaps, ",") {
				t.Errorf("gap ids = %v, want %v", gaps, tt.gaps)
			}
			if strings.Join(questions, ",") != strings.Join(tt.questions, ",") {
				t.Errorf("question ids = %v, want %v", questions, tt.questions)
			}
			for _, q := range d.CheckpointQuestions {
				if got := d.Question(q.ID); got == nil || got.Question != q.Question {
					t.Errorf("Question(%q) = %+v, want %q", q.ID, got, q.Question)
				}
			}
		})
	}
}

func TestAnalyzePromptCarriesContext(t *testing.T) {
	var prompt string
	p := ProviderFunc(func(ctx context.Context, pr string, maxTokens int64) (string, error) {
		prompt = pr
		return "{}", nil
	})
	_, err := NewAnalyzer(p).Analyze(context.Background(), AnalyzeInput{
		Commit:       domain.Commit{Hash: "e91b4f8", Message: "fix: pooling"},
		Diff:         strings.Repeat("+x\n", maxDiffChars),
		SkillContext: "## SQL Databases",
		Language:     domain.LanguagePortuguese,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"e91b4f8", "## SQL Databases", "portuguese", "[diff truncated]"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt misses %q", want)
		}
	}
}

func TestAnalyzeErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := ProviderFunc(func(context.Context, string, int64) (string, error) { return "", boom })
	if _, err := NewAnalyzer(failing).Analyze(context.Background(), AnalyzeInput{}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if _, err := NewAnalyzer(fixed("not json")).Analyze(context.Background(), AnalyzeInput{}); err == nil {
		t.Error("expected parse error")
	}
}

func TestEvaluateClampsScore(t *testing.T) {
	tests := []struct {
		resp string
		want int
	}{
		{`{"score": 14, "feedback": "great"}`, 10},
		{`{"score": -3, "feedback": "no"}`, 0},
		{`{"score": 6}`, 6},
	}
	q := domain.CheckpointQuestion{ID: "q-1", Question: "Why?"}
	for _, tt := range tests {
		ev, err := NewEvaluator(fixed(tt.resp)).Evaluate(context.Background(), q, "because")
		if err != nil {
			t.Fatal(err)
		}
		if ev.Score != tt.want {
			t.Errorf("%s: score = %d, want %d", tt.resp, ev.Score, tt.want)
		}
		if ev.Feedback == "" || ev.KeyPointsCovered == nil || ev.KeyPointsMissed == nil {
			t.Errorf("%s: evaluation = %+v", tt.resp, ev)
		}
	}
}

func TestEvaluateBlankAnswerSkipsModel(t *testing.T) {
	called := false
	p := ProviderFunc(func(context.Context, string, int64) (string, error) {
		called = true
		return "", nil
	})
	q := domain.CheckpointQuestion{GoodAnswerIncludes: "salting, cost factor"}
	ev, err := NewEvaluator(p).Evaluate(context.Background(), q, "   ")
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("model called for a blank answer")
	}
	if ev.Score != 0 || len(ev.KeyPointsMissed) != 2 {
		t.Errorf("evaluation = %+v", ev)
	}
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		ok   bool
	}{
		{"no key", Options{Provider: "anthropic", Model: "m"}, false},
		{"no model", Options{Provider: "anthropic", APIKey: "k"}, false},
		{"unknown", Options{Provider: "cohere", Model: "m", APIKey: "k"}, false},
		{"anthropic", Options{Provider: "anthropic", Model: "m", APIKey: "k"}, true},
		{"openai", Options{Provider: "openai", Model: "m", APIKey: "k", BaseURL: "http://localhost:1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if (err == nil) != tt.ok {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestPingTrims(t *testing.T) {
	out, err := Ping(context.Background(), fixed(" ok\n"))
	if err != nil || out != "ok" {
		t.Errorf("Ping = %q, %v", out, err)
	}
}
