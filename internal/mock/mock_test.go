package mock

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/service"
	"github.com/pbaille/diffadvisor/internal/service/servicetest"
)

var fixture = servicetest.Fixture{
	ProjectID:   "proj-1",
	KnownCommit: KnownCommit,
	DebriefID:   "debrief-1",
	QuestionID:  "q-1",
}

func TestProjectContract(t *testing.T) {
	servicetest.RunProjectContract(t, func(*testing.T) service.ProjectService { return New() })
}

func TestDebriefContract(t *testing.T) {
	servicetest.RunDebriefContract(t, func(*testing.T) service.DebriefService { return New() }, fixture)
}

func TestCheckpointContract(t *testing.T) {
	servicetest.RunCheckpointContract(t, func(*testing.T) service.CheckpointService { return New() }, fixture)
}

func TestKnowledgeContract(t *testing.T) {
	servicetest.RunKnowledgeContract(t, func(*testing.T) service.KnowledgeService { return New() })
}

func TestSettingsContract(t *testing.T) {
	servicetest.RunSettingsContract(t, func(*testing.T) service.SettingsService { return New() })
}

func TestKnownCommitScenario(t *testing.T) {
	b := New()
	ctx := context.Background()

	d, err := b.RunDebrief(ctx, "a3f7c2d")
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || len(d.Gaps) < 1 || len(d.CheckpointQuestions) == 0 {
		t.Fatalf("debrief = %+v", d)
	}
	if !d.Gaps[0].Severity.Valid() {
		t.Errorf("first gap severity = %q", d.Gaps[0].Severity)
	}

	diff, err := b.DiffContent(ctx, "a3f7c2d")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(diff, "@@") {
		t.Errorf("diff starts with %q", diff[:10])
	}
}

func TestFailInjection(t *testing.T) {
	b := New()
	ctx := context.Background()
	boom := errors.New("boom")

	b.Fail("Notes", boom)
	if _, err := b.Notes(ctx); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	b.Fail("Notes", nil)
	if _, err := b.Notes(ctx); err != nil {
		t.Errorf("err after clear = %v", err)
	}
}

func TestConnectionDependsOnKey(t *testing.T) {
	b := New()
	ctx := context.Background()

	short := "abc"
	if _, err := b.UpdateSettings(ctx, domain.SettingsPatch{AI: &domain.AISettingsPatch{APIKey: &short}}); err != nil {
		t.Fatal(err)
	}
	res, err := b.TestConnection(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Errorf("short key should fail: %+v", res)
	}
}

func TestEmptyAnswerScoresZero(t *testing.T) {
	eval, err := New().SubmitCheckpoint(context.Background(), "debrief-1", "q-1", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if eval.Score != 0 {
		t.Errorf("score = %d, want 0", eval.Score)
	}
}

func TestResponseRecordsQuestionText(t *testing.T) {
	b := New()
	ctx := context.Background()
	if _, err := b.SubmitCheckpoint(ctx, "debrief-1", "q-2", "rate limit"); err != nil {
		t.Fatal(err)
	}
	rs, err := b.Responses(ctx, "debrief-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || !strings.Contains(rs[0].QuestionText, "10,000") {
		t.Errorf("responses = %+v", rs)
	}
	if rs[0].Mode != domain.ModeFreeText {
		t.Errorf("mode = %q", rs[0].Mode)
	}
}
