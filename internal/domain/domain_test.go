package domain

import (
	"encoding/json"
	"testing"
)

func TestParseTheme(t *testing.T) {
	for in, ok := range map[string]bool{"dark": true, "light": true, "": false, "Dark": false, "solarized": false} {
		got, valid := ParseTheme(in)
		if valid != ok {
			t.Errorf("ParseTheme(%q) valid = %v, want %v", in, valid, ok)
		}
		if valid && string(got) != in {
			t.Errorf("ParseTheme(%q) = %q", in, got)
		}
	}
}

func TestSettingsPatchApply(t *testing.T) {
	base := DefaultSettings()
	model := "gpt-4o"
	auto := false
	depth := DepthDeep

	got := SettingsPatch{
		AI:        &AISettingsPatch{Model: &model},
		Analysis:  &AnalysisSettingsPatch{AnalysisDepth: &depth},
		Knowledge: &KnowledgeSettingsPatch{AutoGenerateNotes: &auto},
	}.Apply(base)

	if got.AI.Model != "gpt-4o" || got.AI.Provider != base.AI.Provider || got.AI.EndpointURL != base.AI.EndpointURL {
		t.Errorf("ai = %+v", got.AI)
	}
	if got.Analysis.AnalysisDepth != DepthDeep || got.Analysis.CheckpointMode != base.Analysis.CheckpointMode {
		t.Errorf("analysis = %+v", got.Analysis)
	}
	if got.Knowledge.AutoGenerateNotes || got.Knowledge.StoragePath != base.Knowledge.StoragePath {
		t.Errorf("knowledge = %+v", got.Knowledge)
	}
	if got.Project != base.Project || got.Appearance != base.Appearance {
		t.Error("untouched sections changed")
	}
	if base.AI.Model == "gpt-4o" {
		t.Error("Apply modified its input")
	}
}

func TestEmptyPatchIsIdentity(t *testing.T) {
	base := DefaultSettings()
	if got := (SettingsPatch{}).Apply(base); got != base {
		t.Errorf("got %+v", got)
	}
}

func TestClampScore(t *testing.T) {
	tests := map[int]int{-3: 0, 0: 0, 7: 7, 10: 10, 14: 10}
	for in, want := range tests {
		if got := ClampScore(in); got != want {
			t.Errorf("ClampScore(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestNoteFilePath(t *testing.T) {
	if got := NoteFilePath("concepts/security", "JWT"); got != "concepts/security/JWT.md" {
		t.Errorf("got %q", got)
	}
	if got := NoteFilePath("", "Loose"); got != "Loose.md" {
		t.Errorf("got %q", got)
	}
}

func TestDraftFromDebrief(t *testing.T) {
	proposed := KnowledgeBaseNote{Title: "Retries", Category: "concepts/reliability", Tags: []string{"http"}, Content: "Back off."}
	d := DraftFromDebrief(proposed)
	if d.ID != "" || d.Title != "Retries" || d.CategoryPath != "concepts/reliability" || d.Content != "Back off." {
		t.Errorf("draft = %+v", d)
	}
	if d.AutoGenerated == nil || !*d.AutoGenerated {
		t.Error("draft not marked auto-generated")
	}
	d.Tags[0] = "changed"
	if proposed.Tags[0] != "http" {
		t.Error("draft shares the tag slice")
	}
}

func TestDebriefQuestion(t *testing.T) {
	d := &DebriefResult{CheckpointQuestions: []CheckpointQuestion{{ID: "q-1", Question: "Why?"}}}
	if q := d.Question("q-1"); q == nil || q.Question != "Why?" {
		t.Errorf("q = %+v", q)
	}
	if d.Question("q-9") != nil {
		t.Error("unknown question found")
	}
}

func TestNoteDraftEncodesEmptyTags(t *testing.T) {
	raw, err := json.Marshal(NoteDraft{Title: "t", Tags: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	var back NoteDraft
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Tags == nil {
		t.Errorf("empty tags lost in %s", raw)
	}

	raw, _ = json.Marshal(NoteDraft{Title: "t"})
	back = NoteDraft{}
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Tags != nil {
		t.Errorf("nil tags decoded as %v", back.Tags)
	}
}
