package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pbaille/diffadvisor/internal/llm"
)

func TestClassify(t *testing.T) {
	var prompt string
	model := llm.ProviderFunc(func(ctx context.Context, p string, maxTokens int64) (string, error) {
		prompt = p
		return "```json\n{\"category\": \"/Concepts/ Error Handling/\", \"tags\": [\"Go\", \"error handling\", \"go\", \"\"]}\n```", nil
	})

	s, err := New(model).Classify(context.Background(), "Wrapping errors", "Use %w.", []string{"concepts/security"}, []string{"go"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Category != "concepts/error-handling" {
		t.Errorf("category = %q", s.Category)
	}
	if strings.Join(s.Tags, ",") != "go,error-handling" {
		t.Errorf("tags = %v", s.Tags)
	}
	if !strings.Contains(prompt, "- concepts/security") || !strings.Contains(prompt, "Title: Wrapping errors") {
		t.Errorf("prompt missing context:\n%s", prompt)
	}
}

func TestClassifyErrors(t *testing.T) {
	failing := llm.ProviderFunc(func(ctx context.Context, p string, maxTokens int64) (string, error) {
		return "", errors.New("rate limited")
	})
	if _, err := New(failing).Classify(context.Background(), "t", "c", nil, nil); err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("err = %v", err)
	}

	chatty := llm.ProviderFunc(func(ctx context.Context, p string, maxTokens int64) (string, error) {
		return "Sure! Here it is.", nil
	})
	if _, err := New(chatty).Classify(context.Background(), "t", "c", nil, nil); err == nil {
		t.Error("expected parse error")
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := map[string]string{
		"languages/go":       "languages/go",
		" Languages / Go ":   "languages/go",
		"//tools//docker//":  "tools/docker",
		"../etc/passwd":      "etc/passwd",
		"frameworks/Next.js": "frameworks/next.js",
		"":                   "",
	}
	for in, want := range tests {
		if got := normalizeCategory(in); got != want {
			t.Errorf("normalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
}
