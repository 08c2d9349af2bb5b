// Package classifier files free-form content into the knowledge base by
// asking a model for a category path and tags.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pbaille/diffadvisor/internal/llm"
)

// Suggestion is where a note should live and how it should be tagged
type Suggestion struct {
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// Classifier handles content classification via a model provider
type Classifier struct {
	provider llm.Provider
}

func New(p llm.Provider) *Classifier {
	return &Classifier{provider: p}
}

// Classify suggests a category and tags for content. Existing categories and
// tags are offered to the model so it reuses them when they fit.
func (c *Classifier) Classify(ctx context.Context, title, content string, categories, tags []string) (*Suggestion, error) {
	resp, err := c.provider.Complete(ctx, buildPrompt(title, content, categories, tags), 512)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	return parseResponse(resp)
}

// maxContent bounds the excerpt sent for classification
const maxContent = 6000

func buildPrompt(title, content string, categories, tags []string) string {
	var sb strings.Builder

	sb.WriteString("Classify this content for a developer's knowledge base. Return JSON only.\n\n")
	fmt.Fprintf(&sb, "Title: %s\n\n", title)
	sb.WriteString("Content:\n")
	if len(content) > maxContent {
		content = content[:maxContent]
	}
	sb.WriteString(content)
	sb.WriteString("\n\n")

	writeList(&sb, "Existing categories (prefer reusing these when appropriate):", categories)
	writeList(&sb, "Existing tags (prefer reusing these when appropriate):", tags)

	sb.WriteString(`Return a JSON object with this structure:
{"category": "concepts/security", "tags": ["tag-name"]}

Rules:
- category is a slash-separated path of lowercase folders, at most three deep
- Top-level folders are usually concepts, languages, frameworks or tools
- Use lowercase, hyphenated tag names (e.g., "error-handling" not "Error Handling")
- Suggest 2-5 tags

Return ONLY the JSON, no other text.`)

	return sb.String()
}

func writeList(sb *strings.Builder, header string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(header)
	sb.WriteString("\n")
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

var unsafeSegment = regexp.MustCompile(`[^a-z0-9._-]+`)

func parseResponse(resp string) (*Suggestion, error) {
	resp = llm.CleanJSON(resp)

	var s Suggestion
	if err := json.Unmarshal([]byte(resp), &s); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}
	s.Category = normalizeCategory(s.Category)
	s.Tags = normalizeTags(s.Tags)
	return &s, nil
}

// normalizeCategory lowercases each folder and drops empty or unsafe ones
func normalizeCategory(category string) string {
	var parts []string
	for _, seg := range strings.Split(category, "/") {
		seg = strings.ToLower(strings.TrimSpace(seg))
		seg = strings.Trim(unsafeSegment.ReplaceAllString(strings.ReplaceAll(seg, " ", "-"), ""), ".-")
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/")
}

func normalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range tags {
		t = strings.ToLower(strings.Join(strings.Fields(t), "-"))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
