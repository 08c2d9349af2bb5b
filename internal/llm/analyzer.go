package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
)

// maxDiffChars bounds how much of a diff goes into one prompt
const maxDiffChars = 60000

// AnalyzeInput is everything the model sees about one commit
type AnalyzeInput struct {
	Commit       domain.Commit
	Diff         string
	SkillContext string
	Depth        domain.AnalysisDepth
	Language     domain.DebriefLanguage
}

// Analyzer turns a commit diff into a debrief
type Analyzer struct {
	provider Provider
}

func NewAnalyzer(p Provider) *Analyzer {
	return &Analyzer{provider: p}
}

// Analyze returns a debrief with every field populated. Identity fields
// (ID, CommitHash, Status, CreatedAt) are left to the caller.
func (a *Analyzer) Analyze(ctx context.Context, in AnalyzeInput) (*domain.DebriefResult, error) {
	resp, err := a.provider.Complete(ctx, buildAnalyzePrompt(in), 4096)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	return parseDebrief(resp)
}

func buildAnalyzePrompt(in AnalyzeInput) string {
	var sb strings.Builder

	sb.WriteString("You are reviewing a commit for a developer who wants to understand it deeply. Return JSON only.\n\n")
	fmt.Fprintf(&sb, "Commit %s: %s\n", in.Commit.Hash, in.Commit.Message)
	fmt.Fprintf(&sb, "Analysis depth: %s\n", orDefault(string(in.Depth), string(domain.DepthBalanced)))
	if in.Language != "" && in.Language != domain.LanguageAuto {
		fmt.Fprintf(&sb, "Write every text field in %s.\n", in.Language)
	}
	sb.WriteString("\n")

	if strings.TrimSpace(in.SkillContext) != "" {
		sb.WriteString("Review guidance:\n")
		sb.WriteString(in.SkillContext)
		sb.WriteString("\n\n")
	}

	diff := in.Diff
	if len(diff) > maxDiffChars {
		diff = diff[:maxDiffChars] + "\n[diff truncated]"
	}
	sb.WriteString("Diff:\n")
	sb.WriteString(diff)
	sb.WriteString("\n\n")

	sb.WriteString(`Return a JSON object with this structure:
{
  "architectural_summary": "markdown paragraph",
  "patterns_identified": ["pattern"],
  "decisions_made": [{"decision": "", "alternatives": "", "tradeoffs": ""}],
  "gaps": [{"severity": "critical|warning|info", "category": "security|performance|reliability|maintainability",
            "description": "", "explanation": "", "suggestion": ""}],
  "checkpoint_questions": [{"question": "", "concept": "", "good_answer_includes": ""}],
  "knowledge_base_notes": [{"title": "", "category": "slash/separated/path", "tags": [""], "links_to": [""], "content": "markdown"}]
}

Rules:
- Ask 2-4 checkpoint questions about concepts the author must understand
- Only report gaps you can point to in the diff
- Knowledge base notes explain reusable concepts, not this commit

Return ONLY the JSON, no other text.`)

	return sb.String()
}

func parseDebrief(resp string) (*domain.DebriefResult, error) {
	resp = CleanJSON(resp)

	var d domain.DebriefResult
	if err := json.Unmarshal([]byte(resp), &d); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}
	normalizeDebrief(&d)
	return &d, nil
}

// assignIDs keeps the first use of each supplied id and gives empty or
// repeated ones the next free prefix-N id
func assignIDs(prefix string, n int, id func(int) *string) {
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		p := id(i)
		*p = strings.TrimSpace(*p)
		if *p != "" {
			seen[*p] = true
		}
	}
	used := make(map[string]bool, n)
	next := 1
	for i := 0; i < n; i++ {
		p := id(i)
		if *p != "" && !used[*p] {
			used[*p] = true
			continue
		}
		for {
			candidate := fmt.Sprintf("%s-%d", prefix, next)
			next++
			if !seen[candidate] {
				*p = candidate
				seen[candidate] = true
				used[candidate] = true
				break
			}
		}
	}
}

// normalizeDebrief fills ids, replaces unknown enums and nil lists
func normalizeDebrief(d *domain.DebriefResult) {
	assignIDs("gap", len(d.Gaps), func(i int) *string { return &d.Gaps[i].ID })
	for i := range d.Gaps {
		g := &d.Gaps[i]
		if !g.Severity.Valid() {
			g.Severity = domain.SeverityInfo
		}
		if !g.Category.Valid() {
			g.Category = domain.GapMaintainability
		}
	}
	assignIDs("q", len(d.CheckpointQuestions), func(i int) *string { return &d.CheckpointQuestions[i].ID })
	for i := range d.KnowledgeBaseNotes {
		n := &d.KnowledgeBaseNotes[i]
		n.Category = strings.Trim(n.Category, "/")
		if n.Tags == nil {
			n.Tags = []string{}
		}
		if n.LinksTo == nil {
			n.LinksTo = []string{}
		}
	}
	if d.PatternsIdentified == nil {
		d.PatternsIdentified = []string{}
	}
	if d.DecisionsMade == nil {
		d.DecisionsMade = []domain.Decision{}
	}
	if d.Gaps == nil {
		d.Gaps = []domain.Gap{}
	}
	if d.CheckpointQuestions == nil {
		d.CheckpointQuestions = []domain.CheckpointQuestion{}
	}
	if d.KnowledgeBaseNotes == nil {
		d.KnowledgeBaseNotes = []domain.KnowledgeBaseNote{}
	}
	if d.SkillsUsed == nil {
		d.SkillsUsed = []string{}
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
