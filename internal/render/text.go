package render

import (
	"fmt"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/tree"
)

// Tree draws category folders with their note counts, and note titles
// under each folder when withNotes is set
func Tree(roots []*tree.Node, withNotes bool) string {
	var sb strings.Builder
	tree.Walk(roots, func(n *tree.Node, depth int) bool {
		indent := strings.Repeat("  ", depth)
		name := n.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(&sb, "%s%s/ (%d)\n", indent, name, tree.Count(n))
		if withNotes {
			for _, note := range n.Notes {
				fmt.Fprintf(&sb, "%s  - %s [%s]\n", indent, note.Title, note.ID)
			}
		}
		return true
	})
	return sb.String()
}

var severityMarks = map[domain.Severity]string{
	domain.SeverityCritical: "🔴",
	domain.SeverityWarning:  "🟡",
	domain.SeverityInfo:     "🔵",
}

// Debrief formats a debrief as markdown
func Debrief(d *domain.DebriefResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Debrief %s\n\n", d.CommitHash)
	fmt.Fprintf(&sb, "_Status: %s_\n\n", d.Status)
	sb.WriteString("## Summary\n\n")
	sb.WriteString(strings.TrimSpace(d.ArchitecturalSummary))
	sb.WriteString("\n\n")

	if len(d.PatternsIdentified) > 0 {
		sb.WriteString("## Patterns\n\n")
		for _, p := range d.PatternsIdentified {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
		sb.WriteString("\n")
	}

	if len(d.DecisionsMade) > 0 {
		sb.WriteString("## Decisions\n\n")
		for _, dec := range d.DecisionsMade {
			fmt.Fprintf(&sb, "- **%s**\n  - Alternatives: %s\n  - Tradeoffs: %s\n", dec.Decision, dec.Alternatives, dec.Tradeoffs)
		}
		sb.WriteString("\n")
	}

	if len(d.Gaps) > 0 {
		fmt.Fprintf(&sb, "## Gaps (%d)\n\n", len(d.Gaps))
		for _, g := range d.Gaps {
			fmt.Fprintf(&sb, "### %s %s · %s\n\n%s\n\n", severityMarks[g.Severity], g.Description, g.Category, g.Explanation)
			if g.Suggestion != "" {
				fmt.Fprintf(&sb, "**Suggestion:** %s\n\n", g.Suggestion)
			}
		}
	}

	if len(d.CheckpointQuestions) > 0 {
		sb.WriteString("## Checkpoint\n\n")
		for _, q := range d.CheckpointQuestions {
			fmt.Fprintf(&sb, "- `%s` %s _(%s)_\n", q.ID, q.Question, q.Concept)
		}
		sb.WriteString("\n")
	}

	if len(d.KnowledgeBaseNotes) > 0 {
		sb.WriteString("## Suggested notes\n\n")
		for _, n := range d.KnowledgeBaseNotes {
			fmt.Fprintf(&sb, "- %s (%s)\n", n.Title, n.Category)
		}
	}
	return sb.String()
}

// Evaluation formats a graded answer as markdown
func Evaluation(e *domain.Evaluation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Score: %d/%d**\n\n%s\n", e.Score, domain.MaxScore, e.Feedback)
	if len(e.KeyPointsCovered) > 0 {
		sb.WriteString("\nCovered:\n")
		for _, p := range e.KeyPointsCovered {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}
	if len(e.KeyPointsMissed) > 0 {
		sb.WriteString("\nMissed:\n")
		for _, p := range e.KeyPointsMissed {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}
	return sb.String()
}

// Truncate shortens s to n runes with an ellipsis
func Truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
