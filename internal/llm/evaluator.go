package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
)

// Evaluator grades checkpoint answers
type Evaluator struct {
	provider Provider
}

func NewEvaluator(p Provider) *Evaluator {
	return &Evaluator{provider: p}
}

// Evaluate scores answer against q. A blank answer scores zero without a
// model call. The returned score is always within [MinScore, MaxScore].
func (e *Evaluator) Evaluate(ctx context.Context, q domain.CheckpointQuestion, answer string) (*domain.Evaluation, error) {
	if strings.TrimSpace(answer) == "" {
		return &domain.Evaluation{
			Score:            domain.MinScore,
			Feedback:         "No answer was given.",
			KeyPointsCovered: []string{},
			KeyPointsMissed:  splitKeyPoints(q.GoodAnswerIncludes),
		}, nil
	}

	resp, err := e.provider.Complete(ctx, buildEvaluatePrompt(q, answer), 1024)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	return parseEvaluation(resp)
}

func buildEvaluatePrompt(q domain.CheckpointQuestion, answer string) string {
	var sb strings.Builder

	sb.WriteString("Grade a developer's answer to a comprehension question about their own commit. Return JSON only.\n\n")
	fmt.Fprintf(&sb, "Question: %s\n", q.Question)
	if q.Concept != "" {
		fmt.Fprintf(&sb, "Concept: %s\n", q.Concept)
	}
	if q.GoodAnswerIncludes != "" {
		fmt.Fprintf(&sb, "A good answer includes: %s\n", q.GoodAnswerIncludes)
	}
	sb.WriteString("\nAnswer:\n")
	sb.WriteString(answer)
	sb.WriteString("\n\n")

	sb.WriteString(`Return a JSON object with this structure:
{"score": 0, "feedback": "", "key_points_covered": [""], "key_points_missed": [""]}

Rules:
- score is an integer from 0 to 10
- feedback is two or three sentences addressed to the developer

Return ONLY the JSON, no other text.`)

	return sb.String()
}

func parseEvaluation(resp string) (*domain.Evaluation, error) {
	resp = CleanJSON(resp)

	var ev domain.Evaluation
	if err := json.Unmarshal([]byte(resp), &ev); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}
	ev.Score = domain.ClampScore(ev.Score)
	if strings.TrimSpace(ev.Feedback) == "" {
		ev.Feedback = fmt.Sprintf("Scored %d out of %d.", ev.Score, domain.MaxScore)
	}
	if ev.KeyPointsCovered == nil {
		ev.KeyPointsCovered = []string{}
	}
	if ev.KeyPointsMissed == nil {
		ev.KeyPointsMissed = []string{}
	}
	return &ev, nil
}

func splitKeyPoints(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
