package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/render"
	"github.com/spf13/cobra"
)

// resolveCommit expands an unambiguous hash prefix against the active
// project's commits. Anything else is passed through unchanged.
func resolveCommit(ctx context.Context, e *env, ref string) string {
	id, err := resolveProject(ctx, e, "")
	if err != nil {
		return ref
	}
	e.app.Debrief.LoadCommits(ctx, id)
	st := e.app.Debrief.Snapshot()

	all := make([]domain.Commit, 0, len(st.PendingCommits)+len(st.ReviewedCommits))
	all = append(all, st.PendingCommits...)
	all = append(all, st.ReviewedCommits...)

	var match string
	for _, c := range all {
		if c.Hash == ref {
			return ref
		}
		if strings.HasPrefix(c.Hash, ref) {
			if match != "" {
				return ref
			}
			match = c.Hash
		}
	}
	if match == "" {
		return ref
	}
	return match
}

// loadDebrief runs (or fetches) the debrief for ref through the debrief store
func loadDebrief(ctx context.Context, e *env, ref string) (*domain.DebriefResult, string, error) {
	hash := resolveCommit(ctx, e, ref)
	e.app.Debrief.LoadDebrief(ctx, hash)
	st := e.app.Debrief.Snapshot()
	if err := stateErr(st.Error); err != nil {
		return nil, "", err
	}
	if st.CurrentDebrief == nil {
		return nil, "", fmt.Errorf("no debrief for %s", ref)
	}
	return st.CurrentDebrief, st.DiffContent, nil
}

func debriefCmd() *cobra.Command {
	var (
		width    int
		showDiff bool
	)

	cmd := &cobra.Command{
		Use:   "debrief [commit]",
		Short: "Generate or show the debrief for a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			fmt.Print("Analyzing... ")
			d, diff, err := loadDebrief(cmd.Context(), e, args[0])
			if err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Println("done")

			fmt.Println(render.Markdown(render.Debrief(d), width, e.app.Theme.Theme()))
			if showDiff {
				fmt.Println(render.Markdown("```diff\n"+diff+"\n```", width, e.app.Theme.Theme()))
			}
			fmt.Printf("Debrief %s [%s]\n", d.ID, d.Status)
			return nil
		},
	}

	cmd.Flags().IntVarP(&width, "width", "w", 100, "wrap width")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "also print the diff")

	cmd.AddCommand(diffCmd())
	cmd.AddCommand(reviewedCmd())
	cmd.AddCommand(saveNotesCmd())
	return cmd
}

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [commit]",
		Short: "Print the raw diff of a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			diff, err := e.svcs.Debriefs.DiffContent(ctx, resolveCommit(ctx, e, args[0]))
			if err != nil {
				return err
			}
			fmt.Print(diff)
			return nil
		},
	}
}

func reviewedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reviewed [commit]",
		Short: "Mark a commit's debrief as reviewed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			hash := resolveCommit(ctx, e, args[0])
			d, err := e.svcs.Debriefs.DebriefByCommit(ctx, hash)
			if err != nil {
				return err
			}
			if d == nil {
				return fmt.Errorf("commit %s has no debrief yet; run 'diffadvisor debrief %s' first", args[0], args[0])
			}

			e.app.Debrief.MarkReviewed(ctx, d.ID)
			st := e.app.Debrief.Snapshot()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			fmt.Printf("%d pending, %d reviewed\n", len(st.PendingCommits), len(st.ReviewedCommits))
			return nil
		},
	}
}

func saveNotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save-notes [commit]",
		Short: "File the notes a debrief proposed into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			d, _, err := loadDebrief(ctx, e, args[0])
			if err != nil {
				return err
			}
			if len(d.KnowledgeBaseNotes) == 0 {
				fmt.Println("This debrief proposed no notes.")
				return nil
			}
			_, err = e.app.Knowledge.SaveDebriefNotes(ctx, d)
			return err
		},
	}
}

func checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint [commit] [question-id] [answer]",
		Short: "Answer a checkpoint question and get it graded",
		Long: `Answer one of the comprehension questions of a commit's debrief.
Without an answer, the questions are listed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			d, _, err := loadDebrief(ctx, e, args[0])
			if err != nil {
				return err
			}

			if len(args) < 3 {
				for _, q := range d.CheckpointQuestions {
					fmt.Printf("%s  %s\n", q.ID, q.Question)
				}
				return nil
			}

			q := d.Question(args[1])
			if q == nil {
				return fmt.Errorf("debrief %s has no question %s", d.ID, args[1])
			}
			fmt.Printf("Q: %s\n", q.Question)
			fmt.Print("Grading... ")
			eval, err := e.app.Debrief.SubmitAnswer(ctx, d.ID, q.ID, strings.Join(args[2:], " "))
			if err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Println("done")
			fmt.Println(render.Markdown(render.Evaluation(eval), 100, e.app.Theme.Theme()))
			return nil
		},
	}

	cmd.AddCommand(historyCmd())
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [commit]",
		Short: "Show recorded checkpoint answers for a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			d, err := e.svcs.Debriefs.DebriefByCommit(ctx, resolveCommit(ctx, e, args[0]))
			if err != nil {
				return err
			}
			if d == nil {
				return fmt.Errorf("commit %s has no debrief yet", args[0])
			}
			responses, err := e.svcs.Checkpoint.Responses(ctx, d.ID)
			if err != nil {
				return err
			}
			if len(responses) == 0 {
				fmt.Println("No answers recorded.")
				return nil
			}
			for _, r := range responses {
				score := "-"
				if r.Evaluation != nil {
					score = fmt.Sprintf("%d/%d", r.Evaluation.Score, domain.MaxScore)
				}
				fmt.Printf("%s  %-5s  %s\n", r.CreatedAt.Format("2006-01-02 15:04"), score, render.Truncate(r.QuestionText, 60))
				fmt.Printf("    %s\n", render.Truncate(r.ResponseText, 76))
			}
			return nil
		},
	}
}
