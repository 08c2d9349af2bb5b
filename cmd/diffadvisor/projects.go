package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/render"
	"github.com/spf13/cobra"
)

func projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List monitored projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			e.app.Projects.LoadProjects(ctx)
			e.app.Projects.LoadActiveProject(ctx)
			st := e.app.Projects.Snapshot()
			if err := stateErr(st.Error); err != nil {
				return err
			}

			if len(st.Projects) == 0 {
				fmt.Println("No projects yet. Use 'diffadvisor projects add <path>' to add one.")
				return nil
			}
			for _, p := range st.Projects {
				mark := " "
				if st.ActiveProject != nil && st.ActiveProject.ID == p.ID {
					mark = "*"
				}
				fmt.Printf("%s %-12s %-20s %s\n", mark, p.ID, p.Name, p.Path)
				if p.Language != "" || len(p.Frameworks) > 0 {
					fmt.Printf("    %s %s\n", p.Language, strings.Join(p.Frameworks, ", "))
				}
			}
			return nil
		},
	}

	cmd.AddCommand(projectsAddCmd())
	cmd.AddCommand(projectsUseCmd())
	cmd.AddCommand(projectsRemoveCmd())
	return cmd
}

func projectsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [path]",
		Short: "Start monitoring a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			p, err := e.svcs.Projects.AddProject(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Printf("Added project: %s (%s)\n", p.Name, p.ID)
			if len(p.ActiveSkills) > 0 {
				fmt.Printf("Detected skills: %s\n", strings.Join(p.ActiveSkills, ", "))
			}
			return nil
		},
	}
}

func projectsUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use [id]",
		Short: "Make a project the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			e.app.Projects.SetActiveProject(cmd.Context(), args[0])
			st := e.app.Projects.Snapshot()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			if st.ActiveProject == nil {
				return fmt.Errorf("project %s not found", args[0])
			}
			fmt.Printf("Active project: %s\n", st.ActiveProject.Name)
			return nil
		},
	}
}

func projectsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove [id]",
		Aliases: []string{"rm"},
		Short:   "Stop monitoring a project",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.svcs.Projects.RemoveProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed project %s\n", args[0])
			return nil
		},
	}
}

// resolveProject returns the given id, or the active project's when empty
func resolveProject(ctx context.Context, e *env, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	e.app.Projects.LoadActiveProject(ctx)
	st := e.app.Projects.Snapshot()
	if err := stateErr(st.Error); err != nil {
		return "", err
	}
	if st.ActiveProject == nil {
		return "", errors.New("no active project; use 'diffadvisor projects use <id>' or --project")
	}
	return st.ActiveProject.ID, nil
}

func commitsCmd() *cobra.Command {
	var (
		projectID string
		reviewed  bool
	)

	cmd := &cobra.Command{
		Use:   "commits",
		Short: "List commits awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			id, err := resolveProject(ctx, e, projectID)
			if err != nil {
				return err
			}

			e.app.Debrief.LoadCommits(ctx, id)
			e.app.Debrief.LoadGapCount(ctx, id)
			st := e.app.Debrief.Snapshot()
			if err := stateErr(st.Error); err != nil {
				return err
			}

			commits, label := st.PendingCommits, "pending"
			if reviewed {
				commits, label = st.ReviewedCommits, "reviewed"
			}
			if len(commits) == 0 {
				fmt.Printf("No %s commits.\n", label)
			}
			for _, c := range commits {
				printCommit(c)
			}
			fmt.Printf("\n%d pending, %d reviewed, %d open gaps\n",
				len(st.PendingCommits), len(st.ReviewedCommits), st.GapCount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project id (default: active project)")
	cmd.Flags().BoolVar(&reviewed, "reviewed", false, "list reviewed commits instead")
	return cmd
}

func printCommit(c domain.Commit) {
	fmt.Printf("%s  %-50s  %s  +%d -%d\n",
		shortHash(c.Hash), render.Truncate(c.Message, 50), c.Author, c.Additions, c.Deletions)
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
