package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/render"
	"github.com/pbaille/diffadvisor/internal/service"
	"github.com/pbaille/diffadvisor/internal/tree"
	"github.com/spf13/cobra"
)

func notesCmd() *cobra.Command {
	var (
		query string
		path  string
	)

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Browse the knowledge base by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			e.app.Knowledge.LoadNotes(ctx)
			if query != "" {
				e.app.Knowledge.SetSearchQuery(ctx, query)
			}
			if err := stateErr(e.app.Knowledge.Snapshot().Error); err != nil {
				return err
			}

			roots := e.app.Knowledge.Tree()
			if p := strings.Trim(path, "/"); p != "" {
				node := tree.Find(roots, p)
				if node == nil {
					return fmt.Errorf("no category %q", p)
				}
				roots = []*tree.Node{node}
			}
			if len(roots) == 0 {
				fmt.Println("No notes yet. Use 'diffadvisor notes add' or 'diffadvisor debrief save-notes'.")
				return nil
			}
			fmt.Print(render.Tree(roots, true))
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "only include notes matching this filter")
	cmd.Flags().StringVar(&path, "path", "", "only show this category subtree")

	cmd.AddCommand(notesShowCmd())
	cmd.AddCommand(notesSearchCmd())
	cmd.AddCommand(notesAddCmd())
	cmd.AddCommand(notesRemoveCmd())
	cmd.AddCommand(notesImportCmd())
	cmd.AddCommand(notesRelatedCmd())
	return cmd
}

func notesShowCmd() *cobra.Command {
	var (
		width int
		raw   bool
	)

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			e.app.Knowledge.SelectNote(cmd.Context(), args[0])
			st := e.app.Knowledge.Snapshot()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			n := st.CurrentNote
			if n == nil {
				return fmt.Errorf("note %s not found", args[0])
			}

			fmt.Printf("%s  [%s]\n", n.FilePath, n.ID)
			if len(n.Tags) > 0 {
				fmt.Printf("Tags: %s\n", strings.Join(n.Tags, ", "))
			}
			fmt.Printf("Updated: %s\n\n", n.UpdatedAt.Format("2006-01-02 15:04"))
			if raw {
				fmt.Println(n.Content)
				return nil
			}
			fmt.Println(render.Markdown(n.Content, width, e.app.Theme.Theme()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&width, "width", "w", 100, "wrap width")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown source")
	return cmd
}

func notesSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search notes by title, tag or content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			e.app.Knowledge.SetSearchQuery(cmd.Context(), strings.Join(args, " "))
			st := e.app.Knowledge.Snapshot()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			if len(st.FilteredNotes) == 0 {
				fmt.Println("No notes found.")
				return nil
			}
			for _, n := range st.FilteredNotes {
				printNote(n)
			}
			return nil
		},
	}
}

func printNote(n domain.KnowledgeNote) {
	fmt.Printf("%-14s %s\n", n.ID, n.FilePath)
	if snippet := render.Truncate(n.Content, 70); snippet != "" {
		fmt.Printf("               %s\n", snippet)
	}
}

func notesAddCmd() *cobra.Command {
	var (
		id       string
		title    string
		category string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Create or update a note",
		Long: `Create a note, or update the note given by --id. Content is read from the
arguments, or from stdin when none are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				content = string(data)
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			draft := domain.NoteDraft{
				ID:           id,
				Title:        title,
				CategoryPath: strings.Trim(category, "/"),
				Content:      content,
			}
			if cmd.Flags().Changed("tag") {
				draft.Tags = tags
			}
			n, err := e.app.Knowledge.SaveNote(cmd.Context(), draft)
			if errors.Is(err, service.ErrTitleRequired) {
				return errors.New("a note needs a --title")
			}
			if err != nil {
				return err
			}
			fmt.Printf("Saved note: %s (%s)\n", n.FilePath, n.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "update this note instead of creating one")
	cmd.Flags().StringVarP(&title, "title", "t", "", "note title")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category path, e.g. concepts/security")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	return cmd
}

func notesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"remove"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.app.Knowledge.DeleteNote(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted note %s\n", args[0])
			return nil
		},
	}
}

func notesImportCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "import [url]",
		Short: "Import a web page as a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			importer, ok := e.svcs.Knowledge.(service.URLImporter)
			if !ok {
				return fmt.Errorf("import: %w", service.ErrUnsupported)
			}
			fmt.Printf("Fetching %s... ", args[0])
			n, err := importer.ImportURL(cmd.Context(), args[0], category)
			if err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Println("done")
			fmt.Printf("Saved note: %s (%s)\n", n.FilePath, n.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category path (default: chosen by the model)")
	return cmd
}

func notesRelatedCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "related [id]",
		Short: "List notes similar to a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			finder, ok := e.svcs.Knowledge.(service.RelatedFinder)
			if !ok {
				return fmt.Errorf("related notes: %w", service.ErrUnsupported)
			}
			notes, err := finder.RelatedNotes(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(notes) == 0 {
				fmt.Println("No related notes. Embeddings may be disabled.")
				return nil
			}
			for _, n := range notes {
				printNote(n)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of notes to show")
	return cmd
}
