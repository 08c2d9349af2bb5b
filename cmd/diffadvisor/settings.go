package main

import (
	"errors"
	"fmt"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show application settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			e.app.Settings.LoadSettings(cmd.Context())
			st := e.app.Settings.Snapshot()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			printSettings(st.Settings)
			return nil
		},
	}

	cmd.AddCommand(settingsSetCmd())
	cmd.AddCommand(settingsTestCmd())
	return cmd
}

func printSettings(s *domain.AppSettings) {
	if s == nil {
		return
	}
	key := "(not set)"
	if s.AI.APIKey != "" {
		key = "(set)"
	}
	fmt.Println("[project]")
	fmt.Printf("  monitored_directory = %s\n", s.Project.MonitoredDirectory)
	fmt.Printf("  file_extensions     = %s\n", s.Project.FileExtensions)
	fmt.Printf("  ignored_paths       = %s\n", s.Project.IgnoredPaths)
	fmt.Println("[ai]")
	fmt.Printf("  provider            = %s\n", s.AI.Provider)
	fmt.Printf("  model               = %s\n", s.AI.Model)
	fmt.Printf("  endpoint_url        = %s\n", s.AI.EndpointURL)
	fmt.Printf("  api_key             = %s\n", key)
	fmt.Printf("  web_search          = %t\n", s.AI.WebSearch)
	fmt.Println("[analysis]")
	fmt.Printf("  auto_analyze        = %t\n", s.Analysis.AutoAnalyze)
	fmt.Printf("  checkpoint_mode     = %s\n", s.Analysis.CheckpointMode)
	fmt.Printf("  analysis_depth      = %s\n", s.Analysis.AnalysisDepth)
	fmt.Println("[knowledge]")
	fmt.Printf("  storage_path        = %s\n", s.Knowledge.StoragePath)
	fmt.Printf("  auto_generate_notes = %t\n", s.Knowledge.AutoGenerateNotes)
	fmt.Println("[appearance]")
	fmt.Printf("  theme               = %s\n", s.Appearance.Theme)
	fmt.Printf("  debrief_language    = %s\n", s.Appearance.DebriefLanguage)
}

// stringFlag returns a pointer to the flag's value only when it was set
func stringFlag(flags *pflag.FlagSet, name string) *string {
	if !flags.Changed(name) {
		return nil
	}
	v, _ := flags.GetString(name)
	return &v
}

func boolFlag(flags *pflag.FlagSet, name string) *bool {
	if !flags.Changed(name) {
		return nil
	}
	v, _ := flags.GetBool(name)
	return &v
}

// patchFromFlags builds a patch holding only the sections whose flags were set
func patchFromFlags(flags *pflag.FlagSet) (domain.SettingsPatch, error) {
	var p domain.SettingsPatch

	project := domain.ProjectSettingsPatch{
		MonitoredDirectory: stringFlag(flags, "monitored-directory"),
		FileExtensions:     stringFlag(flags, "file-extensions"),
		IgnoredPaths:       stringFlag(flags, "ignored-paths"),
	}
	if project != (domain.ProjectSettingsPatch{}) {
		p.Project = &project
	}

	ai := domain.AISettingsPatch{
		Provider:    stringFlag(flags, "provider"),
		Model:       stringFlag(flags, "model"),
		EndpointURL: stringFlag(flags, "endpoint-url"),
		APIKey:      stringFlag(flags, "api-key"),
		WebSearch:   boolFlag(flags, "web-search"),
	}
	if ai != (domain.AISettingsPatch{}) {
		p.AI = &ai
	}

	analysis := domain.AnalysisSettingsPatch{AutoAnalyze: boolFlag(flags, "auto-analyze")}
	if v := stringFlag(flags, "checkpoint-mode"); v != nil {
		mode := domain.CheckpointMode(*v)
		if mode != domain.ModeFreeText && mode != domain.ModeMultipleChoice {
			return p, fmt.Errorf("checkpoint mode must be %s or %s", domain.ModeFreeText, domain.ModeMultipleChoice)
		}
		analysis.CheckpointMode = &mode
	}
	if v := stringFlag(flags, "depth"); v != nil {
		depth := domain.AnalysisDepth(*v)
		switch depth {
		case domain.DepthQuick, domain.DepthBalanced, domain.DepthDeep:
		default:
			return p, errors.New("depth must be quick, balanced or deep")
		}
		analysis.AnalysisDepth = &depth
	}
	if analysis != (domain.AnalysisSettingsPatch{}) {
		p.Analysis = &analysis
	}

	knowledge := domain.KnowledgeSettingsPatch{
		StoragePath:       stringFlag(flags, "storage-path"),
		AutoGenerateNotes: boolFlag(flags, "auto-notes"),
	}
	if knowledge != (domain.KnowledgeSettingsPatch{}) {
		p.Knowledge = &knowledge
	}

	var appearance domain.AppearanceSettingsPatch
	if v := stringFlag(flags, "language"); v != nil {
		lang := domain.DebriefLanguage(*v)
		switch lang {
		case domain.LanguageEnglish, domain.LanguagePortuguese, domain.LanguageAuto:
		default:
			return p, errors.New("language must be english, portuguese or auto")
		}
		appearance.DebriefLanguage = &lang
	}
	if appearance != (domain.AppearanceSettingsPatch{}) {
		p.Appearance = &appearance
	}
	return p, nil
}

func settingsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings; only the given flags are updated",
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := patchFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			if patch == (domain.SettingsPatch{}) {
				return errors.New("nothing to change; see 'diffadvisor settings set --help'")
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			e.app.Settings.UpdateSettings(cmd.Context(), patch)
			st := e.app.Settings.Snapshot()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			printSettings(st.Settings)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("monitored-directory", "", "directory watched for repositories")
	f.String("file-extensions", "", "comma-separated extensions to analyze")
	f.String("ignored-paths", "", "comma-separated paths to skip")
	f.String("provider", "", "model provider: anthropic, openai or openai_compatible")
	f.String("model", "", "model name")
	f.String("endpoint-url", "", "model API base URL")
	f.String("api-key", "", "model API key")
	f.Bool("web-search", false, "let the model search the web")
	f.Bool("auto-analyze", false, "analyze new commits automatically")
	f.String("checkpoint-mode", "", "free_text or multiple_choice")
	f.String("depth", "", "analysis depth: quick, balanced or deep")
	f.String("storage-path", "", "knowledge base directory")
	f.Bool("auto-notes", false, "save proposed notes automatically after each debrief")
	f.String("language", "", "debrief language: english, portuguese or auto")
	return cmd
}

func settingsTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the configured model endpoint answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			fmt.Print("Testing connection... ")
			e.app.Settings.TestConnection(cmd.Context())
			res := e.app.Settings.Snapshot().ConnectionTestResult
			if res == nil || !res.Success {
				fmt.Println("failed")
				if res != nil {
					return errors.New(res.Message)
				}
				return errors.New("no result")
			}
			fmt.Println("ok")
			fmt.Println(res.Message)
			return nil
		},
	}
}

func skillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "List review skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			e.app.Settings.LoadSkills(cmd.Context())
			st := e.app.Settings.Snapshot()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			for _, s := range st.Skills {
				printSkill(s)
			}
			return nil
		},
	}

	cmd.AddCommand(skillToggleCmd("enable", true))
	cmd.AddCommand(skillToggleCmd("disable", false))
	return cmd
}

func printSkill(s domain.Skill) {
	mark := "[ ]"
	if s.Enabled {
		mark = "[x]"
	}
	origin := ""
	if s.AutoDetected {
		origin = " (detected)"
	}
	fmt.Printf("%s %-18s %s%s\n", mark, s.ID, s.Name, origin)
}

func skillToggleCmd(use string, enabled bool) *cobra.Command {
	short := "Disable a skill"
	if enabled {
		short = "Enable a skill"
	}
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			e.app.Settings.ToggleSkill(cmd.Context(), args[0], enabled)
			st := e.app.Settings.Snapshot()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			for _, s := range st.Skills {
				if s.ID == args[0] {
					printSkill(s)
					return nil
				}
			}
			return fmt.Errorf("unknown skill %s", args[0])
		},
	}
}

func themeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show the display theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			fmt.Println(e.app.Theme.Theme())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between dark and light",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			t, err := e.app.Theme.Toggle()
			fmt.Println(t)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [dark|light]",
		Short: "Choose the display theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := domain.ParseTheme(args[0])
			if !ok {
				return fmt.Errorf("unknown theme %q", args[0])
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.app.Theme.SetTheme(t); err != nil {
				return err
			}
			fmt.Println(t)
			return nil
		},
	})
	return cmd
}
