package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	configPath  string
	backendMode string
	dbPath      string
	remoteURL   string
	logLevel    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "diffadvisor",
		Short:         "Review your commits, close the gaps, keep what you learn",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.diffadvisor/config.toml)")
	flags.StringVar(&backendMode, "backend", "", "backend: memory, local or remote (overrides config)")
	flags.StringVar(&dbPath, "db", "", "database path for the local backend")
	flags.StringVar(&remoteURL, "remote", "", "server URL for the remote backend")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(commitsCmd())
	rootCmd.AddCommand(debriefCmd())
	rootCmd.AddCommand(checkpointCmd())
	rootCmd.AddCommand(notesCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(skillsCmd())
	rootCmd.AddCommand(themeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
