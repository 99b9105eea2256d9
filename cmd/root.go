package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the miladyos application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "miladyos",
	Short: "Pipeline orchestration tools for AI assistants",
	Long: `miladyos exposes Jenkins pipeline orchestration as MCP tools over stdio:
template scaffolding and editing, job deployment, parameterized builds with
console streaming, and a Redis-backed execution history.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "miladyos version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
