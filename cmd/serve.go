package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"miladyos/internal/app"
	"miladyos/internal/config"
	"miladyos/pkg/logging"
)

// serveConfigPath specifies a custom configuration directory. When set,
// config.yaml is loaded from this directory instead of the user default.
var serveConfigPath string

// serveLogLevel overrides the configured log level when set.
var serveLogLevel string

// serveCmd defines the serve command structure. This is the main
// command of miladyos: it connects Redis, registers the tool providers
// and serves MCP on stdin/stdout until the client disconnects.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve pipeline orchestration tools over stdio",
	Long: `Starts the MCP tool server on stdin/stdout.

Stdout carries the protocol, so all logging goes to stderr. The server
connects to the Redis metadata store at startup and registers the
template, pipeline and metadata tools for the connected client.

Configuration:
  miladyos loads config.yaml from ~/.config/miladyos by default. A
  missing file is not an error; the built-in defaults assume a local
  Redis and a local Jenkins. Environment variables (REDIS_HOST,
  JENKINS_URL, JENKINS_USER, ...) override the file.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	// Stdout belongs to the MCP transport.
	logging.InitForCLI(logging.LevelInfo, os.Stderr)

	cfg, err := config.LoadConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if serveLogLevel != "" {
		level = serveLogLevel
	}
	logging.InitForCLI(logging.ParseLevel(level), os.Stderr)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(ctx, cfg, GetVersion())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logging.Error("Serve", err, "Error during shutdown")
		}
	}()

	return application.Run(ctx)
}

// init registers the serve command and its flags with the root command.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}
