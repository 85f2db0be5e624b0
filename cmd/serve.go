package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"that/internal/mcpserver"
	"that/pkg/logging"
)

// serveDebug enables debug logging on stderr while serving.
var serveDebug bool

// serveCmd exposes the registry to AI assistants over MCP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the registered tests to MCP clients over stdio",
	Long: `Starts an MCP server on stdin/stdout exposing the registered tests as tools:

  that_list_tests     list tests, optionally narrowed by suite and tags
  that_run_tests      run tests and return the JSON report
  that_describe_test  show the suite, tags and hooks of one test

Configure it in your AI assistant's MCP settings with the command "that serve".
Logs go to stderr so they never interfere with the protocol.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	level := logging.LevelWarn
	if serveDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.New(testRegistry, rootCmd.Version)
	return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging on stderr")
}
