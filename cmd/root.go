package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"that/pkg/registry"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "that",
	Short: "Run expressive test suites with readable failure output",
	Long: `that runs test suites registered with its registry and reports each
outcome with structural diffs of what was expected and what actually came back.

Results can be streamed to the console, printed as JSON for CI, or followed
in an interactive terminal view. The same registry can be served to AI
assistants over MCP.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failing tests, invalid configuration)
	SilenceUsage: true,
}

// testRegistry is the registry the commands operate on
var testRegistry = registry.New()

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// SetRegistry sets the registry whose tests the commands list, run and serve
func SetRegistry(reg *registry.Registry) {
	if reg == nil {
		reg = registry.New()
	}
	testRegistry = reg
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "that version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		// Cobra prints the error, or the test report already explained it
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newListCmd())
}
