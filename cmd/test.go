package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"that/internal/app"
	"that/internal/config"
	"that/pkg/registry"
)

// errTestsFailed is returned when the run completed but did not succeed.
// The report has already been printed, so cobra stays quiet about it.
var errTestsFailed = errors.New("tests failed")

var (
	testSuites        []string
	testTags          string
	testExcludeTags   string
	testFailFast      bool
	testVerbose       bool
	testQuiet         bool
	testJSON          bool
	testFocus         bool
	testTUI           bool
	testReportPath    string
	testConfigPath    string
	testNoColor       bool
	testSlowThreshold time.Duration
	testLogLevel      string
)

// validateLocationArgs accepts positional "file:line" selectors.
func validateLocationArgs(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		if _, err := registry.ParseLocation(arg); err != nil {
			return err
		}
	}
	return nil
}

// completeTagFlag offers the predefined tags
func completeTagFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{
		registry.TagSlow, registry.TagIntegration, registry.TagUnit,
		registry.TagNetwork, registry.TagDB, registry.TagSmoke,
	}, cobra.ShellCompDirectiveNoFileComp
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test [file.go:line ...]",
	Short: "Run the registered test suites",
	Long: `Runs the registered tests and reports every outcome.

Selection:
  --suite          run only the named suites (repeatable)
  --tags           run only tests carrying one of these tags
  --exclude-tags   skip tests carrying any of these tags
  file.go:line     run the test registered at, or closest above, that line

Output modes:
  default          one line per test, failures with structural diffs
  --verbose        also error traces and test logs
  --quiet          failures and a one-line summary only
  --focus          failures only, listed after the run
  --json           the JSON report on stdout
  --tui            an interactive view with a failure browser

Settings are read from ~/.config/that/config.yaml, then .that/config.yaml,
then the --config file. Flags given on the command line win.

Example usage:
  that test                                # Run everything
  that test --suite "Todo model"           # Run one suite
  that test --tags unit --exclude-tags slow
  that test internal/examples/todo/suites.go:120
  that test --json --report-path reports   # JSON to stdout and a saved copy
  that test --tui                          # Follow the run interactively

The exit code is 1 when any test failed or errored.`,
	Args: validateLocationArgs,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)

	// Test selection and filtering
	testCmd.Flags().StringSliceVar(&testSuites, "suite", nil, "Run only these suites")
	testCmd.Flags().StringVar(&testTags, "tags", "", "Run only tests carrying one of these comma-separated tags")
	testCmd.Flags().StringVar(&testExcludeTags, "exclude-tags", "", "Skip tests carrying any of these comma-separated tags")

	// Test execution control
	testCmd.Flags().BoolVar(&testFailFast, "fail-fast", false, "Stop test execution on first failure")
	testCmd.Flags().DurationVar(&testSlowThreshold, "slow-threshold", time.Second, "Mark tests slower than this as slow")

	// Output
	testCmd.Flags().BoolVarP(&testVerbose, "verbose", "v", false, "Show error traces and test logs")
	testCmd.Flags().BoolVarP(&testQuiet, "quiet", "q", false, "Show failures and the summary only")
	testCmd.Flags().BoolVar(&testJSON, "json", false, "Print the JSON report to stdout")
	testCmd.Flags().BoolVar(&testFocus, "focus", false, "Print failures only, after the run")
	testCmd.Flags().BoolVar(&testTUI, "tui", false, "Follow the run in an interactive view")
	testCmd.Flags().BoolVar(&testNoColor, "no-color", false, "Disable coloured output")
	testCmd.Flags().StringVar(&testLogLevel, "log-level", "", "Log level on stderr (debug, info, warn, error)")

	// Configuration and reporting
	testCmd.Flags().StringVar(&testConfigPath, "config", "", "Path to an extra configuration file")
	testCmd.Flags().StringVar(&testReportPath, "report-path", "", "Directory to save a timestamped JSON report in")

	_ = testCmd.RegisterFlagCompletionFunc("suite", completeSuiteFlag)
	_ = testCmd.RegisterFlagCompletionFunc("tags", completeTagFlag)
	_ = testCmd.RegisterFlagCompletionFunc("exclude-tags", completeTagFlag)

	testCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	testCmd.MarkFlagsMutuallyExclusive("json", "tui")
	testCmd.MarkFlagsMutuallyExclusive("quiet", "json")
	testCmd.MarkFlagsMutuallyExclusive("quiet", "tui")
}

// applyTestFlags overlays the flags given on the command line onto settings.
func applyTestFlags(cmd *cobra.Command, settings *config.ThatConfig) {
	flags := cmd.Flags()
	if flags.Changed("suite") {
		settings.Runner.Suites = testSuites
	}
	if flags.Changed("tags") {
		settings.Runner.Tags = registry.ParseTags(testTags)
	}
	if flags.Changed("exclude-tags") {
		settings.Runner.ExcludeTags = registry.ParseTags(testExcludeTags)
	}
	if flags.Changed("fail-fast") {
		settings.Runner.FailFast = testFailFast
	}
	if flags.Changed("slow-threshold") {
		settings.Runner.SlowThreshold = testSlowThreshold
	}
	if flags.Changed("verbose") {
		settings.Output.Verbose = testVerbose
	}
	if flags.Changed("focus") {
		settings.Output.Focus = testFocus
	}
	if flags.Changed("report-path") {
		settings.Output.ReportPath = testReportPath
	}
	if flags.Changed("log-level") {
		settings.Output.LogLevel = testLogLevel
	}
	if testNoColor {
		settings.Output.Color = config.ColorNever
	}

	switch {
	case testQuiet:
		settings.Output.Format = config.FormatQuiet
	case testJSON:
		settings.Output.Format = config.FormatJSON
	case testTUI:
		settings.Output.Format = config.FormatTUI
	}
}

func runTest(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadConfig(testConfigPath)
	if err != nil {
		return err
	}
	applyTestFlags(cmd, &settings)
	if len(args) > 0 {
		settings.Runner.Lines = args
	}

	application, err := app.NewApplication(app.NewConfig(settings, testRegistry, cmd.OutOrStdout(), cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("failed to initialize test run: %w", err)
	}

	// Interrupts stop the run after the current test
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := application.Run(ctx)
	if err != nil {
		return err
	}
	if !summary.Success {
		cmd.SilenceErrors = true
		return errTestsFailed
	}
	return nil
}
