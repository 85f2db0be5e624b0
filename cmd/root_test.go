package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"that/pkg/registry"
	"that/pkg/that"
)

// resetFlags restores every flag of c to its default so package-level flag
// variables don't leak between tests.
func resetFlags(t *testing.T, c *cobra.Command) {
	t.Helper()
	c.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			require.NoError(t, sv.Replace(nil))
		} else {
			require.NoError(t, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	})
}

// execute runs the root command with args against reg and returns stdout.
func execute(t *testing.T, reg *registry.Registry, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")

	previous := testRegistry
	SetRegistry(reg)
	t.Cleanup(func() { SetRegistry(previous) })

	for _, c := range rootCmd.Commands() {
		resetFlags(t, c)
	}
	testCmd.SilenceErrors = false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), err
}

func demoRegistry() *registry.Registry {
	reg := registry.New()
	reg.Test("standalone", func(*registry.T) {})
	reg.Suite("strings", func(s *registry.SuiteBuilder) {
		s.Test("upper", func(*registry.T) {
			that.That(strings.ToUpper("go")).Equals("GO")
		}, registry.WithTags(registry.TagUnit))
		s.Test("broken", func(*registry.T) {
			that.That("hello world").Equals("hello there")
		}, registry.WithTags(registry.TagSmoke))
	})
	return reg
}

func TestSetVersion(t *testing.T) {
	original := rootCmd.Version
	defer SetVersion(original)

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", rootCmd.Version)
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "that", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestVersionTemplate(t *testing.T) {
	c := &cobra.Command{Use: "that", Version: "1.0.0"}
	c.SetVersionTemplate(`{{printf "that version %s\n" .Version}}`)

	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetArgs([]string{"--version"})
	require.NoError(t, c.Execute())
	assert.Equal(t, "that version 1.0.0\n", buf.String())
}

func TestVersionCommand(t *testing.T) {
	original := rootCmd.Version
	defer SetVersion(original)
	SetVersion("0.9.0")

	out, err := execute(t, registry.New(), "version")
	require.NoError(t, err)
	assert.Equal(t, "that version 0.9.0\n", out)
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"test", "list", "serve", "version", "self-update"} {
		assert.True(t, found[name], "expected subcommand %s to be registered", name)
	}
}

func TestSetRegistryNil(t *testing.T) {
	previous := testRegistry
	defer SetRegistry(previous)

	SetRegistry(nil)
	require.NotNil(t, testRegistry)
	assert.Equal(t, 0, testRegistry.Len())
}
