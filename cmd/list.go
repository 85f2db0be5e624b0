package cmd

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"that/pkg/registry"
)

var (
	listSuites []string
	listTags   string
)

func newListCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "list",
		Short: "List registered tests with their suite, tags and source location",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	c.Flags().StringSliceVar(&listSuites, "suite", nil, "Only list tests of these suites")
	c.Flags().StringVar(&listTags, "tags", "", "Only list tests carrying one of these comma-separated tags")
	_ = c.RegisterFlagCompletionFunc("suite", completeSuiteFlag)
	return c
}

// completeSuiteFlag offers the registered suite names
func completeSuiteFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return testRegistry.Suites(), cobra.ShellCompDirectiveNoFileComp
}

func runList(cmd *cobra.Command, args []string) error {
	f := registry.Filter{Suites: listSuites, Include: registry.ParseTags(listTags)}
	if err := testRegistry.Validate(f); err != nil {
		return err
	}

	tests := testRegistry.Select(f)
	out := cmd.OutOrStdout()
	if len(tests) == 0 {
		fmt.Fprintln(out, "No tests registered.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Suite", "Test", "Tags", "Location"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for _, tc := range tests {
		suite := tc.Suite
		if suite == "" {
			suite = "-"
		}
		desc := tc.Description
		if tc.SkipReason != "" {
			desc += " (skip)"
		}
		table.Append([]string{suite, desc, strings.Join(tc.TagList(), ","), tc.Location()})
	}
	table.Render()

	fmt.Fprintf(out, "\n%d tests in %d suites\n", len(tests), len(testRegistry.Suites()))
	return nil
}
