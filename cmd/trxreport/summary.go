package trxreport

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/kamilpajak/trxreport/internal/parser"
	"github.com/kamilpajak/trxreport/pkg/models"
	"github.com/spf13/cobra"
)

func newSummaryCmd(root *rootOptions) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "summary [trx]",
		Short: "Print a results table without writing a report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			input := cfg.Input
			if len(args) == 1 {
				input = args[0]
			}

			rep, err := (&parser.TRXParser{}).Parse(input)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), formatSummary(rep, failedOnly))
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only list failed tests")
	return cmd
}

// formatSummary renders the results as a table with a totals footer.
func formatSummary(rep *models.Report, failedOnly bool) string {
	t := table.NewWriter()
	if rep.Run.Name != "" {
		t.SetTitle(rep.Run.Name)
	}

	t.AppendHeader(table.Row{"#", "Test", "Outcome", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Number: 4, Align: text.AlignRight},
	})

	for i, r := range rep.Results {
		if failedOnly && !r.Failed() {
			continue
		}
		t.AppendRow(table.Row{i + 1, r.Name, outcomeLabel(r.Outcome), r.Duration})
	}

	s := rep.Summary
	t.AppendFooter(table.Row{
		"",
		fmt.Sprintf("Total: %d, Executed: %d", s.Total, s.Executed),
		fmt.Sprintf("%d passed, %d failed", s.Passed, s.Failed),
		"",
	})

	switch {
	case color.NoColor:
		t.SetStyle(table.StyleLight)
	case rep.HasFailures():
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}
	t.Style().Title.Format = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault

	return t.Render() + "\n"
}

func outcomeLabel(o models.Outcome) string {
	switch o.Class() {
	case "passed":
		return color.GreenString(string(o))
	case "failed":
		return color.RedString(string(o))
	default:
		return color.YellowString(string(o))
	}
}
