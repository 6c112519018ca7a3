package trxreport

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/kamilpajak/trxreport/internal/playwright"
	"github.com/spf13/cobra"
)

func newVerifyCmd(root *rootOptions) *cobra.Command {
	var (
		install    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "verify [report.html]",
		Short: "Open the report in a headless browser and check its screenshots",
		Long: `Verify serves the report directory locally, loads the report in headless
Chromium and fails when any attached screenshot does not load.

Run with --install once to download the browser.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if install {
				if err := playwright.Install(); err != nil {
					return fmt.Errorf("failed to install browser: %w", err)
				}
			}

			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			reportPath := cfg.ReportPath()
			if len(args) == 1 {
				reportPath = args[0]
			}

			stderr := cmd.ErrOrStderr()
			var s *spinner.Spinner
			if isTerminal(stderr) {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(stderr))
				s.Suffix = " Opening report in headless browser..."
				s.Start()
			}
			v, err := playwright.VerifyReport(reportPath)
			if s != nil {
				s.Stop()
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(v); err != nil {
					return err
				}
			} else {
				printVerification(cmd.OutOrStdout(), v)
			}

			if !v.OK() {
				return fmt.Errorf("%d screenshot(s) failed to load", len(v.BrokenImages))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&install, "install", false, "Install the Chromium browser first")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output result as JSON")
	return cmd
}

func printVerification(w io.Writer, v *playwright.Verification) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintln(w, v.Title)
	fmt.Fprintf(w, "Tests: %d (%d failed)\n", v.Tests, v.FailedTests)
	fmt.Fprintf(w, "Screenshots: %d loaded, %d broken\n", v.Images-len(v.BrokenImages), len(v.BrokenImages))

	red := color.New(color.FgRed)
	for _, src := range v.BrokenImages {
		_, _ = red.Fprintf(w, "  broken: %s\n", src)
	}
}
