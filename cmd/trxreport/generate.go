package trxreport

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/kamilpajak/trxreport/internal/config"
	"github.com/kamilpajak/trxreport/internal/report"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	input         string
	outputDir     string
	reportName    string
	title         string
	screenshots   string
	noScreenshots bool
	embed         bool
	noFallback    bool
	jsonOutput    bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the HTML report",
		Long: `Generate reads the TRX file, attaches matching screenshots to failed tests
and writes the HTML report.

Examples:
  trxreport generate
  trxreport generate -i out/TestResults.trx -o out/html
  trxreport generate --embed --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "TRX file (default TestResults/TestResults.trx)")
	f.StringVarP(&opts.outputDir, "output", "o", "", "Report directory (default TestResults/html)")
	f.StringVar(&opts.reportName, "name", "", "Report file name (default TestReport.html)")
	f.StringVar(&opts.title, "title", "", "Report title")
	f.StringVarP(&opts.screenshots, "screenshots", "s", "", "Screenshot directory (default TestResults/screenshots)")
	f.BoolVar(&opts.noScreenshots, "no-screenshots", false, "Do not attach screenshots")
	f.BoolVar(&opts.embed, "embed", false, "Inline screenshots into the HTML")
	f.BoolVar(&opts.noFallback, "no-fallback", false, "Do not attach the latest screenshot when nothing matches")
	f.BoolVar(&opts.jsonOutput, "json", false, "Output result as JSON")

	return cmd
}

// apply overrides config values with the flags that were set.
func (o *generateOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("input") {
		cfg.Input = o.input
	}
	if f.Changed("output") {
		cfg.OutputDir = o.outputDir
	}
	if f.Changed("name") {
		cfg.ReportName = o.reportName
	}
	if f.Changed("title") {
		cfg.Title = o.title
	}
	if f.Changed("screenshots") {
		cfg.Screenshots.Dir = o.screenshots
	}
	if o.noScreenshots {
		cfg.Screenshots.Enabled = false
	}
	if f.Changed("embed") {
		cfg.Screenshots.Embed = o.embed
	}
	if o.noFallback {
		cfg.Screenshots.FallbackLatest = false
	}
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	logger := newLogger(stderr, root.verbose)

	params := report.Params{Config: cfg, Logger: logger}

	var bar *progressbar.ProgressBar
	if isTerminal(stderr) && !root.verbose && !opts.jsonOutput {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(color.CyanString("Attaching screenshots")),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionEnableColorCodes(!color.NoColor),
		)
		params.Progress = bar
	}

	res, err := report.Run(cmd.Context(), params)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printGenerated(stdout, res)
	return nil
}

func printGenerated(w io.Writer, res *report.Result) {
	green := color.New(color.FgGreen)
	_, _ = green.Fprintln(w, "HTML report generated successfully!")

	s := res.Summary
	fmt.Fprintf(w, "Total: %d, Executed: %d, Passed: %d, Failed: %d\n", s.Total, s.Executed, s.Passed, s.Failed)

	location := res.ReportPath
	if abs, err := filepath.Abs(location); err == nil {
		location = abs
	}
	fmt.Fprintf(w, "Location: %s\n", location)

	if res.CopyFailures > 0 {
		yellow := color.New(color.FgYellow)
		_, _ = yellow.Fprintf(w, "Warning: %d screenshot(s) could not be copied\n", res.CopyFailures)
	}
}
