package trxreport

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/kamilpajak/trxreport/internal/screenshot"
	"github.com/spf13/cobra"
)

func newMatchCmd(root *rootOptions) *cobra.Command {
	var (
		dir        string
		noFallback bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "match <text>",
		Short: "Show which screenshots a test description would pick up",
		Long: `Match runs the screenshot matcher against the screenshot directory and
prints every selected file with the tier that selected it.

Examples:
  trxreport match "Search for 'pen' on Google"
  trxreport match GoogleSearchTest.SearchForPen --no-fallback`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dir") {
				cfg.Screenshots.Dir = dir
			}

			candidates, err := screenshot.Scan(cfg.Screenshots.Dir)
			if err != nil {
				return err
			}

			matcher := &screenshot.Matcher{
				StopWords:      cfg.Screenshots.StopWords,
				FallbackLatest: cfg.Screenshots.FallbackLatest && !noFallback,
				Logger:         newLogger(cmd.ErrOrStderr(), root.verbose),
			}
			matches := matcher.Match(strings.Join(args, " "), candidates)

			if jsonOutput {
				if matches == nil {
					matches = []screenshot.Match{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(matches)
			}

			printMatches(cmd.OutOrStdout(), matches, len(candidates))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Screenshot directory (default TestResults/screenshots)")
	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "Do not fall back to the latest screenshot")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output matches as JSON")
	return cmd
}

func printMatches(w io.Writer, matches []screenshot.Match, scanned int) {
	dim := color.New(color.FgHiBlack)

	if len(matches) == 0 {
		fmt.Fprintf(w, "No screenshot matched (%d scanned)\n", scanned)
		return
	}

	for _, m := range matches {
		fmt.Fprintf(w, "%-9s %s", m.Tier, m.Name)
		if m.Segment {
			_, _ = dim.Fprint(w, " (trailing segment)")
		}
		fmt.Fprintln(w)
	}
}
