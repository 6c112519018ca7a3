package trxreport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/kamilpajak/trxreport/internal/config"
	"github.com/kamilpajak/trxreport/internal/parser"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

const missingInputHint = "Please run tests first to generate the TRX file."

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	verbose    bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "trxreport",
		Short: "Turn TRX test results into an HTML report",
		Long: `trxreport converts a Visual Studio TRX test result file into a static
HTML report and attaches screenshots to failed tests.

Screenshots are matched by name against the test description, so a failed
test that logged "Starting Test: Search for 'pen' on Google" picks up
Search_for_pen_on_Google_20260120_054934.png.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor || !isTerminal(cmd.OutOrStdout()) {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default .trxreport.yaml in the working directory)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show matching and copy details")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newGenerateCmd(opts))
	cmd.AddCommand(newSummaryCmd(opts))
	cmd.AddCommand(newMatchCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVerifyCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and exits with its status.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(stderr, err)
		return exitCode(err)
	}
	return exitOK
}

func printError(w io.Writer, err error) {
	red := color.New(color.FgRed)
	_, _ = red.Fprintf(w, "Error: %v\n", err)

	var nf *parser.NotFoundError
	if errors.As(err, &nf) {
		fmt.Fprintln(w, missingInputHint)
	}
}

func exitCode(err error) int {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return exitConfig
	}
	return exitFailed
}

// loadConfig reads --config or the working directory's config file.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.configPath != "" {
		return config.Load(opts.configPath)
	}
	cfg, _, err := config.LoadFromDir(".")
	return cfg, err
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    color.NoColor,
	})
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
