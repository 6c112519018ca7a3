package trxreport

import (
	"fmt"

	"github.com/kamilpajak/trxreport/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		dir  string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report directory on localhost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dir") {
				cfg.OutputDir = dir
			}

			srv, err := server.Start(cfg.OutputDir, fmt.Sprintf("127.0.0.1:%d", port))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Report: %s\n", srv.URL(cfg.ReportName))
			fmt.Fprintln(cmd.ErrOrStderr(), "Press Ctrl+C to stop")

			if err := srv.Wait(cmd.Context()); err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "\nShutting down...")
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Report directory (default TestResults/html)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	return cmd
}
