package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentic-research/quill/internal/logger"
	"github.com/agentic-research/quill/internal/treefs"
)

var (
	serveListen string
	serveMount  string
)

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "127.0.0.1:0", "Address for the NFS server")
	serveCmd.Flags().StringVarP(&serveMount, "mount", "m", "", "Also mount the export read-only at this directory (needs sudo)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [bundle]",
	Short: "Export an assembled bundle read-only over NFS",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		q, err := loadBundle(e, args[0])
		if err != nil {
			return err
		}

		srv, err := treefs.Serve(serveListen, treefs.New(q.Files(), treefs.WithSchema(q.Schema())))
		if err != nil {
			return err
		}
		defer func() { _ = srv.Close() }()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving quill %s over NFS on port %d\n", q.Name(), srv.Port())

		if serveMount != "" {
			if err := treefs.Mount(srv.Port(), serveMount); err != nil {
				return err
			}
			defer func() {
				if err := treefs.Unmount(serveMount); err != nil {
					logger.Warn("%v", err)
				}
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "Mounted at %s\n", serveMount)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		return nil
	},
}
