package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/compozy/sitepublish/internal/server"
	"github.com/compozy/sitepublish/internal/service"
	"github.com/spf13/cobra"
)

const shutdownGrace = 10 * time.Second

func newServeCmd(deps *lazyContainer) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deployment API over HTTP",
		Long: `Serve the deployment API under /deploy.

SIGINT or SIGTERM stops accepting requests, waits for in-flight requests
and stops the preview process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := deps.get()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = c.cfg.HTTPAddr
			}
			ctx, stop := signalContext(cmd)
			defer stop()
			defer c.preview.Shutdown(service.KillGracePeriod)
			return server.New(addr, c.deployment, c.logger).Run(ctx, shutdownGrace)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to http_addr)")
	return cmd
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
