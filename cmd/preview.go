package cmd

import (
	"errors"
	"fmt"

	"github.com/compozy/sitepublish/internal/preview"
	"github.com/spf13/cobra"
)

func newPreviewCmd(deps *lazyContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Run the preview server until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := deps.get()
			if err != nil {
				return err
			}
			result, err := c.deployment.PreviewStart(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Message)
			ctx, stop := signalContext(cmd)
			defer stop()
			<-ctx.Done()
			stopped, err := c.deployment.PreviewStop(cmd.Context())
			if errors.Is(err, preview.ErrNotRunning) {
				fmt.Fprintln(out, "Preview already exited")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, stopped.Message)
			return nil
		},
	}
}
