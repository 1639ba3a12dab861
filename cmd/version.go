package cmd

import (
	"fmt"
	"io"

	"github.com/compozy/sitepublish/pkg/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			return render(cmd, info, func(out io.Writer) {
				fmt.Fprintf(out, "Version:\t%s\n", info.Version)
				fmt.Fprintf(out, "Commit:\t%s\n", info.Commit)
				fmt.Fprintf(out, "Built:\t%s\n", info.Built)
			})
		},
	}
}
