package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sitepublish",
	Short: "Publish, preview and roll back a static site from its content repository",
	Long: `sitepublish builds the site from a content repository, deploys it to the
publish branch and tags every published revision vMAJOR.MINOR.PATCH.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}
