package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newStatusCmd(deps *lazyContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the content repository has unpublished changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := deps.get()
			if err != nil {
				return err
			}
			status := c.deployment.Status(cmd.Context())
			return render(cmd, status, func(out io.Writer) {
				fmt.Fprintln(out, status.Message)
			})
		},
	}
}

func newTagsCmd(deps *lazyContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List release tags, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := deps.get()
			if err != nil {
				return err
			}
			list := c.deployment.ListTags(cmd.Context())
			return render(cmd, list, func(out io.Writer) {
				if list.Message != "" {
					fmt.Fprintln(out, list.Message)
				}
				for _, tag := range list.Tags {
					fmt.Fprintln(out, tag)
				}
			})
		},
	}
}

func newPublishCmd(deps *lazyContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Build and deploy the site, tagging the release when content changed",
		Long: `Build and deploy the site.

The publish pipeline clones the content repository when needed, fetches
tags, processes content, builds the site, force pushes the build output to
the publish branch and, when content changed since the current tag, creates
and pushes the next patch tag.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := deps.get()
			if err != nil {
				return err
			}
			result, err := c.deployment.Publish(cmd.Context())
			if rerr := render(cmd, result, func(out io.Writer) {
				fmt.Fprintln(out, result.Message)
			}); rerr != nil {
				return rerr
			}
			return err
		},
	}
}

func newRollbackCmd(deps *lazyContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <tag>",
		Short: "Replace the working copy with a checkout of a release tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := deps.get()
			if err != nil {
				return err
			}
			result, err := c.deployment.Rollback(cmd.Context(), args[0])
			if rerr := render(cmd, result, func(out io.Writer) {
				fmt.Fprintln(out, result.Message)
			}); rerr != nil {
				return rerr
			}
			return err
		},
	}
}

func newHistoryCmd(deps *lazyContainer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the journal of deployment operations, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := deps.get()
			if err != nil {
				return err
			}
			records, err := c.deployment.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return render(cmd, records, func(out io.Writer) {
				for _, r := range records {
					line := fmt.Sprintf("%s  %-13s  %-11s", r.StartedAt.Format("2006-01-02 15:04:05"), r.Operation, r.Status)
					if r.Tag != "" {
						line += "  " + r.Tag
					}
					fmt.Fprintf(out, "%s  %s\n", line, r.Message)
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records (0 for all)")
	return cmd
}

func newCommitCmd(deps *lazyContainer) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit and push every change in the content repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if message == "" {
				return errors.New("commit message is required (-m)")
			}
			c, err := deps.get()
			if err != nil {
				return err
			}
			committed, err := c.deployment.Commit(cmd.Context(), message)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !committed {
				fmt.Fprintln(out, "No changes to commit")
				return nil
			}
			fmt.Fprintln(out, "Committed and pushed")
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	return cmd
}
