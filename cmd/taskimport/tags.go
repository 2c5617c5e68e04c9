package main

import (
	"fmt"

	"github.com/JonMunkholm/taskimport/internal/application"
	"github.com/spf13/cobra"
)

func tagsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List the store's tags",
		Long: `List the store's tags.

Imports only attach tags that already exist; unknown tag names in an
export are ignored. Use "tags add" to create them first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := application.New(cmd.Context(), c.cfg, application.Options{})
			if err != nil {
				return err
			}
			defer app.Close()

			tags, err := app.Store.ListTags(cmd.Context())
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no tags)")
				return nil
			}
			for _, t := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), t.Name)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME...",
		Short: "Create tags that do not exist yet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := application.New(cmd.Context(), c.cfg, application.Options{})
			if err != nil {
				return err
			}
			defer app.Close()

			for _, name := range args {
				tag, err := app.Store.EnsureTag(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("add tag %q: %w", name, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), tag.Name)
			}
			return nil
		},
	})
	return cmd
}
