package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func groupsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Save and inspect time groups",
	}

	var page int
	save := &cobra.Command{
		Use:   "save",
		Short: "Save the time groups of a page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.loadGallery(cmd.Context(), page)
			if err != nil {
				return err
			}
			saved, err := g.SaveGroups(cmd.Context())
			if err != nil {
				return err
			}
			for _, fg := range saved {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", fg.ID, *fg.Name)
			}
			return nil
		},
	}
	save.Flags().IntVar(&page, "page", 1, "Page to save, starting at 1")
	cmd.AddCommand(save)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved groups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gs, err := a.store.Groups(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, fg := range gs {
				name := "(unnamed)"
				if fg.Name != nil {
					name = *fg.Name
				}
				fmt.Fprintf(tw, "%d\t%s\t%ds\t%s\n", fg.ID, name, fg.Threshold, fg.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "List the files of a saved group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("group id %q: %w", args[0], err)
			}
			if _, err := a.store.Group(cmd.Context(), id); err != nil {
				return err
			}
			files, err := a.store.FilesInGroup(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f.FilePath)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a saved group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("group id %q: %w", args[0], err)
			}
			return a.store.DeleteGroup(cmd.Context(), id)
		},
	})
	return cmd
}
