package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tstromberg/imagetag/pkg/store"
)

// resolveLabel finds a label by id or name, creating it by name when create is set.
func (a *app) resolveLabel(cmd *cobra.Command, ref string, create bool) (store.Label, error) {
	l, err := a.labels.Resolve(cmd.Context(), ref)
	if err == nil || !create || !errors.Is(err, store.ErrNotFound) {
		return l, err
	}
	return a.labels.Add(cmd.Context(), ref)
}

func tagCommand(a *app) *cobra.Command {
	var create bool
	cmd := &cobra.Command{
		Use:   "tag <file> <label>",
		Short: "Assign a label to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			l, err := a.resolveLabel(cmd, args[1], create)
			if err != nil {
				return err
			}
			if err := a.store.AddFileLabel(cmd.Context(), path, l.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: +%s\n", path, l.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "Create the label if it does not exist")
	return cmd
}

func untagCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "untag <file> <label>",
		Short: "Remove a label from a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			l, err := a.resolveLabel(cmd, args[1], false)
			if err != nil {
				return err
			}
			if err := a.store.RemoveFileLabel(cmd.Context(), path, l.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: -%s\n", path, l.Name)
			return nil
		},
	}
}

func toggleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <file> <label>",
		Short: "Assign a label to a file, or remove it if already assigned",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			l, err := a.resolveLabel(cmd, args[1], false)
			if err != nil {
				return err
			}

			g := a.newGallery()
			added, err := g.ToggleFileLabel(cmd.Context(), path, l.ID)
			if err != nil {
				return err
			}
			ls, err := g.LabelsFor(cmd.Context(), path)
			if err != nil {
				return err
			}
			sign := "-"
			if added {
				sign = "+"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s%s [%s]\n", path, sign, l.Name, labelList(ls))
			return nil
		},
	}
}

func toggleGroupCommand(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "toggle-group <group> <label>",
		Short: "Toggle a label on every file of a time group",
		Long: "Toggle a label on every file of a time group shown by 'gallery'. If every file\n" +
			"already carries the label it is removed from all of them, otherwise it is added\n" +
			"to the files that lack it. Requires group_by_date.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("group index %q: %w", args[0], err)
			}
			l, err := a.resolveLabel(cmd, args[1], false)
			if err != nil {
				return err
			}
			g, err := a.loadGallery(cmd.Context(), page)
			if err != nil {
				return err
			}

			added, err := g.ToggleGroupLabel(cmd.Context(), idx, l.ID)
			if err != nil {
				return err
			}
			verb := "removed from"
			if added {
				verb = "added to"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s group %d (%d files)\n", l.Name, verb, idx, len(g.State().Groups[idx]))
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page the group is on, starting at 1")
	return cmd
}
