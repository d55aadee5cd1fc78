package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tstromberg/imagetag/pkg/store"
)

func printLabels(w io.Writer, ls []store.Label) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, l := range ls {
		fmt.Fprintf(tw, "%d\t%s\n", l.ID, l.Name)
	}
	tw.Flush()
}

func labelsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Manage labels",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ls, err := a.labels.List(cmd.Context())
			if err != nil {
				return err
			}
			printLabels(cmd.OutOrStdout(), ls)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>...",
		Short: "Create labels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, n := range args {
				l, err := a.labels.Add(cmd.Context(), n)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", l.ID, l.Name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <label> <new name>",
		Short: "Rename a label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.labels.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.labels.Rename(cmd.Context(), l.ID, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %q to %q\n", l.Name, args[1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <label>...",
		Aliases: []string{"delete"},
		Short:   "Delete labels and remove them from every file",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, ref := range args {
				l, err := a.labels.Resolve(cmd.Context(), ref)
				if err != nil {
					return err
				}
				if err := a.labels.Delete(cmd.Context(), l.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", l.Name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Find labels by name or pinyin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ls, err := a.labels.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printLabels(cmd.OutOrStdout(), ls)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every label that no file carries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.labels.ClearUnused(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d unused labels\n", n)
			return nil
		},
	})

	cmd.AddCommand(importCommand(a))
	return cmd
}

func importCommand(a *app) *cobra.Command {
	var clipboard bool
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Add the labels listed in a file, or pasted on stdin with --clipboard",
		Long: "Add labels from a text file holding one label or a comma-separated list per line.\n" +
			"With --clipboard, pasted text is read from stdin with one label per line.\n" +
			"Labels that already exist, ignoring case, are skipped.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int
			var err error
			switch {
			case clipboard:
				var bs []byte
				bs, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				n, err = a.labels.ImportText(cmd.Context(), string(bs))
			case len(args) == 1:
				n, err = a.labels.ImportFile(cmd.Context(), args[0])
			default:
				return fmt.Errorf("give a file to import or use --clipboard")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d labels\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clipboard, "clipboard", false, "Read pasted text from stdin, one label per line")
	return cmd
}
