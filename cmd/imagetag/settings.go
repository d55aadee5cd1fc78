package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tstromberg/imagetag/pkg/prefs"
)

func settingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
	}

	var asYAML bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Show every preference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asYAML {
				bs, err := yaml.Marshal(a.prefs.Settings())
				if err != nil {
					return fmt.Errorf("marshal: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(bs)
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, k := range prefs.Keys {
				v, err := a.prefs.Get(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\n", k, v)
			}
			fmt.Fprintf(tw, "\t\nfile\t%s\n", a.prefs.Path())
			return tw.Flush()
		},
	}
	show.Flags().BoolVar(&asYAML, "yaml", false, "Print the settings as YAML")
	cmd.AddCommand(show)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.prefs.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.prefs.Set(args[0], args[1]); err != nil {
				return err
			}
			v, _ := a.prefs.Get(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dir <path>",
		Short: "Choose the directory to label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.prefs.SetSelectedDirectory(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", prefs.SelectedDirectory, a.prefs.Settings().SelectedDirectory)
			return nil
		},
	})
	return cmd
}
