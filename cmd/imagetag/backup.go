package main

import (
	"fmt"

	"github.com/otiai10/copy"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func backupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <dest>",
		Short: "Copy the settings file and label database to another directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := a.dataDir()
			dest, err := absPath(args[0])
			if err != nil {
				return err
			}

			// release the database so the copy is consistent
			if err := a.close(); err != nil {
				return err
			}

			if err := copy.Copy(src, dest, copy.Options{PreserveTimes: true}); err != nil {
				return fmt.Errorf("copy %s to %s: %w", src, dest, err)
			}
			klog.Infof("backed up %s to %s", src, dest)
			fmt.Fprintln(cmd.OutOrStdout(), dest)
			return nil
		},
	}
}
