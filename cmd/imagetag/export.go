package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tstromberg/imagetag/pkg/export"
)

func exportCommand(a *app) *cobra.Command {
	var page int
	var all, existing bool
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write file labels as CSV",
		Long: "Write the labels of the files on a page, or of every labeled file with --all,\n" +
			"as \"File Path,Labels\" CSV. The CSV goes to stdout unless --out names a directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()

			rows, err := func() ([]export.Row, error) {
				if all {
					if !existing {
						return a.newGallery().AllRows(cmd.Context(), false)
					}
					g, err := a.loadGallery(cmd.Context(), 1)
					if err != nil {
						return nil, err
					}
					return g.AllRows(cmd.Context(), true)
				}
				g, err := a.loadGallery(cmd.Context(), page)
				if err != nil {
					return nil, err
				}
				return g.PageRows(cmd.Context())
			}()
			if err != nil {
				fmt.Fprintf(w, "Error generating CSV: %v\n", err)
				return err
			}

			if out == "" {
				return export.Write(w, rows)
			}
			path, err := export.WriteFile(out, rows, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "wrote %d rows to %s\n", len(rows), path)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page to export, starting at 1")
	cmd.Flags().BoolVar(&all, "all", false, "Export every labeled file in the database")
	cmd.Flags().BoolVar(&existing, "existing", false, "With --all, skip files missing from the selected directory")
	cmd.Flags().StringVar(&out, "out", "", "Directory to write image_labels_<millis>.csv into")
	cmd.MarkFlagsMutuallyExclusive("page", "all")
	return cmd
}
