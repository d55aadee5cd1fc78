package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tstromberg/imagetag/pkg/gallery"
	"github.com/tstromberg/imagetag/pkg/media"
	"github.com/tstromberg/imagetag/pkg/session"
	"github.com/tstromberg/imagetag/pkg/store"
)

func galleryCommand(a *app) *cobra.Command {
	var page int
	var next bool

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Show a page of the selected directory with the labels of each file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.loadGallery(cmd.Context(), page)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printState(w, g.State())

			if next {
				if i, ok := g.NextUnlabeled(); ok {
					fmt.Fprintf(w, "\nfirst unlabeled item: %d\n", i)
				} else {
					fmt.Fprintln(w, "\nevery file on this page is labeled")
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page to show, starting at 1")
	cmd.Flags().BoolVar(&next, "next-unlabeled", false, "Report the list position of the first unlabeled file")
	return cmd
}

func labelList(ls []store.Label) string {
	names := make([]string, 0, len(ls))
	for _, l := range ls {
		names = append(names, l.Name)
	}
	return strings.Join(names, ", ")
}

func printFile(tw io.Writer, st session.State, f media.MediaFile, dt gallery.DateType) {
	kind := "image"
	if f.Video {
		kind = "video"
	}
	fmt.Fprintf(tw, "  %s\t%s\t%s\t[%s]\n", f.Name, kind, gallery.ChosenTime(f, dt).Format(gallery.PageDateFormat), labelList(st.LabelsOf(f.Path)))
}

// printState writes a page the way the gallery screen lays it out.
func printState(w io.Writer, st session.State) {
	dt := gallery.DateType(st.Settings.DateType)
	if len(st.Pages) == 0 {
		fmt.Fprintf(w, "%s: no media files\n", st.Directory)
		return
	}
	fmt.Fprintf(w, "%s: %d files, page %d of %d\n\n", st.Directory, st.TotalFiles, st.Page+1, len(st.Pages))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if st.Settings.GroupByDate {
		for i, grp := range st.Groups {
			lo, hi := gallery.Span(grp, dt)
			fmt.Fprintf(tw, "group %d: %s - %s (%d files)\n", i, lo.Format(gallery.PageDateFormat), hi.Format(gallery.PageDateFormat), len(grp))
			for _, f := range grp {
				printFile(tw, st, f, dt)
			}
			fmt.Fprintln(tw)
		}
	} else {
		for _, f := range st.Files {
			printFile(tw, st, f, dt)
		}
	}
	tw.Flush()

	if len(st.Pages) > 1 {
		fmt.Fprintln(w, "\npages:")
		printPages(w, st.Pages, st.Page)
	}
}

func printPages(w io.Writer, pages []gallery.Page, current int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range pages {
		mark := " "
		if p.Index == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s %d\t%s .. %s\t%s .. %s\t(%d)\n", mark, p.Index+1, p.FirstName, p.LastName, p.FirstDate, p.LastDate, p.Len())
	}
	tw.Flush()
}
