package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/tstromberg/imagetag/pkg/autotag"
	"github.com/tstromberg/imagetag/pkg/labels"
	"github.com/tstromberg/imagetag/pkg/media"
	"github.com/tstromberg/imagetag/pkg/store"
)

func autotagCommand(a *app) *cobra.Command {
	var page int
	var apply, overwrite, keywords bool

	cmd := &cobra.Command{
		Use:   "autotag",
		Short: "Suggest labels for the images on a page with Gemini",
		Long: "Ask a Gemini model to choose up to five existing labels for every unlabeled image\n" +
			"on a page. Suggestions are printed; --apply assigns them. The API key is read from\n" +
			"GOOGLE_AI_API_KEY or IMAGETAG_API_KEY.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := autotag.New(ctx, a.v.GetString("api-key"), a.v.GetString("model"), nil)
			if err != nil {
				return err
			}

			available, err := a.labels.List(ctx)
			if err != nil {
				return err
			}
			if len(available) == 0 {
				return fmt.Errorf("%w: add some with 'imagetag labels add'", autotag.ErrNoLabels)
			}
			names := make([]string, 0, len(available))
			for _, l := range available {
				names = append(names, l.Name)
			}

			var kw *media.ExiftoolReader
			if keywords {
				kw, err = media.NewExiftoolReader()
				if err != nil {
					return err
				}
				defer kw.Close()
			}

			g, err := a.loadGallery(ctx, page)
			if err != nil {
				return err
			}
			st := g.State()

			tagged := 0
			for _, f := range st.Files {
				if f.Video {
					continue
				}
				if !overwrite && len(st.LabelsOf(f.Path)) > 0 {
					klog.V(1).Infof("%s has labels: %s", f.Path, labelList(st.LabelsOf(f.Path)))
					continue
				}
				picked, err := s.Suggest(ctx, f.Path, names)
				if err != nil {
					if errors.Is(err, autotag.ErrUnsupported) {
						continue
					}
					if ctx.Err() != nil {
						return ctx.Err()
					}
					klog.Errorf("suggest %s: %v", f.Path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", f.Name, picked)
				if !apply || len(picked) == 0 {
					continue
				}

				for _, n := range picked {
					if l, ok := byName(available, n); ok {
						if err := a.store.AddFileLabel(ctx, f.Path, l.ID); err != nil {
							return err
						}
					}
				}
				if kw != nil {
					if err := kw.WriteKeywords(f.Path, picked); err != nil {
						klog.Errorf("keywords for %s: %v", f.Path, err)
					}
				}
				tagged++
			}
			klog.Infof("autotag labeled %d of %d files", tagged, len(st.Files))
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page to tag, starting at 1")
	cmd.Flags().BoolVar(&apply, "apply", false, "Assign the suggested labels")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Also suggest for files that already have labels")
	cmd.Flags().BoolVar(&keywords, "keywords", false, "With --apply, also write the labels into the image Keywords tag with exiftool")
	return cmd
}

func byName(ls []store.Label, name string) (store.Label, bool) {
	for _, l := range ls {
		if labels.Equal(l.Name, name) {
			return l, true
		}
	}
	return store.Label{}, false
}
