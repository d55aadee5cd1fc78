package main

import (
	"sync"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/tstromberg/imagetag/pkg/session"
)

func watchCommand(a *app) *cobra.Command {
	var refresh time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the gallery loaded and reprint it whenever files, labels or settings change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			g, err := a.loadGallery(ctx, 0)
			if err != nil {
				return err
			}

			var mu sync.Mutex
			show := func(st session.State) {
				mu.Lock()
				defer mu.Unlock()
				printState(cmd.OutOrStdout(), st)
			}
			show(g.State())

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				if err := a.prefs.Watch(ctx); err != nil {
					klog.Errorf("watch settings: %v", err)
				}
			}()
			go func() {
				defer wg.Done()
				g.RefreshLabels(ctx, refresh, show)
			}()

			klog.Infof("watching %s; interrupt to stop", g.State().Directory)
			err = g.Watch(ctx, show)
			wg.Wait()
			return err
		},
	}
	cmd.Flags().DurationVar(&refresh, "refresh", session.DefaultRefresh, "How often to re-read the label list")
	return cmd
}
