package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/tstromberg/imagetag/pkg/media"
	"github.com/tstromberg/imagetag/pkg/prefs"
	"github.com/tstromberg/imagetag/pkg/session"
	"github.com/tstromberg/imagetag/pkg/store"
)

const (
	settingsFile = "settings.yaml"
	databaseFile = "labels.db"
)

// app holds what every subcommand shares. Heavy parts are opened on first use.
type app struct {
	v *viper.Viper

	prefs  *prefs.Store
	store  *store.Store
	labels *session.LabelManager

	reader      media.CaptureReader
	closeReader func() error
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".imagetag"
	}
	return filepath.Join(dir, "imagetag")
}

func rootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "imagetag",
		Short:         "Label photos and videos in a directory tree",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open()
		},
	}
	cobra.OnFinalize(func() {
		if err := a.close(); err != nil {
			klog.Warningf("close: %v", err)
		}
	})

	gfs := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(gfs)
	root.PersistentFlags().AddGoFlagSet(gfs)

	pf := root.PersistentFlags()
	globalFlags(pf)
	if err := a.v.BindPFlags(pf); err != nil {
		klog.Exitf("bind flags: %v", err)
	}

	a.v.SetEnvPrefix("IMAGETAG")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindEnv("api-key", "IMAGETAG_API_KEY", "GOOGLE_AI_API_KEY"); err != nil {
		klog.Exitf("bind env: %v", err)
	}

	root.AddCommand(
		galleryCommand(a),
		tagCommand(a),
		untagCommand(a),
		toggleCommand(a),
		toggleGroupCommand(a),
		labelsCommand(a),
		settingsCommand(a),
		exportCommand(a),
		groupsCommand(a),
		watchCommand(a),
		autotagCommand(a),
		backupCommand(a),
	)
	return root
}

// globalFlags defines the flags shared by every subcommand. Each is also
// settable as IMAGETAG_<NAME> with dashes replaced by underscores.
func globalFlags(pf *pflag.FlagSet) {
	pf.String("data-dir", defaultDataDir(), "Directory holding the settings file and label database")
	pf.Bool("exiftool", true, "Read capture times with exiftool when it is installed")
	pf.Bool("hidden", false, "Include dot files and dot directories")
	pf.Bool("progress", false, "Show a progress bar while reading capture times")
	pf.String("model", "", "Gemini model used by autotag")
}

func (a *app) dataDir() string {
	return a.v.GetString("data-dir")
}

func (a *app) open() error {
	dir := a.dataDir()
	klog.V(1).Infof("data directory: %s", dir)

	p, err := prefs.Open(filepath.Join(dir, settingsFile))
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	s, err := store.Open(filepath.Join(dir, databaseFile))
	if err != nil {
		p.Close()
		return fmt.Errorf("open database: %w", err)
	}

	a.prefs = p
	a.store = s
	a.labels = session.NewLabelManager(s)
	return nil
}

// close releases everything open. It is safe to call more than once.
func (a *app) close() error {
	var errs []error
	if a.closeReader != nil {
		errs = append(errs, a.closeReader())
		a.closeReader = nil
		a.reader = nil
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.prefs != nil {
		errs = append(errs, a.prefs.Close())
		a.prefs = nil
	}
	return errors.Join(errs...)
}

// captureReader starts exiftool on first use, falling back to go-exif.
func (a *app) captureReader() media.CaptureReader {
	if a.reader == nil {
		a.reader, a.closeReader = media.DefaultReader(a.v.GetBool("exiftool"))
	}
	return a.reader
}

func (a *app) newGallery() *session.Gallery {
	return session.NewGallery(a.prefs, a.store, session.GalleryOptions{
		Reader:   a.captureReader(),
		Hidden:   a.v.GetBool("hidden"),
		Progress: a.v.GetBool("progress"),
	})
}

// loadGallery scans the selected directory and shows page, counted from 1.
// An empty directory loads as an empty first page.
func (a *app) loadGallery(ctx context.Context, page int) (*session.Gallery, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: pages start at 1, got %d", session.ErrNoPage, page)
	}
	g := a.newGallery()
	if err := g.Load(ctx); err != nil {
		if errors.Is(err, session.ErrNoDirectory) {
			return nil, fmt.Errorf("%w: choose one with 'imagetag settings dir <path>'", err)
		}
		return nil, err
	}
	if page > 1 {
		if err := g.LoadPage(ctx, page-1); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func absPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("abs: %w", err)
	}
	return abs, nil
}
