package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/tstromberg/imagetag/pkg/media"
)

// Debounce is how long Watch waits for file events to settle before rescanning.
var Debounce = 500 * time.Millisecond

// Watch rescans the gallery when files under the selected directory change or
// the settings change, and calls changed with every new state. It blocks until ctx ends.
func (g *Gallery) Watch(ctx context.Context, changed func(State)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	settings := g.prefs.Subscribe(ctx)
	g.watchDirs(w)

	var timer *time.Timer
	var fire <-chan time.Time
	reload := func(why string) {
		klog.V(1).Infof("reloading: %s", why)
		err := g.Load(ctx)
		switch {
		case errors.Is(err, ErrNoDirectory):
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			klog.Warningf("reload: %v", err)
			return
		}
		g.watchDirs(w)
		if changed != nil {
			changed(g.State())
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case _, ok := <-settings:
			if !ok {
				settings = nil
				continue
			}
			reload("settings changed")

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			klog.V(2).Infof("event: %s", event)
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.Add(event.Name); err != nil {
						klog.Warningf("watch %s: %v", event.Name, err)
					}
				}
			}
			if timer == nil {
				timer = time.NewTimer(Debounce)
			} else {
				timer.Reset(Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			reload("files changed")

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Warningf("watcher: %v", err)
		}
	}
}

// relevant reports whether an event may change the set of media files.
func relevant(event fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
		return false
	}
	// directories have no media extension and must still trigger a rescan
	return media.IsMedia(event.Name) || filepath.Ext(event.Name) == ""
}

// within reports whether d is root or below it.
func within(root, d string) bool {
	rel, err := filepath.Rel(root, d)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// watchDirs adds the selected directory and every directory holding a file to
// w, and drops watches outside the selected directory. fsnotify drops watches
// on removed directories itself.
func (g *Gallery) watchDirs(w *fsnotify.Watcher) {
	root := g.State().Directory

	have := w.WatchList()
	for _, d := range have {
		if root != "" && within(root, d) {
			continue
		}
		if err := w.Remove(d); err != nil {
			klog.V(1).Infof("unwatch %s: %v", d, err)
		}
	}
	if root == "" {
		return
	}

	dirs := []string{root}
	for _, f := range g.Files() {
		for d := filepath.Dir(f.Path); d != root && within(root, d); d = filepath.Dir(d) {
			dirs = append(dirs, d)
		}
	}
	slices.Sort(dirs)
	dirs = slices.Compact(dirs)

	added := 0
	for _, d := range dirs {
		if slices.Contains(have, d) {
			continue
		}
		if err := w.Add(d); err != nil {
			klog.Warningf("watch %s: %v", d, err)
			continue
		}
		added++
	}
	klog.V(1).Infof("watching %d dirs (%d new)", len(dirs), added)
}
