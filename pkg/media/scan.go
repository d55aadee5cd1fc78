package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// Options control a scan.
type Options struct {
	// Reader supplies image capture times. Nil means modification time only.
	Reader CaptureReader
	// Hidden includes dot files and dot directories.
	Hidden bool
	// Progress shows a progress bar while reading metadata.
	Progress bool
}

// Scan walks root and returns its media files sorted by name.
func Scan(ctx context.Context, root string, o Options) ([]MediaFile, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	paths, err := find(ctx, root, o.Hidden)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	klog.V(1).Infof("found %d media files in %s", len(paths), root)

	var bar *progressbar.ProgressBar
	if o.Progress {
		bar = progressbar.Default(int64(len(paths)), "Reading capture times")
	}

	files := make([]MediaFile, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := read(p, o.Reader)
		if bar != nil {
			_ = bar.Add(1)
		}
		if err != nil {
			klog.Warningf("skipping %s: %v", p, err)
			continue
		}
		files = append(files, f)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	slices.SortStableFunc(files, func(a, b MediaFile) int {
		return strings.Compare(a.Name, b.Name)
	})
	return files, nil
}

func find(ctx context.Context, root string, hidden bool) ([]string, error) {
	found := []string{}
	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if path != root && !hidden && strings.HasPrefix(filepath.Base(path), ".") {
				return godirwalk.SkipThis
			}
			if de.IsDir() {
				return nil
			}
			if de.IsRegular() && IsMedia(path) {
				klog.V(2).Infof("found %s", path)
				found = append(found, path)
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return godirwalk.Halt
			}
			klog.Warningf("walk %s: %v", path, err)
			return godirwalk.SkipNode
		},
	})
	return found, err
}

func read(path string, r CaptureReader) (MediaFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return MediaFile{}, fmt.Errorf("stat: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return MediaFile{}, fmt.Errorf("abs: %w", err)
	}

	f := MediaFile{
		Path:     abs,
		Name:     fi.Name(),
		Size:     fi.Size(),
		ModTime:  fi.ModTime(),
		Added:    fi.ModTime(),
		Captured: fi.ModTime(),
		Video:    IsVideo(path),
	}

	if f.Video || r == nil {
		return f, nil
	}

	t, err := r.CaptureTime(path)
	switch {
	case err == nil:
		f.Captured = t
	case errors.Is(err, ErrNoCaptureTime):
		klog.V(1).Infof("%s has no capture time; using modification time", path)
	default:
		klog.Warningf("capture time for %s: %v; using modification time", path, err)
	}
	return f, nil
}
