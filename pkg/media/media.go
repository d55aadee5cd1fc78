// Package media finds image and video files and works out when they were captured.
package media

import (
	"path/filepath"
	"strings"
	"time"
)

var (
	imageExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true, "bmp": true, "webp": true}
	videoExts = map[string]bool{"mp4": true, "avi": true, "mov": true, "mkv": true, "3gp": true, "webm": true}
)

// MediaFile describes a scanned file. It is derived from the filesystem on every scan.
type MediaFile struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	// Added is when the file appeared; the filesystem offers no portable creation time, so this is ModTime.
	Added time.Time
	// Captured is the embedded capture time for images, or ModTime when none could be read.
	Captured time.Time
	Video    bool
}

func ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// IsMedia reports whether path has an image or video extension.
func IsMedia(path string) bool {
	e := ext(path)
	return imageExts[e] || videoExts[e]
}

// IsVideo reports whether path has a video extension.
func IsVideo(path string) bool {
	return videoExts[ext(path)]
}

// IsImage reports whether path has an image extension.
func IsImage(path string) bool {
	return imageExts[ext(path)]
}
