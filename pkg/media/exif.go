package media

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	exif "github.com/dsoprea/go-exif/v3"
	"k8s.io/klog/v2"
)

var exifDate = "2006:01:02 15:04:05"

// captureTags are tried in order.
var captureTags = []string{"DateTimeOriginal", "CreateDate", "DateTime"}

// ErrNoCaptureTime means the file carries no usable capture time.
var ErrNoCaptureTime = errors.New("no capture time")

// CaptureReader reads the embedded capture time of an image.
type CaptureReader interface {
	CaptureTime(path string) (time.Time, error)
}

// parseExifTime parses an EXIF timestamp in local time, ignoring sub-second and zone suffixes.
func parseExifTime(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
	if len(s) > len(exifDate) {
		s = s[:len(exifDate)]
	}
	t, err := time.ParseInLocation(exifDate, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// ExiftoolReader reads capture times with an exiftool subprocess.
type ExiftoolReader struct {
	et *exiftool.Exiftool
}

// NewExiftoolReader starts exiftool. It fails if the binary is not installed.
func NewExiftoolReader() (*ExiftoolReader, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &ExiftoolReader{et: et}, nil
}

func (r *ExiftoolReader) CaptureTime(path string) (time.Time, error) {
	fis := r.et.ExtractMetadata(path)
	if len(fis) == 0 {
		return time.Time{}, ErrNoCaptureTime
	}
	fi := fis[0]
	if fi.Err != nil {
		return time.Time{}, fmt.Errorf("extract fail for %q: %w", path, fi.Err)
	}

	for k, v := range fi.Fields {
		klog.V(3).Infof("%q=%v", k, v)
	}

	for _, tag := range captureTags {
		ds, err := fi.GetString(tag)
		if err != nil {
			continue
		}
		t, err := parseExifTime(ds)
		if err != nil {
			klog.V(1).Infof("%s: %s: %v", path, tag, err)
			continue
		}
		return t, nil
	}
	return time.Time{}, ErrNoCaptureTime
}

// WriteKeywords replaces the Keywords tag of an image with kws.
func (r *ExiftoolReader) WriteKeywords(path string, kws []string) error {
	fis := r.et.ExtractMetadata(path)
	if len(fis) == 0 {
		return fmt.Errorf("no metadata for %q", path)
	}
	if fis[0].Err != nil {
		return fmt.Errorf("extract fail for %q: %w", path, fis[0].Err)
	}

	fis[0].SetStrings("Keywords", kws)
	r.et.WriteMetadata(fis)
	if fis[0].Err != nil {
		return fmt.Errorf("write %q: %w", path, fis[0].Err)
	}
	return nil
}

// Close stops the exiftool subprocess.
func (r *ExiftoolReader) Close() error {
	return r.et.Close()
}

// GoExifReader reads capture times in-process by searching the file for an EXIF block.
type GoExifReader struct{}

func (GoExifReader) CaptureTime(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	raw, err := exif.SearchAndExtractExifWithReader(f)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return time.Time{}, ErrNoCaptureTime
		}
		return time.Time{}, fmt.Errorf("search exif: %w", err)
	}

	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse exif: %w", err)
	}

	values := map[string]string{}
	for _, e := range entries {
		if e.TagName == "" {
			continue
		}
		if _, ok := values[e.TagName]; !ok {
			values[e.TagName] = e.FormattedFirst
		}
	}

	for _, tag := range captureTags {
		ds, ok := values[tag]
		if !ok {
			continue
		}
		t, err := parseExifTime(ds)
		if err != nil {
			klog.V(1).Infof("%s: %s: %v", path, tag, err)
			continue
		}
		return t, nil
	}
	return time.Time{}, ErrNoCaptureTime
}

// FirstOf tries each reader in turn and returns the first capture time found.
func FirstOf(readers ...CaptureReader) CaptureReader {
	return chain(readers)
}

type chain []CaptureReader

func (c chain) CaptureTime(path string) (time.Time, error) {
	err := ErrNoCaptureTime
	for _, r := range c {
		var t time.Time
		t, err = r.CaptureTime(path)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// DefaultReader prefers exiftool and falls back to the pure Go reader when
// the exiftool binary is unavailable. The returned close func is never nil.
func DefaultReader(useExiftool bool) (CaptureReader, func() error) {
	if useExiftool {
		et, err := NewExiftoolReader()
		if err == nil {
			return FirstOf(et, GoExifReader{}), et.Close
		}
		klog.Warningf("%v; using built-in EXIF reader", err)
	}
	return GoExifReader{}, func() error { return nil }
}
