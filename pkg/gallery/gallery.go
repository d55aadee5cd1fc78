// Package gallery sorts, paginates and time-groups scanned media files.
package gallery

import (
	"slices"
	"strings"
	"time"

	"github.com/tstromberg/imagetag/pkg/media"
)

// DateType selects which timestamp of a file is used for sorting and grouping.
type DateType string

const (
	DateEXIF   DateType = "EXIF"
	DateCreate DateType = "CREATE"
	DateModify DateType = "MODIFY"
)

// SortBy selects the sort key.
type SortBy string

const (
	SortName SortBy = "NAME"
	SortDate SortBy = "DATE"
)

// PageDateFormat is used for the page boundary dates.
var PageDateFormat = "2006-01-02 15:04"

// ChosenTime returns the timestamp of f selected by dt.
func ChosenTime(f media.MediaFile, dt DateType) time.Time {
	switch dt {
	case DateCreate:
		if !f.Added.IsZero() {
			return f.Added
		}
		return f.ModTime
	case DateModify:
		return f.ModTime
	default:
		if !f.Captured.IsZero() {
			return f.Captured
		}
		return f.ModTime
	}
}

// Sort returns a sorted copy of files. An unknown sort key keeps the input order.
func Sort(files []media.MediaFile, by SortBy, ascending bool, dt DateType) []media.MediaFile {
	out := slices.Clone(files)

	var less func(a, b media.MediaFile) int
	switch by {
	case SortName:
		less = func(a, b media.MediaFile) int { return strings.Compare(a.Name, b.Name) }
	case SortDate:
		less = func(a, b media.MediaFile) int { return ChosenTime(a, dt).Compare(ChosenTime(b, dt)) }
	default:
		return out
	}

	if ascending {
		slices.SortStableFunc(out, less)
	} else {
		slices.SortStableFunc(out, func(a, b media.MediaFile) int { return less(b, a) })
	}
	return out
}

// Page is a contiguous slice of the sorted file list. End is inclusive.
type Page struct {
	Index     int
	Start     int
	End       int
	FirstName string
	LastName  string
	FirstDate string
	LastDate  string
}

// Len returns the number of files on the page.
func (p Page) Len() int {
	return p.End - p.Start + 1
}

// Files returns the files of p within the list it was computed from.
func (p Page) Files(files []media.MediaFile) []media.MediaFile {
	return files[p.Start : p.End+1]
}

// Paginate splits files into pages of pageSize, recording boundary names and dates.
func Paginate(files []media.MediaFile, pageSize int, dt DateType) []Page {
	if pageSize < 1 {
		pageSize = 1
	}

	pages := make([]Page, 0, (len(files)+pageSize-1)/pageSize)
	for start := 0; start < len(files); start += pageSize {
		end := min(start+pageSize, len(files)) - 1
		first, last := files[start], files[end]
		pages = append(pages, Page{
			Index:     start / pageSize,
			Start:     start,
			End:       end,
			FirstName: first.Name,
			LastName:  last.Name,
			FirstDate: ChosenTime(first, dt).Format(PageDateFormat),
			LastDate:  ChosenTime(last, dt).Format(PageDateFormat),
		})
	}
	return pages
}

// GroupByTime sorts files by their chosen time and splits them wherever a
// neighbor is more than threshold seconds away. Deltas are whole seconds.
func GroupByTime(files []media.MediaFile, threshold int, dt DateType) [][]media.MediaFile {
	if len(files) == 0 {
		return nil
	}

	sorted := Sort(files, SortDate, true, dt)
	groups := [][]media.MediaFile{}
	current := []media.MediaFile{sorted[0]}

	for _, f := range sorted[1:] {
		prev := current[len(current)-1]
		delta := ChosenTime(f, dt).Sub(ChosenTime(prev, dt))
		if delta < 0 {
			delta = -delta
		}
		if int64(delta/time.Second) <= int64(threshold) {
			current = append(current, f)
			continue
		}
		groups = append(groups, current)
		current = []media.MediaFile{f}
	}
	return append(groups, current)
}

// OrderGroups orders groups by the chosen time of their first file, newest first unless ascending.
func OrderGroups(groups [][]media.MediaFile, dt DateType, ascending bool) [][]media.MediaFile {
	out := slices.Clone(groups)
	first := func(g []media.MediaFile) time.Time {
		if len(g) == 0 {
			return time.Time{}
		}
		return ChosenTime(g[0], dt)
	}
	slices.SortStableFunc(out, func(a, b []media.MediaFile) int {
		return first(a).Compare(first(b))
	})
	if !ascending {
		slices.Reverse(out)
	}
	return out
}

// Span returns the earliest and latest chosen times in a group.
func Span(group []media.MediaFile, dt DateType) (time.Time, time.Time) {
	if len(group) == 0 {
		return time.Time{}, time.Time{}
	}
	ts := make([]time.Time, 0, len(group))
	for _, f := range group {
		ts = append(ts, ChosenTime(f, dt))
	}
	byTime := func(a, b time.Time) int { return a.Compare(b) }
	return slices.MinFunc(ts, byTime), slices.MaxFunc(ts, byTime)
}
