// Package export writes label assignments as "path,labels" CSV and reads them back.
package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tstromberg/imagetag/pkg/store"
)

// Header is the first line of every export.
const Header = "File Path,Labels"

// LabelSep separates label names within a row.
const LabelSep = ";"

// Row is one exported file.
type Row struct {
	Path   string
	Labels []string
}

// EscapePath quotes a path containing a comma or quote, doubling inner quotes.
func EscapePath(p string) string {
	if !strings.ContainsAny(p, `,"`) {
		return p
	}
	return `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
}

// Write writes the header and rows to w.
func Write(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(bw, "%s,%s\n", EscapePath(r.Path), strings.Join(r.Labels, LabelSep)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// String renders rows as CSV text.
func String(rows []Row) string {
	var sb strings.Builder
	// strings.Builder never fails
	_ = Write(&sb, rows)
	return sb.String()
}

func labelNames(labels []store.Label) map[int64]string {
	m := make(map[int64]string, len(labels))
	for _, l := range labels {
		m[l.ID] = l.Name
	}
	return m
}

// Rows builds one row per path, in the given order, from store contents.
// Assignments whose label no longer exists are dropped.
func Rows(paths []string, fileLabels []store.FileLabel, labels []store.Label) []Row {
	names := labelNames(labels)
	byPath := map[string][]string{}
	for _, fl := range fileLabels {
		if n, ok := names[fl.LabelID]; ok {
			byPath[fl.FilePath] = append(byPath[fl.FilePath], n)
		}
	}

	rows := make([]Row, 0, len(paths))
	for _, p := range paths {
		rows = append(rows, Row{Path: p, Labels: byPath[p]})
	}
	return rows
}

// RowsFromStore builds a row for every file with at least one assignment, in first-seen order.
// When keep is non-nil, only paths it accepts are exported.
func RowsFromStore(fileLabels []store.FileLabel, labels []store.Label, keep func(path string) bool) []Row {
	names := labelNames(labels)
	order := []string{}
	byPath := map[string][]string{}
	for _, fl := range fileLabels {
		if keep != nil && !keep(fl.FilePath) {
			continue
		}
		if _, ok := byPath[fl.FilePath]; !ok {
			order = append(order, fl.FilePath)
			byPath[fl.FilePath] = nil
		}
		if n, ok := names[fl.LabelID]; ok {
			byPath[fl.FilePath] = append(byPath[fl.FilePath], n)
		}
	}

	rows := make([]Row, 0, len(order))
	for _, p := range order {
		rows = append(rows, Row{Path: p, Labels: byPath[p]})
	}
	return rows
}

// Parse reads an export back into rows.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows := []Row{}
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		if first {
			first = false
			if strings.Join(rec, ",") == Header {
				continue
			}
		}

		row := Row{Path: rec[0]}
		// label names are written unescaped and may contain commas
		for _, l := range strings.Split(strings.Join(rec[1:], ","), LabelSep) {
			if l != "" {
				row.Labels = append(row.Labels, l)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FileName returns the export file name for a given time.
func FileName(now time.Time) string {
	return fmt.Sprintf("image_labels_%d.csv", now.UnixMilli())
}

// WriteFile writes rows into dir and returns the path of the new file.
func WriteFile(dir string, rows []Row, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	path := filepath.Join(dir, FileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	if err := Write(f, rows); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
