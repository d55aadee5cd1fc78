package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, data string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--data-dir", data, "--exiftool=false"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, data string, args ...string) string {
	t.Helper()
	out, err := run(t, data, "", args...)
	require.NoError(t, err, "imagetag %v: %s", args, out)
	return out
}

func TestLabelCommands(t *testing.T) {
	data := t.TempDir()

	mustRun(t, data, "labels", "add", "beach", "小猫")
	_, err := run(t, data, "", "labels", "add", "BEACH")
	assert.Error(t, err)

	out, err := run(t, data, "sunset\nforest\nbeach\n", "labels", "import", "--clipboard")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 labels")

	out = mustRun(t, data, "labels", "search", "xm")
	assert.Contains(t, out, "小猫")
	assert.NotContains(t, out, "beach")

	mustRun(t, data, "labels", "rename", "forest", "woods")
	mustRun(t, data, "labels", "rm", "sunset")
	out = mustRun(t, data, "labels", "list")
	assert.Contains(t, out, "woods")
	assert.NotContains(t, out, "sunset")
	assert.NotContains(t, out, "forest")
}

func TestClearLabels(t *testing.T) {
	data := t.TempDir()
	photos := t.TempDir()
	a := filepath.Join(photos, "a.jpg")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))
	mustRun(t, data, "settings", "dir", photos)

	mustRun(t, data, "labels", "add", "cat", "dog", "owl")
	mustRun(t, data, "tag", a, "cat")

	out := mustRun(t, data, "labels", "clear")
	assert.Contains(t, out, "cleared 2 unused labels")
	out = mustRun(t, data, "labels", "list")
	assert.Contains(t, out, "cat")
	assert.NotContains(t, out, "dog")
	assert.NotContains(t, out, "owl")
}

func TestSettingsCommands(t *testing.T) {
	data := t.TempDir()
	photos := t.TempDir()

	mustRun(t, data, "settings", "dir", photos)
	mustRun(t, data, "settings", "set", "page_size", "10")
	mustRun(t, data, "settings", "set", "sort_by", "date")

	out := mustRun(t, data, "settings", "show")
	assert.Contains(t, out, photos)
	assert.Contains(t, out, "page_size")
	assert.Contains(t, out, "DATE")

	out = mustRun(t, data, "settings", "show", "--yaml")
	assert.Contains(t, out, "page_size: 10\n")
	assert.Contains(t, out, "sort_by: DATE\n")

	_, err := run(t, data, "", "settings", "set", "page_size", "0")
	assert.Error(t, err)
	_, err = run(t, data, "", "settings", "set", "colour", "red")
	assert.Error(t, err)
}

func TestTagAndExport(t *testing.T) {
	data := t.TempDir()
	photos := t.TempDir()
	a := filepath.Join(photos, "a.jpg")
	b := filepath.Join(photos, "b.png")
	for _, p := range []string{a, b} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	_, err := run(t, data, "", "gallery")
	assert.Error(t, err)

	mustRun(t, data, "settings", "dir", photos)
	mustRun(t, data, "tag", "--create", a, "cat")
	out := mustRun(t, data, "toggle", b, "cat")
	assert.Contains(t, out, "+cat")

	out = mustRun(t, data, "gallery", "--next-unlabeled")
	assert.Contains(t, out, "2 files")
	assert.Contains(t, out, "[cat]")
	assert.Contains(t, out, "every file on this page is labeled")

	mustRun(t, data, "untag", b, "cat")
	out = mustRun(t, data, "export")
	assert.Equal(t, "File Path,Labels\n"+a+",cat\n"+b+",\n", out)

	out = mustRun(t, data, "export", "--all")
	assert.Equal(t, "File Path,Labels\n"+a+",cat\n", out)

	exports := filepath.Join(t.TempDir(), "exports")
	out = mustRun(t, data, "export", "--out", exports)
	assert.Contains(t, out, "wrote 2 rows")
	entries, err := os.ReadDir(exports)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "image_labels_"))
}

func TestGroupCommands(t *testing.T) {
	data := t.TempDir()
	photos := t.TempDir()
	for _, n := range []string{"a.jpg", "b.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(photos, n), []byte("x"), 0o644))
	}
	mustRun(t, data, "settings", "dir", photos)
	mustRun(t, data, "settings", "set", "group_by_date", "true")
	mustRun(t, data, "labels", "add", "dog")

	out := mustRun(t, data, "toggle-group", "0", "dog")
	assert.Contains(t, out, "dog added to group 0 (2 files)")

	out = mustRun(t, data, "groups", "save")
	assert.Contains(t, out, "1\t")
	out = mustRun(t, data, "groups", "show", "1")
	assert.Contains(t, out, filepath.Join(photos, "a.jpg"))
	mustRun(t, data, "groups", "rm", "1")
	_, err := run(t, data, "", "groups", "show", "1")
	assert.Error(t, err)
}

func TestBackup(t *testing.T) {
	data := t.TempDir()
	mustRun(t, data, "labels", "add", "keep")

	dest := filepath.Join(t.TempDir(), "backup")
	mustRun(t, data, "backup", dest)

	out := mustRun(t, dest, "labels", "list")
	assert.Contains(t, out, "keep")
}

func TestEmptyDirectory(t *testing.T) {
	data := t.TempDir()
	mustRun(t, data, "settings", "dir", t.TempDir())

	out := mustRun(t, data, "gallery")
	assert.Contains(t, out, "no media files")

	mustRun(t, data, "settings", "set", "group_by_date", "true")
	out = mustRun(t, data, "gallery", "--next-unlabeled")
	assert.Contains(t, out, "no media files")

	out, err := run(t, data, "", "export")
	assert.Error(t, err)
	assert.Contains(t, out, "Error generating CSV: ")

	_, err = run(t, data, "", "gallery", "--page", "2")
	assert.Error(t, err)
}

func TestPageMustBePositive(t *testing.T) {
	data := t.TempDir()
	photos := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(photos, "a.jpg"), []byte("x"), 0o644))
	mustRun(t, data, "settings", "dir", photos)

	for _, p := range []string{"0", "-3"} {
		_, err := run(t, data, "", "gallery", "--page", p)
		assert.Error(t, err, "--page %s", p)
	}
	out := mustRun(t, data, "gallery", "--page", "1")
	assert.Contains(t, out, "a.jpg")
}
