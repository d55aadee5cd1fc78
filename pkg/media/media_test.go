package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMedia(t *testing.T) {
	for _, p := range []string{"test.jpg", "test.jpeg", "test.png", "test.mp4", "test.MOV", "dir/x.WebP"} {
		assert.True(t, IsMedia(p), p)
	}
	for _, p := range []string{"test.txt", "test.pdf", "test", "jpg"} {
		assert.False(t, IsMedia(p), p)
	}
}

func TestIsVideo(t *testing.T) {
	for _, p := range []string{"test.mp4", "test.avi", "test.MOV", "clip.3gp"} {
		assert.True(t, IsVideo(p), p)
	}
	for _, p := range []string{"test.jpg", "test.png", "test.txt"} {
		assert.False(t, IsVideo(p), p)
	}
	assert.True(t, IsImage("a.GIF"))
	assert.False(t, IsImage("a.mkv"))
}

func TestParseExifTime(t *testing.T) {
	want := time.Date(2023, 7, 14, 9, 30, 5, 0, time.Local)

	for _, s := range []string{"2023:07:14 09:30:05", "2023:07:14 09:30:05\x00", "2023:07:14 09:30:05.123+02:00"} {
		got, err := parseExifTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%q: got %v", s, got)
	}

	_, err := parseExifTime("0000:00:00 00:00:00")
	assert.Error(t, err)
	_, err = parseExifTime("")
	assert.Error(t, err)
}

type fakeReader struct {
	times map[string]time.Time
	err   error
	calls []string
}

func (f *fakeReader) CaptureTime(path string) (time.Time, error) {
	f.calls = append(f.calls, filepath.Base(path))
	if t, ok := f.times[filepath.Base(path)]; ok {
		return t, nil
	}
	if f.err != nil {
		return time.Time{}, f.err
	}
	return time.Time{}, ErrNoCaptureTime
}

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	mod := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	shot := time.Date(2020, 5, 6, 7, 8, 9, 0, time.Local)

	touch(t, filepath.Join(root, "b.jpg"), mod)
	touch(t, filepath.Join(root, "sub", "a.PNG"), mod)
	touch(t, filepath.Join(root, "sub", "deeper", "c.mp4"), mod)
	touch(t, filepath.Join(root, "notes.txt"), mod)
	touch(t, filepath.Join(root, ".thumbnails", "t.jpg"), mod)
	touch(t, filepath.Join(root, ".hidden.jpg"), mod)

	r := &fakeReader{times: map[string]time.Time{"b.jpg": shot}}
	files, err := Scan(context.Background(), root, Options{Reader: r})
	require.NoError(t, err)

	got := []string{}
	for _, f := range files {
		got = append(got, f.Name)
	}
	assert.Equal(t, []string{"a.PNG", "b.jpg", "c.mp4"}, got)

	a, b, c := files[0], files[1], files[2]
	assert.True(t, filepath.IsAbs(a.Path))
	assert.Equal(t, int64(1), b.Size)
	assert.True(t, shot.Equal(b.Captured))
	assert.True(t, mod.Equal(b.ModTime))
	assert.True(t, mod.Equal(b.Added))
	assert.True(t, mod.Equal(a.Captured), "missing capture time falls back to modification time")
	assert.True(t, c.Video)
	assert.True(t, mod.Equal(c.Captured))

	// videos never consult the reader
	assert.NotContains(t, r.calls, "c.mp4")
}

func TestScanHidden(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, ".thumbnails", "t.jpg"), time.Now())
	touch(t, filepath.Join(root, "v.jpg"), time.Now())

	files, err := Scan(context.Background(), root, Options{Hidden: true})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestScanReaderErrorFallsBack(t *testing.T) {
	root := t.TempDir()
	mod := time.Date(2022, 2, 2, 2, 2, 2, 0, time.Local)
	touch(t, filepath.Join(root, "broken.jpg"), mod)

	files, err := Scan(context.Background(), root, Options{Reader: &fakeReader{err: errors.New("corrupt")}})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, mod.Equal(files[0].Captured))
}

func TestScanErrors(t *testing.T) {
	root := t.TempDir()
	_, err := Scan(context.Background(), filepath.Join(root, "missing"), Options{})
	assert.Error(t, err)

	file := filepath.Join(root, "a.jpg")
	touch(t, file, time.Now())
	_, err = Scan(context.Background(), file, Options{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Scan(ctx, root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFirstOf(t *testing.T) {
	shot := time.Date(2019, 1, 1, 0, 0, 0, 0, time.Local)
	none := &fakeReader{}
	some := &fakeReader{times: map[string]time.Time{"a.jpg": shot}}

	got, err := FirstOf(none, some).CaptureTime("/x/a.jpg")
	require.NoError(t, err)
	assert.True(t, shot.Equal(got))

	_, err = FirstOf(none).CaptureTime("/x/b.jpg")
	assert.ErrorIs(t, err, ErrNoCaptureTime)

	_, err = FirstOf().CaptureTime("/x/b.jpg")
	assert.ErrorIs(t, err, ErrNoCaptureTime)
}

func TestGoExifReaderNoExif(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plain.jpg")
	require.NoError(t, os.WriteFile(p, []byte("not really a jpeg"), 0o644))

	_, err := GoExifReader{}.CaptureTime(p)
	assert.ErrorIs(t, err, ErrNoCaptureTime)
}
