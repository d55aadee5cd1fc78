package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDefaults(t *testing.T) {
	s := openTemp(t)

	assert.Equal(t, Settings{
		TimeThreshold: 3600,
		DateType:      "EXIF",
		SortBy:        "NAME",
		SortAscending: true,
		PageSize:      150,
	}, s.Settings())
}

func TestSetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "settings.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, s.SetSelectedDirectory(dir))
	require.NoError(t, s.Set(TimeThreshold, "120"))
	require.NoError(t, s.Set(GroupByDate, "true"))
	require.NoError(t, s.Set(DateType, "modify"))
	require.NoError(t, s.Set(SortBy, "DATE"))
	require.NoError(t, s.Set(SortAscending, "false"))
	require.NoError(t, s.Set(PageSize, "25"))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, Settings{
		SelectedDirectory: dir,
		TimeThreshold:     120,
		GroupByDate:       true,
		DateType:          "MODIFY",
		SortBy:            "DATE",
		SortAscending:     false,
		PageSize:          25,
	}, reopened.Settings())

	got, err := reopened.Get(PageSize)
	require.NoError(t, err)
	assert.Equal(t, "25", got)
}

func TestSetRejectsInvalid(t *testing.T) {
	s := openTemp(t)

	tests := []struct {
		key string
		raw string
	}{
		{PageSize, "0"},
		{PageSize, "many"},
		{TimeThreshold, "-1"},
		{GroupByDate, "sometimes"},
		{DateType, "TAKEN"},
		{SortBy, "SIZE"},
	}
	for _, tc := range tests {
		t.Run(tc.key+"="+tc.raw, func(t *testing.T) {
			assert.ErrorIs(t, s.Set(tc.key, tc.raw), ErrInvalidValue)
		})
	}

	assert.ErrorIs(t, s.Set("colour", "blue"), ErrUnknownKey)
	_, err := s.Get("colour")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Equal(t, 150, s.Settings().PageSize)
}

func TestSubscribe(t *testing.T) {
	s := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)

	require.NoError(t, s.SetPageSize(10))
	select {
	case st := <-ch:
		assert.Equal(t, 10, st.PageSize)
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	// an unchanged value is not a change
	require.NoError(t, s.SetPageSize(10))
	select {
	case st := <-ch:
		t.Fatalf("unexpected notification: %+v", st)
	default:
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, err := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	// ctx outlives the store
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Subscribe(ctx)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, ok := <-ch
	assert.False(t, ok)

	_, ok = <-s.Subscribe(ctx)
	assert.False(t, ok)
}

func TestReloadPicksUpExternalEdits(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.SetPageSize(10))

	ch := s.Subscribe(context.Background())
	require.NoError(t, os.WriteFile(s.Path(), []byte("page_size: 42\nsort_by: DATE\n"), 0o644))
	require.NoError(t, s.Reload())

	st := <-ch
	assert.Equal(t, 42, st.PageSize)
	assert.Equal(t, "DATE", st.SortBy)
	assert.Equal(t, 3600, st.TimeThreshold)
}
