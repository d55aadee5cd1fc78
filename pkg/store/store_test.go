package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "labels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func names(ls []Label) []string {
	out := []string{}
	for _, l := range ls {
		out = append(out, l.Name)
	}
	return out
}

func TestLabelCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	cat, err := s.CreateLabel(ctx, "cat")
	require.NoError(t, err)
	assert.NotZero(t, cat.ID)
	assert.False(t, cat.CreatedAt.IsZero())

	_, err = s.CreateLabels(ctx, []string{"dog", "beach"})
	require.NoError(t, err)

	ls, err := s.Labels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beach", "cat", "dog"}, names(ls))

	cat.Name = "kitten"
	require.NoError(t, s.UpdateLabel(ctx, cat))
	got, err := s.Label(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "kitten", got.Name)

	found, err := s.SearchLabels(ctx, "%it%")
	require.NoError(t, err)
	assert.Equal(t, []string{"kitten"}, names(found))

	byName, err := s.LabelByName(ctx, "KITTEN")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, byName.ID)

	require.NoError(t, s.DeleteLabel(ctx, cat.ID))
	_, err = s.Label(ctx, cat.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteLabel(ctx, cat.ID), ErrNotFound)
	assert.ErrorIs(t, s.UpdateLabel(ctx, Label{ID: 999, Name: "x"}), ErrNotFound)
	_, err = s.LabelByName(ctx, "kitten")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateLabelsEmpty(t *testing.T) {
	s := openTestStore(t)
	ls, err := s.CreateLabels(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ls)
}

func TestFileLabels(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a, err := s.CreateLabel(ctx, "a")
	require.NoError(t, err)
	b, err := s.CreateLabel(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, s.AddFileLabel(ctx, "/p/1.jpg", a.ID))
	require.NoError(t, s.AddFileLabel(ctx, "/p/1.jpg", a.ID))
	require.NoError(t, s.AddFileLabel(ctx, "/p/1.jpg", b.ID))
	require.NoError(t, s.AddFileLabel(ctx, "/p/2.jpg", b.ID))

	fls, err := s.LabelsForFile(ctx, "/p/1.jpg")
	require.NoError(t, err)
	require.Len(t, fls, 2)
	assert.Equal(t, a.ID, fls[0].LabelID)
	assert.Equal(t, b.ID, fls[1].LabelID)
	assert.False(t, fls[0].AssignedAt.IsZero())

	all, err := s.FileLabels(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := s.FileLabelsFor(ctx, []string{"/p/2.jpg", "/p/missing.jpg"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "/p/2.jpg", some[0].FilePath)

	require.NoError(t, s.RemoveFileLabel(ctx, "/p/1.jpg", a.ID))
	fls, err = s.LabelsForFile(ctx, "/p/1.jpg")
	require.NoError(t, err)
	require.Len(t, fls, 1)
	assert.Equal(t, b.ID, fls[0].LabelID)

	// deleting a label drops its assignments
	require.NoError(t, s.DeleteLabel(ctx, b.ID))
	all, err = s.FileLabels(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileLabelsForManyPaths(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	l, err := s.CreateLabel(ctx, "x")
	require.NoError(t, err)

	paths := []string{}
	for i := 0; i < inChunk+20; i++ {
		p := fmt.Sprintf("/p/%04d.jpg", i)
		paths = append(paths, p)
		if i%10 == 0 {
			require.NoError(t, s.AddFileLabel(ctx, p, l.ID))
		}
	}

	fls, err := s.FileLabelsFor(ctx, paths)
	require.NoError(t, err)
	assert.Len(t, fls, 52)
	for i := 1; i < len(fls); i++ {
		assert.Less(t, fls[i-1].ID, fls[i].ID)
	}
}

func TestToggleTwiceRestores(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	a, err := s.CreateLabel(ctx, "a")
	require.NoError(t, err)
	b, err := s.CreateLabel(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, s.AddFileLabel(ctx, "/f.jpg", a.ID))

	for _, id := range []int64{a.ID, b.ID} {
		before, err := s.LabelsForFile(ctx, "/f.jpg")
		require.NoError(t, err)

		first, err := s.ToggleFileLabel(ctx, "/f.jpg", id)
		require.NoError(t, err)
		second, err := s.ToggleFileLabel(ctx, "/f.jpg", id)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		after, err := s.LabelsForFile(ctx, "/f.jpg")
		require.NoError(t, err)
		assert.ElementsMatch(t, labelIDs(before), labelIDs(after))
	}
}

func TestDeleteUnusedLabels(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	ls, err := s.CreateLabels(ctx, []string{"used", "spare", "twice", "idle"})
	require.NoError(t, err)
	require.NoError(t, s.AddFileLabel(ctx, "/a.jpg", ls[0].ID))
	require.NoError(t, s.AddFileLabel(ctx, "/a.jpg", ls[2].ID))
	require.NoError(t, s.AddFileLabel(ctx, "/b.jpg", ls[2].ID))

	n, err := s.DeleteUnusedLabels(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := s.Labels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"twice", "used"}, names(got))
	fls, err := s.FileLabels(ctx)
	require.NoError(t, err)
	assert.Len(t, fls, 3)

	n, err = s.DeleteUnusedLabels(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func labelIDs(fls []FileLabel) []int64 {
	out := []int64{}
	for _, fl := range fls {
		out = append(out, fl.LabelID)
	}
	return out
}

func TestGroups(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	name := "morning"
	g, err := s.SaveGroup(ctx, &name, 600, []string{"/a.jpg", "/b.jpg"})
	require.NoError(t, err)
	assert.NotZero(t, g.ID)

	empty, err := s.CreateGroup(ctx, nil, 60)
	require.NoError(t, err)
	require.NoError(t, s.AddGroupFile(ctx, empty.ID, "/c.jpg"))

	gs, err := s.Groups(ctx)
	require.NoError(t, err)
	require.Len(t, gs, 2)
	assert.Equal(t, empty.ID, gs[0].ID)

	members, err := s.FilesInGroup(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "/a.jpg", members[0].FilePath)

	renamed := "dawn"
	g.Name = &renamed
	g.Threshold = 300
	require.NoError(t, s.UpdateGroup(ctx, g))
	got, err := s.Group(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Name)
	assert.Equal(t, "dawn", *got.Name)
	assert.Equal(t, 300, got.Threshold)

	require.NoError(t, s.DeleteFilesFromGroup(ctx, empty.ID))
	members, err = s.FilesInGroup(ctx, empty.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, s.DeleteGroup(ctx, g.ID))
	_, err = s.Group(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	members, err = s.FilesInGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.ErrorIs(t, s.UpdateGroup(ctx, FileGroup{ID: 999}), ErrNotFound)
}
