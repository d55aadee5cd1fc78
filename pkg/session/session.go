// Package session holds the interactive state that binds settings, the label
// store and the file scanner together: the gallery and the label manager.
package session

import (
	"context"
	"errors"

	"github.com/tstromberg/imagetag/pkg/prefs"
	"github.com/tstromberg/imagetag/pkg/store"
)

var (
	ErrNoDirectory = errors.New("no directory selected")
	ErrNoPage      = errors.New("no such page")
	ErrNoGroup     = errors.New("no such group")
	ErrBlankLabel  = errors.New("label name is blank")
	ErrLabelExists = errors.New("label already exists")
)

// Preferences is the subset of the preference store the gallery reads.
type Preferences interface {
	Settings() prefs.Settings
	Subscribe(ctx context.Context) <-chan prefs.Settings
}

// LabelStore is the subset of the label store used by sessions.
type LabelStore interface {
	Labels(ctx context.Context) ([]store.Label, error)
	Label(ctx context.Context, id int64) (store.Label, error)
	LabelByName(ctx context.Context, name string) (store.Label, error)
	CreateLabel(ctx context.Context, name string) (store.Label, error)
	CreateLabels(ctx context.Context, names []string) ([]store.Label, error)
	UpdateLabel(ctx context.Context, l store.Label) error
	DeleteLabel(ctx context.Context, id int64) error
	DeleteUnusedLabels(ctx context.Context) (int64, error)

	LabelsForFile(ctx context.Context, path string) ([]store.FileLabel, error)
	FileLabels(ctx context.Context) ([]store.FileLabel, error)
	FileLabelsFor(ctx context.Context, paths []string) ([]store.FileLabel, error)
	AddFileLabel(ctx context.Context, path string, labelID int64) error
	RemoveFileLabel(ctx context.Context, path string, labelID int64) error
	ToggleFileLabel(ctx context.Context, path string, labelID int64) (bool, error)

	SaveGroup(ctx context.Context, name *string, threshold int, paths []string) (store.FileGroup, error)
}

func labelMap(ls []store.Label) map[int64]store.Label {
	m := make(map[int64]store.Label, len(ls))
	for _, l := range ls {
		m[l.ID] = l
	}
	return m
}
