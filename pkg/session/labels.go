package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/tstromberg/imagetag/pkg/labels"
	"github.com/tstromberg/imagetag/pkg/store"
)

// LabelManager creates, renames, deletes, searches and imports labels.
type LabelManager struct {
	store LabelStore
}

func NewLabelManager(s LabelStore) *LabelManager {
	return &LabelManager{store: s}
}

// List returns every label ordered by name.
func (m *LabelManager) List(ctx context.Context) ([]store.Label, error) {
	return m.store.Labels(ctx)
}

// Add creates a label from a trimmed name.
func (m *LabelManager) Add(ctx context.Context, name string) (store.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Label{}, ErrBlankLabel
	}
	if l, err := m.find(ctx, name); err == nil {
		return l, fmt.Errorf("%w: %q", ErrLabelExists, l.Name)
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Label{}, err
	}

	l, err := m.store.CreateLabel(ctx, name)
	if err != nil {
		return store.Label{}, err
	}
	klog.Infof("added label %d %q", l.ID, l.Name)
	return l, nil
}

// Rename changes the name of a label.
func (m *LabelManager) Rename(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrBlankLabel
	}
	if l, err := m.find(ctx, name); err == nil && l.ID != id {
		return fmt.Errorf("%w: %q", ErrLabelExists, l.Name)
	}
	return m.store.UpdateLabel(ctx, store.Label{ID: id, Name: name})
}

// Delete removes a label and every assignment of it.
func (m *LabelManager) Delete(ctx context.Context, id int64) error {
	if err := m.store.DeleteLabel(ctx, id); err != nil {
		return err
	}
	klog.Infof("deleted label %d", id)
	return nil
}

// ClearUnused deletes the labels that no file carries and returns how many.
func (m *LabelManager) ClearUnused(ctx context.Context) (int, error) {
	n, err := m.store.DeleteUnusedLabels(ctx)
	if err != nil {
		return 0, err
	}
	klog.Infof("cleared %d unused labels", n)
	return int(n), nil
}

// Search returns the labels matching query by name or pinyin.
func (m *LabelManager) Search(ctx context.Context, query string) ([]store.Label, error) {
	ls, err := m.store.Labels(ctx)
	if err != nil {
		return nil, err
	}
	out := []store.Label{}
	for _, l := range ls {
		if labels.Matches(l.Name, query) {
			out = append(out, l)
		}
	}
	return out, nil
}

// ImportFile adds the labels listed in a text file and returns how many were new.
func (m *LabelManager) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	names, err := labels.ParseList(f)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return m.Import(ctx, names)
}

// ImportText adds one label per line of text and returns how many were new.
func (m *LabelManager) ImportText(ctx context.Context, text string) (int, error) {
	return m.Import(ctx, labels.ParseLines(text))
}

// Import creates the names that do not exist yet.
func (m *LabelManager) Import(ctx context.Context, names []string) (int, error) {
	ls, err := m.store.Labels(ctx)
	if err != nil {
		return 0, err
	}
	existing := make([]string, 0, len(ls))
	for _, l := range ls {
		existing = append(existing, l.Name)
	}

	fresh := labels.NewNames(existing, names)
	created, err := m.store.CreateLabels(ctx, fresh)
	if err != nil {
		return 0, err
	}
	klog.Infof("imported %d of %d labels", len(created), len(names))
	return len(created), nil
}

// Resolve finds a label by numeric id or by name.
func (m *LabelManager) Resolve(ctx context.Context, ref string) (store.Label, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return m.store.Label(ctx, id)
	}
	return m.find(ctx, ref)
}

// find looks a name up in the store, which folds only ASCII, then falls back
// to full Unicode case folding.
func (m *LabelManager) find(ctx context.Context, name string) (store.Label, error) {
	l, err := m.store.LabelByName(ctx, name)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return l, err
	}

	ls, lerr := m.store.Labels(ctx)
	if lerr != nil {
		return store.Label{}, lerr
	}
	for _, l := range ls {
		if labels.Equal(l.Name, name) {
			return l, nil
		}
	}
	return store.Label{}, err
}
