package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Labels returns every label ordered by name.
func (s *Store) Labels(ctx context.Context) ([]Label, error) {
	var ls []Label
	if err := s.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&ls).Error; err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return ls, nil
}

// Label returns the label with the given id.
func (s *Store) Label(ctx context.Context, id int64) (Label, error) {
	var l Label
	if err := s.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return Label{}, notFound(err, "label", id)
	}
	return l, nil
}

// LabelByName finds a label by name, ignoring ASCII case.
func (s *Store) LabelByName(ctx context.Context, name string) (Label, error) {
	var l Label
	err := s.db.WithContext(ctx).Where("name = ? COLLATE NOCASE", name).Order("id ASC").First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Label{}, fmt.Errorf("label %q: %w", name, ErrNotFound)
		}
		return Label{}, fmt.Errorf("get label %q: %w", name, err)
	}
	return l, nil
}

// SearchLabels returns labels whose name matches a SQL LIKE pattern.
func (s *Store) SearchLabels(ctx context.Context, pattern string) ([]Label, error) {
	var ls []Label
	if err := s.db.WithContext(ctx).Where("name LIKE ?", pattern).Order("name ASC").Find(&ls).Error; err != nil {
		return nil, fmt.Errorf("search labels %q: %w", pattern, err)
	}
	return ls, nil
}

// CreateLabel inserts a label.
func (s *Store) CreateLabel(ctx context.Context, name string) (Label, error) {
	l := Label{Name: name}
	if err := s.db.WithContext(ctx).Create(&l).Error; err != nil {
		return Label{}, fmt.Errorf("create label %q: %w", name, err)
	}
	return l, nil
}

// CreateLabels inserts several labels at once.
func (s *Store) CreateLabels(ctx context.Context, names []string) ([]Label, error) {
	if len(names) == 0 {
		return nil, nil
	}
	ls := make([]Label, 0, len(names))
	for _, n := range names {
		ls = append(ls, Label{Name: n})
	}
	if err := s.db.WithContext(ctx).Create(&ls).Error; err != nil {
		return nil, fmt.Errorf("create %d labels: %w", len(names), err)
	}
	return ls, nil
}

// UpdateLabel renames a label.
func (s *Store) UpdateLabel(ctx context.Context, l Label) error {
	res := s.db.WithContext(ctx).Model(&Label{}).Where("id = ?", l.ID).Update("name", l.Name)
	if res.Error != nil {
		return fmt.Errorf("update label %d: %w", l.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("label %d: %w", l.ID, ErrNotFound)
	}
	return nil
}

// DeleteLabel removes a label along with its file assignments.
func (s *Store) DeleteLabel(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("label_id = ?", id).Delete(&FileLabel{}).Error; err != nil {
			return fmt.Errorf("delete assignments of label %d: %w", id, err)
		}
		res := tx.Delete(&Label{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete label %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("label %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// DeleteUnusedLabels removes every label no file is assigned and returns how many went.
func (s *Store) DeleteUnusedLabels(ctx context.Context) (int64, error) {
	used := s.db.Model(&FileLabel{}).Distinct("label_id")
	res := s.db.WithContext(ctx).Where("id NOT IN (?)", used).Delete(&Label{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete unused labels: %w", res.Error)
	}
	return res.RowsAffected, nil
}
