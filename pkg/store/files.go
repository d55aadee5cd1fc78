package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"
)

// sqlite limits the number of bound parameters per statement
const inChunk = 500

// LabelsForFile returns the assignments of a single file.
func (s *Store) LabelsForFile(ctx context.Context, path string) ([]FileLabel, error) {
	var fls []FileLabel
	if err := s.db.WithContext(ctx).Where("file_path = ?", path).Order("id ASC").Find(&fls).Error; err != nil {
		return nil, fmt.Errorf("labels for %s: %w", path, err)
	}
	return fls, nil
}

// FileLabels returns every assignment in insertion order.
func (s *Store) FileLabels(ctx context.Context) ([]FileLabel, error) {
	var fls []FileLabel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&fls).Error; err != nil {
		return nil, fmt.Errorf("list file labels: %w", err)
	}
	return fls, nil
}

// FileLabelsFor returns the assignments of the given paths in insertion order.
func (s *Store) FileLabelsFor(ctx context.Context, paths []string) ([]FileLabel, error) {
	out := []FileLabel{}
	for start := 0; start < len(paths); start += inChunk {
		end := min(start+inChunk, len(paths))
		var fls []FileLabel
		if err := s.db.WithContext(ctx).Where("file_path IN ?", paths[start:end]).Order("id ASC").Find(&fls).Error; err != nil {
			return nil, fmt.Errorf("file labels for %d paths: %w", end-start, err)
		}
		out = append(out, fls...)
	}
	if len(paths) > inChunk {
		slices.SortFunc(out, func(a, b FileLabel) int { return cmp.Compare(a.ID, b.ID) })
	}
	return out, nil
}

// AddFileLabel assigns a label to a file. Assigning twice is a no-op.
func (s *Store) AddFileLabel(ctx context.Context, path string, labelID int64) error {
	fl := FileLabel{}
	err := s.db.WithContext(ctx).
		Where(FileLabel{FilePath: path, LabelID: labelID}).
		FirstOrCreate(&fl).Error
	if err != nil {
		return fmt.Errorf("add label %d to %s: %w", labelID, path, err)
	}
	return nil
}

// RemoveFileLabel removes a label from a file.
func (s *Store) RemoveFileLabel(ctx context.Context, path string, labelID int64) error {
	err := s.db.WithContext(ctx).
		Where("file_path = ? AND label_id = ?", path, labelID).
		Delete(&FileLabel{}).Error
	if err != nil {
		return fmt.Errorf("remove label %d from %s: %w", labelID, path, err)
	}
	return nil
}

// ToggleFileLabel removes the label from the file if assigned, or assigns it otherwise.
// It reports whether the label is now assigned.
func (s *Store) ToggleFileLabel(ctx context.Context, path string, labelID int64) (bool, error) {
	added := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		q := tx.Model(&FileLabel{}).Where("file_path = ? AND label_id = ?", path, labelID)
		if err := q.Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return tx.Where("file_path = ? AND label_id = ?", path, labelID).Delete(&FileLabel{}).Error
		}
		added = true
		return tx.Create(&FileLabel{FilePath: path, LabelID: labelID}).Error
	})
	if err != nil {
		return false, fmt.Errorf("toggle label %d on %s: %w", labelID, path, err)
	}
	return added, nil
}
