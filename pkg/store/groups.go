package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Groups returns saved groups, newest first.
func (s *Store) Groups(ctx context.Context) ([]FileGroup, error) {
	var gs []FileGroup
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&gs).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return gs, nil
}

// Group returns a saved group by id.
func (s *Store) Group(ctx context.Context, id int64) (FileGroup, error) {
	var g FileGroup
	if err := s.db.WithContext(ctx).First(&g, id).Error; err != nil {
		return FileGroup{}, notFound(err, "group", id)
	}
	return g, nil
}

// CreateGroup inserts an empty group.
func (s *Store) CreateGroup(ctx context.Context, name *string, threshold int) (FileGroup, error) {
	g := FileGroup{Name: name, Threshold: threshold}
	if err := s.db.WithContext(ctx).Create(&g).Error; err != nil {
		return FileGroup{}, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

// UpdateGroup changes the name and threshold of a group.
func (s *Store) UpdateGroup(ctx context.Context, g FileGroup) error {
	res := s.db.WithContext(ctx).Model(&FileGroup{}).Where("id = ?", g.ID).
		Updates(map[string]any{"name": g.Name, "threshold": g.Threshold})
	if res.Error != nil {
		return fmt.Errorf("update group %d: %w", g.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("group %d: %w", g.ID, ErrNotFound)
	}
	return nil
}

// DeleteGroup removes a group and its members.
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&GroupFile{}).Error; err != nil {
			return fmt.Errorf("delete members of group %d: %w", id, err)
		}
		res := tx.Delete(&FileGroup{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete group %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("group %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// FilesInGroup returns the members of a group.
func (s *Store) FilesInGroup(ctx context.Context, groupID int64) ([]GroupFile, error) {
	var gfs []GroupFile
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Order("id ASC").Find(&gfs).Error; err != nil {
		return nil, fmt.Errorf("files in group %d: %w", groupID, err)
	}
	return gfs, nil
}

// AddGroupFile adds a path to a group.
func (s *Store) AddGroupFile(ctx context.Context, groupID int64, path string) error {
	if err := s.db.WithContext(ctx).Create(&GroupFile{GroupID: groupID, FilePath: path}).Error; err != nil {
		return fmt.Errorf("add %s to group %d: %w", path, groupID, err)
	}
	return nil
}

// DeleteFilesFromGroup empties a group.
func (s *Store) DeleteFilesFromGroup(ctx context.Context, groupID int64) error {
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&GroupFile{}).Error; err != nil {
		return fmt.Errorf("empty group %d: %w", groupID, err)
	}
	return nil
}

// SaveGroup stores a group with its member paths in one transaction.
func (s *Store) SaveGroup(ctx context.Context, name *string, threshold int, paths []string) (FileGroup, error) {
	g := FileGroup{Name: name, Threshold: threshold}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&g).Error; err != nil {
			return err
		}
		if len(paths) == 0 {
			return nil
		}
		gfs := make([]GroupFile, 0, len(paths))
		for _, p := range paths {
			gfs = append(gfs, GroupFile{GroupID: g.ID, FilePath: p})
		}
		return tx.CreateInBatches(&gfs, inChunk/2).Error
	})
	if err != nil {
		return FileGroup{}, fmt.Errorf("save group of %d files: %w", len(paths), err)
	}
	return g, nil
}
