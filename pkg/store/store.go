// Package store keeps labels, file-label assignments and saved file groups in a local sqlite database.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"k8s.io/klog/v2"
)

// DriverName is the pure-Go sqlite driver registered by glebarez/go-sqlite.
const DriverName = "sqlite"

// ErrNotFound is returned when a label or group does not exist.
var ErrNotFound = errors.New("not found")

// Label is a user-defined tag. Names are expected, not required, to be unique.
type Label struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Label) TableName() string { return "labels" }

// FileLabel assigns a label to a file path. Paths are not checked against the filesystem.
type FileLabel struct {
	ID         int64     `gorm:"primaryKey"`
	FilePath   string    `gorm:"not null;index:idx_file_labels_path"`
	LabelID    int64     `gorm:"not null;index:idx_file_labels_label"`
	AssignedAt time.Time `gorm:"autoCreateTime"`
}

func (FileLabel) TableName() string { return "file_labels" }

// FileGroup is a saved time group.
type FileGroup struct {
	ID        int64 `gorm:"primaryKey"`
	Name      *string
	Threshold int
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (FileGroup) TableName() string { return "file_groups" }

// GroupFile is a member of a FileGroup.
type GroupFile struct {
	ID       int64  `gorm:"primaryKey"`
	GroupID  int64  `gorm:"not null;index:idx_group_files_group"`
	FilePath string `gorm:"not null"`
}

func (GroupFile) TableName() string { return "group_files" }

// Store is the label database.
type Store struct {
	db   *gorm.DB
	path string
}

// Open opens (creating if necessary) the database at path and migrates its schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: DriverName, DSN: dsn}), &gorm.Config{
		Logger: newLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	// a single local writer; serialize rather than fight over locks
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Label{}, &FileLabel{}, &FileGroup{}, &GroupFile{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	klog.V(1).Infof("opened label store at %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type klogWriter struct{}

func (klogWriter) Printf(format string, args ...any) {
	klog.Warningf(format, args...)
}

func newLogger() logger.Interface {
	level := logger.Warn
	if klog.V(2).Enabled() {
		level = logger.Info
	}
	return logger.New(klogWriter{}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("get %s %d: %w", what, id, err)
}
