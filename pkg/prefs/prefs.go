// Package prefs persists user settings as key-value pairs and notifies subscribers when they change.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

// Setting keys.
const (
	SelectedDirectory = "selected_directory"
	TimeThreshold     = "time_threshold"
	GroupByDate       = "group_by_date"
	DateType          = "date_type"
	SortBy            = "sort_by"
	SortAscending     = "sort_ascending"
	PageSize          = "page_size"
)

// Keys lists every setting key in display order.
var Keys = []string{SelectedDirectory, TimeThreshold, GroupByDate, DateType, SortBy, SortAscending, PageSize}

var (
	ErrUnknownKey   = errors.New("unknown setting")
	ErrInvalidValue = errors.New("invalid value")
)

// DateTypes and SortKeys are the accepted values for date_type and sort_by.
var (
	DateTypes = []string{"EXIF", "CREATE", "MODIFY"}
	SortKeys  = []string{"NAME", "DATE"}
)

var defaults = map[string]any{
	TimeThreshold: 3600,
	GroupByDate:   false,
	DateType:      "EXIF",
	SortBy:        "NAME",
	SortAscending: true,
	PageSize:      150,
}

// Settings is a snapshot of every preference.
type Settings struct {
	SelectedDirectory string `yaml:"selected_directory"`
	TimeThreshold     int    `yaml:"time_threshold"`
	GroupByDate       bool   `yaml:"group_by_date"`
	DateType          string `yaml:"date_type"`
	SortBy            string `yaml:"sort_by"`
	SortAscending     bool   `yaml:"sort_ascending"`
	PageSize          int    `yaml:"page_size"`
}

// Store is a YAML-backed preference store.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
	last Settings
	subs map[chan Settings]struct{}
	done chan struct{}
}

// Open loads the settings file at path, creating its directory if needed.
// A missing file yields the defaults.
func Open(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(abs)
	v.SetConfigType("yaml")
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if err := v.ReadInConfig(); err != nil && !notExist(err) {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}

	s := &Store{v: v, path: abs, subs: map[chan Settings]struct{}{}, done: make(chan struct{})}
	s.last = s.snapshot()
	klog.V(1).Infof("loaded settings from %s: %+v", abs, s.last)
	return s, nil
}

func notExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

// Path returns the location of the settings file.
func (s *Store) Path() string {
	return s.path
}

// Settings returns the current preferences.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Store) snapshot() Settings {
	return Settings{
		SelectedDirectory: s.v.GetString(SelectedDirectory),
		TimeThreshold:     s.v.GetInt(TimeThreshold),
		GroupByDate:       s.v.GetBool(GroupByDate),
		DateType:          strings.ToUpper(s.v.GetString(DateType)),
		SortBy:            strings.ToUpper(s.v.GetString(SortBy)),
		SortAscending:     s.v.GetBool(SortAscending),
		PageSize:          s.v.GetInt(PageSize),
	}
}

// Get returns the string form of a single setting.
func (s *Store) Get(key string) (string, error) {
	st := s.Settings()
	switch key {
	case SelectedDirectory:
		return st.SelectedDirectory, nil
	case TimeThreshold:
		return strconv.Itoa(st.TimeThreshold), nil
	case GroupByDate:
		return strconv.FormatBool(st.GroupByDate), nil
	case DateType:
		return st.DateType, nil
	case SortBy:
		return st.SortBy, nil
	case SortAscending:
		return strconv.FormatBool(st.SortAscending), nil
	case PageSize:
		return strconv.Itoa(st.PageSize), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Set parses raw according to the type of key and stores it.
func (s *Store) Set(key string, raw string) error {
	raw = strings.TrimSpace(raw)
	switch key {
	case SelectedDirectory:
		return s.SetSelectedDirectory(raw)
	case TimeThreshold, PageSize:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w for %s: %q", ErrInvalidValue, key, raw)
		}
		if key == PageSize {
			return s.SetPageSize(n)
		}
		return s.SetTimeThreshold(n)
	case GroupByDate, SortAscending:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w for %s: %q", ErrInvalidValue, key, raw)
		}
		if key == GroupByDate {
			return s.SetGroupByDate(b)
		}
		return s.SetSortAscending(b)
	case DateType:
		return s.SetDateType(raw)
	case SortBy:
		return s.SetSortBy(raw)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

func (s *Store) SetSelectedDirectory(dir string) error {
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("abs: %w", err)
		}
		dir = abs
	}
	return s.write(SelectedDirectory, dir)
}

func (s *Store) SetTimeThreshold(seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("%w for %s: %d is negative", ErrInvalidValue, TimeThreshold, seconds)
	}
	return s.write(TimeThreshold, seconds)
}

func (s *Store) SetGroupByDate(enabled bool) error {
	return s.write(GroupByDate, enabled)
}

func (s *Store) SetDateType(dt string) error {
	dt, err := oneOf(DateType, dt, DateTypes)
	if err != nil {
		return err
	}
	return s.write(DateType, dt)
}

func (s *Store) SetSortBy(by string) error {
	by, err := oneOf(SortBy, by, SortKeys)
	if err != nil {
		return err
	}
	return s.write(SortBy, by)
}

func (s *Store) SetSortAscending(ascending bool) error {
	return s.write(SortAscending, ascending)
}

func (s *Store) SetPageSize(n int) error {
	if n < 1 {
		return fmt.Errorf("%w for %s: %d is less than 1", ErrInvalidValue, PageSize, n)
	}
	return s.write(PageSize, n)
}

func oneOf(key string, v string, allowed []string) (string, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w for %s: %q (want one of %s)", ErrInvalidValue, key, v, strings.Join(allowed, ", "))
}

// write merges into the config layer rather than calling viper.Set, so a
// later re-read of the file is not shadowed by in-memory overrides.
func (s *Store) write(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.v.MergeConfigMap(map[string]any{key: value}); err != nil {
		return fmt.Errorf("merge %s: %w", key, err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	klog.V(1).Infof("set %s=%v", key, value)
	s.publish(s.snapshot())
	return nil
}

// publish records st and hands it to subscribers. Callers hold s.mu.
func (s *Store) publish(st Settings) {
	if st == s.last {
		return
	}
	s.last = st
	for c := range s.subs {
		// keep only the newest snapshot for slow readers
		select {
		case c <- st:
		default:
			select {
			case <-c:
			default:
			}
			select {
			case c <- st:
			default:
			}
		}
	}
}

// Subscribe returns a channel that receives a snapshot after every change.
// The channel is closed when ctx ends or the store is closed.
func (s *Store) Subscribe(ctx context.Context) <-chan Settings {
	c := make(chan Settings, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		close(c)
		return c
	default:
	}
	s.subs[c] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			s.unsubscribe(c)
		case <-s.done:
		}
	}()
	return c
}

func (s *Store) unsubscribe(c chan Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[c]; ok {
		delete(s.subs, c)
		close(c)
	}
}

// Reload re-reads the settings file and notifies subscribers if anything changed.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.v.ReadInConfig(); err != nil {
		if notExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	s.publish(s.snapshot())
	return nil
}

// Watch reloads the settings whenever the file is edited outside this process.
// It blocks until ctx ends.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	// editors often replace the file, so watch the directory
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				klog.V(1).Infof("settings event: %s", event)
				if err := s.Reload(); err != nil {
					klog.Warningf("reload settings: %v", err)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Warningf("settings watcher: %v", err)
		}
	}
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	for c := range s.subs {
		delete(s.subs, c)
		close(c)
	}
	return nil
}
