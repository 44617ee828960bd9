package configstore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	pkgconfig "github.com/SrinivasareddyGatla/open-commerce-search/pkg/config"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
)

const defaultDebounce = 500 * time.Millisecond

// FileStore reads the settings from one YAML file.
type FileStore struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewFileStore creates a store for the YAML file at path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, debounce: defaultDebounce, logger: logger}
}

// Load reads and validates the file.
func (s *FileStore) Load(_ context.Context) (*domain.Settings, error) {
	var settings domain.Settings
	if err := pkgconfig.LoadYAML(s.path, &settings); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := Validate(&settings); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return &settings, nil
}

// Watch calls onChange with the reloaded settings whenever the file
// changes, until ctx ends. Invalid versions are logged and skipped. The
// directory is watched so editors replacing the file are noticed.
func (s *FileStore) Watch(ctx context.Context, onChange func(*domain.Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.logger.Info("watching search settings", slog.String("path", s.path))

	reload := func() {
		settings, err := s.Load(ctx)
		if err != nil {
			s.logger.Error("reload search settings failed, keeping previous version",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.Info("search settings reloaded", slog.String("path", s.path))
		onChange(settings)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	name := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("settings watcher error", slog.String("error", err.Error()))
		}
	}
}
