package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	pkgconfig "github.com/SrinivasareddyGatla/open-commerce-search/pkg/config"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/domain"
)

// fileContents is the layout of a suggest data file.
type fileContents struct {
	Indexes map[string][]domain.Record `yaml:"indexes"`
}

// FileSource reads records from a YAML file. The file is read on every
// Load so that refreshes pick up edits.
type FileSource struct {
	path   string
	logger *slog.Logger
}

var _ Source = (*FileSource)(nil)

// NewFileSource creates a source for the YAML file at path.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

// Load implements Source.
func (s *FileSource) Load(_ context.Context, index string) ([]domain.Record, error) {
	var contents fileContents
	if err := pkgconfig.LoadYAML(s.path, &contents); err != nil {
		return nil, fmt.Errorf("load suggest data: %w", err)
	}
	return valid(index, slices.Clone(contents.Indexes[index]), s.logger), nil
}

// Indexes lists the indexes defined in the file.
func (s *FileSource) Indexes(_ context.Context) ([]string, error) {
	var contents fileContents
	if err := pkgconfig.LoadYAML(s.path, &contents); err != nil {
		return nil, fmt.Errorf("load suggest data: %w", err)
	}
	names := make([]string, 0, len(contents.Indexes))
	for name := range contents.Indexes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
