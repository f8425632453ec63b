package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeblew999/nycmap/internal/feature"
)

// SourceService manages source data files.
type SourceService struct {
	sourcesDir string
}

// NewSourceService creates a new source service.
func NewSourceService(dataDir string) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
	}
}

// List returns all available source files.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	extToType := map[string]string{
		".geojson": "GeoJSON",
		".json":    "GeoJSON",
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		fileType, ok := extToType[ext]
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, SourceFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}

	return files, nil
}

// Path returns the source file of a model.
func (s *SourceService) Path(model string) string {
	return filepath.Join(s.sourcesDir, model+".geojson")
}

// Load decodes the source file of a model into WGS84 features tagged with
// layer.
func (s *SourceService) Load(model, layer string) ([]*feature.Feature, error) {
	data, err := os.ReadFile(s.Path(model))
	if err != nil {
		return nil, err
	}
	features, err := feature.Decode(data, layer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", model, err)
	}
	return features, nil
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
