package service

import (
	"errors"
	"io/fs"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/joeblew999/nycmap/internal/config"
	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/session"
)

// DatasetService holds the loaded datasets. Features are kept in WGS84
// for the API; sessions get a copy projected to map coordinates.
type DatasetService struct {
	models map[string]config.Dataset
	wgs84  map[string][]*feature.Feature
	mapped session.Datasets
}

// LoadDatasets reads every configured dataset from sources. A missing
// source file leaves the dataset empty and is logged.
func LoadDatasets(sources *SourceService, datasets []config.Dataset, log zerolog.Logger) (*DatasetService, error) {
	s := &DatasetService{
		models: make(map[string]config.Dataset, len(datasets)),
		wgs84:  make(map[string][]*feature.Feature, len(datasets)),
		mapped: make(session.Datasets, len(datasets)),
	}
	for _, d := range datasets {
		features, err := sources.Load(d.Model, d.Title)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Warn().Str("model", d.Model).Str("path", sources.Path(d.Model)).Msg("dataset source missing")
		case err != nil:
			return nil, err
		default:
			log.Info().Str("model", d.Model).Int("features", len(features)).Msg("dataset loaded")
		}
		s.Add(d, features)
	}
	return s, nil
}

// Add registers the WGS84 features of a dataset, replacing any previous
// features of the same model.
func (s *DatasetService) Add(d config.Dataset, features []*feature.Feature) {
	s.models[d.Model] = d
	s.wgs84[d.Model] = features
	s.mapped[d.Title] = feature.NewCache(d.Title, feature.ToMap(features))
}

// Session returns the map-projected datasets keyed by layer title.
func (s *DatasetService) Session() session.Datasets {
	return s.mapped
}

// Features returns the WGS84 features of a model.
func (s *DatasetService) Features(model string) ([]*feature.Feature, bool) {
	f, ok := s.wgs84[model]
	return f, ok
}

// ByTitle returns the WGS84 features of the dataset with the given layer
// title.
func (s *DatasetService) ByTitle(title string) []*feature.Feature {
	for model, d := range s.models {
		if d.Title == title {
			return s.wgs84[model]
		}
	}
	return nil
}

// Counts returns the number of features per model.
func (s *DatasetService) Counts() map[string]int {
	counts := make(map[string]int, len(s.wgs84))
	for model, f := range s.wgs84 {
		counts[model] = len(f)
	}
	return counts
}

// Columns returns gid and every property name seen in a model, sorted.
func (s *DatasetService) Columns(model string) []string {
	seen := map[string]bool{"gid": true}
	for _, f := range s.wgs84[model] {
		for k := range f.Properties {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Filter returns the features of a model whose properties equal every
// filter value, compared as text.
func (s *DatasetService) Filter(model string, filters map[string]string) []*feature.Feature {
	var out []*feature.Feature
	for _, f := range s.wgs84[model] {
		if matches(f, filters) {
			out = append(out, f)
		}
	}
	return out
}

func matches(f *feature.Feature, filters map[string]string) bool {
	for k, want := range filters {
		got := f.String(k)
		if k == "gid" {
			got = strconv.Itoa(f.GID)
		}
		if got != want {
			return false
		}
	}
	return true
}
