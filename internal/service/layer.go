package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joeblew999/nycmap/internal/config"
	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/style"
)

// LayerService manages the display configuration of the dataset layers.
// Configured values are the base; patches made through the API are kept
// in layers.json under the data directory.
type LayerService struct {
	dataDir string
	order   []string
	layers  map[string]LayerConfig
	patches map[string]LayerPatch
	bus     *EventBus
	mu      sync.RWMutex
}

// NewLayerService builds the layers of the configured datasets. counts
// holds the number of loaded features per model.
func NewLayerService(dataDir string, datasets []config.Dataset, counts map[string]int, bus *EventBus) *LayerService {
	s := &LayerService{
		dataDir: dataDir,
		layers:  make(map[string]LayerConfig, len(datasets)),
		patches: make(map[string]LayerPatch),
		bus:     bus,
	}
	for _, d := range datasets {
		s.order = append(s.order, d.Model)
		s.layers[d.Model] = LayerConfig{
			ID:              d.Model,
			Title:           d.Title,
			GeomType:        d.GeomType,
			ClusterDistance: d.ClusterDistance,
			DefaultVisible:  d.DefaultVisible,
			Fill:            d.Fill,
			Stroke:          d.Stroke,
			Features:        counts[d.Model],
		}
	}
	s.loadFromDisk()
	for id, p := range s.patches {
		if l, ok := s.layers[id]; ok {
			s.layers[id] = applyPatch(l, p)
		}
	}
	for id, l := range s.layers {
		applyStyles(&l)
		s.layers[id] = l
	}
	return s
}

// List returns the layers in configuration order.
func (s *LayerService) List() []LayerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]LayerConfig, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.layers[id])
	}
	return result
}

// Get returns a layer by ID.
func (s *LayerService) Get(id string) (LayerConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layer, ok := s.layers[id]
	return layer, ok
}

// Update applies a patch to a layer and persists it.
func (s *LayerService) Update(id string, patch LayerPatch) (LayerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layer, exists := s.layers[id]
	if !exists {
		return LayerConfig{}, fmt.Errorf("layer %q not found", id)
	}

	layer = applyPatch(layer, patch)
	applyStyles(&layer)
	s.layers[id] = layer
	s.patches[id] = mergePatch(s.patches[id], patch)
	if err := s.saveToDisk(); err != nil {
		return LayerConfig{}, err
	}

	s.bus.Publish(Event{Resource: "layers", Action: "updated", ID: id})
	return layer, nil
}

func applyPatch(l LayerConfig, p LayerPatch) LayerConfig {
	if p.DefaultVisible != nil {
		l.DefaultVisible = *p.DefaultVisible
	}
	if p.ClusterDistance != nil {
		l.ClusterDistance = *p.ClusterDistance
	}
	if p.Fill != nil {
		l.Fill = *p.Fill
	}
	if p.Stroke != nil {
		l.Stroke = *p.Stroke
	}
	return l
}

func mergePatch(old, p LayerPatch) LayerPatch {
	if p.DefaultVisible != nil {
		old.DefaultVisible = p.DefaultVisible
	}
	if p.ClusterDistance != nil {
		old.ClusterDistance = p.ClusterDistance
	}
	if p.Fill != nil {
		old.Fill = p.Fill
	}
	if p.Stroke != nil {
		old.Stroke = p.Stroke
	}
	return old
}

// applyStyles fills the styles the browser draws the layer with, each
// taken from style.For so the engine renders the same decisions.
func applyStyles(l *LayerConfig) {
	l.Style = layerStyle(*l)
	l.ClusterStyle, l.HighlightStyle = nil, nil

	one := []*feature.Feature{{GID: 1, Layer: l.Title}}
	plain := style.For(l.Title, one, style.Highlight{})
	if hl := style.For(l.Title, one, style.Highlight{GID: 1, Set: true}); hl != plain {
		l.HighlightStyle = &hl
	}
	if l.ClusterDistance > 0 {
		pair := []*feature.Feature{{GID: 1, Layer: l.Title}, {GID: 2, Layer: l.Title}}
		if c := style.For(l.Title, pair, style.Highlight{}); c != plain {
			c.Text = ""
			l.ClusterStyle = &c
		}
	}
}

// layerStyle is the style of one unclustered, unhighlighted feature.
func layerStyle(l LayerConfig) style.Style {
	st := style.For(l.Title, []*feature.Feature{{Layer: l.Title}}, style.Highlight{})
	if st.Kind == "icon" {
		return st
	}
	if l.GeomType == "point" {
		st = style.DefaultPoint
	}
	if l.Fill != "" {
		st.Fill = l.Fill
	}
	if l.Stroke != "" {
		st.Stroke = l.Stroke
	}
	return st
}

// configFile returns the path to the layer patches file.
func (s *LayerService) configFile() string {
	return filepath.Join(s.dataDir, "layers.json")
}

// loadFromDisk loads layer patches from disk.
func (s *LayerService) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // File doesn't exist yet
	}

	var patches map[string]LayerPatch
	if err := json.Unmarshal(data, &patches); err != nil {
		return // Invalid JSON, use configured values
	}

	s.patches = patches
}

// saveToDisk persists layer patches to disk.
func (s *LayerService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.patches, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configFile(), data, 0644)
}
