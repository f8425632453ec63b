package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/view"
)

const importFit = 1000 * time.Millisecond

// ImportedLayer is a layer created from a dropped file.
type ImportedLayer struct {
	ID        string             `json:"id"`
	Label     string             `json:"label"`
	Features  []*feature.Feature `json:"-"`
	Count     int                `json:"count"`
	CreatedAt time.Time          `json:"createdAt"`
}

// ImportController turns imported features into user layers. Layers live
// as long as the session.
type ImportController struct {
	engine view.Engine
	now    func() time.Time
	newID  func() string
	layers []ImportedLayer
}

func NewImportController(engine view.Engine, now func() time.Time) *ImportController {
	if now == nil {
		now = time.Now
	}
	return &ImportController{engine: engine, now: now, newID: uuid.NewString}
}

// Import adds one layer holding exactly features, given in map projection,
// and fits the camera to them. Labels have second precision and are not
// deduplicated.
func (c *ImportController) Import(features []*feature.Feature) (ImportedLayer, error) {
	if len(features) == 0 {
		return ImportedLayer{}, ErrEmptyImport
	}
	at := c.now()
	l := ImportedLayer{
		ID:        "user-" + c.newID(),
		Label:     "User " + at.Format("15:04:05"),
		Features:  features,
		Count:     len(features),
		CreatedAt: at,
	}
	for _, f := range features {
		f.Layer = l.Label
	}
	c.engine.AddLayer(view.Layer{ID: l.ID, Title: l.Label, Features: features, DisplayInSwitcher: true})
	c.layers = append(c.layers, l)

	if extent, ok := feature.UnionExtent(features); ok {
		c.engine.Fit(extent, view.FitOptions{Duration: importFit})
	}
	return l, nil
}

// Remove takes an imported layer off the map.
func (c *ImportController) Remove(id string) error {
	for i, l := range c.layers {
		if l.ID != id {
			continue
		}
		c.engine.RemoveLayer(id)
		c.layers = append(c.layers[:i], c.layers[i+1:]...)
		return nil
	}
	return ErrUnknownLayer
}

// Layers returns the imported layers in import order.
func (c *ImportController) Layers() []ImportedLayer {
	out := make([]ImportedLayer, len(c.layers))
	copy(out, c.layers)
	return out
}
