// Package view is the boundary to the map rendering engine. The engine
// itself runs in the browser; the session drives it through [Engine] and
// the web layer ships the recorded commands to the page.
package view

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/nycmap/internal/feature"
)

// Pixel is a screen position in CSS pixels.
type Pixel [2]float64

// Hit is one feature found at a pixel. For clustered layers Members holds
// the aggregated features; otherwise Members holds the feature itself.
type Hit struct {
	Layer   string
	Members []*feature.Feature
}

// FitOptions controls a camera fit to an extent.
type FitOptions struct {
	Padding  [4]float64    `json:"padding"`
	MaxZoom  float64       `json:"maxZoom,omitempty"`
	Duration time.Duration `json:"-"`
}

// Layer is a vector layer added at runtime.
type Layer struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Features          []*feature.Feature `json:"-"`
	DisplayInSwitcher bool               `json:"displayInSwitcher"`
}

// Interaction is an engine interaction such as polygon drawing.
type Interaction struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Layer string `json:"layer"`
}

// InteractionDrawPolygon draws a single polygon into Layer.
const InteractionDrawPolygon = "draw-polygon"

// Engine is what the session needs from the rendering engine.
type Engine interface {
	// FeaturesAtPixel returns the hits at px, topmost first.
	FeaturesAtPixel(px Pixel) []Hit
	Fit(extent orb.Bound, opts FitOptions)
	Animate(center orb.Point, duration time.Duration)
	AddLayer(l Layer)
	RemoveLayer(id string)
	AddInteraction(i Interaction)
	RemoveInteraction(id string)
	// Changed forces a repaint of the layer with the given title.
	Changed(layer string)
}
