package session

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/project"

	"github.com/joeblew999/nycmap/internal/view"
)

// DrawState is the lifecycle of a polygon measurement.
type DrawState int

const (
	DrawIdle DrawState = iota
	DrawDrawing
)

// DrawLayerPolicy decides when the layer holding a measured polygon is
// taken off the map.
type DrawLayerPolicy string

const (
	// RemoveOnDismiss keeps the polygon until its notification is closed.
	RemoveOnDismiss DrawLayerPolicy = "remove_on_dismiss"
	// RemoveOnComplete removes the polygon as soon as it is measured.
	RemoveOnComplete DrawLayerPolicy = "remove_on_complete"
	// Keep leaves the polygon until the next draw starts.
	Keep DrawLayerPolicy = "keep"
)

// ParseDrawLayerPolicy parses a policy name. The empty string is
// RemoveOnDismiss.
func ParseDrawLayerPolicy(s string) (DrawLayerPolicy, error) {
	switch p := DrawLayerPolicy(s); p {
	case "":
		return RemoveOnDismiss, nil
	case RemoveOnDismiss, RemoveOnComplete, Keep:
		return p, nil
	}
	return "", fmt.Errorf("unknown draw layer policy %q", s)
}

// DrawSession runs one single-shot polygon measurement at a time.
type DrawSession struct {
	state  DrawState
	modes  *ModeController
	engine view.Engine
	note   *Notification
	policy DrawLayerPolicy

	seq         int
	interaction string
	// layer is the scratch layer on the map, if any. It outlives the
	// session according to policy.
	layer string
}

func NewDrawSession(modes *ModeController, engine view.Engine, note *Notification, policy DrawLayerPolicy) *DrawSession {
	if policy == "" {
		policy = RemoveOnDismiss
	}
	return &DrawSession{modes: modes, engine: engine, note: note, policy: policy}
}

// Start begins drawing. It reports false and does nothing when a drawing
// is already in progress.
func (d *DrawSession) Start() bool {
	d.modes.Set(ModeNone)
	if d.state == DrawDrawing {
		return false
	}
	if d.layer != "" {
		d.engine.RemoveLayer(d.layer)
		d.layer = ""
		d.note.Hide()
	}

	d.seq++
	d.layer = fmt.Sprintf("draw-layer-%d", d.seq)
	d.interaction = fmt.Sprintf("draw-%d", d.seq)
	d.engine.AddLayer(view.Layer{ID: d.layer, Title: "Drawing", DisplayInSwitcher: false})
	d.engine.AddInteraction(view.Interaction{ID: d.interaction, Kind: view.InteractionDrawPolygon, Layer: d.layer})
	d.state = DrawDrawing
	return true
}

// Complete measures the first finished polygon, given in map projection,
// shows its area and detaches the interaction. It returns the area in
// hectares.
func (d *DrawSession) Complete(polygon orb.Polygon) (float64, error) {
	if d.state != DrawDrawing {
		return 0, ErrNotDrawing
	}
	d.detach()

	ha := Hectares(polygon)
	d.note.Show(fmt.Sprintf("Polygon area: %.2f ha", ha))
	if d.policy == RemoveOnComplete {
		d.removeLayer()
	}
	return ha, nil
}

// Dismiss closes the area notification.
func (d *DrawSession) Dismiss() {
	d.note.Hide()
	if d.state == DrawIdle && d.policy == RemoveOnDismiss {
		d.removeLayer()
	}
}

// Cancel abandons a drawing in progress without measuring it. A polygon
// measured earlier is left to its policy.
func (d *DrawSession) Cancel() {
	if d.state != DrawDrawing {
		return
	}
	d.detach()
	d.removeLayer()
}

func (d *DrawSession) State() DrawState {
	return d.state
}

func (d *DrawSession) detach() {
	if d.interaction != "" {
		d.engine.RemoveInteraction(d.interaction)
		d.interaction = ""
	}
	d.state = DrawIdle
}

func (d *DrawSession) removeLayer() {
	if d.layer != "" {
		d.engine.RemoveLayer(d.layer)
		d.layer = ""
	}
}

// Hectares returns the geodesic area of a map-projected polygon.
func Hectares(polygon orb.Polygon) float64 {
	wgs := project.Polygon(polygon.Clone(), project.Mercator.ToWGS84)
	return math.Abs(geo.Area(wgs)) / 10000
}
