package view

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/nycmap/internal/feature"
)

// Command operations, as understood by the page script.
const (
	OpFit               = "fit"
	OpAnimate           = "animate"
	OpAddLayer          = "addLayer"
	OpRemoveLayer       = "removeLayer"
	OpAddInteraction    = "addInteraction"
	OpRemoveInteraction = "removeInteraction"
	OpChanged           = "changed"
)

// Command is one recorded engine call.
type Command struct {
	Op          string          `json:"op"`
	Extent      *[4]float64     `json:"extent,omitempty"`
	Center      *orb.Point      `json:"center,omitempty"`
	Fit         *FitOptions     `json:"fit,omitempty"`
	DurationMS  int64           `json:"durationMs,omitempty"`
	Layer       *Layer          `json:"layer,omitempty"`
	GeoJSON     json.RawMessage `json:"geojson,omitempty"`
	Interaction *Interaction    `json:"interaction,omitempty"`
	ID          string          `json:"id,omitempty"`
}

// Recorder implements Engine by recording commands. Hits are supplied by
// the browser, which does the pixel hit testing, through SetHits.
type Recorder struct {
	commands     []Command
	hits         map[Pixel][]Hit
	layers       map[string]Layer
	interactions map[string]Interaction
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		hits:         map[Pixel][]Hit{},
		layers:       map[string]Layer{},
		interactions: map[string]Interaction{},
	}
}

// SetHits records what the engine found at px, topmost first.
func (r *Recorder) SetHits(px Pixel, hits []Hit) {
	r.hits[px] = hits
}

func (r *Recorder) FeaturesAtPixel(px Pixel) []Hit {
	return r.hits[px]
}

func (r *Recorder) Fit(extent orb.Bound, opts FitOptions) {
	e := [4]float64{extent.Min[0], extent.Min[1], extent.Max[0], extent.Max[1]}
	r.commands = append(r.commands, Command{Op: OpFit, Extent: &e, Fit: &opts, DurationMS: opts.Duration.Milliseconds()})
}

func (r *Recorder) Animate(center orb.Point, duration time.Duration) {
	r.commands = append(r.commands, Command{Op: OpAnimate, Center: &center, DurationMS: duration.Milliseconds()})
}

func (r *Recorder) AddLayer(l Layer) {
	r.layers[l.ID] = l
	cmd := Command{Op: OpAddLayer, Layer: &l}
	if len(l.Features) > 0 {
		// Geometries are already in map projection; the page reads them as such.
		if data, err := feature.ToCollection(l.Features).MarshalJSON(); err == nil {
			cmd.GeoJSON = data
		}
	}
	r.commands = append(r.commands, cmd)
}

func (r *Recorder) RemoveLayer(id string) {
	if _, ok := r.layers[id]; !ok {
		return
	}
	delete(r.layers, id)
	r.commands = append(r.commands, Command{Op: OpRemoveLayer, ID: id})
}

func (r *Recorder) AddInteraction(i Interaction) {
	r.interactions[i.ID] = i
	r.commands = append(r.commands, Command{Op: OpAddInteraction, Interaction: &i})
}

func (r *Recorder) RemoveInteraction(id string) {
	if _, ok := r.interactions[id]; !ok {
		return
	}
	delete(r.interactions, id)
	r.commands = append(r.commands, Command{Op: OpRemoveInteraction, ID: id})
}

func (r *Recorder) Changed(layer string) {
	r.commands = append(r.commands, Command{Op: OpChanged, ID: layer})
}

// Drain returns the commands recorded since the last call and resets the
// queue. Hits are per input event and are dropped too.
func (r *Recorder) Drain() []Command {
	out := r.commands
	r.commands = nil
	clear(r.hits)
	return out
}

// Pending returns the recorded commands without draining them.
func (r *Recorder) Pending() []Command {
	return r.commands
}

// Interactions returns the number of attached interactions.
func (r *Recorder) Interactions() int {
	return len(r.interactions)
}

// Layers returns the runtime layers currently on the map.
func (r *Recorder) Layers() []Layer {
	out := make([]Layer, 0, len(r.layers))
	for _, l := range r.layers {
		out = append(out, l)
	}
	return out
}

// HasLayer reports whether a runtime layer is on the map.
func (r *Recorder) HasLayer(id string) bool {
	_, ok := r.layers[id]
	return ok
}

var _ Engine = (*Recorder)(nil)
