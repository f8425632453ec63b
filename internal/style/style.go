// Package style decides how a rendered feature looks. For is a pure
// function of the feature and the current highlight, so the engine can
// re-evaluate it on every repaint without any bookkeeping.
package style

import (
	"strconv"

	"github.com/joeblew999/nycmap/internal/feature"
)

// Style is a renderable description understood by the browser engine.
type Style struct {
	Kind        string  `json:"kind" doc:"circle, icon or shape"`
	Radius      float64 `json:"radius,omitempty"`
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	IconScale   float64 `json:"iconScale,omitempty"`
	Text        string  `json:"text,omitempty"`
	TextFill    string  `json:"textFill,omitempty"`
}

// Highlight is the state the style decision reads. Set is false when no
// feature is highlighted.
type Highlight struct {
	GID int  `json:"gid"`
	Set bool `json:"set"`
}

// Is reports whether gid is the highlighted feature.
func (h Highlight) Is(gid int) bool {
	return h.Set && h.GID == gid
}

// Highlighted is the override applied to the highlighted station.
var Highlighted = Style{Kind: "circle", Radius: 8, Fill: "yellow", Stroke: "red", StrokeWidth: 2}

// Default is used for the non-clustered vector layers.
var Default = Style{
	Kind:        "shape",
	Radius:      7,
	Fill:        "rgba(84,118,255,1)",
	Stroke:      "rgba(84,118,255,1)",
	StrokeWidth: 1.2,
}

// DefaultPoint is the point marker of Default.
var DefaultPoint = Style{Kind: "circle", Radius: 7, Fill: "rgba(245,49,5,1)", Stroke: "rgba(84,118,255,1)", StrokeWidth: 1.2}

const (
	subwayIcon   = "/static/icons/train-subway-solid.png"
	homicideIcon = "/static/icons/skull-crossbones-solid.png"
)

// For returns the style of a rendered feature. members are the features
// aggregated into the rendered marker; a non-clustered feature is passed as
// a single member.
func For(layer string, members []*feature.Feature, h Highlight) Style {
	switch layer {
	case feature.LayerSubway:
		if len(members) == 1 {
			if h.Is(members[0].GID) {
				return Highlighted
			}
			return Style{Kind: "icon", Icon: subwayIcon, IconScale: 0.04, Fill: "#FFFFFF"}
		}
		return cluster(len(members), "rgb(0, 0, 0)")
	case feature.LayerHomicides:
		if len(members) == 1 {
			return Style{Kind: "icon", Icon: homicideIcon, IconScale: 0.04, Fill: "#FFFFFF"}
		}
		return cluster(len(members), "rgb(255, 0, 0)")
	default:
		return Default
	}
}

func cluster(size int, fill string) Style {
	return Style{
		Kind:        "circle",
		Radius:      10,
		Fill:        fill,
		Stroke:      "#fff",
		StrokeWidth: 1,
		Text:        strconv.Itoa(size),
		TextFill:    "#fff",
	}
}
