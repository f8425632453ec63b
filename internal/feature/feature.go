// Package feature holds the geographic feature model shared by the map
// session, the spatial index and the REST API.
//
// Features decoded from GeoJSON are in WGS84 (EPSG:4326). The map engine
// works in Web Mercator (EPSG:3857); use [ToMap] to obtain map-projected
// copies before handing features to a session.
package feature

import (
	"fmt"
	"html"
	"strconv"

	"github.com/paulmach/orb"
)

// Layer titles of the datasets shown on the map. The engine reports hits
// by title, so these double as join keys for the click formatting table.
const (
	LayerStreets       = "Streets"
	LayerSubway        = "Subway stations"
	LayerHomicides     = "Homicides"
	LayerNeighborhoods = "Neighborhoods"
)

// Feature is a single geographic feature with its properties.
type Feature struct {
	GID        int            `json:"gid"`
	Layer      string         `json:"layer,omitempty"`
	Properties map[string]any `json:"properties"`
	Geometry   orb.Geometry   `json:"-"`
}

// String returns the property as display text, or "" when absent.
func (f *Feature) String(key string) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	v, ok := f.Properties[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Escaped returns the property HTML-escaped for use in overlay markup.
func (f *Feature) Escaped(key string) string {
	return html.EscapeString(f.String(key))
}

// Extent returns the bounding rectangle of the feature geometry.
func (f *Feature) Extent() orb.Bound {
	if f == nil || f.Geometry == nil {
		return orb.Bound{}
	}
	return f.Geometry.Bound()
}

// Anchor returns the point used to centre the camera on the feature:
// the coordinate itself for points, the extent centre otherwise.
func (f *Feature) Anchor() orb.Point {
	if p, ok := f.Geometry.(orb.Point); ok {
		return p
	}
	return f.Extent().Center()
}

// UnionExtent returns the union of all feature extents. ok is false when
// no feature carries a geometry.
func UnionExtent(features []*Feature) (b orb.Bound, ok bool) {
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if !ok {
			b, ok = f.Extent(), true
			continue
		}
		b = b.Union(f.Extent())
	}
	return b, ok
}
