package session

import (
	"fmt"
	"html"

	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/spatial"
	"github.com/joeblew999/nycmap/internal/view"
)

// Popup text that does not come from feature data.
const (
	TitleQueryFailed         = "Error while retrieving data"
	TitleNoNeighborhoods     = "No neighborhoods"
	TitleUnknownNeighborhood = "Unknown neighborhood"
	TitleUnknownLayer        = "Unknown layer"
	TitleHomicide            = "Homicide"
	BodyNoInfo               = "No additional info"
	UnknownStation           = "Unknown station"
)

// FormatHit returns the popup text for a feature found in features mode.
// Feature values are HTML-escaped; the <br> separators are markup.
func FormatHit(h view.Hit) (title, body string) {
	if h.Layer == "" {
		return TitleUnknownLayer, BodyNoInfo
	}
	if len(h.Members) == 0 {
		// The gid is not in the layer's cache.
		return html.EscapeString(h.Layer), BodyNoInfo
	}
	f := h.Members[0]
	switch h.Layer {
	case feature.LayerStreets:
		return f.Escaped("name"), "One way: " + f.Escaped("oneway") + "<br>Type: " + f.Escaped("type")
	case feature.LayerSubway:
		return f.Escaped("name"), "Color: " + f.Escaped("color")
	case feature.LayerHomicides:
		return TitleHomicide, "Incident date: " + f.Escaped("incident_d")
	case feature.LayerNeighborhoods:
		return f.Escaped("boroname"), "Name: " + f.Escaped("name")
	default:
		return html.EscapeString(h.Layer), BodyNoInfo
	}
}

// FormatSpatial returns the popup text for a spatial query result, naming
// the returned gids through the local caches.
func FormatSpatial(res *spatial.Result, neighborhoods, subway *feature.Cache) (title, body string) {
	switch {
	case len(res.Neighborhoods) == 0:
		title = TitleNoNeighborhoods
	default:
		if n, ok := neighborhoods.Get(res.Neighborhoods[0].GID); ok {
			title = n.Escaped("boroname") + "<br>" + n.Escaped("name")
		} else {
			title = TitleUnknownNeighborhood
		}
	}

	station := UnknownStation
	if s, ok := subway.Get(res.Subway.GID); ok {
		station = s.Escaped("name")
	}
	body = fmt.Sprintf("Nearby homicides: %d<br>Subway: %s<br>Distance: %.2fm",
		res.NumberOfHomicides, station, float64(res.Subway.Distance))
	return title, body
}
