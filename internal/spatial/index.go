package spatial

import (
	"context"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/nycmap/internal/feature"
)

// DefaultHomicideRadius is the radius, in metres, homicides are counted in.
const DefaultHomicideRadius = 500.0

// Index answers spatial queries from features held in memory. Features are
// expected in WGS84.
type Index struct {
	neighborhoods []*feature.Feature
	subway        []*feature.Feature
	homicides     []*feature.Feature
	radius        float64
}

// NewIndex builds an index. A radius <= 0 uses DefaultHomicideRadius.
func NewIndex(neighborhoods, subway, homicides []*feature.Feature, radius float64) *Index {
	if radius <= 0 {
		radius = DefaultHomicideRadius
	}
	return &Index{
		neighborhoods: neighborhoods,
		subway:        subway,
		homicides:     homicides,
		radius:        radius,
	}
}

func (ix *Index) Query(ctx context.Context, x, y float64) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := feature.PointToWGS84(orb.Point{x, y})

	res := &Result{}
	for _, n := range ix.neighborhoods {
		if contains(n.Geometry, p) {
			res.Neighborhoods = append(res.Neighborhoods, Neighborhood{GID: n.GID})
		}
	}

	best := math.Inf(1)
	for _, s := range ix.subway {
		if s.Geometry == nil {
			continue
		}
		if d := geo.Distance(p, s.Anchor()); d < best {
			best = d
			res.Subway = Subway{GID: s.GID, Distance: Distance(d)}
		}
	}

	for _, h := range ix.homicides {
		if h.Geometry == nil {
			continue
		}
		if geo.Distance(p, h.Anchor()) <= ix.radius {
			res.NumberOfHomicides++
		}
	}
	return res, nil
}

func contains(g orb.Geometry, p orb.Point) bool {
	switch t := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(t, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(t, p)
	}
	return false
}

var _ Querier = (*Index)(nil)
