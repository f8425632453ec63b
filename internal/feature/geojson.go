package feature

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

// Decode parses a GeoJSON FeatureCollection into features tagged with layer.
func Decode(data []byte, layer string) ([]*Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}
	return FromCollection(fc, layer), nil
}

// FromCollection converts an orb feature collection.
func FromCollection(fc *geojson.FeatureCollection, layer string) []*Feature {
	features := make([]*Feature, 0, len(fc.Features))
	for _, gf := range fc.Features {
		props := map[string]any(gf.Properties)
		if props == nil {
			props = map[string]any{}
		}
		features = append(features, &Feature{
			GID:        gidOf(gf),
			Layer:      layer,
			Properties: props,
			Geometry:   gf.Geometry,
		})
	}
	return features
}

// ToCollection converts features back into a GeoJSON collection. The gid is
// written into the properties so the browser can report it on hits.
func ToCollection(features []*Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		gf := geojson.NewFeature(f.Geometry)
		for k, v := range f.Properties {
			gf.Properties[k] = v
		}
		gf.Properties["gid"] = f.GID
		fc.Append(gf)
	}
	return fc
}

// gidOf reads the gid property, falling back to the feature id. Numbers
// arrive as float64 from JSON; numeric strings are accepted too.
func gidOf(gf *geojson.Feature) int {
	for _, v := range []any{gf.Properties["gid"], gf.ID} {
		switch t := v.(type) {
		case float64:
			return int(t)
		case int:
			return t
		case string:
			if n, err := strconv.Atoi(t); err == nil {
				return n
			}
		}
	}
	return 0
}

// ToMap returns copies of the features projected from WGS84 to Web Mercator.
// The inputs are left untouched.
func ToMap(features []*Feature) []*Feature {
	return reproject(features, project.WGS84.ToMercator)
}

// ToWGS84 returns copies of map-projected features in WGS84.
func ToWGS84(features []*Feature) []*Feature {
	return reproject(features, project.Mercator.ToWGS84)
}

func reproject(features []*Feature, proj orb.Projection) []*Feature {
	out := make([]*Feature, len(features))
	for i, f := range features {
		cp := *f
		if f.Geometry != nil {
			// project.Geometry mutates in place.
			cp.Geometry = project.Geometry(orb.Clone(f.Geometry), proj)
		}
		out[i] = &cp
	}
	return out
}

// PointToWGS84 unprojects a single map coordinate.
func PointToWGS84(p orb.Point) orb.Point {
	return project.Mercator.ToWGS84(p)
}

// PointToMap projects a single WGS84 coordinate.
func PointToMap(p orb.Point) orb.Point {
	return project.WGS84.ToMercator(p)
}
