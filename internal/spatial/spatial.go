// Package spatial is the contract of the spatial-query service the map
// asks about a clicked point: which neighborhood contains it, the nearest
// subway station and how many homicides happened nearby.
//
// Coordinates on the wire are in the map projection (EPSG:3857).
package spatial

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
)

// Querier answers a spatial query at a map coordinate.
type Querier interface {
	Query(ctx context.Context, x, y float64) (*Result, error)
}

// Result is the response of GET /api/spatial_data.
type Result struct {
	// Neighborhoods is absent when the point lies outside every
	// neighborhood.
	Neighborhoods     []Neighborhood `json:"neighborhoods,omitempty"`
	Subway            Subway         `json:"subway"`
	NumberOfHomicides int            `json:"number_of_homicides"`
}

type Neighborhood struct {
	GID int `json:"neighborhood_gid"`
}

type Subway struct {
	GID      int      `json:"subway_gid"`
	Distance Distance `json:"subway_distance"`
}

// Distance is a length in metres. Backends send it either as a JSON number
// or as a numeric string.
type Distance float64

func (d *Distance) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = 0
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		var err error
		if s, err = strconv.Unquote(s); err != nil {
			return fmt.Errorf("subway_distance: %w", err)
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("subway_distance: %w", err)
	}
	*d = Distance(f)
	return nil
}
