// Package service contains the dataset logic behind the map: layer
// configuration, source files and change events.
package service

import (
	"github.com/joeblew999/nycmap/internal/humastar"
	"github.com/joeblew999/nycmap/internal/style"
)

// LayerConfig is how one dataset is shown on the map.
// Huma reads the tags for OpenAPI and validation.
type LayerConfig struct {
	ID              string       `json:"id" doc:"Dataset model name" example:"nyc_subway_stations"`
	Title           string       `json:"title" doc:"Layer title; hits are reported by title" example:"Subway stations"`
	GeomType        string       `json:"geomType" enum:"polygon,line,point" doc:"Geometry type" example:"point"`
	ClusterDistance int          `json:"clusterDistance,omitempty" minimum:"0" doc:"Cluster distance in pixels; 0 disables clustering" example:"40"`
	DefaultVisible  bool         `json:"defaultVisible" doc:"Whether the layer is visible once loaded" example:"true"`
	Fill            string       `json:"fill,omitempty" doc:"Fill color (CSS)" example:"rgba(84,118,255,1)"`
	Stroke          string       `json:"stroke,omitempty" doc:"Stroke color (CSS)" example:"rgba(84,118,255,1)"`
	Style           style.Style  `json:"style" doc:"Style of a single unclustered feature"`
	ClusterStyle    *style.Style `json:"clusterStyle,omitempty" doc:"Style of a cluster marker; text is the member count"`
	HighlightStyle  *style.Style `json:"highlightStyle,omitempty" doc:"Style of the highlighted feature, if the layer can be highlighted"`
	Features        int          `json:"features" doc:"Number of loaded features"`
}

var layerActions = []humastar.ActionDef{
	{Rel: "edit", Pattern: "/api/v1/layers/%s", Method: "PATCH", Title: "Edit layer"},
	{Rel: "features", Pattern: "/api/%s/geojson", Method: "GET", Title: "Layer features", Type: "application/geo+json"},
}

// Actions implements humastar.Actor.
func (l LayerConfig) Actions() []humastar.Action {
	return humastar.ActionsFor(l.ID, layerActions)
}

// LayerPatch changes the display settings of a layer.
type LayerPatch struct {
	DefaultVisible  *bool   `json:"defaultVisible,omitempty" doc:"Whether the layer is visible once loaded"`
	ClusterDistance *int    `json:"clusterDistance,omitempty" minimum:"0" doc:"Cluster distance in pixels"`
	Fill            *string `json:"fill,omitempty" doc:"Fill color (CSS)"`
	Stroke          *string `json:"stroke,omitempty" doc:"Stroke color (CSS)"`
}

// SourceFile represents a source data file (GeoJSON, etc.).
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"nyc_streets.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON"`
}
