// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/nycmap/internal/db"
	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/service"
	"github.com/joeblew999/nycmap/internal/spatial"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Layer    *service.LayerService
	Source   *service.SourceService
	Datasets *service.DatasetService
	// Store serves feature queries from DuckDB. Nil without a database, in
	// which case the loaded datasets are filtered in memory.
	Store   *db.Store
	Querier spatial.Querier
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Dataset model" example:"nyc_subway_stations"`
}

type LayerOutput struct {
	Body service.LayerConfig
}

type LayersOutput struct {
	Body []service.LayerConfig
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// FeaturesInput selects a dataset. Every query parameter is a filter: a
// feature matches when the named column equals the value.
type FeaturesInput struct {
	Model   string `path:"model" doc:"Dataset model" example:"nyc_subway_stations"`
	filters map[string]string
}

// Resolve collects the free-form filter parameters.
func (i *FeaturesInput) Resolve(ctx huma.Context) []error {
	q := ctx.URL().Query()
	i.filters = make(map[string]string, len(q))
	for k, v := range q {
		if len(v) > 0 {
			i.filters[k] = v[0]
		}
	}
	return nil
}

type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type SpatialInput struct {
	X float64 `query:"x" required:"true" doc:"Easting in EPSG:3857" example:"-8238310.24"`
	Y float64 `query:"y" required:"true" doc:"Northing in EPSG:3857" example:"4970071.58"`
}

type SpatialOutput struct {
	Body *spatial.Result
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers layer configuration routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Patch(api, "/api/v1/layers/{id}", h.PatchLayer, huma.OperationTags("layers"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// RegisterFeatures registers the dataset GeoJSON route.
func (h *APIHandler) RegisterFeatures(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-features",
		Method:      http.MethodGet,
		Path:        "/api/{model}/geojson",
		Summary:     "Get dataset features",
		Description: "Returns the features of a dataset as a GeoJSON FeatureCollection in WGS84. Any query parameter filters on the column of the same name.",
		Tags:        []string{"features"},
	}, h.GetFeatures)
}

// RegisterSpatial registers the spatial query route.
func (h *APIHandler) RegisterSpatial(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-spatial-data",
		Method:      http.MethodGet,
		Path:        "/api/spatial_data",
		Summary:     "Query around a point",
		Description: "Neighborhoods containing the point, the nearest subway station and the number of homicides nearby.",
		Tags:        []string{"features"},
	}, h.GetSpatialData)
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	if h.svc == nil || h.svc.Layer == nil {
		return &LayersOutput{Body: []service.LayerConfig{}}, nil
	}
	return &LayersOutput{Body: h.svc.Layer.List()}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	if h.svc == nil || h.svc.Layer == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	layer, ok := h.svc.Layer.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	return &LayerOutput{Body: layer}, nil
}

func (h *APIHandler) PatchLayer(ctx context.Context, input *struct {
	IDInput
	Body service.LayerPatch
}) (*LayerOutput, error) {
	if h.svc == nil || h.svc.Layer == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	updated, err := h.svc.Layer.Update(input.ID, input.Body)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &LayerOutput{Body: updated}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *FeaturesInput) (*GeoJSONOutput, error) {
	if h.svc == nil {
		return nil, modelNotFound(input.Model)
	}

	if h.svc.Store != nil {
		cols, err := h.svc.Store.Columns(ctx, input.Model)
		switch {
		case err == nil:
			if bad := db.InvalidFilters(cols, input.filters); len(bad) > 0 {
				return nil, invalidFilters(bad)
			}
			features, err := h.svc.Store.Features(ctx, input.Model, input.filters)
			if err != nil {
				return nil, huma.Error500InternalServerError("Query failed", err)
			}
			return geoJSON(features)
		case !errors.Is(err, db.ErrUnknownModel):
			return nil, huma.Error500InternalServerError("Query failed", err)
		}
	}

	if h.svc.Datasets == nil {
		return nil, modelNotFound(input.Model)
	}
	if _, ok := h.svc.Datasets.Features(input.Model); !ok {
		return nil, modelNotFound(input.Model)
	}
	if bad := db.InvalidFilters(h.svc.Datasets.Columns(input.Model), input.filters); len(bad) > 0 {
		return nil, invalidFilters(bad)
	}
	return geoJSON(h.svc.Datasets.Filter(input.Model, input.filters))
}

func (h *APIHandler) GetSpatialData(ctx context.Context, input *SpatialInput) (*SpatialOutput, error) {
	if h.svc == nil || h.svc.Querier == nil {
		return nil, huma.Error503ServiceUnavailable("Spatial query not available")
	}
	res, err := h.svc.Querier.Query(ctx, input.X, input.Y)
	if err != nil {
		return nil, huma.Error500InternalServerError("Spatial query failed", err)
	}
	return &SpatialOutput{Body: res}, nil
}

func geoJSON(features []*feature.Feature) (*GeoJSONOutput, error) {
	data, err := feature.ToCollection(features).MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("Encoding failed", err)
	}
	return &GeoJSONOutput{ContentType: "application/geo+json", Body: data}, nil
}

func modelNotFound(model string) error {
	return huma.Error404NotFound("Model '" + model + "' not found.")
}

func invalidFilters(names []string) error {
	return huma.Error400BadRequest("Invalid filter parameters: " + strings.Join(names, ", ") + ".")
}
