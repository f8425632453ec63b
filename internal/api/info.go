package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir string
	dbOK    bool
	backend string
}

func NewInfoHandler(dataDir string, dbOK bool, backend string) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK, backend: backend}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether database is available"`
	Spatial  string   `json:"spatial" doc:"Spatial query backend" enum:"index,duckdb,remote"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"geojson", "spatial_data", "search", "draw", "import"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "nycmap",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Spatial:  h.backend,
		Features: features,
	}}, nil
}
