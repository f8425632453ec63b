package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/nycmap/internal/db"
)

// DBHandler handles database-related endpoints.
type DBHandler struct {
	store *db.Store
}

// NewDBHandler creates a new database handler. store may be nil.
func NewDBHandler(store *db.Store) *DBHandler {
	return &DBHandler{store: store}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("db"))
}

// Table is a dataset table and its filterable columns.
type Table struct {
	Name    string   `json:"name" doc:"Table name, equal to the dataset model" example:"nyc_subway_stations"`
	Columns []string `json:"columns" doc:"Non-geometry columns"`
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []Table `json:"tables" doc:"Dataset tables"`
	}
}

// ListTables returns the DuckDB dataset tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.store == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	names, err := h.store.Tables(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}

	out := &TablesOutput{}
	out.Body.Tables = []Table{}
	for _, name := range names {
		cols, err := h.store.Columns(ctx, name)
		if err != nil {
			continue
		}
		out.Body.Tables = append(out.Body.Tables, Table{Name: name, Columns: cols})
	}
	return out, nil
}
