package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/joeblew999/nycmap/internal/config"
	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/service"
	"github.com/joeblew999/nycmap/internal/spatial"
	"github.com/joeblew999/nycmap/internal/style"
)

const stationsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-74.011, 40.706]},
     "properties": {"gid": 1, "name": "Broad St", "color": "BROWN"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-73.977, 40.684]},
     "properties": {"gid": 2, "name": "Atlantic Av", "color": "ORANGE"}}
  ]
}`

type querierFunc func(ctx context.Context, x, y float64) (*spatial.Result, error)

func (f querierFunc) Query(ctx context.Context, x, y float64) (*spatial.Result, error) {
	return f(ctx, x, y)
}

func newTestAPI(t *testing.T, q spatial.Querier) http.Handler {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "sources")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "nyc_subway_stations.geojson"), []byte(stationsJSON), 0644); err != nil {
		t.Fatal(err)
	}

	datasets := []config.Dataset{
		{Model: "nyc_subway_stations", Title: feature.LayerSubway, GeomType: "point", ClusterDistance: 40, DefaultVisible: true},
		{Model: "nyc_neighborhoods", Title: feature.LayerNeighborhoods, GeomType: "polygon"},
	}
	sources := service.NewSourceService(dir)
	data, err := service.LoadDatasets(sources, datasets, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	cfg := huma.DefaultConfig("nycmap test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, LinkTransformer())
	humaAPI := humago.New(mux, cfg)
	huma.AutoRegister(humaAPI, NewAPIHandler(&Services{
		Layer:    service.NewLayerService(dir, datasets, data.Counts(), nil),
		Source:   sources,
		Datasets: data,
		Querier:  q,
	}))
	NewInfoHandler(dir, false, config.BackendIndex).RegisterRoutes(humaAPI)
	NewDBHandler(nil).RegisterRoutes(humaAPI)
	return mux
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndInfo(t *testing.T) {
	h := newTestAPI(t, nil)

	rec := do(h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body)
	}
	if links := rec.Header().Values("Link"); len(links) == 0 {
		t.Fatal("health: no Link headers")
	}

	rec = do(h, http.MethodGet, "/api/v1/info", "")
	var info InfoBody
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Name != "nycmap" || info.DB || info.Spatial != "index" {
		t.Fatalf("info=%+v", info)
	}
}

func TestLayers(t *testing.T) {
	h := newTestAPI(t, nil)

	rec := do(h, http.MethodGet, "/api/v1/layers", "")
	var layers []service.LayerConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &layers); err != nil {
		t.Fatalf("%v: %s", err, rec.Body)
	}
	if len(layers) != 2 || layers[0].ID != "nyc_subway_stations" || layers[0].Features != 2 {
		t.Fatalf("layers=%+v", layers)
	}
	if hl := layers[0].HighlightStyle; hl == nil || *hl != style.Highlighted {
		t.Fatalf("served highlight style=%+v", hl)
	}
	if c := layers[0].ClusterStyle; c == nil || c.Fill == "" {
		t.Fatalf("served cluster style=%+v", c)
	}

	rec = do(h, http.MethodGet, "/api/v1/layers/nyc_subway_stations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get layer: %d %s", rec.Code, rec.Body)
	}
	var edit bool
	for _, l := range rec.Header().Values("Link") {
		if strings.Contains(l, `rel="edit"`) && strings.Contains(l, `method="PATCH"`) {
			edit = true
		}
	}
	if !edit {
		t.Fatalf("no edit action in %v", rec.Header().Values("Link"))
	}

	if rec := do(h, http.MethodGet, "/api/v1/layers/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing layer: %d", rec.Code)
	}

	rec = do(h, http.MethodPatch, "/api/v1/layers/nyc_neighborhoods", `{"defaultVisible": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body)
	}
	var patched service.LayerConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &patched); err != nil {
		t.Fatal(err)
	}
	if !patched.DefaultVisible {
		t.Fatalf("patched=%+v", patched)
	}
}

func TestFeatures(t *testing.T) {
	h := newTestAPI(t, nil)

	rec := do(h, http.MethodGet, "/api/nyc_subway_stations/geojson", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("features: %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("content type=%q", ct)
	}
	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("features=%d, want 2", len(fc.Features))
	}

	rec = do(h, http.MethodGet, "/api/nyc_subway_stations/geojson?color=ORANGE", "")
	fc, err = geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 1 || fc.Features[0].Properties["name"] != "Atlantic Av" {
		t.Fatalf("filtered=%v", fc.Features)
	}
	// Still in degrees.
	if x := fc.Features[0].Point()[0]; x != -73.977 {
		t.Fatalf("x=%v", x)
	}
}

func TestFeaturesErrors(t *testing.T) {
	h := newTestAPI(t, nil)

	rec := do(h, http.MethodGet, "/api/nyc_subway_stations/geojson?zz=1&aa=2", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid filters: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid filter parameters: aa, zz.") {
		t.Fatalf("body=%s", rec.Body)
	}

	rec = do(h, http.MethodGet, "/api/nyc_census_blocks/geojson", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown model: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Model 'nyc_census_blocks' not found.") {
		t.Fatalf("body=%s", rec.Body)
	}
}

func TestSpatialData(t *testing.T) {
	var gotX, gotY float64
	h := newTestAPI(t, querierFunc(func(ctx context.Context, x, y float64) (*spatial.Result, error) {
		gotX, gotY = x, y
		return &spatial.Result{
			Neighborhoods:     []spatial.Neighborhood{{GID: 7}},
			Subway:            spatial.Subway{GID: 1, Distance: 12.5},
			NumberOfHomicides: 3,
		}, nil
	}))

	rec := do(h, http.MethodGet, "/api/spatial_data?x=-8238310.5&y=4970071.25", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("spatial: %d %s", rec.Code, rec.Body)
	}
	if gotX != -8238310.5 || gotY != 4970071.25 {
		t.Fatalf("query at %v,%v", gotX, gotY)
	}
	var res spatial.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Neighborhoods) != 1 || res.Neighborhoods[0].GID != 7 || res.Subway.GID != 1 || res.Subway.Distance != 12.5 || res.NumberOfHomicides != 3 {
		t.Fatalf("result=%+v", res)
	}

	if rec := do(h, http.MethodGet, "/api/spatial_data?x=1", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing y: %d", rec.Code)
	}
}

func TestSpatialDataFailures(t *testing.T) {
	h := newTestAPI(t, nil)
	if rec := do(h, http.MethodGet, "/api/spatial_data?x=1&y=2", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no querier: %d", rec.Code)
	}

	h = newTestAPI(t, querierFunc(func(ctx context.Context, x, y float64) (*spatial.Result, error) {
		return nil, errors.New("boom")
	}))
	if rec := do(h, http.MethodGet, "/api/spatial_data?x=1&y=2", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("failing querier: %d", rec.Code)
	}
}

func TestTablesWithoutDatabase(t *testing.T) {
	h := newTestAPI(t, nil)
	if rec := do(h, http.MethodGet, "/api/v1/tables", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("tables: %d", rec.Code)
	}
}
