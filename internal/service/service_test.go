package service

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeblew999/nycmap/internal/config"
	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/style"
)

const stationsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-74.011, 40.706]},
     "properties": {"gid": 1, "name": "Broad St", "routes": "J-Z", "color": "BROWN"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-73.977, 40.684]},
     "properties": {"gid": 2, "name": "Atlantic Av", "routes": "B-Q", "color": "ORANGE"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-73.991, 40.730]},
     "properties": {"gid": 3, "name": "Astor Pl", "routes": "4-6", "color": "GREEN"}}
  ]
}`

func writeSource(t *testing.T, dir, name, body string) {
	t.Helper()
	src := filepath.Join(dir, "sources")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, name), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func testDatasets() []config.Dataset {
	return []config.Dataset{
		{Model: "nyc_subway_stations", Title: feature.LayerSubway, GeomType: "point", ClusterDistance: 40, DefaultVisible: true},
		{Model: "nyc_streets", Title: feature.LayerStreets, GeomType: "line", DefaultVisible: true, Stroke: "#333"},
	}
}

func TestLoadDatasets(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "nyc_subway_stations.geojson", stationsJSON)

	ds, err := LoadDatasets(NewSourceService(dir), testDatasets(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	stations, ok := ds.Features("nyc_subway_stations")
	if !ok || len(stations) != 3 {
		t.Fatalf("stations=%d ok=%v, want 3", len(stations), ok)
	}
	if stations[0].Layer != feature.LayerSubway {
		t.Fatalf("layer=%q", stations[0].Layer)
	}
	// Session copies are projected; the API copy stays in degrees.
	if p := stations[0].Geometry.Bound().Min; p[0] > -70 {
		t.Fatalf("wgs84 copy was projected: %v", p)
	}
	mapped, ok := ds.Session()[feature.LayerSubway].Get(1)
	if !ok {
		t.Fatal("station 1 missing from session datasets")
	}
	if p := mapped.Anchor(); p[0] > -8000000 || p[0] < -8300000 {
		t.Fatalf("mapped x=%v, want web mercator", p[0])
	}

	// A missing source leaves an empty dataset.
	if streets, ok := ds.Features("nyc_streets"); !ok || len(streets) != 0 {
		t.Fatalf("streets=%v ok=%v", streets, ok)
	}
	if got := ds.Counts(); got["nyc_subway_stations"] != 3 || got["nyc_streets"] != 0 {
		t.Fatalf("counts=%v", got)
	}
	if got := ds.ByTitle(feature.LayerSubway); len(got) != 3 {
		t.Fatalf("by title=%d", len(got))
	}
}

func TestLoadDatasetsInvalidSource(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "nyc_subway_stations.geojson", "{not json")

	if _, err := LoadDatasets(NewSourceService(dir), testDatasets(), zerolog.Nop()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestColumnsAndFilter(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "nyc_subway_stations.geojson", stationsJSON)
	ds, err := LoadDatasets(NewSourceService(dir), testDatasets()[:1], zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	cols := ds.Columns("nyc_subway_stations")
	if !reflect.DeepEqual(cols, []string{"color", "gid", "name", "routes"}) {
		t.Fatalf("columns=%v", cols)
	}

	got := ds.Filter("nyc_subway_stations", map[string]string{"color": "GREEN"})
	if len(got) != 1 || got[0].GID != 3 {
		t.Fatalf("filter color=%v", got)
	}
	got = ds.Filter("nyc_subway_stations", map[string]string{"gid": "2"})
	if len(got) != 1 || got[0].String("name") != "Atlantic Av" {
		t.Fatalf("filter gid=%v", got)
	}
	if got := ds.Filter("nyc_subway_stations", nil); len(got) != 3 {
		t.Fatalf("no filters=%d, want 3", len(got))
	}
	if got := ds.Filter("nyc_subway_stations", map[string]string{"color": "RED"}); len(got) != 0 {
		t.Fatalf("no match=%v", got)
	}
}

func TestLayerService(t *testing.T) {
	dir := t.TempDir()
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	svc := NewLayerService(dir, testDatasets(), map[string]int{"nyc_subway_stations": 3}, bus)

	layers := svc.List()
	if len(layers) != 2 || layers[0].ID != "nyc_subway_stations" || layers[1].ID != "nyc_streets" {
		t.Fatalf("layers=%v", layers)
	}
	if layers[0].Features != 3 || layers[0].Style.Kind != "icon" {
		t.Fatalf("subway=%+v", layers[0])
	}
	if layers[1].Style.Kind != style.Default.Kind || layers[1].Style.Stroke != "#333" {
		t.Fatalf("streets style=%+v", layers[1].Style)
	}

	hidden := false
	fill := "#f00"
	updated, err := svc.Update("nyc_streets", LayerPatch{DefaultVisible: &hidden, Fill: &fill})
	if err != nil {
		t.Fatal(err)
	}
	if updated.DefaultVisible || updated.Style.Fill != "#f00" || updated.Stroke != "#333" {
		t.Fatalf("updated=%+v", updated)
	}

	select {
	case ev := <-ch:
		if ev != (Event{Resource: "layers", Action: "updated", ID: "nyc_streets"}) {
			t.Fatalf("event=%+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	if _, err := svc.Update("missing", LayerPatch{}); err == nil {
		t.Fatal("expected error for unknown layer")
	}

	// Patches survive a restart.
	reloaded := NewLayerService(dir, testDatasets(), nil, nil)
	l, ok := reloaded.Get("nyc_streets")
	if !ok || l.DefaultVisible || l.Fill != "#f00" {
		t.Fatalf("reloaded=%+v ok=%v", l, ok)
	}
}

func TestSourceList(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "nyc_subway_stations.geojson", stationsJSON)
	writeSource(t, dir, "notes.txt", "ignored")

	files, err := NewSourceService(dir).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "nyc_subway_stations.geojson" || files[0].FileType != "GeoJSON" {
		t.Fatalf("files=%v", files)
	}

	files, err = NewSourceService(filepath.Join(dir, "missing")).List()
	if err != nil || len(files) != 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.in); got != tt.want {
			t.Fatalf("formatSize(%d)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLayerStylesFollowStyleFor(t *testing.T) {
	datasets := append(testDatasets(),
		config.Dataset{Model: "nyc_homicides", Title: feature.LayerHomicides, GeomType: "point", ClusterDistance: 40})
	svc := NewLayerService(t.TempDir(), datasets, nil, nil)

	subway, _ := svc.Get("nyc_subway_stations")
	if subway.HighlightStyle == nil || *subway.HighlightStyle != style.Highlighted {
		t.Fatalf("subway highlight=%+v", subway.HighlightStyle)
	}
	pair := []*feature.Feature{{GID: 1}, {GID: 2}}
	want := style.For(feature.LayerSubway, pair, style.Highlight{})
	want.Text = ""
	if subway.ClusterStyle == nil || *subway.ClusterStyle != want {
		t.Fatalf("subway cluster=%+v, want %+v", subway.ClusterStyle, want)
	}

	homicides, _ := svc.Get("nyc_homicides")
	if homicides.HighlightStyle != nil {
		t.Fatalf("homicides highlight=%+v", homicides.HighlightStyle)
	}
	if homicides.ClusterStyle == nil || homicides.ClusterStyle.Fill != style.For(feature.LayerHomicides, pair, style.Highlight{}).Fill {
		t.Fatalf("homicides cluster=%+v", homicides.ClusterStyle)
	}

	streets, _ := svc.Get("nyc_streets")
	if streets.ClusterStyle != nil || streets.HighlightStyle != nil {
		t.Fatalf("streets=%+v", streets)
	}

	off := 0
	updated, err := svc.Update("nyc_subway_stations", LayerPatch{ClusterDistance: &off})
	if err != nil {
		t.Fatal(err)
	}
	if updated.ClusterStyle != nil || updated.HighlightStyle == nil {
		t.Fatalf("unclustered subway=%+v", updated)
	}
}
