package feature

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

const stationsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-73.99, 40.73]},
     "properties": {"gid": 1, "name": "Astor Pl", "color": "GREEN"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-73.98, 40.75]},
     "properties": {"gid": "2", "name": "Grand Central", "color": "GREEN"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-73.97, 40.76]},
     "properties": {"name": "No gid"}}
  ]
}`

func TestDecode(t *testing.T) {
	fs, err := Decode([]byte(stationsJSON), LayerSubway)
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 3 {
		t.Fatalf("len=%d, want 3", len(fs))
	}
	if fs[0].GID != 1 || fs[1].GID != 2 || fs[2].GID != 0 {
		t.Fatalf("gids=%d,%d,%d, want 1,2,0", fs[0].GID, fs[1].GID, fs[2].GID)
	}
	if fs[0].Layer != LayerSubway {
		t.Fatalf("layer=%q", fs[0].Layer)
	}
	if got := fs[1].String("name"); got != "Grand Central" {
		t.Fatalf("name=%q", got)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode([]byte(`{"type":`), LayerSubway); err == nil {
		t.Fatal("expected error for malformed geojson")
	}
}

func TestCacheMissingGID(t *testing.T) {
	fs, _ := Decode([]byte(stationsJSON), LayerSubway)
	c := NewCache(LayerSubway, fs)

	if f, ok := c.Get(2); !ok || f.String("name") != "Grand Central" {
		t.Fatalf("Get(2) = %v, %v", f, ok)
	}
	if f, ok := c.Get(999); ok || f != nil {
		t.Fatalf("Get(999) = %v, %v, want nil,false", f, ok)
	}

	var nilCache *Cache
	if _, ok := nilCache.Get(1); ok {
		t.Fatal("nil cache must report missing")
	}
	if got := c.GetMany([]int{2, 999, 1}); len(got) != 2 || got[0].GID != 2 || got[1].GID != 1 {
		t.Fatalf("GetMany = %v", got)
	}
}

func TestStringFormatsNumbers(t *testing.T) {
	f := &Feature{Properties: map[string]any{"n": 12.0, "s": "<b>", "b": true}}
	if got := f.String("n"); got != "12" {
		t.Fatalf("n=%q", got)
	}
	if got := f.Escaped("s"); got != "&lt;b&gt;" {
		t.Fatalf("escaped=%q", got)
	}
	if got := f.String("b"); got != "true" {
		t.Fatalf("b=%q", got)
	}
	if got := f.String("missing"); got != "" {
		t.Fatalf("missing=%q", got)
	}
}

func TestUnionExtentIndependentOfOrder(t *testing.T) {
	a := &Feature{Geometry: orb.Point{1, 1}}
	b := &Feature{Geometry: orb.LineString{{5, -2}, {6, 3}}}
	c := &Feature{Geometry: orb.Point{-4, 2}}

	want := orb.Bound{Min: orb.Point{-4, -2}, Max: orb.Point{6, 3}}
	for _, order := range [][]*Feature{{a, b, c}, {c, b, a}, {b, a, c}} {
		got, ok := UnionExtent(order)
		if !ok || got != want {
			t.Fatalf("UnionExtent=%v ok=%v, want %v", got, ok, want)
		}
	}

	if _, ok := UnionExtent(nil); ok {
		t.Fatal("empty input must report !ok")
	}
}

func TestToMapDoesNotMutate(t *testing.T) {
	src := []*Feature{{GID: 7, Geometry: orb.Point{-73.98, 40.75}}}
	projected := ToMap(src)

	if src[0].Geometry.(orb.Point) != (orb.Point{-73.98, 40.75}) {
		t.Fatalf("source mutated: %v", src[0].Geometry)
	}
	p := projected[0].Geometry.(orb.Point)
	if math.Abs(p[0]-(-8235416)) > 1 || math.Abs(p[1]-4975536) > 1 {
		t.Fatalf("projected=%v, want roughly (-8235416, 4975536)", p)
	}

	back := ToWGS84(projected)[0].Geometry.(orb.Point)
	if math.Abs(back[0]+73.98) > 1e-9 || math.Abs(back[1]-40.75) > 1e-9 {
		t.Fatalf("round trip=%v", back)
	}
}

func TestToCollectionWritesGID(t *testing.T) {
	fc := ToCollection([]*Feature{{GID: 3, Properties: map[string]any{"name": "x"}, Geometry: orb.Point{0, 0}}})
	if got := fc.Features[0].Properties["gid"]; got != 3 {
		t.Fatalf("gid=%v", got)
	}
}
