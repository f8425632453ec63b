package session

import (
	"testing"

	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/spatial"
	"github.com/joeblew999/nycmap/internal/view"
)

func TestFormatHit(t *testing.T) {
	data := testDatasets()
	f := func(layer string, gid int) []*feature.Feature {
		return data[layer].GetMany([]int{gid})
	}
	tests := []struct {
		name      string
		hit       view.Hit
		wantTitle string
		wantBody  string
	}{
		{"street", view.Hit{Layer: feature.LayerStreets, Members: f(feature.LayerStreets, 20)}, "Wall St", "One way: yes<br>Type: residential"},
		{"subway", view.Hit{Layer: feature.LayerSubway, Members: f(feature.LayerSubway, 3)}, "astor Pl", "Color: GREEN"},
		{"homicide", view.Hit{Layer: feature.LayerHomicides, Members: f(feature.LayerHomicides, 30)}, "Homicide", "Incident date: 2004-01-02"},
		{"neighborhood", view.Hit{Layer: feature.LayerNeighborhoods, Members: f(feature.LayerNeighborhoods, 7)}, "Manhattan", "Name: Financial District"},
		{"imported", view.Hit{Layer: "User 09:15:00"}, "User 09:15:00", "No additional info"},
		{"untitled", view.Hit{}, "Unknown layer", "No additional info"},
		{"street not cached", view.Hit{Layer: feature.LayerStreets}, "Streets", "No additional info"},
		{"escaped", view.Hit{Layer: feature.LayerStreets, Members: []*feature.Feature{
			{Properties: map[string]any{"name": "<b>Main</b>", "oneway": "no", "type": "a&b"}},
		}}, "&lt;b&gt;Main&lt;/b&gt;", "One way: no<br>Type: a&amp;b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := FormatHit(tt.hit)
			if title != tt.wantTitle || body != tt.wantBody {
				t.Fatalf("got (%q, %q), want (%q, %q)", title, body, tt.wantTitle, tt.wantBody)
			}
		})
	}
}

func TestFormatSpatialFallbacks(t *testing.T) {
	data := testDatasets()
	res := &spatial.Result{
		Neighborhoods:     []spatial.Neighborhood{{GID: 99}},
		Subway:            spatial.Subway{GID: 99, Distance: 1.005},
		NumberOfHomicides: 0,
	}
	title, body := FormatSpatial(res, data[feature.LayerNeighborhoods], data[feature.LayerSubway])
	if title != "Unknown neighborhood" {
		t.Fatalf("title=%q", title)
	}
	if body != "Nearby homicides: 0<br>Subway: Unknown station<br>Distance: 1.00m" {
		t.Fatalf("body=%q", body)
	}
}
