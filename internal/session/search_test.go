package session

import (
	"errors"
	"reflect"
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/nycmap/internal/view"
)

func gidsOf(results []SearchResult) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.GID
	}
	return out
}

func TestSearchOrdering(t *testing.T) {
	s := newTestSession(nil, Options{})

	u := s.Search("A")
	// Byte order puts upper case first; "Zerega Av" matches on "a".
	if got, want := gidsOf(u.State.SearchResults), []int{2, 1, 4, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("name results=%v, want %v", got, want)
	}

	u = s.SetSearchProperty(PropertyLabel)
	if u.State.SearchProperty != PropertyLabel || u.State.SearchQuery != "A" {
		t.Fatalf("state=%+v", u.State)
	}
	// Labels aa, ab, ab, ba: the tie keeps load order.
	if got, want := gidsOf(u.State.SearchResults), []int{3, 2, 4, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("label results=%v, want %v", got, want)
	}
}

func TestSearchLimitAndEmptyQuery(t *testing.T) {
	s := newTestSession(nil, Options{Search: SearchOptions{MaxResults: 2}})
	if got := len(s.Search("a").State.SearchResults); got != 2 {
		t.Fatalf("results=%d, want 2", got)
	}
	if got := s.Search("  ").State.SearchResults; len(got) != 0 {
		t.Fatalf("blank query returned %v", got)
	}
	if got := s.Search("nowhere").State.SearchResults; len(got) != 0 {
		t.Fatalf("results=%v", got)
	}
}

func TestSearchSelect(t *testing.T) {
	s := newTestSession(nil, Options{Search: SearchOptions{ShowOverlay: true, OverlayOffset: 10}})

	u, err := s.SelectSearchResult(1)
	if err != nil {
		t.Fatal(err)
	}
	if !u.State.Highlight.Is(1) {
		t.Fatalf("highlight=%+v", u.State.Highlight)
	}
	fits := commandsOf(u.Commands, view.OpFit)
	if len(fits) != 1 || fits[0].Fit.MaxZoom != 18 || fits[0].DurationMS != 500 {
		t.Fatalf("fits=%+v", fits)
	}
	if *fits[0].Extent != [4]float64{100, 200, 100, 200} {
		t.Fatalf("extent=%v", *fits[0].Extent)
	}
	ov := u.State.Overlay
	if ov.Title != "Broad St" || ov.Body != "Line: J-Z" || *ov.Anchor != (orb.Point{100, 210}) {
		t.Fatalf("overlay=%+v anchor=%v", ov, ov.Anchor)
	}

	if _, err := s.SelectSearchResult(404); !errors.Is(err, ErrUnknownFeature) {
		t.Fatalf("err=%v", err)
	}
}

func TestSearchSelectWithoutOverlay(t *testing.T) {
	s := newTestSession(nil, Options{})
	u, _ := s.SelectSearchResult(2)
	if u.State.Overlay.Anchor != nil {
		t.Fatal("overlay shown with search overlay disabled")
	}
}

func TestParseProperty(t *testing.T) {
	for _, p := range Properties {
		if got, err := ParseProperty(string(p)); err != nil || got != p {
			t.Fatalf("%q: got %q err=%v", p, got, err)
		}
	}
	if _, err := ParseProperty("routes"); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("err=%v", err)
	}
}
