package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/view"
)

// square100m returns a 100m x 100m square near Manhattan in map projection.
func square100m() orb.Polygon {
	sw := orb.Point{-74.0, 40.7}
	se := geo.PointAtBearingAndDistance(sw, 90, 100)
	ne := geo.PointAtBearingAndDistance(se, 0, 100)
	nw := geo.PointAtBearingAndDistance(sw, 0, 100)
	ring := orb.Ring{sw, se, ne, nw, sw}
	for i, p := range ring {
		ring[i] = feature.PointToMap(p)
	}
	return orb.Polygon{ring}
}

func TestHectaresOfSquare(t *testing.T) {
	if got := fmt.Sprintf("%.2f", Hectares(square100m())); got != "1.00" {
		t.Fatalf("area=%s ha, want 1.00", got)
	}
}

func TestStartDrawTwiceAttachesOneInteraction(t *testing.T) {
	s := newTestSession(nil, Options{StartupMode: ModeFeatures})

	u, started := s.StartDraw()
	if !started || u.State.Mode != ModeNone || !u.State.Drawing {
		t.Fatalf("started=%v state=%+v", started, u.State)
	}
	if len(commandsOf(u.Commands, view.OpAddInteraction)) != 1 {
		t.Fatalf("commands=%+v", u.Commands)
	}

	u, started = s.StartDraw()
	if started {
		t.Fatal("second start must be a no-op")
	}
	if len(commandsOf(u.Commands, view.OpAddInteraction)) != 0 || s.engine.Interactions() != 1 {
		t.Fatalf("interactions=%d", s.engine.Interactions())
	}
}

func TestCompleteDraw(t *testing.T) {
	s := newTestSession(nil, Options{})
	s.StartDraw()

	u, ha, err := s.CompleteDraw(square100m())
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprintf("%.2f", ha) != "1.00" {
		t.Fatalf("ha=%v", ha)
	}
	if u.State.Notification.Message != "Polygon area: 1.00 ha" || !u.State.Notification.Visible {
		t.Fatalf("notification=%+v", u.State.Notification)
	}
	if u.State.Drawing || s.engine.Interactions() != 0 {
		t.Fatal("interaction must be detached after the first polygon")
	}
	if u.State.Overlay.Anchor != nil {
		t.Fatal("area must not use the feature overlay")
	}

	if _, _, err := s.CompleteDraw(square100m()); !errors.Is(err, ErrNotDrawing) {
		t.Fatalf("err=%v, want ErrNotDrawing", err)
	}
}

func TestDrawLayerPolicy(t *testing.T) {
	tests := []struct {
		policy           DrawLayerPolicy
		afterComplete    bool
		afterDismiss     bool
		removedOnRestart bool
	}{
		{RemoveOnDismiss, true, false, false},
		{RemoveOnComplete, false, false, false},
		{Keep, true, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			s := newTestSession(nil, Options{DrawLayer: tt.policy})
			s.StartDraw()
			layer := s.draw.layer

			s.CompleteDraw(square100m())
			if got := s.engine.HasLayer(layer); got != tt.afterComplete {
				t.Fatalf("after complete: on map=%v, want %v", got, tt.afterComplete)
			}

			u := s.DismissNotification()
			if u.State.Notification.Visible {
				t.Fatal("notification still visible")
			}
			if got := s.engine.HasLayer(layer); got != tt.afterDismiss {
				t.Fatalf("after dismiss: on map=%v, want %v", got, tt.afterDismiss)
			}

			s.StartDraw()
			removed := !s.engine.HasLayer(layer)
			if tt.removedOnRestart && !removed {
				t.Fatal("next draw must replace the kept polygon")
			}
		})
	}
}

func TestParseDrawLayerPolicy(t *testing.T) {
	if p, err := ParseDrawLayerPolicy(""); err != nil || p != RemoveOnDismiss {
		t.Fatalf("p=%q err=%v", p, err)
	}
	if _, err := ParseDrawLayerPolicy("sometimes"); err == nil {
		t.Fatal("expected error")
	}
}
