package session

import (
	"time"

	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/view"
)

// ClusterPick is the outcome of a pick on a clustered layer.
type ClusterPick struct {
	Layer   string
	Members []*feature.Feature
}

var clusterFit = view.FitOptions{
	Padding:  [4]float64{50, 50, 50, 50},
	MaxZoom:  20,
	Duration: 500 * time.Millisecond,
}

const clusterAnimation = 500 * time.Millisecond

// ClusterSelectionController zooms into clusters picked while browsing.
type ClusterSelectionController struct {
	modes  *ModeController
	engine view.Engine
}

func NewClusterSelectionController(modes *ModeController, engine view.Engine) *ClusterSelectionController {
	return &ClusterSelectionController{modes: modes, engine: engine}
}

// Select moves the camera for a pick. Picks are ignored outside ModeNone.
// It reports whether the camera was asked to move.
func (c *ClusterSelectionController) Select(pick ClusterPick) bool {
	if c.modes.Get() != ModeNone {
		return false
	}
	switch len(pick.Members) {
	case 0:
		return false
	case 1:
		c.engine.Animate(pick.Members[0].Anchor(), clusterAnimation)
		return true
	}
	extent, ok := feature.UnionExtent(pick.Members)
	if !ok {
		return false
	}
	c.engine.Fit(extent, clusterFit)
	return true
}
