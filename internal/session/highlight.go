package session

import (
	"time"

	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/style"
	"github.com/joeblew999/nycmap/internal/view"
)

const highlightAnimation = 500 * time.Millisecond

// HighlightManager owns the single highlighted station. The visual
// override comes from style.For reading Current, so a repaint of the subway
// layer is all it takes to move or remove it.
type HighlightManager struct {
	state  style.Highlight
	source *feature.Cache
	engine view.Engine
}

func NewHighlightManager(source *feature.Cache, engine view.Engine) *HighlightManager {
	return &HighlightManager{source: source, engine: engine}
}

// Highlight marks gid, repaints the subway layer and recentres the camera
// on the station without changing zoom. An unknown gid is recorded but
// nothing is centred.
func (h *HighlightManager) Highlight(gid int) {
	h.state = style.Highlight{GID: gid, Set: true}
	h.engine.Changed(feature.LayerSubway)

	f, ok := h.source.Get(gid)
	if !ok {
		return
	}
	h.engine.Animate(f.Anchor(), highlightAnimation)
}

// Clear removes the highlight and repaints so the override disappears.
func (h *HighlightManager) Clear() {
	h.state = style.Highlight{}
	h.engine.Changed(feature.LayerSubway)
}

// Current returns the highlight state.
func (h *HighlightManager) Current() style.Highlight {
	return h.state
}
