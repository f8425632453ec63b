package mapui

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/nycmap/internal/humastar"
)

// keepAlive is how often an open events stream marks its session as seen.
const keepAlive = time.Minute

type EventsInput struct {
	SessionID string `query:"sid" required:"true" doc:"Map session id"`
}

// Events streams layer configuration changes to an open page and keeps its
// session alive while the page is open.
func (h *Handler) Events(ctx context.Context, input *EventsInput) (*huma.StreamResponse, error) {
	if _, err := h.sessions.Get(input.SessionID); err != nil {
		return nil, huma.Error404NotFound("Map session expired, reload the page")
	}
	return h.Stream(func(sse humastar.SSE) {
		ch := h.bus.Subscribe()
		defer h.bus.Unsubscribe(ch)

		tick := time.NewTicker(keepAlive)
		defer tick.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if _, err := h.sessions.Get(input.SessionID); err != nil {
					return
				}
			case ev := <-ch:
				if ev.Resource == "layers" && h.layers != nil {
					items := make([]any, 0)
					for _, l := range h.layers.List() {
						items = append(items, l)
					}
					sse.Patch(h.RenderList("layer", items, "No layers", "No datasets configured"), "#layer-list")
				}
				sse.DispatchCustomEvent("resource-changed", map[string]any{
					"resource": ev.Resource,
					"action":   ev.Action,
					"id":       ev.ID,
				})
			}
		}
	}), nil
}
