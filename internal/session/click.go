package session

import (
	"context"
	"errors"

	"github.com/paulmach/orb"

	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/spatial"
	"github.com/joeblew999/nycmap/internal/view"
)

var errNoQuerier = errors.New("spatial query service not configured")

// ClickEvent is a map click: the screen pixel for hit testing and the map
// coordinate the popup is anchored at.
type ClickEvent struct {
	Pixel      view.Pixel
	Coordinate orb.Point
}

// PendingQuery is a spatial query started by an api mode click. Run it
// without holding the session, then hand the outcome to Complete.
type PendingQuery struct {
	Token  uint64
	At     orb.Point
	ctx    context.Context
	cancel context.CancelFunc
}

// Run performs the query. It is cancelled when a newer click supersedes it.
func (q *PendingQuery) Run(querier spatial.Querier) (*spatial.Result, error) {
	if querier == nil {
		return nil, errNoQuerier
	}
	return querier.Query(q.ctx, q.At[0], q.At[1])
}

// ClickDispatcher routes map clicks by mode.
type ClickDispatcher struct {
	modes         *ModeController
	overlay       *OverlayPresenter
	highlight     *HighlightManager
	engine        view.Engine
	neighborhoods *feature.Cache
	subway        *feature.Cache
	reset         func()

	token  uint64
	cancel context.CancelFunc
}

func NewClickDispatcher(modes *ModeController, overlay *OverlayPresenter, highlight *HighlightManager, engine view.Engine, neighborhoods, subway *feature.Cache, reset func()) *ClickDispatcher {
	return &ClickDispatcher{
		modes:         modes,
		overlay:       overlay,
		highlight:     highlight,
		engine:        engine,
		neighborhoods: neighborhoods,
		subway:        subway,
		reset:         reset,
	}
}

// Click resets the transient UI and then inspects the topmost feature in
// features mode or starts a spatial query in api mode. Only the api path
// returns a query.
func (d *ClickDispatcher) Click(ctx context.Context, ev ClickEvent) *PendingQuery {
	if d.reset != nil {
		d.reset()
	}
	d.Invalidate()

	switch d.modes.Get() {
	case ModeFeatures:
		hits := d.engine.FeaturesAtPixel(ev.Pixel)
		if len(hits) == 0 {
			return nil
		}
		title, body := FormatHit(hits[0])
		d.overlay.Show(title, body, ev.Coordinate)
	case ModeAPI:
		qctx, cancel := context.WithCancel(ctx)
		d.cancel = cancel
		return &PendingQuery{Token: d.token, At: ev.Coordinate, ctx: qctx, cancel: cancel}
	}
	return nil
}

// Invalidate makes the in-flight query stale and cancels it.
func (d *ClickDispatcher) Invalidate() {
	d.token++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Complete applies the outcome of q. It reports false, changing nothing,
// when a newer click or reset has superseded q. A failed query shows a
// fixed message instead of the result.
func (d *ClickDispatcher) Complete(q *PendingQuery, res *spatial.Result, err error) bool {
	defer q.cancel()
	if q.Token != d.token {
		return false
	}
	d.cancel = nil

	if err != nil || res == nil {
		d.overlay.Show(TitleQueryFailed, "", q.At)
		return true
	}
	title, body := FormatSpatial(res, d.neighborhoods, d.subway)
	if _, ok := d.subway.Get(res.Subway.GID); ok {
		d.highlight.Highlight(res.Subway.GID)
	}
	d.overlay.Show(title, body, q.At)
	return true
}
