// Package session holds the interaction state of one map in one browser:
// the exclusive mode, the popup, the highlighted station, the polygon
// measurement, imported layers and the station search.
//
// Every entry point of a Session runs under one mutex, which plays the part
// of the browser's UI thread. The only work done outside it is the spatial
// query of an api mode click; its outcome is applied only when no newer
// click or reset has happened in the meantime.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/metrics"
	"github.com/joeblew999/nycmap/internal/spatial"
	"github.com/joeblew999/nycmap/internal/style"
	"github.com/joeblew999/nycmap/internal/view"
)

// Datasets are the loaded feature collections, keyed by layer title, in
// map projection.
type Datasets map[string]*feature.Cache

// Options configures a Session.
type Options struct {
	StartupMode Mode
	DrawLayer   DrawLayerPolicy
	Search      SearchOptions

	Log     zerolog.Logger
	Metrics *metrics.Metrics
	// Now is the clock used to label imports.
	Now func() time.Time
}

// HitReport is what the browser found at a pixel: a layer title and the
// gids of the rendered feature, several for a cluster.
type HitReport struct {
	Layer string `json:"layer"`
	GIDs  []int  `json:"gids"`
}

// Snapshot is the renderable state of a session.
type Snapshot struct {
	Mode           Mode                `json:"mode"`
	Overlay        OverlayContent      `json:"overlay"`
	OptionsOpen    bool                `json:"optionsOpen"`
	Notification   NotificationContent `json:"notification"`
	Highlight      style.Highlight     `json:"highlight"`
	Drawing        bool                `json:"drawing"`
	SearchProperty Property            `json:"searchProperty"`
	SearchQuery    string              `json:"searchQuery"`
	SearchResults  []SearchResult      `json:"searchResults"`
	Imported       []ImportedLayer     `json:"imported"`
}

// Update is the outcome of one entry point: the state to render and the
// engine commands to replay in the browser.
type Update struct {
	State    Snapshot
	Commands []view.Command
}

// Session is the map interaction state of one browser.
type Session struct {
	ID string

	mu       sync.Mutex
	log      zerolog.Logger
	metrics  *metrics.Metrics
	querier  spatial.Querier
	datasets Datasets
	engine   *view.Recorder

	modes        *ModeController
	overlay      *OverlayPresenter
	panel        *OptionsPanel
	notification *Notification
	highlight    *HighlightManager
	clusters     *ClusterSelectionController
	draw         *DrawSession
	imports      *ImportController
	search       *SearchController
	click        *ClickDispatcher
}

// New wires the components of a session. querier may be nil, in which case
// api mode clicks report a query failure.
func New(id string, data Datasets, querier spatial.Querier, opts Options) *Session {
	s := &Session{
		ID:           id,
		log:          opts.Log.With().Str("session", id).Logger(),
		metrics:      opts.Metrics,
		querier:      querier,
		datasets:     data,
		engine:       view.NewRecorder(),
		overlay:      &OverlayPresenter{},
		panel:        &OptionsPanel{},
		notification: &Notification{},
	}
	subway := data[feature.LayerSubway]
	s.modes = NewModeController(opts.StartupMode, s.resetTransientUI)
	s.highlight = NewHighlightManager(subway, s.engine)
	s.clusters = NewClusterSelectionController(s.modes, s.engine)
	s.draw = NewDrawSession(s.modes, s.engine, s.notification, opts.DrawLayer)
	s.imports = NewImportController(s.engine, opts.Now)
	s.search = NewSearchController(subway, opts.Search, s.highlight, s.overlay, s.engine)
	s.click = NewClickDispatcher(s.modes, s.overlay, s.highlight, s.engine, data[feature.LayerNeighborhoods], subway, s.resetTransientUI)
	return s
}

// resetTransientUI is run on every mode change and every click.
func (s *Session) resetTransientUI() {
	s.overlay.Hide()
	s.panel.Hide()
	s.highlight.Clear()
	if s.click != nil {
		s.click.Invalidate()
	}
}

// SetMode switches the exclusive mode.
func (s *Session) SetMode(m Mode) Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes.Set(m)
	s.log.Debug().Stringer("mode", m).Msg("mode changed")
	return s.update()
}

// Clear hides the popup, leaves any mode, removes the highlight and
// abandons a drawing in progress.
func (s *Session) Clear() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes.Set(ModeNone)
	s.draw.Cancel()
	return s.update()
}

// ToggleOptions opens or closes the options panel.
func (s *Session) ToggleOptions() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panel.Toggle()
	return s.update()
}

// Click handles a map click. hits are the browser's hit-test results at the
// click pixel, topmost first. In api mode the call blocks until the spatial
// query finishes or is superseded.
func (s *Session) Click(ctx context.Context, ev ClickEvent, hits []HitReport) Update {
	s.mu.Lock()
	s.engine.SetHits(ev.Pixel, s.resolveHits(hits))
	q := s.click.Click(ctx, ev)
	if q == nil {
		defer s.mu.Unlock()
		return s.update()
	}
	s.mu.Unlock()

	start := time.Now()
	res, err := q.Run(s.querier)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	applied := s.click.Complete(q, res, err)
	switch {
	case !applied:
		s.metrics.ObserveSpatialQuery(metrics.OutcomeStale, elapsed)
		s.log.Debug().Uint64("token", q.Token).Msg("stale spatial query discarded")
	case err != nil:
		s.metrics.ObserveSpatialQuery(metrics.OutcomeError, elapsed)
		s.log.Warn().Err(err).Float64("x", q.At[0]).Float64("y", q.At[1]).Msg("spatial query failed")
	default:
		s.metrics.ObserveSpatialQuery(metrics.OutcomeOK, elapsed)
	}
	return s.update()
}

// SelectCluster handles a pick on a clustered layer.
func (s *Session) SelectCluster(pick HitReport) Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusters.Select(ClusterPick{Layer: pick.Layer, Members: s.resolve(pick)})
	return s.update()
}

// StartDraw begins a polygon measurement. started is false when one is
// already in progress.
func (s *Session) StartDraw() (u Update, started bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started = s.draw.Start()
	return s.update(), started
}

// CompleteDraw measures the drawn polygon, given in map projection.
func (s *Session) CompleteDraw(polygon orb.Polygon) (Update, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ha, err := s.draw.Complete(polygon)
	if err != nil {
		return s.update(), 0, err
	}
	s.metrics.IncDrawCompletion()
	s.log.Debug().Float64("hectares", ha).Msg("polygon measured")
	return s.update(), ha, nil
}

// DismissNotification closes the area notification.
func (s *Session) DismissNotification() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draw.Dismiss()
	return s.update()
}

// Import adds a user layer from a GeoJSON FeatureCollection in WGS84.
func (s *Session) Import(data []byte) (Update, ImportedLayer, error) {
	features, err := feature.Decode(data, "")
	if err != nil {
		return s.Snapshotted(), ImportedLayer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.imports.Import(feature.ToMap(features))
	if err != nil {
		return s.update(), ImportedLayer{}, err
	}
	s.metrics.IncImport(l.Count)
	s.log.Info().Str("layer", l.ID).Int("features", l.Count).Msg("layer imported")
	return s.update(), l, nil
}

// RemoveImported takes an imported layer off the map.
func (s *Session) RemoveImported(id string) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.imports.Remove(id)
	return s.update(), err
}

// Search runs a station search.
func (s *Session) Search(q string) Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search.Search(q)
	return s.update()
}

// SetSearchProperty switches the searched property and re-runs the last
// search.
func (s *Session) SetSearchProperty(p Property) Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search.SetProperty(p)
	return s.update()
}

// SelectSearchResult focuses a station picked from the results.
func (s *Session) SelectSearchResult(gid int) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.search.Select(gid)
	return s.update(), err
}

// Snapshot returns the current state without draining engine commands.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Snapshotted returns an Update holding the current state and the pending
// engine commands.
func (s *Session) Snapshotted() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update()
}

// IsDrawing reports whether a polygon is being drawn.
func (s *Session) IsDrawing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draw.State() == DrawDrawing
}

func (s *Session) update() Update {
	return Update{State: s.snapshot(), Commands: s.engine.Drain()}
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		Mode:           s.modes.Get(),
		Overlay:        s.overlay.Content(),
		OptionsOpen:    s.panel.Open(),
		Notification:   s.notification.Content(),
		Highlight:      s.highlight.Current(),
		Drawing:        s.draw.State() == DrawDrawing,
		SearchProperty: s.search.Property(),
		SearchQuery:    s.search.Query(),
		SearchResults:  s.search.Results(),
		Imported:       s.imports.Layers(),
	}
}

func (s *Session) resolveHits(reports []HitReport) []view.Hit {
	hits := make([]view.Hit, 0, len(reports))
	for _, r := range reports {
		hits = append(hits, view.Hit{Layer: r.Layer, Members: s.resolve(r)})
	}
	return hits
}

func (s *Session) resolve(r HitReport) []*feature.Feature {
	cache, ok := s.datasets[r.Layer]
	if !ok {
		return nil
	}
	return cache.GetMany(r.GIDs)
}
