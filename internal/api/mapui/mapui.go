// Package mapui contains the Datastar SSE handlers of the map page. Every
// action names its session with the sid signal and is answered with the
// session's new state: patched overlay, notification and lists, signals,
// and the engine commands for the browser to replay.
package mapui

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/joeblew999/nycmap/internal/humastar"
	"github.com/joeblew999/nycmap/internal/service"
	"github.com/joeblew999/nycmap/internal/session"
	"github.com/joeblew999/nycmap/internal/style"
	"github.com/joeblew999/nycmap/internal/templates"
	"github.com/joeblew999/nycmap/internal/view"
)

// applyFn is the page function that replays engine commands.
const applyFn = "window.nycmap.apply"

// Handler serves the map page and its actions.
type Handler struct {
	humastar.Handler
	sessions *session.Manager
	layers   *service.LayerService
	bus      *service.EventBus
	log      zerolog.Logger
}

func NewHandler(sessions *session.Manager, layers *service.LayerService, bus *service.EventBus, renderer *templates.Renderer, log zerolog.Logger) *Handler {
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
		layers:   layers,
		bus:      bus,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("map")
	huma.Post(api, "/api/v1/map/mode", h.SetMode, tags)
	huma.Post(api, "/api/v1/map/click", h.Click, tags)
	huma.Post(api, "/api/v1/map/cluster", h.SelectCluster, tags)
	huma.Post(api, "/api/v1/map/clear", h.Clear, tags)
	huma.Post(api, "/api/v1/map/options", h.ToggleOptions, tags)
	huma.Post(api, "/api/v1/map/draw/start", h.StartDraw, tags)
	huma.Post(api, "/api/v1/map/draw/complete", h.CompleteDraw, tags)
	huma.Post(api, "/api/v1/map/draw/dismiss", h.DismissNotification, tags)
	huma.Post(api, "/api/v1/map/import", h.Import, tags)
	huma.Post(api, "/api/v1/map/import/remove", h.RemoveImported, tags)
	huma.Post(api, "/api/v1/map/search", h.Search, tags)
	huma.Post(api, "/api/v1/map/search/property", h.SetSearchProperty, tags)
	huma.Post(api, "/api/v1/map/search/select", h.SelectSearchResult, tags)
	huma.Get(api, "/api/v1/map/events", h.Events, tags)
}

// Signal payloads posted by the page.

type clickSignal struct {
	Pixel      [2]float64          `json:"pixel"`
	Coordinate [2]float64          `json:"coordinate"`
	Hits       []session.HitReport `json:"hits"`
}

type importSignal struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// enginePayload is what the page's apply function receives.
type enginePayload struct {
	Commands  []view.Command  `json:"commands"`
	Highlight style.Highlight `json:"highlight"`
	Anchor    *orb.Point      `json:"anchor"`
}

type overlayView struct {
	Visible bool
	Title   template.HTML
	Body    template.HTML
}

// Handlers

func (h *Handler) SetMode(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	m, err := session.ParseMode(signals.String("mode"))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return h.respond(s.SetMode(m), ""), nil
}

func (h *Handler) Click(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	var c clickSignal
	if err := signals.Decode("click", &c); err != nil {
		return nil, huma.Error400BadRequest("Invalid click: " + err.Error())
	}
	ev := session.ClickEvent{Pixel: view.Pixel(c.Pixel), Coordinate: orb.Point(c.Coordinate)}
	return h.respond(s.Click(ctx, ev, c.Hits), ""), nil
}

func (h *Handler) SelectCluster(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	var pick session.HitReport
	if err := signals.Decode("pick", &pick); err != nil {
		return nil, huma.Error400BadRequest("Invalid cluster pick: " + err.Error())
	}
	return h.respond(s.SelectCluster(pick), ""), nil
}

func (h *Handler) Clear(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, _, err := h.session(input)
	if err != nil {
		return nil, err
	}
	return h.respond(s.Clear(), ""), nil
}

func (h *Handler) ToggleOptions(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, _, err := h.session(input)
	if err != nil {
		return nil, err
	}
	return h.respond(s.ToggleOptions(), ""), nil
}

func (h *Handler) StartDraw(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, _, err := h.session(input)
	if err != nil {
		return nil, err
	}
	u, _ := s.StartDraw()
	return h.respond(u, ""), nil
}

func (h *Handler) CompleteDraw(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	var coords [][2]float64
	if err := signals.Decode("polygon", &coords); err != nil {
		return nil, huma.Error400BadRequest("Invalid polygon: " + err.Error())
	}
	u, _, err := s.CompleteDraw(polygon(coords))
	if errors.Is(err, session.ErrNotDrawing) {
		return h.respond(u, "No polygon is being drawn"), nil
	}
	return h.respond(u, ""), nil
}

func (h *Handler) DismissNotification(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, _, err := h.session(input)
	if err != nil {
		return nil, err
	}
	return h.respond(s.DismissNotification(), ""), nil
}

func (h *Handler) Import(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	var file importSignal
	if err := signals.Decode("importfile", &file); err != nil {
		return nil, huma.Error400BadRequest("Invalid import: " + err.Error())
	}
	u, _, err := s.Import([]byte(file.Text))
	if err != nil {
		h.log.Info().Err(err).Str("session", s.ID).Str("file", file.Name).Msg("import rejected")
		return h.respond(u, "Could not import "+file.Name+": "+err.Error()), nil
	}
	return h.respond(u, ""), nil
}

func (h *Handler) RemoveImported(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	u, err := s.RemoveImported(signals.String("layerid"))
	if err != nil {
		return h.respond(u, err.Error()), nil
	}
	return h.respond(u, ""), nil
}

func (h *Handler) Search(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	return h.respond(s.Search(signals.String("query")), ""), nil
}

func (h *Handler) SetSearchProperty(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	p, err := session.ParseProperty(signals.String("property"))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return h.respond(s.SetSearchProperty(p), ""), nil
}

func (h *Handler) SelectSearchResult(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	s, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	gid, ok := signals.Int("gid")
	if !ok {
		return nil, huma.Error400BadRequest("gid must be a whole number")
	}
	u, err := s.SelectSearchResult(gid)
	if err != nil {
		return h.respond(u, "Station not found"), nil
	}
	return h.respond(u, ""), nil
}

// session resolves the session named by the sid signal.
func (h *Handler) session(input *humastar.SignalsInput) (*session.Session, humastar.Signals, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, nil, err
	}
	s, err := h.sessions.Get(signals.String("sid"))
	if err != nil {
		return nil, nil, huma.Error404NotFound("Map session expired, reload the page")
	}
	return s, signals, nil
}

// respond streams an update. A non-empty problem is shown through the error
// signal.
func (h *Handler) respond(u session.Update, problem string) *huma.StreamResponse {
	return h.Stream(func(sse humastar.SSE) {
		h.patch(sse, u)
		if problem != "" {
			sse.Error(problem)
		}
	})
}

func (h *Handler) patch(sse humastar.SSE, u session.Update) {
	st := u.State
	sse.Patch(h.Render("overlay", overlayView{
		Visible: st.Overlay.Anchor != nil,
		Title:   template.HTML(st.Overlay.Title),
		Body:    template.HTML(st.Overlay.Body),
	}), "#overlay")
	sse.Patch(h.Render("notification", st.Notification), "#notification")
	sse.Patch(h.searchResults(st), "#search-results")
	sse.Patch(h.importedLayers(st), "#imported-layers")
	sse.Signals(map[string]any{
		"mode":        st.Mode.String(),
		"optionsOpen": st.OptionsOpen,
		"drawing":     st.Drawing,
		"property":    string(st.SearchProperty),
		"error":       "",
	})

	commands := u.Commands
	if commands == nil {
		commands = []view.Command{}
	}
	if err := sse.Call(applyFn, enginePayload{
		Commands:  commands,
		Highlight: st.Highlight,
		Anchor:    st.Overlay.Anchor,
	}); err != nil {
		h.log.Error().Err(err).Msg("sending engine commands")
	}
}

func (h *Handler) searchResults(st session.Snapshot) string {
	if st.SearchQuery == "" {
		return ""
	}
	items := make([]any, len(st.SearchResults))
	for i, r := range st.SearchResults {
		items[i] = r
	}
	return h.RenderList("search-result", items, "No stations", "Nothing matches "+st.SearchQuery)
}

func (h *Handler) importedLayers(st session.Snapshot) string {
	items := make([]any, len(st.Imported))
	for i, l := range st.Imported {
		items[i] = l
	}
	if len(items) == 0 {
		return ""
	}
	return h.RenderList("imported-layer", items, "", "")
}

// polygon closes the drawn ring if the browser did not.
func polygon(coords [][2]float64) orb.Polygon {
	ring := make(orb.Ring, 0, len(coords)+1)
	for _, c := range coords {
		ring = append(ring, orb.Point(c))
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}
}

// Page

type pageData struct {
	SessionID  string
	Signals    string
	Properties []humastar.SelectOptionData
	Layers     []service.LayerConfig
}

// Page creates a map session and serves the page bound to it.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s := h.sessions.Create()
	st := s.Snapshot()

	signals, err := json.Marshal(map[string]any{
		"sid":         s.ID,
		"mode":        st.Mode.String(),
		"drawing":     st.Drawing,
		"optionsOpen": st.OptionsOpen,
		"query":       "",
		"property":    string(st.SearchProperty),
		"gid":         0,
		"layerid":     "",
		"click":       nil,
		"pick":        nil,
		"polygon":     nil,
		"importfile":  nil,
		"error":       "",
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	options := make([]humastar.SelectOptionData, 0, len(session.Properties))
	for _, p := range session.Properties {
		options = append(options, humastar.SelectOptionData{
			Value: string(p), Label: string(p), Selected: p == st.SearchProperty,
		})
	}

	var layers []service.LayerConfig
	if h.layers != nil {
		layers = h.layers.List()
	}

	html, err := h.Renderer.Render("index", pageData{
		SessionID:  s.ID,
		Signals:    string(signals),
		Properties: options,
		Layers:     layers,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("rendering map page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	h.log.Debug().Str("session", s.ID).Msg("map session created")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := io.WriteString(w, html); err != nil {
		h.log.Warn().Err(err).Str("session", s.ID).Msg("writing map page")
	}
}
