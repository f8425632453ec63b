package server

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/joeblew999/nycmap/internal/api"
	"github.com/joeblew999/nycmap/internal/api/mapui"
	"github.com/joeblew999/nycmap/internal/config"
	"github.com/joeblew999/nycmap/internal/db"
	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/metrics"
	"github.com/joeblew999/nycmap/internal/service"
	"github.com/joeblew999/nycmap/internal/session"
	"github.com/joeblew999/nycmap/internal/spatial"
	"github.com/joeblew999/nycmap/internal/templates"
)

//go:embed static
var staticFiles embed.FS

// pruneInterval is how often idle map sessions are dropped.
const pruneInterval = time.Minute

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // Optional directory whose static/ overrides the embedded assets
	// SpatialURL, when set, sends spatial queries to a remote service
	// whatever the map configuration says.
	SpatialURL string
	// DB loads the datasets into DuckDB and serves features from it.
	DB  bool
	Map *config.Config
	Log zerolog.Logger
}

// Server is the map HTTP server.
type Server struct {
	config   Config
	log      zerolog.Logger
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	db       *sql.DB
	metrics  *metrics.Metrics
	sessions *session.Manager
	backend  string
}

// New loads the datasets and wires the server.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Map == nil {
		cfg.Map = config.Default()
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("nycmap API", "1.0.0")
	humaConfig.Info.Description = "New York City map: datasets, spatial queries and the interactive map session actions."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	s := &Server{
		config:  cfg,
		log:     cfg.Log,
		mux:     mux,
		humaAPI: humago.New(mux, humaConfig),
		metrics: metrics.New(),
	}
	s.humaAPI.UseMiddleware(s.observe)

	bus := service.NewEventBus()
	sources := service.NewSourceService(cfg.DataDir)
	datasets, err := service.LoadDatasets(sources, cfg.Map.Datasets, s.log)
	if err != nil {
		return nil, err
	}

	var store *db.Store
	if cfg.DB {
		store = s.openStore(ctx, sources)
	}

	querier := s.querier(datasets)
	layers := service.NewLayerService(cfg.DataDir, cfg.Map.Datasets, datasets.Counts(), bus)

	opts := cfg.Map.SessionOptions()
	opts.Log = s.log
	opts.Metrics = s.metrics
	s.sessions = session.NewManager(func(id string) *session.Session {
		return session.New(id, datasets.Session(), querier, opts)
	}, s.metrics)

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(&api.Services{
		Layer:    layers,
		Source:   sources,
		Datasets: datasets,
		Store:    store,
		Querier:  querier,
	}))
	api.NewInfoHandler(cfg.DataDir, s.db != nil, s.backend).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(store).RegisterRoutes(s.humaAPI)

	page := mapui.NewHandler(s.sessions, layers, bus, renderer, s.log)
	page.RegisterRoutes(s.humaAPI)

	static, err := s.static()
	if err != nil {
		return nil, err
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(static)))
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/", page.Page)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Mount("/", mux)
	s.handler = r

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions returns the live map sessions.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Run drops idle map sessions until ctx is done.
func (s *Server) Run(ctx context.Context) {
	idle := s.config.Map.SessionIdle
	if idle <= 0 {
		return
	}
	t := time.NewTicker(pruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.sessions.Prune(idle); n > 0 {
				s.log.Info().Int("pruned", n).Int("remaining", s.sessions.Len()).Msg("idle map sessions dropped")
			}
		}
	}
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

// openStore loads the dataset sources into DuckDB. Failures are logged and
// leave the server on the in-memory datasets.
func (s *Server) openStore(ctx context.Context, sources *service.SourceService) *db.Store {
	conn, err := db.Get(db.Config{DataDir: s.config.DataDir, DBName: "nycmap"})
	if err != nil {
		s.log.Warn().Err(err).Msg("duckdb unavailable")
		return nil
	}
	s.db = conn

	models := make([]string, 0, len(s.config.Map.Datasets))
	for _, d := range s.config.Map.Datasets {
		models = append(models, d.Model)
	}
	store := db.NewStore(conn)
	loaded, err := store.LoadDir(ctx, sources.SourcesDir(), models)
	if err != nil {
		s.log.Warn().Err(err).Msg("loading datasets into duckdb")
	}
	s.log.Info().Strs("tables", loaded).Msg("duckdb ready")
	return store
}

// querier picks the spatial query backend.
func (s *Server) querier(datasets *service.DatasetService) spatial.Querier {
	sp := s.config.Map.Spatial
	backend, url := sp.Backend, sp.URL
	if s.config.SpatialURL != "" {
		backend, url = config.BackendRemote, s.config.SpatialURL
	}

	switch backend {
	case config.BackendRemote:
		s.backend = backend
		s.log.Info().Str("url", url).Msg("spatial queries go to remote service")
		return spatial.NewClient(url, nil)
	case config.BackendDuckDB:
		if s.db != nil {
			s.backend = backend
			return db.NewSpatialQuerier(s.db, s.spatialTables(), sp.HomicideRadius)
		}
		s.log.Warn().Msg("duckdb spatial backend needs --db, using the in-memory index")
	}

	s.backend = config.BackendIndex
	return spatial.NewIndex(
		datasets.ByTitle(feature.LayerNeighborhoods),
		datasets.ByTitle(feature.LayerSubway),
		datasets.ByTitle(feature.LayerHomicides),
		sp.HomicideRadius,
	)
}

func (s *Server) spatialTables() db.SpatialTables {
	var t db.SpatialTables
	for _, d := range s.config.Map.Datasets {
		switch d.Title {
		case feature.LayerNeighborhoods:
			t.Neighborhoods = d.Model
		case feature.LayerSubway:
			t.Subway = d.Model
		case feature.LayerHomicides:
			t.Homicides = d.Model
		}
	}
	return t
}

func (s *Server) static() (http.FileSystem, error) {
	if s.config.WebDir != "" {
		return http.Dir(filepath.Join(s.config.WebDir, "static")), nil
	}
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	return http.FS(sub), nil
}

// observe records API metrics by operation path.
func (s *Server) observe(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)
	path := ctx.URL().Path
	if op := ctx.Operation(); op != nil {
		path = op.Path
	}
	s.metrics.ObserveHTTPRequest(ctx.Method(), path, ctx.Status(), time.Since(start))
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}
