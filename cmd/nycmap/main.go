package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/nycmap/internal/config"
	"github.com/joeblew999/nycmap/internal/db"
	"github.com/joeblew999/nycmap/internal/server"
	"github.com/joeblew999/nycmap/internal/service"
)

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --data-dir, --web-dir, --config, --log-level, --spatial-url, --db
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host       string `doc:"Host to bind to" default:"0.0.0.0"`
	Port       int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir    string `doc:"Directory holding sources/ and the database" default:".data"`
	WebDir     string `doc:"Directory whose static/ overrides the embedded assets"`
	Config     string `doc:"Map configuration file (YAML)" short:"c"`
	LogLevel   string `doc:"Log level" default:"info"`
	SpatialURL string `doc:"Remote spatial query service"`
	DB         bool   `doc:"Load the datasets into DuckDB"`
}

func newServer(ctx context.Context, opts *Options) (*server.Server, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	return server.New(ctx, server.Config{
		Host:       opts.Host,
		Port:       fmt.Sprintf("%d", opts.Port),
		DataDir:    opts.DataDir,
		WebDir:     opts.WebDir,
		SpatialURL: opts.SpatialURL,
		DB:         opts.DB,
		Map:        cfg,
		Log:        server.NewLogger(opts.LogLevel),
	})
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		ctx, cancel := context.WithCancel(context.Background())
		var httpServer *http.Server

		hooks.OnStart(func() {
			srv, err := newServer(ctx, opts)
			if err != nil {
				fatal("Error starting server: %v", err)
			}
			defer srv.Close()
			go srv.Run(ctx)

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("nycmap server starting...\n")
			fmt.Printf("  Map:     %s/\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fatal("Server error: %v", err)
			}
		})

		hooks.OnStop(func() {
			cancel()
			if httpServer == nil {
				return
			}
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = httpServer.Shutdown(shutdownCtx)
		})
	})

	cli.Root().Use = "nycmap"
	cli.Root().Short = "Interactive New York City map"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(cmd.Context(), opts)
			if err != nil {
				fatal("Error: %v", err)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec: %v", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// load subcommand: import the configured sources into DuckDB
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Load the configured GeoJSON sources into DuckDB",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg, err := config.Load(opts.Config)
			if err != nil {
				fatal("Error: %v", err)
			}
			conn, err := db.Get(db.Config{DataDir: opts.DataDir, DBName: "nycmap"})
			if err != nil {
				fatal("Error opening database: %v", err)
			}
			defer db.Close()

			models := make([]string, 0, len(cfg.Datasets))
			for _, d := range cfg.Datasets {
				models = append(models, d.Model)
			}
			store := db.NewStore(conn)
			sources := service.NewSourceService(opts.DataDir)
			loaded, err := store.LoadDir(cmd.Context(), sources.SourcesDir(), models)
			if err != nil {
				fatal("Error loading sources: %v", err)
			}
			fmt.Printf("Loaded %d of %d datasets into %s\n", len(loaded), len(models), opts.DataDir)

			tables, err := store.Tables(cmd.Context())
			if err != nil {
				fatal("Error listing tables: %v", err)
			}
			for _, t := range tables {
				fmt.Printf("  %s\n", t)
			}
		}),
	}
	cli.Root().AddCommand(loadCmd)

	cli.Run()
}
