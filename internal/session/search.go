package session

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/view"
)

// Property is a feature property the station search matches against.
type Property string

const (
	PropertyName     Property = "name"
	PropertyLongName Property = "long_name"
	PropertyLabel    Property = "label"
)

// Properties lists the searchable properties in selector order.
var Properties = []Property{PropertyName, PropertyLongName, PropertyLabel}

// ParseProperty validates a property name. The empty string is PropertyName.
func ParseProperty(s string) (Property, error) {
	if s == "" {
		return PropertyName, nil
	}
	for _, p := range Properties {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProperty, s)
}

// DefaultMaxResults bounds the result list when no limit is configured.
const DefaultMaxResults = 10

var searchFit = view.FitOptions{MaxZoom: 18, Duration: 500 * time.Millisecond}

// SearchResult is one matching station.
type SearchResult struct {
	GID  int    `json:"gid"`
	Text string `json:"text"`
}

// SearchOptions configures a SearchController.
type SearchOptions struct {
	Property   Property
	MaxResults int
	// ShowOverlay shows the station popup on selection, raised
	// OverlayOffset map units above the station.
	ShowOverlay   bool
	OverlayOffset float64
}

// SearchController searches one feature collection and focuses the
// selected result.
type SearchController struct {
	source    *feature.Cache
	opts      SearchOptions
	query     string
	results   []SearchResult
	highlight *HighlightManager
	overlay   *OverlayPresenter
	engine    view.Engine
}

func NewSearchController(source *feature.Cache, opts SearchOptions, highlight *HighlightManager, overlay *OverlayPresenter, engine view.Engine) *SearchController {
	if opts.Property == "" {
		opts.Property = PropertyName
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	return &SearchController{source: source, opts: opts, highlight: highlight, overlay: overlay, engine: engine}
}

// Search matches q case-insensitively as a substring of the configured
// property. Results are ordered by the property value, byte-wise and
// stable on ties.
func (c *SearchController) Search(q string) []SearchResult {
	c.query = q
	c.results = c.run()
	return c.results
}

// SetProperty switches the searched property and re-runs the last query.
func (c *SearchController) SetProperty(p Property) []SearchResult {
	c.opts.Property = p
	return c.Search(c.query)
}

func (c *SearchController) run() []SearchResult {
	needle := strings.ToLower(strings.TrimSpace(c.query))
	if needle == "" {
		return nil
	}
	var out []SearchResult
	for _, f := range c.source.All() {
		v := f.String(string(c.opts.Property))
		if v == "" || !strings.Contains(strings.ToLower(v), needle) {
			continue
		}
		out = append(out, SearchResult{GID: f.GID, Text: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	if len(out) > c.opts.MaxResults {
		out = out[:c.opts.MaxResults]
	}
	return out
}

// Select highlights the station and fits the camera to it.
func (c *SearchController) Select(gid int) error {
	f, ok := c.source.Get(gid)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFeature, gid)
	}
	c.highlight.Highlight(gid)
	if f.Geometry != nil {
		c.engine.Fit(f.Extent(), searchFit)
	}
	if c.opts.ShowOverlay {
		at := f.Anchor()
		c.overlay.Show(f.Escaped("name"), "Line: "+f.Escaped("routes"), orb.Point{at[0], at[1] + c.opts.OverlayOffset})
	}
	return nil
}

func (c *SearchController) Property() Property {
	return c.opts.Property
}

func (c *SearchController) Query() string {
	return c.query
}

// Results returns the results of the last search.
func (c *SearchController) Results() []SearchResult {
	return c.results
}
