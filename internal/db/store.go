// Package db stores the map datasets in DuckDB. Each dataset is a table
// named after its model, created from a GeoJSON file with the spatial
// extension's ST_Read, which puts the geometry in a "geom" column.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/nycmap/internal/feature"
)

// GeomColumn is the geometry column ST_Read produces.
const GeomColumn = "geom"

// ErrUnknownModel is returned for a model with no table.
var ErrUnknownModel = errors.New("unknown model")

// Store queries dataset tables.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load (re)creates the table for model from a GeoJSON file.
func (s *Store) Load(ctx context.Context, model, path string) error {
	q := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM ST_Read(%s)", quoteIdent(model), quoteLiteral(path))
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("loading %s from %s: %w", model, path, err)
	}
	return nil
}

// LoadDir loads <dir>/<model>.geojson for every model whose file exists and
// returns the models loaded.
func (s *Store) LoadDir(ctx context.Context, dir string, models []string) ([]string, error) {
	var loaded []string
	for _, m := range models {
		path := filepath.Join(dir, m+".geojson")
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return loaded, err
		}
		if err := s.Load(ctx, m, path); err != nil {
			return loaded, err
		}
		loaded = append(loaded, m)
	}
	return loaded, nil
}

// Tables returns the names of the tables in the database, sorted.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rows.Err()
}

// Columns returns the non-geometry columns of a model's table.
func (s *Store) Columns(ctx context.Context, model string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position", model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if name != GeomColumn {
			cols = append(cols, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return cols, nil
}

// Features returns the features of model whose columns equal the filter
// values, compared as text. Filter columns must have been validated.
func (s *Store) Features(ctx context.Context, model string, filters map[string]string) ([]*feature.Feature, error) {
	q, args := featureQuery(model, filters)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", model, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []*feature.Feature
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		f := &feature.Feature{Layer: model, Properties: map[string]any{}}
		for i, col := range cols {
			if col == geomJSON {
				if js, ok := values[i].(string); ok && js != "" {
					g, err := geojson.UnmarshalGeometry([]byte(js))
					if err != nil {
						return nil, fmt.Errorf("decoding geometry: %w", err)
					}
					f.Geometry = g.Geometry()
				}
				continue
			}
			f.Properties[col] = normalize(values[i])
		}
		if gid, ok := f.Properties["gid"]; ok {
			f.GID = toInt(gid)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

const geomJSON = "__geom_json"

func featureQuery(model string, filters map[string]string) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * EXCLUDE (%s), ST_AsGeoJSON(%s) AS %s FROM %s",
		GeomColumn, GeomColumn, geomJSON, quoteIdent(model))

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys))
	for i, k := range keys {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "CAST(%s AS VARCHAR) = ?", quoteIdent(k))
		args = append(args, filters[k])
	}
	return b.String(), args
}

// InvalidFilters returns the filter names that are not columns, sorted.
func InvalidFilters(columns []string, filters map[string]string) []string {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	var invalid []string
	for k := range filters {
		if !known[k] {
			invalid = append(invalid, k)
		}
	}
	sort.Strings(invalid)
	return invalid
}

// normalize turns driver values into JSON-friendly ones.
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	case *big.Int:
		if t.IsInt64() {
			return t.Int64()
		}
		return t.String()
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	}
	return v
}

func toInt(v any) int {
	switch t := v.(type) {
	case int64:
		return int(t)
	case int:
		return t
	case float64:
		return int(t)
	}
	return 0
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
