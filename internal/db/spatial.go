package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/spatial"
)

// SpatialTables names the tables a SpatialQuerier reads.
type SpatialTables struct {
	Neighborhoods string
	Subway        string
	Homicides     string
}

// SpatialQuerier answers spatial queries with DuckDB spatial SQL.
type SpatialQuerier struct {
	db     *sql.DB
	tables SpatialTables
	radius float64
}

// NewSpatialQuerier returns a querier over the given tables. A radius <= 0
// uses spatial.DefaultHomicideRadius.
func NewSpatialQuerier(db *sql.DB, tables SpatialTables, radius float64) *SpatialQuerier {
	if radius <= 0 {
		radius = spatial.DefaultHomicideRadius
	}
	return &SpatialQuerier{db: db, tables: tables, radius: radius}
}

// ST_Distance_Sphere expects lat/lon axis order, hence the flips.
const sphereDistance = "ST_Distance_Sphere(ST_FlipCoordinates(%s), ST_FlipCoordinates(ST_Point(?, ?)))"

func (q *SpatialQuerier) Query(ctx context.Context, x, y float64) (*spatial.Result, error) {
	p := feature.PointToWGS84(orb.Point{x, y})
	res := &spatial.Result{}

	rows, err := q.db.QueryContext(ctx,
		fmt.Sprintf("SELECT gid FROM %s WHERE ST_Contains(%s, ST_Point(?, ?))", quoteIdent(q.tables.Neighborhoods), GeomColumn),
		p[0], p[1])
	if err != nil {
		return nil, fmt.Errorf("neighborhood query: %w", err)
	}
	for rows.Next() {
		var gid int
		if err := rows.Scan(&gid); err != nil {
			rows.Close()
			return nil, err
		}
		res.Neighborhoods = append(res.Neighborhoods, spatial.Neighborhood{GID: gid})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dist := fmt.Sprintf(sphereDistance, GeomColumn)
	var d float64
	err = q.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT gid, %s AS d FROM %s ORDER BY d LIMIT 1", dist, quoteIdent(q.tables.Subway)),
		p[0], p[1]).Scan(&res.Subway.GID, &d)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("subway query: %w", err)
	default:
		res.Subway.Distance = spatial.Distance(d)
	}

	err = q.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT count(*) FROM %s WHERE %s <= ?", quoteIdent(q.tables.Homicides), dist),
		p[0], p[1], q.radius).Scan(&res.NumberOfHomicides)
	if err != nil {
		return nil, fmt.Errorf("homicide query: %w", err)
	}
	return res, nil
}

var _ spatial.Querier = (*SpatialQuerier)(nil)
