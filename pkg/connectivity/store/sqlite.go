// Package store keeps imported connectivity graphs in a sqlite database so
// servers can load scans without parsing the JSON dataset on every start.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/teslashibe/go-mattersim/internal/log"
	"github.com/teslashibe/go-mattersim/pkg/connectivity"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS viewpoints (
		scan_id       TEXT    NOT NULL,
		idx           INTEGER NOT NULL,
		viewpoint_id  TEXT    NOT NULL,
		included      INTEGER NOT NULL,
		x             DOUBLE  NOT NULL,
		y             DOUBLE  NOT NULL,
		z             DOUBLE  NOT NULL,
		PRIMARY KEY (scan_id, idx)
	);
	CREATE TABLE IF NOT EXISTS unobstructed (
		scan_id   TEXT    NOT NULL,
		from_idx  INTEGER NOT NULL,
		to_idx    INTEGER NOT NULL,
		PRIMARY KEY (scan_id, from_idx, to_idx)
	);
`

// Store is a sqlite-backed connectivity.Source.
type Store struct {
	*sql.DB
}

var _ connectivity.Source = (*Store)(nil)

// Open opens (or creates) a graph database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open graph db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create graph schema: %w", err)
	}

	return &Store{db}, nil
}

// Import replaces the stored copy of a graph.
func (s *Store) Import(ctx context.Context, g *connectivity.Graph) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	scanID := g.ScanID()
	if _, err := tx.ExecContext(ctx, `DELETE FROM viewpoints WHERE scan_id = ?`, scanID); err != nil {
		return fmt.Errorf("clear viewpoints: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM unobstructed WHERE scan_id = ?`, scanID); err != nil {
		return fmt.Errorf("clear unobstructed: %w", err)
	}

	vpStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO viewpoints (scan_id, idx, viewpoint_id, included, x, y, z)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare viewpoints: %w", err)
	}
	defer vpStmt.Close()

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO unobstructed (scan_id, from_idx, to_idx) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare unobstructed: %w", err)
	}
	defer edgeStmt.Close()

	edges := 0
	for i := 0; i < g.Len(); i++ {
		vp := g.At(i)
		if _, err := vpStmt.ExecContext(ctx, scanID, i, vp.ID, vp.Included,
			vp.Position.X, vp.Position.Y, vp.Position.Z); err != nil {
			return fmt.Errorf("insert viewpoint %s: %w", vp.ID, err)
		}
		for j := 0; j < g.Len(); j++ {
			if !g.UnobstructedAt(i, j) {
				continue
			}
			if _, err := edgeStmt.ExecContext(ctx, scanID, i, j); err != nil {
				return fmt.Errorf("insert edge %d->%d: %w", i, j, err)
			}
			edges++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	log.Component("store").Info("graph imported",
		"scan", scanID, "viewpoints", g.Len(), "edges", edges)
	return nil
}

// LoadGraph rebuilds a stored graph.
func (s *Store) LoadGraph(ctx context.Context, scanID string) (*connectivity.Graph, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT viewpoint_id, included, x, y, z
		FROM viewpoints WHERE scan_id = ? ORDER BY idx`, scanID)
	if err != nil {
		return nil, fmt.Errorf("%w: query viewpoints: %v", connectivity.ErrIOFailure, err)
	}

	var records []connectivity.Record
	for rows.Next() {
		var (
			rec     connectivity.Record
			x, y, z float64
		)
		if err := rows.Scan(&rec.ImageID, &rec.Included, &x, &y, &z); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan viewpoint: %v", connectivity.ErrIOFailure, err)
		}
		rec.Pose = []float64{1, 0, 0, x, 0, 1, 0, y, 0, 0, 1, z, 0, 0, 0, 1}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: read viewpoints: %v", connectivity.ErrIOFailure, err)
	}
	rows.Close()

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: scan %s not in graph db", connectivity.ErrIOFailure, scanID)
	}

	n := len(records)
	for i := range records {
		records[i].Unobstructed = make([]bool, n)
	}

	edges, err := s.QueryContext(ctx, `
		SELECT from_idx, to_idx FROM unobstructed WHERE scan_id = ?`, scanID)
	if err != nil {
		return nil, fmt.Errorf("%w: query unobstructed: %v", connectivity.ErrIOFailure, err)
	}
	defer edges.Close()

	for edges.Next() {
		var from, to int
		if err := edges.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("%w: scan edge: %v", connectivity.ErrIOFailure, err)
		}
		if from < 0 || from >= n || to < 0 || to >= n {
			return nil, fmt.Errorf("%w: edge %d->%d out of range in scan %s",
				connectivity.ErrIOFailure, from, to, scanID)
		}
		records[from].Unobstructed[to] = true
	}
	if err := edges.Err(); err != nil {
		return nil, fmt.Errorf("%w: read unobstructed: %v", connectivity.ErrIOFailure, err)
	}

	return connectivity.NewGraph(scanID, records)
}

// ScanIDs lists the imported scans in id order.
func (s *Store) ScanIDs(ctx context.Context) ([]string, error) {
	rows, err := s.QueryContext(ctx, `SELECT DISTINCT scan_id FROM viewpoints ORDER BY scan_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list scans: %v", connectivity.ErrIOFailure, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan id: %v", connectivity.ErrIOFailure, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
