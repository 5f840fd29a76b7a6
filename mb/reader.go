// Package mb reads and writes tile pyramids in MBTiles (sqlite) files.
//
// MBTiles numbers rows from the south (TMS); this package converts to and from
// tile.ID rows, which count from the north.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package mb

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/eak1mov/go-terrain/tile"
)

// flipRow converts between north-up and TMS (south-up) row numbering.
func flipRow(level, row uint32) uint32 {
	return (1 << level) - 1 - row
}

// Reader implements tile.Reader and tile.Visitor for MBTiles files.
type Reader struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewReader opens an MBTiles file read-only.
//
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Reader{db: db, stmt: stmt}, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

func (r *Reader) ReadMetadata() (map[string]string, error) {
	metadata := make(map[string]string)

	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}
	return metadata, rows.Err()
}

// Depth returns the deepest level stored, taken from the "maxzoom" metadata
// entry when present and from the tiles table otherwise.
func (r *Reader) Depth() (int, error) {
	metadata, err := r.ReadMetadata()
	if err != nil {
		return 0, err
	}
	if value, ok := metadata["maxzoom"]; ok {
		return strconv.Atoi(value)
	}
	var depth sql.NullInt64
	if err := r.db.QueryRow("SELECT MAX(zoom_level) FROM tiles").Scan(&depth); err != nil {
		return 0, err
	}
	if !depth.Valid {
		return 0, fmt.Errorf("mb: no tiles")
	}
	return int(depth.Int64), nil
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	if tileID.Level >= 32 || tileID.Row >= 1<<tileID.Level {
		return make([]byte, 0), nil
	}
	var tileData []byte
	err := r.stmt.QueryRow(tileID.Level, tileID.Col, flipRow(tileID.Level, tileID.Row)).Scan(&tileData)
	if errors.Is(err, sql.ErrNoRows) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, err
	}
	return tileData, nil
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	rows, err := r.db.Query("SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var level, col, tmsRow uint32
		var tileData []byte
		if err := rows.Scan(&level, &col, &tmsRow, &tileData); err != nil {
			return err
		}
		tileID := tile.ID{Level: level, Row: flipRow(level, tmsRow), Col: col}
		if err := visitor(tileID, tileData); err != nil {
			return err
		}
	}
	return rows.Err()
}
