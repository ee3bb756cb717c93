package mbtiles

import (
	"database/sql"
	"fmt"
	"sync"

	// registers the sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// MBTiles is a tile set stored in an SQLite database following the
// MBTiles 1.3 schema
type MBTiles struct {
	db             *sql.DB
	tileInsertStmt *sql.Stmt

	// sqlite allows a single writer
	mu sync.Mutex
}

// Open opens or creates the mbtiles at given path and sets its name and
// tile format ("png", "jpg" or "pbf")
func Open(mbTilesPath string, name string, format string) (*MBTiles, error) {
	db, err := sql.Open("sqlite3", mbTilesPath)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		PRAGMA application_id = 0x4d504258;
		CREATE TABLE IF NOT EXISTS metadata (name text, value text);
		CREATE UNIQUE INDEX IF NOT EXISTS metadata_index on metadata (name);
		CREATE TABLE IF NOT EXISTS tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data blob);
		CREATE UNIQUE INDEX IF NOT EXISTS tile_index on tiles (zoom_level, tile_column, tile_row);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema in %s: %w", mbTilesPath, err)
	}

	tileInsertStmt, err := db.Prepare("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?);")
	if err != nil {
		db.Close()
		return nil, err
	}

	mbTiles := &MBTiles{db: db, tileInsertStmt: tileInsertStmt}

	metas := [][2]string{
		{"name", name},
		{"format", format},
	}
	if format == "pbf" {
		metas = append(metas, [2]string{"json", `{ "vector_layers": [] }`})
	}
	if err := mbTiles.InsertMeta(metas); err != nil {
		mbTiles.Close()
		return nil, err
	}

	return mbTiles, nil
}

// Close releases db file
func (mbTiles *MBTiles) Close() error {
	if err := mbTiles.tileInsertStmt.Close(); err != nil {
		mbTiles.db.Close()
		return err
	}

	return mbTiles.db.Close()
}

// InsertTile inserts a tile at (z, x, y). y is in TMS order, counted from
// the bottom row.
func (mbTiles *MBTiles) InsertTile(z, x, y uint, tileData []byte) error {
	mbTiles.mu.Lock()
	defer mbTiles.mu.Unlock()

	_, err := mbTiles.tileInsertStmt.Exec(z, x, y, tileData)
	return err
}

// WriteTile inserts a tile addressed in XYZ order, with row 0 at the top
func (mbTiles *MBTiles) WriteTile(lod uint8, col, row int, data []byte) error {
	tmsRow := (1 << lod) - 1 - row
	return mbTiles.InsertTile(uint(lod), uint(col), uint(tmsRow), data)
}

// InsertMeta sets metadata entries
func (mbTiles *MBTiles) InsertMeta(entries [][2]string) error {
	mbTiles.mu.Lock()
	defer mbTiles.mu.Unlock()

	tx, err := mbTiles.db.Begin()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if _, err := tx.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?);", entry[0], entry[1]); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Meta reads one metadata entry
func (mbTiles *MBTiles) Meta(name string) (string, error) {
	var value string
	err := mbTiles.db.QueryRow("SELECT value FROM metadata WHERE name = ?;", name).Scan(&value)
	return value, err
}

// Tile reads the tile at XYZ position (lod, col, row)
func (mbTiles *MBTiles) Tile(lod uint8, col, row int) ([]byte, error) {
	var data []byte
	tmsRow := (1 << lod) - 1 - row
	err := mbTiles.db.QueryRow(
		"SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?;",
		lod, col, tmsRow,
	).Scan(&data)
	return data, err
}
