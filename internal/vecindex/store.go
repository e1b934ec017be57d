package vecindex

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"doubtsolver/internal/chunker"
	"doubtsolver/internal/embed"
)

// DBFileName is the SQLite store inside an index directory.
const DBFileName = "index.db"

// Save persists the index into dir, creating it if needed. The store
// carries a manifest (embedding function name + dimension) and, for
// stateful embedders, the trained embedder state, so a later Load can
// verify compatibility and restore query-time embedding exactly.
func (ix *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Op: "save", Err: err}
	}
	db, err := openDB(filepath.Join(dir, DBFileName))
	if err != nil {
		return &Error{Op: "save", Err: err}
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return &Error{Op: "save", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM chunks"); err != nil {
		return &Error{Op: "save", Err: err}
	}
	stmt, err := tx.Prepare(
		"INSERT INTO chunks (pos, source_id, page, text, metadata, embedding) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return &Error{Op: "save", Err: err}
	}
	defer stmt.Close()

	for i, item := range ix.items {
		var metaJSON []byte
		if item.Chunk.Meta != nil {
			metaJSON, _ = json.Marshal(item.Chunk.Meta)
		}
		embBytes := encodeFloat32Slice(item.Vector)
		if _, err := stmt.Exec(i, item.Chunk.SourceID, item.Chunk.Page, item.Chunk.Text, metaJSON, embBytes); err != nil {
			return &Error{Op: "save", Err: err}
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO manifest (id, embedder, dims, items, created_at) VALUES (1, ?, ?, ?, ?)",
		ix.embedder.Name(), ix.dims, len(ix.items), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return &Error{Op: "save", Err: err}
	}

	if stateful, ok := ix.embedder.(embed.Stateful); ok {
		state, err := stateful.MarshalState()
		if err != nil {
			return &Error{Op: "save", Err: err}
		}
		if _, err := tx.Exec("INSERT OR REPLACE INTO embedder_state (id, data) VALUES (1, ?)", state); err != nil {
			return &Error{Op: "save", Err: err}
		}
	}

	return tx.Commit()
}

// Load reads a persisted index from dir. Loading is integrity sensitive:
// a missing store, an embedding function name mismatch, or a dimension
// mismatch against the configured embedder all fail, because serving
// search results from incompatible vectors is worse than refusing to start.
func Load(dir string, e embed.Embedder) (*Index, error) {
	path := filepath.Join(dir, DBFileName)
	if _, err := os.Stat(path); err != nil {
		return nil, &Error{Op: "load", Err: fmt.Errorf("%w: %s", ErrNotFound, dir)}
	}
	db, err := openDB(path)
	if err != nil {
		return nil, &Error{Op: "load", Err: err}
	}
	defer db.Close()

	var (
		name  string
		dims  int
		items int
	)
	err = db.QueryRow("SELECT embedder, dims, items FROM manifest WHERE id = 1").Scan(&name, &dims, &items)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &Error{Op: "load", Err: fmt.Errorf("%w: store has no manifest", ErrNotFound)}
	}
	if err != nil {
		return nil, &Error{Op: "load", Err: err}
	}

	if name != e.Name() {
		return nil, &Error{Op: "load", Err: fmt.Errorf("%w: index=%q configured=%q", ErrEmbedderMismatch, name, e.Name())}
	}

	// Restore trained state before the dimension check: a stateful
	// embedder's dimension is defined by that state.
	if stateful, ok := e.(embed.Stateful); ok {
		var state []byte
		err := db.QueryRow("SELECT data FROM embedder_state WHERE id = 1").Scan(&state)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, &Error{Op: "load", Err: err}
		}
		if len(state) > 0 {
			if err := stateful.UnmarshalState(state); err != nil {
				return nil, &Error{Op: "load", Err: err}
			}
		}
	}

	if e.Dimensions() != dims {
		return nil, &Error{Op: "load", Err: fmt.Errorf("%w: index has D=%d, embedding function has D=%d", ErrDimMismatch, dims, e.Dimensions())}
	}

	rows, err := db.Query("SELECT source_id, page, text, metadata, embedding FROM chunks ORDER BY pos")
	if err != nil {
		return nil, &Error{Op: "load", Err: err}
	}
	defer rows.Close()

	ix := &Index{dims: dims, embedder: e, items: make([]IndexedChunk, 0, items)}
	for rows.Next() {
		var (
			c        chunker.Chunk
			metaJSON sql.NullString
			embBytes []byte
		)
		if err := rows.Scan(&c.SourceID, &c.Page, &c.Text, &metaJSON, &embBytes); err != nil {
			return nil, &Error{Op: "load", Err: err}
		}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &c.Meta); err != nil {
				return nil, &Error{Op: "load", Err: fmt.Errorf("corrupt metadata for %s page %d: %w", c.SourceID, c.Page, err)}
			}
		}
		vec := decodeFloat32Slice(embBytes)
		if len(vec) != dims {
			return nil, &Error{Op: "load", Err: fmt.Errorf("%w: stored vector has D=%d", ErrDimMismatch, len(vec))}
		}
		ix.items = append(ix.items, IndexedChunk{Chunk: c, Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "load", Err: err}
	}
	return ix, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma failed: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS chunks (
			pos INTEGER PRIMARY KEY,
			source_id TEXT NOT NULL,
			page INTEGER NOT NULL,
			text TEXT NOT NULL,
			metadata TEXT,
			embedding BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS manifest (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			embedder TEXT NOT NULL,
			dims INTEGER NOT NULL,
			items INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS embedder_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data BLOB NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema creation failed: %w", err)
	}
	return db, nil
}

// encodeFloat32Slice converts []float32 to little-endian bytes.
func encodeFloat32Slice(f []float32) []byte {
	buf := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeFloat32Slice converts little-endian bytes back to []float32.
func decodeFloat32Slice(b []byte) []float32 {
	f := make([]float32, len(b)/4)
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return f
}
