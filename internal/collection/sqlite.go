package collection

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nagomi-art/nagomi/internal/models"
)

// SQLiteCollection is a named, path-addressed persistent vector collection.
// Rows live in SQLite; vectors are mirrored in memory for brute-force cosine
// search, which is exact and fast enough for an art dataset. Reads are safe
// under concurrency; upserts are write-through transactions.
type SQLiteCollection struct {
	db   *sql.DB
	name string

	mu      sync.RWMutex
	ids     []string
	vectors [][]float32
	metas   []models.Metadata
	byID    map[string]int
}

// Open opens or creates the named collection under dir. The database file is
// <dir>/<name>.db. Any failure wraps ErrIndexUnavailable so callers can fail
// fast at startup.
func Open(dir, name string) (*SQLiteCollection, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create collection dir: %v", ErrIndexUnavailable, err)
	}
	dbPath := filepath.Join(dir, name+".db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrIndexUnavailable, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %v", ErrIndexUnavailable, err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: initialize schema: %v", ErrIndexUnavailable, err)
	}

	c := &SQLiteCollection{
		db:   db,
		name: name,
		byID: make(map[string]int),
	}
	if err := c.loadAll(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: load vectors: %v", ErrIndexUnavailable, err)
	}
	return c, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS artworks (
		id TEXT PRIMARY KEY,
		vector BLOB NOT NULL,
		author TEXT,
		title TEXT,
		year TEXT,
		movement TEXT,
		fallback INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := db.Exec(schema)
	return err
}

// loadAll mirrors every stored row into memory for search.
func (c *SQLiteCollection) loadAll() error {
	rows, err := c.db.Query(`SELECT id, vector, author, title, year, movement, fallback FROM artworks ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var blob []byte
		var meta models.Metadata
		var fallback int
		if err := rows.Scan(&id, &blob, &meta.Author, &meta.Title, &meta.Year, &meta.Movement, &fallback); err != nil {
			return err
		}
		meta.Fallback = fallback != 0
		c.byID[id] = len(c.ids)
		c.ids = append(c.ids, id)
		c.vectors = append(c.vectors, bytesToVector(blob))
		c.metas = append(c.metas, meta)
	}
	return rows.Err()
}

// Upsert inserts or replaces entries in one transaction and updates the
// in-memory mirror on success.
func (c *SQLiteCollection) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin upsert: %v", ErrIndexUnavailable, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO artworks (id, vector, author, title, year, movement, fallback)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: prepare upsert: %v", ErrIndexUnavailable, err)
	}
	defer stmt.Close()
	for _, e := range entries {
		fallback := 0
		if e.Metadata.Fallback {
			fallback = 1
		}
		if _, err := stmt.ExecContext(ctx, e.ID, vectorToBytes(e.Vector),
			e.Metadata.Author, e.Metadata.Title, e.Metadata.Year, e.Metadata.Movement, fallback); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: upsert %s: %v", ErrIndexUnavailable, e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit upsert: %v", ErrIndexUnavailable, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		if i, ok := c.byID[e.ID]; ok {
			c.vectors[i] = vec
			c.metas[i] = e.Metadata
			continue
		}
		c.byID[e.ID] = len(c.ids)
		c.ids = append(c.ids, e.ID)
		c.vectors = append(c.vectors, vec)
		c.metas = append(c.metas, e.Metadata)
	}
	return nil
}

// Get returns the subset of the given ids that exist in the collection.
func (c *SQLiteCollection) Get(ctx context.Context, ids []string) ([]Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Entry
	for _, id := range ids {
		i, ok := c.byID[id]
		if !ok {
			continue
		}
		vec := make([]float32, len(c.vectors[i]))
		copy(vec, c.vectors[i])
		out = append(out, Entry{ID: id, Vector: vec, Metadata: c.metas[i]})
	}
	return out, nil
}

// Query returns the k closest entries to vector by cosine distance, ascending.
func (c *SQLiteCollection) Query(ctx context.Context, vector []float32, k int) ([]*Match, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if k <= 0 || len(c.ids) == 0 {
		return nil, nil
	}
	type scored struct {
		idx  int
		dist float64
	}
	scores := make([]scored, len(c.ids))
	for i, vec := range c.vectors {
		var dot float64
		n := len(vector)
		if len(vec) < n {
			n = len(vec)
		}
		for j := 0; j < n; j++ {
			dot += float64(vector[j]) * float64(vec[j])
		}
		scores[i] = scored{idx: i, dist: 1 - dot}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].dist < scores[j].dist })
	if k > len(scores) {
		k = len(scores)
	}
	matches := make([]*Match, k)
	for i := 0; i < k; i++ {
		s := scores[i]
		matches[i] = &Match{ID: c.ids[s.idx], Metadata: c.metas[s.idx], Distance: s.dist}
	}
	return matches, nil
}

// Delete removes entries by ID from the database and the in-memory mirror.
// Unknown IDs are ignored.
func (c *SQLiteCollection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin delete: %v", ErrIndexUnavailable, err)
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM artworks WHERE id = ?`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: prepare delete: %v", ErrIndexUnavailable, err)
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: delete %s: %v", ErrIndexUnavailable, id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit delete: %v", ErrIndexUnavailable, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		i, ok := c.byID[id]
		if !ok {
			continue
		}
		last := len(c.ids) - 1
		if i != last {
			c.ids[i] = c.ids[last]
			c.vectors[i] = c.vectors[last]
			c.metas[i] = c.metas[last]
			c.byID[c.ids[i]] = i
		}
		c.ids = c.ids[:last]
		c.vectors = c.vectors[:last]
		c.metas = c.metas[:last]
		delete(c.byID, id)
	}
	return nil
}

// Count returns the number of stored entries.
func (c *SQLiteCollection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids), nil
}

// Name returns the collection name.
func (c *SQLiteCollection) Name() string {
	return c.name
}

// Close closes the underlying database.
func (c *SQLiteCollection) Close() error {
	return c.db.Close()
}

func vectorToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(x))
	}
	return out
}

func bytesToVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
