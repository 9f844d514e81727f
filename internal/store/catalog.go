package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// Catalog persists chunk text and provenance in SQLite, tagged by index
// generation so a rebuild replaces rows transactionally. Embeddings live in
// the per-generation vector file, not here.
type Catalog struct {
	db *sql.DB
}

// NewCatalog opens or creates the catalog database at dbPath.
func NewCatalog(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT NOT NULL,
		generation INTEGER NOT NULL,
		source_type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		text TEXT NOT NULL,
		page_start INTEGER NOT NULL DEFAULT 0,
		page_end INTEGER NOT NULL DEFAULT 0,
		time_start REAL NOT NULL DEFAULT 0,
		time_end REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (id, generation)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_generation ON chunks(generation);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(generation, source_type, source_id);
	`
	_, err := db.Exec(schema)
	return err
}

// CurrentGeneration returns the committed generation number (0 when fresh).
func (c *Catalog) CurrentGeneration() (uint64, error) {
	var value string
	err := c.db.QueryRow(`SELECT value FROM meta WHERE key = 'current_generation'`).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read current generation: %w", err)
	}
	gen, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse current generation: %w", err)
	}
	return gen, nil
}

// UpsertChunks inserts or replaces chunks for the given generation.
func (c *Catalog) UpsertChunks(gen uint64, chunks []*models.Chunk) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO chunks
		(id, generation, source_type, source_id, ordinal, text, page_start, page_end, time_start, time_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()
	for _, ch := range chunks {
		if _, err := stmt.Exec(ch.ID, gen, string(ch.SourceType), ch.SourceID, ch.Ordinal,
			ch.Text, ch.PageStart, ch.PageEnd, ch.TimeStart, ch.TimeEnd); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert chunk %s: %w", ch.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteChunks removes chunks by ID within the given generation.
func (c *Catalog) DeleteChunks(gen uint64, ids []string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	stmt, err := tx.Prepare(`DELETE FROM chunks WHERE id = ? AND generation = ?`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.Exec(id, gen); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete chunk %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// LoadChunks returns all chunks of the given generation.
func (c *Catalog) LoadChunks(gen uint64) ([]*models.Chunk, error) {
	rows, err := c.db.Query(`SELECT id, source_type, source_id, ordinal, text,
		page_start, page_end, time_start, time_end
		FROM chunks WHERE generation = ?`, gen)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()
	var chunks []*models.Chunk
	for rows.Next() {
		var ch models.Chunk
		var sourceType string
		if err := rows.Scan(&ch.ID, &sourceType, &ch.SourceID, &ch.Ordinal, &ch.Text,
			&ch.PageStart, &ch.PageEnd, &ch.TimeStart, &ch.TimeEnd); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		ch.SourceType = models.SourceType(sourceType)
		chunks = append(chunks, &ch)
	}
	return chunks, rows.Err()
}

// ReplaceGeneration writes the chunks of a new generation and retires every
// other generation's rows in one transaction.
func (c *Catalog) ReplaceGeneration(gen uint64, chunks []*models.Chunk) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO chunks
		(id, generation, source_type, source_id, ordinal, text, page_start, page_end, time_start, time_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare replace: %w", err)
	}
	defer stmt.Close()
	for _, ch := range chunks {
		if _, err := stmt.Exec(ch.ID, gen, string(ch.SourceType), ch.SourceID, ch.Ordinal,
			ch.Text, ch.PageStart, ch.PageEnd, ch.TimeStart, ch.TimeEnd); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("replace chunk %s: %w", ch.ID, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM chunks WHERE generation != ?`, gen); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("retire old generations: %w", err)
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('current_generation', ?)`,
		strconv.FormatUint(gen, 10)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update current generation: %w", err)
	}
	return tx.Commit()
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
