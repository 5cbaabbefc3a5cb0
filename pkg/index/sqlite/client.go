// Package sqlite provides a SQLite-backed vector index.
//
// SQLite has no native vector type, so embeddings are stored as JSON text and
// cosine distance is computed in memory over the candidate rows. This keeps
// the backend dependency-free beyond the driver and is well suited to local
// development and single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/memorybank/memorybank-go/pkg/index"
)

// Client implements index.VectorIndex on top of SQLite.
type Client struct {
	db             *sql.DB
	collectionName string
	dimensions     int
}

// Config contains configuration for the SQLite index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CollectionName is the table used to store records.
	CollectionName string

	// EmbeddingModelDims is the expected embedding dimension.
	EmbeddingModelDims int
}

// NewClient opens (or creates) the SQLite database and ensures the
// collection table exists.
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{
		db:             db,
		collectionName: cfg.CollectionName,
		dimensions:     cfg.EmbeddingModelDims,
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			content TEXT NOT NULL,
			embedding TEXT NOT NULL,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			last_accessed_at DATETIME NOT NULL,
			importance REAL NOT NULL DEFAULT 1.0,
			access_count INTEGER NOT NULL DEFAULT 0
		)
	`, c.collectionName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_importance ON %s(importance)
	`, c.collectionName, c.collectionName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Add inserts a record. Embeddings and metadata are serialized as JSON text.
func (c *Client) Add(ctx context.Context, rec *index.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, content, embedding, metadata, created_at, last_accessed_at, importance, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.collectionName)

	embeddingJSON, err := json.Marshal(rec.Embedding)
	if err != nil {
		return fmt.Errorf("Add: %w", err)
	}

	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("Add: %w", err)
	}

	_, err = c.db.ExecContext(ctx, query,
		rec.ID,
		rec.Content,
		string(embeddingJSON),
		string(metadataJSON),
		rec.CreatedAt,
		rec.LastAccessedAt,
		rec.Importance,
		rec.AccessCount,
	)
	if err != nil {
		return fmt.Errorf("Add: %w", err)
	}

	return nil
}

// Query scans candidate rows, applies the metadata filter, computes cosine
// distance in memory and returns the topK nearest neighbors (closest first).
func (c *Client) Query(ctx context.Context, embedding []float64, topK int, filter map[string]interface{}) ([]*index.Neighbor, error) {
	if topK <= 0 {
		return []*index.Neighbor{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, content, embedding, metadata,
		       created_at, last_accessed_at, importance, access_count
		FROM %s
		ORDER BY id
	`, c.collectionName)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var neighbors []*index.Neighbor
	for rows.Next() {
		rec, err := c.scanRecord(rows)
		if err != nil {
			return nil, err
		}

		if !matchesFilter(rec.Metadata, filter) {
			continue
		}

		neighbors = append(neighbors, &index.Neighbor{
			Record:   *rec,
			Distance: 1 - cosineSimilarity(embedding, rec.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}

	return neighbors, nil
}

// UpdateAccess overwrites a record's access bookkeeping.
func (c *Client) UpdateAccess(ctx context.Context, id int64, importance float64, lastAccessedAt time.Time, accessCount int) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET importance = ?, last_accessed_at = ?, access_count = ?
		WHERE id = ?
	`, c.collectionName)

	result, err := c.db.ExecContext(ctx, query, importance, lastAccessedAt, accessCount, id)
	if err != nil {
		return false, fmt.Errorf("UpdateAccess: %w", err)
	}

	return affected(result)
}

// UpdateImportance overwrites a record's importance.
func (c *Client) UpdateImportance(ctx context.Context, id int64, importance float64) (bool, error) {
	query := fmt.Sprintf("UPDATE %s SET importance = ? WHERE id = ?", c.collectionName)

	result, err := c.db.ExecContext(ctx, query, importance, id)
	if err != nil {
		return false, fmt.Errorf("UpdateImportance: %w", err)
	}

	return affected(result)
}

// Delete removes a record. A missing ID is not an error.
func (c *Client) Delete(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", c.collectionName)

	result, err := c.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}

	return affected(result)
}

// GetAll returns every record, oldest first.
func (c *Client) GetAll(ctx context.Context) ([]*index.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, content, embedding, metadata,
		       created_at, last_accessed_at, importance, access_count
		FROM %s
		ORDER BY created_at
	`, c.collectionName)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("GetAll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*index.Record
	for rows.Next() {
		rec, err := c.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetAll: %w", err)
	}

	return records, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Client) scanRecord(rows *sql.Rows) (*index.Record, error) {
	var rec index.Record
	var embeddingStr, metadataStr string

	err := rows.Scan(
		&rec.ID,
		&rec.Content,
		&embeddingStr,
		&metadataStr,
		&rec.CreatedAt,
		&rec.LastAccessedAt,
		&rec.Importance,
		&rec.AccessCount,
	)
	if err != nil {
		return nil, fmt.Errorf("scanRecord: %w", err)
	}

	if err := json.Unmarshal([]byte(embeddingStr), &rec.Embedding); err != nil {
		return nil, fmt.Errorf("scanRecord: parse embedding: %w", err)
	}
	if metadataStr != "" {
		if err := json.Unmarshal([]byte(metadataStr), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("scanRecord: parse metadata: %w", err)
		}
	}

	return &rec, nil
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
