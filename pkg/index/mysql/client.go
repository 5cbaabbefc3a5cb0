// Package mysql provides a MySQL-backed vector index.
//
// MySQL has no native vector operations, so embeddings are stored as JSON
// text and cosine distance is computed in memory over the candidate rows.
// Metadata filters are pushed into the WHERE clause using MySQL's JSON
// operators. The same schema works against any MySQL-protocol database.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/memorybank/memorybank-go/pkg/index"
)

// Client implements index.VectorIndex on top of MySQL.
type Client struct {
	db             *sql.DB
	collectionName string
	dimensions     int
}

// Config contains configuration for the MySQL index.
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	CollectionName     string
	EmbeddingModelDims int
}

// NewClient connects to MySQL and ensures the collection table exists.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
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
			id BIGINT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding LONGTEXT NOT NULL,
			metadata JSON,
			created_at DATETIME(6) NOT NULL,
			last_accessed_at DATETIME(6) NOT NULL,
			importance DOUBLE NOT NULL DEFAULT 1.0,
			access_count INT NOT NULL DEFAULT 0,
			INDEX idx_importance (importance)
		)
	`, c.collectionName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Add inserts a record.
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

// Query filters candidate rows in SQL, computes cosine distance in memory
// and returns the topK nearest neighbors (closest first).
func (c *Client) Query(ctx context.Context, embedding []float64, topK int, filter map[string]interface{}) ([]*index.Neighbor, error) {
	if topK <= 0 {
		return []*index.Neighbor{}, nil
	}

	whereClause, args, err := buildWhereClause(filter)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, content, embedding, metadata,
		       created_at, last_accessed_at, importance, access_count
		FROM %s
		%s
		ORDER BY id
	`, c.collectionName, whereClause)

	rows, err := c.db.QueryContext(ctx, query, args...)
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
	var embeddingStr string
	var metadataStr sql.NullString

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
	if metadataStr.Valid && metadataStr.String != "" {
		if err := json.Unmarshal([]byte(metadataStr.String), &rec.Metadata); err != nil {
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
