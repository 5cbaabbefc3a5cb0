// Package postgres provides a PostgreSQL + pgvector backed vector index.
//
// Embeddings are stored in a pgvector column and nearest-neighbor queries use
// the <=> cosine distance operator, so ordering and limiting happen inside
// the database. Metadata lives in a JSONB column and exact-match filters are
// pushed into the WHERE clause.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/memorybank/memorybank-go/pkg/index"
)

// Client implements index.VectorIndex on top of PostgreSQL with pgvector.
type Client struct {
	db             *sql.DB
	collectionName string
	dimensions     int
}

// Config contains configuration for the PostgreSQL index.
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	CollectionName     string
	EmbeddingModelDims int
	SSLMode            string
}

// NewClient connects to PostgreSQL, enables the pgvector extension and
// ensures the collection table exists.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
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
	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("initTables: create extension: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB,
			created_at TIMESTAMP NOT NULL,
			last_accessed_at TIMESTAMP NOT NULL,
			importance FLOAT NOT NULL DEFAULT 1.0,
			access_count INTEGER NOT NULL DEFAULT 0
		)
	`, c.collectionName, c.dimensions)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: create table: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_importance ON %s(importance)
	`, c.collectionName, c.collectionName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: create index: %w", err)
	}

	return nil
}

// Add inserts a record.
func (c *Client) Add(ctx context.Context, rec *index.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, content, embedding, metadata, created_at, last_accessed_at, importance, access_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.collectionName)

	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("Add: %w", err)
	}

	_, err = c.db.ExecContext(ctx, query,
		rec.ID,
		rec.Content,
		vectorToString(rec.Embedding),
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

// Query returns the topK nearest neighbors ordered by cosine distance,
// computed by pgvector's <=> operator.
func (c *Client) Query(ctx context.Context, embedding []float64, topK int, filter map[string]interface{}) ([]*index.Neighbor, error) {
	if topK <= 0 {
		return []*index.Neighbor{}, nil
	}

	// $1 is the query vector; filter placeholders start at $2.
	whereClause, filterArgs, err := buildWhereClause(filter, 2)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, content, embedding, metadata,
		       created_at, last_accessed_at, importance, access_count,
		       embedding <=> $1 AS distance
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, c.collectionName, whereClause, len(filterArgs)+2)

	args := []interface{}{vectorToString(embedding)}
	args = append(args, filterArgs...)
	args = append(args, topK)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var neighbors []*index.Neighbor
	for rows.Next() {
		var n index.Neighbor
		var embeddingStr, metadataStr string

		err := rows.Scan(
			&n.ID,
			&n.Content,
			&embeddingStr,
			&metadataStr,
			&n.CreatedAt,
			&n.LastAccessedAt,
			&n.Importance,
			&n.AccessCount,
			&n.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("Query: %w", err)
		}

		if n.Embedding, err = stringToVector(embeddingStr); err != nil {
			return nil, fmt.Errorf("Query: parse embedding: %w", err)
		}
		if metadataStr != "" {
			if err := json.Unmarshal([]byte(metadataStr), &n.Metadata); err != nil {
				return nil, fmt.Errorf("Query: parse metadata: %w", err)
			}
		}

		neighbors = append(neighbors, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}

	return neighbors, nil
}

// UpdateAccess overwrites a record's access bookkeeping.
func (c *Client) UpdateAccess(ctx context.Context, id int64, importance float64, lastAccessedAt time.Time, accessCount int) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET importance = $1, last_accessed_at = $2, access_count = $3
		WHERE id = $4
	`, c.collectionName)

	result, err := c.db.ExecContext(ctx, query, importance, lastAccessedAt, accessCount, id)
	if err != nil {
		return false, fmt.Errorf("UpdateAccess: %w", err)
	}

	return affected(result)
}

// UpdateImportance overwrites a record's importance.
func (c *Client) UpdateImportance(ctx context.Context, id int64, importance float64) (bool, error) {
	query := fmt.Sprintf("UPDATE %s SET importance = $1 WHERE id = $2", c.collectionName)

	result, err := c.db.ExecContext(ctx, query, importance, id)
	if err != nil {
		return false, fmt.Errorf("UpdateImportance: %w", err)
	}

	return affected(result)
}

// Delete removes a record. A missing ID is not an error.
func (c *Client) Delete(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", c.collectionName)

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
			return nil, fmt.Errorf("GetAll: %w", err)
		}

		if rec.Embedding, err = stringToVector(embeddingStr); err != nil {
			return nil, fmt.Errorf("GetAll: parse embedding: %w", err)
		}
		if metadataStr != "" {
			if err := json.Unmarshal([]byte(metadataStr), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("GetAll: parse metadata: %w", err)
			}
		}

		records = append(records, &rec)
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

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
