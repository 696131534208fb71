package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/integraldb/internal/config"
	"github.com/markdave123-py/integraldb/internal/core"
	"github.com/markdave123-py/integraldb/internal/models"
)

var _ core.VectorStore = (*DatabaseClient)(nil)

// DatabaseClient is the vector store: one row per chunk in the documents table.
type DatabaseClient struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dsn, err := buildDSN(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// a sync pass holds few connections; the HTTP server adds a handful more
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	logger.Debug("database ready", "embed_dim", cfg.EmbedDim)
	return &DatabaseClient{db: db, logger: logger}, nil
}

// buildDSN appends verify-ca parameters when a root certificate is configured.
func buildDSN(databaseURL, sslCertPath string) (string, error) {
	if databaseURL == "" {
		return "", fmt.Errorf("%w: DATABASE_URL is empty", core.ErrConfiguration)
	}
	if sslCertPath == "" {
		return databaseURL, nil
	}
	if _, err := os.Stat(sslCertPath); err != nil {
		return "", fmt.Errorf("%w: ssl cert not accessible at %q: %w", core.ErrConfiguration, sslCertPath, err)
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid DATABASE_URL: %w", core.ErrConfiguration, err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", sslCertPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InsertChunks inserts chunks in a single transaction: all or none.
func (c *DatabaseClient) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO documents
			(id, source_filename, content, embedding, category, position, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, COALESCE($7, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		var createdAt *time.Time
		if !ch.CreatedAt.IsZero() {
			createdAt = &ch.CreatedAt
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.SourceFilename, ch.Content, pgvector.NewVector(ch.Embedding), ch.Category, ch.Position, createdAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) DeleteChunksBySource(ctx context.Context, sourceFilename string) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE source_filename = $1`, sourceFilename)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *DatabaseClient) SourceExists(ctx context.Context, sourceFilename string) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE source_filename = $1)`, sourceFilename).
		Scan(&exists)
	return exists, err
}

// ListSources summarises stored chunks per display name, most recently ingested first.
func (c *DatabaseClient) ListSources(ctx context.Context) ([]models.StoredSource, error) {
	const q = `
		SELECT source_filename, count(*), max(created_at)
		FROM documents
		GROUP BY source_filename
		ORDER BY max(created_at) DESC, source_filename
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StoredSource
	for rows.Next() {
		var s models.StoredSource
		if err := rows.Scan(&s.SourceFilename, &s.Chunks, &s.LastIngested); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteAllChunks(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
