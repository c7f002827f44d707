package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

// DBClient keeps collections in a single kv_store table. It implements
// kvstore.Store and kvstore.Batcher.
type DBClient struct {
	db     *sql.DB
	logger *zap.Logger
}

// Options configures NewPostgresClient.
type Options struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (o Options) DSN() string {
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		o.Host, o.Port, o.User, o.Password, o.Name, sslMode)
}

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const upsert = `
INSERT INTO kv_store (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET
	value = EXCLUDED.value,
	updated_at = NOW()`

// NewPostgresClient initializes and returns a new PostgreSQL client and makes
// sure the kv_store table exists.
func NewPostgresClient(opts Options, logger *zap.Logger) (*DBClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}

	logger.Info("connected to postgres", zap.String("host", opts.Host), zap.String("db", opts.Name))
	return &DBClient{db: db, logger: logger}, nil
}

// Get returns the value stored under key.
func (c *DBClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s from DB: %w", key, err)
	}
	return value, true, nil
}

// Put upserts value under key.
func (c *DBClient) Put(ctx context.Context, key string, value []byte) error {
	if _, err := c.db.ExecContext(ctx, upsert, key, string(value)); err != nil {
		return fmt.Errorf("failed to write %s to DB: %w", key, err)
	}
	return nil
}

// PutMulti upserts every value inside one transaction.
func (c *DBClient) PutMulti(ctx context.Context, values map[string][]byte) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback on error by default

	for k, v := range values {
		if _, err := tx.ExecContext(ctx, upsert, k, string(v)); err != nil {
			return fmt.Errorf("failed to write %s to DB: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *DBClient) Close() {
	if c.db != nil {
		c.db.Close()
		c.logger.Info("postgres connection closed")
	}
}

// GetDB returns the underlying *sql.DB instance
func (c *DBClient) GetDB() *sql.DB {
	return c.db
}
