package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"pricescout/internal/types"
)

// PostgresStore persists order records in a parsed_data table.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore connects to Postgres and ensures the table exists.
func NewPostgresStore(dsn string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: fmt.Errorf("open: %w", err)}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "postgres", Err: fmt.Errorf("ping: %w", err)}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS parsed_data (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "postgres", Err: fmt.Errorf("create table: %w", err)}
	}

	return &PostgresStore{
		db:     db,
		logger: logger.With("component", "postgres_store"),
	}, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) SaveOrder(ctx context.Context, userID string, info types.ProductInfo) error {
	content, err := json.Marshal(info)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: err}
	}

	const query = `INSERT INTO parsed_data (user_id, content, created_at) VALUES ($1, $2, NOW())`
	if _, err := s.db.ExecContext(ctx, query, userID, string(content)); err != nil {
		return &types.StorageError{Backend: "postgres", Err: fmt.Errorf("insert: %w", err)}
	}

	s.logger.Debug("order saved", "user_id", userID)
	return nil
}

func (s *PostgresStore) DistinctUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM parsed_data`)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: err}
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &types.StorageError{Backend: "postgres", Err: err}
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: err}
	}
	return users, nil
}

func (s *PostgresStore) OrdersSince(ctx context.Context, since time.Time) ([]types.OrderRecord, error) {
	const query = `
		SELECT user_id, content, created_at
		FROM parsed_data
		WHERE created_at >= $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: err}
	}
	defer rows.Close()

	var records []types.OrderRecord
	for rows.Next() {
		var (
			rec     types.OrderRecord
			content string
		)
		if err := rows.Scan(&rec.UserID, &content, &rec.CreatedAt); err != nil {
			return nil, &types.StorageError{Backend: "postgres", Err: err}
		}
		if err := json.Unmarshal([]byte(content), &rec.Product); err != nil {
			s.logger.Warn("skipping row with malformed content", "user_id", rec.UserID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: err}
	}
	return records, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
