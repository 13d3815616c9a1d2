package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// OrderLog mirrors accepted orders into PostgreSQL so they survive a
// backend restart and feed reporting.
type OrderLog struct {
	db *sql.DB
}

// ConnectOrderLog opens the database and ensures the orders table exists.
func ConnectOrderLog(connStr string) (*OrderLog, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			request_id TEXT,
			user_id INTEGER NOT NULL,
			customer_email TEXT NOT NULL,
			lines JSONB NOT NULL,
			total NUMERIC(12,2) NOT NULL,
			placed_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create orders table: %w", err)
	}

	return &OrderLog{db: db}, nil
}

// Record inserts one order. Replays of the same order ID are ignored.
func (l *OrderLog) Record(ctx context.Context, order Order) error {
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO orders (id, request_id, user_id, customer_email, lines, total, placed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		order.ID,
		order.RequestID,
		order.UserID,
		order.CustomerEmail,
		lines,
		order.Total,
		order.PlacedAt,
	)
	return err
}

func (l *OrderLog) Close() error {
	return l.db.Close()
}
