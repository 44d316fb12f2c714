// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the global pool. Nil means persistence is disabled.
var DB *pgxpool.Pool

// ConnectDB opens the pool for connStr, pings it and creates missing tables.
func ConnectDB(ctx context.Context, connStr string) error {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("db ping error: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return err
	}
	DB = pool
	return nil
}

// Close releases the global pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

// Execer is the subset of pgx shared by pools and transactions.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// BeginTxFunc runs f in a transaction on DB, committing when f returns nil.
func BeginTxFunc(ctx context.Context, f func(tx pgx.Tx) error) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, f)
}
