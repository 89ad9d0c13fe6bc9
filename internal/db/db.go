package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/modpub/modpub/internal/config"
)

// DB holds database connections
type DB struct {
	Postgres *pgxpool.Pool
	Redis    *redis.Client
}

// URL builds the postgres connection URL used by the migration runner.
func URL(cfg *config.Config) string {
	pg := cfg.Database.Postgres
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pg.User, pg.Password, pg.Host, pg.Port, pg.Database, pg.SSLMode,
	)
}

// Connect establishes connections to PostgreSQL and Redis
func Connect(cfg *config.Config) (*DB, error) {
	db := &DB{}

	pg := cfg.Database.Postgres
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		pg.Host, pg.Port, pg.User, pg.Password, pg.Database, pg.SSLMode, pg.MaxConnections,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	db.Postgres = pool

	rd := cfg.Database.Redis
	db.Redis = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", rd.Host, rd.Port),
		Password: rd.Password,
		DB:       rd.DB,
	})
	if err := db.Redis.Ping(ctx).Err(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return db, nil
}

// Close closes all database connections
func (db *DB) Close() {
	if db.Postgres != nil {
		db.Postgres.Close()
	}
	if db.Redis != nil {
		db.Redis.Close()
	}
}

// Health checks database connections
func (db *DB) Health(ctx context.Context) error {
	if err := db.Postgres.Ping(ctx); err != nil {
		return fmt.Errorf("postgres unhealthy: %w", err)
	}
	if err := db.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unhealthy: %w", err)
	}
	return nil
}
