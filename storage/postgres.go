package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Polytraders/polytraders/config"
)

const documentCacheTTL = 10 * time.Minute

// PostgresStore wraps PostgreSQL persistence with an optional Redis
// read-through cache.
type PostgresStore struct {
	pool  *pgxpool.Pool
	redis *redis.Client
}

// NewPostgres connects to PostgreSQL using POSTGRES_* environment variables.
// rdb is an optional read-through document cache owned by the caller.
func NewPostgres(rdb *redis.Client) (*PostgresStore, error) {
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "polytraders")
	password := getEnv("POSTGRES_PASSWORD", "polytraders")
	dbname := getEnv("POSTGRES_DB", "polytraders")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?pool_max_conns=10&pool_min_conns=2",
		user, password, host, port, dbname)

	pgCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	pgCfg.MaxConnLifetime = 30 * time.Minute
	pgCfg.MaxConnIdleTime = 5 * time.Minute
	pgCfg.HealthCheckPeriod = 30 * time.Second
	pgCfg.ConnConfig.RuntimeParams["statement_timeout"] = "10000"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	store := &PostgresStore{pool: pool, redis: rdb}
	if err := store.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// NewRedisClient connects to Redis. It returns a nil client when cfg.Addr is
// empty.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: 3,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Close releases the connection pool. The redis cache client belongs to the
// caller.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func documentCacheKey(key string) string {
	return "doc:" + key
}

// Get returns the document under key, served from Redis when cached.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, documentCacheKey(key)).Result(); err == nil {
			return cached, true, nil
		}
	}

	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_documents WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: get %s: %w", key, err)
	}

	if s.redis != nil {
		s.redis.Set(ctx, documentCacheKey(key), value, documentCacheTTL)
	}
	return value, true, nil
}

// Put replaces the document under key and invalidates its cache entry.
func (s *PostgresStore) Put(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv_documents (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("postgres: put %s: %w", key, err)
	}
	if s.redis != nil {
		s.redis.Del(ctx, documentCacheKey(key))
	}
	return nil
}

// Delete removes key and its cache entry.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if s.redis != nil {
		s.redis.Del(ctx, documentCacheKey(key))
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_documents WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres: delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv_documents (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}
