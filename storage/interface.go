package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Polytraders/polytraders/config"
)

// DataStore is a string key/value store for per-profile documents. Get
// reports found=false for a missing key rather than an error.
type DataStore interface {
	Close() error

	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Ensure all implementations satisfy the interface
var _ DataStore = (*Store)(nil)
var _ DataStore = (*PostgresStore)(nil)
var _ DataStore = (*MockStore)(nil)

// Open builds the store selected by cfg.Data.Driver. rdb, which may be nil,
// caches postgres documents.
func Open(cfg config.Config, rdb *redis.Client) (DataStore, error) {
	switch strings.ToLower(cfg.Data.Driver) {
	case "", "sqlite":
		return New(cfg.Data.DBPath)
	case "postgres":
		return NewPostgres(rdb)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Data.Driver)
	}
}
