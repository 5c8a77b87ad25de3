package cartstate

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/config"
)

// Open builds the snapshot repository selected by cfg.CartStore. The returned
// close func releases backend resources and is never nil.
func Open(cfg config.Config, pool *pgxpool.Pool, logger *zap.Logger) (Repository, func() error, error) {
	noop := func() error { return nil }
	switch cfg.CartStore {
	case config.CartStoreMemory:
		return NewMemory(), noop, nil
	case config.CartStoreFile:
		repo, err := NewFile(cfg.CartFileDir)
		if err != nil {
			return nil, noop, err
		}
		return repo, noop, nil
	case config.CartStoreSQLite:
		repo, err := NewSQLite(cfg.CartSQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return repo, repo.Close, nil
	case config.CartStorePostgres:
		if pool == nil {
			return nil, noop, errors.New("cart store postgres requires a database pool")
		}
		return NewPostgres(pool, logger), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown cart store %q", cfg.CartStore)
	}
}
