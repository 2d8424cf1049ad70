// Package store opens the configured UserRepository backend.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/infrastructure/adapter/bolt"
	"github.com/fixora/gatekeeper/infrastructure/adapter/memory"
	"github.com/fixora/gatekeeper/infrastructure/adapter/postgres"
	"github.com/fixora/gatekeeper/infrastructure/config"
)

const pingTimeout = 5 * time.Second

// Store is an open repository and the function that releases it.
type Store struct {
	Users outbound.UserRepository
	close func() error
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to the backend named by cfg.StoreBackend.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return &Store{Users: memory.NewUserRepository()}, nil

	case config.StoreBolt:
		repo, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return &Store{Users: repo, close: repo.Close}, nil

	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return &Store{Users: postgres.NewUserRepositoryAdapter(db), close: db.Close}, nil

	default:
		return nil, config.ErrInvalidStore
	}
}
