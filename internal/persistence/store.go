package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-tracker/internal/config"
)

// Fixed logical names of the persisted collections.
const (
	TicketsCollection       = "incident_tickets"
	NotificationsCollection = "email_notifications"
)

// CollectionStore persists whole serialized collections by name. Load
// returns nil, nil when the collection has never been written.
type CollectionStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, payload []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (CollectionStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.Storage.FileDir, logger)
	case config.BackendRedis:
		return NewRedis(ctx, cfg.Redis, logger)
	case config.BackendPostgres:
		return NewPostgres(ctx, cfg.Postgres, logger)
	case config.BackendSQLite:
		return NewSQLite(ctx, cfg.SQLite, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
