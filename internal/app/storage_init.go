package app

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/customer-management/internal/health"
	"github.com/vladislavdragonenkov/customer-management/internal/storage/memory"
	"github.com/vladislavdragonenkov/customer-management/internal/storage/postgres"
)

// runtimeDependencies: хранилище и всё, что от него зависит.
type runtimeDependencies struct {
	store          domain.Store
	outboxRepo     domain.OutboxRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	switch driver {
	case "", StorageDriverMemory:
		store := memory.NewStore()
		logger.Info("используется in-memory хранилище")
		return &runtimeDependencies{
			store:          store,
			outboxRepo:     memory.NewOutboxRepository(store),
			storageChecker: healthcheck.NewStorageChecker("storage", store),
			closeFn:        func() error { return nil },
		}, nil

	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return nil, fmt.Errorf("postgres storage requires dsn")
		}
		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("init postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			version, applied, err := store.MigrationStatus(ctx)
			if err == nil {
				logger.WithFields(log.Fields{
					"schema_version": version,
					"applied":        applied,
				}).Info("миграции PostgreSQL применены")
			}
		}
		logger.Info("используется PostgreSQL хранилище")
		return &runtimeDependencies{
			store:          store,
			outboxRepo:     postgres.NewOutboxRepository(store),
			storageChecker: healthcheck.NewStorageChecker("storage", store),
			closeFn:        store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}
