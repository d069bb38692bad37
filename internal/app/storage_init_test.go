package app

import (
	"context"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/customer-management/internal/health"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"", StorageDriverMemory, " MEMORY "} {
		deps, err := initRuntimeDependencies(context.Background(), Config{
			StorageDriver: driver,
		}, log.WithField("test", "memory-storage"))
		if err != nil {
			t.Fatalf("initRuntimeDependencies(%q) failed: %v", driver, err)
		}
		if deps.store == nil || deps.outboxRepo == nil {
			t.Fatalf("memory dependencies must be initialized: %+v", deps)
		}
		if check := deps.storageChecker.Check(context.Background()); check.Status != healthcheck.StatusHealthy {
			t.Fatalf("expected healthy memory storage, got %+v", check)
		}
		if err := deps.closeFn(); err != nil {
			t.Fatalf("closeFn: %v", err)
		}
	}
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverPostgres,
		PostgresDSN:   "   ",
	}, log.WithField("test", "postgres-missing-dsn"))
	if err == nil {
		t.Fatal("expected error when postgres driver is selected without DSN")
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: "sqlite",
	}, log.WithField("test", "unsupported-driver"))
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
}
