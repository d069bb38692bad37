package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/customer-management/internal/app"
)

const (
	envHTTPAddr            = "CMS_HTTP_ADDR"
	envGRPCAddr            = "CMS_GRPC_ADDR"
	envMetricsAddr         = "CMS_METRICS_ADDR"
	envStorageDriver       = "CMS_STORAGE_DRIVER"
	envPostgresDSN         = "CMS_POSTGRES_DSN"
	envPostgresAutoMigrate = "CMS_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers        = "CMS_KAFKA_BROKERS"
	envKafkaTopic          = "CMS_KAFKA_TOPIC"
	envOutboxPollInterval  = "CMS_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "CMS_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "CMS_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "CMS_OUTBOX_RETRY_DELAY"
	envOutboxMaxPendingAge = "CMS_OUTBOX_MAX_PENDING_AGE"
)

type envLookup func(key string) (string, bool)

// readConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректное значение не валит запуск: остаётся дефолт, ошибка уходит в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []error) {
	cfg := app.DefaultConfig()
	var warnings []error

	str := func(key string, dst *string, normalize func(string) string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = normalize(v)
		}
	}
	str(envHTTPAddr, &cfg.HTTPAddr, strings.TrimSpace)
	str(envGRPCAddr, &cfg.GRPCAddr, strings.TrimSpace)
	str(envMetricsAddr, &cfg.MetricsAddr, strings.TrimSpace)
	str(envStorageDriver, &cfg.StorageDriver, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
	str(envPostgresDSN, &cfg.PostgresDSN, strings.TrimSpace)
	str(envKafkaBrokers, &cfg.KafkaBrokers, strings.TrimSpace)
	str(envKafkaTopic, &cfg.KafkaTopic, strings.TrimSpace)

	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Errorf("%s: %w", key, err))
	}

	if v, ok := lookup(envPostgresAutoMigrate); ok {
		if b, err := parseBool(v); err != nil {
			warn(envPostgresAutoMigrate, err)
		} else {
			cfg.PostgresAutoMigrate = b
		}
	}

	positive := func(v int) bool { return v > 0 }
	for _, f := range []struct {
		key string
		dst *int
	}{
		{envOutboxBatchSize, &cfg.OutboxBatchSize},
		{envOutboxMaxAttempts, &cfg.OutboxMaxAttempts},
	} {
		v, ok := lookup(f.key)
		if !ok {
			continue
		}
		n, err := parseInt(v, positive, "must be > 0")
		if err != nil {
			warn(f.key, err)
			continue
		}
		*f.dst = n
	}

	for _, f := range []struct {
		key   string
		dst   *time.Duration
		valid func(time.Duration) bool
		msg   string
	}{
		{envOutboxPollInterval, &cfg.OutboxPollInterval, func(d time.Duration) bool { return d > 0 }, "must be > 0"},
		{envOutboxRetryDelay, &cfg.OutboxRetryDelay, func(d time.Duration) bool { return d >= 0 }, "must be >= 0"},
		{envOutboxMaxPendingAge, &cfg.OutboxMaxPendingAge, func(d time.Duration) bool { return d > 0 }, "must be > 0"},
	} {
		v, ok := lookup(f.key)
		if !ok {
			continue
		}
		d, err := parseDuration(v, f.valid, f.msg)
		if err != nil {
			warn(f.key, err)
			continue
		}
		*f.dst = d
	}

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}

func parseInt(raw string, valid func(int) bool, msg string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", raw, err)
	}
	if !valid(v) {
		return 0, fmt.Errorf("invalid value %d: %s", v, msg)
	}
	return v, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, msg string) (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if !valid(v) {
		return 0, fmt.Errorf("invalid value %s: %s", v, msg)
	}
	return v, nil
}
