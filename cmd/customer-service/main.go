package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customer-management/internal/app"
	"github.com/vladislavdragonenkov/customer-management/internal/version"
)

const envLogLevel = "CMS_LOG_LEVEL"

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(lookup envLookup) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	raw, ok := lookup(envLogLevel)
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}
	level, err := log.ParseLevel(strings.TrimSpace(raw))
	if err != nil {
		log.WithError(err).Warnf("некорректный %s, оставляем info", envLogLevel)
		return
	}
	log.SetLevel(level)
}

func main() {
	setupLogger(os.LookupEnv)
	gin.SetMode(gin.ReleaseMode)

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.WithError(w).Warn("значение из окружения проигнорировано")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"version":        version.GetVersion(),
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"kafka_enabled":  strings.TrimSpace(cfg.KafkaBrokers) != "",
	}).Info("запускаем customer-service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("customer-service остановлен")
}
