package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
	"github.com/vladislavdragonenkov/customer-management/internal/metrics"
)

// Service собирает заказы из входящих заявок и импортирует их батчами.
// Внутри запроса всё выполняется последовательно.
type Service struct {
	store   domain.Store
	logger  *log.Entry
	now     func() time.Time
	metrics *metrics.ImportMetrics
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics включает prometheus-метрики импорта.
func WithMetrics(m *metrics.ImportMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService создаёт сервис заказов поверх хранилища.
func NewService(store domain.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: log.WithField("component", "orders"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// inUnitOfWork выполняет fn в отдельной единице работы и коммитит её при успехе.
// Любая ошибка откатывает все записи fn.
func (s *Service) inUnitOfWork(ctx context.Context, fn func(uow domain.UnitOfWork) error) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback() }()

	if err := fn(uow); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

// readOnly выполняет fn и всегда откатывает единицу работы.
func (s *Service) readOnly(ctx context.Context, fn func(uow domain.UnitOfWork) error) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback() }()
	return fn(uow)
}

// recordFailure учитывает бизнес-ошибку в метриках.
func (s *Service) recordFailure(err error) {
	if derr, ok := domain.AsError(err); ok {
		s.metrics.RecordFailure(derr.Code)
	}
}

// atSubmission дополняет сообщение ошибки позицией заявки в батче.
// Бизнес-ошибка остаётся *domain.Error с тем же кодом.
func atSubmission(err error, index, number int) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr.Withf("submission %d (order %d): %s", index, number, derr.Message)
	}
	return fmt.Errorf("submission %d (order %d): %w", index, number, err)
}
