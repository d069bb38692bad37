package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

// maxBackoff ограничивает рост задержки между попытками.
const maxBackoff = 30 * time.Second

var (
	publishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cms_outbox_publish_attempts_total",
		Help: "Outbox publish attempts by result (sent, retry_error, failed, dlq_failed).",
	}, []string{"result"})
	pendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cms_outbox_pending_records",
		Help: "Pending catalog events in the transactional outbox.",
	})
	oldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cms_outbox_oldest_pending_age_seconds",
		Help: "Age of the oldest pending outbox event in seconds.",
	})
)

// Settings: параметры опроса и повторов. Неположительные интервал, размер пачки
// и число попыток заменяются дефолтами.
type Settings struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// RetryDelay: задержка перед второй попыткой, дальше удваивается.
	RetryDelay time.Duration
}

// DefaultSettings совпадают с дефолтами app.Config.
func DefaultSettings() Settings {
	return Settings{
		PollInterval: time.Second,
		BatchSize:    100,
		MaxAttempts:  3,
		RetryDelay:   50 * time.Millisecond,
	}
}

func (s Settings) normalize() Settings {
	def := DefaultSettings()
	if s.PollInterval <= 0 {
		s.PollInterval = def.PollInterval
	}
	if s.BatchSize <= 0 {
		s.BatchSize = def.BatchSize
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = def.MaxAttempts
	}
	if s.RetryDelay < 0 {
		s.RetryDelay = 0
	}
	return s
}

// Option настраивает Worker.
type Option func(*Worker)

// WithLogger задаёт логгер воркера.
func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDeadLetter задаёт публикатор для событий, исчерпавших попытки.
func WithDeadLetter(publisher domain.OutboxPublisher) Option {
	return func(w *Worker) {
		w.deadLetter = publisher
	}
}

// Worker переносит события каталога (customer, product, order) из outbox в брокер.
// Событие, не опубликованное за MaxAttempts попыток, помечается failed и уходит в dead letter.
type Worker struct {
	repo       domain.OutboxRepository
	publisher  domain.OutboxPublisher
	deadLetter domain.OutboxPublisher
	settings   Settings
	logger     *log.Entry
}

// NewWorker создаёт воркер outbox.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, settings Settings, opts ...Option) *Worker {
	w := &Worker{
		repo:      repo,
		publisher: publisher,
		settings:  settings.normalize(),
		logger:    log.WithField("component", "outbox-worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run опрашивает outbox до отмены ctx. Первый проход выполняется сразу.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.settings.PollInterval)
	defer ticker.Stop()

	for {
		w.ProcessOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Result: итог одного прохода.
type Result struct {
	Sent   int
	Failed int
}

// ProcessOnce публикует одну пачку pending-событий и возвращает итог.
func (w *Worker) ProcessOnce(ctx context.Context) Result {
	var res Result
	if ctx.Err() != nil {
		return res
	}

	w.observeBacklog(ctx)
	defer w.observeBacklog(ctx)

	pending, err := w.repo.PullPending(ctx, w.settings.BatchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return res
	}

	for _, msg := range pending {
		if ctx.Err() != nil {
			break
		}
		entry := w.logger.WithFields(log.Fields{
			"outbox_id":  msg.ID,
			"event_type": msg.EventType,
		})

		if err := w.publishWithRetry(ctx, msg); err != nil {
			res.Failed++
			publishAttempts.WithLabelValues("failed").Inc()
			entry.WithError(err).Error("outbox publish failed after retries")
			w.bury(ctx, entry, msg, err)
			continue
		}

		res.Sent++
		if err := w.repo.MarkSent(ctx, msg.ID); err != nil {
			entry.WithError(err).Warn("failed to mark outbox message as sent")
		}
	}
	return res
}

// bury отправляет событие в dead letter и помечает его failed.
func (w *Worker) bury(ctx context.Context, entry *log.Entry, msg domain.OutboxMessage, cause error) {
	if w.deadLetter != nil {
		if err := w.publishDeadLetter(msg, cause); err != nil {
			publishAttempts.WithLabelValues("dlq_failed").Inc()
			entry.WithError(err).Warn("failed to publish to dead letter topic")
		}
	}
	if err := w.repo.MarkFailed(ctx, msg.ID); err != nil {
		entry.WithError(err).Warn("failed to mark outbox message as failed")
	}
}

func (w *Worker) publishWithRetry(ctx context.Context, msg domain.OutboxMessage) error {
	var lastErr error
	for attempt := 1; attempt <= w.settings.MaxAttempts; attempt++ {
		if attempt > 1 {
			if delay := w.backoff(attempt - 1); delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}
		}

		lastErr = w.publisher.Publish(msg)
		if lastErr == nil {
			publishAttempts.WithLabelValues("sent").Inc()
			return nil
		}
		publishAttempts.WithLabelValues("retry_error").Inc()
	}
	return fmt.Errorf("publish failed after %d attempts: %w", w.settings.MaxAttempts, lastErr)
}

// backoff возвращает задержку после attempt-й неудачной попытки: RetryDelay * 2^(attempt-1).
func (w *Worker) backoff(attempt int) time.Duration {
	delay := w.settings.RetryDelay
	if delay <= 0 {
		return 0
	}
	for i := 1; i < attempt; i++ {
		if delay >= maxBackoff/2 {
			return maxBackoff
		}
		delay *= 2
	}
	return min(delay, maxBackoff)
}

func (w *Worker) observeBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	pendingRecords.Set(float64(stats.PendingCount))
	age := 0.0
	if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
		age = max(time.Since(stats.OldestPendingAt).Seconds(), 0)
	}
	oldestPendingAge.Set(age)
}

// deadLetterEnvelope: конверт события в DLQ: исходное событие плюс причина отказа.
type deadLetterEnvelope struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	Attempts      int             `json:"attempts"`
	FailedAt      time.Time       `json:"failed_at"`
}

func (w *Worker) publishDeadLetter(msg domain.OutboxMessage, cause error) error {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	body, err := json.Marshal(deadLetterEnvelope{
		OutboxID:      msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishError:  cause.Error(),
		Attempts:      w.settings.MaxAttempts,
		FailedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	dead := msg
	dead.Payload = body
	if err := w.deadLetter.Publish(dead); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}
