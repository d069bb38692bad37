package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	msg        domain.OutboxMessage
	status     string
	attemptCnt int
	createdAt  time.Time
	updatedAt  time.Time
}

// outboxWriter ставит сообщения в outbox внутри единицы работы.
type outboxWriter struct {
	uow *unitOfWork
}

// Enqueue сохраняет событие со статусом `pending` и возвращает его с идентификатором.
func (w *outboxWriter) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if err := w.uow.check(); err != nil {
		return domain.OutboxMessage{}, err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := w.uow.store.now()
	st := w.uow.st
	if _, exists := st.outbox[msg.ID]; !exists {
		st.outboxSeq = append(st.outboxSeq, msg.ID)
	}
	st.outbox[msg.ID] = outboxRecord{
		msg:       msg,
		status:    outboxStatusPending,
		createdAt: now,
		updatedAt: now,
	}
	return msg, nil
}

// OutboxRepository: сторона outbox для воркера публикации. Работает с
// закоммиченным состоянием хранилища.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository создаёт in-memory реализацию outbox поверх Store.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

// PullPending возвращает до limit сообщений со статусом `pending` в порядке постановки.
func (r *OutboxRepository) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	if err := r.store.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.store.release()

	if limit <= 0 {
		limit = 100
	}

	st := r.store.state
	result := make([]domain.OutboxMessage, 0, limit)
	for _, id := range st.outboxSeq {
		rec := st.outbox[id]
		if rec.status != outboxStatusPending {
			continue
		}
		result = append(result, rec.msg)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (r *OutboxRepository) Stats(ctx context.Context) (domain.OutboxStats, error) {
	if err := r.store.acquire(ctx); err != nil {
		return domain.OutboxStats{}, err
	}
	defer r.store.release()

	var stats domain.OutboxStats
	for _, rec := range r.store.state.outbox {
		if rec.status != outboxStatusPending {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || rec.createdAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = rec.createdAt
		}
	}
	return stats, nil
}

// MarkSent обновляет статус события после успешной публикации.
func (r *OutboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.mark(ctx, id, outboxStatusSent)
}

// MarkFailed фиксирует ошибку публикации.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string) error {
	return r.mark(ctx, id, outboxStatusFailed)
}

func (r *OutboxRepository) mark(ctx context.Context, id, status string) error {
	if err := r.store.acquire(ctx); err != nil {
		return err
	}
	defer r.store.release()

	rec, ok := r.store.state.outbox[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	rec.status = status
	rec.attemptCnt++
	rec.updatedAt = r.store.now()
	r.store.state.outbox[id] = rec
	return nil
}

// AllPending возвращает копию всех сообщений со статусом `pending` (используется в тестах).
func (r *OutboxRepository) AllPending() []domain.OutboxMessage {
	r.store.lock <- struct{}{}
	defer r.store.release()

	result := make([]domain.OutboxMessage, 0, len(r.store.state.outboxSeq))
	for _, id := range r.store.state.outboxSeq {
		if rec := r.store.state.outbox[id]; rec.status == outboxStatusPending {
			result = append(result, rec.msg)
		}
	}
	return result
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
