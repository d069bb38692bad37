package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
	"github.com/vladislavdragonenkov/customer-management/internal/storage/memory"
)

func orderCreated(id, aggregateID string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: domain.AggregateOrder,
		AggregateID:   aggregateID,
		EventType:     domain.EventOrderCreated,
		Payload:       []byte(`{"order_id":` + aggregateID + `}`),
	}
}

// noDelay убирает паузы между повторами.
var noDelay = Settings{MaxAttempts: 3}

func TestSettings_Normalize(t *testing.T) {
	t.Parallel()

	got := Settings{RetryDelay: -time.Second}.normalize()
	want := DefaultSettings()
	want.RetryDelay = 0
	if got != want {
		t.Fatalf("normalize() = %+v, want %+v", got, want)
	}

	custom := Settings{PollInterval: time.Minute, BatchSize: 5, MaxAttempts: 1, RetryDelay: time.Second}
	if custom.normalize() != custom {
		t.Fatalf("explicit settings must be kept: %+v", custom.normalize())
	}
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{orderCreated("msg-1", "1")}}
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, noDelay)

	res := worker.ProcessOnce(context.Background())

	if res != (Result{Sent: 1}) {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := len(repo.sentIDs); got != 1 {
		t.Fatalf("expected 1 sent mark, got %d", got)
	}
	if repo.sentIDs[0] != "msg-1" {
		t.Fatalf("expected sent id msg-1, got %s", repo.sentIDs[0])
	}
	if got := len(repo.failedIDs); got != 0 {
		t.Fatalf("expected 0 failed marks, got %d", got)
	}
	if got := publisher.calls(); got != 1 {
		t.Fatalf("expected 1 publish call, got %d", got)
	}
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{orderCreated("msg-2", "2")}}
	publisher := &stubPublisher{err: errors.New("publish failed")}
	dlqPublisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, noDelay, WithDeadLetter(dlqPublisher))

	if res := worker.ProcessOnce(context.Background()); res != (Result{Failed: 1}) {
		t.Fatalf("unexpected result: %+v", res)
	}

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := len(repo.sentIDs); got != 0 {
		t.Fatalf("expected 0 sent marks, got %d", got)
	}
	if got := len(repo.failedIDs); got != 1 || repo.failedIDs[0] != "msg-2" {
		t.Fatalf("expected failed mark for msg-2, got %v", repo.failedIDs)
	}
	if got := dlqPublisher.calls(); got != 1 {
		t.Fatalf("expected 1 DLQ publish, got %d", got)
	}

	var envelope deadLetterEnvelope
	if err := json.Unmarshal(dlqPublisher.last.Payload, &envelope); err != nil {
		t.Fatalf("decode dlq payload: %v", err)
	}
	if envelope.OutboxID != "msg-2" || envelope.Attempts != 3 || envelope.PublishError == "" {
		t.Fatalf("unexpected dlq payload: %+v", envelope)
	}
	if string(envelope.Payload) != `{"order_id":2}` {
		t.Fatalf("original payload not preserved: %s", envelope.Payload)
	}
	if dlqPublisher.last.EventType != domain.EventOrderCreated {
		t.Fatalf("dead letter must keep event type, got %s", dlqPublisher.last.EventType)
	}
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{orderCreated("msg-3", "3")}}
	publisher := &stubPublisher{
		sequenceErrors: []error{
			errors.New("attempt 1"),
			errors.New("attempt 2"),
			nil,
		},
	}

	worker := NewWorker(repo, publisher, noDelay)

	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := len(repo.sentIDs); got != 1 {
		t.Fatalf("expected 1 sent mark, got %d", got)
	}
	if got := len(repo.failedIDs); got != 0 {
		t.Fatalf("expected 0 failed marks, got %d", got)
	}
}

func TestWorker_ProcessOnce_DrainsMemoryOutbox(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	ctx := context.Background()

	uow, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, id := range []int64{1, 2, 3} {
		msg, err := domain.NewOutboxMessage(domain.AggregateProduct, id, domain.EventProductCreated, map[string]int64{"product_id": id})
		if err != nil {
			t.Fatalf("new message: %v", err)
		}
		if _, err := uow.Outbox().Enqueue(ctx, msg); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	repo := memory.NewOutboxRepository(store)
	publisher := &stubPublisher{}
	worker := NewWorker(repo, publisher, Settings{BatchSize: 2})

	if res := worker.ProcessOnce(ctx); res.Sent != 2 {
		t.Fatalf("expected batch of 2 sent, got %+v", res)
	}
	if got := publisher.calls(); got != 2 {
		t.Fatalf("expected batch of 2 publishes, got %d", got)
	}
	worker.ProcessOnce(ctx)

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected drained outbox, got %d pending", stats.PendingCount)
	}
	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publishes in total, got %d", got)
	}
}

func TestWorker_Backoff(t *testing.T) {
	t.Parallel()

	worker := NewWorker(&stubOutboxRepo{}, &stubPublisher{}, Settings{RetryDelay: 10 * time.Millisecond})

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 10 * time.Millisecond},
		{attempt: 2, want: 20 * time.Millisecond},
		{attempt: 4, want: 80 * time.Millisecond},
		{attempt: 40, want: maxBackoff},
	}
	for _, tc := range cases {
		if got := worker.backoff(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

type stubOutboxRepo struct {
	mu        sync.Mutex
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
}

func (s *stubOutboxRepo) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit >= len(s.pending) {
		return append([]domain.OutboxMessage(nil), s.pending...), nil
	}
	return append([]domain.OutboxMessage(nil), s.pending[:limit]...), nil
}

func (s *stubOutboxRepo) Stats(context.Context) (domain.OutboxStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := domain.OutboxStats{
		PendingCount: len(s.pending),
	}
	if len(s.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (s *stubOutboxRepo) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentIDs = append(s.sentIDs, id)
	return nil
}

func (s *stubOutboxRepo) MarkFailed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedIDs = append(s.failedIDs, id)
	return nil
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	callCount      int
	last           domain.OutboxMessage
}

func (s *stubPublisher) Publish(event domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	s.last = event
	if len(s.sequenceErrors) > 0 {
		err := s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
		return err
	}

	return s.err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

var _ domain.OutboxRepository = (*stubOutboxRepo)(nil)
var _ domain.OutboxPublisher = (*stubPublisher)(nil)

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{}
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, Settings{PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
