package memory

import (
	"context"
	"testing"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

func enqueue(t *testing.T, store *Store, msgs ...domain.OutboxMessage) []domain.OutboxMessage {
	t.Helper()
	ctx := context.Background()
	uow, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	saved := make([]domain.OutboxMessage, 0, len(msgs))
	for _, msg := range msgs {
		s, err := uow.Outbox().Enqueue(ctx, msg)
		if err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
		saved = append(saved, s)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	return saved
}

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	store := NewStore()
	repo := NewOutboxRepository(store)

	saved := enqueue(t, store,
		domain.OutboxMessage{AggregateType: "order", AggregateID: "1", EventType: domain.EventOrderCreated, Payload: []byte(`{"number":1}`)},
		domain.OutboxMessage{AggregateType: "order", AggregateID: "2", EventType: domain.EventOrderCreated},
	)
	if saved[0].ID == "" {
		t.Fatal("expected generated id")
	}

	pending, err := repo.PullPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(pending))
	}
	if pending[0].ID != saved[0].ID || pending[1].ID != saved[1].ID {
		t.Fatal("pending messages must keep enqueue order")
	}

	limited, err := repo.PullPending(context.Background(), 1)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestOutboxRepository_RolledBackMessagesAreDropped(t *testing.T) {
	store := NewStore()
	repo := NewOutboxRepository(store)

	uow, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if _, err := uow.Outbox().Enqueue(context.Background(), domain.OutboxMessage{EventType: "x"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := uow.Rollback(); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}

	if pending := repo.AllPending(); len(pending) != 0 {
		t.Fatalf("expected no pending after rollback, got %d", len(pending))
	}
}

func TestOutboxRepository_MarkSentAndFailed(t *testing.T) {
	store := NewStore()
	repo := NewOutboxRepository(store)
	ctx := context.Background()

	saved := enqueue(t, store, domain.OutboxMessage{AggregateType: "order"}, domain.OutboxMessage{AggregateType: "order"})

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 2 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := repo.MarkSent(ctx, saved[0].ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	if err := repo.MarkFailed(ctx, saved[1].ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if pending := repo.AllPending(); len(pending) != 0 {
		t.Fatalf("expected no pending messages, got %d", len(pending))
	}
	if err := repo.MarkSent(ctx, "unknown"); err != domain.ErrOutboxPublish {
		t.Fatalf("expected ErrOutboxPublish for unknown id, got %v", err)
	}
}
