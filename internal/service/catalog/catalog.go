// Package catalog управляет клиентами и продуктами вне пакетного импорта.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

// base: общая часть сервисов каталога.
type base struct {
	store  domain.Store
	logger *log.Entry
	now    func() time.Time
}

func newBase(store domain.Store, logger *log.Entry, component string) base {
	if logger == nil {
		logger = log.WithField("component", component)
	}
	return base{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (b base) write(ctx context.Context, fn func(uow domain.UnitOfWork) error) error {
	uow, err := b.store.Begin(ctx)
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

func (b base) read(ctx context.Context, fn func(uow domain.UnitOfWork) error) error {
	uow, err := b.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback() }()
	return fn(uow)
}

func enqueue(ctx context.Context, uow domain.UnitOfWork, msg domain.OutboxMessage, err error) error {
	if err != nil {
		return err
	}
	if _, err := uow.Outbox().Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s: %w", msg.EventType, err)
	}
	return nil
}

// atIndex дописывает позицию элемента пакета в сообщение, сохраняя код ошибки.
func atIndex(err error, index int) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr.Withf("product %d: %s", index, derr.Message)
	}
	return fmt.Errorf("product %d: %w", index, err)
}
