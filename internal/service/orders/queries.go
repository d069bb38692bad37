package orders

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

// GetOrder возвращает заказ с позициями.
func (s *Service) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	var order domain.Order
	err := s.readOnly(ctx, func(uow domain.UnitOfWork) error {
		var err error
		order, err = uow.Orders().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// ListOrders возвращает страницу заказов по возрастанию id.
func (s *Service) ListOrders(ctx context.Context, page domain.Page) ([]domain.Order, error) {
	page = domain.NewPage(page.Number, page.Size)

	var orders []domain.Order
	err := s.readOnly(ctx, func(uow domain.UnitOfWork) error {
		var err error
		orders, err = uow.Orders().ListPage(ctx, page)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// DeleteOrder удаляет заказ с позициями и ставит order.deleted.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	err := s.inUnitOfWork(ctx, func(uow domain.UnitOfWork) error {
		if err := uow.Orders().Delete(ctx, id); err != nil {
			return err
		}
		msg, err := domain.OrderDeletedMessage(id)
		if err != nil {
			return err
		}
		if _, err := uow.Outbox().Enqueue(ctx, msg); err != nil {
			return fmt.Errorf("enqueue order.deleted: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithField("order_id", id).Info("order deleted")
	return nil
}
