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

// ComposeOrder проверяет заявку против сохранённых клиентов и продуктов
// и сохраняет заказ в одной единице работы. При любой ошибке ничего не пишется.
func (s *Service) ComposeOrder(ctx context.Context, sub domain.OrderSubmission) (domain.Order, error) {
	s.metrics.ImportStarted()
	logger := s.logger.WithField("order_number", sub.Number)

	var order domain.Order
	err := s.inUnitOfWork(ctx, func(uow domain.UnitOfWork) error {
		var err error
		order, err = s.compose(ctx, uow, sub, s.now())
		return err
	})
	s.metrics.ImportFinished(metrics.VariantSingle, err == nil)
	if err != nil {
		s.recordFailure(err)
		logger.WithError(err).Warn("order composition failed")
		return domain.Order{}, err
	}

	s.metrics.RecordOrderComposed()
	logger.WithField("order_id", order.ID).Info("order composed")
	return order, nil
}

// compose выполняет сборку внутри уже открытой единицы работы.
// Коммит и откат остаются за вызывающим.
func (s *Service) compose(ctx context.Context, uow domain.UnitOfWork, sub domain.OrderSubmission, now time.Time) (domain.Order, error) {
	if err := checkNumberAndDate(ctx, uow, sub, now); err != nil {
		return domain.Order{}, err
	}

	customer, err := matchCustomer(ctx, uow, sub.Customer)
	if err != nil {
		return domain.Order{}, err
	}

	items := make([]domain.Item, 0, len(sub.Items))
	for _, is := range sub.Items {
		product, err := matchProduct(ctx, uow, is.Product)
		if err != nil {
			return domain.Order{}, err
		}
		item, err := domain.NewItem(product, is.Quantity, is.UnitValue)
		if err != nil {
			return domain.Order{}, err
		}
		items = append(items, item)
	}

	order, err := domain.NewOrder(sub.Number, sub.Date.Time, customer.ID, items, now)
	if err != nil {
		return domain.Order{}, err
	}

	stored, err := uow.Orders().Insert(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}
	msg, err := domain.OrderCreatedMessage(stored)
	if err != nil {
		return domain.Order{}, err
	}
	if _, err := uow.Outbox().Enqueue(ctx, msg); err != nil {
		return domain.Order{}, fmt.Errorf("enqueue order.created: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"order_number": stored.Number,
		"items":        len(stored.Items),
	}).Debug("order staged")
	return stored, nil
}

// checkNumberAndDate: первые два шага сборки: номер положительный и не занят,
// дата указана и не в будущем. Форма номера и даты проверяется до обращения
// к хранилищу, чтобы строгий батч не дошёл до стадий записи.
func checkNumberAndDate(ctx context.Context, uow domain.UnitOfWork, sub domain.OrderSubmission, now time.Time) error {
	if sub.Number <= 0 {
		return domain.ErrInvalidOrderNumber.Withf("order number %d must be positive", sub.Number)
	}
	if sub.Date.IsZero() {
		return domain.ErrOrderDateRequired.Withf("order %d has no date", sub.Number)
	}

	_, err := uow.Orders().FindByNumber(ctx, sub.Number)
	switch {
	case err == nil:
		return domain.ErrDuplicateOrderNumber.Withf("order with number %d already exists", sub.Number)
	case !errors.Is(err, domain.ErrOrderNotFound):
		return fmt.Errorf("find order %d: %w", sub.Number, err)
	}

	if domain.IsFutureDay(sub.Date.Time, now) {
		return domain.ErrFutureDate.Withf("order %d date %s is in the future", sub.Number, sub.Date.Format(time.DateOnly))
	}
	return nil
}

// matchCustomer находит клиента по email и сверяет имя, фамилию и дату рождения.
func matchCustomer(ctx context.Context, uow domain.UnitOfWork, cs domain.CustomerSubmission) (domain.Customer, error) {
	customer, err := uow.Customers().FindByEmail(ctx, cs.Email)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return domain.Customer{}, domain.ErrCustomerNotFound.Withf("customer not found. email: %s", cs.Email)
		}
		return domain.Customer{}, fmt.Errorf("find customer %s: %w", cs.Email, err)
	}
	if field := customer.MismatchedField(cs.FirstName, cs.LastName, cs.DateOfBirth.Time); field != "" {
		return domain.Customer{}, domain.ErrCustomerFieldMismatch.Withf("customer %s: %s does not match the stored customer", cs.Email, field)
	}
	return customer, nil
}

// matchProduct находит продукт по коду и сверяет название.
func matchProduct(ctx context.Context, uow domain.UnitOfWork, ps domain.ProductSubmission) (domain.Product, error) {
	product, err := uow.Products().FindByCode(ctx, ps.Code)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.Product{}, domain.ErrProductNotFound.Withf("product not found. code: %s", ps.Code)
		}
		return domain.Product{}, fmt.Errorf("find product %s: %w", ps.Code, err)
	}
	if product.Name != ps.Name {
		return domain.Product{}, domain.ErrProductFieldMismatch.Withf("product %s: name %q does not match the stored name %q", ps.Code, ps.Name, product.Name)
	}
	return product, nil
}
