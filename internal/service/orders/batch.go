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

// Этапы пакетного импорта для логов и метрик.
const (
	stagePrecheck  = "precheck"
	stageCustomers = "customers"
	stageProducts  = "products"
	stageOrders    = "orders"
)

// ProcessBatch импортирует батч целиком или не импортирует ничего из заказов.
//
// Проверки без записи идут до любых изменений. Затем три единицы работы:
// новые клиенты, новые продукты, заказы. Ошибка третьего этапа откатывает
// все заказы, но клиенты и продукты первых двух этапов остаются сохранёнными.
func (s *Service) ProcessBatch(ctx context.Context, batch []domain.OrderSubmission) ([]domain.Order, error) {
	if len(batch) == 0 {
		return []domain.Order{}, nil
	}

	s.metrics.ImportStarted()
	logger := s.logger.WithFields(log.Fields{
		"batch_size": len(batch),
		"variant":    metrics.VariantStrict,
	})

	orders, err := s.processBatch(ctx, logger, batch)
	s.metrics.ImportFinished(metrics.VariantStrict, err == nil)
	if err != nil {
		s.recordFailure(err)
		logger.WithError(err).Warn("batch import failed")
		return nil, err
	}

	logger.WithField("orders", len(orders)).Info("batch imported")
	return orders, nil
}

func (s *Service) processBatch(ctx context.Context, logger *log.Entry, batch []domain.OrderSubmission) ([]domain.Order, error) {
	now := s.now()

	if dups := DuplicateOrderNumbers(batch); len(dups) > 0 {
		return nil, domain.ErrDuplicateOrderNumberInBatch.Withf("batch contains duplicate order numbers: %v", dups)
	}
	if conflicts := ConflictingProductCodes(batch); len(conflicts) > 0 {
		return nil, domain.ErrConflictingProductInBatch.Withf("batch contains product codes with different names: %v", conflicts)
	}

	err := s.timed(logger, stagePrecheck, func() error {
		return s.readOnly(ctx, func(uow domain.UnitOfWork) error {
			for i, sub := range batch {
				if err := checkNumberAndDate(ctx, uow, sub, now); err != nil {
					return atSubmission(err, i, sub.Number)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	customers := 0
	err = s.timed(logger, stageCustomers, func() error {
		return s.inUnitOfWork(ctx, func(uow domain.UnitOfWork) error {
			var err error
			customers, err = s.materializeCustomers(ctx, uow, batch, now)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	for range customers {
		s.metrics.RecordCustomerCreated()
	}

	products := 0
	err = s.timed(logger, stageProducts, func() error {
		return s.inUnitOfWork(ctx, func(uow domain.UnitOfWork) error {
			var err error
			products, err = s.materializeProducts(ctx, uow, batch)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	for range products {
		s.metrics.RecordProductCreated()
	}

	orders := make([]domain.Order, 0, len(batch))
	err = s.timed(logger, stageOrders, func() error {
		return s.inUnitOfWork(ctx, func(uow domain.UnitOfWork) error {
			for i, sub := range batch {
				order, err := s.compose(ctx, uow, sub, now)
				if err != nil {
					return atSubmission(err, i, sub.Number)
				}
				orders = append(orders, order)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	for range orders {
		s.metrics.RecordOrderComposed()
	}

	logger.WithFields(log.Fields{
		"customers_created": customers,
		"products_created":  products,
	}).Debug("batch stages committed")
	return orders, nil
}

// timed замеряет длительность этапа.
func (s *Service) timed(logger *log.Entry, stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.RecordStageDuration(stage, time.Since(start))
	if err != nil {
		logger.WithField("stage", stage).WithError(err).Debug("stage failed")
	}
	return err
}

// materializeCustomers создаёт клиентов, которых ещё нет в хранилище.
// Существующие клиенты не изменяются. Возвращает число созданных.
func (s *Service) materializeCustomers(ctx context.Context, uow domain.UnitOfWork, batch []domain.OrderSubmission, now time.Time) (int, error) {
	fresh, err := newCustomerIndexes(ctx, uow, batch)
	if err != nil {
		return 0, err
	}

	subset := make([]domain.OrderSubmission, 0, len(fresh))
	for _, i := range fresh {
		subset = append(subset, batch[i])
	}
	if dups := DuplicateEmails(subset); len(dups) > 0 {
		return 0, domain.ErrDuplicateEmailInBatch.Withf("batch contains duplicate emails of new customers: %v", dups)
	}

	for _, i := range fresh {
		if _, err := createCustomer(ctx, uow, batch[i].Customer, now); err != nil {
			return 0, atSubmission(err, i, batch[i].Number)
		}
	}
	return len(fresh), nil
}

// newCustomerIndexes возвращает индексы заявок, клиент которых не найден по email.
func newCustomerIndexes(ctx context.Context, uow domain.UnitOfWork, batch []domain.OrderSubmission) ([]int, error) {
	out := make([]int, 0)
	for i, sub := range batch {
		_, err := uow.Customers().FindByEmail(ctx, sub.Customer.Email)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrCustomerNotFound):
			out = append(out, i)
		default:
			return nil, atSubmission(fmt.Errorf("find customer %s: %w", sub.Customer.Email, err), i, sub.Number)
		}
	}
	return out, nil
}

// createCustomer проверяет и сохраняет нового клиента с адресами и ставит customer.created.
func createCustomer(ctx context.Context, uow domain.UnitOfWork, cs domain.CustomerSubmission, now time.Time) (domain.Customer, error) {
	customer, err := cs.ToCustomer(now)
	if err != nil {
		return domain.Customer{}, err
	}
	stored, err := uow.Customers().Insert(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	msg, err := domain.CustomerCreatedMessage(stored)
	if err != nil {
		return domain.Customer{}, err
	}
	if _, err := uow.Outbox().Enqueue(ctx, msg); err != nil {
		return domain.Customer{}, fmt.Errorf("enqueue customer.created: %w", err)
	}
	return stored, nil
}

// materializeProducts создаёт отсутствующие продукты, каждый код ровно один раз.
func (s *Service) materializeProducts(ctx context.Context, uow domain.UnitOfWork, batch []domain.OrderSubmission) (int, error) {
	seen := make(map[string]struct{})
	created := 0
	for i, sub := range batch {
		for _, item := range sub.Items {
			code := item.Product.Code
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}

			ok, err := ensureProduct(ctx, uow, item.Product)
			if err != nil {
				return 0, atSubmission(err, i, sub.Number)
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}

// ensureProduct создаёт продукт, если кода нет в хранилище. Возвращает true, если продукт создан.
func ensureProduct(ctx context.Context, uow domain.UnitOfWork, ps domain.ProductSubmission) (bool, error) {
	_, err := uow.Products().FindByCode(ctx, ps.Code)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, domain.ErrProductNotFound):
		return false, fmt.Errorf("find product %s: %w", ps.Code, err)
	}

	product, err := domain.RegisterProduct(ps.Code, ps.Name)
	if err != nil {
		return false, err
	}
	stored, err := uow.Products().Insert(ctx, product)
	if err != nil {
		return false, err
	}
	msg, err := domain.ProductCreatedMessage(stored)
	if err != nil {
		return false, err
	}
	if _, err := uow.Outbox().Enqueue(ctx, msg); err != nil {
		return false, fmt.Errorf("enqueue product.created: %w", err)
	}
	return true, nil
}
