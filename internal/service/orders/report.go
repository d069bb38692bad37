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

// BatchFailure описывает отклонённую заявку батча.
type BatchFailure struct {
	Index      int                    `json:"index"`
	Submission domain.OrderSubmission `json:"submission"`
	Reason     *domain.Error          `json:"reason"`
}

// BatchReport: результат импорта с частичным успехом.
type BatchReport struct {
	Successes    []domain.Order `json:"successes"`
	Failures     []BatchFailure `json:"failures"`
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
}

func (r *BatchReport) fail(index int, sub domain.OrderSubmission, reason *domain.Error) {
	r.Failures = append(r.Failures, BatchFailure{Index: index, Submission: sub, Reason: reason})
	r.FailureCount++
}

// ProcessBatchReport обрабатывает каждую заявку независимо, в собственной
// единице работы. Успешные заявки не откатываются из-за последующих ошибок.
// Ошибка возвращается только при сбое хранилища; отчёт при этом содержит
// результаты заявок, обработанных до сбоя.
func (s *Service) ProcessBatchReport(ctx context.Context, batch []domain.OrderSubmission) (BatchReport, error) {
	report := BatchReport{
		Successes: make([]domain.Order, 0, len(batch)),
		Failures:  make([]BatchFailure, 0),
	}
	if len(batch) == 0 {
		return report, nil
	}

	s.metrics.ImportStarted()
	logger := s.logger.WithFields(log.Fields{
		"batch_size": len(batch),
		"variant":    metrics.VariantReport,
	})

	err := s.processReport(ctx, batch, &report)
	s.metrics.ImportFinished(metrics.VariantReport, err == nil && report.FailureCount == 0)
	if err != nil {
		logger.WithError(err).Error("batch report aborted by storage failure")
		return report, err
	}

	logger.WithFields(log.Fields{
		"succeeded": report.SuccessCount,
		"failed":    report.FailureCount,
	}).Info("batch report processed")
	return report, nil
}

func (s *Service) processReport(ctx context.Context, batch []domain.OrderSubmission, report *BatchReport) error {
	now := s.now()

	dupNumbers := make(map[int]bool)
	for _, n := range DuplicateOrderNumbers(batch) {
		dupNumbers[n] = true
	}

	dupEmails, err := s.newCustomerDuplicateEmails(ctx, batch)
	if err != nil {
		return err
	}

	for i, sub := range batch {
		if dupNumbers[sub.Number] {
			s.reject(report, i, sub, domain.ErrDuplicateOrderNumberInBatch.Withf("order number %d appears more than once in the batch", sub.Number))
			continue
		}
		if dupEmails[sub.Customer.Email] {
			s.reject(report, i, sub, domain.ErrDuplicateEmailInBatch.Withf("new customer email %s appears more than once in the batch", sub.Customer.Email))
			continue
		}

		var (
			order   domain.Order
			created imported
		)
		err := s.inUnitOfWork(ctx, func(uow domain.UnitOfWork) error {
			var err error
			order, created, err = s.importOne(ctx, uow, sub, now)
			return err
		})
		if err != nil {
			var derr *domain.Error
			if !errors.As(err, &derr) {
				return atSubmission(err, i, sub.Number)
			}
			s.reject(report, i, sub, derr)
			continue
		}

		report.Successes = append(report.Successes, order)
		report.SuccessCount++
		s.metrics.RecordOrderComposed()
		for range created.customers {
			s.metrics.RecordCustomerCreated()
		}
		for range created.products {
			s.metrics.RecordProductCreated()
		}
	}
	return nil
}

func (s *Service) reject(report *BatchReport, index int, sub domain.OrderSubmission, reason *domain.Error) {
	s.metrics.RecordFailure(reason.Code)
	s.logger.WithFields(log.Fields{
		"order_number": sub.Number,
		"index":        index,
		"code":         reason.Code,
	}).Debug("submission rejected")
	report.fail(index, sub, reason)
}

// imported: число клиентов и продуктов, созданных для одной заявки.
type imported struct {
	customers int
	products  int
}

// importOne проводит одну заявку через все этапы в одной единице работы.
func (s *Service) importOne(ctx context.Context, uow domain.UnitOfWork, sub domain.OrderSubmission, now time.Time) (domain.Order, imported, error) {
	var created imported
	if err := checkNumberAndDate(ctx, uow, sub, now); err != nil {
		return domain.Order{}, created, err
	}

	_, err := uow.Customers().FindByEmail(ctx, sub.Customer.Email)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCustomerNotFound):
		if _, err := createCustomer(ctx, uow, sub.Customer, now); err != nil {
			return domain.Order{}, created, err
		}
		created.customers++
	default:
		return domain.Order{}, created, fmt.Errorf("find customer %s: %w", sub.Customer.Email, err)
	}

	seen := make(map[string]struct{}, len(sub.Items))
	for _, item := range sub.Items {
		if _, ok := seen[item.Product.Code]; ok {
			continue
		}
		seen[item.Product.Code] = struct{}{}

		ok, err := ensureProduct(ctx, uow, item.Product)
		if err != nil {
			return domain.Order{}, created, err
		}
		if ok {
			created.products++
		}
	}

	order, err := s.compose(ctx, uow, sub, now)
	return order, created, err
}

// newCustomerDuplicateEmails возвращает email, которые повторяются среди
// заявок с ещё не сохранёнными клиентами.
func (s *Service) newCustomerDuplicateEmails(ctx context.Context, batch []domain.OrderSubmission) (map[string]bool, error) {
	out := make(map[string]bool)
	err := s.readOnly(ctx, func(uow domain.UnitOfWork) error {
		fresh, err := newCustomerIndexes(ctx, uow, batch)
		if err != nil {
			return err
		}
		subset := make([]domain.OrderSubmission, 0, len(fresh))
		for _, i := range fresh {
			subset = append(subset, batch[i])
		}
		for _, email := range DuplicateEmails(subset) {
			out[email] = true
		}
		return nil
	})
	return out, err
}
