package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// unitOfWork оборачивает *sql.Tx. Репозитории получают ту же транзакцию.
type unitOfWork struct {
	tx     *sql.Tx
	now    func() time.Time
	closed bool
}

func (u *unitOfWork) Customers() domain.CustomerRepository {
	return &customerRepository{uow: u}
}

func (u *unitOfWork) Products() domain.ProductRepository {
	return &productRepository{uow: u}
}

func (u *unitOfWork) Orders() domain.OrderRepository {
	return &orderRepository{uow: u}
}

func (u *unitOfWork) Outbox() domain.OutboxWriter {
	return &outboxWriter{uow: u}
}

func (u *unitOfWork) Commit() error {
	if u.closed {
		return domain.ErrUnitOfWorkClosed
	}
	u.closed = true
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.closed {
		return nil
	}
	u.closed = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

// op возвращает транзакцию и контекст с таймаутом операции.
func (u *unitOfWork) op(ctx context.Context) (*sql.Tx, context.Context, context.CancelFunc, error) {
	if u.closed {
		return nil, nil, nil, domain.ErrUnitOfWorkClosed
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	return u.tx, opCtx, cancel, nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation
}

var _ domain.UnitOfWork = (*unitOfWork)(nil)
