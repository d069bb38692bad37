package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

type orderRepository struct {
	uow *unitOfWork
}

// orderRow: строка таблицы orders до загрузки позиций.
type orderRow struct {
	id         int64
	number     int
	date       time.Time
	customerID int64
}

func scanOrderRow(row rowScanner) (orderRow, error) {
	var o orderRow
	err := row.Scan(&o.id, &o.number, &o.date, &o.customerID)
	return o, err
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (domain.Order, error) {
	return r.findOne(ctx, `SELECT id, number, order_date, customer_id FROM orders WHERE id = $1`, id)
}

func (r *orderRepository) FindByNumber(ctx context.Context, number int) (domain.Order, error) {
	return r.findOne(ctx, `SELECT id, number, order_date, customer_id FROM orders WHERE number = $1`, number)
}

func (r *orderRepository) findOne(ctx context.Context, query string, arg any) (domain.Order, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer cancel()

	row, err := scanOrderRow(tx.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	return r.restore(ctx, tx, row)
}

// Insert сохраняет заказ и позиции в текущей транзакции.
func (r *orderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer cancel()

	var orderID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (number, order_date, customer_id, total_value)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, order.Number, order.Date, order.CustomerID, order.TotalValue).Scan(&orderID)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.Order{}, domain.ErrDuplicateOrderNumber.Withf("order with number %d already exists", order.Number)
		case isForeignKeyViolation(err):
			return domain.Order{}, domain.ErrCustomerNotFound.Withf("customer %d not found", order.CustomerID)
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	itemIDs := make([]int64, len(order.Items))
	for i, item := range order.Items {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, quantity, unit_value, total_value
			) VALUES ($1,$2,$3,$4,$5)
			RETURNING id
		`,
			orderID, item.ProductID, item.Quantity, item.UnitValue, item.TotalValue,
		).Scan(&itemIDs[i]); err != nil {
			if isForeignKeyViolation(err) {
				return domain.Order{}, domain.ErrProductNotFound.Withf("product not found. code: %s", item.ProductCode)
			}
			return domain.Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	return order.WithIDs(orderID, itemIDs), nil
}

func (r *orderRepository) InsertMany(ctx context.Context, orders []domain.Order) ([]domain.Order, error) {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		stored, err := r.Insert(ctx, o)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return expectAffected(res, domain.ErrOrderNotFound)
}

func (r *orderRepository) ListPage(ctx context.Context, page domain.Page) ([]domain.Order, error) {
	tx, ctx, cancel, err := r.uow.op(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, number, order_date, customer_id
		FROM orders
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	heads := make([]orderRow, 0, page.Size)
	for rows.Next() {
		row, err := scanOrderRow(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		heads = append(heads, row)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	_ = rows.Close()

	orders := make([]domain.Order, 0, len(heads))
	for _, head := range heads {
		order, err := r.restore(ctx, tx, head)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// restore загружает позиции с продуктами и пересобирает агрегат.
func (r *orderRepository) restore(ctx context.Context, tx *sql.Tx, head orderRow) (domain.Order, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT i.id, i.quantity, i.unit_value, p.id, p.code, p.name
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id
	`, head.id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		var (
			itemID, productID int64
			quantity          int
			unitValue         decimal.Decimal
			code, name        string
		)
		if err := rows.Scan(&itemID, &quantity, &unitValue, &productID, &code, &name); err != nil {
			return domain.Order{}, fmt.Errorf("scan order item: %w", err)
		}
		product := domain.RestoreProduct(productID, code, name)
		items = append(items, domain.RestoreItem(itemID, head.id, product, quantity, unitValue))
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("iterate order items: %w", err)
	}

	return domain.RestoreOrder(head.id, head.number, head.date, head.customerID, items, r.uow.now()), nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
