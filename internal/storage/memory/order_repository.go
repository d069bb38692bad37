package memory

import (
	"context"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

type orderRepository struct {
	uow *unitOfWork
}

func (r *orderRepository) FindByID(_ context.Context, id int64) (domain.Order, error) {
	if err := r.uow.check(); err != nil {
		return domain.Order{}, err
	}
	o, ok := r.uow.st.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (r *orderRepository) FindByNumber(_ context.Context, number int) (domain.Order, error) {
	if err := r.uow.check(); err != nil {
		return domain.Order{}, err
	}
	for _, o := range r.uow.st.orders {
		if o.Number == number {
			return copyOrder(o), nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

// Insert сохраняет заказ с позициями. Клиент и продукты должны существовать,
// как и при внешних ключах в PostgreSQL.
func (r *orderRepository) Insert(_ context.Context, order domain.Order) (domain.Order, error) {
	if err := r.uow.check(); err != nil {
		return domain.Order{}, err
	}
	st := r.uow.st
	for _, o := range st.orders {
		if o.Number == order.Number {
			return domain.Order{}, domain.ErrDuplicateOrderNumber.Withf("order with number %d already exists", order.Number)
		}
	}
	if _, ok := st.customers[order.CustomerID]; !ok {
		return domain.Order{}, domain.ErrCustomerNotFound.Withf("customer %d not found", order.CustomerID)
	}
	for _, item := range order.Items {
		if _, ok := st.products[item.ProductID]; !ok {
			return domain.Order{}, domain.ErrProductNotFound.Withf("product not found. code: %s", item.ProductCode)
		}
	}

	st.nextOrderID++
	itemIDs := make([]int64, len(order.Items))
	for i := range order.Items {
		st.nextItemID++
		itemIDs[i] = st.nextItemID
	}
	stored := order.WithIDs(st.nextOrderID, itemIDs)
	st.orders[stored.ID] = stored
	return copyOrder(stored), nil
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

func (r *orderRepository) Delete(_ context.Context, id int64) error {
	if err := r.uow.check(); err != nil {
		return err
	}
	if _, ok := r.uow.st.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.uow.st.orders, id)
	return nil
}

func (r *orderRepository) ListPage(_ context.Context, page domain.Page) ([]domain.Order, error) {
	if err := r.uow.check(); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(r.uow.st.orders))
	for id := range r.uow.st.orders {
		ids = append(ids, id)
	}
	ids = pageIDs(ids, page)

	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyOrder(r.uow.st.orders[id]))
	}
	return out, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
