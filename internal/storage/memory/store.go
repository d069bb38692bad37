package memory

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

// state: снимок всех таблиц. Единица работы получает копию и подменяет ею
// состояние хранилища при Commit.
type state struct {
	customers map[int64]domain.Customer
	products  map[int64]domain.Product
	orders    map[int64]domain.Order
	outbox    map[string]outboxRecord
	// outboxSeq хранит порядок постановки сообщений.
	outboxSeq []string

	nextCustomerID int64
	nextAddressID  int64
	nextProductID  int64
	nextOrderID    int64
	nextItemID     int64
}

func newState() *state {
	return &state{
		customers: make(map[int64]domain.Customer),
		products:  make(map[int64]domain.Product),
		orders:    make(map[int64]domain.Order),
		outbox:    make(map[string]outboxRecord),
	}
}

func (s *state) clone() *state {
	out := &state{
		customers:      make(map[int64]domain.Customer, len(s.customers)),
		products:       make(map[int64]domain.Product, len(s.products)),
		orders:         make(map[int64]domain.Order, len(s.orders)),
		outbox:         make(map[string]outboxRecord, len(s.outbox)),
		outboxSeq:      append([]string(nil), s.outboxSeq...),
		nextCustomerID: s.nextCustomerID,
		nextAddressID:  s.nextAddressID,
		nextProductID:  s.nextProductID,
		nextOrderID:    s.nextOrderID,
		nextItemID:     s.nextItemID,
	}
	for id, c := range s.customers {
		out.customers[id] = copyCustomer(c)
	}
	for id, p := range s.products {
		out.products[id] = p
	}
	for id, o := range s.orders {
		out.orders[id] = copyOrder(o)
	}
	for id, rec := range s.outbox {
		out.outbox[id] = rec
	}
	return out
}

func copyCustomer(c domain.Customer) domain.Customer {
	c.Addresses = append([]domain.Address(nil), c.Addresses...)
	return c
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.Item(nil), o.Items...)
	return o
}

// Store: in-memory реализация domain.Store для локальной разработки и тестов.
// Одновременно открыта только одна единица работы.
type Store struct {
	lock  chan struct{}
	state *state
	now   func() time.Time
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		lock:  make(chan struct{}, 1),
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.lock
}

// Begin открывает единицу работы над копией текущего состояния.
func (s *Store) Begin(ctx context.Context) (domain.UnitOfWork, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	return &unitOfWork{store: s, st: s.state.clone()}, nil
}

// Ping всегда успешен: хранилище живёт в памяти процесса.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Counts возвращает число клиентов, продуктов и заказов (используется в тестах).
func (s *Store) Counts() (customers, products, orders int) {
	s.lock <- struct{}{}
	defer s.release()
	return len(s.state.customers), len(s.state.products), len(s.state.orders)
}

type unitOfWork struct {
	store  *Store
	st     *state
	closed bool
}

func (u *unitOfWork) check() error {
	if u.closed {
		return domain.ErrUnitOfWorkClosed
	}
	return nil
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

// Commit подменяет состояние хранилища копией единицы работы.
func (u *unitOfWork) Commit() error {
	if err := u.check(); err != nil {
		return err
	}
	u.store.state = u.st
	u.closed = true
	u.store.release()
	return nil
}

// Rollback отбрасывает копию. Повторный вызов или вызов после Commit ничего не делает.
func (u *unitOfWork) Rollback() error {
	if u.closed {
		return nil
	}
	u.closed = true
	u.store.release()
	return nil
}

var (
	_ domain.Store      = (*Store)(nil)
	_ domain.UnitOfWork = (*unitOfWork)(nil)
)
