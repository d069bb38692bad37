package domain

import "context"

// CustomerRepository описывает требования к хранилищу клиентов.
// Отсутствующая запись возвращается как ErrCustomerNotFound.
type CustomerRepository interface {
	FindByID(ctx context.Context, id int64) (Customer, error)
	FindByEmail(ctx context.Context, email string) (Customer, error)
	// Insert сохраняет клиента вместе с адресами. Занятый email даёт ErrEmailExists.
	Insert(ctx context.Context, customer Customer) (Customer, error)
	InsertMany(ctx context.Context, customers []Customer) ([]Customer, error)
	// Update меняет поля клиента; адреса меняются через AddAddress/DeleteAddress.
	Update(ctx context.Context, id int64, customer Customer) (Customer, error)
	// Delete удаляет клиента с адресами. Клиент с заказами даёт ErrCustomerHasOrders.
	Delete(ctx context.Context, id int64) error
	ListPage(ctx context.Context, page Page) ([]Customer, error)
	AddAddress(ctx context.Context, customerID int64, address Address) (Address, error)
	DeleteAddress(ctx context.Context, customerID, addressID int64) error
}

// ProductRepository описывает требования к хранилищу продуктов.
// Отсутствующая запись возвращается как ErrProductNotFound.
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (Product, error)
	FindByCode(ctx context.Context, code string) (Product, error)
	// Insert сохраняет продукт. Занятый код даёт ErrProductCodeExists.
	Insert(ctx context.Context, product Product) (Product, error)
	InsertMany(ctx context.Context, products []Product) ([]Product, error)
	Update(ctx context.Context, id int64, product Product) (Product, error)
	// Delete удаляет продукт. Продукт в позициях заказов даёт ErrProductInUse.
	Delete(ctx context.Context, id int64) error
	ListPage(ctx context.Context, page Page) ([]Product, error)
}

// OrderRepository описывает требования к хранилищу заказов. Заказы не обновляются.
// Отсутствующая запись возвращается как ErrOrderNotFound.
type OrderRepository interface {
	FindByID(ctx context.Context, id int64) (Order, error)
	FindByNumber(ctx context.Context, number int) (Order, error)
	// Insert сохраняет заказ с позициями. Занятый номер даёт ErrDuplicateOrderNumber.
	Insert(ctx context.Context, order Order) (Order, error)
	InsertMany(ctx context.Context, orders []Order) ([]Order, error)
	Delete(ctx context.Context, id int64) error
	ListPage(ctx context.Context, page Page) ([]Order, error)
}

// OutboxWriter ставит события в outbox в рамках текущей единицы работы.
type OutboxWriter interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
}

// UnitOfWork: граница атомарной записи. После Commit вызов Rollback ничего не делает.
type UnitOfWork interface {
	Customers() CustomerRepository
	Products() ProductRepository
	Orders() OrderRepository
	Outbox() OutboxWriter
	Commit() error
	Rollback() error
}

// Store открывает единицы работы.
type Store interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository: сторона outbox, которую читает воркер публикации.
type OutboxRepository interface {
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}
