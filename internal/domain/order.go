package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// Ошибки инвариантов позиции и заказа. Возвращаются ValidateInvariants.
	errItemQtyInvalid       = errors.New("item quantity must be greater than zero")
	errItemUnitValueInvalid = errors.New("item unit value must be greater than zero")
	errItemProductInvalid   = errors.New("item product is invalid")
	errOrderNumberInvalid   = errors.New("order number must be greater than zero")
	errOrderDateMissing     = errors.New("order date is required")
	errOrderDateInFuture    = errors.New("order date must not be in the future")
	errOrderCustomerMissing = errors.New("order customer is required")
	errOrderItemsRequired   = errors.New("order must contain at least one item")
	errOrderTotalInvalid    = errors.New("order total value must be greater than zero")
)

// Item представляет одну позицию заказа. TotalValue = Quantity * UnitValue
// считается при создании.
type Item struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	ProductID    int64           `json:"product_id"`
	ProductCode  string          `json:"product_code"`
	Quantity     int             `json:"quantity"`
	UnitValue    decimal.Decimal `json:"unit_value"`
	TotalValue   decimal.Decimal `json:"total_value"`
	productValid bool
	valid        bool
}

// NewItem создаёт позицию по продукту. Невалидная позиция даёт ErrItemInvalid.
func NewItem(product Product, quantity int, unitValue decimal.Decimal) (Item, error) {
	item := buildItem(0, 0, product.ID, product.Code, product.IsValid(), quantity, unitValue)
	if errs := item.ValidateInvariants(); len(errs) > 0 {
		return Item{}, ErrItemInvalid.Withf("item with product %s is invalid: %v", product.Code, errors.Join(errs...))
	}
	return item, nil
}

// RestoreItem восстанавливает позицию из хранилища и пересчитывает производные поля.
func RestoreItem(id, orderID int64, product Product, quantity int, unitValue decimal.Decimal) Item {
	return buildItem(id, orderID, product.ID, product.Code, product.IsValid(), quantity, unitValue)
}

func buildItem(id, orderID, productID int64, code string, productValid bool, quantity int, unitValue decimal.Decimal) Item {
	item := Item{
		ID:           id,
		OrderID:      orderID,
		ProductID:    productID,
		ProductCode:  code,
		Quantity:     quantity,
		UnitValue:    unitValue,
		TotalValue:   unitValue.Mul(decimal.NewFromInt(int64(quantity))),
		productValid: productValid,
	}
	item.valid = len(item.ValidateInvariants()) == 0
	return item
}

// ValidateInvariants проверяет инварианты позиции и возвращает список замечаний.
func (i Item) ValidateInvariants() []error {
	var errs []error
	if i.Quantity <= 0 {
		errs = append(errs, errItemQtyInvalid)
	}
	if !i.UnitValue.IsPositive() {
		errs = append(errs, errItemUnitValueInvalid)
	}
	if !i.productValid {
		errs = append(errs, errItemProductInvalid)
	}
	return errs
}

// IsValid сообщает, что позиция прошла проверку при создании.
func (i Item) IsValid() bool {
	return i.valid
}

// Order агрегирует заказ клиента и его позиции. После создания не изменяется.
type Order struct {
	ID         int64           `json:"id"`
	Number     int             `json:"number"`
	Date       time.Time       `json:"date"`
	CustomerID int64           `json:"customer_id"`
	Items      []Item          `json:"items"`
	TotalValue decimal.Decimal `json:"total_value"`
	valid      bool
}

// NewOrder собирает заказ из проверенных позиций. При нарушении инвариантов
// возвращает ErrOrderInvalid.
func NewOrder(number int, date time.Time, customerID int64, items []Item, now time.Time) (Order, error) {
	order := buildOrder(0, number, date, customerID, items)
	if errs := order.ValidateInvariants(now); len(errs) > 0 {
		return Order{}, ErrOrderInvalid.Withf("order %d is invalid: %v", number, errors.Join(errs...))
	}
	order.valid = true
	return order, nil
}

// RestoreOrder восстанавливает заказ из хранилища, пересчитывая итог и валидность.
func RestoreOrder(id int64, number int, date time.Time, customerID int64, items []Item, now time.Time) Order {
	order := buildOrder(id, number, date, customerID, items)
	order.valid = len(order.ValidateInvariants(now)) == 0
	return order
}

func buildOrder(id int64, number int, date time.Time, customerID int64, items []Item) Order {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalValue)
	}
	return Order{
		ID:         id,
		Number:     number,
		Date:       Day(date),
		CustomerID: customerID,
		Items:      append([]Item(nil), items...),
		TotalValue: total,
	}
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o Order) ValidateInvariants(now time.Time) []error {
	var errs []error

	if o.Number <= 0 {
		errs = append(errs, errOrderNumberInvalid)
	}
	if o.Date.IsZero() {
		errs = append(errs, errOrderDateMissing)
	} else if IsFutureDay(o.Date, now) {
		errs = append(errs, errOrderDateInFuture)
	}
	if o.CustomerID <= 0 {
		errs = append(errs, errOrderCustomerMissing)
	}
	if len(o.Items) == 0 {
		errs = append(errs, errOrderItemsRequired)
	}
	if !o.TotalValue.IsPositive() {
		errs = append(errs, errOrderTotalInvalid)
	}

	return errs
}

// IsValid сообщает, что заказ удовлетворял инвариантам при сборке или восстановлении.
func (o Order) IsValid() bool {
	return o.valid
}

// WithIDs возвращает копию заказа с присвоенными хранилищем идентификаторами.
func (o Order) WithIDs(orderID int64, itemIDs []int64) Order {
	out := o
	out.ID = orderID
	out.Items = make([]Item, len(o.Items))
	for i, item := range o.Items {
		item.OrderID = orderID
		if i < len(itemIDs) {
			item.ID = itemIDs[i]
		}
		out.Items[i] = item
	}
	return out
}
