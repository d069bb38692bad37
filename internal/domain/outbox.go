package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Типы агрегатов и событий transactional outbox.
const (
	AggregateCustomer = "customer"
	AggregateProduct  = "product"
	AggregateOrder    = "order"

	EventCustomerCreated = "customer.created"
	EventCustomerUpdated = "customer.updated"
	EventProductCreated  = "product.created"
	EventOrderCreated    = "order.created"
	EventOrderDeleted    = "order.deleted"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// NewOutboxMessage сериализует payload в JSON и присваивает сообщению uuid.
func NewOutboxMessage(aggregateType string, aggregateID int64, eventType string, payload any) (OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: aggregateType,
		AggregateID:   strconv.FormatInt(aggregateID, 10),
		EventType:     eventType,
		Payload:       body,
	}, nil
}

// CustomerCreated: payload события customer.created.
type CustomerCreated struct {
	CustomerID int64  `json:"customer_id"`
	Email      string `json:"email"`
	Addresses  int    `json:"addresses"`
}

// CustomerUpdated: payload события customer.updated.
type CustomerUpdated struct {
	CustomerID int64  `json:"customer_id"`
	Email      string `json:"email"`
}

// ProductCreated: payload события product.created.
type ProductCreated struct {
	ProductID int64  `json:"product_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
}

// OrderCreated: payload события order.created.
type OrderCreated struct {
	OrderID    int64  `json:"order_id"`
	Number     int    `json:"number"`
	CustomerID int64  `json:"customer_id"`
	Date       string `json:"date"`
	Items      int    `json:"items"`
	TotalValue string `json:"total_value"`
}

// OrderDeleted: payload события order.deleted.
type OrderDeleted struct {
	OrderID int64 `json:"order_id"`
}

// CustomerCreatedMessage строит outbox-сообщение для сохранённого клиента.
func CustomerCreatedMessage(c Customer) (OutboxMessage, error) {
	return NewOutboxMessage(AggregateCustomer, c.ID, EventCustomerCreated, CustomerCreated{
		CustomerID: c.ID,
		Email:      c.Email,
		Addresses:  len(c.Addresses),
	})
}

func CustomerUpdatedMessage(c Customer) (OutboxMessage, error) {
	return NewOutboxMessage(AggregateCustomer, c.ID, EventCustomerUpdated, CustomerUpdated{
		CustomerID: c.ID,
		Email:      c.Email,
	})
}

// ProductCreatedMessage строит outbox-сообщение для сохранённого продукта.
func ProductCreatedMessage(p Product) (OutboxMessage, error) {
	return NewOutboxMessage(AggregateProduct, p.ID, EventProductCreated, ProductCreated{
		ProductID: p.ID,
		Code:      p.Code,
		Name:      p.Name,
	})
}

// OrderCreatedMessage строит outbox-сообщение для сохранённого заказа.
func OrderCreatedMessage(o Order) (OutboxMessage, error) {
	return NewOutboxMessage(AggregateOrder, o.ID, EventOrderCreated, OrderCreated{
		OrderID:    o.ID,
		Number:     o.Number,
		CustomerID: o.CustomerID,
		Date:       o.Date.Format(time.DateOnly),
		Items:      len(o.Items),
		TotalValue: o.TotalValue.StringFixed(2),
	})
}

// OrderDeletedMessage строит outbox-сообщение об удалении заказа.
func OrderDeletedMessage(orderID int64) (OutboxMessage, error) {
	return NewOutboxMessage(AggregateOrder, orderID, EventOrderDeleted, OrderDeleted{OrderID: orderID})
}
