package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

func TestOrderCreatedMessage(t *testing.T) {
	product := domain.RestoreProduct(3, "P1", "Pen")
	item := domain.RestoreItem(11, 7, product, 2, decimal.RequireFromString("10.00"))
	order := domain.RestoreOrder(7, 1001, testNow, 5, []domain.Item{item}, testNow)

	msg, err := domain.OrderCreatedMessage(order)
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	if msg.ID == "" || msg.AggregateType != domain.AggregateOrder || msg.AggregateID != "7" {
		t.Fatalf("unexpected envelope: %+v", msg)
	}
	if msg.EventType != domain.EventOrderCreated {
		t.Fatalf("unexpected event type: %s", msg.EventType)
	}

	var payload domain.OrderCreated
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Number != 1001 || payload.TotalValue != "20.00" || payload.Date != "2024-06-15" || payload.Items != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestCatalogCreatedMessages(t *testing.T) {
	c := domain.RestoreCustomer(4, "Ana", "Silva", "a@x.com", testNow, []domain.Address{{ZipCode: "1"}})
	msg, err := domain.CustomerCreatedMessage(c)
	if err != nil {
		t.Fatalf("customer message: %v", err)
	}
	if msg.EventType != domain.EventCustomerCreated || msg.AggregateID != "4" {
		t.Fatalf("unexpected customer message: %+v", msg)
	}

	msg, err = domain.CustomerUpdatedMessage(c)
	if err != nil {
		t.Fatalf("customer update message: %v", err)
	}
	if msg.EventType != domain.EventCustomerUpdated || msg.AggregateType != domain.AggregateCustomer {
		t.Fatalf("unexpected customer update message: %+v", msg)
	}

	p := domain.RestoreProduct(9, "P9", "Pad")
	msg, err = domain.ProductCreatedMessage(p)
	if err != nil {
		t.Fatalf("product message: %v", err)
	}
	if msg.EventType != domain.EventProductCreated || msg.AggregateType != domain.AggregateProduct {
		t.Fatalf("unexpected product message: %+v", msg)
	}
}
