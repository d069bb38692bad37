package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date: календарная дата в UTC. В JSON принимает "2006-01-02" или RFC3339.
type Date struct {
	time.Time
}

// NewDate обрезает время до дня.
func NewDate(t time.Time) Date {
	return Date{Time: Day(t)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(time.DateOnly))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		d.Time = time.Time{}
		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			d.Time = Day(t)
			return nil
		}
	}
	return fmt.Errorf("unsupported date format: %q", value)
}

// AddressSubmission: адрес в составе входящего клиента.
type AddressSubmission struct {
	ZipCode      string `json:"zip_code"`
	Street       string `json:"street"`
	Number       int    `json:"number"`
	Neighborhood string `json:"neighborhood"`
	Complement   string `json:"complement"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

// ToAddress переводит входной адрес в сущность без идентификаторов.
func (a AddressSubmission) ToAddress() Address {
	return Address{
		ZipCode:      a.ZipCode,
		Street:       a.Street,
		Number:       a.Number,
		Neighborhood: a.Neighborhood,
		Complement:   a.Complement,
		City:         a.City,
		State:        a.State,
		Country:      a.Country,
	}
}

// CustomerSubmission: клиент, на которого ссылается заказ. Полные поля нужны
// для сверки с сохранённым клиентом и для создания нового.
type CustomerSubmission struct {
	FirstName   string              `json:"first_name"`
	LastName    string              `json:"last_name"`
	Email       string              `json:"email" binding:"required"`
	DateOfBirth Date                `json:"date_of_birth"`
	Addresses   []AddressSubmission `json:"addresses"`
}

// AddressList возвращает адреса как сущности.
func (c CustomerSubmission) AddressList() []Address {
	out := make([]Address, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		out = append(out, a.ToAddress())
	}
	return out
}

// ToCustomer собирает нового клиента с проверкой инвариантов.
func (c CustomerSubmission) ToCustomer(now time.Time) (Customer, error) {
	return NewCustomer(c.FirstName, c.LastName, c.Email, c.DateOfBirth.Time, c.AddressList(), now)
}

// ProductSubmission: продукт, на который ссылается позиция.
type ProductSubmission struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ItemSubmission: входящая позиция заказа.
type ItemSubmission struct {
	Product   ProductSubmission `json:"product"`
	Quantity  int               `json:"quantity"`
	UnitValue decimal.Decimal   `json:"unit_value"`
}

// OrderSubmission: входящий заказ для сборки или пакетного импорта.
type OrderSubmission struct {
	Number   int                `json:"number"`
	Date     Date               `json:"date"`
	Customer CustomerSubmission `json:"customer"`
	Items    []ItemSubmission   `json:"items"`
}
