package domain

import "time"

// Address: почтовый адрес клиента. Все восемь атрибутов обязательны.
type Address struct {
	ID           int64  `json:"id"`
	CustomerID   int64  `json:"customer_id"`
	ZipCode      string `json:"zip_code" validate:"required,max=20"`
	Street       string `json:"street" validate:"required,max=120"`
	Number       int    `json:"number" validate:"gte=0"`
	Neighborhood string `json:"neighborhood" validate:"required,max=80"`
	Complement   string `json:"complement" validate:"required,max=80"`
	City         string `json:"city" validate:"required,max=80"`
	State        string `json:"state" validate:"required,max=80"`
	Country      string `json:"country" validate:"required,max=80"`
}

// SameLocation сравнивает адреса по всем почтовым атрибутам, без учёта идентификаторов.
func (a Address) SameLocation(other Address) bool {
	return a.ZipCode == other.ZipCode &&
		a.Street == other.Street &&
		a.Number == other.Number &&
		a.Neighborhood == other.Neighborhood &&
		a.Complement == other.Complement &&
		a.City == other.City &&
		a.State == other.State &&
		a.Country == other.Country
}

// HasRepeatingAddress возвращает true, если в списке есть два одинаковых адреса.
func HasRepeatingAddress(addresses []Address) bool {
	for i := range addresses {
		for j := i + 1; j < len(addresses); j++ {
			if addresses[i].SameLocation(addresses[j]) {
				return true
			}
		}
	}
	return false
}

// Customer: клиент с собственной коллекцией адресов.
type Customer struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name" validate:"required,max=40"`
	LastName    string    `json:"last_name" validate:"max=40"`
	Email       string    `json:"email" validate:"required,email"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Addresses   []Address `json:"addresses" validate:"dive"`
}

// NewCustomer собирает нового клиента и проверяет его инварианты относительно now.
func NewCustomer(firstName, lastName, email string, dateOfBirth time.Time, addresses []Address, now time.Time) (Customer, error) {
	c := Customer{
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		DateOfBirth: Day(dateOfBirth),
		Addresses:   append([]Address(nil), addresses...),
	}
	if err := c.Validate(now); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// RestoreCustomer восстанавливает клиента из хранилища без повторной валидации.
func RestoreCustomer(id int64, firstName, lastName, email string, dateOfBirth time.Time, addresses []Address) Customer {
	return Customer{
		ID:          id,
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		DateOfBirth: Day(dateOfBirth),
		Addresses:   addresses,
	}
}

// Validate проверяет поля клиента, дату рождения и адреса.
func (c Customer) Validate(now time.Time) error {
	if len(c.Addresses) == 0 {
		return ErrAddressRequired.Withf("customer %s must have at least one address", c.Email)
	}
	for _, addr := range c.Addresses {
		if err := ValidateStruct(addr); err != nil {
			return ErrInvalidAddress.Withf("customer %s has an invalid address: %v", c.Email, err)
		}
	}
	if err := ValidateStruct(c); err != nil {
		return ErrInvalidCustomer.Withf("customer %s has invalid fields: %v", c.Email, err)
	}
	if c.DateOfBirth.IsZero() || IsFutureDay(c.DateOfBirth, now) {
		return ErrInvalidDateOfBirth.Withf("customer %s has an invalid date of birth", c.Email)
	}
	if HasRepeatingAddress(c.Addresses) {
		return ErrDuplicateAddress.Withf("customer %s has a repeating address", c.Email)
	}
	return nil
}

// MismatchedField возвращает имя первого расходящегося поля (first_name, last_name,
// date_of_birth) или пустую строку при полном совпадении.
func (c Customer) MismatchedField(firstName, lastName string, dateOfBirth time.Time) string {
	switch {
	case c.FirstName != firstName:
		return "first_name"
	case c.LastName != lastName:
		return "last_name"
	case !Day(c.DateOfBirth).Equal(Day(dateOfBirth)):
		return "date_of_birth"
	default:
		return ""
	}
}
