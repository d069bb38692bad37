package domain

// Product: товар с уникальным кодом. Валидность вычисляется и не хранится.
type Product struct {
	ID    int64  `json:"id"`
	Code  string `json:"code" validate:"required,max=40"`
	Name  string `json:"name" validate:"required,max=40"`
	valid bool
}

// RegisterProduct создаёт новый продукт. Невалидные код или имя дают ErrProductInvalid.
func RegisterProduct(code, name string) (Product, error) {
	p := Product{Code: code, Name: name}
	if err := ValidateStruct(p); err != nil {
		return Product{}, ErrProductInvalid.Withf("product %q is invalid: %v", code, err)
	}
	p.valid = true
	return p, nil
}

// RestoreProduct восстанавливает продукт из хранилища, доверяя id и пересчитывая валидность.
func RestoreProduct(id int64, code, name string) Product {
	p := Product{ID: id, Code: code, Name: name}
	p.valid = ValidateStruct(p) == nil
	return p
}

// IsValid сообщает, прошёл ли продукт проверку полей.
func (p Product) IsValid() bool {
	return p.valid
}
