package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind классифицирует бизнес-ошибки для маппинга в статусы транспорта.
type ErrorKind string

const (
	// KindValidation: некорректное или вышедшее за допустимый диапазон поле.
	KindValidation ErrorKind = "VALIDATION"
	// KindNotFound: ссылка на отсутствующего клиента/продукт/адрес/заказ.
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindConflict: дубликат уникального ключа или расхождение с сохранёнными данными.
	KindConflict ErrorKind = "CONFLICT"
	// KindDuplicateInBatch: повтор ключа внутри одного батча.
	KindDuplicateInBatch ErrorKind = "DUPLICATE_IN_BATCH"
	// KindInvariantViolation: собранный агрегат не прошёл собственную проверку.
	KindInvariantViolation ErrorKind = "INVARIANT_VIOLATION"
)

// Error: типизированный результат бизнес-проверки.
// Сравнение через errors.Is идёт по Code, поэтому уточнённое сообщение
// не мешает сопоставлению с sentinel-значением.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Is сопоставляет ошибки по коду.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Withf возвращает копию ошибки с уточнённым сообщением.
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// Status возвращает HTTP-подобный код для вида ошибки.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindDuplicateInBatch:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvariantViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

var (
	// Шаги сборки заказа.
	ErrInvalidOrderNumber    = newError(KindValidation, "INVALID_ORDER_NUMBER", "order number must be positive")
	ErrOrderDateRequired     = newError(KindValidation, "ORDER_DATE_REQUIRED", "order date is required")
	ErrDuplicateOrderNumber  = newError(KindConflict, "DUPLICATE_ORDER_NUMBER", "order number already exists")
	ErrFutureDate            = newError(KindValidation, "FUTURE_DATE", "order date is in the future")
	ErrCustomerNotFound      = newError(KindNotFound, "CUSTOMER_NOT_FOUND", "customer not found")
	ErrCustomerFieldMismatch = newError(KindConflict, "CUSTOMER_FIELD_MISMATCH", "customer fields do not match the stored customer")
	ErrProductNotFound       = newError(KindNotFound, "PRODUCT_NOT_FOUND", "product not found")
	ErrProductFieldMismatch  = newError(KindConflict, "PRODUCT_FIELD_MISMATCH", "product name does not match the stored product")
	ErrItemInvalid           = newError(KindValidation, "ITEM_INVALID", "item fields are invalid")
	ErrOrderInvalid          = newError(KindInvariantViolation, "ORDER_INVALID", "order fields are invalid")

	// Дубликаты внутри батча.
	ErrDuplicateOrderNumberInBatch = newError(KindDuplicateInBatch, "DUPLICATE_ORDER_NUMBER_IN_BATCH", "batch contains duplicate order numbers")
	ErrDuplicateEmailInBatch       = newError(KindDuplicateInBatch, "DUPLICATE_EMAIL_IN_BATCH", "batch contains duplicate emails of new customers")
	ErrConflictingProductInBatch   = newError(KindDuplicateInBatch, "CONFLICTING_PRODUCT_IN_BATCH", "batch contains one product code with different names")
	ErrDuplicateProductCodeInBatch = newError(KindDuplicateInBatch, "DUPLICATE_PRODUCT_CODE_IN_BATCH", "product batch contains duplicate codes")

	// Клиенты и адреса.
	ErrInvalidCustomer    = newError(KindValidation, "INVALID_CUSTOMER", "customer fields are invalid")
	ErrInvalidDateOfBirth = newError(KindValidation, "INVALID_DATE_OF_BIRTH", "date of birth is in the future")
	ErrAddressRequired    = newError(KindValidation, "ADDRESS_REQUIRED", "customer must have at least one address")
	ErrInvalidAddress     = newError(KindValidation, "INVALID_ADDRESS", "address fields are invalid")
	ErrDuplicateAddress   = newError(KindConflict, "DUPLICATE_ADDRESS", "customer has a repeating address")
	ErrEmailExists        = newError(KindConflict, "EMAIL_EXISTS", "customer with this email already exists")
	ErrAddressNotFound    = newError(KindNotFound, "ADDRESS_NOT_FOUND", "address not found")
	ErrLastAddress        = newError(KindConflict, "LAST_ADDRESS", "customer must keep at least one address")
	ErrCustomerHasOrders  = newError(KindConflict, "CUSTOMER_HAS_ORDERS", "customer is referenced by orders")

	// Продукты.
	ErrProductInvalid    = newError(KindValidation, "PRODUCT_INVALID", "product fields are invalid")
	ErrProductCodeExists = newError(KindConflict, "PRODUCT_CODE_EXISTS", "product with this code already exists")
	ErrProductInUse      = newError(KindConflict, "PRODUCT_IN_USE", "product is referenced by orders")

	// Заказы.
	ErrOrderNotFound = newError(KindNotFound, "ORDER_NOT_FOUND", "order not found")
)

var (
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrUnitOfWorkClosed: операция над уже закоммиченной или откаченной единицей работы.
	ErrUnitOfWorkClosed = errors.New("unit of work is closed")
)

// AsError извлекает типизированную бизнес-ошибку из цепочки.
func AsError(err error) (*Error, bool) {
	var derr *Error
	if errors.As(err, &derr) {
		return derr, true
	}
	return nil, false
}

// IsKind проверяет вид бизнес-ошибки.
func IsKind(err error, kind ErrorKind) bool {
	derr, ok := AsError(err)
	return ok && derr.Kind == kind
}

// IsNotFound проверяет, что ошибка означает отсутствие записи.
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}
