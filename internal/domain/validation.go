package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// validate: общий валидатор полей сущностей и входных данных.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct проверяет struct-теги `validate`.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

// Day обрезает время до календарного дня в UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsFutureDay сообщает, что день t строго позже дня now (оба в UTC).
func IsFutureDay(t, now time.Time) bool {
	return Day(t).After(Day(now))
}
