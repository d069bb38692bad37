package domain

const (
	// MaxPageSize ограничивает размер страницы списков.
	MaxPageSize = 10
)

// Page описывает номер (с 1) и размер страницы.
type Page struct {
	Number int `json:"page_number"`
	Size   int `json:"page_size"`
}

// NewPage нормализует параметры: номер < 1 становится 1, размер вне [1, MaxPageSize]
// приводится к MaxPageSize.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 || size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset возвращает число пропускаемых записей.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
