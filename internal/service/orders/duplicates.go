package orders

import "github.com/vladislavdragonenkov/customer-management/internal/domain"

// DuplicateOrderNumbers возвращает номера заказов, повторяющиеся в батче.
func DuplicateOrderNumbers(batch []domain.OrderSubmission) []int {
	numbers := make([]int, 0, len(batch))
	for _, sub := range batch {
		numbers = append(numbers, sub.Number)
	}
	return domain.DuplicateKeys(numbers)
}

// DuplicateEmails возвращает email клиентов, повторяющиеся в батче.
// Сравнение точное, без нормализации регистра.
func DuplicateEmails(batch []domain.OrderSubmission) []string {
	emails := make([]string, 0, len(batch))
	for _, sub := range batch {
		emails = append(emails, sub.Customer.Email)
	}
	return domain.DuplicateKeys(emails)
}

// DuplicateProductCodes возвращает коды продуктов, встретившиеся больше
// одного раза среди позиций всех заказов батча.
func DuplicateProductCodes(batch []domain.OrderSubmission) []string {
	codes := make([]string, 0, len(batch))
	for _, sub := range batch {
		for _, item := range sub.Items {
			codes = append(codes, item.Product.Code)
		}
	}
	return domain.DuplicateKeys(codes)
}

// ConflictingProductCodes возвращает коды, которые встречаются в батче
// с разными названиями продукта.
func ConflictingProductCodes(batch []domain.OrderSubmission) []string {
	names := make(map[string]string)
	conflicted := make(map[string]bool)
	out := make([]string, 0)
	for _, sub := range batch {
		for _, item := range sub.Items {
			code, name := item.Product.Code, item.Product.Name
			first, seen := names[code]
			if !seen {
				names[code] = name
				continue
			}
			if first != name && !conflicted[code] {
				conflicted[code] = true
				out = append(out, code)
			}
		}
	}
	return out
}
