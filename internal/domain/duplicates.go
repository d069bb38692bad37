package domain

// DuplicateKeys возвращает ключи, встретившиеся больше одного раза,
// в порядке их первого появления.
func DuplicateKeys[K comparable](keys []K) []K {
	counts := make(map[K]int, len(keys))
	order := make([]K, 0, len(keys))
	for _, k := range keys {
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	out := make([]K, 0)
	for _, k := range order {
		if counts[k] > 1 {
			out = append(out, k)
		}
	}
	return out
}

// DuplicateProductCodes возвращает коды, повторяющиеся в пакете продуктов.
func DuplicateProductCodes(batch []ProductSubmission) []string {
	codes := make([]string, 0, len(batch))
	for _, p := range batch {
		codes = append(codes, p.Code)
	}
	return DuplicateKeys(codes)
}
