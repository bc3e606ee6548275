// Package common — pluralize.go содержит форматирование игровых чисел:
// репутации и голосов.
package common

import "fmt"

// PluralizeVotes — «голос/голоса/голосов».
func PluralizeVotes(n int) string {
	return Pluralize(int64(n), "голос", "голоса", "голосов")
}

// FormatReputationChange создаёт строку вида "+100" или "-2 000".
// Знак добавляется автоматически.
func FormatReputationChange(amount int64) string {
	if amount >= 0 {
		return "+" + FormatNumber(amount)
	}
	return FormatNumber(amount)
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
