// Package common содержит общие утилиты: ошибки, русскую плюрализацию,
// форматирование времени и обратного отсчёта.
package common

import (
	"fmt"
	"strings"
	"time"
)

// Pluralize выбирает форму слова для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, ...)
//   - остальные → many (0, 5-20, 25-30, ...)
//
// Пример:
//
//	Pluralize(21, "день", "дня", "дней") → "день"
func Pluralize(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeDays — «день/дня/дней».
func PluralizeDays(n int) string {
	return Pluralize(int64(n), "день", "дня", "дней")
}

// PluralizeHours — «час/часа/часов».
func PluralizeHours(n int) string {
	return Pluralize(int64(n), "час", "часа", "часов")
}

// PluralizeMinutes — «минута/минуты/минут».
func PluralizeMinutes(n int) string {
	return Pluralize(int64(n), "минута", "минуты", "минут")
}

// FormatCountdown форматирует оставшееся время для обратного отсчёта.
// Показывает не больше двух старших единиц.
//
// Примеры:
//
//	FormatCountdown(50*time.Hour)   → "2 дня 2 часа"
//	FormatCountdown(90*time.Minute) → "1 час 30 минут"
//	FormatCountdown(20*time.Second) → "меньше минуты"
func FormatCountdown(d time.Duration) string {
	if d < time.Minute {
		return "меньше минуты"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", days, PluralizeDays(days)))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", hours, PluralizeHours(hours)))
	}
	if days == 0 && minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", minutes, PluralizeMinutes(minutes)))
	}
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, " ")
}

// moscow возвращает часовой пояс Москвы, при ошибке — UTC+3 вручную.
func moscow() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// FormatDateTime форматирует время в "02.01.2006 15:04" по Москве.
func FormatDateTime(t time.Time) string {
	return t.In(moscow()).Format("02.01.2006 15:04")
}

// ShortID возвращает первые 8 символов идентификатора для показа в чате.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
