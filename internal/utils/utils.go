package utils

import (
	"strconv"
	"strings"
)

// FormatNumber форматирует число с разделением тысяч пробелами: 52500 -> "52 500".
// Дробная часть (если есть) выводится как есть, без группировки.
func FormatNumber(num float64) string {
	s := strconv.FormatFloat(num, 'f', -1, 64)

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(intPart[i])
	}

	out := b.String() + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// FormatAmount форматирует сумму в тысячах: 52500 -> "52.5к", 50000 -> "50к".
// Суммы меньше тысячи выводятся как есть.
func FormatAmount(num float64) string {
	if num >= 1000 {
		return strconv.FormatFloat(num/1000, 'f', -1, 64) + "к"
	}
	return strconv.FormatFloat(num, 'f', -1, 64)
}
