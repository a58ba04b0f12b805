// Package format provides display formatting helpers for currency and
// percentage values.
package format

import (
	"fmt"
	"math"
	"strings"
)

// Currency returns a currency string with a dollar sign and thousands
// separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := groupThousands(math.Abs(amount))
	if amount < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Percent returns a percentage string with one decimal place (e.g., "12.5%").
func Percent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

func groupThousands(value float64) string {
	formatted := fmt.Sprintf("%.2f", value)
	dot := strings.IndexByte(formatted, '.')
	intPart, decPart := formatted[:dot], formatted[dot+1:]

	if len(intPart) <= 3 {
		return intPart + "." + decPart
	}

	var builder strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			builder.WriteByte(',')
		}
		builder.WriteByte(intPart[i])
	}
	return builder.String() + "." + decPart
}
