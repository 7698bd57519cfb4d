package util

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatPrice renders an integer peso amount as "$18.000" with dot-grouped
// thousands, the es-CO convention used in every user-facing message.
func FormatPrice(price int) string {
	sign := ""
	if price < 0 {
		sign = "-"
		price = -price
	}

	digits := strconv.Itoa(price)
	var builder strings.Builder
	builder.Grow(len(digits) + len(digits)/3 + 2)

	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			builder.WriteByte('.')
		}
		builder.WriteRune(d)
	}

	return sign + "$" + builder.String()
}

// Keycap emoji suffix (VARIATION SELECTOR-16 + COMBINING ENCLOSING KEYCAP).
const keycapSuffix = "️⃣"

// NumberToEmoji renders a 1-based menu index as its keycap emoji.
// Indexes above 10 fall back to "11." style plain text.
func NumberToEmoji(n int) string {
	switch {
	case n >= 0 && n <= 9:
		return strconv.Itoa(n) + keycapSuffix
	case n == 10:
		return "🔟"
	default:
		return fmt.Sprintf("%d.", n)
	}
}

// FormatPhoneNumber canonicalizes a phone number for WhatsApp delivery.
// Ten-digit local Colombian numbers get the 57 country code prefixed;
// twelve-digit numbers already carry a country code and pass through.
func FormatPhoneNumber(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	clean := digits.String()
	if len(clean) == 10 {
		return "57" + clean
	}
	return clean
}
