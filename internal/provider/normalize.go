package provider

import (
	"strconv"
	"strings"
)

const notAvailable = "N/A"

// yearFromDate extracts a four-digit year from a provider date string
// ("2024-07-19" -> "2024"). Absent dates render as "N/A".
func yearFromDate(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return notAvailable
	}
	return date[:4]
}

func runtimeMinutes(minutes int) string {
	if minutes <= 0 {
		return notAvailable
	}
	return strconv.Itoa(minutes) + " min"
}

// formatMoney renders a dollar amount with thousands grouping, or "N/A"
// when the provider reported zero/absent.
func formatMoney(amount int64) string {
	if amount <= 0 {
		return notAvailable
	}
	s := strconv.FormatInt(amount, 10)
	var b strings.Builder
	b.WriteByte('$')
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func upperLang(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return notAvailable
	}
	return strings.ToUpper(code)
}

func orNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return notAvailable
	}
	return s
}

// floatRating renders a vote average like 7.135 as "7.1". Zero means the
// provider has no rating yet.
func floatRating(v float64) string {
	if v <= 0 {
		return notAvailable
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
