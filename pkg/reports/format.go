package reports

import (
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supported = []language.Tag{language.English, language.Spanish}

var matcher = language.NewMatcher(supported)

// MatchLocale picks the supported language closest to an Accept-Language
// style string. Anything unrecognized falls back to English.
func MatchLocale(accept string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// FormatDate renders a stored ISO 8601 timestamp in the long form of tag, in
// loc (UTC when nil). A value that does not parse is returned unchanged.
func FormatDate(raw string, tag language.Tag, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)

	if base, _ := tag.Base(); base.String() == "es" {
		return monday.Format(t, "2 de January de 2006, 15:04:05", monday.LocaleEsES)
	}
	return monday.Format(t, "January 2, 2006, 3:04:05 PM", monday.LocaleEnUS)
}

// FormatAmount renders a money value with two decimals and the grouping and
// decimal separators of tag. The digits come from the decimal itself, never
// from a float.
func FormatAmount(amount decimal.Decimal, tag language.Tag) string {
	p := message.NewPrinter(tag)

	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		whole = p.Sprintf("%d", n)
	}

	sign := ""
	if amount.Round(2).IsNegative() {
		sign = "-"
	}
	return sign + "$" + whole + decimalSeparator(p) + frac
}

// decimalSeparator is whatever the printer puts between 1 and 5 in 1.5.
func decimalSeparator(p *message.Printer) string {
	s := p.Sprintf("%.1f", 1.5)
	return strings.TrimSuffix(strings.TrimPrefix(s, "1"), "5")
}
