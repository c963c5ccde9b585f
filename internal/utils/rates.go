package utils

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// rateDateLayouts are the date formats seen across the upstream sources:
// the CBSL portal, bank pages, and historical CSV exports.
var rateDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseRateDate parses a calendar date in any of the layouts the upstream
// sources use, normalized to UTC midnight.
func ParseRateDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range rateDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseRateValue parses a currency value as published by the upstream
// sources, tolerating thousands separators and surrounding whitespace.
// Returns false for anything that is not a plain decimal number.
func ParseRateValue(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
