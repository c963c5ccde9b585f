package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Rate is the normalized USD/LKR rate for a single calendar date from a
// single provider. (Date, Source) is the natural key in storage.
type Rate struct {
	Date      time.Time       `json:"date"`
	Buy       decimal.Decimal `json:"buyRate"`  // LKR per 1 USD, bank buying
	Sell      decimal.Decimal `json:"sellRate"` // LKR per 1 USD, bank selling
	Source    RateSource      `json:"source"`
	UpdatedAt time.Time       `json:"updatedAt"`

	// Note is set only when the returned rate is a nearest-previous
	// substitute for a date with no published rate. It is never persisted.
	Note string `json:"note,omitempty"`
}

// Validate rejects candidates that must never reach the repository.
func (r Rate) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("rate has no date")
	}
	if !r.Buy.IsPositive() {
		return fmt.Errorf("buy rate must be positive, got %s", r.Buy)
	}
	if !r.Sell.IsPositive() {
		return fmt.Errorf("sell rate must be positive, got %s", r.Sell)
	}
	return nil
}

// WithNearestNote returns a copy annotated as a substitute for requested.
func (r Rate) WithNearestNote(requested time.Time) Rate {
	r.Note = fmt.Sprintf("no rate published for %s; closest available rate is from %s",
		requested.Format(DateLayout), r.Date.Format(DateLayout))
	return r
}

// DateLayout is the canonical wire format for rate dates.
const DateLayout = "2006-01-02"

// Day truncates t to its UTC calendar date. All rate dates are stored and
// compared at day granularity.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
