package dto

import (
	"time"

	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RateResponse defines the structure for API responses containing a
// resolved rate. Note is present only when the rate is a nearest-previous
// substitute; consumers must not treat an annotated rate as exact.
type RateResponse struct {
	Date      string          `json:"date"`
	BuyRate   decimal.Decimal `json:"buyRate"`
	SellRate  decimal.Decimal `json:"sellRate"`
	Source    string          `json:"source"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Note      string          `json:"note,omitempty"`
}

// MonthRatesResponse maps ISO date strings to resolved rates for one month.
// Days with no resolvable rate are absent.
type MonthRatesResponse struct {
	Year  int                     `json:"year"`
	Month int                     `json:"month"`
	Rates map[string]RateResponse `json:"rates"`
}

// ToRateResponse converts a domain.Rate to a RateResponse DTO.
func ToRateResponse(rate *domain.Rate) RateResponse {
	return RateResponse{
		Date:      rate.Date.Format(domain.DateLayout),
		BuyRate:   rate.Buy,
		SellRate:  rate.Sell,
		Source:    string(rate.Source),
		UpdatedAt: rate.UpdatedAt,
		Note:      rate.Note,
	}
}

// ToMonthRatesResponse converts a month's resolved rates to the response DTO.
func ToMonthRatesResponse(year int, month time.Month, rates map[string]domain.Rate) MonthRatesResponse {
	out := MonthRatesResponse{
		Year:  year,
		Month: int(month),
		Rates: make(map[string]RateResponse, len(rates)),
	}
	for date := range rates {
		rate := rates[date]
		out.Rates[date] = ToRateResponse(&rate)
	}
	return out
}
