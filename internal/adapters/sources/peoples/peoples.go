// Package peoples scrapes the current USD/LKR rates from the People's Bank
// exchange-rates page. The bank publishes no API; the rates live in an HTML
// table where the buying rate is listed before the selling rate.
package peoples

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ratesink/lkr_rates_backend/internal/apperrors"
	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
	"github.com/ratesink/lkr_rates_backend/internal/utils"
	"github.com/ratesink/lkr_rates_backend/internal/utils/htmltable"
)

// Adapter scrapes the People's Bank rates page.
type Adapter struct {
	url    string
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// New creates a People's Bank adapter.
func New(url string, client *http.Client, logger *slog.Logger) *Adapter {
	return &Adapter{url: url, client: client, logger: logger, now: time.Now}
}

func (a *Adapter) Source() domain.RateSource {
	return domain.SourcePeoples
}

// FetchCurrent scrapes the page for the USD row. The first numeric cell on
// the row is the T/T buying rate and the last is the selling rate; the
// cells between are draft and cash variants this system does not need.
func (a *Adapter) FetchCurrent(ctx context.Context) (*domain.Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building peoples request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching peoples rates page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("peoples page returned status %d", resp.StatusCode)
	}

	tables, err := htmltable.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing peoples page markup: %w", err)
	}

	for _, table := range tables {
		for _, row := range table {
			if len(row) < 2 || !isUSDRow(row[0]) {
				continue
			}
			buy, sell, ok := buySellCells(row[1:])
			if !ok {
				a.logger.Warn("USD row on peoples page had no usable rate cells",
					slog.String("row", strings.Join(row, " | ")))
				continue
			}
			rate := &domain.Rate{
				Date:   domain.Day(a.now()),
				Buy:    buy,
				Sell:   sell,
				Source: domain.SourcePeoples,
			}
			if err := rate.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %v", apperrors.ErrNoRate, err)
			}
			return rate, nil
		}
	}

	a.logger.Error("No USD row found on peoples page",
		slog.Int("tables_seen", len(tables)),
		slog.String("expected", "table row starting with a US Dollar label"))
	return nil, fmt.Errorf("%w: no USD row on peoples page", apperrors.ErrNoRate)
}

func isUSDRow(label string) bool {
	l := strings.ToUpper(strings.TrimSpace(label))
	return strings.Contains(l, "US DOLLAR") || strings.Contains(l, "USD")
}

// buySellCells picks the first and last numeric cells of a rate row.
func buySellCells(cells []string) (buy, sell decimal.Decimal, ok bool) {
	var numeric []decimal.Decimal
	for _, cell := range cells {
		if v, parsed := utils.ParseRateValue(cell); parsed {
			numeric = append(numeric, v)
		}
	}
	if len(numeric) < 2 {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	return numeric[0], numeric[len(numeric)-1], true
}
