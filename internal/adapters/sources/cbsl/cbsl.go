// Package cbsl fetches USD/LKR rates from the Central Bank of Sri Lanka
// exchange-rates portal. The portal serves an HTML search form whose results
// table lists one row per business day, so this is the only provider that
// can answer for past dates and date ranges.
package cbsl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ratesink/lkr_rates_backend/internal/apperrors"
	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
	"github.com/ratesink/lkr_rates_backend/internal/utils"
	"github.com/ratesink/lkr_rates_backend/internal/utils/htmltable"
)

// portalDateLayout is the dd/mm/yyyy format the search form expects.
const portalDateLayout = "02/01/2006"

// lookbackDays is how far FetchForDate extends the search window behind the
// target, enough to bridge long holiday stretches.
const lookbackDays = 14

// Adapter talks to the CBSL portal. It holds only static configuration and
// is safe for concurrent use.
type Adapter struct {
	baseURL    string
	client     *http.Client
	bulkClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a CBSL adapter. The bulk client should carry the larger
// timeout budget since range exports are much slower than daily lookups.
func New(baseURL string, client, bulkClient *http.Client, logger *slog.Logger) *Adapter {
	return &Adapter{
		baseURL:    baseURL,
		client:     client,
		bulkClient: bulkClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Source identifies candidates from per-date lookups.
func (a *Adapter) Source() domain.RateSource {
	return domain.SourceCBSLLive
}

// FetchCurrent returns the most recent published rate as of today.
func (a *Adapter) FetchCurrent(ctx context.Context) (*domain.Rate, error) {
	return a.FetchForDate(ctx, domain.Day(a.now()))
}

// FetchForDate returns the rate for the given date. The portal publishes
// nothing on weekends and bank holidays, so when the exact date is absent
// the chronologically closest earlier row in the fetched window is returned
// with a substitute note.
func (a *Adapter) FetchForDate(ctx context.Context, date time.Time) (*domain.Rate, error) {
	date = domain.Day(date)
	rows, err := a.fetchRange(ctx, a.client, date.AddDate(0, 0, -lookbackDays), date)
	if err != nil {
		return nil, err
	}

	var best *domain.Rate
	for i := range rows {
		if rows[i].Date.After(date) {
			continue
		}
		if best == nil || rows[i].Date.After(best.Date) {
			best = &rows[i]
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: portal has no row on or before %s",
			apperrors.ErrNoRate, date.Format(domain.DateLayout))
	}

	rate := *best
	rate.Source = domain.SourceCBSLLive
	if !rate.Date.Equal(date) {
		rate = rate.WithNearestNote(date)
	}
	return &rate, nil
}

// FetchBulkRange returns every published rate in [start, end], tagged as
// bulk history. Used once to warm an empty store.
func (a *Adapter) FetchBulkRange(ctx context.Context, start, end time.Time) ([]domain.Rate, error) {
	rows, err := a.fetchRange(ctx, a.bulkClient, domain.Day(start), domain.Day(end))
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Source = domain.SourceCBSLBulk
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// fetchRange posts the search form and parses the results table.
func (a *Adapter) fetchRange(ctx context.Context, client *http.Client, start, end time.Time) ([]domain.Rate, error) {
	form := url.Values{
		"lookupPage": {"lookup_daily_exchange_rates.php"},
		"startRange": {start.Format(portalDateLayout)},
		"endRange":   {end.Format(portalDateLayout)},
		"rates":      {"USD"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building portal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching cbsl portal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cbsl portal returned status %d", resp.StatusCode)
	}

	tables, err := htmltable.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing cbsl portal markup: %w", err)
	}

	rates, err := a.extractRates(tables)
	if err != nil {
		return nil, err
	}
	return rates, nil
}

// extractRates finds the results table by its header and converts its rows.
// Rows that fail to parse are skipped individually; the portal pads its
// tables with disclaimers and empty spacer rows.
func (a *Adapter) extractRates(tables []htmltable.Table) ([]domain.Rate, error) {
	for _, table := range tables {
		dateCol, buyCol, sellCol, ok := rateColumns(table)
		if !ok {
			continue
		}

		var rates []domain.Rate
		for _, row := range table[1:] {
			if len(row) <= dateCol || len(row) <= buyCol || len(row) <= sellCol {
				continue
			}
			date, ok := utils.ParseRateDate(row[dateCol])
			if !ok {
				continue
			}
			buy, okBuy := utils.ParseRateValue(row[buyCol])
			sell, okSell := utils.ParseRateValue(row[sellCol])
			if !okBuy || !okSell {
				a.logger.Warn("Skipping unparsable cbsl row",
					slog.String("date", row[dateCol]),
					slog.String("buy", row[buyCol]),
					slog.String("sell", row[sellCol]))
				continue
			}
			rate := domain.Rate{Date: date, Buy: buy, Sell: sell}
			if err := rate.Validate(); err != nil {
				a.logger.Warn("Skipping invalid cbsl row",
					slog.String("date", row[dateCol]),
					slog.String("error", err.Error()))
				continue
			}
			rates = append(rates, rate)
		}
		return rates, nil
	}

	// Schema drift in the portal: log what we actually saw so the parser
	// can be fixed from the logs alone.
	a.logger.Error("No cbsl rates table found",
		slog.Int("tables_seen", len(tables)),
		slog.String("expected", "header row containing date, buy and sell columns"))
	return nil, fmt.Errorf("%w: cbsl portal page had no recognizable rates table", apperrors.ErrNoRate)
}

// rateColumns locates the date/buy/sell columns from a table's header row.
func rateColumns(table htmltable.Table) (dateCol, buyCol, sellCol int, ok bool) {
	if len(table) < 2 {
		return 0, 0, 0, false
	}
	dateCol, buyCol, sellCol = -1, -1, -1
	for i, cell := range table[0] {
		h := strings.ToLower(cell)
		switch {
		case strings.Contains(h, "date"):
			dateCol = i
		case strings.Contains(h, "buy"):
			buyCol = i
		case strings.Contains(h, "sell"):
			sellCol = i
		}
	}
	if dateCol < 0 || buyCol < 0 || sellCol < 0 {
		return 0, 0, 0, false
	}
	return dateCol, buyCol, sellCol, true
}
