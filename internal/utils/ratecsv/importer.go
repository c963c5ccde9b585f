// Package ratecsv turns tabular rate exports into import candidates. It is
// a pure transformation: no network, no storage; the caller decides what to
// persist.
package ratecsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
	"github.com/ratesink/lkr_rates_backend/internal/utils"
)

// Row is one parsed candidate, keyed in the result by its ISO date string.
type Row struct {
	Date time.Time
	Buy  decimal.Decimal
	Sell decimal.Decimal
}

// Result carries the parsed candidates plus how many rows were dropped on
// the way, so import summaries can report skips the caller never saw.
// A duplicate date is not a skip; its earlier row was simply overwritten.
type Result struct {
	Rows    map[string]Row
	Skipped int
}

// Parse reads a CSV export and returns at most one candidate per date, the
// last row winning for duplicate dates. Column positions are discovered
// from the header by case-insensitive substring match, so exports with
// renamed or reordered columns ("Date", "TT Buy Rate (LKR)", ...) still
// import. Rows with an unparsable date or a missing numeric value are
// skipped with a warning and counted, never fatal to the batch.
func Parse(r io.Reader, logger *slog.Logger) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("reading csv header: %w", err)
	}

	dateCol, buyCol, sellCol, err := findColumns(header)
	if err != nil {
		return Result{}, err
	}

	result := Result{Rows: make(map[string]Row)}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logger.Warn("Skipping malformed csv line",
				slog.Int("line", line), slog.String("error", err.Error()))
			result.Skipped++
			continue
		}
		if len(record) <= dateCol || len(record) <= buyCol || len(record) <= sellCol {
			logger.Warn("Skipping short csv line", slog.Int("line", line))
			result.Skipped++
			continue
		}

		date, ok := utils.ParseRateDate(record[dateCol])
		if !ok {
			logger.Warn("Skipping csv line with unparsable date",
				slog.Int("line", line), slog.String("date", record[dateCol]))
			result.Skipped++
			continue
		}
		buy, okBuy := utils.ParseRateValue(record[buyCol])
		sell, okSell := utils.ParseRateValue(record[sellCol])
		if !okBuy || !okSell {
			logger.Warn("Skipping csv line with missing rate value",
				slog.Int("line", line),
				slog.String("buy", record[buyCol]),
				slog.String("sell", record[sellCol]))
			result.Skipped++
			continue
		}

		result.Rows[date.Format(domain.DateLayout)] = Row{Date: date, Buy: buy, Sell: sell}
	}

	return result, nil
}

// findColumns locates the date, buy-rate and sell-rate columns by substring.
func findColumns(header []string) (dateCol, buyCol, sellCol int, err error) {
	dateCol, buyCol, sellCol = -1, -1, -1
	for i, name := range header {
		h := strings.ToLower(strings.TrimSpace(name))
		switch {
		case strings.Contains(h, "date") && dateCol < 0:
			dateCol = i
		case strings.Contains(h, "buy") && strings.Contains(h, "rate") && buyCol < 0:
			buyCol = i
		case strings.Contains(h, "sell") && strings.Contains(h, "rate") && sellCol < 0:
			sellCol = i
		}
	}
	if dateCol < 0 || buyCol < 0 || sellCol < 0 {
		return 0, 0, 0, fmt.Errorf("csv header %v is missing a date, buy rate or sell rate column", header)
	}
	return dateCol, buyCol, sellCol, nil
}
