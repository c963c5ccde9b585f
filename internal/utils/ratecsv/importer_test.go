package ratecsv_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ratesink/lkr_rates_backend/internal/utils/ratecsv"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse_BasicExport(t *testing.T) {
	csv := `Date,Buy Rate (LKR),Sell Rate (LKR)
2025-11-20,310.50,316.75
2025-11-21,311.00,317.25
`
	result, err := ratecsv.Parse(strings.NewReader(csv), discardLogger())

	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, 0, result.Skipped)
	assert.True(t, result.Rows["2025-11-20"].Buy.Equal(decimal.RequireFromString("310.50")))
	assert.True(t, result.Rows["2025-11-21"].Sell.Equal(decimal.RequireFromString("317.25")))
}

func TestParse_LastRowWinsForDuplicateDates(t *testing.T) {
	csv := `Date,Buy Rate,Sell Rate
2025-11-21,311.00,317.25
2025-11-21,999.00,999.00
`
	result, err := ratecsv.Parse(strings.NewReader(csv), discardLogger())

	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	// An overwritten duplicate was replaced, not skipped.
	assert.Equal(t, 0, result.Skipped)
	assert.True(t, result.Rows["2025-11-21"].Buy.Equal(decimal.RequireFromString("999.00")))
	assert.True(t, result.Rows["2025-11-21"].Sell.Equal(decimal.RequireFromString("999.00")))
}

func TestParse_HeaderVariantsAndReordering(t *testing.T) {
	csv := `TT Sell Rate (LKR),Effective Date,TT Buy Rate (LKR)
"316.75",21/11/2025,"310.50"
`
	result, err := ratecsv.Parse(strings.NewReader(csv), discardLogger())

	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	row := result.Rows["2025-11-21"]
	assert.True(t, row.Buy.Equal(decimal.RequireFromString("310.50")))
	assert.True(t, row.Sell.Equal(decimal.RequireFromString("316.75")))
}

func TestParse_ThousandsSeparatorsAndSpacing(t *testing.T) {
	csv := `Date, Buy Rate , Sell Rate
2025-11-21, "1,310.50", 316.75
`
	result, err := ratecsv.Parse(strings.NewReader(csv), discardLogger())

	require.NoError(t, err)
	assert.True(t, result.Rows["2025-11-21"].Buy.Equal(decimal.RequireFromString("1310.50")))
}

func TestParse_CountsSkippedRowsWithoutFailingTheBatch(t *testing.T) {
	csv := `Date,Buy Rate,Sell Rate
not-a-date,310.50,316.75
2025-11-20,,316.75
2025-11-21,310.50,n/a
2025-11-22,310.50,316.75
2025-11-23,310.50
`
	result, err := ratecsv.Parse(strings.NewReader(csv), discardLogger())

	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Contains(t, result.Rows, "2025-11-22")
	assert.Equal(t, 4, result.Skipped)
}

func TestParse_MissingColumnIsFatal(t *testing.T) {
	csv := `Date,Buy Rate
2025-11-20,310.50
`
	result, err := ratecsv.Parse(strings.NewReader(csv), discardLogger())

	require.Error(t, err)
	assert.Nil(t, result.Rows)
	assert.Contains(t, err.Error(), "missing")
}

func TestParse_EmptyInputIsFatal(t *testing.T) {
	_, err := ratecsv.Parse(strings.NewReader(""), discardLogger())
	require.Error(t, err)
}
