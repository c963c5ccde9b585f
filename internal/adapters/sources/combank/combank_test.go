package combank

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ratesink/lkr_rates_backend/internal/apperrors"
	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := New(server.URL, server.Client(), logger)
	adapter.now = func() time.Time {
		return time.Date(2025, time.November, 21, 9, 0, 0, 0, time.UTC)
	}
	return adapter
}

func TestFetchCurrent_ParsesStringRates(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
		  "description": "Exchange Rates",
		  "data": [
		    {"currencyCode": "GBP", "currencyDesc": "British Pound", "ttBuyRate": "390.00", "ttSellRate": "402.50"},
		    {"currencyCode": "usd", "currencyDesc": "US Dollar", "ttBuyRate": "310.50", "ttSellRate": "316.75"}
		  ]
		}`)
	})

	rate, err := adapter.FetchCurrent(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.SourceCommercialBank, rate.Source)
	assert.Equal(t, time.Date(2025, time.November, 21, 0, 0, 0, 0, time.UTC), rate.Date)
	assert.True(t, rate.Buy.Equal(decimal.RequireFromString("310.50")))
	assert.True(t, rate.Sell.Equal(decimal.RequireFromString("316.75")))
}

func TestFetchCurrent_NoUSDEntry(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"description": "Exchange Rates", "data": [{"currencyCode": "EUR", "ttBuyRate": "330.00", "ttSellRate": "340.00"}]}`)
	})

	_, err := adapter.FetchCurrent(context.Background())

	require.ErrorIs(t, err, apperrors.ErrNoRate)
}

func TestFetchCurrent_UnparsableRates(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data": [{"currencyCode": "USD", "ttBuyRate": "n/a", "ttSellRate": "316.75"}]}`)
	})

	_, err := adapter.FetchCurrent(context.Background())

	require.ErrorIs(t, err, apperrors.ErrNoRate)
}

func TestFetchCurrent_MalformedPayload(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>maintenance page</html>`)
	})

	_, err := adapter.FetchCurrent(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNoRate)
}

func TestFetchCurrent_UpstreamError(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := adapter.FetchCurrent(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
