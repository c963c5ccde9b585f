package cbsl

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

const portalPage = `<html><body>
<p>Exchange Rates - Central Bank of Sri Lanka</p>
<table>
  <tr><th>Date</th><th>Currency</th><th>Buying Rate</th><th>Selling Rate</th></tr>
  <tr><td>19/11/2025</td><td>USD</td><td>309.75</td><td>315.90</td></tr>
  <tr><td>20/11/2025</td><td>USD</td><td>310.50</td><td>316.75</td></tr>
  <tr><td>21/11/2025</td><td>USD</td><td>311.00</td><td>317.25</td></tr>
  <tr><td></td><td></td><td></td><td></td></tr>
</table>
<table><tr><td>disclaimer only</td></tr></table>
</body></html>`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(server.URL, server.Client(), server.Client(), logger)
}

func portalHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "USD", r.PostForm.Get("rates"))
		assert.NotEmpty(t, r.PostForm.Get("startRange"))
		assert.NotEmpty(t, r.PostForm.Get("endRange"))
		io.WriteString(w, portalPage)
	}
}

func TestFetchForDate_ExactMatch(t *testing.T) {
	adapter := newTestAdapter(t, portalHandler(t))

	rate, err := adapter.FetchForDate(context.Background(), time.Date(2025, time.November, 20, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, domain.SourceCBSLLive, rate.Source)
	assert.True(t, rate.Buy.Equal(decimal.RequireFromString("310.50")))
	assert.True(t, rate.Sell.Equal(decimal.RequireFromString("316.75")))
	assert.Empty(t, rate.Note)
}

func TestFetchForDate_WeekendFallsBackToClosestEarlierRow(t *testing.T) {
	adapter := newTestAdapter(t, portalHandler(t))
	sunday := time.Date(2025, time.November, 23, 0, 0, 0, 0, time.UTC)

	rate, err := adapter.FetchForDate(context.Background(), sunday)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.November, 21, 0, 0, 0, 0, time.UTC), rate.Date)
	assert.Contains(t, rate.Note, "2025-11-23")
	assert.Contains(t, rate.Note, "2025-11-21")
}

func TestFetchForDate_NoRowOnOrBeforeDate(t *testing.T) {
	adapter := newTestAdapter(t, portalHandler(t))
	tooEarly := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)

	_, err := adapter.FetchForDate(context.Background(), tooEarly)

	require.ErrorIs(t, err, apperrors.ErrNoRate)
}

func TestFetchBulkRange_TagsAndSortsHistory(t *testing.T) {
	// Rows served newest-first to prove the adapter re-sorts them.
	page := `<html><table>
	  <tr><th>Date</th><th>Buying Rate</th><th>Selling Rate</th></tr>
	  <tr><td>21/11/2025</td><td>311.00</td><td>317.25</td></tr>
	  <tr><td>19/11/2025</td><td>309.75</td><td>315.90</td></tr>
	  <tr><td>20/11/2025</td><td>310.50</td><td>316.75</td></tr>
	</table></html>`
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, page)
	})

	rates, err := adapter.FetchBulkRange(context.Background(),
		time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, rates, 3)
	for i, rate := range rates {
		assert.Equal(t, domain.SourceCBSLBulk, rate.Source)
		if i > 0 {
			assert.True(t, rates[i-1].Date.Before(rate.Date))
		}
	}
}

func TestFetchForDate_SchemaDrift(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><table><tr><th>Something</th><th>Else</th></tr><tr><td>a</td><td>b</td></tr></table></html>`)
	})

	_, err := adapter.FetchForDate(context.Background(), time.Date(2025, time.November, 20, 0, 0, 0, 0, time.UTC))

	require.ErrorIs(t, err, apperrors.ErrNoRate)
}

func TestFetchForDate_UpstreamError(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := adapter.FetchForDate(context.Background(), time.Date(2025, time.November, 20, 0, 0, 0, 0, time.UTC))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchCurrent_UsesAdapterClock(t *testing.T) {
	adapter := newTestAdapter(t, portalHandler(t))
	adapter.now = func() time.Time {
		return time.Date(2025, time.November, 21, 10, 30, 0, 0, time.UTC)
	}

	rate, err := adapter.FetchCurrent(context.Background())

	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.November, 21, 0, 0, 0, 0, time.UTC), rate.Date)
	assert.Empty(t, rate.Note)
}
