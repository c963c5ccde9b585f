package peoples

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

const ratesPage = `<html><body>
<table>
  <tr><th>Currency</th><th>T/T Buying</th><th>O/D Buying</th><th>Cash Buying</th><th>T/T Selling</th></tr>
  <tr><td>EURO</td><td>331.50</td><td>330.10</td><td>328.00</td><td>342.25</td></tr>
  <tr><td>US DOLLAR</td><td>310.50</td><td>309.25</td><td>307.00</td><td>316.75</td></tr>
</table>
</body></html>`

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

func TestFetchCurrent_PicksFirstAndLastNumericCells(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, ratesPage)
	})

	rate, err := adapter.FetchCurrent(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.SourcePeoples, rate.Source)
	assert.Equal(t, time.Date(2025, time.November, 21, 0, 0, 0, 0, time.UTC), rate.Date)
	assert.True(t, rate.Buy.Equal(decimal.RequireFromString("310.50")))
	assert.True(t, rate.Sell.Equal(decimal.RequireFromString("316.75")))
}

func TestFetchCurrent_SkipsUSDRowWithTooFewNumericCells(t *testing.T) {
	page := `<html><table>
	  <tr><td>US DOLLAR</td><td>-</td><td>n/a</td></tr>
	  <tr><td>USD</td><td>310.50</td><td>316.75</td></tr>
	</table></html>`
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, page)
	})

	rate, err := adapter.FetchCurrent(context.Background())

	require.NoError(t, err)
	assert.True(t, rate.Buy.Equal(decimal.RequireFromString("310.50")))
}

func TestFetchCurrent_NoUSDRow(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><table><tr><td>EURO</td><td>331.50</td><td>342.25</td></tr></table></html>`)
	})

	_, err := adapter.FetchCurrent(context.Background())

	require.ErrorIs(t, err, apperrors.ErrNoRate)
}

func TestFetchCurrent_NoTablesAtAll(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><p>Our rates page is being updated.</p></body></html>`)
	})

	_, err := adapter.FetchCurrent(context.Background())

	require.ErrorIs(t, err, apperrors.ErrNoRate)
}

func TestFetchCurrent_UpstreamError(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := adapter.FetchCurrent(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
