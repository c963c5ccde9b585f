// Package sampath fetches the current USD/LKR rates from the Sampath Bank
// rates API. Current-day only, like the other retail banks.
package sampath

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ratesink/lkr_rates_backend/internal/apperrors"
	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
)

// ratesResponse mirrors the API envelope; rates arrive as numbers here,
// unlike the string-typed combank payload.
type ratesResponse struct {
	Success bool        `json:"success"`
	Data    []rateEntry `json:"data"`
}

type rateEntry struct {
	CurrCode string  `json:"CurrCode"`
	TTBuy    float64 `json:"TTBUY"`
	TTSell   float64 `json:"TTSEL"`
}

// Adapter talks to the Sampath Bank rates API.
type Adapter struct {
	url    string
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Sampath Bank adapter.
func New(url string, client *http.Client, logger *slog.Logger) *Adapter {
	return &Adapter{url: url, client: client, logger: logger, now: time.Now}
}

func (a *Adapter) Source() domain.RateSource {
	return domain.SourceSampath
}

// FetchCurrent returns today's TT buy/sell pair from the API.
func (a *Adapter) FetchCurrent(ctx context.Context) (*domain.Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building sampath request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching sampath rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sampath API returned status %d", resp.StatusCode)
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		a.logger.Error("Unexpected sampath payload shape",
			slog.String("expected", "object with success flag and data[]"),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("decoding sampath response: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("%w: sampath API reported success=false", apperrors.ErrNoRate)
	}

	for _, entry := range payload.Data {
		if !strings.EqualFold(entry.CurrCode, "USD") {
			continue
		}
		rate := &domain.Rate{
			Date:   domain.Day(a.now()),
			Buy:    decimal.NewFromFloat(entry.TTBuy),
			Sell:   decimal.NewFromFloat(entry.TTSell),
			Source: domain.SourceSampath,
		}
		if err := rate.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrNoRate, err)
		}
		return rate, nil
	}

	return nil, fmt.Errorf("%w: no USD entry in sampath response", apperrors.ErrNoRate)
}
