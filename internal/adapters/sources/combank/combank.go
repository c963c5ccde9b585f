// Package combank fetches the current USD/LKR telegraphic-transfer rates
// from the Commercial Bank of Ceylon rates API. The API only reports the
// rates in force right now; there is no historical lookup.
package combank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ratesink/lkr_rates_backend/internal/apperrors"
	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
	"github.com/ratesink/lkr_rates_backend/internal/utils"
)

// ratesResponse mirrors the API envelope. Rates arrive as strings with
// thousands separators.
type ratesResponse struct {
	Description string      `json:"description"`
	Data        []rateEntry `json:"data"`
}

type rateEntry struct {
	CurrencyCode string `json:"currencyCode"`
	CurrencyDesc string `json:"currencyDesc"`
	TTBuyRate    string `json:"ttBuyRate"`
	TTSellRate   string `json:"ttSellRate"`
}

// Adapter talks to the Commercial Bank rates API.
type Adapter struct {
	url    string
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Commercial Bank adapter.
func New(url string, client *http.Client, logger *slog.Logger) *Adapter {
	return &Adapter{url: url, client: client, logger: logger, now: time.Now}
}

func (a *Adapter) Source() domain.RateSource {
	return domain.SourceCommercialBank
}

// FetchCurrent returns today's TT buy/sell pair, or ErrNoRate when the
// payload has no usable USD entry.
func (a *Adapter) FetchCurrent(ctx context.Context) (*domain.Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building combank request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching combank rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("combank API returned status %d", resp.StatusCode)
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		a.logger.Error("Unexpected combank payload shape",
			slog.String("expected", "object with data[] of currency entries"),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("decoding combank response: %w", err)
	}

	for _, entry := range payload.Data {
		if !strings.EqualFold(entry.CurrencyCode, "USD") {
			continue
		}
		buy, okBuy := utils.ParseRateValue(entry.TTBuyRate)
		sell, okSell := utils.ParseRateValue(entry.TTSellRate)
		if !okBuy || !okSell {
			return nil, fmt.Errorf("%w: combank USD entry had unparsable rates (buy=%q sell=%q)",
				apperrors.ErrNoRate, entry.TTBuyRate, entry.TTSellRate)
		}
		rate := &domain.Rate{
			Date:   domain.Day(a.now()),
			Buy:    buy,
			Sell:   sell,
			Source: domain.SourceCommercialBank,
		}
		if err := rate.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrNoRate, err)
		}
		return rate, nil
	}

	return nil, fmt.Errorf("%w: no USD entry in combank response", apperrors.ErrNoRate)
}
