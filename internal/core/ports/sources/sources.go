// Package sources defines the contracts upstream rate providers implement.
// Adapters are purely functional: fetch, parse, validate, return. They never
// touch storage and never panic across the boundary; every failure mode
// (transport, non-2xx, schema drift, missing USD entry) comes back as an
// error the resolution engine recovers from by falling through.
package sources

import (
	"context"
	"time"

	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
)

// RateFetcher is the minimum capability of every provider: a rate for today.
type RateFetcher interface {
	// Source identifies the provider tag its candidates carry.
	Source() domain.RateSource

	// FetchCurrent returns today's rate, or apperrors.ErrNoRate when the
	// provider has no usable USD entry.
	FetchCurrent(ctx context.Context) (*domain.Rate, error)
}

// HistoricalRateFetcher is implemented by providers that publish dated
// history (the central bank portal). The returned rate's date may be
// earlier than the requested one when the provider only has the nearest
// prior business day; such substitutes carry a note.
type HistoricalRateFetcher interface {
	RateFetcher

	// FetchForDate returns the rate for the given date, or the closest
	// earlier date present in the provider's own dataset.
	FetchForDate(ctx context.Context, date time.Time) (*domain.Rate, error)

	// FetchBulkRange returns every dated rate the provider has in
	// [start, end], for one-time history backfills.
	FetchBulkRange(ctx context.Context, start, end time.Time) ([]domain.Rate, error)
}
