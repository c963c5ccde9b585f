package repositories

import (
	"context"
	"time"

	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
)

// RateReader defines read operations for rate data. Every read is filtered
// to a caller-supplied set of source tags: a provider's cache check must
// never be satisfied by rows another provider wrote.
type RateReader interface {
	// GetByDate retrieves the rate for an exact calendar date, or
	// apperrors.ErrNotFound.
	GetByDate(ctx context.Context, date time.Time, sources []domain.RateSource) (*domain.Rate, error)

	// GetNearestBefore retrieves the highest-dated rate with date <= the
	// given date, or apperrors.ErrNotFound.
	GetNearestBefore(ctx context.Context, date time.Time, sources []domain.RateSource) (*domain.Rate, error)

	// IsEmpty reports whether no rate matching sources exists at all.
	IsEmpty(ctx context.Context, sources []domain.RateSource) (bool, error)
}

// RateWriter defines write operations for rate data.
type RateWriter interface {
	// Upsert inserts the rate, or overwrites buy/sell and refreshes the
	// update timestamp if a row already exists for (date, source). The
	// insert-or-update must be a single atomic statement: concurrent
	// resolvers racing on a cold date are expected and must degrade to
	// last-writer-wins, not duplicate-key failures.
	Upsert(ctx context.Context, rate domain.Rate) error

	// UpsertBatch upserts every rate inside one transaction. A bulk
	// import is all-or-nothing: a failure partway through leaves no
	// half-written history behind.
	UpsertBatch(ctx context.Context, rates []domain.Rate) error
}

// RateRepositoryFacade combines all rate repository interfaces.
type RateRepositoryFacade interface {
	RateReader
	RateWriter
}
