package services

import (
	"context"
	"io"
	"time"

	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
)

// RateResolverSvc defines the rate resolution operations exposed to
// downstream consumers (budget/tax calculations, the HTTP surface).
//
// All three outcomes the callers must distinguish are representable:
// an exact rate (Note empty), an approximated rate (Note set), and
// no rate at all (apperrors.ErrNotFound). Callers must never treat an
// approximation as exact or a not-found as zero.
type RateResolverSvc interface {
	// Resolve returns the best available USD/LKR rate for the given date
	// from the central-bank history, fetching and persisting on a miss.
	Resolve(ctx context.Context, date time.Time) (*domain.Rate, error)

	// ResolveFrom resolves against a specific provider. Retail-bank
	// providers only ever fetch for today; any other date goes straight
	// to the nearest-previous fallback without a network call.
	ResolveFrom(ctx context.Context, source domain.RateSource, date time.Time) (*domain.Rate, error)

	// ResolveMonth resolves every day of the month sequentially. Days with
	// no resolvable rate are absent from the returned map.
	ResolveMonth(ctx context.Context, year int, month time.Month) (map[string]domain.Rate, error)
}

// RateResolverSvcFacade is the full resolver surface.
type RateResolverSvcFacade interface {
	RateResolverSvc
}

// ImportSummary reports the outcome of a CSV bulk import.
type ImportSummary struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// RateImportSvcFacade defines the CSV bulk-import operations.
type RateImportSvcFacade interface {
	// ImportCSV parses a tabular export and persists every valid row
	// under the csv_import tag. Bad rows are skipped, never fatal.
	ImportCSV(ctx context.Context, r io.Reader) (ImportSummary, error)
}

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	Resolver RateResolverSvcFacade
	Importer RateImportSvcFacade
}
