package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ratesink/lkr_rates_backend/internal/apperrors"
	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
)

// PgxRateRepository implements the ports.RateRepositoryFacade interface using pgxpool.
type PgxRateRepository struct {
	BaseRepository
}

// NewPgxRateRepository creates a new PgxRateRepository.
func NewPgxRateRepository(db *pgxpool.Pool) *PgxRateRepository {
	return &PgxRateRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

func sourceTags(sources []domain.RateSource) []string {
	tags := make([]string, len(sources))
	for i, s := range sources {
		tags[i] = string(s)
	}
	return tags
}

// GetByDate retrieves the rate for an exact calendar date, filtered by source tags.
func (r *PgxRateRepository) GetByDate(ctx context.Context, date time.Time, sources []domain.RateSource) (*domain.Rate, error) {
	query := `
		SELECT rate_date, buy_rate, sell_rate, source, updated_at
		FROM exchange_rates
		WHERE rate_date = $1 AND source = ANY($2)
		ORDER BY updated_at DESC
		LIMIT 1;
	`

	rate, err := r.scanRate(r.Pool.QueryRow(ctx, query, domain.Day(date), sourceTags(sources)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("no rate for " + date.Format(domain.DateLayout))
		}
		return nil, apperrors.NewAppError(500, "failed to get rate by date", err)
	}
	return rate, nil
}

// GetNearestBefore retrieves the highest-dated rate with rate_date <= date,
// filtered by source tags.
func (r *PgxRateRepository) GetNearestBefore(ctx context.Context, date time.Time, sources []domain.RateSource) (*domain.Rate, error) {
	query := `
		SELECT rate_date, buy_rate, sell_rate, source, updated_at
		FROM exchange_rates
		WHERE rate_date <= $1 AND source = ANY($2)
		ORDER BY rate_date DESC, updated_at DESC
		LIMIT 1;
	`

	rate, err := r.scanRate(r.Pool.QueryRow(ctx, query, domain.Day(date), sourceTags(sources)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("no rate on or before " + date.Format(domain.DateLayout))
		}
		return nil, apperrors.NewAppError(500, "failed to get nearest rate", err)
	}
	return rate, nil
}

// IsEmpty reports whether no rate matching the source tags exists at all.
func (r *PgxRateRepository) IsEmpty(ctx context.Context, sources []domain.RateSource) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM exchange_rates WHERE source = ANY($1));`

	var exists bool
	if err := r.Pool.QueryRow(ctx, query, sourceTags(sources)).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed to check for existing rates", err)
	}
	return !exists, nil
}

const upsertRateQuery = `
	INSERT INTO exchange_rates (rate_date, source, buy_rate, sell_rate, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (rate_date, source)
	DO UPDATE SET buy_rate = EXCLUDED.buy_rate,
	              sell_rate = EXCLUDED.sell_rate,
	              updated_at = now();
`

// Upsert inserts the rate or overwrites buy/sell for an existing
// (rate_date, source) row. A single ON CONFLICT statement keeps the
// insert-or-update atomic: two resolvers racing on a cold date both
// succeed, last writer wins.
func (r *PgxRateRepository) Upsert(ctx context.Context, rate domain.Rate) error {
	if err := rate.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	_, err := r.Pool.Exec(ctx, upsertRateQuery, domain.Day(rate.Date), string(rate.Source), rate.Buy, rate.Sell)
	if err != nil {
		return apperrors.NewAppError(500, "failed to upsert rate", err)
	}
	return nil
}

// UpsertBatch upserts every rate inside one transaction, so a bulk import
// either lands completely or not at all.
func (r *PgxRateRepository) UpsertBatch(ctx context.Context, rates []domain.Rate) error {
	for _, rate := range rates {
		if err := rate.Validate(); err != nil {
			return apperrors.NewValidationError(err.Error())
		}
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	for _, rate := range rates {
		if _, err := tx.Exec(ctx, upsertRateQuery, domain.Day(rate.Date), string(rate.Source), rate.Buy, rate.Sell); err != nil {
			return apperrors.NewAppError(500, "failed to upsert rate batch", err)
		}
	}

	return r.Commit(ctx, tx)
}

func (r *PgxRateRepository) scanRate(row pgx.Row) (*domain.Rate, error) {
	var rate domain.Rate
	var source string
	if err := row.Scan(&rate.Date, &rate.Buy, &rate.Sell, &source, &rate.UpdatedAt); err != nil {
		return nil, err
	}
	rate.Source = domain.RateSource(source)
	rate.Date = domain.Day(rate.Date)
	return &rate, nil
}
