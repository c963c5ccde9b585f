package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ratesink/lkr_rates_backend/internal/apperrors"
	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
	portsrepo "github.com/ratesink/lkr_rates_backend/internal/core/ports/repositories"
	portssrc "github.com/ratesink/lkr_rates_backend/internal/core/ports/sources"
)

// RateResolutionService decides, for a requested date, which of the
// unreliable upstream providers and the local store supplies the rate.
// The strategy order is fixed: exact stored rate, one-time bulk backfill
// when the store is cold, live fetch, nearest-previous substitute, and
// finally an explicit not-found. The fallback chain is the retry
// mechanism; no step retries internally.
type RateResolutionService struct {
	BaseService
	repo         portsrepo.RateRepositoryFacade
	centralBank  portssrc.HistoricalRateFetcher
	banks        map[domain.RateSource]portssrc.RateFetcher
	backfillDays int
	now          func() time.Time
}

// NewRateResolutionService creates a new RateResolutionService. banks holds
// the current-day-only retail providers keyed by their source tag.
func NewRateResolutionService(
	repo portsrepo.RateRepositoryFacade,
	centralBank portssrc.HistoricalRateFetcher,
	banks []portssrc.RateFetcher,
	backfillDays int,
) *RateResolutionService {
	bankMap := make(map[domain.RateSource]portssrc.RateFetcher, len(banks))
	for _, b := range banks {
		bankMap[b.Source()] = b
	}
	return &RateResolutionService{
		repo:         repo,
		centralBank:  centralBank,
		banks:        bankMap,
		backfillDays: backfillDays,
		now:          time.Now,
	}
}

// Resolve returns the best available rate for the date from the
// central-bank history.
func (s *RateResolutionService) Resolve(ctx context.Context, date time.Time) (*domain.Rate, error) {
	date = domain.Day(date)
	trusted := domain.CentralBankSources

	// Exact stored rate wins without any network cost.
	rate, err := s.repo.GetByDate(ctx, date, trusted)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("rate lookup failed: %w", err)
	}

	// A completely cold store gets one amortized history import instead of
	// a per-day fetch storm. Backfill failure is not fatal to this request.
	if backfilled := s.maybeBackfill(ctx, trusted); backfilled {
		if rate, err := s.repo.GetByDate(ctx, date, trusted); err == nil {
			return rate, nil
		}
	}

	// Live fetch for the requested date.
	if rate := s.fetchAndPersist(ctx, date); rate != nil {
		return rate, nil
	}

	// Weekends and holidays publish nothing; approximate with the most
	// recent earlier rate, clearly annotated.
	rate, err = s.repo.GetNearestBefore(ctx, date, trusted)
	if err == nil {
		annotated := rate.WithNearestNote(date)
		return &annotated, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("nearest-rate lookup failed: %w", err)
	}

	return nil, apperrors.NewNotFoundError("no rate available for " + date.Format(domain.DateLayout))
}

// ResolveFrom resolves against a specific provider. Central-bank family
// tags share the full strategy; retail banks only ever fetch for today.
func (s *RateResolutionService) ResolveFrom(ctx context.Context, source domain.RateSource, date time.Time) (*domain.Rate, error) {
	if source.IsCentralBank() {
		return s.Resolve(ctx, date)
	}

	fetcher, ok := s.banks[source]
	if !ok {
		return nil, apperrors.NewValidationError("unknown rate source " + string(source))
	}

	date = domain.Day(date)
	trusted := source.TrustedSources()

	rate, err := s.repo.GetByDate(ctx, date, trusted)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("rate lookup failed: %w", err)
	}

	// The bank APIs only report the rates in force right now. Fetching for
	// a past date is meaningless, so anything but today goes straight to
	// the nearest-previous fallback without touching the network.
	if date.Equal(domain.Day(s.now())) {
		candidate, err := fetcher.FetchCurrent(ctx)
		if err != nil {
			s.LogWarn(ctx, "Live fetch failed",
				slog.String("source", string(source)),
				slog.String("error", err.Error()))
		} else if vErr := candidate.Validate(); vErr != nil {
			s.LogWarn(ctx, "Live fetch returned invalid candidate",
				slog.String("source", string(source)),
				slog.String("error", vErr.Error()))
		} else {
			s.persistFetched(ctx, *candidate)
			return candidate, nil
		}
	}

	rate, err = s.repo.GetNearestBefore(ctx, date, trusted)
	if err == nil {
		annotated := rate.WithNearestNote(date)
		return &annotated, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("nearest-rate lookup failed: %w", err)
	}

	return nil, apperrors.NewNotFoundError(
		"no rate available from " + string(source) + " for " + date.Format(domain.DateLayout))
}

// ResolveMonth resolves every day of the month sequentially. Days with no
// resolvable rate are simply absent from the result.
func (s *RateResolutionService) ResolveMonth(ctx context.Context, year int, month time.Month) (map[string]domain.Rate, error) {
	rates := make(map[string]domain.Rate)
	for d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC); d.Month() == month; d = d.AddDate(0, 0, 1) {
		rate, err := s.Resolve(ctx, d)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		rates[d.Format(domain.DateLayout)] = *rate
	}
	return rates, nil
}

// maybeBackfill imports the trailing history window once, when no trusted
// rate exists at all. Reports whether anything was persisted.
func (s *RateResolutionService) maybeBackfill(ctx context.Context, trusted []domain.RateSource) bool {
	empty, err := s.repo.IsEmpty(ctx, trusted)
	if err != nil {
		s.LogWarn(ctx, "Could not check store emptiness, skipping backfill",
			slog.String("error", err.Error()))
		return false
	}
	if !empty {
		return false
	}

	end := domain.Day(s.now())
	start := end.AddDate(0, 0, -s.backfillDays)
	s.LogInfo(ctx, "Rate store is empty, importing history",
		slog.Time("start", start), slog.Time("end", end))

	rates, err := s.centralBank.FetchBulkRange(ctx, start, end)
	if err != nil {
		s.LogWarn(ctx, "History backfill failed, continuing with live fetch",
			slog.String("error", err.Error()))
		return false
	}

	persisted := 0
	for _, rate := range rates {
		if err := rate.Validate(); err != nil {
			s.LogWarn(ctx, "Skipping invalid backfill rate",
				slog.Time("date", rate.Date), slog.String("error", err.Error()))
			continue
		}
		if err := s.repo.Upsert(ctx, rate); err != nil {
			s.LogError(ctx, err, "Failed to persist backfill rate", slog.Time("date", rate.Date))
			continue
		}
		persisted++
	}
	s.LogInfo(ctx, "History backfill finished",
		slog.Int("fetched", len(rates)), slog.Int("persisted", persisted))
	return persisted > 0
}

// fetchAndPersist performs the per-date live fetch against the central
// bank. Any failure, including an invalid candidate, returns nil so the
// caller falls through to the next strategy step.
func (s *RateResolutionService) fetchAndPersist(ctx context.Context, date time.Time) *domain.Rate {
	candidate, err := s.centralBank.FetchForDate(ctx, date)
	if err != nil {
		s.LogWarn(ctx, "Live fetch failed",
			slog.String("source", string(s.centralBank.Source())),
			slog.Time("date", date),
			slog.String("error", err.Error()))
		return nil
	}
	if err := candidate.Validate(); err != nil {
		s.LogWarn(ctx, "Live fetch returned invalid candidate",
			slog.Time("date", date), slog.String("error", err.Error()))
		return nil
	}
	s.persistFetched(ctx, *candidate)
	return candidate
}

// persistFetched caches a freshly fetched candidate. A write failure is
// loud but not fatal: the caller still returns the in-memory rate, at the
// cost of future requests re-fetching it.
func (s *RateResolutionService) persistFetched(ctx context.Context, rate domain.Rate) {
	rate.Note = "" // notes are transient, never stored
	if err := s.repo.Upsert(ctx, rate); err != nil {
		s.LogError(ctx, err, "Failed to cache fetched rate; it will be re-fetched on the next request",
			slog.Time("date", rate.Date), slog.String("source", string(rate.Source)))
	}
}
