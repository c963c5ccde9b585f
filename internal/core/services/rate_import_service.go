package services

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/ratesink/lkr_rates_backend/internal/apperrors"
	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
	portsrepo "github.com/ratesink/lkr_rates_backend/internal/core/ports/repositories"
	portssvc "github.com/ratesink/lkr_rates_backend/internal/core/ports/services"
	"github.com/ratesink/lkr_rates_backend/internal/utils/ratecsv"
)

// RateImportService persists CSV rate exports under the csv_import tag.
type RateImportService struct {
	BaseService
	repo portsrepo.RateRepositoryFacade
}

// NewRateImportService creates a new RateImportService.
func NewRateImportService(repo portsrepo.RateRepositoryFacade) *RateImportService {
	return &RateImportService{repo: repo}
}

// ImportCSV parses the export and persists every valid row in one
// transaction. Rows the parser dropped and rows failing validation are
// counted as skipped, not fatal; an unusable header fails the whole batch
// as a validation error, and a persistence failure imports nothing.
func (s *RateImportService) ImportCSV(ctx context.Context, r io.Reader) (portssvc.ImportSummary, error) {
	var summary portssvc.ImportSummary

	parsed, err := ratecsv.Parse(r, s.GetLogger(ctx))
	if err != nil {
		return summary, apperrors.NewValidationError(err.Error())
	}
	summary.Skipped = parsed.Skipped

	// Deterministic import order keeps logs and retries sane.
	dates := make([]string, 0, len(parsed.Rows))
	for date := range parsed.Rows {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	candidates := make([]domain.Rate, 0, len(dates))
	for _, date := range dates {
		row := parsed.Rows[date]
		candidate := domain.Rate{
			Date:   row.Date,
			Buy:    row.Buy,
			Sell:   row.Sell,
			Source: domain.SourceCSVImport,
		}
		if err := candidate.Validate(); err != nil {
			s.LogWarn(ctx, "Skipping invalid imported rate",
				slog.String("date", date), slog.String("error", err.Error()))
			summary.Skipped++
			continue
		}
		candidates = append(candidates, candidate)
	}

	if len(candidates) > 0 {
		if err := s.repo.UpsertBatch(ctx, candidates); err != nil {
			s.LogError(ctx, err, "Failed to persist import batch",
				slog.Int("candidates", len(candidates)))
			return portssvc.ImportSummary{}, err
		}
	}
	summary.Imported = len(candidates)

	s.LogInfo(ctx, "CSV import finished",
		slog.Int("imported", summary.Imported), slog.Int("skipped", summary.Skipped))
	return summary, nil
}
