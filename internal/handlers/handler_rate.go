package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ratesink/lkr_rates_backend/internal/apperrors"
	"github.com/ratesink/lkr_rates_backend/internal/core/domain"
	portssvc "github.com/ratesink/lkr_rates_backend/internal/core/ports/services"
	"github.com/ratesink/lkr_rates_backend/internal/dto"
	"github.com/ratesink/lkr_rates_backend/internal/middleware"
)

// rateHandler handles HTTP requests related to rate resolution.
type rateHandler struct {
	resolver portssvc.RateResolverSvcFacade
	importer portssvc.RateImportSvcFacade
}

// newRateHandler creates a new rateHandler.
func newRateHandler(resolver portssvc.RateResolverSvcFacade, importer portssvc.RateImportSvcFacade) *rateHandler {
	return &rateHandler{resolver: resolver, importer: importer}
}

// RegisterRateRoutes registers routes related to rate resolution.
func RegisterRateRoutes(rg *gin.RouterGroup, resolver portssvc.RateResolverSvcFacade, importer portssvc.RateImportSvcFacade) {
	h := newRateHandler(resolver, importer)

	rates := rg.Group("/rates")
	{
		rates.GET("/:date", h.getRate)
		rates.GET("/month/:year/:month", h.getMonthRates)
		rates.POST("/import", h.importCSV)
	}
}

// getRate resolves the USD/LKR rate for a calendar date. An optional
// ?source= query selects a specific provider (e.g. a retail bank).
func (h *rateHandler) getRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	date, err := time.Parse(domain.DateLayout, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	var rate *domain.Rate
	if sourceParam := c.Query("source"); sourceParam != "" {
		source, ok := domain.ParseRateSource(sourceParam)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown rate source: " + sourceParam})
			return
		}
		rate, err = h.resolver.ResolveFrom(c.Request.Context(), source, date)
	} else {
		rate, err = h.resolver.Resolve(c.Request.Context(), date)
	}

	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// A legitimate outcome, distinct from failure: no rate exists
			// for this date and none could be approximated.
			c.JSON(http.StatusNotFound, gin.H{"error": "No rate available", "date": c.Param("date")})
			return
		}
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Failed to resolve rate", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve rate"})
		return
	}

	c.JSON(http.StatusOK, dto.ToRateResponse(rate))
}

// getMonthRates resolves every day of a month in one call.
func (h *rateHandler) getMonthRates(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1900 || year > 2200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month, expected 1-12"})
		return
	}

	rates, err := h.resolver.ResolveMonth(c.Request.Context(), year, time.Month(month))
	if err != nil {
		logger.Error("Failed to resolve month rates",
			slog.Int("year", year), slog.Int("month", month), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve rates for month"})
		return
	}

	c.JSON(http.StatusOK, dto.ToMonthRatesResponse(year, time.Month(month), rates))
}

// importCSV accepts a multipart CSV upload and backfills its rates.
func (h *rateHandler) importCSV(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing csv upload under form field 'file'"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer file.Close()

	summary, err := h.importer.ImportCSV(c.Request.Context(), file)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("CSV import failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Import failed"})
		return
	}

	logger.Info("CSV import completed",
		slog.String("filename", fileHeader.Filename),
		slog.Int("imported", summary.Imported),
		slog.Int("skipped", summary.Skipped))
	c.JSON(http.StatusOK, summary)
}
