package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/services"
)

const defaultForecastMonths = 3

// AnalyticsHandler handles pipeline analytics requests.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetPipelineSummary handles the pipeline summary report
// @Summary     Get pipeline summary
// @Description Get the company's pipeline totals, per-stage breakdown, monthly forecast, average deal size, and win rate
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       forecast_months query int false "Forecast horizon in months (default 3, max 24)"
// @Success     200 {object} services.PipelineSummary "Pipeline summary"
// @Failure     400 {object} ErrorResponse "Invalid forecast horizon"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/pipeline [get]
func (h *AnalyticsHandler) GetPipelineSummary(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	forecastMonths := defaultForecastMonths
	if raw := c.Query("forecast_months"); raw != "" {
		parsed, parseErr := strconv.Atoi(raw)
		if parseErr != nil || parsed < 1 || parsed > 24 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid forecast_months"))
			return
		}
		forecastMonths = parsed
	}

	summary, err := h.analyticsService.GetPipelineSummary(companyID, forecastMonths)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
