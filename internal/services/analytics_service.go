package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/models"
)

// analyticsService produces read-only pipeline summaries. The aggregation
// functions below operate on already-fetched deal slices, never mutate them,
// and degrade to zero-valued output on empty input instead of failing.
type analyticsService struct {
	db           *gorm.DB
	stageService StageServicer
}

// NewAnalyticsService creates a new AnalyticsServicer.
func NewAnalyticsService(db *gorm.DB, stageService StageServicer) AnalyticsServicer {
	return &analyticsService{db: db, stageService: stageService}
}

// TotalOpenValue sums deal value over open deals. The result is invariant
// under reordering of the input.
func TotalOpenValue(deals []models.Deal) decimal.Decimal {
	total := decimal.Zero
	for i := range deals {
		if deals[i].Status == models.DealStatusOpen {
			total = total.Add(deals[i].DealValue)
		}
	}
	return total
}

// AverageDealSize returns the arithmetic mean of deal value across all deals
// passed in, regardless of status. Empty input yields zero.
func AverageDealSize(deals []models.Deal) decimal.Decimal {
	if len(deals) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for i := range deals {
		total = total.Add(deals[i].DealValue)
	}
	return total.Div(decimal.NewFromInt(int64(len(deals))))
}

// WinRate returns won / (won + lost) * 100, or 0 when no deal has closed.
func WinRate(deals []models.Deal) float64 {
	var won, lost int
	for i := range deals {
		switch deals[i].Status {
		case models.DealStatusWon:
			won++
		case models.DealStatusLost:
			lost++
		}
	}
	if won+lost == 0 {
		return 0
	}
	return float64(won) / float64(won+lost) * 100
}

// StageBreakdown groups open deals by stage for each non-terminal stage in
// catalog order. Percentages are of the total open pipeline value and are 0,
// not NaN, when that total is zero.
func StageBreakdown(deals []models.Deal, stages []models.PipelineStage) []StageBreakdownItem {
	total := TotalOpenValue(deals)

	items := make([]StageBreakdownItem, 0, len(stages))
	for _, stage := range stages {
		if stage.IsTerminal() {
			continue
		}

		value := decimal.Zero
		count := 0
		for i := range deals {
			if deals[i].Status != models.DealStatusOpen || deals[i].PipelineStage != stage.Name {
				continue
			}
			value = value.Add(deals[i].DealValue)
			count++
		}

		percentage := 0.0
		if total.IsPositive() {
			pct, _ := value.Div(total).Mul(decimal.NewFromInt(100)).Float64()
			percentage = pct
		}

		items = append(items, StageBreakdownItem{
			Stage:      stage.Name,
			Value:      value,
			Count:      count,
			Percentage: percentage,
		})
	}
	return items
}

// Forecast buckets open deals by expected closing month over the next
// `months` months, summing probability-weighted expected revenue per bucket.
// Deals closing before now or past the horizon are excluded.
func Forecast(deals []models.Deal, months int, now time.Time) []ForecastBucket {
	if months <= 0 {
		return []ForecastBucket{}
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	buckets := make([]ForecastBucket, months)
	for i := 0; i < months; i++ {
		buckets[i] = ForecastBucket{
			Month:         start.AddDate(0, i, 0).Format("2006-01"),
			WeightedValue: decimal.Zero,
		}
	}

	end := start.AddDate(0, months, 0)
	for i := range deals {
		d := &deals[i]
		if d.Status != models.DealStatusOpen {
			continue
		}
		closing := d.ExpectedClosingDate
		if closing.Before(start) || !closing.Before(end) {
			continue
		}
		idx := (closing.Year()-start.Year())*12 + int(closing.Month()) - int(start.Month())
		buckets[idx].WeightedValue = buckets[idx].WeightedValue.Add(d.ExpectedRevenue)
		buckets[idx].DealCount++
	}
	return buckets
}

// GetPipelineSummary fetches the company's live deals and stage catalog and
// aggregates them. It always reads fresh rows; there is no cache.
func (s *analyticsService) GetPipelineSummary(companyID uint, forecastMonths int) (*PipelineSummary, error) {
	stages, err := s.stageService.GetCompanyStages(companyID, false)
	if err != nil {
		return nil, err
	}

	var deals []models.Deal
	if err := s.db.Where("company_id = ?", companyID).Find(&deals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	openCount := 0
	for i := range deals {
		if deals[i].Status == models.DealStatusOpen {
			openCount++
		}
	}

	return &PipelineSummary{
		TotalPipelineValue: TotalOpenValue(deals),
		StageBreakdown:     StageBreakdown(deals, stages),
		Forecast:           Forecast(deals, forecastMonths, time.Now()),
		AverageDealSize:    AverageDealSize(deals),
		WinRate:            WinRate(deals),
		OpenDeals:          openCount,
	}, nil
}
