// Package derivation maintains the derived fields on a deal: expected
// revenue, financial totals, status, and stage-transition timestamps. All
// functions are pure mutations of an in-memory deal; persistence is the
// caller's responsibility. The stage catalog is always passed in explicitly
// so the rules stay independently testable.
package derivation

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dealflow/internal/models"
)

// FallbackProbability is applied when a deal moves to a stage name that is
// not in the company's catalog. Unknown stages are valid custom stages, not
// errors.
const FallbackProbability = 10

// assumedCostRatio is used for margin when a line item has no real cost
// basis: cost is taken as 70% of line revenue.
var assumedCostRatio = decimal.NewFromFloat(0.70)

var oneHundred = decimal.NewFromInt(100)

// ExpectedRevenue returns value * probability / 100.
func ExpectedRevenue(value decimal.Decimal, probability int) decimal.Decimal {
	return value.Mul(decimal.NewFromInt(int64(probability))).Div(oneHundred)
}

// StatusFromStageName infers a deal status from a free-form stage name.
// "won" is checked before "lost". Returns empty string when the name implies
// neither, meaning the caller should leave the status untouched.
func StatusFromStageName(name string) models.DealStatus {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "won") {
		return models.DealStatusWon
	}
	if strings.Contains(lower, "lost") {
		return models.DealStatusLost
	}
	return ""
}

// findStage looks up a stage by case-insensitive name.
func findStage(catalog []models.PipelineStage, name string) *models.PipelineStage {
	for i := range catalog {
		if strings.EqualFold(catalog[i].Name, name) {
			return &catalog[i]
		}
	}
	return nil
}

// ApplyStageChange moves a deal to the named stage and rederives probability,
// expected revenue, status, and the stage-transition timestamp.
//
// For a cataloged stage the probability is the stage default and the status
// follows the stage's explicit category. For an unknown name the stage is
// accepted as-is: status falls back to substring inference on the name, and
// probability is 100 for an inferred win, 0 for an inferred loss, and
// FallbackProbability otherwise.
//
// Calling this twice with the same stage yields the same probability and
// expected revenue both times.
func ApplyStageChange(deal *models.Deal, newStageName string, catalog []models.PipelineStage, now time.Time) {
	deal.PipelineStage = newStageName
	deal.StageChangedAt = &now

	if stage := findStage(catalog, newStageName); stage != nil {
		deal.Probability = stage.Probability
		switch stage.Category {
		case models.StageCategoryWon:
			setClosedStatus(deal, models.DealStatusWon, now)
		case models.StageCategoryLost:
			setClosedStatus(deal, models.DealStatusLost, now)
		}
	} else {
		switch StatusFromStageName(newStageName) {
		case models.DealStatusWon:
			deal.Probability = 100
			setClosedStatus(deal, models.DealStatusWon, now)
		case models.DealStatusLost:
			deal.Probability = 0
			setClosedStatus(deal, models.DealStatusLost, now)
		default:
			deal.Probability = FallbackProbability
		}
	}

	deal.ExpectedRevenue = ExpectedRevenue(deal.DealValue, deal.Probability)
}

// ApplyStatusChange sets the deal status without touching the pipeline
// stage. The first transition to won or lost stamps the actual closing date;
// reopening clears it.
func ApplyStatusChange(deal *models.Deal, newStatus models.DealStatus, now time.Time) {
	if newStatus == models.DealStatusWon || newStatus == models.DealStatusLost {
		setClosedStatus(deal, newStatus, now)
		return
	}
	deal.Status = newStatus
	if newStatus == models.DealStatusOpen {
		deal.ActualClosingDate = nil
	}
}

func setClosedStatus(deal *models.Deal, status models.DealStatus, now time.Time) {
	deal.Status = status
	if deal.ActualClosingDate == nil {
		deal.ActualClosingDate = &now
	}
}

// LineTotal computes a line item's total: unitPrice*quantity - discount + tax.
func LineTotal(quantity, unitPrice, discount, tax decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(quantity).Sub(discount).Add(tax)
}

// RecomputeFinancials sums the already-materialized line totals into the
// deal's financials aggregate. Margin uses the line's real unit cost when one
// is present and the assumed 70%-cost heuristic otherwise.
func RecomputeFinancials(deal *models.Deal) {
	fin := models.DealFinancials{
		Subtotal:         decimal.Zero,
		DiscountTotal:    decimal.Zero,
		TaxTotal:         decimal.Zero,
		GrandTotal:       decimal.Zero,
		Margin:           decimal.Zero,
		MarginPercentage: decimal.Zero,
	}

	for _, p := range deal.Products {
		revenue := p.UnitPrice.Mul(p.Quantity)
		fin.Subtotal = fin.Subtotal.Add(revenue)
		fin.DiscountTotal = fin.DiscountTotal.Add(p.Discount)
		fin.TaxTotal = fin.TaxTotal.Add(p.Tax)
		fin.GrandTotal = fin.GrandTotal.Add(p.TotalPrice)

		var cost decimal.Decimal
		if p.UnitCost != nil {
			cost = p.UnitCost.Mul(p.Quantity)
		} else {
			cost = revenue.Mul(assumedCostRatio)
		}
		fin.Margin = fin.Margin.Add(revenue.Sub(cost))
	}

	if fin.GrandTotal.IsPositive() {
		fin.MarginPercentage = fin.Margin.Div(fin.GrandTotal).Mul(oneHundred)
	}

	deal.Financials = fin
}

// SeedFromStage initializes a new deal's stage fields. When the deal has no
// stage yet it defaults to the first active open stage in catalog order.
// Probability is seeded from the stage default, with the same unknown-stage
// policy as ApplyStageChange.
func SeedFromStage(deal *models.Deal, catalog []models.PipelineStage, now time.Time) {
	if deal.PipelineStage == "" {
		if first := firstOpenStage(catalog); first != nil {
			deal.PipelineStage = first.Name
		}
	}
	ApplyStageChange(deal, deal.PipelineStage, catalog, now)
}

func firstOpenStage(catalog []models.PipelineStage) *models.PipelineStage {
	var best *models.PipelineStage
	for i := range catalog {
		s := &catalog[i]
		if !s.IsActive || s.Category != models.StageCategoryOpen {
			continue
		}
		if best == nil || s.DisplayOrder < best.DisplayOrder {
			best = s
		}
	}
	return best
}
