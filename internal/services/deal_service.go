package services

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dealflow/internal/derivation"
	apperrors "dealflow/internal/errors"
	"dealflow/internal/models"
	"dealflow/internal/pagination"
)

// dealService handles deal lifecycle logic. Every derived field is
// recomputed through the derivation package at the mutation site; writes are
// compare-and-swap on the deal's version column so concurrent editors get a
// conflict instead of silently losing updates.
type dealService struct {
	db           *gorm.DB
	stageService StageServicer
}

// NewDealService creates a new DealServicer.
func NewDealService(db *gorm.DB, stageService StageServicer) DealServicer {
	return &dealService{db: db, stageService: stageService}
}

// parseTags converts a comma-separated tag string into a JSON list.
// Empty input yields a nil column.
func parseTags(raw string) (datatypes.JSON, error) {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// buildProducts materializes line totals for submitted product inputs.
func buildProducts(items []ProductInput) []models.DealProduct {
	products := make([]models.DealProduct, 0, len(items))
	for _, item := range items {
		products = append(products, models.DealProduct{
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			UnitCost:   item.UnitCost,
			Discount:   item.Discount,
			Tax:        item.Tax,
			TotalPrice: derivation.LineTotal(item.Quantity, item.UnitPrice, item.Discount, item.Tax),
		})
	}
	return products
}

// CreateDeal creates a deal for the company. The stage defaults to the first
// open stage in the catalog when none is given; probability, expected
// revenue, and financials are derived before the insert.
func (s *dealService) CreateDeal(companyID, ownerID uint, input CreateDealInput) (*models.Deal, error) {
	if input.DealValue.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "deal value must not be negative")
	}

	catalog, err := s.stageService.GetCompanyStages(companyID, false)
	if err != nil {
		return nil, err
	}

	tags, err := parseTags(input.Tags)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	deal := &models.Deal{
		CompanyID:           companyID,
		OwnerID:             ownerID,
		AssignedTo:          input.AssignedTo,
		AccountID:           input.AccountID,
		ContactID:           input.ContactID,
		LeadID:              input.LeadID,
		Name:                input.Name,
		DealValue:           input.DealValue,
		Currency:            currency,
		PipelineStage:       input.PipelineStage,
		Status:              models.DealStatusOpen,
		ExpectedClosingDate: input.ExpectedClosingDate,
		Description:         input.Description,
		Notes:               input.Notes,
		Tags:                tags,
		Products:            buildProducts(input.Products),
		Version:             1,
	}

	derivation.SeedFromStage(deal, catalog, time.Now())
	derivation.RecomputeFinancials(deal)

	if err := s.db.Create(deal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return deal, nil
}

// GetCompanyDeals returns a paginated list of the company's deals with
// optional filters.
func (s *dealService) GetCompanyDeals(companyID uint, page pagination.PageRequest, filter DealFilter) (*pagination.PageResponse[models.Deal], error) {
	page.Defaults()

	base := s.db.Model(&models.Deal{}).Where("company_id = ?", companyID)
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}
	if filter.Stage != nil {
		base = base.Where("pipeline_stage = ?", *filter.Stage)
	}
	if filter.AssignedTo != nil {
		base = base.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.MinValue != nil {
		base = base.Where("deal_value >= ?", *filter.MinValue)
	}
	if filter.MaxValue != nil {
		base = base.Where("deal_value <= ?", *filter.MaxValue)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var deals []models.Deal
	if err := base.Preload("Products").Order("created_at DESC").
		Scopes(pagination.Paginate(page)).Find(&deals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(deals, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetDealByID returns a deal with its line items if it belongs to the company.
func (s *dealService) GetDealByID(companyID, dealID uint) (*models.Deal, error) {
	var deal models.Deal
	if err := s.db.Preload("Products").
		Where("id = ? AND company_id = ?", dealID, companyID).
		First(&deal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDealNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &deal, nil
}

// casUpdate applies updates to the deal iff its version still matches
// expected, bumping the version in the same statement. A zero-row result
// means a concurrent writer got there first.
func (s *dealService) casUpdate(tx *gorm.DB, deal *models.Deal, expected uint, updates map[string]interface{}) error {
	updates["version"] = expected + 1
	res := tx.Model(&models.Deal{}).
		Where("id = ? AND company_id = ? AND version = ?", deal.ID, deal.CompanyID, expected).
		Updates(updates)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrDealModified
	}
	deal.Version = expected + 1
	return nil
}

// checkVersion validates a client-supplied version token. Zero means the
// client did not send one and the currently loaded version is used.
func checkVersion(deal *models.Deal, requested uint) (uint, error) {
	if requested == 0 {
		return deal.Version, nil
	}
	if requested != deal.Version {
		return 0, apperrors.ErrDealModified
	}
	return requested, nil
}

// UpdateDeal applies field updates and rederives expected revenue when the
// value changed.
func (s *dealService) UpdateDeal(companyID, dealID uint, input UpdateDealInput) (*models.Deal, error) {
	deal, err := s.GetDealByID(companyID, dealID)
	if err != nil {
		return nil, err
	}
	expected, err := checkVersion(deal, input.Version)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if input.Name != "" {
		updates["name"] = input.Name
		deal.Name = input.Name
	}
	if input.DealValue != nil {
		if input.DealValue.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "deal value must not be negative")
		}
		deal.DealValue = *input.DealValue
		deal.ExpectedRevenue = derivation.ExpectedRevenue(deal.DealValue, deal.Probability)
		updates["deal_value"] = deal.DealValue
		updates["expected_revenue"] = deal.ExpectedRevenue
	}
	if input.Currency != "" {
		updates["currency"] = input.Currency
		deal.Currency = input.Currency
	}
	if input.ExpectedClosingDate != nil {
		updates["expected_closing_date"] = *input.ExpectedClosingDate
		deal.ExpectedClosingDate = *input.ExpectedClosingDate
	}
	if input.AssignedTo != nil {
		updates["assigned_to"] = *input.AssignedTo
		deal.AssignedTo = input.AssignedTo
	}
	if input.Tags != nil {
		tags, err := parseTags(*input.Tags)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updates["tags"] = tags
		deal.Tags = tags
	}
	if input.Description != nil {
		updates["description"] = *input.Description
		deal.Description = *input.Description
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
		deal.Notes = *input.Notes
	}

	if len(updates) == 0 {
		return deal, nil
	}

	if err := s.casUpdate(s.db, deal, expected, updates); err != nil {
		return nil, err
	}
	return deal, nil
}

// ChangeStage moves a deal to another stage, rederiving probability,
// expected revenue, status, and the transition timestamp. Unknown stage
// names are accepted as custom stages.
func (s *dealService) ChangeStage(companyID, dealID uint, newStage string, version uint) (*models.Deal, error) {
	deal, err := s.GetDealByID(companyID, dealID)
	if err != nil {
		return nil, err
	}
	expected, err := checkVersion(deal, version)
	if err != nil {
		return nil, err
	}

	catalog, err := s.stageService.GetCompanyStages(companyID, false)
	if err != nil {
		return nil, err
	}

	derivation.ApplyStageChange(deal, newStage, catalog, time.Now())

	updates := map[string]interface{}{
		"pipeline_stage":      deal.PipelineStage,
		"probability":         deal.Probability,
		"expected_revenue":    deal.ExpectedRevenue,
		"status":              deal.Status,
		"stage_changed_at":    deal.StageChangedAt,
		"actual_closing_date": deal.ActualClosingDate,
	}
	if err := s.casUpdate(s.db, deal, expected, updates); err != nil {
		return nil, err
	}
	return deal, nil
}

// ChangeStatus sets the deal status. Stage and status are independent axes;
// the stage label is left untouched.
func (s *dealService) ChangeStatus(companyID, dealID uint, status models.DealStatus, version uint) (*models.Deal, error) {
	deal, err := s.GetDealByID(companyID, dealID)
	if err != nil {
		return nil, err
	}
	expected, err := checkVersion(deal, version)
	if err != nil {
		return nil, err
	}

	derivation.ApplyStatusChange(deal, status, time.Now())

	updates := map[string]interface{}{
		"status":              deal.Status,
		"actual_closing_date": deal.ActualClosingDate,
	}
	if err := s.casUpdate(s.db, deal, expected, updates); err != nil {
		return nil, err
	}
	return deal, nil
}

// SetProducts replaces the deal's line items and recomputes the financials
// aggregate.
func (s *dealService) SetProducts(companyID, dealID uint, items []ProductInput, version uint) (*models.Deal, error) {
	deal, err := s.GetDealByID(companyID, dealID)
	if err != nil {
		return nil, err
	}
	expected, err := checkVersion(deal, version)
	if err != nil {
		return nil, err
	}

	products := buildProducts(items)
	for i := range products {
		products[i].DealID = deal.ID
	}
	deal.Products = products
	derivation.RecomputeFinancials(deal)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("deal_id = ?", deal.ID).Delete(&models.DealProduct{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(deal.Products) > 0 {
			if err := tx.Create(&deal.Products).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return s.casUpdate(tx, deal, expected, map[string]interface{}{
			"fin_subtotal":          deal.Financials.Subtotal,
			"fin_discount_total":    deal.Financials.DiscountTotal,
			"fin_tax_total":         deal.Financials.TaxTotal,
			"fin_grand_total":       deal.Financials.GrandTotal,
			"fin_margin":            deal.Financials.Margin,
			"fin_margin_percentage": deal.Financials.MarginPercentage,
		})
	})
	if err != nil {
		return nil, err
	}
	return deal, nil
}

// DeleteDeal removes a deal and its line items.
func (s *dealService) DeleteDeal(companyID, dealID uint) error {
	deal, err := s.GetDealByID(companyID, dealID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("deal_id = ?", deal.ID).Delete(&models.DealProduct{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(deal).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
