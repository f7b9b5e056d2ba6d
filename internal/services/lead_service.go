package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/models"
	"dealflow/internal/pagination"
)

// leadService handles lead management and conversion.
type leadService struct {
	db          *gorm.DB
	dealService DealServicer
}

// NewLeadService creates a new LeadServicer.
func NewLeadService(db *gorm.DB, dealService DealServicer) LeadServicer {
	return &leadService{db: db, dealService: dealService}
}

// CreateLead registers a new lead for the company.
func (s *leadService) CreateLead(companyID, ownerID uint, name, email, phone, source string) (*models.Lead, error) {
	lead := &models.Lead{
		CompanyID: companyID,
		OwnerID:   ownerID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Source:    source,
		Status:    models.LeadStatusNew,
	}
	if err := s.db.Create(lead).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return lead, nil
}

// GetCompanyLeads returns a paginated list of leads with an optional status filter.
func (s *leadService) GetCompanyLeads(companyID uint, page pagination.PageRequest, status *models.LeadStatus) (*pagination.PageResponse[models.Lead], error) {
	page.Defaults()

	base := s.db.Model(&models.Lead{}).Where("company_id = ?", companyID)
	if status != nil {
		base = base.Where("status = ?", *status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var leads []models.Lead
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&leads).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(leads, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetLeadByID returns a lead if it belongs to the company.
func (s *leadService) GetLeadByID(companyID, leadID uint) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.Where("id = ? AND company_id = ?", leadID, companyID).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrLeadNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &lead, nil
}

// UpdateLeadStatus moves a lead through its qualification states. Conversion
// only happens through ConvertLead.
func (s *leadService) UpdateLeadStatus(companyID, leadID uint, status models.LeadStatus) (*models.Lead, error) {
	lead, err := s.GetLeadByID(companyID, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status == models.LeadStatusConverted {
		return nil, apperrors.ErrLeadAlreadyConverted
	}
	if status == models.LeadStatusConverted {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "use the convert endpoint to convert a lead")
	}

	if err := s.db.Model(lead).Update("status", status).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return lead, nil
}

// ConvertLead creates a contact and a deal from the lead and marks the lead
// converted. A lead converts at most once.
func (s *leadService) ConvertLead(companyID, leadID, ownerID uint, input ConvertLeadInput) (*models.Deal, error) {
	lead, err := s.GetLeadByID(companyID, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status == models.LeadStatusConverted {
		return nil, apperrors.ErrLeadAlreadyConverted
	}

	contact := &models.Contact{
		CompanyID: companyID,
		FirstName: lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
	}
	if err := s.db.Create(contact).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	dealName := input.DealName
	if dealName == "" {
		dealName = lead.Name
	}

	deal, err := s.dealService.CreateDeal(companyID, ownerID, CreateDealInput{
		Name:                dealName,
		DealValue:           input.DealValue,
		Currency:            input.Currency,
		ExpectedClosingDate: input.ExpectedClosingDate,
		ContactID:           &contact.ID,
		LeadID:              &lead.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(lead).Updates(map[string]interface{}{
		"status":            models.LeadStatusConverted,
		"converted_deal_id": deal.ID,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return deal, nil
}

// DeleteLead soft-deletes a lead.
func (s *leadService) DeleteLead(companyID, leadID uint) error {
	lead, err := s.GetLeadByID(companyID, leadID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(lead).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
