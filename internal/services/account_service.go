package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/models"
	"dealflow/internal/pagination"
)

// accountService handles customer account management.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates a customer organization record.
func (s *accountService) CreateAccount(companyID uint, name, industry, website string, annualRevenue *decimal.Decimal) (*models.Account, error) {
	account := &models.Account{
		CompanyID:     companyID,
		Name:          name,
		Industry:      industry,
		Website:       website,
		AnnualRevenue: annualRevenue,
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// GetCompanyAccounts returns a paginated list of the company's customer accounts.
func (s *accountService) GetCompanyAccounts(companyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	base := s.db.Model(&models.Account{}).Where("company_id = ?", companyID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Order("name ASC").Scopes(pagination.Paginate(page)).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID returns a customer account if it belongs to the company.
func (s *accountService) GetAccountByID(companyID, accountID uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.Preload("Contacts").
		Where("id = ? AND company_id = ?", accountID, companyID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates a customer account's fields.
func (s *accountService) UpdateAccount(companyID, accountID uint, name, industry, website string, annualRevenue *decimal.Decimal) (*models.Account, error) {
	account, err := s.GetAccountByID(companyID, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if industry != "" {
		updates["industry"] = industry
	}
	if website != "" {
		updates["website"] = website
	}
	if annualRevenue != nil {
		updates["annual_revenue"] = *annualRevenue
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return account, nil
}

// DeleteAccount soft-deletes a customer account.
func (s *accountService) DeleteAccount(companyID, accountID uint) error {
	account, err := s.GetAccountByID(companyID, accountID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(account).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
