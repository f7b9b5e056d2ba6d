package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/models"
	"dealflow/internal/pagination"
)

// contactService handles contact management.
type contactService struct {
	db *gorm.DB
}

// NewContactService creates a new ContactServicer.
func NewContactService(db *gorm.DB) ContactServicer {
	return &contactService{db: db}
}

// CreateContact creates a contact, optionally attached to a customer account.
func (s *contactService) CreateContact(companyID uint, accountID *uint, firstName, lastName, email, phone, title string) (*models.Contact, error) {
	if accountID != nil {
		var count int64
		s.db.Model(&models.Account{}).Where("id = ? AND company_id = ?", *accountID, companyID).Count(&count)
		if count == 0 {
			return nil, apperrors.ErrAccountNotFound
		}
	}

	contact := &models.Contact{
		CompanyID: companyID,
		AccountID: accountID,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     phone,
		Title:     title,
	}
	if err := s.db.Create(contact).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return contact, nil
}

// GetCompanyContacts returns a paginated list of the company's contacts.
func (s *contactService) GetCompanyContacts(companyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Contact], error) {
	page.Defaults()

	base := s.db.Model(&models.Contact{}).Where("company_id = ?", companyID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var contacts []models.Contact
	if err := base.Order("last_name ASC, first_name ASC").
		Scopes(pagination.Paginate(page)).Find(&contacts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(contacts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetContactByID returns a contact if it belongs to the company.
func (s *contactService) GetContactByID(companyID, contactID uint) (*models.Contact, error) {
	var contact models.Contact
	if err := s.db.Where("id = ? AND company_id = ?", contactID, companyID).First(&contact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrContactNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &contact, nil
}

// UpdateContact updates a contact's fields. Empty strings leave fields untouched.
func (s *contactService) UpdateContact(companyID, contactID uint, firstName, lastName, email, phone, title string) (*models.Contact, error) {
	contact, err := s.GetContactByID(companyID, contactID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if firstName != "" {
		updates["first_name"] = firstName
	}
	if lastName != "" {
		updates["last_name"] = lastName
	}
	if email != "" {
		updates["email"] = email
	}
	if phone != "" {
		updates["phone"] = phone
	}
	if title != "" {
		updates["title"] = title
	}

	if len(updates) > 0 {
		if err := s.db.Model(contact).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return contact, nil
}

// DeleteContact soft-deletes a contact.
func (s *contactService) DeleteContact(companyID, contactID uint) error {
	contact, err := s.GetContactByID(companyID, contactID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(contact).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
