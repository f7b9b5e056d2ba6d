package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/pagination"
	"dealflow/internal/services"
)

// ContactHandler handles contact-related requests.
type ContactHandler struct {
	contactService services.ContactServicer
	auditService   services.AuditServicer
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(contactService services.ContactServicer, auditService services.AuditServicer) *ContactHandler {
	return &ContactHandler{contactService: contactService, auditService: auditService}
}

// CreateContactRequest represents the request payload for creating a contact
type CreateContactRequest struct {
	AccountID *uint  `json:"account_id"`
	FirstName string `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Email     string `json:"email" binding:"omitempty,email,max=255"`
	Phone     string `json:"phone" binding:"max=50"`
	Title     string `json:"title" binding:"max=100"`
}

// UpdateContactRequest represents the request payload for updating a contact.
// Empty strings leave fields untouched.
type UpdateContactRequest struct {
	FirstName string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Email     string `json:"email" binding:"omitempty,email,max=255"`
	Phone     string `json:"phone" binding:"max=50"`
	Title     string `json:"title" binding:"max=100"`
}

// ContactResponse represents a contact in the response
type ContactResponse struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// CreateContact handles the creation of a new contact
// @Summary     Create a contact
// @Description Create a new contact, optionally attached to a customer account
// @Tags        contacts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateContactRequest true "Contact details"
// @Success     201 {object} ContactResponse "Contact created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contacts [post]
func (h *ContactHandler) CreateContact(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	companyID, err := getCompanyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	contact, err := h.contactService.CreateContact(companyID, req.AccountID,
		req.FirstName, req.LastName, req.Email, req.Phone, req.Title)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "CREATE_CONTACT", "contact", contact.ID, c.ClientIP(),
		map[string]interface{}{"first_name": req.FirstName, "last_name": req.LastName})

	c.JSON(http.StatusCreated, gin.H{"contact": contact})
}

// GetCompanyContacts handles the retrieval of contacts for the company
// @Summary     Get contacts
// @Description Get a paginated list of the company's contacts
// @Tags        contacts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Contact] "Paginated contacts"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contacts [get]
func (h *ContactHandler) GetCompanyContacts(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.contactService.GetCompanyContacts(companyID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetContactByID handles the retrieval of a specific contact
// @Summary     Get contact by ID
// @Description Get a specific contact by ID
// @Tags        contacts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Contact ID"
// @Success     200 {object} ContactResponse "Contact details"
// @Failure     400 {object} ErrorResponse "Invalid contact ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Contact not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contacts/{id} [get]
func (h *ContactHandler) GetContactByID(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	contactID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	contact, err := h.contactService.GetContactByID(companyID, contactID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contact": contact})
}

// UpdateContact handles updating a contact
// @Summary     Update contact
// @Description Update an existing contact's fields
// @Tags        contacts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Contact ID"
// @Param       request body UpdateContactRequest true "Updated contact details"
// @Success     200 {object} ContactResponse "Updated contact"
// @Failure     400 {object} ErrorResponse "Invalid input or contact ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Contact not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contacts/{id} [put]
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	companyID, err := getCompanyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	contactID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	contact, err := h.contactService.UpdateContact(companyID, contactID,
		req.FirstName, req.LastName, req.Email, req.Phone, req.Title)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "UPDATE_CONTACT", "contact", contactID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"contact": contact})
}

// DeleteContact handles deleting a contact
// @Summary     Delete contact
// @Description Delete a contact by ID
// @Tags        contacts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Contact ID"
// @Success     200 {object} MessageResponse "Contact deleted"
// @Failure     400 {object} ErrorResponse "Invalid contact ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Contact not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contacts/{id} [delete]
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	companyID, err := getCompanyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	contactID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.contactService.DeleteContact(companyID, contactID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "DELETE_CONTACT", "contact", contactID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Contact deleted successfully"})
}
