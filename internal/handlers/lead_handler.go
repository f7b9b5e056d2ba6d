package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/models"
	"dealflow/internal/pagination"
	"dealflow/internal/services"
)

// LeadHandler handles lead-related requests.
type LeadHandler struct {
	leadService  services.LeadServicer
	auditService services.AuditServicer
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(leadService services.LeadServicer, auditService services.AuditServicer) *LeadHandler {
	return &LeadHandler{leadService: leadService, auditService: auditService}
}

// CreateLeadRequest represents the request payload for creating a lead
type CreateLeadRequest struct {
	Name   string `json:"name" binding:"required,min=1,max=200"`
	Email  string `json:"email" binding:"omitempty,email,max=255"`
	Phone  string `json:"phone" binding:"max=50"`
	Source string `json:"source" binding:"max=100"`
}

// UpdateLeadStatusRequest represents the request payload for moving a lead
// through its qualification states.
type UpdateLeadStatusRequest struct {
	Status models.LeadStatus `json:"status" binding:"required,lead_status"`
}

// ConvertLeadRequest represents the request payload for converting a lead
// into a deal.
type ConvertLeadRequest struct {
	DealName            string          `json:"deal_name" binding:"omitempty,min=1,max=200"`
	DealValue           decimal.Decimal `json:"deal_value" binding:"required"`
	Currency            string          `json:"currency" binding:"omitempty,iso4217"`
	ExpectedClosingDate string          `json:"expected_closing_date" binding:"required"`
}

// LeadResponse represents a lead in the response
type LeadResponse struct {
	ID     uint              `json:"id"`
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Status models.LeadStatus `json:"status"`
}

// CreateLead handles the creation of a new lead
// @Summary     Create a lead
// @Description Register a new lead for the company
// @Tags        leads
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateLeadRequest true "Lead details"
// @Success     201 {object} LeadResponse "Lead created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /leads [post]
func (h *LeadHandler) CreateLead(c *gin.Context) {
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

	var req CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	lead, err := h.leadService.CreateLead(companyID, userID, req.Name, req.Email, req.Phone, req.Source)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "CREATE_LEAD", "lead", lead.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "source": req.Source})

	c.JSON(http.StatusCreated, gin.H{"lead": lead})
}

// GetCompanyLeads handles the retrieval of leads for the company
// @Summary     Get leads
// @Description Get a paginated list of the company's leads with an optional status filter
// @Tags        leads
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       status    query string false "Filter by lead status"
// @Success     200 {object} pagination.PageResponse[models.Lead] "Paginated leads"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /leads [get]
func (h *LeadHandler) GetCompanyLeads(c *gin.Context) {
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

	var status *models.LeadStatus
	if raw := c.Query("status"); raw != "" {
		parsed := models.LeadStatus(raw)
		status = &parsed
	}

	result, err := h.leadService.GetCompanyLeads(companyID, page, status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLeadByID handles the retrieval of a specific lead
// @Summary     Get lead by ID
// @Description Get a specific lead by ID
// @Tags        leads
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Lead ID"
// @Success     200 {object} LeadResponse "Lead details"
// @Failure     400 {object} ErrorResponse "Invalid lead ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Lead not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /leads/{id} [get]
func (h *LeadHandler) GetLeadByID(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	leadID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	lead, err := h.leadService.GetLeadByID(companyID, leadID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

// UpdateLeadStatus handles moving a lead through its qualification states
// @Summary     Update lead status
// @Description Move a lead to a different qualification state. Conversion uses the convert endpoint.
// @Tags        leads
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Lead ID"
// @Param       request body UpdateLeadStatusRequest true "Target status"
// @Success     200 {object} LeadResponse "Updated lead"
// @Failure     400 {object} ErrorResponse "Invalid input or lead ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Lead not found"
// @Failure     409 {object} ErrorResponse "Lead already converted"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /leads/{id}/status [put]
func (h *LeadHandler) UpdateLeadStatus(c *gin.Context) {
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

	leadID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	lead, err := h.leadService.UpdateLeadStatus(companyID, leadID, req.Status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "UPDATE_LEAD_STATUS", "lead", leadID, c.ClientIP(),
		map[string]interface{}{"status": string(req.Status)})

	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

// ConvertLead handles converting a lead into a contact and a deal
// @Summary     Convert lead
// @Description Convert a lead into a contact and a deal seeded into the first open pipeline stage. A lead converts at most once.
// @Tags        leads
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Lead ID"
// @Param       request body ConvertLeadRequest true "Deal parameters"
// @Success     201 {object} DealResponse "Deal created from lead"
// @Failure     400 {object} ErrorResponse "Invalid input or lead ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Lead not found"
// @Failure     409 {object} ErrorResponse "Lead already converted"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /leads/{id}/convert [post]
func (h *LeadHandler) ConvertLead(c *gin.Context) {
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

	leadID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ConvertLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	closingDate, err := parseDate(req.ExpectedClosingDate)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid expected_closing_date format"))
		return
	}

	deal, err := h.leadService.ConvertLead(companyID, leadID, userID, services.ConvertLeadInput{
		DealName:            req.DealName,
		DealValue:           req.DealValue,
		Currency:            req.Currency,
		ExpectedClosingDate: closingDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "CONVERT_LEAD", "lead", leadID, c.ClientIP(),
		map[string]interface{}{"deal_id": deal.ID})

	c.JSON(http.StatusCreated, gin.H{"deal": deal})
}

// DeleteLead handles deleting a lead
// @Summary     Delete lead
// @Description Delete a lead by ID
// @Tags        leads
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Lead ID"
// @Success     200 {object} MessageResponse "Lead deleted"
// @Failure     400 {object} ErrorResponse "Invalid lead ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Lead not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /leads/{id} [delete]
func (h *LeadHandler) DeleteLead(c *gin.Context) {
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

	leadID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.leadService.DeleteLead(companyID, leadID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "DELETE_LEAD", "lead", leadID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Lead deleted successfully"})
}
