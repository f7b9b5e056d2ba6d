package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/models"
	"dealflow/internal/pagination"
	"dealflow/internal/services"
)

// DealHandler handles deal-related requests.
type DealHandler struct {
	dealService  services.DealServicer
	auditService services.AuditServicer
}

// NewDealHandler creates a new DealHandler.
func NewDealHandler(dealService services.DealServicer, auditService services.AuditServicer) *DealHandler {
	return &DealHandler{dealService: dealService, auditService: auditService}
}

// ProductRequest represents one line item in a deal request. The line total
// is computed server-side and ignored if submitted.
type ProductRequest struct {
	Name      string           `json:"name" binding:"required,min=1,max=200"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal  `json:"unit_price" binding:"required"`
	UnitCost  *decimal.Decimal `json:"unit_cost"`
	Discount  decimal.Decimal  `json:"discount"`
	Tax       decimal.Decimal  `json:"tax"`
}

// CreateDealRequest represents the request payload for creating a deal
type CreateDealRequest struct {
	Name                string           `json:"name" binding:"required,min=1,max=200"`
	DealValue           decimal.Decimal  `json:"deal_value" binding:"required"`
	Currency            string           `json:"currency" binding:"omitempty,iso4217"`
	PipelineStage       string           `json:"pipeline_stage" binding:"max=100"`
	ExpectedClosingDate string           `json:"expected_closing_date" binding:"required"`
	AssignedTo          *uint            `json:"assigned_to"`
	AccountID           *uint            `json:"account_id"`
	ContactID           *uint            `json:"contact_id"`
	Tags                string           `json:"tags" binding:"max=500"`
	Description         string           `json:"description" binding:"max=2000"`
	Notes               string           `json:"notes" binding:"max=5000"`
	Products            []ProductRequest `json:"products" binding:"omitempty,dive"`
}

// UpdateDealRequest represents the request payload for updating a deal.
// Nil pointers leave fields untouched. Version, when provided, must match the
// stored record or the update is rejected with a conflict.
type UpdateDealRequest struct {
	Name                string           `json:"name" binding:"omitempty,min=1,max=200"`
	DealValue           *decimal.Decimal `json:"deal_value"`
	Currency            string           `json:"currency" binding:"omitempty,iso4217"`
	ExpectedClosingDate *string          `json:"expected_closing_date"`
	AssignedTo          *uint            `json:"assigned_to"`
	Tags                *string          `json:"tags" binding:"omitempty,max=500"`
	Description         *string          `json:"description" binding:"omitempty,max=2000"`
	Notes               *string          `json:"notes" binding:"omitempty,max=5000"`
	Version             uint             `json:"version"`
}

// ChangeStageRequest represents the request payload for moving a deal to a
// different pipeline stage.
type ChangeStageRequest struct {
	PipelineStage string `json:"pipeline_stage" binding:"required,min=1,max=100"`
	Version       uint   `json:"version"`
}

// ChangeStatusRequest represents the request payload for an explicit status
// override.
type ChangeStatusRequest struct {
	Status  models.DealStatus `json:"status" binding:"required,deal_status"`
	Version uint              `json:"version"`
}

// SetProductsRequest represents the request payload for replacing a deal's
// line items.
type SetProductsRequest struct {
	Products []ProductRequest `json:"products" binding:"required,dive"`
	Version  uint             `json:"version"`
}

// DealResponse represents a deal in the response
type DealResponse struct {
	ID              uint              `json:"id"`
	ReferenceID     string            `json:"reference_id"`
	Name            string            `json:"name"`
	DealValue       decimal.Decimal   `json:"deal_value"`
	Currency        string            `json:"currency"`
	Probability     int               `json:"probability"`
	ExpectedRevenue decimal.Decimal   `json:"expected_revenue"`
	PipelineStage   string            `json:"pipeline_stage"`
	Status          models.DealStatus `json:"status"`
	Version         uint              `json:"version"`
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", value)
	}
	return parsed, err
}

func toProductInputs(items []ProductRequest) []services.ProductInput {
	inputs := make([]services.ProductInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, services.ProductInput{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			UnitCost:  item.UnitCost,
			Discount:  item.Discount,
			Tax:       item.Tax,
		})
	}
	return inputs
}

// CreateDeal handles the creation of a new deal
// @Summary     Create a deal
// @Description Create a new deal. Probability, status, and expected revenue are derived from the pipeline stage; omitting the stage places the deal in the first open stage of the catalog.
// @Tags        deals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateDealRequest true "Deal details"
// @Success     201 {object} DealResponse "Deal created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /deals [post]
func (h *DealHandler) CreateDeal(c *gin.Context) {
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

	var req CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	closingDate, err := parseDate(req.ExpectedClosingDate)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid expected_closing_date format"))
		return
	}

	deal, err := h.dealService.CreateDeal(companyID, userID, services.CreateDealInput{
		Name:                req.Name,
		DealValue:           req.DealValue,
		Currency:            req.Currency,
		PipelineStage:       req.PipelineStage,
		ExpectedClosingDate: closingDate,
		AssignedTo:          req.AssignedTo,
		AccountID:           req.AccountID,
		ContactID:           req.ContactID,
		Tags:                req.Tags,
		Description:         req.Description,
		Notes:               req.Notes,
		Products:            toProductInputs(req.Products),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "CREATE_DEAL", "deal", deal.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "deal_value": req.DealValue.String(), "stage": deal.PipelineStage})

	c.JSON(http.StatusCreated, gin.H{"deal": deal})
}

// GetCompanyDeals handles the retrieval of deals for the company
// @Summary     Get deals
// @Description Get a paginated, filterable list of the company's deals
// @Tags        deals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Param       status      query string false "Filter by status (open/won/lost/abandoned)"
// @Param       stage       query string false "Filter by pipeline stage name"
// @Param       assigned_to query int    false "Filter by assigned user ID"
// @Param       min_value   query number false "Minimum deal value"
// @Param       max_value   query number false "Maximum deal value"
// @Success     200 {object} pagination.PageResponse[models.Deal] "Paginated deals"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /deals [get]
func (h *DealHandler) GetCompanyDeals(c *gin.Context) {
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

	var filter services.DealFilter
	if raw := c.Query("status"); raw != "" {
		status := models.DealStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("stage"); raw != "" {
		filter.Stage = &raw
	}
	if raw := c.Query("assigned_to"); raw != "" {
		assignedTo, parseErr := parseQueryUint(raw)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid assigned_to"))
			return
		}
		filter.AssignedTo = &assignedTo
	}
	if raw := c.Query("min_value"); raw != "" {
		minValue, parseErr := decimal.NewFromString(raw)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid min_value"))
			return
		}
		filter.MinValue = &minValue
	}
	if raw := c.Query("max_value"); raw != "" {
		maxValue, parseErr := decimal.NewFromString(raw)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid max_value"))
			return
		}
		filter.MaxValue = &maxValue
	}

	result, err := h.dealService.GetCompanyDeals(companyID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetDealByID handles the retrieval of a specific deal
// @Summary     Get deal by ID
// @Description Get a specific deal with its line items
// @Tags        deals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Deal ID"
// @Success     200 {object} DealResponse "Deal details"
// @Failure     400 {object} ErrorResponse "Invalid deal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Deal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /deals/{id} [get]
func (h *DealHandler) GetDealByID(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	dealID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	deal, err := h.dealService.GetDealByID(companyID, dealID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deal": deal})
}

// UpdateDeal handles updating a deal's descriptive fields
// @Summary     Update deal
// @Description Update a deal's descriptive fields. Changing the deal value rederives the expected revenue. Stage and status changes use their dedicated endpoints.
// @Tags        deals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Deal ID"
// @Param       request body UpdateDealRequest true "Updated deal details"
// @Success     200 {object} DealResponse "Updated deal"
// @Failure     400 {object} ErrorResponse "Invalid input or deal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Deal not found"
// @Failure     409 {object} ErrorResponse "Deal modified by another request"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /deals/{id} [put]
func (h *DealHandler) UpdateDeal(c *gin.Context) {
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

	dealID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.UpdateDealInput{
		Name:        req.Name,
		DealValue:   req.DealValue,
		Currency:    req.Currency,
		AssignedTo:  req.AssignedTo,
		Tags:        req.Tags,
		Description: req.Description,
		Notes:       req.Notes,
		Version:     req.Version,
	}

	if req.ExpectedClosingDate != nil && *req.ExpectedClosingDate != "" {
		parsed, parseErr := parseDate(*req.ExpectedClosingDate)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid expected_closing_date format"))
			return
		}
		input.ExpectedClosingDate = &parsed
	}

	deal, err := h.dealService.UpdateDeal(companyID, dealID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "UPDATE_DEAL", "deal", dealID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"deal": deal})
}

// ChangeStage handles moving a deal to a different pipeline stage
// @Summary     Change deal stage
// @Description Move a deal to a different pipeline stage. Probability, status, and expected revenue are rederived; closing into a terminal stage stamps the actual closing date.
// @Tags        deals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Deal ID"
// @Param       request body ChangeStageRequest true "Target stage"
// @Success     200 {object} DealResponse "Deal with rederived fields"
// @Failure     400 {object} ErrorResponse "Invalid input or deal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Deal not found"
// @Failure     409 {object} ErrorResponse "Deal modified by another request"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /deals/{id}/stage [put]
func (h *DealHandler) ChangeStage(c *gin.Context) {
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

	dealID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ChangeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	deal, err := h.dealService.ChangeStage(companyID, dealID, req.PipelineStage, req.Version)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "CHANGE_DEAL_STAGE", "deal", dealID, c.ClientIP(),
		map[string]interface{}{"stage": req.PipelineStage})

	c.JSON(http.StatusOK, gin.H{"deal": deal})
}

// ChangeStatus handles an explicit status override on a deal
// @Summary     Change deal status
// @Description Override a deal's status directly. Winning or losing stamps the actual closing date; reopening clears it.
// @Tags        deals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Deal ID"
// @Param       request body ChangeStatusRequest true "Target status"
// @Success     200 {object} DealResponse "Deal with updated status"
// @Failure     400 {object} ErrorResponse "Invalid input or deal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Deal not found"
// @Failure     409 {object} ErrorResponse "Deal modified by another request"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /deals/{id}/status [put]
func (h *DealHandler) ChangeStatus(c *gin.Context) {
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

	dealID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	deal, err := h.dealService.ChangeStatus(companyID, dealID, req.Status, req.Version)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "CHANGE_DEAL_STATUS", "deal", dealID, c.ClientIP(),
		map[string]interface{}{"status": string(req.Status)})

	c.JSON(http.StatusOK, gin.H{"deal": deal})
}

// SetProducts handles replacing a deal's line items
// @Summary     Set deal products
// @Description Replace a deal's line items. Line totals and the financial rollup are recomputed server-side.
// @Tags        deals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Deal ID"
// @Param       request body SetProductsRequest true "New line items"
// @Success     200 {object} DealResponse "Deal with recomputed financials"
// @Failure     400 {object} ErrorResponse "Invalid input or deal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Deal not found"
// @Failure     409 {object} ErrorResponse "Deal modified by another request"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /deals/{id}/products [put]
func (h *DealHandler) SetProducts(c *gin.Context) {
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

	dealID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	deal, err := h.dealService.SetProducts(companyID, dealID, toProductInputs(req.Products), req.Version)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "SET_DEAL_PRODUCTS", "deal", dealID, c.ClientIP(),
		map[string]interface{}{"product_count": len(req.Products)})

	c.JSON(http.StatusOK, gin.H{"deal": deal})
}

// DeleteDeal handles deleting a deal
// @Summary     Delete deal
// @Description Delete a deal and its line items
// @Tags        deals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Deal ID"
// @Success     200 {object} MessageResponse "Deal deleted"
// @Failure     400 {object} ErrorResponse "Invalid deal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Deal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /deals/{id} [delete]
func (h *DealHandler) DeleteDeal(c *gin.Context) {
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

	dealID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.dealService.DeleteDeal(companyID, dealID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "DELETE_DEAL", "deal", dealID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Deal deleted successfully"})
}
