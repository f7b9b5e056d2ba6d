package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/models"
	"dealflow/internal/services"
)

// StageHandler handles pipeline stage catalog requests.
type StageHandler struct {
	stageService services.StageServicer
	auditService services.AuditServicer
}

// NewStageHandler creates a new StageHandler.
func NewStageHandler(stageService services.StageServicer, auditService services.AuditServicer) *StageHandler {
	return &StageHandler{stageService: stageService, auditService: auditService}
}

// CreateStageRequest represents the request payload for creating a pipeline stage
type CreateStageRequest struct {
	Name         string               `json:"name" binding:"required,min=1,max=100"`
	DisplayOrder int                  `json:"display_order" binding:"required,gte=1"`
	Probability  int                  `json:"probability" binding:"gte=0,lte=100"`
	Category     models.StageCategory `json:"category" binding:"required,stage_category"`
}

// UpdateStageRequest represents the request payload for updating a pipeline stage.
// Nil pointers leave the field untouched.
type UpdateStageRequest struct {
	Name        string                `json:"name" binding:"omitempty,min=1,max=100"`
	Probability *int                  `json:"probability" binding:"omitempty,gte=0,lte=100"`
	Category    *models.StageCategory `json:"category" binding:"omitempty,stage_category"`
	IsActive    *bool                 `json:"is_active"`
}

// ReorderStagesRequest represents the request payload for reordering the catalog.
type ReorderStagesRequest struct {
	StageIDs []uint `json:"stage_ids" binding:"required,min=1"`
}

// StageResponse represents a pipeline stage in the response
type StageResponse struct {
	ID           uint                 `json:"id"`
	CompanyID    uint                 `json:"company_id"`
	Name         string               `json:"name"`
	DisplayOrder int                  `json:"display_order"`
	Probability  int                  `json:"probability"`
	Category     models.StageCategory `json:"category"`
	IsActive     bool                 `json:"is_active"`
}

// CreateStage handles the creation of a new pipeline stage
// @Summary     Create a pipeline stage
// @Description Create a new pipeline stage in the company's catalog
// @Tags        stages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateStageRequest true "Stage details"
// @Success     201 {object} StageResponse "Stage created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate name or display order"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /stages [post]
func (h *StageHandler) CreateStage(c *gin.Context) {
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

	var req CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	stage, err := h.stageService.CreateStage(companyID, req.Name, req.DisplayOrder, req.Probability, req.Category)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "CREATE_STAGE", "pipeline_stage", stage.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "display_order": req.DisplayOrder})

	c.JSON(http.StatusCreated, gin.H{"stage": stage})
}

// GetCompanyStages handles the retrieval of the company's stage catalog
// @Summary     Get pipeline stages
// @Description Get the company's pipeline stage catalog ordered by display order
// @Tags        stages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       include_inactive query bool false "Include disabled stages"
// @Success     200 {array} StageResponse "List of stages"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /stages [get]
func (h *StageHandler) GetCompanyStages(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	includeInactive := c.Query("include_inactive") == "true"

	stages, err := h.stageService.GetCompanyStages(companyID, includeInactive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

// UpdateStage handles updating a pipeline stage
// @Summary     Update pipeline stage
// @Description Update an existing pipeline stage's name, probability, category, or active flag
// @Tags        stages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Stage ID"
// @Param       request body UpdateStageRequest true "Updated stage details"
// @Success     200 {object} StageResponse "Updated stage"
// @Failure     400 {object} ErrorResponse "Invalid input or stage ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Stage not found"
// @Failure     409 {object} ErrorResponse "Duplicate stage name"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /stages/{id} [put]
func (h *StageHandler) UpdateStage(c *gin.Context) {
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

	stageID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	stage, err := h.stageService.UpdateStage(companyID, stageID, req.Name, req.Probability, req.Category, req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "UPDATE_STAGE", "pipeline_stage", stageID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"stage": stage})
}

// ReorderStages handles reordering the company's stage catalog
// @Summary     Reorder pipeline stages
// @Description Reassign display order for all stages in the catalog at once
// @Tags        stages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ReorderStagesRequest true "Stage IDs in their new order"
// @Success     200 {array} StageResponse "Reordered catalog"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Stage not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /stages/reorder [put]
func (h *StageHandler) ReorderStages(c *gin.Context) {
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

	var req ReorderStagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	stages, err := h.stageService.ReorderStages(companyID, req.StageIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "REORDER_STAGES", "pipeline_stage", 0, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

// DeleteStage handles deleting a pipeline stage
// @Summary     Delete pipeline stage
// @Description Delete a pipeline stage. Stages referenced by deals are disabled instead of removed.
// @Tags        stages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Stage ID"
// @Success     200 {object} MessageResponse "Stage deleted or disabled"
// @Failure     400 {object} ErrorResponse "Invalid stage ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Stage not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /stages/{id} [delete]
func (h *StageHandler) DeleteStage(c *gin.Context) {
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

	stageID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.stageService.DeleteStage(companyID, stageID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "DELETE_STAGE", "pipeline_stage", stageID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Stage deleted successfully"})
}
