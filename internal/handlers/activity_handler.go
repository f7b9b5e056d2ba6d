package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/models"
	"dealflow/internal/pagination"
	"dealflow/internal/services"
)

// ActivityHandler handles deal activity requests.
type ActivityHandler struct {
	activityService services.ActivityServicer
	auditService    services.AuditServicer
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(activityService services.ActivityServicer, auditService services.AuditServicer) *ActivityHandler {
	return &ActivityHandler{activityService: activityService, auditService: auditService}
}

// LogActivityRequest represents the request payload for logging an activity
type LogActivityRequest struct {
	Type    models.ActivityType `json:"type" binding:"required,activity_type"`
	Subject string              `json:"subject" binding:"required,min=1,max=200"`
	Notes   string              `json:"notes" binding:"max=5000"`
	DueDate *string             `json:"due_date"`
}

// ActivityResponse represents an activity in the response
type ActivityResponse struct {
	ID      uint                `json:"id"`
	DealID  uint                `json:"deal_id"`
	Type    models.ActivityType `json:"type"`
	Subject string              `json:"subject"`
}

// LogActivity handles logging an activity against a deal
// @Summary     Log activity
// @Description Log a touchpoint against a deal and increment the deal's activity counter
// @Tags        activities
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Deal ID"
// @Param       request body LogActivityRequest true "Activity details"
// @Success     201 {object} ActivityResponse "Activity logged"
// @Failure     400 {object} ErrorResponse "Invalid input or deal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Deal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /deals/{id}/activities [post]
func (h *ActivityHandler) LogActivity(c *gin.Context) {
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

	var req LogActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		parsed, parseErr := parseDate(*req.DueDate)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid due_date format"))
			return
		}
		dueDate = &parsed
	}

	activity, err := h.activityService.LogActivity(companyID, dealID, userID, req.Type, req.Subject, req.Notes, dueDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "LOG_ACTIVITY", "activity", activity.ID, c.ClientIP(),
		map[string]interface{}{"deal_id": dealID, "type": string(req.Type)})

	c.JSON(http.StatusCreated, gin.H{"activity": activity})
}

// GetDealActivities handles the retrieval of a deal's activities
// @Summary     Get deal activities
// @Description Get a paginated list of activities for a deal, newest first
// @Tags        activities
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  int true  "Deal ID"
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Activity] "Paginated activities"
// @Failure     400 {object} ErrorResponse "Invalid deal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /deals/{id}/activities [get]
func (h *ActivityHandler) GetDealActivities(c *gin.Context) {
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

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.activityService.GetDealActivities(companyID, dealID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CompleteActivity handles marking an activity as completed
// @Summary     Complete activity
// @Description Stamp an activity's completion time. Completing twice is a no-op.
// @Tags        activities
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Activity ID"
// @Success     200 {object} ActivityResponse "Completed activity"
// @Failure     400 {object} ErrorResponse "Invalid activity ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Activity not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /activities/{id}/complete [put]
func (h *ActivityHandler) CompleteActivity(c *gin.Context) {
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

	activityID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	activity, err := h.activityService.CompleteActivity(companyID, activityID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(companyID, userID, "COMPLETE_ACTIVITY", "activity", activityID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"activity": activity})
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}
