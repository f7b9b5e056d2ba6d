package services

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dealflow/internal/logger"
	"dealflow/internal/models"
)

// auditService persists audit log entries. Failures are logged and swallowed
// so that auditing never breaks the request path.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records a write operation against a resource.
func (s *auditService) Log(companyID, userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{}) {
	entry := models.AuditLog{
		CompanyID:    companyID,
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
	}

	if len(changes) > 0 {
		raw, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Warnw("failed to marshal audit changes",
				"action", action,
				"error", err.Error(),
			)
		} else {
			entry.Changes = datatypes.JSON(raw)
		}
	}

	if err := s.db.Create(&entry).Error; err != nil {
		logger.Get().Errorw("failed to write audit log",
			"company_id", companyID,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"error", err.Error(),
		)
	}
}
