package models

import "gorm.io/datatypes"

// AuditLog records write operations for traceability within a company.
type AuditLog struct {
	Base
	CompanyID    uint           `gorm:"not null;index" json:"company_id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	Action       string         `gorm:"not null" json:"action"`
	ResourceType string         `gorm:"not null" json:"resource_type"`
	ResourceID   uint           `json:"resource_id"`
	IPAddress    string         `json:"ip_address"`
	Changes      datatypes.JSON `json:"changes,omitempty"`
}
