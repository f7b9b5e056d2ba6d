package models

import "time"

// ActivityType represents the kind of activity logged against a deal
type ActivityType string

const (
	ActivityTypeCall    ActivityType = "call"
	ActivityTypeMeeting ActivityType = "meeting"
	ActivityTypeEmail   ActivityType = "email"
	ActivityTypeTask    ActivityType = "task"
	ActivityTypeNote    ActivityType = "note"
)

// Activity is a logged touchpoint on a deal. Creating one increments the
// deal's activity counter.
type Activity struct {
	Base
	CompanyID   uint         `gorm:"not null;index" json:"company_id"`
	DealID      uint         `gorm:"not null;index" json:"deal_id"`
	UserID      uint         `gorm:"not null" json:"user_id"`
	Type        ActivityType `gorm:"not null" json:"type"`
	Subject     string       `gorm:"not null" json:"subject"`
	Notes       string       `json:"notes,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
