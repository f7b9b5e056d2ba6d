package models

// Company is the tenant root. Every record in the system belongs to exactly
// one company, and that scope is immutable after creation.
type Company struct {
	Base
	Name   string `gorm:"not null" json:"name"`
	Domain string `json:"domain,omitempty"`
	Plan   string `gorm:"default:'free'" json:"plan"`

	Users  []User          `gorm:"foreignKey:CompanyID" json:"users,omitempty"`
	Stages []PipelineStage `gorm:"foreignKey:CompanyID" json:"stages,omitempty"`
}
