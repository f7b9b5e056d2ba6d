package models

import "github.com/shopspring/decimal"

// Account represents a customer organization that deals are sold into
type Account struct {
	Base
	CompanyID     uint             `gorm:"not null;index" json:"company_id"`
	Name          string           `gorm:"not null" json:"name"`
	Industry      string           `json:"industry,omitempty"`
	Website       string           `json:"website,omitempty"`
	AnnualRevenue *decimal.Decimal `gorm:"type:numeric(20,4)" json:"annual_revenue,omitempty"`

	Contacts []Contact `gorm:"foreignKey:AccountID" json:"contacts,omitempty"`
	Deals    []Deal    `gorm:"foreignKey:AccountID" json:"deals,omitempty"`
}
