package models

// LeadStatus represents the qualification state of a lead
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusRejected  LeadStatus = "rejected"
)

// Lead represents an unqualified prospect. Converting a lead creates a
// contact and a deal and is a one-way transition.
type Lead struct {
	Base
	CompanyID       uint       `gorm:"not null;index" json:"company_id"`
	OwnerID         uint       `gorm:"not null" json:"owner_id"`
	Name            string     `gorm:"not null" json:"name"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Source          string     `json:"source,omitempty"`
	Status          LeadStatus `gorm:"not null;default:'new'" json:"status"`
	ConvertedDealID *uint      `json:"converted_deal_id,omitempty"`
}
