package models

// Contact represents a person at a customer organization
type Contact struct {
	Base
	CompanyID uint   `gorm:"not null;index" json:"company_id"`
	AccountID *uint  `json:"account_id,omitempty"`
	FirstName string `gorm:"not null" json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Title     string `json:"title,omitempty"`

	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}
