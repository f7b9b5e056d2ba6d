package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dealflow/internal/uuid"
)

// DealStatus represents the outcome state of a deal. Status and pipeline
// stage are independent axes: a deal can carry a lost status while its stage
// label still reads "Negotiation".
type DealStatus string

const (
	DealStatusOpen      DealStatus = "open"
	DealStatusWon       DealStatus = "won"
	DealStatusLost      DealStatus = "lost"
	DealStatusAbandoned DealStatus = "abandoned"
)

// Deal represents a sales opportunity moving through the pipeline.
// ExpectedRevenue, Financials, and StageChangedAt are derived fields; they
// are recomputed explicitly at every mutation site, never set by callers.
type Deal struct {
	Base
	CompanyID   uint  `gorm:"not null;index" json:"company_id"`
	OwnerID     uint  `gorm:"not null" json:"owner_id"`
	AssignedTo  *uint `json:"assigned_to,omitempty"`
	AccountID   *uint `json:"account_id,omitempty"`
	ContactID   *uint `json:"contact_id,omitempty"`
	LeadID      *uint `json:"lead_id,omitempty"`
	ReferenceID string `gorm:"size:36;uniqueIndex" json:"reference_id"`

	Name            string          `gorm:"not null" json:"name"`
	DealValue       decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"deal_value"`
	Currency        string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Probability     int             `gorm:"not null;default:10" json:"probability"`
	ExpectedRevenue decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"expected_revenue"`

	PipelineStage  string     `gorm:"not null;index" json:"pipeline_stage"`
	Status         DealStatus `gorm:"not null;default:'open';index" json:"status"`
	StageChangedAt *time.Time `json:"stage_changed_at,omitempty"`

	ExpectedClosingDate time.Time  `gorm:"not null" json:"expected_closing_date"`
	ActualClosingDate   *time.Time `json:"actual_closing_date,omitempty"`

	Description string         `json:"description,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Tags        datatypes.JSON `json:"tags,omitempty"`

	ActivityCount int `gorm:"default:0" json:"activity_count"`

	// Version guards concurrent writes: updates are compare-and-swap on this
	// column and fail with a conflict when another writer got there first.
	Version uint `gorm:"not null;default:1" json:"version"`

	Products   []DealProduct  `gorm:"foreignKey:DealID" json:"products,omitempty"`
	Financials DealFinancials `gorm:"embedded;embeddedPrefix:fin_" json:"financials"`
}

// BeforeCreate assigns a time-ordered public reference ID.
func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.ReferenceID == "" {
		d.ReferenceID = uuid.New()
	}
	return nil
}

// DealProduct is a single line item on a deal. TotalPrice is materialized at
// the line-item edit site as unitPrice*quantity - discount + tax.
type DealProduct struct {
	Base
	DealID    uint            `gorm:"not null;index" json:"deal_id"`
	Name      string          `gorm:"not null" json:"name"`
	Quantity  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"unit_price"`
	UnitCost  *decimal.Decimal `gorm:"type:numeric(20,4)" json:"unit_cost,omitempty"`
	Discount  decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"discount"`
	Tax       decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"tax"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_price"`
}

// DealFinancials is the derived aggregate over a deal's line items.
type DealFinancials struct {
	Subtotal         decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"subtotal"`
	DiscountTotal    decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"discount_total"`
	TaxTotal         decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"tax_total"`
	GrandTotal       decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"grand_total"`
	Margin           decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"margin"`
	MarginPercentage decimal.Decimal `gorm:"type:numeric(8,4);not null;default:0" json:"margin_percentage"`
}
