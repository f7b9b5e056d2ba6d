package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dealflow/internal/models"
	"dealflow/internal/pagination"
)

// UserServicer defines the contract for user and tenant bootstrap logic.
type UserServicer interface {
	Register(companyName, email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// StageServicer defines the contract for pipeline stage catalog management.
type StageServicer interface {
	CreateStage(companyID uint, name string, displayOrder, probability int, category models.StageCategory) (*models.PipelineStage, error)
	GetCompanyStages(companyID uint, includeInactive bool) ([]models.PipelineStage, error)
	GetStageByID(companyID, stageID uint) (*models.PipelineStage, error)
	UpdateStage(companyID, stageID uint, name string, probability *int, category *models.StageCategory, isActive *bool) (*models.PipelineStage, error)
	ReorderStages(companyID uint, orderedIDs []uint) ([]models.PipelineStage, error)
	DeleteStage(companyID, stageID uint) error
	SeedDefaultCatalog(tx *gorm.DB, companyID uint) error
}

// ProductInput describes one deal line item as submitted by a client.
// The line total is derived server-side.
type ProductInput struct {
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	UnitCost  *decimal.Decimal
	Discount  decimal.Decimal
	Tax       decimal.Decimal
}

// CreateDealInput carries the fields accepted when creating a deal.
type CreateDealInput struct {
	Name                string
	DealValue           decimal.Decimal
	Currency            string
	PipelineStage       string
	ExpectedClosingDate time.Time
	AssignedTo          *uint
	AccountID           *uint
	ContactID           *uint
	LeadID              *uint
	Tags                string
	Description         string
	Notes               string
	Products            []ProductInput
}

// UpdateDealInput carries the mutable deal fields. Nil pointers leave the
// field untouched. Version, when non-zero, must match the stored record.
type UpdateDealInput struct {
	Name                string
	DealValue           *decimal.Decimal
	Currency            string
	ExpectedClosingDate *time.Time
	AssignedTo          *uint
	Tags                *string
	Description         *string
	Notes               *string
	Version             uint
}

// DealFilter holds optional filter parameters for listing deals.
type DealFilter struct {
	Status     *models.DealStatus
	Stage      *string
	AssignedTo *uint
	MinValue   *decimal.Decimal
	MaxValue   *decimal.Decimal
}

// DealServicer defines the contract for deal lifecycle logic.
type DealServicer interface {
	CreateDeal(companyID, ownerID uint, input CreateDealInput) (*models.Deal, error)
	GetCompanyDeals(companyID uint, page pagination.PageRequest, filter DealFilter) (*pagination.PageResponse[models.Deal], error)
	GetDealByID(companyID, dealID uint) (*models.Deal, error)
	UpdateDeal(companyID, dealID uint, input UpdateDealInput) (*models.Deal, error)
	ChangeStage(companyID, dealID uint, newStage string, version uint) (*models.Deal, error)
	ChangeStatus(companyID, dealID uint, status models.DealStatus, version uint) (*models.Deal, error)
	SetProducts(companyID, dealID uint, items []ProductInput, version uint) (*models.Deal, error)
	DeleteDeal(companyID, dealID uint) error
}

// StageBreakdownItem is the per-stage slice of the open pipeline.
type StageBreakdownItem struct {
	Stage      string          `json:"stage"`
	Value      decimal.Decimal `json:"value"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// ForecastBucket is one month of probability-weighted pipeline value.
type ForecastBucket struct {
	Month         string          `json:"month"`
	WeightedValue decimal.Decimal `json:"weighted_value"`
	DealCount     int             `json:"deal_count"`
}

// PipelineSummary is the read-side view of a company's pipeline.
type PipelineSummary struct {
	TotalPipelineValue decimal.Decimal      `json:"total_pipeline_value"`
	StageBreakdown     []StageBreakdownItem `json:"stage_breakdown"`
	Forecast           []ForecastBucket     `json:"forecast"`
	AverageDealSize    decimal.Decimal      `json:"average_deal_size"`
	WinRate            float64              `json:"win_rate"`
	OpenDeals          int                  `json:"open_deals"`
}

// AnalyticsServicer defines the contract for pipeline aggregation. It is
// strictly read-only and never fails on empty data.
type AnalyticsServicer interface {
	GetPipelineSummary(companyID uint, forecastMonths int) (*PipelineSummary, error)
}

// ConvertLeadInput carries the deal parameters for a lead conversion.
type ConvertLeadInput struct {
	DealName            string
	DealValue           decimal.Decimal
	Currency            string
	ExpectedClosingDate time.Time
}

// LeadServicer defines the contract for lead management.
type LeadServicer interface {
	CreateLead(companyID, ownerID uint, name, email, phone, source string) (*models.Lead, error)
	GetCompanyLeads(companyID uint, page pagination.PageRequest, status *models.LeadStatus) (*pagination.PageResponse[models.Lead], error)
	GetLeadByID(companyID, leadID uint) (*models.Lead, error)
	UpdateLeadStatus(companyID, leadID uint, status models.LeadStatus) (*models.Lead, error)
	ConvertLead(companyID, leadID, ownerID uint, input ConvertLeadInput) (*models.Deal, error)
	DeleteLead(companyID, leadID uint) error
}

// ContactServicer defines the contract for contact management.
type ContactServicer interface {
	CreateContact(companyID uint, accountID *uint, firstName, lastName, email, phone, title string) (*models.Contact, error)
	GetCompanyContacts(companyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Contact], error)
	GetContactByID(companyID, contactID uint) (*models.Contact, error)
	UpdateContact(companyID, contactID uint, firstName, lastName, email, phone, title string) (*models.Contact, error)
	DeleteContact(companyID, contactID uint) error
}

// AccountServicer defines the contract for customer account management.
type AccountServicer interface {
	CreateAccount(companyID uint, name, industry, website string, annualRevenue *decimal.Decimal) (*models.Account, error)
	GetCompanyAccounts(companyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(companyID, accountID uint) (*models.Account, error)
	UpdateAccount(companyID, accountID uint, name, industry, website string, annualRevenue *decimal.Decimal) (*models.Account, error)
	DeleteAccount(companyID, accountID uint) error
}

// ActivityServicer defines the contract for deal activity logging.
type ActivityServicer interface {
	LogActivity(companyID, dealID, userID uint, activityType models.ActivityType, subject, notes string, dueDate *time.Time) (*models.Activity, error)
	GetDealActivities(companyID, dealID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Activity], error)
	CompleteActivity(companyID, activityID uint) (*models.Activity, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(companyID, userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
