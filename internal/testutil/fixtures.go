package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"dealflow/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestCompany creates a company tenant.
func CreateTestCompany(t *testing.T, db *gorm.DB) *models.Company {
	t.Helper()

	company := &models.Company{
		Name: fmt.Sprintf("Test Company %d", nextID()),
	}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("failed to create test company: %v", err)
	}
	return company
}

// CreateTestUser creates a user in the given company with a hashed password
// and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB, companyID uint) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, companyID, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, companyID uint, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		CompanyID: companyID,
		Email:     email,
		Password:  string(hash),
		Role:      models.UserRoleAdmin,
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestStage creates a pipeline stage for the company.
func CreateTestStage(t *testing.T, db *gorm.DB, companyID uint, name string, order, probability int, category models.StageCategory) *models.PipelineStage {
	t.Helper()

	stage := &models.PipelineStage{
		CompanyID:    companyID,
		Name:         name,
		DisplayOrder: order,
		Probability:  probability,
		Category:     category,
		IsActive:     true,
	}
	if err := db.Create(stage).Error; err != nil {
		t.Fatalf("failed to create test stage: %v", err)
	}
	return stage
}

// CreateTestCatalog creates a standard five-stage pipeline catalog for the
// company and returns the stages in display order.
func CreateTestCatalog(t *testing.T, db *gorm.DB, companyID uint) []models.PipelineStage {
	t.Helper()

	defs := []struct {
		name        string
		probability int
		category    models.StageCategory
	}{
		{"Qualification", 10, models.StageCategoryOpen},
		{"Proposal", 40, models.StageCategoryOpen},
		{"Negotiation", 60, models.StageCategoryOpen},
		{"Closed Won", 100, models.StageCategoryWon},
		{"Closed Lost", 0, models.StageCategoryLost},
	}

	stages := make([]models.PipelineStage, 0, len(defs))
	for i, def := range defs {
		stage := CreateTestStage(t, db, companyID, def.name, i+1, def.probability, def.category)
		stages = append(stages, *stage)
	}
	return stages
}

// CreateTestDeal creates an open deal in the given stage with the given value.
func CreateTestDeal(t *testing.T, db *gorm.DB, companyID, ownerID uint, stage string, value string) *models.Deal {
	t.Helper()

	dealValue, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("invalid deal value %q: %v", value, err)
	}

	deal := &models.Deal{
		CompanyID:           companyID,
		OwnerID:             ownerID,
		Name:                fmt.Sprintf("Test Deal %d", nextID()),
		DealValue:           dealValue,
		Currency:            "USD",
		Probability:         10,
		ExpectedRevenue:     dealValue.Div(decimal.NewFromInt(10)),
		PipelineStage:       stage,
		Status:              models.DealStatusOpen,
		ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		Version:             1,
	}
	if err := db.Create(deal).Error; err != nil {
		t.Fatalf("failed to create test deal: %v", err)
	}
	return deal
}

// CreateTestLead creates a new lead for the company.
func CreateTestLead(t *testing.T, db *gorm.DB, companyID, ownerID uint) *models.Lead {
	t.Helper()

	n := nextID()
	lead := &models.Lead{
		CompanyID: companyID,
		OwnerID:   ownerID,
		Name:      fmt.Sprintf("Test Lead %d", n),
		Email:     fmt.Sprintf("lead%d@test.com", n),
		Source:    "website",
		Status:    models.LeadStatusNew,
	}
	if err := db.Create(lead).Error; err != nil {
		t.Fatalf("failed to create test lead: %v", err)
	}
	return lead
}

// CreateTestContact creates a contact for the company.
func CreateTestContact(t *testing.T, db *gorm.DB, companyID uint) *models.Contact {
	t.Helper()

	n := nextID()
	contact := &models.Contact{
		CompanyID: companyID,
		FirstName: fmt.Sprintf("Contact%d", n),
		LastName:  "Test",
		Email:     fmt.Sprintf("contact%d@test.com", n),
	}
	if err := db.Create(contact).Error; err != nil {
		t.Fatalf("failed to create test contact: %v", err)
	}
	return contact
}

// CreateTestAccount creates a customer account for the company.
func CreateTestAccount(t *testing.T, db *gorm.DB, companyID uint) *models.Account {
	t.Helper()

	account := &models.Account{
		CompanyID: companyID,
		Name:      fmt.Sprintf("Test Account %d", nextID()),
		Industry:  "Software",
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}
