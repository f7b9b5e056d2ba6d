package services

import (
	"testing"
	"time"

	"dealflow/internal/models"
	"dealflow/internal/testutil"
)

func TestConvertLead(t *testing.T) {
	t.Run("creates_contact_and_deal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		dealSvc := NewDealService(db, NewStageService(db))
		svc := NewLeadService(db, dealSvc)
		lead := testutil.CreateTestLead(t, db, company.ID, user.ID)

		deal, err := svc.ConvertLead(company.ID, lead.ID, user.ID, ConvertLeadInput{
			DealValue:           dec("8000"),
			ExpectedClosingDate: time.Now().AddDate(0, 2, 0),
		})
		testutil.AssertNoError(t, err)

		// Deal seeded into the first open stage.
		if deal.PipelineStage != "Qualification" {
			t.Errorf("expected deal in Qualification, got %s", deal.PipelineStage)
		}
		if deal.LeadID == nil || *deal.LeadID != lead.ID {
			t.Error("expected deal linked back to lead")
		}
		if deal.ContactID == nil {
			t.Fatal("expected a contact created for the deal")
		}

		var contact models.Contact
		testutil.AssertNoError(t, db.First(&contact, *deal.ContactID).Error)
		if contact.FirstName != lead.Name {
			t.Errorf("expected contact named after lead, got %s", contact.FirstName)
		}

		var fresh models.Lead
		testutil.AssertNoError(t, db.First(&fresh, lead.ID).Error)
		if fresh.Status != models.LeadStatusConverted {
			t.Errorf("expected converted lead, got %s", fresh.Status)
		}
		if fresh.ConvertedDealID == nil || *fresh.ConvertedDealID != deal.ID {
			t.Error("expected lead to reference the created deal")
		}
	})

	t.Run("rejects_double_conversion", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewLeadService(db, NewDealService(db, NewStageService(db)))
		lead := testutil.CreateTestLead(t, db, company.ID, user.ID)

		input := ConvertLeadInput{DealValue: dec("1000"), ExpectedClosingDate: time.Now().AddDate(0, 1, 0)}
		_, err := svc.ConvertLead(company.ID, lead.ID, user.ID, input)
		testutil.AssertNoError(t, err)

		_, err = svc.ConvertLead(company.ID, lead.ID, user.ID, input)
		testutil.AssertAppError(t, err, "LEAD_ALREADY_CONVERTED")
	})

	t.Run("tenant_isolation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company1 := testutil.CreateTestCompany(t, db)
		company2 := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company1.ID)
		testutil.CreateTestCatalog(t, db, company1.ID)
		svc := NewLeadService(db, NewDealService(db, NewStageService(db)))
		lead := testutil.CreateTestLead(t, db, company1.ID, user.ID)

		_, err := svc.ConvertLead(company2.ID, lead.ID, user.ID, ConvertLeadInput{
			DealValue:           dec("1000"),
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		})
		testutil.AssertAppError(t, err, "LEAD_NOT_FOUND")
	})
}

func TestUpdateLeadStatus(t *testing.T) {
	t.Run("qualifies_lead", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		svc := NewLeadService(db, nil)
		lead := testutil.CreateTestLead(t, db, company.ID, user.ID)

		_, err := svc.UpdateLeadStatus(company.ID, lead.ID, models.LeadStatusQualified)
		testutil.AssertNoError(t, err)

		var fresh models.Lead
		testutil.AssertNoError(t, db.First(&fresh, lead.ID).Error)
		if fresh.Status != models.LeadStatusQualified {
			t.Errorf("expected qualified, got %s", fresh.Status)
		}
	})

	t.Run("conversion_via_status_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		svc := NewLeadService(db, nil)
		lead := testutil.CreateTestLead(t, db, company.ID, user.ID)

		_, err := svc.UpdateLeadStatus(company.ID, lead.ID, models.LeadStatusConverted)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("converted_lead_is_frozen", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		svc := NewLeadService(db, nil)
		lead := testutil.CreateTestLead(t, db, company.ID, user.ID)
		if err := db.Model(lead).Update("status", models.LeadStatusConverted).Error; err != nil {
			t.Fatalf("failed to mark lead converted: %v", err)
		}

		_, err := svc.UpdateLeadStatus(company.ID, lead.ID, models.LeadStatusRejected)
		testutil.AssertAppError(t, err, "LEAD_ALREADY_CONVERTED")
	})
}
