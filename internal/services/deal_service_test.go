package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dealflow/internal/models"
	"dealflow/internal/pagination"
	"dealflow/internal/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateDeal(t *testing.T) {
	t.Run("defaults_to_first_open_stage", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Acme renewal",
			DealValue:           dec("5000"),
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		})
		testutil.AssertNoError(t, err)

		if deal.PipelineStage != "Qualification" {
			t.Errorf("expected deal seeded into Qualification, got %s", deal.PipelineStage)
		}
		if deal.Probability != 10 {
			t.Errorf("expected probability 10, got %d", deal.Probability)
		}
		testutil.AssertDecimalEqual(t, deal.ExpectedRevenue, "500")
		if deal.Status != models.DealStatusOpen {
			t.Errorf("expected open status, got %s", deal.Status)
		}
		if deal.Version != 1 {
			t.Errorf("expected version 1, got %d", deal.Version)
		}
		if deal.ReferenceID == "" {
			t.Error("expected a reference ID")
		}
		if deal.Currency != "USD" {
			t.Errorf("expected USD default currency, got %s", deal.Currency)
		}
	})

	t.Run("explicit_stage_derives_probability", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Big proposal",
			DealValue:           dec("10000"),
			PipelineStage:       "Proposal",
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		})
		testutil.AssertNoError(t, err)

		if deal.Probability != 40 {
			t.Errorf("expected probability 40 from Proposal, got %d", deal.Probability)
		}
		testutil.AssertDecimalEqual(t, deal.ExpectedRevenue, "4000")
	})

	t.Run("unknown_stage_gets_fallback", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Custom stage deal",
			DealValue:           dec("5000"),
			PipelineStage:       "Legal Review",
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		})
		testutil.AssertNoError(t, err)

		if deal.Probability != 10 {
			t.Errorf("expected fallback probability 10, got %d", deal.Probability)
		}
		testutil.AssertDecimalEqual(t, deal.ExpectedRevenue, "500")
	})

	t.Run("negative_value_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		_, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Bad deal",
			DealValue:           dec("-100"),
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("with_products_computes_financials", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Licensed deal",
			DealValue:           dec("1000"),
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
			Products: []ProductInput{
				{Name: "License", Quantity: dec("3"), UnitPrice: dec("100"), Discount: dec("20"), Tax: dec("15")},
			},
		})
		testutil.AssertNoError(t, err)

		if len(deal.Products) != 1 {
			t.Fatalf("expected 1 product, got %d", len(deal.Products))
		}
		testutil.AssertDecimalEqual(t, deal.Products[0].TotalPrice, "295")
		testutil.AssertDecimalEqual(t, deal.Financials.Subtotal, "300")
		testutil.AssertDecimalEqual(t, deal.Financials.GrandTotal, "295")
	})
}

func TestGetDealByID(t *testing.T) {
	t.Run("tenant_isolation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company1 := testutil.CreateTestCompany(t, db)
		company2 := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company1.ID)
		testutil.CreateTestCatalog(t, db, company1.ID)
		svc := NewDealService(db, NewStageService(db))
		deal := testutil.CreateTestDeal(t, db, company1.ID, user.ID, "Qualification", "1000")

		_, err := svc.GetDealByID(company2.ID, deal.ID)
		testutil.AssertAppError(t, err, "DEAL_NOT_FOUND")

		found, err := svc.GetDealByID(company1.ID, deal.ID)
		testutil.AssertNoError(t, err)
		if found.ID != deal.ID {
			t.Errorf("expected deal %d, got %d", deal.ID, found.ID)
		}
	})
}

func TestGetCompanyDeals(t *testing.T) {
	t.Run("filters_by_status", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		testutil.CreateTestDeal(t, db, company.ID, user.ID, "Qualification", "1000")
		won := testutil.CreateTestDeal(t, db, company.ID, user.ID, "Closed Won", "2000")
		if err := db.Model(won).Update("status", models.DealStatusWon).Error; err != nil {
			t.Fatalf("failed to mark deal won: %v", err)
		}

		status := models.DealStatusOpen
		page := pagination.PageRequest{Page: 1, PageSize: 20}
		result, err := svc.GetCompanyDeals(company.ID, page, DealFilter{Status: &status})
		testutil.AssertNoError(t, err)

		if result.TotalItems != 1 {
			t.Errorf("expected 1 open deal, got %d", result.TotalItems)
		}
	})

	t.Run("filters_by_value_range", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		testutil.CreateTestDeal(t, db, company.ID, user.ID, "Qualification", "500")
		testutil.CreateTestDeal(t, db, company.ID, user.ID, "Qualification", "1500")
		testutil.CreateTestDeal(t, db, company.ID, user.ID, "Qualification", "5000")

		minValue := dec("1000")
		maxValue := dec("2000")
		page := pagination.PageRequest{Page: 1, PageSize: 20}
		result, err := svc.GetCompanyDeals(company.ID, page, DealFilter{MinValue: &minValue, MaxValue: &maxValue})
		testutil.AssertNoError(t, err)

		if result.TotalItems != 1 {
			t.Errorf("expected 1 deal in range, got %d", result.TotalItems)
		}
	})
}

func TestUpdateDeal(t *testing.T) {
	t.Run("value_change_rederives_expected_revenue", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Resize me",
			DealValue:           dec("10000"),
			PipelineStage:       "Proposal",
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		})
		testutil.AssertNoError(t, err)

		newValue := dec("20000")
		updated, err := svc.UpdateDeal(company.ID, deal.ID, UpdateDealInput{DealValue: &newValue})
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, updated.ExpectedRevenue, "8000")
		if updated.Version != 2 {
			t.Errorf("expected version bump to 2, got %d", updated.Version)
		}
	})

	t.Run("stale_version_conflicts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Contested",
			DealValue:           dec("1000"),
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		})
		testutil.AssertNoError(t, err)

		// First writer wins and bumps the version.
		_, err = svc.UpdateDeal(company.ID, deal.ID, UpdateDealInput{Name: "First writer", Version: 1})
		testutil.AssertNoError(t, err)

		// Second writer still holds version 1.
		_, err = svc.UpdateDeal(company.ID, deal.ID, UpdateDealInput{Name: "Second writer", Version: 1})
		testutil.AssertAppError(t, err, "DEAL_MODIFIED")
	})
}

func TestChangeStage(t *testing.T) {
	t.Run("rederives_probability_and_revenue", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Mover",
			DealValue:           dec("10000"),
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, deal.ExpectedRevenue, "1000")

		moved, err := svc.ChangeStage(company.ID, deal.ID, "Proposal", 0)
		testutil.AssertNoError(t, err)

		if moved.Probability != 40 {
			t.Errorf("expected probability 40, got %d", moved.Probability)
		}
		testutil.AssertDecimalEqual(t, moved.ExpectedRevenue, "4000")
		if moved.StageChangedAt == nil {
			t.Error("expected stage change timestamp")
		}
		if moved.Version != 2 {
			t.Errorf("expected version 2, got %d", moved.Version)
		}
	})

	t.Run("closed_won_stamps_closing_date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Winner",
			DealValue:           dec("10000"),
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		})
		testutil.AssertNoError(t, err)

		won, err := svc.ChangeStage(company.ID, deal.ID, "Closed Won", 0)
		testutil.AssertNoError(t, err)

		if won.Status != models.DealStatusWon {
			t.Errorf("expected won status, got %s", won.Status)
		}
		if won.Probability != 100 {
			t.Errorf("expected probability 100, got %d", won.Probability)
		}
		testutil.AssertDecimalEqual(t, won.ExpectedRevenue, "10000")
		if won.ActualClosingDate == nil {
			t.Error("expected actual closing date to be stamped")
		}
	})

	t.Run("stale_version_conflicts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Contested move",
			DealValue:           dec("1000"),
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		})
		testutil.AssertNoError(t, err)

		_, err = svc.ChangeStage(company.ID, deal.ID, "Proposal", 1)
		testutil.AssertNoError(t, err)

		_, err = svc.ChangeStage(company.ID, deal.ID, "Negotiation", 1)
		testutil.AssertAppError(t, err, "DEAL_MODIFIED")
	})
}

func TestChangeStatus(t *testing.T) {
	t.Run("won_stamps_reopen_clears", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Flipper",
			DealValue:           dec("1000"),
			PipelineStage:       "Negotiation",
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		})
		testutil.AssertNoError(t, err)

		won, err := svc.ChangeStatus(company.ID, deal.ID, models.DealStatusWon, 0)
		testutil.AssertNoError(t, err)
		if won.ActualClosingDate == nil {
			t.Fatal("expected closing date after win")
		}
		if won.PipelineStage != "Negotiation" {
			t.Errorf("stage label should be untouched, got %s", won.PipelineStage)
		}

		reopened, err := svc.ChangeStatus(company.ID, deal.ID, models.DealStatusOpen, 0)
		testutil.AssertNoError(t, err)
		if reopened.ActualClosingDate != nil {
			t.Error("expected closing date cleared on reopen")
		}
	})
}

func TestSetProducts(t *testing.T) {
	t.Run("replaces_lines_and_recomputes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Line items",
			DealValue:           dec("1000"),
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
			Products: []ProductInput{
				{Name: "Old line", Quantity: dec("1"), UnitPrice: dec("50")},
			},
		})
		testutil.AssertNoError(t, err)

		unitCost := dec("80")
		updated, err := svc.SetProducts(company.ID, deal.ID, []ProductInput{
			{Name: "Widget", Quantity: dec("10"), UnitPrice: dec("100"), UnitCost: &unitCost},
		}, 0)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, updated.Financials.GrandTotal, "1000")
		// Real unit cost: margin = 1000 - 800 = 200, 20%.
		testutil.AssertDecimalEqual(t, updated.Financials.Margin, "200")
		testutil.AssertDecimalEqual(t, updated.Financials.MarginPercentage, "20")

		fresh, err := svc.GetDealByID(company.ID, deal.ID)
		testutil.AssertNoError(t, err)
		if len(fresh.Products) != 1 || fresh.Products[0].Name != "Widget" {
			t.Errorf("expected old lines replaced, got %d products", len(fresh.Products))
		}
	})

	t.Run("empty_list_zeroes_financials", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		company := testutil.CreateTestCompany(t, db)
		user := testutil.CreateTestUser(t, db, company.ID)
		testutil.CreateTestCatalog(t, db, company.ID)
		svc := NewDealService(db, NewStageService(db))

		deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
			Name:                "Emptied",
			DealValue:           dec("1000"),
			ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
			Products: []ProductInput{
				{Name: "Line", Quantity: dec("2"), UnitPrice: dec("100")},
			},
		})
		testutil.AssertNoError(t, err)

		updated, err := svc.SetProducts(company.ID, deal.ID, nil, 0)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, updated.Financials.GrandTotal, "0")
		testutil.AssertDecimalEqual(t, updated.Financials.MarginPercentage, "0")
	})
}

func TestDeleteDeal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	company := testutil.CreateTestCompany(t, db)
	user := testutil.CreateTestUser(t, db, company.ID)
	testutil.CreateTestCatalog(t, db, company.ID)
	svc := NewDealService(db, NewStageService(db))

	deal, err := svc.CreateDeal(company.ID, user.ID, CreateDealInput{
		Name:                "Doomed",
		DealValue:           dec("1000"),
		ExpectedClosingDate: time.Now().AddDate(0, 1, 0),
		Products: []ProductInput{
			{Name: "Line", Quantity: dec("1"), UnitPrice: dec("100")},
		},
	})
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, svc.DeleteDeal(company.ID, deal.ID))

	_, err = svc.GetDealByID(company.ID, deal.ID)
	testutil.AssertAppError(t, err, "DEAL_NOT_FOUND")

	var lines int64
	db.Model(&models.DealProduct{}).Where("deal_id = ?", deal.ID).Count(&lines)
	if lines != 0 {
		t.Errorf("expected line items removed, found %d", lines)
	}
}
