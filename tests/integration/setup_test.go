package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"dealflow/internal/handlers"
	"dealflow/internal/logger"
	"dealflow/internal/middleware"
	"dealflow/internal/models"
	"dealflow/internal/services"
	"dealflow/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.Company{},
		&models.User{},
		&models.PipelineStage{},
		&models.Account{},
		&models.Contact{},
		&models.Lead{},
		&models.Deal{},
		&models.DealProduct{},
		&models.Activity{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	stageService := services.NewStageService(db)
	userService := services.NewUserService(db, stageService)
	dealService := services.NewDealService(db, stageService)
	analyticsService := services.NewAnalyticsService(db, stageService)
	leadService := services.NewLeadService(db, dealService)
	contactService := services.NewContactService(db)
	accountService := services.NewAccountService(db)
	activityService := services.NewActivityService(db)
	auditService := services.NewAuditService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	stageHandler := handlers.NewStageHandler(stageService, auditService)
	dealHandler := handlers.NewDealHandler(dealService, auditService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	leadHandler := handlers.NewLeadHandler(leadService, auditService)
	contactHandler := handlers.NewContactHandler(contactService, auditService)
	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	activityHandler := handlers.NewActivityHandler(activityService, auditService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	stages := protected.Group("/stages")
	stages.POST("", stageHandler.CreateStage)
	stages.GET("", stageHandler.GetCompanyStages)
	stages.PUT("/reorder", stageHandler.ReorderStages)
	stages.PUT("/:id", stageHandler.UpdateStage)
	stages.DELETE("/:id", stageHandler.DeleteStage)

	deals := protected.Group("/deals")
	deals.POST("", dealHandler.CreateDeal)
	deals.GET("", dealHandler.GetCompanyDeals)
	deals.GET("/:id", dealHandler.GetDealByID)
	deals.PUT("/:id", dealHandler.UpdateDeal)
	deals.DELETE("/:id", dealHandler.DeleteDeal)
	deals.PUT("/:id/stage", dealHandler.ChangeStage)
	deals.PUT("/:id/status", dealHandler.ChangeStatus)
	deals.PUT("/:id/products", dealHandler.SetProducts)
	deals.POST("/:id/activities", activityHandler.LogActivity)
	deals.GET("/:id/activities", activityHandler.GetDealActivities)

	activities := protected.Group("/activities")
	activities.PUT("/:id/complete", activityHandler.CompleteActivity)

	analytics := protected.Group("/analytics")
	analytics.GET("/pipeline", analyticsHandler.GetPipelineSummary)

	leads := protected.Group("/leads")
	leads.POST("", leadHandler.CreateLead)
	leads.GET("", leadHandler.GetCompanyLeads)
	leads.GET("/:id", leadHandler.GetLeadByID)
	leads.PUT("/:id/status", leadHandler.UpdateLeadStatus)
	leads.POST("/:id/convert", leadHandler.ConvertLead)
	leads.DELETE("/:id", leadHandler.DeleteLead)

	contacts := protected.Group("/contacts")
	contacts.POST("", contactHandler.CreateContact)
	contacts.GET("", contactHandler.GetCompanyContacts)
	contacts.GET("/:id", contactHandler.GetContactByID)
	contacts.PUT("/:id", contactHandler.UpdateContact)
	contacts.DELETE("/:id", contactHandler.DeleteContact)

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetCompanyAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerCompany registers a tenant and returns the access token and user ID.
func (app *testApp) registerCompany(t *testing.T, companyName, email, password string) (accessToken string, userID float64) {
	t.Helper()
	body := fmt.Sprintf(`{"company_name":%q,"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`,
		companyName, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), user["id"].(float64)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// createDeal posts a deal and returns its ID and version.
func (app *testApp) createDeal(t *testing.T, token, name, value, stage string) (dealID, version float64) {
	t.Helper()
	stageField := ""
	if stage != "" {
		stageField = fmt.Sprintf(`"pipeline_stage":%q,`, stage)
	}
	body := fmt.Sprintf(`{"name":%q,"deal_value":%q,%s"expected_closing_date":"2026-11-30"}`,
		name, value, stageField)
	rec := app.request("POST", "/api/v1/deals", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create deal failed: %d %s", rec.Code, rec.Body.String())
	}
	deal := parseJSON(t, rec)["deal"].(map[string]interface{})
	return deal["id"].(float64), deal["version"].(float64)
}
