package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MZOG/fixlog/models"
	"github.com/MZOG/fixlog/services"
	"github.com/MZOG/fixlog/storage"
	"github.com/MZOG/fixlog/utils"

	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

// buildTestApp wires an in-memory database, a recording mailer, a fake
// payment gateway and the API routes, mirroring main().
func buildTestApp(t *testing.T) (*iris.Application, *fakeMailer, *fakeGateway) {
	t.Helper()

	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	os.Setenv("REFRESH_TOKEN_SECRET", "testrefreshsecret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// A single connection keeps every query on the same :memory: database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Building{}, &models.Alert{}, &models.Feedback{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	storage.DB = db
	// Token-pair creation best-effort allowlists refresh tokens; a client
	// without a live server is enough for handler tests.
	storage.InitializeRedis()

	mailer := &fakeMailer{}
	services.Mail = mailer

	gateway := newFakeGateway()
	services.Billing = &services.BillingService{
		Gateway:       gateway,
		PriceID:       "price_test",
		WebhookSecret: testWebhookSecret,
		BaseURL:       "https://fixlog.test",
	}

	services.Policy = services.LoadAlertPolicy()

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	authMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	user := app.Party("/api/users")
	{
		user.Post("/register", Register)
		user.Post("/login", Login)
		user.Get("/me", authMiddleware, utils.UserIDFromTokenMiddleware, GetMe)
	}

	building := app.Party("/api/buildings", authMiddleware, utils.UserIDFromTokenMiddleware)
	{
		building.Post("/", CreateBuilding)
		building.Get("/", ListBuildings)
		building.Get("/{publicID}", GetBuilding)
		building.Patch("/{publicID}", UpdateBuilding)
		building.Delete("/{id:uint}", DeleteBuilding)
	}

	alert := app.Party("/api/alerts")
	{
		alert.Get("/building/{publicID}", GetIntakeBuilding)
		alert.Post("/new/{publicID}", SubmitAlert)
		alert.Get("/", authMiddleware, utils.UserIDFromTokenMiddleware, ListAlerts)
		alert.Patch("/{id:uint}", authMiddleware, utils.UserIDFromTokenMiddleware, UpdateAlertStatus)
		alert.Delete("/{id:uint}", authMiddleware, utils.UserIDFromTokenMiddleware, DeleteAlert)
	}

	billing := app.Party("/api/billing")
	{
		billing.Post("/checkout", authMiddleware, utils.UserIDFromTokenMiddleware, CreateCheckoutSession)
		billing.Post("/sync", authMiddleware, utils.UserIDFromTokenMiddleware, SyncSubscription)
		billing.Post("/webhook", StripeWebhook)
	}

	app.Post("/api/feedback", CreateFeedback)

	if err := app.Build(); err != nil {
		t.Fatalf("build app: %v", err)
	}
	return app, mailer, gateway
}

// signTestToken returns a signed access token for the user.
func signTestToken(t *testing.T, userID uint) string {
	t.Helper()
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), time.Hour)
	token, err := signer.Sign(utils.AccessToken{ID: userID})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(token)
}

func doJSON(t *testing.T, app *iris.Application, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func mustCreateUser(t *testing.T, email string) models.User {
	t.Helper()
	user := models.User{FirstName: "Jan", LastName: "Kowalski", Email: email, Password: "x"}
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func mustCreateBuilding(t *testing.T, ownerID uint, publicID, contactEmail string) models.Building {
	t.Helper()
	building := models.Building{
		OwnerID:      ownerID,
		PublicID:     publicID,
		City:         "Gdańsk",
		Address:      "ul. Długa 1",
		Name:         "Osiedle Przykładowe",
		ContactName:  "Anna Nowak",
		ContactEmail: contactEmail,
	}
	if err := storage.DB.Create(&building).Error; err != nil {
		t.Fatalf("create building: %v", err)
	}
	return building
}

func mustCreateAlert(t *testing.T, buildingID uint, status string) models.Alert {
	t.Helper()
	alert := models.Alert{
		BuildingID: buildingID,
		Title:      "Uszkodzona winda",
		Category:   "Awaria",
		Status:     status,
		Reporter:   "Piotr",
	}
	if err := storage.DB.Create(&alert).Error; err != nil {
		t.Fatalf("create alert: %v", err)
	}
	return alert
}

func alertPath(id uint) string {
	return fmt.Sprintf("/api/alerts/%d", id)
}

func buildingPath(id uint) string {
	return fmt.Sprintf("/api/buildings/%d", id)
}

func countAlerts(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := storage.DB.Model(&models.Alert{}).Count(&count).Error; err != nil {
		t.Fatalf("count alerts: %v", err)
	}
	return count
}

// fakeMailer records dispatched notifications and can be told to fail.
type fakeMailer struct {
	fail                 bool
	reporterEmails       []string
	ownerEmails          []string
	feedbackThanksEmails []string
	adminMessages        []string
}

func (m *fakeMailer) err() error {
	if m.fail {
		return fmt.Errorf("mail provider unavailable")
	}
	return nil
}

func (m *fakeMailer) SendReporterConfirmation(to, subject, category, description string) error {
	if m.fail {
		return m.err()
	}
	m.reporterEmails = append(m.reporterEmails, to)
	return nil
}

func (m *fakeMailer) SendOwnerNotification(to, subject, category, description, reporter, reporterEmail string) error {
	if m.fail {
		return m.err()
	}
	m.ownerEmails = append(m.ownerEmails, to)
	return nil
}

func (m *fakeMailer) SendFeedbackThanks(to, subject string) error {
	if m.fail {
		return m.err()
	}
	m.feedbackThanksEmails = append(m.feedbackThanksEmails, to)
	return nil
}

func (m *fakeMailer) SendFeedbackToAdmin(subject, message string) error {
	if m.fail {
		return m.err()
	}
	m.adminMessages = append(m.adminMessages, message)
	return nil
}

// fakeGateway is an in-memory payment processor.
type fakeGateway struct {
	customers   int
	subs        map[string][]services.SubscriptionItem
	quantities  map[string]int64
	updateCalls int
	failUpdate  bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		subs:       map[string][]services.SubscriptionItem{},
		quantities: map[string]int64{},
	}
}

func (g *fakeGateway) addSubscription(subID, itemID, priceID string, quantity int64) {
	g.subs[subID] = []services.SubscriptionItem{{ID: itemID, PriceID: priceID}}
	g.quantities[itemID] = quantity
}

func (g *fakeGateway) CreateCustomer(email string) (string, error) {
	g.customers++
	return fmt.Sprintf("cus_%d", g.customers), nil
}

func (g *fakeGateway) CreateCheckoutSession(customerID, priceID, userID, successURL, cancelURL string) (string, error) {
	return "https://checkout.stripe.test/c/pay_123", nil
}

func (g *fakeGateway) SubscriptionItems(subscriptionID string) ([]services.SubscriptionItem, error) {
	items, ok := g.subs[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", subscriptionID)
	}
	return items, nil
}

func (g *fakeGateway) UpdateItemQuantity(itemID string, quantity int64) error {
	if g.failUpdate {
		return fmt.Errorf("payment processor unavailable")
	}
	if _, ok := g.quantities[itemID]; !ok {
		return fmt.Errorf("no such item: %s", itemID)
	}
	g.quantities[itemID] = quantity
	g.updateCalls++
	return nil
}
