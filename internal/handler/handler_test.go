package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ledger-service/internal/store"
	"ledger-service/pkg/config"
	"ledger-service/pkg/jwtutil"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func zapNop() *zap.Logger { return zap.NewNop() }

func currentMonth() string { return time.Now().UTC().Format("2006-01") }

func TestMain(m *testing.M) {
	cfg := testConfig()
	jwtutil.Initialize(&cfg.JWT)
	prometheus.InitMetrics(cfg)
	m.Run()
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			SigningKey:      "test-signing-key",
			ExpirationHours: 1,
		},
		SuperAdmin: config.SuperAdminConfig{
			Username: "platform-admin",
			Password: "platform-pass",
		},
		Metrics: config.MetricsConfig{Prefix: "ledger_test"},
	}
}

func newTestHandler() (*Handler, *store.MemoryKV) {
	kv := store.NewMemoryKV()
	log := zapNop()
	h := New(testConfig(),
		store.NewDirectory(kv, log),
		store.NewLedger(kv, log),
		store.NewMigrator(kv, log))
	return h, kv
}

// call invokes an echo handler directly with an optional JSON body and
// session values, returning the recorded response.
func call(t *testing.T, fn echo.HandlerFunc, method, path, body string, setup func(echo.Context)) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}
	require.NoError(t, fn(c))
	return rec
}

func asAdmin(tenantID string) func(echo.Context) {
	return func(c echo.Context) {
		c.Set("role", "admin")
		c.Set("tenant_id", tenantID)
	}
}

func asGuest(tenantID string) func(echo.Context) {
	return func(c echo.Context) {
		c.Set("role", "guest")
		c.Set("tenant_id", tenantID)
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func registerTenant(t *testing.T, h *Handler, email, secretCode string) string {
	t.Helper()
	rec := call(t, h.Register, http.MethodPost, "/auth/register",
		`{"name":"Test Tenant","email":"`+email+`","password":"pass1234","secret_code":"`+secretCode+`"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	tenant := body["tenant"].(map[string]any)
	return tenant["id"].(string)
}

func TestHealthCheck(t *testing.T) {
	rec := call(t, HealthCheck, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "up", body["status"])
	assert.Equal(t, "ledger-service", body["service"])
	assert.NotContains(t, body, "store")
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	h, _ := newTestHandler()

	rec := call(t, h.Register, http.MethodPost, "/auth/register",
		`{"name":"North","email":"north@example.com","password":"pass1234","secret_code":"north-guest"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["token"])
	tenant := body["tenant"].(map[string]any)
	assert.Empty(t, tenant["password"], "password hash must not leave the service")
	assert.Equal(t, "north-guest", tenant["secret_code"])

	rec = call(t, h.Login, http.MethodPost, "/auth/login",
		`{"identifier":"north@example.com","password":"pass1234"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["token"])

	rec = call(t, h.Login, http.MethodPost, "/auth/login",
		`{"identifier":"north@example.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	h, _ := newTestHandler()
	registerTenant(t, h, "dup@example.com", "code-one")

	rec := call(t, h.Register, http.MethodPost, "/auth/register",
		`{"name":"Again","email":"dup@example.com","password":"pass1234","secret_code":"code-two"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, h.Register, http.MethodPost, "/auth/register",
		`{"name":"Other","email":"other@example.com","password":"pass1234","secret_code":"code-one"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterMissingFields(t *testing.T) {
	h, _ := newTestHandler()

	rec := call(t, h.Register, http.MethodPost, "/auth/register",
		`{"email":"incomplete@example.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterInheritsLegacyData(t *testing.T) {
	h, kv := newTestHandler()
	require.NoError(t, kv.Put(context.Background(), store.KeyLegacyMembers, []byte(`[{"id":"m1","name":"Founding Member","monthly_amount":"500"}]`)))

	tenantID := registerTenant(t, h, "fresh@example.com", "fresh-guest")

	// The roster is populated on the registration session itself,
	// without an intervening login.
	rec := call(t, h.ListMembers, http.MethodGet, "/api/members", "", asAdmin(tenantID))
	require.Equal(t, http.StatusOK, rec.Code)
	members := decode(t, rec)["members"].([]any)
	require.Len(t, members, 1)
	assert.Equal(t, "Founding Member", members[0].(map[string]any)["name"])
}

func TestGuestLogin(t *testing.T) {
	h, _ := newTestHandler()
	registerTenant(t, h, "host@example.com", "shared-code")

	rec := call(t, h.GuestLogin, http.MethodPost, "/auth/guest",
		`{"secret_code":"shared-code"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["token"])
	tenant := body["tenant"].(map[string]any)
	assert.Empty(t, tenant["secret_code"], "guests must not see the secret code")

	rec = call(t, h.GuestLogin, http.MethodPost, "/auth/guest",
		`{"secret_code":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSuperLogin(t *testing.T) {
	h, _ := newTestHandler()

	rec := call(t, h.SuperLogin, http.MethodPost, "/auth/super",
		`{"username":"platform-admin","password":"platform-pass"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["token"])

	rec = call(t, h.SuperLogin, http.MethodPost, "/auth/super",
		`{"username":"platform-admin","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	h, _ := newTestHandler()
	registerTenant(t, h, "forgetful@example.com", "reset-code")

	rec := call(t, h.RequestPasswordReset, http.MethodPost, "/auth/reset/request",
		`{"identifier":"forgetful@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	code := decode(t, rec)["code"].(string)
	require.Len(t, code, 4)

	// Wrong code is rejected and consumes the pending reset
	rec = call(t, h.ConfirmPasswordReset, http.MethodPost, "/auth/reset/confirm",
		`{"identifier":"forgetful@example.com","code":"0000","new_password":"irrelevant"}`, nil)
	if code == "0000" {
		t.Skip("generated code collided with the wrong-code probe")
	}
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Issue a fresh code and complete the reset
	rec = call(t, h.RequestPasswordReset, http.MethodPost, "/auth/reset/request",
		`{"identifier":"forgetful@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	code = decode(t, rec)["code"].(string)

	rec = call(t, h.ConfirmPasswordReset, http.MethodPost, "/auth/reset/confirm",
		`{"identifier":"forgetful@example.com","code":"`+code+`","new_password":"fresh-pass"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, h.Login, http.MethodPost, "/auth/login",
		`{"identifier":"forgetful@example.com","password":"fresh-pass"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetRequestUnknownIdentifier(t *testing.T) {
	h, _ := newTestHandler()

	rec := call(t, h.RequestPasswordReset, http.MethodPost, "/auth/reset/request",
		`{"identifier":"nobody@example.com"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMemberLifecycle(t *testing.T) {
	h, _ := newTestHandler()
	tenantID := registerTenant(t, h, "members@example.com", "members-guest")

	rec := call(t, h.CreateMember, http.MethodPost, "/api/members",
		`{"name":"Alice","monthly_amount":"500"}`, asAdmin(tenantID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	memberID := decode(t, rec)["id"].(string)
	require.NotEmpty(t, memberID)

	rec = call(t, h.ListMembers, http.MethodGet, "/api/members", "", asAdmin(tenantID))
	require.Equal(t, http.StatusOK, rec.Code)
	members := decode(t, rec)["members"].([]any)
	require.Len(t, members, 1)

	// Update through the path parameter
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/members/"+memberID,
		strings.NewReader(`{"name":"Alice Updated","monthly_amount":"600"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec2 := httptest.NewRecorder()
	c := e.NewContext(req, rec2)
	c.SetParamNames("id")
	c.SetParamValues(memberID)
	asAdmin(tenantID)(c)
	require.NoError(t, h.UpdateMember(c))
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "Alice Updated", decode(t, rec2)["name"])
}

func TestGuestWriteRejectedByStore(t *testing.T) {
	h, _ := newTestHandler()
	tenantID := registerTenant(t, h, "guestwrite@example.com", "gw-guest")

	// Even without the admin middleware in front, the store refuses
	// guest writes.
	rec := call(t, h.CreateMember, http.MethodPost, "/api/members",
		`{"name":"Nope","monthly_amount":"100"}`, asGuest(tenantID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h.ListMembers, http.MethodGet, "/api/members", "", asGuest(tenantID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["members"])
}

func TestCreateDuesRejectsDuplicateMonth(t *testing.T) {
	h, _ := newTestHandler()
	tenantID := registerTenant(t, h, "dues@example.com", "dues-guest")

	rec := call(t, h.CreateDues, http.MethodPost, "/api/dues",
		`{"member_id":"m1","month":"2024-05","amount":"500"}`, asAdmin(tenantID))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(t, h.CreateDues, http.MethodPost, "/api/dues",
		`{"member_id":"m1","month":"2024-05","amount":"500"}`, asAdmin(tenantID))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Same member, different month is fine
	rec = call(t, h.CreateDues, http.MethodPost, "/api/dues",
		`{"member_id":"m1","month":"2024-06","amount":"500"}`, asAdmin(tenantID))
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Month must be a calendar bucket
	rec = call(t, h.CreateDues, http.MethodPost, "/api/dues",
		`{"member_id":"m1","month":"May 2024","amount":"500"}`, asAdmin(tenantID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardComputesCompletion(t *testing.T) {
	h, _ := newTestHandler()
	tenantID := registerTenant(t, h, "dash@example.com", "dash-guest")

	rec := call(t, h.CreateMember, http.MethodPost, "/api/members",
		`{"name":"Alice","monthly_amount":"500"}`, asAdmin(tenantID))
	require.Equal(t, http.StatusCreated, rec.Code)
	aliceID := decode(t, rec)["id"].(string)

	rec = call(t, h.CreateMember, http.MethodPost, "/api/members",
		`{"name":"Bob","monthly_amount":"300"}`, asAdmin(tenantID))
	require.Equal(t, http.StatusCreated, rec.Code)

	month := currentMonth()
	rec = call(t, h.CreateDues, http.MethodPost, "/api/dues",
		`{"member_id":"`+aliceID+`","month":"`+month+`","amount":"500"}`, asAdmin(tenantID))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(t, h.Dashboard, http.MethodGet, "/api/dashboard", "", asGuest(tenantID))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "800", body["expected_dues"])
	assert.Equal(t, "500", body["collected_dues"])
	assert.Equal(t, "62.5", body["completion_rate"])
	pending := body["pending_members"].([]any)
	require.Len(t, pending, 1)
	assert.Equal(t, "Bob", pending[0].(map[string]any)["name"])
}

func TestDashboardSeriesTwelvePoints(t *testing.T) {
	h, _ := newTestHandler()
	tenantID := registerTenant(t, h, "series@example.com", "series-guest")

	rec := call(t, h.DashboardSeries, http.MethodGet, "/api/dashboard/series", "", asGuest(tenantID))
	require.Equal(t, http.StatusOK, rec.Code)
	series := decode(t, rec)["series"].([]any)
	assert.Len(t, series, 12)
}

func TestExpenseBreakdownEndpoint(t *testing.T) {
	h, _ := newTestHandler()
	tenantID := registerTenant(t, h, "expense@example.com", "expense-guest")

	rec := call(t, h.CreateExpense, http.MethodPost, "/api/expenses",
		`{"purpose":"Paint","category":"Maintenance","amount":"200","date":"2024-05-01"}`, asAdmin(tenantID))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = call(t, h.CreateExpense, http.MethodPost, "/api/expenses",
		`{"purpose":"Misc","amount":"10","date":"2024-05-02"}`, asAdmin(tenantID))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(t, h.ExpenseBreakdown, http.MethodGet, "/api/expenses/breakdown", "", asGuest(tenantID))
	require.Equal(t, http.StatusOK, rec.Code)
	categories := decode(t, rec)["categories"].([]any)
	require.Len(t, categories, 2)
	assert.Equal(t, "Maintenance", categories[0].(map[string]any)["category"])
	assert.Equal(t, "Other", categories[1].(map[string]any)["category"])
}

func TestListTenantsSanitizesSecrets(t *testing.T) {
	h, _ := newTestHandler()
	registerTenant(t, h, "panel@example.com", "panel-guest")

	rec := call(t, h.ListTenants, http.MethodGet, "/admin/tenants", "", func(c echo.Context) {
		c.Set("role", "super_admin")
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	tenants := body["tenants"].([]any)
	require.Len(t, tenants, 1)
	tenant := tenants[0].(map[string]any)
	assert.Empty(t, tenant["password"])
	assert.Empty(t, tenant["secret_code"])
}

func TestProfileUpdate(t *testing.T) {
	h, _ := newTestHandler()
	tenantID := registerTenant(t, h, "profile@example.com", "profile-guest")

	rec := call(t, h.UpdateProfile, http.MethodPut, "/api/profile",
		`{"name":"Renamed","address":"12 New Street"}`, asAdmin(tenantID))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Renamed", body["name"])
	assert.Equal(t, "12 New Street", body["address"])
	assert.Equal(t, "profile@example.com", body["email"], "email is the identity key and stays put")

	rec = call(t, h.GetProfile, http.MethodGet, "/api/profile", "", asGuest(tenantID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["secret_code"])
}

func TestProfileSecretCodeConflict(t *testing.T) {
	h, _ := newTestHandler()
	registerTenant(t, h, "first@example.com", "taken-code")
	secondID := registerTenant(t, h, "second@example.com", "free-code")

	rec := call(t, h.UpdateProfile, http.MethodPut, "/api/profile",
		`{"secret_code":"taken-code"}`, asAdmin(secondID))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
