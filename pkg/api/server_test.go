package api

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menuforge/menuforge/pkg/auth"
	"github.com/menuforge/menuforge/pkg/authz"
	"github.com/menuforge/menuforge/pkg/billing"
	"github.com/menuforge/menuforge/pkg/config"
	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/orders"
	"github.com/menuforge/menuforge/pkg/permissions"
	"github.com/menuforge/menuforge/pkg/tenants"
	"github.com/menuforge/menuforge/pkg/users"
)

type testEnv struct {
	handler  http.Handler
	mock     sqlmock.Sqlmock
	sessions *auth.SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, nil)
	metrics := observability.NewMetrics(nil)

	sessions, err := auth.NewSessionManager("test-secret", time.Hour, false)
	require.NoError(t, err)

	userSvc := users.NewService(users.NewStore(db), nil, logger, metrics)
	tenantSvc, err := tenants.NewService(tenants.NewStore(db), 8, logger, metrics)
	require.NoError(t, err)
	menuSvc := menu.NewService(menu.NewStore(db), logger)
	orderSvc := orders.NewService(orders.NewStore(db), menuSvc, logger, metrics)

	billingStore := billing.NewStore(db)
	reconciler := billing.NewReconciler(billingStore, userSvc, logger, metrics)
	webhooks := billing.NewWebhookHandler(reconciler, "whsec_test", "", logger, metrics)

	authzMW := authz.NewMiddleware(sessions, userSvc, authz.DefaultRouteTable(), logger, metrics)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            "0",
			HealthPort:      "0",
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			IdleTimeout:     time.Second,
			ShutdownTimeout: time.Second,
		},
	}

	server := NewServer(cfg, Deps{
		Users:      userSvc,
		Tenants:    tenantSvc,
		Public:     NewPublicHandlers(tenantSvc, menuSvc, orderSvc, logger),
		Service:    NewServiceHandlers(tenantSvc, orderSvc, logger),
		Menu:       NewMenuHandlers(menuSvc, logger),
		Admin:      NewAdminHandlers(userSvc, logger),
		Restaurant: NewRestaurantHandlers(tenantSvc, userSvc, billingStore, nil, logger),
		Webhooks:   webhooks,
		Authz:      authzMW,
		Health:     observability.NewHealthChecker(db, nil),
	}, logger, metrics)

	return &testEnv{handler: server.httpServer.Handler, mock: mock, sessions: sessions}
}

func restaurantRows(waiterCode string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "owner_id", "slug", "name", "theme", "address", "phone",
		"logo_url", "currency", "waiter_code", "created_at", "updated_at",
	}).AddRow(7, 42, "casa-nora", "Casa Nora", "classic", "", "", "", "EUR", waiterCode, now, now)
}

func userRows(role string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "name", "role", "stripe_customer_id", "restaurant_owner_id",
		"created_at", "updated_at",
	}).AddRow(42, "nora@example.com", "Nora", role, nil, nil, now, now)
}

func (e *testEnv) sessionCookie(t *testing.T, role permissions.Role) *http.Cookie {
	t.Helper()
	session := e.sessions.Issue(42, "nora@example.com", role, nil)
	value, err := e.sessions.Encode(session)
	require.NoError(t, err)
	return &http.Cookie{Name: auth.DefaultCookieName, Value: value}
}

func TestPublicMenuUnknownRestaurant(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM restaurants WHERE slug = $1")).
		WithArgs("ghost-kitchen").
		WillReturnError(sql.ErrNoRows)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest("GET", "/r/ghost-kitchen/menu", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestServiceOrdersRequireWaiterCode(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM restaurants WHERE slug = $1")).
		WithArgs("casa-nora").
		WillReturnRows(restaurantRows("1234"))

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest("GET", "/r/casa-nora/service/orders", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServiceOrdersWithValidCode(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM restaurants WHERE slug = $1")).
		WithArgs("casa-nora").
		WillReturnRows(restaurantRows("1234"))
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM orders")).
		WithArgs(int64(7), "received", "preparing", "ready").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "restaurant_id", "reference", "table_label", "status",
			"total_cents", "note", "created_at", "updated_at",
		}).AddRow(3, 7, "ref-1", "5", "received", 2300, "", now, now))

	req := httptest.NewRequest("GET", "/r/casa-nora/service/orders", nil)
	req.Header.Set(WaiterCodeHeader, "1234")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ref-1")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestDashboardRedirectsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest("GET", "/dashboard/menu/categories", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?next=%2Fdashboard%2Fmenu%2Fcategories", rec.Header().Get("Location"))
}

func TestDashboardServesAuthorizedOwner(t *testing.T) {
	env := newTestEnv(t)

	// Route authorization re-resolves permissions from the store, then the
	// tenant scope loads the user and their restaurant.
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(userRows("admin"))
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM user_permissions WHERE user_id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"permission"}))
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(userRows("admin"))
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM restaurants WHERE owner_id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(restaurantRows("1234"))

	req := httptest.NewRequest("GET", "/dashboard/restaurant", nil)
	req.AddCookie(env.sessionCookie(t, permissions.RoleAdmin))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "casa-nora")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestDashboardHomeListsAuthorizedNav(t *testing.T) {
	env := newTestEnv(t)

	// The home payload carries the sidebar items derived from the same
	// permission set that authorized the request.
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(userRows("user"))
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM user_permissions WHERE user_id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"permission"}).
			AddRow("account:view").
			AddRow("menu:view"))
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(userRows("user"))
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM restaurants WHERE owner_id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(restaurantRows("1234"))

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.AddCookie(env.sessionCookie(t, permissions.RoleUser))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"/dashboard/menu"`)
	assert.Contains(t, body, `"/dashboard/account"`)
	assert.NotContains(t, body, `"/dashboard/orders"`)
	assert.NotContains(t, body, `"/dashboard/admin/users"`)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestDashboardDeniesUserWithoutGrants(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(userRows("user"))
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM user_permissions WHERE user_id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"permission"}))

	req := httptest.NewRequest("GET", "/dashboard/restaurant", nil)
	req.AddCookie(env.sessionCookie(t, permissions.RoleUser))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/access-denied", rec.Header().Get("Location"))
}

func TestRestaurantOnboarding(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(userRows("admin"))
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM user_permissions WHERE user_id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"permission"}))
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(userRows("admin"))
	// No restaurant yet: tenant scope passes through so onboarding can run.
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM restaurants WHERE owner_id = $1")).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(userRows("admin"))
	env.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO restaurants")).
		WithArgs(int64(42), "casa-nora", "Casa Nora", "", "", "", "", "EUR", "1234",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	body := strings.NewReader(`{"slug":"casa-nora","name":"Casa Nora","currency":"EUR","waiter_code":"1234"}`)
	req := httptest.NewRequest("POST", "/dashboard/restaurant", body)
	req.AddCookie(env.sessionCookie(t, permissions.RoleAdmin))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "casa-nora")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestAccessDeniedPage(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest("GET", "/access-denied", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
