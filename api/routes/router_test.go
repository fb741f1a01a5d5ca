package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/swapmeet-backend/internal/cart"
	"github.com/angelmondragon/swapmeet-backend/internal/notifications"
	pkgAuth "github.com/angelmondragon/swapmeet-backend/pkg/auth"
	"github.com/angelmondragon/swapmeet-backend/pkg/config"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	"github.com/angelmondragon/swapmeet-backend/pkg/metrics"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubCartService struct {
	cart.Service
}

func (stubCartService) GetCart(_ context.Context, buyerID uuid.UUID) (*cart.View, error) {
	return &cart.View{BuyerID: buyerID, Items: []cart.ViewItem{}}, nil
}

type stubNotificationService struct {
	notifications.Service
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "swapmeet"},
	}
}

func newTestRouter(t *testing.T, dbErr error) http.Handler {
	t.Helper()
	registry := prometheus.NewRegistry()
	metrics.NewEngineMetrics(registry).IncSettlement("created")
	return NewRouter(
		testConfig(),
		logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}),
		stubPinger{err: dbErr},
		nil,
		registry,
		nil,
		nil,
		stubCartService{},
		nil,
		nil,
		stubNotificationService{},
		nil,
		nil,
		nil,
		nil,
	)
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{UserID: userID})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Swapmeet-Env"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessFailsWhenDatabaseDown(t *testing.T) {
	router := newTestRouter(t, assert.AnError)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpointExposesEngineCounters(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "swapmeet_"), "expected swapmeet metrics in %q", rec.Body.String())
}

func TestAPIRequiresAuth(t *testing.T) {
	router := newTestRouter(t, nil)
	for _, target := range []string{"/api/v1/cart", "/api/v1/notifications", "/api/v1/offers/mine"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestAuthenticatedCartFetch(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", bearer(t, uuid.New()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookRouteAbsentWithoutStripe(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader("{}")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
