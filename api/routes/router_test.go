package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/analytics"
	"github.com/angelmondragon/marketplace-backend/internal/cart"
	"github.com/angelmondragon/marketplace-backend/internal/catalog"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/pkg/auth"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
)

type testServer struct {
	t      *testing.T
	cfg    *config.Config
	conn   *gorm.DB
	server *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		App:       config.AppConfig{Env: "test"},
		JWT:       config.JWTConfig{Secret: "router-secret", Issuer: "marketplace-test", ExpirationMinutes: 30},
		RateLimit: config.RateLimitConfig{CheckoutWindow: time.Minute, CheckoutLimit: 10},
	}
	conn := dbtest.Open(t)
	dbClient := db.Wrap(conn)
	products := catalog.NewRepository(conn)

	cartSvc, err := cart.NewService(cart.NewRepository(conn), products, dbClient)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(conn),
		Catalog:  products,
		Cart:     cartSvc,
		Tx:       dbClient,
		Metrics:  metrics.NewOrderMetrics(reg),
		Logger:   logger.Nop(),
		Settings: orders.DefaultSettings(),
	})
	require.NoError(t, err)

	statsSvc, err := analytics.NewService(analytics.NewRepository(conn), analytics.DefaultWindow)
	require.NoError(t, err)

	router := NewRouter(Dependencies{
		Config:    cfg,
		Logger:    logger.Nop(),
		DB:        dbClient,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Cart:      cartSvc,
		Orders:    ordersSvc,
		Analytics: statsSvc,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{t: t, cfg: cfg, conn: conn, server: server}
}

func (s *testServer) token(role enums.Role) (string, uuid.UUID) {
	s.t.Helper()
	id := uuid.New()
	token, err := auth.MintAccessToken(s.cfg.JWT, time.Now(), auth.Principal{UserID: id, Role: role})
	require.NoError(s.t, err)
	return token, id
}

func (s *testServer) do(method, path, token string, body any, headers map[string]string) (int, map[string]any) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(s.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var envelope map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(raw, &envelope))
	}
	return resp.StatusCode, envelope
}

func errorCode(envelope map[string]any) string {
	errBody, _ := envelope["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func data(envelope map[string]any) map[string]any {
	d, _ := envelope["data"].(map[string]any)
	return d
}

func address() map[string]string {
	return map[string]string{
		"street": "1 Market St", "city": "Springfield", "state": "IL",
		"country": "US", "zip_code": "62701", "phone": "+15550100",
	}
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(http.MethodGet, "/health/live", "", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = s.do(http.MethodGet, "/health/ready", "", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", data(body)["status"])

	status, _ = s.do(http.MethodGet, "/metrics", "", nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAuthAndRoleGuards(t *testing.T) {
	s := newTestServer(t)
	customerToken, _ := s.token(enums.RoleCustomer)
	sellerToken, _ := s.token(enums.RoleSeller)

	status, body := s.do(http.MethodGet, "/api/v1/cart", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = s.do(http.MethodGet, "/api/v1/seller/orders", customerToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, _ = s.do(http.MethodGet, "/api/v1/cart", sellerToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(http.MethodPost, "/api/v1/orders", customerToken, map[string]any{"from_cart": true}, nil)
	assert.Equal(t, http.StatusBadRequest, status, "idempotency key is required on order creation")
	assert.Equal(t, "INVALID_REQUEST", errorCode(body))
}

func TestCheckoutToDeliveryFlow(t *testing.T) {
	s := newTestServer(t)
	customerToken, _ := s.token(enums.RoleCustomer)
	sellerToken, sellerID := s.token(enums.RoleSeller)

	product := dbtest.SeedProduct(t, s.conn, models.Product{
		SellerID: sellerID, Title: "Lamp", PriceCents: 2500, Stock: 5, IsActive: true,
	})
	productPath := "/api/v1/cart/" + product.ID.String()

	status, _ := s.do(http.MethodPost, productPath, customerToken, map[string]int{"quantity": 3}, nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := s.do(http.MethodPost, productPath, customerToken, map[string]int{"quantity": 3}, nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(body))

	status, body = s.do(http.MethodGet, "/api/v1/cart", customerToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 7500, data(body)["total_cents"])

	status, body = s.do(http.MethodPost, "/api/v1/orders", customerToken, map[string]any{
		"from_cart":        true,
		"shipping_address": address(),
		"payment_method":   "cod",
	}, map[string]string{"Idempotency-Key": "checkout-1"})
	require.Equal(t, http.StatusCreated, status, "body: %v", body)
	order := data(body)
	orderID, _ := order["id"].(string)
	require.NotEmpty(t, orderID)
	assert.EqualValues(t, 7500, order["total_amount_cents"])
	assert.EqualValues(t, 0, order["shipping_charge_cents"])
	assert.EqualValues(t, 750, order["tax_amount_cents"])
	assert.EqualValues(t, 8250, order["final_amount_cents"])
	assert.Equal(t, 2, dbtest.Stock(t, s.conn, product.ID))

	status, body = s.do(http.MethodGet, "/api/v1/cart", customerToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, data(body)["item_count"])

	statusPath := fmt.Sprintf("/api/v1/seller/orders/%s/status", orderID)
	status, body = s.do(http.MethodPut, statusPath, sellerToken, map[string]string{"status": "delivered"}, nil)
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	for _, next := range []string{"processing", "shipped"} {
		status, body = s.do(http.MethodPut, statusPath, sellerToken, map[string]string{"status": next}, nil)
		require.Equal(t, http.StatusOK, status, "transition to %s: %v", next, body)
		assert.Equal(t, next, data(body)["order_status"])
	}

	status, body = s.do(http.MethodPut, statusPath, sellerToken, map[string]string{"status": "delivered"}, nil)
	require.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, "PRECONDITION_FAILED", errorCode(body))

	paymentPath := fmt.Sprintf("/api/v1/seller/orders/%s/payment-status", orderID)
	status, body = s.do(http.MethodPut, paymentPath, sellerToken, map[string]string{"payment_status": "paid"}, nil)
	require.Equal(t, http.StatusOK, status, "payment: %v", body)

	status, body = s.do(http.MethodPut, statusPath, sellerToken, map[string]string{"status": "delivered"}, nil)
	require.Equal(t, http.StatusOK, status, "deliver: %v", body)
	assert.NotNil(t, data(body)["delivered_at"])

	status, body = s.do(http.MethodGet, "/api/v1/seller/stats", sellerToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	stats := data(body)
	assert.EqualValues(t, 7500, stats["total_revenue_cents"])
	assert.EqualValues(t, 3, stats["items_sold"])

	status, body = s.do(http.MethodGet, "/api/v1/orders?status=delivered", customerToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	items, _ := data(body)["items"].([]any)
	assert.Len(t, items, 1)
}

func TestCustomerCancelRestoresStock(t *testing.T) {
	s := newTestServer(t)
	customerToken, _ := s.token(enums.RoleCustomer)
	otherToken, _ := s.token(enums.RoleCustomer)
	product := dbtest.SeedProduct(t, s.conn, models.Product{
		SellerID: uuid.New(), Title: "Mug", PriceCents: 1200, Stock: 4, IsActive: true,
	})

	status, body := s.do(http.MethodPost, "/api/v1/orders", customerToken, map[string]any{
		"items":            []map[string]any{{"product_id": product.ID, "quantity": 2}},
		"shipping_address": address(),
		"payment_method":   "card",
	}, map[string]string{"Idempotency-Key": "mug-1"})
	require.Equal(t, http.StatusCreated, status, "body: %v", body)
	orderID, _ := data(body)["id"].(string)
	assert.Equal(t, 2, dbtest.Stock(t, s.conn, product.ID))

	status, _ = s.do(http.MethodGet, "/api/v1/orders/"+orderID, otherToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	cancelPath := fmt.Sprintf("/api/v1/orders/%s/cancel", orderID)
	status, body = s.do(http.MethodPut, cancelPath, customerToken, map[string]string{"reason": "ordered by mistake"}, nil)
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	assert.Equal(t, "cancelled", data(body)["order_status"])
	assert.Equal(t, 4, dbtest.Stock(t, s.conn, product.ID))

	status, _ = s.do(http.MethodPut, cancelPath, customerToken, map[string]string{"reason": "again"}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 4, dbtest.Stock(t, s.conn, product.ID))
}
