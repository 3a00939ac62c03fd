package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahawahub/kahawa/backend/internal/config"
	"github.com/kahawahub/kahawa/backend/internal/entity"
	"github.com/kahawahub/kahawa/backend/internal/messaging"
	"github.com/kahawahub/kahawa/backend/internal/repository/memory"
	"github.com/kahawahub/kahawa/backend/internal/service"
)

const (
	customerToken = "test-customer-token"
	adminToken    = "test-admin-token"
)

func newTestServer(t *testing.T, production bool) *httptest.Server {
	t.Helper()

	store := memory.NewStore(0.16)
	err := store.Products().Seed(context.Background(), []entity.Product{
		{
			ID: "prod-001", Name: "Kiambu AA Single Origin", Price: 650,
			SizePrices: map[string]float64{"250g": 500, "500g": 950},
			Stock:      10, LowStockThreshold: 5, Active: true,
		},
	})
	require.NoError(t, err)

	settings := config.StoreSettings{TaxRate: 0.16, FreeShippingThreshold: 5000}
	orders := service.NewOrderService(store.Orders(), messaging.NopPublisher{}, settings)
	catalog := service.NewCatalogService(store.Products())
	handler := NewHandler(orders, catalog, production)

	verifier := StaticVerifier{
		customerToken: {UserID: "user-1", Role: entity.RoleCustomer},
		adminToken:    {UserID: "admin-1", Role: entity.RoleAdmin},
	}

	srv := httptest.NewServer(handler.Routes(verifier))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func validOrderBody() map[string]any {
	return map[string]any{
		"shippingAddress": map[string]any{
			"firstName": "Wanjiku", "lastName": "Kamau",
			"email": "wanjiku@example.com", "phone": "+254712345678",
			"street": "Moi Avenue", "city": "Nairobi",
			"county": "Nairobi", "country": "Kenya", "postalCode": "00100",
		},
		"paymentMethod": "mpesa",
		"items": []map[string]any{
			{"productId": "prod-001", "name": "Kiambu AA Single Origin", "price": 500, "quantity": 2, "size": "250g"},
		},
		"shippingCost": 200,
		"totalAmount":  1360,
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false)

	resp, env := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestListProducts(t *testing.T) {
	srv := newTestServer(t, false)

	resp, env := doJSON(t, srv, http.MethodGet, "/products", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var products []entity.Product
	require.NoError(t, json.Unmarshal(raw, &products))
	require.Len(t, products, 1)
	assert.Equal(t, "prod-001", products[0].ID)
	assert.Equal(t, 500.0, products[0].SizePrices["250g"])
}

func TestGetProductNotFound(t *testing.T) {
	srv := newTestServer(t, false)

	resp, env := doJSON(t, srv, http.MethodGet, "/products/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestCreateOrder(t *testing.T) {
	srv := newTestServer(t, false)

	resp, env := doJSON(t, srv, http.MethodPost, "/orders", customerToken, validOrderBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var order entity.Order
	require.NoError(t, json.Unmarshal(raw, &order))
	assert.Regexp(t, `^ORD-\d{8}-[A-Z0-9]{6}$`, order.OrderNumber)
	assert.Equal(t, entity.StatusConfirmed, order.Status)
	assert.Equal(t, 1360.0, order.Total)
	assert.Equal(t, 500.0, order.Items[0].UnitPrice)
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	srv := newTestServer(t, false)

	resp, _ := doJSON(t, srv, http.MethodPost, "/orders", "", validOrderBody())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/orders", "wrong-token", validOrderBody())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateOrderAdminForbidden(t *testing.T) {
	srv := newTestServer(t, false)

	resp, env := doJSON(t, srv, http.MethodPost, "/orders", adminToken, validOrderBody())
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestCreateOrderTamperedTotalHiddenInProduction(t *testing.T) {
	body := validOrderBody()
	body["items"] = []map[string]any{
		{"productId": "prod-001", "name": "x", "price": 1, "quantity": 2, "size": "250g"},
	}
	body["totalAmount"] = 234.32

	srv := newTestServer(t, false)
	resp, env := doJSON(t, srv, http.MethodPost, "/orders", customerToken, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Message, "does not match computed total")

	prod := newTestServer(t, true)
	resp, env = doJSON(t, prod, http.MethodPost, "/orders", customerToken, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "amount validation failed, please refresh your cart", env.Message)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	srv := newTestServer(t, false)

	body := validOrderBody()
	body["items"] = []map[string]any{
		{"productId": "prod-001", "name": "x", "price": 500, "quantity": 11, "size": "250g"},
	}
	body["totalAmount"] = 6612

	resp, env := doJSON(t, srv, http.MethodPost, "/orders", customerToken, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Message, "insufficient stock")
}

func TestCreateOrderMalformedBody(t *testing.T) {
	srv := newTestServer(t, false)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/orders", bytes.NewBufferString("{nope"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+customerToken)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func placeOrderHTTP(t *testing.T, srv *httptest.Server) entity.Order {
	t.Helper()
	resp, env := doJSON(t, srv, http.MethodPost, "/orders", customerToken, validOrderBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var order entity.Order
	require.NoError(t, json.Unmarshal(raw, &order))
	return order
}

func TestGetOrder(t *testing.T) {
	srv := newTestServer(t, false)
	order := placeOrderHTTP(t, srv)

	resp, env := doJSON(t, srv, http.MethodGet, "/orders/"+order.ID, customerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, _ = doJSON(t, srv, http.MethodGet, "/orders/"+order.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/orders/not-a-uuid", customerToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMyOrdersPagination(t *testing.T) {
	srv := newTestServer(t, false)
	for i := 0; i < 3; i++ {
		placeOrderHTTP(t, srv)
	}

	resp, env := doJSON(t, srv, http.MethodGet, "/orders/my?page=1&limit=2", customerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var paged struct {
		Items []entity.Order `json:"items"`
		Page  int            `json:"page"`
		Limit int            `json:"limit"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(raw, &paged))
	assert.Len(t, paged.Items, 2)
	assert.Equal(t, 1, paged.Page)
	assert.Equal(t, 2, paged.Limit)
	assert.Equal(t, 3, paged.Total)
}

func TestListOrdersAdminOnly(t *testing.T) {
	srv := newTestServer(t, false)
	placeOrderHTTP(t, srv)

	resp, _ := doJSON(t, srv, http.MethodGet, "/orders", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env := doJSON(t, srv, http.MethodGet, "/orders?status=confirmed", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, _ = doJSON(t, srv, http.MethodGet, "/orders?startDate=bogus", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateOrderStatus(t *testing.T) {
	srv := newTestServer(t, false)
	order := placeOrderHTTP(t, srv)
	path := fmt.Sprintf("/orders/%s/status", order.ID)

	resp, _ := doJSON(t, srv, http.MethodPut, path, customerToken, map[string]any{"status": "processing"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env := doJSON(t, srv, http.MethodPut, path, adminToken, map[string]any{"status": "processing"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)

	resp, env = doJSON(t, srv, http.MethodPut, path, adminToken, map[string]any{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Message, "cannot transition")
}

func TestShippingCost(t *testing.T) {
	srv := newTestServer(t, false)

	resp, env := doJSON(t, srv, http.MethodPost, "/orders/shipping-cost", "", map[string]any{
		"country": "Kenya", "county": "Nairobi", "subtotal": 1500,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var out map[string]float64
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 200.0, out["shippingCost"])

	// Above the free-shipping threshold.
	_, env = doJSON(t, srv, http.MethodPost, "/orders/shipping-cost", "", map[string]any{
		"country": "Kenya", "county": "Nairobi", "subtotal": 6000,
	})
	raw, err = json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 0.0, out["shippingCost"])
}
