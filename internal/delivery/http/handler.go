// Package http exposes the storefront REST API.
package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kahawahub/kahawa/backend/internal/entity"
	"github.com/kahawahub/kahawa/backend/internal/repository"
	"github.com/kahawahub/kahawa/backend/internal/service"
)

// Handler handles HTTP requests for the application.
type Handler struct {
	orders     *service.OrderService
	catalog    *service.CatalogService
	production bool
}

func NewHandler(orders *service.OrderService, catalog *service.CatalogService, production bool) *Handler {
	return &Handler{
		orders:     orders,
		catalog:    catalog,
		production: production,
	}
}

// Routes builds the API router. Catalog and shipping lookups are public;
// everything touching orders requires a verified identity.
func (h *Handler) Routes(verifier TokenVerifier) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.handleHealth)
	r.Get("/products", h.handleListProducts)
	r.Get("/products/{id}", h.handleGetProduct)
	r.Post("/orders/shipping-cost", h.handleShippingCost)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(verifier))
		r.Post("/orders", h.handleCreateOrder)
		r.Get("/orders", h.handleListOrders)
		r.Get("/orders/my", h.handleMyOrders)
		r.Get("/orders/{id}", h.handleGetOrder)
		r.Put("/orders/{id}/status", h.handleUpdateStatus)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, product)
}

type orderItemPayload struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
}

type createOrderRequest struct {
	ShippingAddress entity.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	Items           []orderItemPayload     `json:"items"`
	Subtotal        float64                `json:"subtotal"`
	ShippingCost    float64                `json:"shippingCost"`
	Tax             float64                `json:"tax"`
	TotalAmount     float64                `json:"totalAmount"`
	Notes           string                 `json:"notes"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := &entity.PlaceOrder{
		UserID:          identity.UserID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   entity.PaymentMethod(req.PaymentMethod),
		Items:           make([]entity.OrderItem, len(req.Items)),
		Subtotal:        req.Subtotal,
		ShippingCost:    req.ShippingCost,
		Tax:             req.Tax,
		TotalAmount:     req.TotalAmount,
		Notes:           req.Notes,
	}
	for i, item := range req.Items {
		cmd.Items[i] = entity.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
			Size:      item.Size,
		}
	}

	order, err := h.orders.PlaceOrder(r.Context(), identity, cmd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, order)
}

func (h *Handler) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 0)
	orders, pageInfo, err := h.orders.ListMine(r.Context(), identity, page, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, pagedData{
		Items: orders,
		Page:  pageInfo.Page,
		Limit: pageInfo.Limit,
		Total: pageInfo.Total,
	})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, order)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := repository.OrderFilter{
		Status: entity.OrderStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
	}
	var err error
	if filter.StartDate, err = queryDate(r, "startDate"); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid startDate")
		return
	}
	if filter.EndDate, err = queryDate(r, "endDate"); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid endDate")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 0)
	orders, pageInfo, err := h.orders.ListAll(r.Context(), identity, filter, page, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, pagedData{
		Items: orders,
		Page:  pageInfo.Page,
		Limit: pageInfo.Limit,
		Total: pageInfo.Total,
	})
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
	AdminNotes     string `json:"adminNotes"`
	Location       string `json:"location"`
	Message        string `json:"message"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := &entity.UpdateOrderStatus{
		Status:         entity.OrderStatus(req.Status),
		TrackingNumber: req.TrackingNumber,
		AdminNotes:     req.AdminNotes,
		Location:       req.Location,
		Message:        req.Message,
	}

	order, err := h.orders.UpdateStatus(r.Context(), identity, chi.URLParam(r, "id"), cmd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, order)
}

type shippingCostRequest struct {
	Country  string  `json:"country"`
	County   string  `json:"county"`
	Subtotal float64 `json:"subtotal"`
}

func (h *Handler) handleShippingCost(w http.ResponseWriter, r *http.Request) {
	var req shippingCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cost := h.orders.ShippingRateForOrder(req.Country, req.County, req.Subtotal)
	respondData(w, http.StatusOK, map[string]float64{"shippingCost": cost})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func queryDate(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
