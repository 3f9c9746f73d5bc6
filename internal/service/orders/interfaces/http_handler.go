package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"ecommerce/internal/pkg/api"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/orders/application"
	"ecommerce/internal/service/orders/domain"
)

// OrderHandler 封装了 orders 服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderService
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.handleCreateOrder)
	mux.HandleFunc("GET /orders", h.handleListOrders)
	mux.HandleFunc("GET /orders/{orderId}", h.handleGetOrder)
	mux.HandleFunc("POST /backend/orders", api.RequireIAM(http.StatusForbidden, h.handleCreateBackendOrder))
	mux.HandleFunc("GET /backend/orders/{orderId}", api.RequireIAM(http.StatusForbidden, h.handleGetOrder))
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFrom(r.Context())
	if !id.IsUser() {
		api.Message(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var body struct {
		Order json.RawMessage `json:"order"`
	}
	if err := api.DecodeBody(r, &body); err != nil {
		api.Message(w, http.StatusBadRequest, "Failed to parse JSON body")
		return
	}
	h.createOrder(w, r, id.UserID, body.Order)
}

func (h *OrderHandler) handleCreateBackendOrder(w http.ResponseWriter, r *http.Request) {
	var req application.CreateOrderRequest
	if err := api.DecodeBody(r, &req); err != nil {
		api.Message(w, http.StatusBadRequest, "Failed to parse JSON body")
		return
	}
	h.createOrder(w, r, req.UserID, req.Order)
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request, userID string, order json.RawMessage) {
	res, err := h.service.CreateOrder(r.Context(), userID, order)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("failed to create order")
		api.Message(w, http.StatusInternalServerError, "Internal error")
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	api.JSON(w, status, res)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFrom(r.Context())
	if id.Anonymous() {
		api.Message(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	orderID := r.PathValue("orderId")
	if orderID == "" {
		api.Message(w, http.StatusBadRequest, "Missing orderId")
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID, id.UserID, id.IsIAM())
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		api.Message(w, http.StatusNotFound, "Order not found")
	case err != nil:
		logger.Ctx(r.Context()).Error().Err(err).Str("orderId", orderID).Msg("failed to get order")
		api.Message(w, http.StatusInternalServerError, "Internal error")
	default:
		api.JSON(w, http.StatusOK, order)
	}
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFrom(r.Context())
	if !id.IsUser() {
		api.Message(w, http.StatusForbidden, "Forbidden")
		return
	}
	res, err := h.service.ListOrders(r.Context(), id.UserID, r.URL.Query().Get("nextToken"))
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("failed to list orders")
		api.Message(w, http.StatusInternalServerError, "Internal error")
		return
	}
	api.JSON(w, http.StatusOK, res)
}
