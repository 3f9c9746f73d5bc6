package interfaces

import (
	"context"
	"errors"
	"net/http"

	"ecommerce/internal/pkg/api"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/delivery/application"
	"ecommerce/internal/service/delivery/domain"
)

const listLimit = 20

// DeliveryHandler 是配送人员使用的后端接口
type DeliveryHandler struct {
	service *application.DeliveryService
}

func NewDeliveryHandler(service *application.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *DeliveryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /backend/delivery/deliveries", api.RequireIAM(http.StatusForbidden, h.handleList))
	mux.HandleFunc("GET /backend/delivery/deliveries/{orderId}", api.RequireIAM(http.StatusForbidden, h.handleGet))
	mux.HandleFunc("POST /backend/delivery/deliveries/{orderId}/start", api.RequireIAM(http.StatusForbidden, h.transition(h.service.Start)))
	mux.HandleFunc("POST /backend/delivery/deliveries/{orderId}/complete", api.RequireIAM(http.StatusForbidden, h.transition(h.service.Complete)))
	mux.HandleFunc("POST /backend/delivery/deliveries/{orderId}/fail", api.RequireIAM(http.StatusForbidden, h.transition(h.service.Fail)))
}

func (h *DeliveryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListNew(r.Context(), r.URL.Query().Get("nextToken"), listLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, list)
}

func (h *DeliveryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), r.PathValue("orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, d)
}

type transitionFunc func(ctx context.Context, orderID string) (*domain.Delivery, error)

func (h *DeliveryHandler) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := fn(r.Context(), r.PathValue("orderId"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.JSON(w, http.StatusOK, d)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrDeliveryNotFound):
		api.Message(w, http.StatusNotFound, "Delivery not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		api.Message(w, http.StatusBadRequest, err.Error())
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("delivery request failed")
		api.Message(w, http.StatusInternalServerError, "Internal error")
	}
}
