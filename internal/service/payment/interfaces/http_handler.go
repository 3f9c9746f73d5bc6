package interfaces

import (
	"encoding/json"
	"net/http"

	"ecommerce/internal/pkg/api"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/payment/application"
)

// ValidateHandler 供订单服务在创建订单时校验支付令牌
type ValidateHandler struct {
	service *application.PaymentService
}

func NewValidateHandler(service *application.PaymentService) *ValidateHandler {
	return &ValidateHandler{service: service}
}

func (h *ValidateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+constants.PaymentValidatePath, api.RequireIAM(http.StatusUnauthorized, h.handleValidate))
}

func (h *ValidateHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := api.DecodeBody(r, &body); err != nil {
		api.Message(w, http.StatusBadRequest, "Failed to parse JSON body")
		return
	}
	for _, key := range []string{"paymentToken", "total"} {
		if _, ok := body[key]; !ok {
			logger.Ctx(r.Context()).Warn().Msgf("Missing '%s' in request body.", key)
			api.Messagef(w, http.StatusBadRequest, "Missing '%s' in request body.", key)
			return
		}
	}
	var (
		token string
		total int
	)
	if json.Unmarshal(body["paymentToken"], &token) != nil || json.Unmarshal(body["total"], &total) != nil {
		api.Message(w, http.StatusBadRequest, "Failed to parse JSON body")
		return
	}

	ok, err := h.service.Validate(r.Context(), token, total)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("failed to contact the payment processor")
		ok = false
	}
	api.JSON(w, http.StatusOK, map[string]bool{"ok": ok})
}
