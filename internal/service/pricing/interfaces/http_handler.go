package interfaces

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/api"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/pricing/domain"
)

// PricingHandler 计算订单运费，只允许后端调用
type PricingHandler struct {
	tracer trace.Tracer
}

func NewPricingHandler(tracer trace.Tracer) *PricingHandler {
	return &PricingHandler{tracer: tracer}
}

func (h *PricingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+constants.PricingPath, api.RequireIAM(http.StatusForbidden, h.handlePricing))
}

func (h *PricingHandler) handlePricing(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "pricing.Calculate")
	defer span.End()

	var body map[string]json.RawMessage
	if err := api.DecodeBody(r, &body); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("Failed to parse JSON body")
		api.Message(w, http.StatusBadRequest, "Failed to parse JSON body")
		return
	}
	for _, key := range []string{"products", "address"} {
		if _, ok := body[key]; !ok {
			logger.Ctx(ctx).Info().Msgf("Missing '%s' in body", key)
			api.Messagef(w, http.StatusBadRequest, "Missing '%s' in body", key)
			return
		}
	}

	var (
		products []domain.Product
		address  domain.Address
	)
	if json.Unmarshal(body["products"], &products) != nil || json.Unmarshal(body["address"], &address) != nil {
		api.Message(w, http.StatusBadRequest, "Failed to parse JSON body")
		return
	}

	pricing := domain.Price(products, address)
	span.SetAttributes(attribute.Int("delivery.pricing", pricing), attribute.String("address.country", address.Country))
	logger.Ctx(ctx).Debug().Int("pricing", pricing).Msgf("Estimated delivery pricing to %d", pricing)
	api.JSON(w, http.StatusOK, map[string]int{"pricing": pricing})
}
