package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"ecommerce/internal/pkg/api"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/products/application"
	"ecommerce/internal/service/products/domain"
)

// ProductHandler 是商品目录的公开接口和后端接口
type ProductHandler struct {
	service *application.CatalogService
}

func NewProductHandler(service *application.CatalogService) *ProductHandler {
	return &ProductHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *ProductHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", h.handleList)
	mux.HandleFunc("GET /products/{productId}", h.handleGet)
	mux.HandleFunc("POST "+constants.ProductsValidatePath, api.RequireIAM(http.StatusForbidden, h.handleValidate))
	mux.HandleFunc("PUT /backend/products/{productId}", api.RequireIAM(http.StatusForbidden, h.handlePut))
	mux.HandleFunc("DELETE /backend/products/{productId}", api.RequireIAM(http.StatusForbidden, h.handleDelete))
}

func (h *ProductHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if productID == "" {
		api.Message(w, http.StatusBadRequest, "Missing productId")
		return
	}
	p, err := h.service.Get(r.Context(), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, p)
}

func (h *ProductHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), r.URL.Query().Get("nextToken"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, list)
}

type validateRequest struct {
	Products []map[string]any `json:"products"`
}

type validateResponse struct {
	Message  string `json:"message"`
	Products []any  `json:"products,omitempty"`
}

func (h *ProductHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := api.DecodeBody(r, &req); err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("failed to parse validate body")
		api.Message(w, http.StatusBadRequest, "Failed to parse JSON body")
		return
	}
	if req.Products == nil {
		api.Message(w, http.StatusBadRequest, "Missing 'products' in body")
		return
	}

	invalid, reason, err := h.service.Validate(r.Context(), req.Products)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(invalid) > 0 {
		api.JSON(w, http.StatusBadRequest, validateResponse{Message: reason, Products: invalid})
		return
	}
	api.Message(w, http.StatusOK, "All products are valid")
}

func (h *ProductHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := api.DecodeBody(r, &p); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, api.ErrEmptyBody) {
			api.Message(w, http.StatusBadRequest, "Failed to parse JSON body")
			return
		}
		api.Messagef(w, http.StatusBadRequest, "Invalid product: %v", err)
		return
	}
	if p.Name == "" {
		api.Message(w, http.StatusBadRequest, "Missing 'name' in body")
		return
	}
	p.ProductID = r.PathValue("productId")

	saved, err := h.service.Put(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, saved)
}

func (h *ProductHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("productId")); err != nil {
		writeError(w, r, err)
		return
	}
	api.Message(w, http.StatusOK, "Product deleted")
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		api.Message(w, http.StatusNotFound, "Product Not Found")
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("products request failed")
		api.Message(w, http.StatusInternalServerError, "Internal error")
	}
}
