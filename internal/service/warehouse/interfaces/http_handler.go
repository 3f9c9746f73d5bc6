package interfaces

import (
	"errors"
	"net/http"

	"ecommerce/internal/pkg/api"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/warehouse/application"
	"ecommerce/internal/service/warehouse/domain"
)

const listLimit = 20

// PackagingHandler 是仓库后端的打包接口，只允许后端调用方访问
type PackagingHandler struct {
	service *application.PackagingService
}

func NewPackagingHandler(service *application.PackagingService) *PackagingHandler {
	return &PackagingHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *PackagingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /backend/warehouse/packaging", api.RequireIAM(http.StatusForbidden, h.handleList))
	mux.HandleFunc("GET /backend/warehouse/packaging/{orderId}", api.RequireIAM(http.StatusForbidden, h.handleGet))
	mux.HandleFunc("POST /backend/warehouse/packaging/{orderId}/start", api.RequireIAM(http.StatusForbidden, h.handleStart))
	mux.HandleFunc("PUT /backend/warehouse/packaging/{orderId}/products", api.RequireIAM(http.StatusForbidden, h.handleSetProducts))
	mux.HandleFunc("POST /backend/warehouse/packaging/{orderId}/complete", api.RequireIAM(http.StatusForbidden, h.handleComplete))
}

func (h *PackagingHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListNew(r.Context(), r.URL.Query().Get("nextToken"), listLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, list)
}

func (h *PackagingHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.service.Get(r.Context(), r.PathValue("orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, pkg)
}

func (h *PackagingHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.service.Start(r.Context(), r.PathValue("orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, pkg)
}

func (h *PackagingHandler) handleComplete(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.service.Complete(r.Context(), r.PathValue("orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, pkg)
}

func (h *PackagingHandler) handleSetProducts(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Products []application.QuantityUpdate `json:"products"`
	}
	if err := api.DecodeBody(r, &body); err != nil {
		api.Message(w, http.StatusBadRequest, "Failed to parse JSON body")
		return
	}
	if body.Products == nil {
		api.Message(w, http.StatusBadRequest, "Missing 'products' in body")
		return
	}
	pkg, err := h.service.SetQuantities(r.Context(), r.PathValue("orderId"), body.Products)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, pkg)
}

// writeError 根据错误类型返回不同的 HTTP 状态码
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrPackagingNotFound):
		api.Message(w, http.StatusNotFound, "Packaging request not found")
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInvalidUpdate):
		api.Message(w, http.StatusBadRequest, err.Error())
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("warehouse request failed")
		api.Message(w, http.StatusInternalServerError, "Internal error")
	}
}
