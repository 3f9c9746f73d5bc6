package interfaces

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ecommerce/internal/pkg/api"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/users/application"
	"ecommerce/internal/service/users/domain"
)

// SignUpHandler 接收身份提供方的 pre-sign-up 回调
type SignUpHandler struct {
	service *application.SignUpService
}

func NewSignUpHandler(service *application.SignUpService) *SignUpHandler {
	return &SignUpHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *SignUpHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /backend/users/sign-up", api.RequireIAM(http.StatusForbidden, h.handleSignUp))
}

// handleSignUp 原样返回回调内容，只替换 response 字段
func (h *SignUpHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Message(w, http.StatusBadRequest, "Failed to read body")
		return
	}
	var (
		raw     map[string]json.RawMessage
		trigger domain.SignUpTrigger
	)
	if err := json.Unmarshal(body, &raw); err != nil || json.Unmarshal(body, &trigger) != nil {
		api.Message(w, http.StatusBadRequest, "Failed to parse JSON body")
		return
	}

	if _, err := h.service.OnSignUp(r.Context(), trigger); err != nil {
		if errors.Is(err, domain.ErrInvalidTrigger) {
			api.Message(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Ctx(r.Context()).Error().Err(err).Msg("sign-up failed")
		api.Message(w, http.StatusInternalServerError, "Internal error")
		return
	}

	response, _ := json.Marshal(domain.SignUpResponse{})
	raw["response"] = response
	api.JSON(w, http.StatusOK, raw)
}
