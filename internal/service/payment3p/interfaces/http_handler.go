package interfaces

import (
	"errors"
	"fmt"
	"net/http"

	"ecommerce/internal/pkg/api"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/payment3p/application"
)

// ProcessorHandler 暴露第三方支付模拟接口
type ProcessorHandler struct {
	service *application.ProcessorService
}

func NewProcessorHandler(service *application.ProcessorService) *ProcessorHandler {
	return &ProcessorHandler{service: service}
}

func (h *ProcessorHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+constants.Payment3PPreauthPath, h.handlePreauth)
	mux.HandleFunc("POST "+constants.Payment3PCheckPath, h.handleCheck)
	mux.HandleFunc("POST "+constants.Payment3PUpdateAmountPath, h.handleUpdateAmount)
	mux.HandleFunc("POST "+constants.Payment3PProcessPath, h.handleProcess)
	mux.HandleFunc("POST "+constants.Payment3PCancelPath, h.handleCancel)
}

// requestError 是返回给调用方的 400 消息
type requestError string

func (e requestError) Error() string { return string(e) }

type body map[string]any

func readBody(r *http.Request) (body, error) {
	var b body
	err := api.DecodeBody(r, &b)
	switch {
	case errors.Is(err, api.ErrEmptyBody), err == nil && b == nil:
		return nil, requestError("Missing body in event.")
	case err != nil:
		return nil, requestError("Failed to parse JSON body")
	}
	return b, nil
}

// truthy 与 JSON 调用方约定一致：缺失、null、""、0、false 都视为缺失
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	}
	return true
}

func (b body) str(key, where string) (string, error) {
	v := b[key]
	if !truthy(v) {
		return "", requestError(fmt.Sprintf("Missing '%s' in %s body.", key, where))
	}
	s, ok := v.(string)
	if !ok {
		return "", requestError(fmt.Sprintf("'%s' is not a string.", key))
	}
	return s, nil
}

func (b body) num(key, where string) (float64, error) {
	v := b[key]
	if !truthy(v) {
		return 0, requestError(fmt.Sprintf("Missing '%s' in %s body.", key, where))
	}
	n, ok := v.(float64)
	if !ok {
		return 0, requestError(fmt.Sprintf("'%s' is not a number.", key))
	}
	return n, nil
}

// tokenAndAmount 解析 check/updateAmount 的请求体
func tokenAndAmount(r *http.Request) (string, int, error) {
	b, err := readBody(r)
	if err != nil {
		return "", 0, err
	}
	token, err := b.str("paymentToken", "request")
	if err != nil {
		return "", 0, err
	}
	amount, err := b.num("amount", "request")
	if err != nil {
		return "", 0, err
	}
	if amount < 0 {
		return "", 0, requestError("'amount' should be a positive number.")
	}
	return token, int(amount), nil
}

func tokenOnly(r *http.Request) (string, error) {
	b, err := readBody(r)
	if err != nil {
		return "", err
	}
	return b.str("paymentToken", "request")
}

func (h *ProcessorHandler) handlePreauth(w http.ResponseWriter, r *http.Request) {
	b, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cardNumber, err := b.num("cardNumber", "event")
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := b.num("amount", "event")
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.service.Preauth(r.Context(), int64(cardNumber), int(amount))
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("Error storing payment token in database")
		api.Message(w, http.StatusInternalServerError, "Failed to generate a token")
		return
	}
	api.JSON(w, http.StatusOK, map[string]string{"paymentToken": token})
}

func (h *ProcessorHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	token, amount, err := tokenAndAmount(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.service.Check(r.Context(), token, amount)
	writeResult(w, r, ok, err)
}

func (h *ProcessorHandler) handleUpdateAmount(w http.ResponseWriter, r *http.Request) {
	token, amount, err := tokenAndAmount(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.service.UpdateAmount(r.Context(), token, amount)
	writeResult(w, r, ok, err)
}

func (h *ProcessorHandler) handleProcess(w http.ResponseWriter, r *http.Request) {
	token, err := tokenOnly(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.service.Process(r.Context(), token)
	writeResult(w, r, ok, err)
}

func (h *ProcessorHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	token, err := tokenOnly(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.service.Cancel(r.Context(), token)
	writeResult(w, r, ok, err)
}

func writeResult(w http.ResponseWriter, r *http.Request, ok bool, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		api.Message(w, http.StatusBadRequest, reqErr.Error())
		return
	}
	logger.Ctx(r.Context()).Error().Err(err).Msg("payment processor request failed")
	api.Message(w, http.StatusInternalServerError, "Internal error")
}
