// Package api 提供 HTTP 接口共用的响应封装、调用方身份解析和中间件
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	allowHeaders = "Content-Type,X-Amz-Date,Authorization,X-Api-Key,x-requested-with"
	allowOrigin  = "*"
	allowMethods = "GET,POST,PUT,DELETE,OPTIONS"
)

// ErrEmptyBody 表示请求体为空
var ErrEmptyBody = errors.New("api: empty request body")

// JSON 写出 JSON 响应，附带网关要求的 CORS 头
func JSON(w http.ResponseWriter, status int, body any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Access-Control-Allow-Headers", allowHeaders)
	h.Set("Access-Control-Allow-Origin", allowOrigin)
	h.Set("Access-Control-Allow-Methods", allowMethods)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Message 写出 {"message": msg}
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// Messagef 与 Message 相同，支持格式化
func Messagef(w http.ResponseWriter, status int, format string, args ...any) {
	Message(w, status, fmt.Sprintf(format, args...))
}

// DecodeBody 解析 JSON 请求体
func DecodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}
	return err
}
