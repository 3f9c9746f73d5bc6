// Package apitest 提供 HTTP handler 测试用的请求构造工具
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"ecommerce/internal/pkg/api"
)

// Token 返回一个 sub 为 userID 的 JWT；签名不会被校验
func Token(t testing.TB, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID}).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

// Request 构造一个 JSON 请求；body 为 nil 时没有请求体
func Request(t testing.TB, method, target string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	return httptest.NewRequest(method, target, reader)
}

// AsUser 给请求加上用户身份
func AsUser(t testing.TB, r *http.Request, userID string) *http.Request {
	r.Header.Set("Authorization", "Bearer "+Token(t, userID))
	return r
}

// AsIAM 给请求加上后端调用方身份
func AsIAM(r *http.Request, arn string) *http.Request {
	r.Header.Set(api.HeaderCallerArn, arn)
	return r
}

// Serve 让请求经过身份解析中间件和 mux，返回记录的响应
func Serve(mux http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	api.Chain(mux, api.Identify()).ServeHTTP(w, r)
	return w
}

// Decode 解析响应体
func Decode(t testing.TB, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
