package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString([]byte("gateway-secret"))
	require.NoError(t, err)
	return token
}

func TestIdentityFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/orders", nil)
	assert.True(t, IdentityFromRequest(r).Anonymous())

	r.Header.Set("Authorization", "Bearer "+signedToken(t, "user-1"))
	id := IdentityFromRequest(r)
	assert.True(t, id.IsUser())
	assert.False(t, id.IsIAM())
	assert.Equal(t, "user-1", id.UserID)

	r.Header.Set(HeaderCallerArn, "arn:aws:iam::123456789012:role/delivery")
	assert.True(t, IdentityFromRequest(r).IsIAM())
}

func TestIdentityFromRequest_GarbageToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/orders", nil)
	r.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.True(t, IdentityFromRequest(r).Anonymous())
}

func TestJSON_SetsCorsHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	Message(w, http.StatusBadRequest, "Missing 'products' in body")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,POST,PUT,DELETE,OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.JSONEq(t, `{"message":"Missing 'products' in body"}`, w.Body.String())
}

func TestDecodeBody_Empty(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(""))
	var v map[string]any
	assert.ErrorIs(t, DecodeBody(r, &v), ErrEmptyBody)
}

func TestRequireIAM(t *testing.T) {
	h := Chain(http.HandlerFunc(RequireIAM(http.StatusForbidden, func(w http.ResponseWriter, r *http.Request) {
		Message(w, http.StatusOK, "ok")
	})), Identify())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/backend/pricing", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	r := httptest.NewRequest(http.MethodPost, "/backend/pricing", nil)
	r.Header.Set(HeaderCallerArn, "arn:aws:iam::123456789012:role/orders")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChain_RecordsRouteAndStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		Message(w, http.StatusNotFound, "Order not found")
	})

	var seen *statusRecorder
	peek := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = record(w)
			next.ServeHTTP(seen, r)
		})
	}
	h := Chain(Routed(mux), peek, WithTracing("test"), WithLogging(), WithMetrics("test"), Identify())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/o-1", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "GET /orders/{orderId}", seen.route())
	assert.Equal(t, http.StatusNotFound, seen.status)
}
