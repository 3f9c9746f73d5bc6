package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/metrics"
)

// Middleware 包装 http.Handler
type Middleware func(http.Handler) http.Handler

// Chain 按顺序应用中间件，第一个在最外层
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// statusRecorder 记录响应码和匹配到的路由；websocket 升级需要 Hijack
type statusRecorder struct {
	http.ResponseWriter
	status  int
	pattern string
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("api: response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func record(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) route() string {
	if r.pattern != "" {
		return r.pattern
	}
	return "unmatched"
}

// Routed 包装 ServeMux，把匹配到的路由模式记录下来供外层中间件使用。
// 它必须是 Chain 中最内层的 handler。
func Routed(mux http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := record(w)
		mux.ServeHTTP(rec, r)
		rec.pattern = r.Pattern
	})
}

// WithTracing 从请求头恢复追踪上下文并创建 server span
func WithTracing(serviceName string) Middleware {
	tracer := otel.Tracer(serviceName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			rec := record(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			span.SetName(r.Method + " " + rec.route())
			span.SetAttributes(
				attribute.String("http.route", rec.route()),
				attribute.Int("http.status_code", rec.status),
			)
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}
		})
	}
}

// WithLogging 记录每个请求的结果
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			ev := logger.Ctx(r.Context()).Info()
			if rec.status >= http.StatusInternalServerError {
				ev = logger.Ctx(r.Context()).Error()
			}
			ev.Str("method", r.Method).
				Str("route", rec.route()).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

// WithMetrics 统计请求数与耗时
func WithMetrics(serviceName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)
			metrics.HTTPRequestDuration.WithLabelValues(serviceName, rec.route()).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(serviceName, rec.route(), strconv.Itoa(rec.status)).Inc()
		})
	}
}

// Identify 解析调用方身份并放进 ctx
func Identify() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithIdentity(r.Context(), IdentityFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIAM 只允许后端服务调用，其余请求返回 status
func RequireIAM(status int, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFrom(r.Context()).IsIAM() {
			Message(w, status, "Unauthorized")
			return
		}
		next(w, r)
	}
}
