// internal/pkg/httpclient/client.go

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/api"
)

// Resolver 把服务名解析为基础 URL，例如 http://10.0.0.3:8080
type Resolver interface {
	Resolve(ctx context.Context, service string) (string, error)
}

// StaticResolver 使用配置中的固定地址
type StaticResolver map[string]string

func (s StaticResolver) Resolve(_ context.Context, service string) (string, error) {
	base, ok := s[service]
	if !ok || base == "" {
		return "", fmt.Errorf("httpclient: no address configured for service %q", service)
	}
	return strings.TrimSuffix(base, "/"), nil
}

// FallbackResolver 依次尝试多个 Resolver
type FallbackResolver []Resolver

func (f FallbackResolver) Resolve(ctx context.Context, service string) (string, error) {
	var errs []error
	for _, r := range f {
		base, err := r.Resolve(ctx, service)
		if err == nil {
			return base, nil
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

// Client 是一个可追踪的、可注入的 HTTP 客户端，用于服务间的后端调用
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
	resolver   Resolver
	callerArn  string
}

// NewClient 创建客户端。callerArn 会作为 X-Caller-Arn 头发送，标识后端调用方
func NewClient(tracer trace.Tracer, resolver Resolver, callerArn string, timeout time.Duration) *Client {
	// 我们可以配置 Transport 来自定义连接池等行为
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
		resolver:   resolver,
		callerArn:  callerArn,
	}
}

// PostJSON 发送 JSON 请求体；响应体为 JSON 时解析到 out。返回 HTTP 状态码
func (c *Client) PostJSON(ctx context.Context, service, path string, body, out any) (int, error) {
	return c.Do(ctx, http.MethodPost, service, path, body, out)
}

// GetJSON 发送 GET 请求并解析 JSON 响应
func (c *Client) GetJSON(ctx context.Context, service, path string, out any) (int, error) {
	return c.Do(ctx, http.MethodGet, service, path, nil, out)
}

// Do 调用 service 的 path。只有网络、编码错误会返回 error，非 2xx 状态码由调用方判断
func (c *Client) Do(ctx context.Context, method, service, path string, body, out any) (int, error) {
	ctx, span := c.Tracer.Start(ctx, "call-"+service, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	fail := func(err error) (int, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	base, err := c.resolver.Resolve(ctx, service)
	if err != nil {
		return fail(err)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fail(fmt.Errorf("httpclient: encode body for %s: %w", service, err))
		}
		reader = bytes.NewReader(raw)
	}

	url := base + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fail(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.callerArn != "" {
		req.Header.Set(api.HeaderCallerArn, c.callerArn)
	}
	span.SetAttributes(
		attribute.String("http.url", url),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			span.RecordError(err)
			return resp.StatusCode, fmt.Errorf("httpclient: decode response from %s %s: %w", service, path, err)
		}
	}
	return resp.StatusCode, nil
}
