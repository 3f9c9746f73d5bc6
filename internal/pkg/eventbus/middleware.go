package eventbus

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/metrics"
)

// Middleware 包装某个订阅的处理函数
type Middleware func(subscription string, next HandlerFunc) HandlerFunc

// Wrap 按顺序应用中间件，第一个中间件在最外层
func Wrap(sub Subscription, mws ...Middleware) Subscription {
	h := sub.Handler
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](sub.Name, h)
	}
	sub.Handler = h
	return sub
}

// Default 返回每个订阅都会使用的中间件：追踪、日志、指标
func Default() []Middleware {
	return []Middleware{WithTracing(), WithLogging(), WithMetrics()}
}

// WithTracing 为每个事件创建一个 consumer span
func WithTracing() Middleware {
	tracer := otel.Tracer("eventbus")
	return func(subscription string, next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, evt Event) error {
			ctx, span := tracer.Start(ctx, "eventbus."+subscription,
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String("event.id", evt.ID),
					attribute.String("event.source", evt.Source),
					attribute.String("event.detail_type", evt.DetailType),
					attribute.StringSlice("event.resources", evt.Resources),
				))
			defer span.End()

			err := next(ctx, evt)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "event handler failed")
			}
			return err
		}
	}
}

// WithLogging 把事件字段放进 ctx 的 logger，并记录处理结果
func WithLogging() Middleware {
	return func(subscription string, next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, evt Event) error {
			ctx = logger.WithFields(ctx, map[string]any{
				"subscription": subscription,
				"eventId":      evt.ID,
				"source":       evt.Source,
				"detailType":   evt.DetailType,
			})
			err := next(ctx, evt)
			if err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("event handler failed")
				return err
			}
			logger.Ctx(ctx).Debug().Msg("event handled")
			return nil
		}
	}
}

// WithMetrics 统计每个订阅的处理次数和耗时
func WithMetrics() Middleware {
	return func(subscription string, next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, evt Event) error {
			start := time.Now()
			err := next(ctx, evt)
			metrics.EventHandlingDuration.WithLabelValues(subscription).Observe(time.Since(start).Seconds())
			outcome := "success"
			if err != nil {
				outcome = "error"
			}
			metrics.EventsHandledTotal.WithLabelValues(subscription, outcome).Inc()
			return err
		}
	}
}
