// Package metrics 定义所有服务共享的 Prometheus 指标
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		},
		[]string{"service", "route", "code"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "route"},
	)

	EventsHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_handled_total",
			Help: "Total number of events handled by subscription and outcome",
		},
		[]string{"subscription", "outcome"},
	)

	EventHandlingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_handling_duration_seconds",
			Help:    "Duration of event handlers",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subscription"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events published by source and detail type",
		},
		[]string{"source", "detail_type"},
	)

	DeadLettersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dead_letters_total",
			Help: "Total number of messages forwarded to the dead-letter topic",
		},
		[]string{"subscription"},
	)

	OrdersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		},
	)

	OrdersCreatedAmountTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_amount_total",
			Help: "Sum of the totals of created orders, in the smallest currency unit",
		},
	)

	OrderStatusUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_updates_total",
			Help: "Order status changes applied by the order reaction handler",
		},
		[]string{"status"},
	)

	OrderStatusRegressionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_status_regressions_total",
			Help: "Status updates that moved an order out of a terminal status",
		},
	)

	PaymentAmountDelta = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_amount_delta",
			Help: "Absolute change of authorised payment amounts, split by win or loss",
		},
		[]string{"direction"},
	)

	ListenerConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "platform_listener_connections",
			Help: "Number of open event listener websocket connections",
		},
	)
)

var registerOnce sync.Once

// Register 把所有指标注册到默认 registry，多次调用是安全的
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			EventsHandledTotal,
			EventHandlingDuration,
			EventsPublishedTotal,
			DeadLettersTotal,
			OrdersCreatedTotal,
			OrdersCreatedAmountTotal,
			OrderStatusUpdatesTotal,
			OrderStatusRegressionsTotal,
			PaymentAmountDelta,
			ListenerConnections,
		)
	})
}
