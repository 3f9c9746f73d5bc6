package kvstore

import (
	"context"
	"sync"
	"time"

	"ecommerce/internal/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultRelayInterval  = time.Second
	defaultRelayBatchSize = 100
)

// Handler 处理一批变更记录；返回错误时整批记录保持未确认状态，下次轮询重试
type Handler func(ctx context.Context, records []ChangeRecord) error

// Locker 是可选的分布式锁，保证同一张表只有一个活跃的 relay
type Locker interface {
	Lock() error
	Unlock() error
}

// RelayConfig 描述一个变更流转发器
type RelayConfig struct {
	Table     string
	Source    Stream
	Handler   Handler
	Interval  time.Duration
	BatchSize int
	Locker    Locker
}

// StreamRelay 定时轮询表的变更流，并把记录按 ID 顺序交给 Handler
type StreamRelay struct {
	cfg    RelayConfig
	tracer trace.Tracer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStreamRelay 创建 relay，未设置的间隔与批大小使用默认值
func NewStreamRelay(cfg RelayConfig) *StreamRelay {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultRelayInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultRelayBatchSize
	}
	return &StreamRelay{cfg: cfg, tracer: otel.Tracer("kvstore.relay")}
}

// Table 返回 relay 负责的表名
func (r *StreamRelay) Table() string { return r.cfg.Table }

// Start 在后台启动轮询循环
func (r *StreamRelay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		logger.Ctx(ctx).Info().Str("table", r.cfg.Table).Dur("interval", r.cfg.Interval).Msg("✅ stream relay started")
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := r.Poll(ctx); err != nil && ctx.Err() == nil {
					logger.Ctx(ctx).Error().Err(err).Str("table", r.cfg.Table).Msg("stream relay poll failed")
				}
			case <-ctx.Done():
				logger.Ctx(ctx).Info().Str("table", r.cfg.Table).Msg("🛑 stream relay stopped")
				return
			}
		}
	}()
	return nil
}

// Stop 停止轮询并等待当前批次结束
func (r *StreamRelay) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll 处理一批待转发的记录，返回成功确认的记录数
func (r *StreamRelay) Poll(ctx context.Context) (int, error) {
	if r.cfg.Locker != nil {
		if err := r.cfg.Locker.Lock(); err != nil {
			return 0, err
		}
		defer func() {
			if err := r.cfg.Locker.Unlock(); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Str("table", r.cfg.Table).Msg("stream relay unlock failed")
			}
		}()
	}

	records, err := r.cfg.Source.Pending(ctx, r.cfg.Table, r.cfg.BatchSize)
	if err != nil || len(records) == 0 {
		return 0, err
	}

	ctx, span := r.tracer.Start(ctx, "kvstore.StreamRelay.Poll", trace.WithAttributes(
		attribute.String("table", r.cfg.Table),
		attribute.Int("records", len(records)),
	))
	defer span.End()

	if err := r.cfg.Handler(ctx, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")
		return 0, err
	}

	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	if err := r.cfg.Source.Ack(ctx, r.cfg.Table, ids...); err != nil {
		span.RecordError(err)
		return 0, err
	}
	return len(records), nil
}
