package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/metrics"
	"ecommerce/internal/service/platform/domain"
)

// Sender 是本进程持有的一个监听连接
type Sender interface {
	// Send 不阻塞；连接已断开或写缓冲已满时返回 domain.ErrConnectionGone
	Send(payload []byte) error
	Close() error
}

// ListenerService 管理本进程的 websocket 监听连接，并把总线上的事件推送给监听对应服务的连接
type ListenerService struct {
	registry domain.Registry
	tracer   trace.Tracer

	mu    sync.RWMutex
	conns map[string]Sender
}

func NewListenerService(registry domain.Registry, tracer trace.Tracer) *ListenerService {
	return &ListenerService{registry: registry, tracer: tracer, conns: make(map[string]Sender)}
}

// Connect 登记新连接
func (s *ListenerService) Connect(ctx context.Context, connectionID string, sender Sender) error {
	if err := s.registry.Add(ctx, connectionID); err != nil {
		return fmt.Errorf("store connection %s: %w", connectionID, err)
	}
	s.mu.Lock()
	s.conns[connectionID] = sender
	s.mu.Unlock()
	metrics.ListenerConnections.Inc()
	logger.Ctx(ctx).Debug().Str("connectionId", connectionID).Msg("new listener connection")
	return nil
}

// Register 让连接开始接收 service 发出的事件
func (s *ListenerService) Register(ctx context.Context, connectionID, service string) error {
	if err := s.registry.Bind(ctx, connectionID, service); err != nil {
		return fmt.Errorf("register %s with service %q: %w", connectionID, service, err)
	}
	logger.Ctx(ctx).Debug().Str("connectionId", connectionID).Str("serviceName", service).Msg("listener registered")
	return nil
}

// Disconnect 删除连接登记，重复调用无副作用
func (s *ListenerService) Disconnect(ctx context.Context, connectionID string) error {
	s.mu.Lock()
	_, ok := s.conns[connectionID]
	delete(s.conns, connectionID)
	s.mu.Unlock()
	if ok {
		metrics.ListenerConnections.Dec()
	}
	return s.registry.Remove(ctx, connectionID)
}

// OnEvent 把事件推送给监听 evt.Source 的连接；已断开或不在本进程的连接直接跳过
func (s *ListenerService) OnEvent(ctx context.Context, evt eventbus.Event) error {
	ctx, span := s.tracer.Start(ctx, "platform.OnEvent", trace.WithAttributes(
		attribute.String("event.source", evt.Source),
		attribute.String("event.detail_type", evt.DetailType),
	))
	defer span.End()

	ids, err := s.registry.Connections(ctx, evt.Source, domain.MaxConnectionsPerService)
	if err != nil {
		return fmt.Errorf("get connections for %s: %w", evt.Source, err)
	}
	if len(ids) == 0 {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	sent := 0
	for _, id := range ids {
		s.mu.RLock()
		sender, ok := s.conns[id]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		if err := sender.Send(payload); err != nil {
			if !errors.Is(err, domain.ErrConnectionGone) {
				logger.Ctx(ctx).Warn().Err(err).Str("connectionId", id).Msg("failed to send event to listener")
			}
			continue
		}
		sent++
	}
	span.SetAttributes(attribute.Int("listener.sent", sent))
	return nil
}

func (s *ListenerService) Start(context.Context) error { return nil }

// Stop 关闭本进程持有的所有连接
func (s *ListenerService) Stop(ctx context.Context) error {
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[string]Sender)
	s.mu.Unlock()

	var errs []error
	for id, sender := range conns {
		metrics.ListenerConnections.Dec()
		if err := sender.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := s.registry.Remove(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
