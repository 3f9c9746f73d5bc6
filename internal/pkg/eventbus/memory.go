package eventbus

import (
	"context"
	"fmt"
	"sync"

	"ecommerce/internal/pkg/logger"
)

type memorySubscription struct {
	sub  Subscription
	rule *Rule
}

// MemoryBus 是进程内的总线：PutEvents 同步投递给所有匹配的订阅，
// 并记录发布过的条目。用于 local-stack 和测试。
type MemoryBus struct {
	mu        sync.Mutex
	subs      []memorySubscription
	published []Entry
	failures  []error
}

// NewMemoryBus 创建内存总线
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Subscribe(sub Subscription) error {
	rule, err := CompileRule(sub.Rule)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, memorySubscription{sub: sub, rule: rule})
	return nil
}

// PutEvents 记录条目并同步投递；订阅者的错误不会返回给发布者，可通过 Failures 查看
func (b *MemoryBus) PutEvents(ctx context.Context, entries []Entry) error {
	if len(entries) > MaxEntriesPerCall {
		return fmt.Errorf("%w: %d", ErrTooManyEntries, len(entries))
	}
	b.mu.Lock()
	b.published = append(b.published, entries...)
	subs := append([]memorySubscription(nil), b.subs...)
	b.mu.Unlock()

	for _, entry := range entries {
		evt := FromEntry(entry)
		for _, s := range subs {
			matched, err := s.rule.Match(evt)
			if err != nil {
				logger.Ctx(ctx).Warn().Err(err).Str("subscription", s.sub.Name).Msg("rule evaluation failed")
				continue
			}
			if !matched {
				continue
			}
			if err := s.sub.Handler(ctx, evt); err != nil {
				b.mu.Lock()
				b.failures = append(b.failures, fmt.Errorf("%s: %w", s.sub.Name, err))
				b.mu.Unlock()
			}
		}
	}
	return nil
}

// Published 返回所有已发布的条目
func (b *MemoryBus) Published() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.published...)
}

// Failures 返回订阅者处理失败的错误
func (b *MemoryBus) Failures() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]error(nil), b.failures...)
}

// Reset 清空已发布条目和错误
func (b *MemoryBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = nil
	b.failures = nil
}

func (b *MemoryBus) Start(context.Context) error { return nil }

func (b *MemoryBus) Stop(context.Context) error { return nil }
