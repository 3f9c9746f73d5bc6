package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"ecommerce/internal/service/platform/domain"
)

type memoryEntry struct {
	service string
	expires time.Time
}

// MemoryRegistry 是进程内的连接登记，用于 local-stack 和测试
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]memoryEntry), now: time.Now}
}

func (r *MemoryRegistry) Add(_ context.Context, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[connectionID] = memoryEntry{expires: r.now().Add(domain.ConnectionTTL)}
	return nil
}

func (r *MemoryRegistry) Bind(_ context.Context, connectionID, service string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live(connectionID); !ok {
		return domain.ErrConnectionNotFound
	}
	r.entries[connectionID] = memoryEntry{service: service, expires: r.now().Add(domain.ConnectionTTL)}
	return nil
}

func (r *MemoryRegistry) Remove(_ context.Context, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, connectionID)
	return nil
}

func (r *MemoryRegistry) Connections(_ context.Context, service string, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id := range r.entries {
		if e, ok := r.live(id); ok && e.service == service {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// live 返回未过期的登记，过期的顺便删除；调用方持有锁
func (r *MemoryRegistry) live(id string) (memoryEntry, bool) {
	e, ok := r.entries[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !r.now().Before(e.expires) {
		delete(r.entries, id)
		return memoryEntry{}, false
	}
	return e, true
}
