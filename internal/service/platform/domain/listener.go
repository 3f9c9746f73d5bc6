package domain

import (
	"context"
	"errors"
	"time"
)

// ConnectionTTL 是连接登记的有效期，过期后即使没有收到断开也会被清理
const ConnectionTTL = 24 * time.Hour

// MaxConnectionsPerService 是一次事件最多推送的连接数
const MaxConnectionsPerService = 100

var (
	ErrConnectionNotFound = errors.New("listener connection not found")
	// ErrConnectionGone 表示连接已经断开或无法继续写入
	ErrConnectionGone = errors.New("listener connection gone")
)

// Registry 登记 websocket 连接和它监听的服务
type Registry interface {
	// Add 登记一个尚未绑定服务的连接
	Add(ctx context.Context, connectionID string) error
	// Bind 把连接绑定到 service；连接未登记时返回 ErrConnectionNotFound
	Bind(ctx context.Context, connectionID, service string) error
	Remove(ctx context.Context, connectionID string) error
	// Connections 返回监听 service 的连接，最多 limit 个
	Connections(ctx context.Context, service string, limit int) ([]string, error)
}
