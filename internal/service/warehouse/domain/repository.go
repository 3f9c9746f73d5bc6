package domain

import "context"

// Repository 定义了仓库打包表的持久化接口
type Repository interface {
	// GetMetadata 不存在时返回 ErrPackagingNotFound
	GetMetadata(ctx context.Context, orderID string) (*Metadata, error)
	SaveMetadata(ctx context.Context, m *Metadata) error
	DeleteMetadata(ctx context.Context, orderID string) error
	// ListItems 返回订单的打包清单，不包含元数据行
	ListItems(ctx context.Context, orderID string) ([]Item, error)
	SaveItems(ctx context.Context, items []Item) error
	DeleteItems(ctx context.Context, orderID string, productIDs []string) error
	// ListNew 分页返回 NEW 状态的打包任务
	ListNew(ctx context.Context, nextToken string, limit int) ([]Metadata, string, error)
}
