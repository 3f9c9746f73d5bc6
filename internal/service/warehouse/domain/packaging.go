package domain

import (
	"errors"
	"time"
)

// MetadataKey 是每个订单元数据行使用的保留 productId
const MetadataKey = "__metadata"

var (
	ErrPackagingNotFound = errors.New("packaging request not found")
	ErrInvalidTransition = errors.New("invalid packaging status transition")
	ErrInvalidUpdate     = errors.New("invalid packaging update")
)

// Status 定义了打包任务的状态
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Metadata 是一个订单打包任务的状态行。
// ModifiedDate 记录最后一次接受的订单版本，用于丢弃重复或乱序的订单事件。
type Metadata struct {
	OrderID      string    `json:"orderId"`
	ProductID    string    `json:"productId"`
	Status       Status    `json:"status"`
	ModifiedDate time.Time `json:"modifiedDate"`
	// NewDate 只在 NEW 状态下存在，用于待打包列表的稀疏索引
	NewDate string `json:"newDate,omitempty"`
}

// NewMetadata 创建一个 NEW 状态的元数据行
func NewMetadata(orderID string, modifiedDate time.Time) *Metadata {
	m := &Metadata{OrderID: orderID, ProductID: MetadataKey, ModifiedDate: modifiedDate}
	m.SetStatus(StatusNew)
	return m
}

// SetStatus 修改状态并维护 NewDate
func (m *Metadata) SetStatus(status Status) {
	m.Status = status
	if status == StatusNew {
		m.NewDate = m.ModifiedDate.UTC().Format(DateLayout)
	} else {
		m.NewDate = ""
	}
}

// Advance 接受一个更新的订单版本，保留当前状态
func (m *Metadata) Advance(modifiedDate time.Time) {
	m.ModifiedDate = modifiedDate
	m.SetStatus(m.Status)
}

// Supersedes 判断已保存的元数据是否不比 modifiedDate 旧（事件应被跳过）
func (m *Metadata) Supersedes(modifiedDate time.Time) bool {
	return !m.ModifiedDate.Before(modifiedDate)
}

// Transition 按 NEW → IN_PROGRESS → COMPLETED 推进状态
func (m *Metadata) Transition(to Status) error {
	switch {
	case m.Status == StatusNew && to == StatusInProgress,
		m.Status == StatusInProgress && to == StatusCompleted:
		m.SetStatus(to)
		return nil
	}
	return ErrInvalidTransition
}

// DateLayout 是定长的时间格式，字符串顺序与时间顺序一致
const DateLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Item 是打包清单中的一行商品
type Item struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
