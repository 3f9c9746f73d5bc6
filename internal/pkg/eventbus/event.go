// Package eventbus 定义服务之间共享的事件总线：事件条目、订阅规则、
// Kafka 与内存两种实现，以及事件处理中间件。
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxEntriesPerCall 是单次 PutEvents 允许的最大条目数
const MaxEntriesPerCall = 10

var (
	// ErrTooManyEntries 表示单次发布的条目超过 MaxEntriesPerCall
	ErrTooManyEntries = errors.New("eventbus: too many entries in one call")
)

// Entry 是发布到总线的一条事件
type Entry struct {
	Time         time.Time `json:"Time"`
	Source       string    `json:"Source"`
	Resources    []string  `json:"Resources"`
	DetailType   string    `json:"DetailType"`
	Detail       string    `json:"Detail"`
	EventBusName string    `json:"EventBusName"`
}

// NewEntry 把 detail 序列化为 JSON 字符串并构造条目
func NewEntry(source, detailType string, resources []string, detail any, busName string) (Entry, error) {
	raw, err := json.Marshal(detail)
	if err != nil {
		return Entry{}, fmt.Errorf("eventbus: encode %s detail: %w", detailType, err)
	}
	return Entry{
		Time:         time.Now().UTC(),
		Source:       source,
		Resources:    resources,
		DetailType:   detailType,
		Detail:       string(raw),
		EventBusName: busName,
	}, nil
}

// Event 是订阅者收到的事件
type Event struct {
	Version    string          `json:"version"`
	ID         string          `json:"id"`
	DetailType string          `json:"detail-type"`
	Source     string          `json:"source"`
	Time       time.Time       `json:"time"`
	Resources  []string        `json:"resources"`
	Detail     json.RawMessage `json:"detail"`
}

// FromEntry 为条目分配事件 ID，转换为投递格式
func FromEntry(e Entry) Event {
	detail := json.RawMessage(e.Detail)
	if len(detail) == 0 {
		detail = json.RawMessage(`{}`)
	}
	resources := e.Resources
	if resources == nil {
		resources = []string{}
	}
	return Event{
		Version:    "0",
		ID:         uuid.NewString(),
		DetailType: e.DetailType,
		Source:     e.Source,
		Time:       e.Time,
		Resources:  resources,
		Detail:     detail,
	}
}

// DecodeDetail 把事件 detail 解析到 v
func (e Event) DecodeDetail(v any) error {
	if err := json.Unmarshal(e.Detail, v); err != nil {
		return fmt.Errorf("eventbus: decode %s/%s detail: %w", e.Source, e.DetailType, err)
	}
	return nil
}

// Publisher 发布事件条目
type Publisher interface {
	// PutEvents 最多接受 MaxEntriesPerCall 条，超出返回 ErrTooManyEntries
	PutEvents(ctx context.Context, entries []Entry) error
}

// HandlerFunc 处理一个事件；返回错误会触发重试，最终进入死信队列
type HandlerFunc func(ctx context.Context, evt Event) error

// Subscription 是一个事件订阅：规则匹配时调用 Handler
type Subscription struct {
	Name    string
	Rule    string
	Handler HandlerFunc
}

// Subscriber 注册订阅
type Subscriber interface {
	Subscribe(sub Subscription) error
}

// Bus 同时提供发布和订阅，并管理消费者的生命周期
type Bus interface {
	Publisher
	Subscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// PutAll 把任意数量的条目按 MaxEntriesPerCall 分批发布
func PutAll(ctx context.Context, p Publisher, entries []Entry) error {
	for start := 0; start < len(entries); start += MaxEntriesPerCall {
		end := min(start+MaxEntriesPerCall, len(entries))
		if err := p.PutEvents(ctx, entries[start:end]); err != nil {
			return err
		}
	}
	return nil
}
