// Package cdc 把表的变更记录转换为领域事件并发布到总线
package cdc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/pkg/kvstore"
)

// ErrUnknownEventName 表示变更记录的类型无法识别，属于平台契约错误
var ErrUnknownEventName = errors.New("cdc: unknown event name")

// Translator 把一条变更记录转换为至多一个事件，nil 表示忽略
type Translator interface {
	Translate(ctx context.Context, rec kvstore.ChangeRecord) (*eventbus.Entry, error)
}

// TranslatorFunc 让普通函数实现 Translator
type TranslatorFunc func(ctx context.Context, rec kvstore.ChangeRecord) (*eventbus.Entry, error)

func (f TranslatorFunc) Translate(ctx context.Context, rec kvstore.ChangeRecord) (*eventbus.Entry, error) {
	return f(ctx, rec)
}

// Changed 返回新旧镜像之间值不同的字段名（对称比较），按字母排序
func Changed(oldImage, newImage map[string]any) []string {
	changed := []string{}
	for k, ov := range oldImage {
		nv, ok := newImage[k]
		if !ok || !reflect.DeepEqual(ov, nv) {
			changed = append(changed, k)
		}
	}
	for k := range newImage {
		if _, ok := oldImage[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// ModifiedDetail 是 {Type}Modified 事件的 detail
type ModifiedDetail struct {
	Old     json.RawMessage `json:"old"`
	New     json.RawMessage `json:"new"`
	Changed []string        `json:"changed"`
}

// Generic 是最常见的转换器：INSERT→Created，REMOVE→Deleted，MODIFY→Modified
type Generic struct {
	Source      string
	ObjectType  string
	ResourceKey string
	BusName     string
	Now         func() time.Time
}

func (g Generic) Translate(_ context.Context, rec kvstore.ChangeRecord) (*eventbus.Entry, error) {
	var (
		detailType string
		detail     json.RawMessage
		image      json.RawMessage
	)
	switch rec.EventName {
	case kvstore.EventInsert:
		detailType, detail, image = g.ObjectType+"Created", rec.NewImage, rec.NewImage
	case kvstore.EventRemove:
		detailType, detail, image = g.ObjectType+"Deleted", rec.OldImage, rec.OldImage
	case kvstore.EventModify:
		oldImage, err := decodeImage(rec.OldImage)
		if err != nil {
			return nil, err
		}
		newImage, err := decodeImage(rec.NewImage)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(ModifiedDetail{Old: rec.OldImage, New: rec.NewImage, Changed: Changed(oldImage, newImage)})
		if err != nil {
			return nil, fmt.Errorf("cdc: encode modified detail: %w", err)
		}
		detailType, detail, image = g.ObjectType+"Modified", raw, rec.NewImage
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventName, rec.EventName)
	}

	resource, err := resourceID(image, g.ResourceKey)
	if err != nil {
		return nil, err
	}
	return &eventbus.Entry{
		Time:         g.now(),
		Source:       g.Source,
		Resources:    []string{resource},
		DetailType:   detailType,
		Detail:       string(detail),
		EventBusName: g.BusName,
	}, nil
}

func (g Generic) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now().UTC()
}

// Handler 返回一个 relay 处理函数：逐条转换，丢弃 nil，再按 10 条一批发布
func Handler(t Translator, p eventbus.Publisher) kvstore.Handler {
	return func(ctx context.Context, records []kvstore.ChangeRecord) error {
		entries := make([]eventbus.Entry, 0, len(records))
		for _, rec := range records {
			entry, err := t.Translate(ctx, rec)
			if err != nil {
				return fmt.Errorf("cdc: translate record %d of %s: %w", rec.ID, rec.Table, err)
			}
			if entry != nil {
				entries = append(entries, *entry)
			}
		}
		return eventbus.PutAll(ctx, p, entries)
	}
}

func decodeImage(raw json.RawMessage) (map[string]any, error) {
	img := map[string]any{}
	if len(raw) == 0 {
		return img, nil
	}
	if err := json.Unmarshal(raw, &img); err != nil {
		return nil, fmt.Errorf("cdc: decode image: %w", err)
	}
	return img, nil
}

func resourceID(image json.RawMessage, key string) (string, error) {
	img, err := decodeImage(image)
	if err != nil {
		return "", err
	}
	v, ok := img[key].(string)
	if !ok {
		return "", fmt.Errorf("cdc: image has no string %q", key)
	}
	return v, nil
}
