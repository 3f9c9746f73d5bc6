package eventbus

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/metrics"
)

// 死信消息附带的原始位置和错误信息
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderSubscription      = "x-subscription"
	HeaderExceptionFqcn     = "x-exception-fqcn"
	HeaderExceptionMessage  = "x-exception-message"
)

// MessageReader 是 kafka.Reader 的最小接口
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// FailureHandler 在处理失败时按退避重试，重试耗尽后把消息转发到死信 topic
type FailureHandler struct {
	dlt        MessageWriter
	maxRetries int
	backoff    time.Duration
}

// NewFailureHandler 创建失败处理器；dlt 为 nil 时只记录日志
func NewFailureHandler(dlt MessageWriter, maxRetries int, backoff time.Duration) *FailureHandler {
	return &FailureHandler{dlt: dlt, maxRetries: maxRetries, backoff: backoff}
}

// Handle 重试 retry，全部失败后写入死信队列。返回 nil 表示最终处理成功
func (h *FailureHandler) Handle(ctx context.Context, subscription string, msg kafka.Message, cause error, retry func(context.Context) error) error {
	for attempt := 1; attempt <= h.maxRetries; attempt++ {
		select {
		case <-time.After(h.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
		logger.Ctx(ctx).Warn().Err(cause).Int("attempt", attempt).Str("subscription", subscription).Msg("retrying event")
		if cause = retry(ctx); cause == nil {
			return nil
		}
	}

	metrics.DeadLettersTotal.WithLabelValues(subscription).Inc()
	if h.dlt == nil {
		logger.Ctx(ctx).Error().Err(cause).Str("subscription", subscription).Msg("🚨 event dropped after retries, no dead-letter topic configured")
		return cause
	}

	dead := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(append([]kafka.Header(nil), msg.Headers...),
			kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
			kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: HeaderSubscription, Value: []byte(subscription)},
			kafka.Header{Key: HeaderExceptionFqcn, Value: []byte(fmt.Sprintf("%T", cause))},
			kafka.Header{Key: HeaderExceptionMessage, Value: []byte(cause.Error())},
		),
	}
	if err := h.dlt.WriteMessages(ctx, dead); err != nil {
		return fmt.Errorf("eventbus: forward to dead-letter topic: %w", err)
	}
	return cause
}

// KafkaConsumer 是一个订阅对应的消费者适配器，每个订阅使用独立的消费组
type KafkaConsumer struct {
	reader         MessageReader
	sub            Subscription
	rule           *Rule
	failureHandler *FailureHandler

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewKafkaConsumer 创建消费者适配器
func NewKafkaConsumer(reader MessageReader, sub Subscription, rule *Rule, failureHandler *FailureHandler) *KafkaConsumer {
	if failureHandler == nil {
		failureHandler = NewFailureHandler(nil, 0, 0)
	}
	return &KafkaConsumer{
		reader:         reader,
		sub:            sub,
		rule:           rule,
		failureHandler: failureHandler,
	}
}

// Start 开始监听 topic。这是一个长期运行的方法
func (c *KafkaConsumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().Str("subscription", c.sub.Name).Msg("✅ Kafka consumer started")
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Str("subscription", c.sub.Name).Msg("🛑 Kafka consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Str("subscription", c.sub.Name).Msg("could not read message, retrying")
				time.Sleep(time.Second)
				continue
			}

			c.handle(ctx, msg)

			// 无论成功或失败（已移交死信队列），都提交 offset
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Str("subscription", c.sub.Name).Msg("failed to commit message")
			}
		}
	}()
	return nil
}

// Stop 优雅地停止消费者
func (c *KafkaConsumer) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.reader.Close()
	c.wg.Wait()
	logger.Ctx(ctx).Info().Str("subscription", c.sub.Name).Msg("✅ Kafka consumer stopped")
	return err
}

func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) {
	ctx = ExtractTraceContext(ctx, msg.Headers)
	evt, err := decodeMessage(msg)
	if err != nil {
		// 无法解析的消息直接进入死信队列，重试没有意义
		_ = NewFailureHandler(c.failureHandler.dlt, 0, 0).Handle(ctx, c.sub.Name, msg, err, nil)
		return
	}

	matched, err := c.rule.Match(evt)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("subscription", c.sub.Name).Msg("rule evaluation failed, skipping event")
		return
	}
	if !matched {
		return
	}

	process := func(ctx context.Context) error { return c.sub.Handler(ctx, evt) }
	if err := process(ctx); err != nil {
		if err := c.failureHandler.Handle(ctx, c.sub.Name, msg, err, process); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("subscription", c.sub.Name).Str("eventId", evt.ID).Msg("event handling failed after retries")
		}
	}
}

// DltConsumer 监听死信队列并记录日志
type DltConsumer struct {
	reader MessageReader
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewDltConsumer(reader MessageReader) *DltConsumer {
	return &DltConsumer{reader: reader}
}

func (a *DltConsumer) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Ctx(ctx).Info().Msg("✅ DLT consumer started")
		for {
			msg, err := a.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Msg("🛑 DLT consumer shutting down")
					return
				}
				time.Sleep(time.Second)
				continue
			}

			logDeadLetter(ctx, msg)

			// DLT 中的消息总是直接提交，因为它们已经被“处理”了（即记录日志）
			if err := a.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to commit dead letter")
			}
		}
	}()
	return nil
}

func (a *DltConsumer) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	err := a.reader.Close()
	a.wg.Wait()
	logger.Ctx(ctx).Info().Msg("✅ DLT consumer stopped")
	return err
}

func logDeadLetter(ctx context.Context, msg kafka.Message) {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	logger.Ctx(ctx).Error().
		Str("reason", "dead_letter_message_received").
		Str("original_topic", headers[HeaderOriginalTopic]).
		Str("original_partition", headers[HeaderOriginalPartition]).
		Str("original_offset", headers[HeaderOriginalOffset]).
		Str("subscription", headers[HeaderSubscription]).
		Str("exception_fqcn", headers[HeaderExceptionFqcn]).
		Str("exception_message", headers[HeaderExceptionMessage]).
		Str("key", string(msg.Key)).
		Str("value", string(msg.Value)).
		Msg("🚨 CRITICAL: Dead letter message received")
}
