package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig 描述 Kafka 总线
type KafkaConfig struct {
	Brokers         []string
	Topic           string
	DeadLetterTopic string
	// GroupPrefix 通常为服务名，每个订阅的消费组为 <GroupPrefix>.<订阅名>
	GroupPrefix  string
	MaxRetries   int
	RetryBackoff time.Duration
}

// KafkaBus 用一个 topic 承载整条事件总线
type KafkaBus struct {
	cfg            KafkaConfig
	writer         *kafka.Writer
	dltWriter      *kafka.Writer
	publisher      *KafkaPublisher
	failureHandler *FailureHandler

	mu        sync.Mutex
	consumers []*KafkaConsumer
	dlt       *DltConsumer
}

// NewKafkaBus 创建 Kafka 总线；消费者在 Start 时才开始拉取
func NewKafkaBus(cfg KafkaConfig) *KafkaBus {
	writer := NewKafkaWriter(cfg.Brokers, cfg.Topic)
	b := &KafkaBus{
		cfg:       cfg,
		writer:    writer,
		publisher: NewKafkaPublisher(writer),
	}
	var dlt MessageWriter
	if cfg.DeadLetterTopic != "" {
		b.dltWriter = NewKafkaWriter(cfg.Brokers, cfg.DeadLetterTopic)
		dlt = b.dltWriter
	}
	b.failureHandler = NewFailureHandler(dlt, cfg.MaxRetries, cfg.RetryBackoff)
	return b
}

func (b *KafkaBus) PutEvents(ctx context.Context, entries []Entry) error {
	return b.publisher.PutEvents(ctx, entries)
}

func (b *KafkaBus) Subscribe(sub Subscription) error {
	rule, err := CompileRule(sub.Rule)
	if err != nil {
		return err
	}
	reader := NewKafkaReader(b.cfg.Brokers, b.cfg.Topic, b.cfg.GroupPrefix+"."+sub.Name)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumers = append(b.consumers, NewKafkaConsumer(reader, sub, rule, b.failureHandler))
	return nil
}

func (b *KafkaBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.consumers {
		if err := c.Start(ctx); err != nil {
			return err
		}
	}
	if b.cfg.DeadLetterTopic != "" && len(b.consumers) > 0 {
		b.dlt = NewDltConsumer(NewKafkaReader(b.cfg.Brokers, b.cfg.DeadLetterTopic, b.cfg.GroupPrefix+".dlt"))
		if err := b.dlt.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *KafkaBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for _, c := range b.consumers {
		errs = append(errs, c.Stop(ctx))
	}
	if b.dlt != nil {
		errs = append(errs, b.dlt.Stop(ctx))
	}
	errs = append(errs, b.writer.Close())
	if b.dltWriter != nil {
		errs = append(errs, b.dltWriter.Close())
	}
	return errors.Join(errs...)
}
