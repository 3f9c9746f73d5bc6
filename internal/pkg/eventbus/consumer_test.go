package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs chan kafka.Message

	mu        sync.Mutex
	committed []kafka.Message
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.msgs <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func eventMessage(t *testing.T, evt Event) kafka.Message {
	t.Helper()
	msg, err := encodeMessage(context.Background(), evt)
	require.NoError(t, err)
	msg.Topic = "ecommerce-events"
	msg.Offset = 42
	return msg
}

func runConsumer(t *testing.T, reader *fakeReader, sub Subscription, fh *FailureHandler) {
	t.Helper()
	rule, err := CompileRule(sub.Rule)
	require.NoError(t, err)
	c := NewKafkaConsumer(reader, sub, rule, fh)
	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return reader.commits() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))
}

func TestKafkaConsumer_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	dlt := &fakeWriter{}
	reader := newFakeReader(eventMessage(t, Event{ID: "e-1", Source: "ecommerce.orders", DetailType: "OrderCreated", Detail: json.RawMessage(`{}`)}))

	runConsumer(t, reader, Subscription{
		Name: "flaky",
		Rule: `source == "ecommerce.orders"`,
		Handler: func(context.Context, Event) error {
			if calls.Add(1) < 3 {
				return errors.New("transient")
			}
			return nil
		},
	}, NewFailureHandler(dlt, 3, time.Millisecond))

	assert.EqualValues(t, 3, calls.Load())
	assert.Empty(t, dlt.messages())
}

func TestKafkaConsumer_ForwardsToDeadLetterAfterRetries(t *testing.T) {
	var calls atomic.Int32
	dlt := &fakeWriter{}
	reader := newFakeReader(eventMessage(t, Event{ID: "e-1", Source: "ecommerce.orders", DetailType: "OrderCreated", Detail: json.RawMessage(`{}`)}))

	runConsumer(t, reader, Subscription{
		Name: "broken",
		Rule: `true`,
		Handler: func(context.Context, Event) error {
			calls.Add(1)
			return errors.New("settlement rejected")
		},
	}, NewFailureHandler(dlt, 2, time.Millisecond))

	assert.EqualValues(t, 3, calls.Load())
	dead := dlt.messages()
	require.Len(t, dead, 1)
	headers := KafkaHeaderCarrier(dead[0].Headers)
	assert.Equal(t, "ecommerce-events", headers.Get(HeaderOriginalTopic))
	assert.Equal(t, "42", headers.Get(HeaderOriginalOffset))
	assert.Equal(t, "broken", headers.Get(HeaderSubscription))
	assert.Equal(t, "settlement rejected", headers.Get(HeaderExceptionMessage))
}

func TestKafkaConsumer_SkipsNonMatchingEvents(t *testing.T) {
	called := false
	reader := newFakeReader(eventMessage(t, Event{ID: "e-1", Source: "ecommerce.users", DetailType: "UserCreated", Detail: json.RawMessage(`{}`)}))

	runConsumer(t, reader, Subscription{
		Name:    "orders-only",
		Rule:    `source == "ecommerce.orders"`,
		Handler: func(context.Context, Event) error { called = true; return nil },
	}, nil)

	assert.False(t, called)
}

func TestKafkaConsumer_UndecodableMessageGoesToDeadLetter(t *testing.T) {
	dlt := &fakeWriter{}
	reader := newFakeReader(kafka.Message{Topic: "ecommerce-events", Value: []byte("not json")})

	runConsumer(t, reader, Subscription{
		Name:    "any",
		Rule:    `true`,
		Handler: func(context.Context, Event) error { return nil },
	}, NewFailureHandler(dlt, 3, time.Millisecond))

	assert.Len(t, dlt.messages(), 1)
}

func TestKafkaPublisher_PutEvents(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)

	err := p.PutEvents(context.Background(), []Entry{
		{Source: "ecommerce.orders", DetailType: "OrderCreated", Resources: []string{"o-1"}, Detail: `{"orderId":"o-1"}`},
	})
	require.NoError(t, err)

	msgs := w.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "o-1", string(msgs[0].Key))
	headers := KafkaHeaderCarrier(msgs[0].Headers)
	assert.Equal(t, "OrderCreated", headers.Get(headerDetailType))

	evt, err := decodeMessage(msgs[0])
	require.NoError(t, err)
	assert.Equal(t, "ecommerce.orders", evt.Source)
	assert.JSONEq(t, `{"orderId":"o-1"}`, string(evt.Detail))
}

func TestKafkaPublisher_RejectsMoreThanTen(t *testing.T) {
	p := NewKafkaPublisher(&fakeWriter{})
	err := p.PutEvents(context.Background(), entries(11))
	assert.ErrorIs(t, err, ErrTooManyEntries)
}

func TestKafkaHeaderCarrier_SetOverwrites(t *testing.T) {
	c := KafkaHeaderCarrier{}
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	assert.Equal(t, "b", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
}
