package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeBroker hands out fake connections and records what they were asked to do
type fakeBroker struct {
	mu        sync.Mutex
	dials     int
	dialErr   error
	conns     []*fakeConn
	queues    map[string]bool
	exchanges map[string]string
	bindings  map[string]bool

	queueErr    error
	exchangeErr error
	bindErr     error
	channelErr  error
	publishErr  error
	nack        bool
	// blockConfirm makes WaitContext wait for the context
	blockConfirm bool
	published    []amqp.Publishing
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		queues:    make(map[string]bool),
		exchanges: make(map[string]string),
		bindings:  make(map[string]bool),
	}
}

func (b *fakeBroker) dialer() Dialer {
	return func(ctx context.Context, url string) (Connection, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.dials++
		if b.dialErr != nil {
			return nil, b.dialErr
		}
		c := &fakeConn{broker: b}
		b.conns = append(b.conns, c)
		return c, nil
	}
}

func (b *fakeBroker) dialCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

func (b *fakeBroker) publishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

type fakeConn struct {
	broker *fakeBroker
	closed atomic.Bool
}

func (c *fakeConn) Channel() (Channel, error) {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	if c.broker.channelErr != nil {
		return nil, c.broker.channelErr
	}
	return &fakeChannel{broker: c.broker}, nil
}

func (c *fakeConn) IsClosed() bool { return c.closed.Load() }

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

type fakeChannel struct {
	broker   *fakeBroker
	closed   atomic.Bool
	confirm  bool
	nextTag  uint64
	declared []string
}

func (ch *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()
	ch.declared = append(ch.declared, "queue:"+name)
	if ch.broker.queueErr != nil {
		ch.closed.Store(true)
		return amqp.Queue{}, ch.broker.queueErr
	}
	ch.broker.queues[name] = durable
	return amqp.Queue{Name: name}, nil
}

func (ch *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()
	ch.declared = append(ch.declared, "exchange:"+name)
	if ch.broker.exchangeErr != nil {
		ch.closed.Store(true)
		return ch.broker.exchangeErr
	}
	ch.broker.exchanges[name] = kind
	return nil
}

func (ch *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()
	ch.declared = append(ch.declared, "bind:"+name)
	if ch.broker.bindErr != nil {
		ch.closed.Store(true)
		return ch.broker.bindErr
	}
	ch.broker.bindings[exchange+"/"+key+"->"+name] = true
	return nil
}

func (ch *fakeChannel) Confirm(noWait bool) error {
	ch.confirm = true
	return nil
}

func (ch *fakeChannel) PublishWithConfirm(ctx context.Context, exchange, key string, msg amqp.Publishing) (Confirmer, error) {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()
	if !ch.confirm {
		return nil, ErrPublishNotConfirmed
	}
	if ch.broker.publishErr != nil {
		return nil, ch.broker.publishErr
	}
	ch.broker.published = append(ch.broker.published, msg)
	ch.nextTag++
	return &fakeConfirm{tag: ch.nextTag, ack: !ch.broker.nack, block: ch.broker.blockConfirm}, nil
}

func (ch *fakeChannel) IsClosed() bool { return ch.closed.Load() }

func (ch *fakeChannel) Close() error {
	ch.closed.Store(true)
	return nil
}

type fakeConfirm struct {
	tag   uint64
	ack   bool
	block bool
}

func (c *fakeConfirm) DeliveryTag() uint64 { return c.tag }

func (c *fakeConfirm) WaitContext(ctx context.Context) (bool, error) {
	if c.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return c.ack, nil
}

var errBrokerDown = errors.New("dial tcp: connection refused")
