package rabbitmq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection is the subset of *amqp.Connection the pool depends on.
type Connection interface {
	Channel() (Channel, error)
	IsClosed() bool
	Close() error
}

// Channel is the subset of *amqp.Channel used for topology and publishing.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Confirm(noWait bool) error
	PublishWithConfirm(ctx context.Context, exchange, key string, msg amqp.Publishing) (Confirmer, error)
	IsClosed() bool
	Close() error
}

// Confirmer waits for the broker to ack or nack a single publishing.
type Confirmer interface {
	DeliveryTag() uint64
	WaitContext(ctx context.Context) (bool, error)
}

// Dialer opens a new broker connection.
type Dialer func(ctx context.Context, url string) (Connection, error)

// DialAMQP is the default Dialer. It runs amqp.Dial in the background so the
// caller's context and connectTimeout both bound the handshake.
func DialAMQP(connectTimeout time.Duration) Dialer {
	return func(ctx context.Context, url string) (Connection, error) {
		if connectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, connectTimeout)
			defer cancel()
		}

		type result struct {
			conn *amqp.Connection
			err  error
		}
		done := make(chan result, 1)

		go func() {
			conn, err := amqp.Dial(url)
			done <- result{conn: conn, err: err}
		}()

		select {
		case r := <-done:
			if r.err != nil {
				return nil, r.err
			}
			return &amqpConnection{conn: r.conn}, nil
		case <-ctx.Done():
			// Close the connection if the dial completes after we gave up.
			go func() {
				if r := <-done; r.conn != nil {
					r.conn.Close()
				}
			}()
			if ctx.Err() == context.DeadlineExceeded {
				return nil, ErrConnectionTimeout
			}
			return nil, ctx.Err()
		}
	}
}

type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &amqpChannel{ch: ch}, nil
}

func (c *amqpConnection) IsClosed() bool {
	return c.conn.IsClosed()
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}

type amqpChannel struct {
	ch *amqp.Channel
}

func (c *amqpChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return c.ch.QueueDeclare(name, durable, autoDelete, exclusive, noWait, args)
}

func (c *amqpChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return c.ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (c *amqpChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	return c.ch.QueueBind(name, key, exchange, noWait, args)
}

func (c *amqpChannel) PublishWithConfirm(ctx context.Context, exchange, key string, msg amqp.Publishing) (Confirmer, error) {
	dc, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		// The channel is not in confirm mode.
		return nil, ErrPublishNotConfirmed
	}
	return deferredConfirm{dc: dc}, nil
}

func (c *amqpChannel) Confirm(noWait bool) error {
	return c.ch.Confirm(noWait)
}

func (c *amqpChannel) IsClosed() bool {
	return c.ch.IsClosed()
}

func (c *amqpChannel) Close() error {
	return c.ch.Close()
}

type deferredConfirm struct {
	dc *amqp.DeferredConfirmation
}

func (d deferredConfirm) DeliveryTag() uint64 {
	return d.dc.DeliveryTag
}

func (d deferredConfirm) WaitContext(ctx context.Context) (bool, error) {
	return d.dc.WaitContext(ctx)
}
