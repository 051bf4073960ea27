package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is an event payload to be published
type Message struct {
	Body        []byte
	ContentType string
	MessageID   string
	Type        string
	Headers     amqp.Table
}

// Confirmation is returned once the broker has accepted a publishing.
// Skipped is set when nothing was sent (no-op publisher, lenient policy).
type Confirmation struct {
	MessageID   string
	Exchange    string
	RoutingKey  string
	DeliveryTag uint64
	Skipped     bool
}

// EventPublisher publishes messages to an exchange. Implementations are
// picked once when the process is wired and never switched at runtime.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg Message) (*Confirmation, error)
}

// AbsentChannelPolicy decides what publishing on a missing channel means.
type AbsentChannelPolicy int

const (
	// StrictChannel fails with ErrInvalidChannelState
	StrictChannel AbsentChannelPolicy = iota
	// LenientChannel treats the publish as a successful no-op
	LenientChannel
)

func (p AbsentChannelPolicy) String() string {
	switch p {
	case StrictChannel:
		return "strict"
	case LenientChannel:
		return "lenient"
	default:
		return "unknown"
	}
}

// ParseAbsentChannelPolicy converts "strict" or "lenient" to a policy
func ParseAbsentChannelPolicy(s string) (AbsentChannelPolicy, error) {
	switch s {
	case "", "strict":
		return StrictChannel, nil
	case "lenient":
		return LenientChannel, nil
	default:
		return StrictChannel, fmt.Errorf("%w: unknown absent channel policy %q", ErrInvalidConfiguration, s)
	}
}

// Publisher publishes through leased pool connections and waits for the
// broker confirmation of every message. It never retries.
type Publisher struct {
	pool           *Pool
	confirmTimeout time.Duration
	policy         AbsentChannelPolicy
	logger         *slog.Logger
	onPublish      func(exchange string, d time.Duration, err error)
}

// PublisherOption configures the publisher
type PublisherOption func(*Publisher)

// WithConfirmTimeout sets how long a publish waits for the broker ack
func WithConfirmTimeout(timeout time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.confirmTimeout = timeout
	}
}

// WithAbsentChannelPolicy sets the absent channel policy
func WithAbsentChannelPolicy(policy AbsentChannelPolicy) PublisherOption {
	return func(p *Publisher) {
		p.policy = policy
	}
}

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithPublishObserver registers a callback invoked after every Publish
func WithPublishObserver(fn func(exchange string, d time.Duration, err error)) PublisherOption {
	return func(p *Publisher) {
		p.onPublish = fn
	}
}

// NewPublisher creates a new publisher. A nil pool means every publish sees
// an absent channel and is resolved by the absent channel policy.
func NewPublisher(pool *Pool, options ...PublisherOption) *Publisher {
	p := &Publisher{
		pool:           pool,
		confirmTimeout: 5 * time.Second,
		policy:         StrictChannel,
		logger:         slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Publish leases a connection, publishes msg and waits for the confirmation.
// Pool failures are returned unchanged. A leased connection that cannot open
// a channel counts as an absent channel under the lenient policy.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, msg Message) (*Confirmation, error) {
	start := time.Now()
	conf, err := p.publish(ctx, exchange, routingKey, msg)
	if p.onPublish != nil {
		p.onPublish(exchange, time.Since(start), err)
	}
	return conf, err
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, msg Message) (*Confirmation, error) {
	if p.pool == nil {
		return p.PublishOn(ctx, nil, exchange, routingKey, msg)
	}

	lease, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	ch, err := lease.Channel()
	if err != nil {
		if p.policy == LenientChannel && errors.Is(err, ErrCouldNotCreateChannel) {
			p.logger.Warn("channel unavailable on leased connection",
				"connection", lease.ID(),
				"error", err)
			return p.PublishOn(ctx, nil, exchange, routingKey, msg)
		}
		return nil, err
	}

	return p.PublishOn(ctx, ch, exchange, routingKey, msg)
}

// PublishOn publishes on a channel the caller already holds.
func (p *Publisher) PublishOn(ctx context.Context, ch Channel, exchange, routingKey string, msg Message) (*Confirmation, error) {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}

	if ch == nil {
		if p.policy == LenientChannel {
			p.logger.Debug("no channel set, skipping publish",
				"exchange", exchange,
				"routingKey", routingKey,
				"messageId", msg.MessageID)
			return &Confirmation{
				MessageID:  msg.MessageID,
				Exchange:   exchange,
				RoutingKey: routingKey,
				Skipped:    true,
			}, nil
		}
		p.logger.Error("no channel set for publish", "exchange", exchange, "routingKey", routingKey)
		return nil, fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, ErrInvalidChannelState)
	}

	if p.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.confirmTimeout)
		defer cancel()
	}

	publishing := amqp.Publishing{
		Headers:      msg.Headers,
		ContentType:  msg.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.MessageID,
		Timestamp:    time.Now().UTC(),
		Type:         msg.Type,
		Body:         msg.Body,
	}

	confirm, err := ch.PublishWithConfirm(ctx, exchange, routingKey, publishing)
	if err != nil {
		return nil, p.publishError(exchange, routingKey, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrPublishTimeout, err)
		}
		return nil, p.publishError(exchange, routingKey, err)
	}
	if !acked {
		return nil, p.publishError(exchange, routingKey, ErrPublishNotConfirmed)
	}

	p.logger.Debug("message published",
		"exchange", exchange,
		"routingKey", routingKey,
		"messageId", msg.MessageID,
		"deliveryTag", confirm.DeliveryTag())

	return &Confirmation{
		MessageID:   msg.MessageID,
		Exchange:    exchange,
		RoutingKey:  routingKey,
		DeliveryTag: confirm.DeliveryTag(),
	}, nil
}

func (p *Publisher) publishError(exchange, routingKey string, err error) error {
	p.logger.Error("could not publish",
		"exchange", exchange,
		"routingKey", routingKey,
		"error", err)
	return &PublishError{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Err:        err,
		Timestamp:  time.Now(),
	}
}

// NoopPublisher accepts every message without contacting a broker. It backs
// deployments and tests that exercise business logic only.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that never sends anything
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

// Publish implements EventPublisher
func (n *NoopPublisher) Publish(ctx context.Context, exchange, routingKey string, msg Message) (*Confirmation, error) {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	n.logger.Debug("noop publish",
		"exchange", exchange,
		"routingKey", routingKey,
		"messageId", msg.MessageID)
	return &Confirmation{
		MessageID:  msg.MessageID,
		Exchange:   exchange,
		RoutingKey: routingKey,
		Skipped:    true,
	}, nil
}
