package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher(t *testing.T) {
	t.Run("NewPublisher creates with defaults", func(t *testing.T) {
		publisher := NewPublisher(nil)

		assert.Nil(t, publisher.pool)
		assert.Equal(t, 5*time.Second, publisher.confirmTimeout)
		assert.Equal(t, StrictChannel, publisher.policy)
	})

	t.Run("NewPublisher applies options", func(t *testing.T) {
		publisher := NewPublisher(
			nil,
			WithConfirmTimeout(3*time.Second),
			WithAbsentChannelPolicy(LenientChannel),
			WithPublisherLogger(discardLogger),
		)

		assert.Equal(t, 3*time.Second, publisher.confirmTimeout)
		assert.Equal(t, LenientChannel, publisher.policy)
		assert.Equal(t, discardLogger, publisher.logger)
	})
}

func TestParseAbsentChannelPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    AbsentChannelPolicy
		wantErr bool
	}{
		{in: "", want: StrictChannel},
		{in: "strict", want: StrictChannel},
		{in: "lenient", want: LenientChannel},
		{in: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAbsentChannelPolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := ParseAbsentChannelPolicy(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, back)
		})
	}
}

func TestPublisherPublish(t *testing.T) {
	ctx := context.Background()
	msg := Message{Body: []byte(`{"flightPlanId":"FP-1"}`), ContentType: "application/json", Type: "flight_plan.submitted"}

	t.Run("Confirmed publish returns a confirmation", func(t *testing.T) {
		broker := newFakeBroker()
		pool := newTestPool(t, broker)
		publisher := NewPublisher(pool, WithPublisherLogger(discardLogger))

		conf, err := publisher.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		require.NoError(t, err)
		assert.False(t, conf.Skipped)
		assert.Equal(t, uint64(1), conf.DeliveryTag)
		assert.Equal(t, ExchangeFlightPlan, conf.Exchange)
		assert.Equal(t, RoutingKeyCargo, conf.RoutingKey)
		assert.NotEmpty(t, conf.MessageID)

		require.Equal(t, 1, broker.publishedCount())
		published := broker.published[0]
		assert.Equal(t, amqp.Persistent, published.DeliveryMode)
		assert.Equal(t, conf.MessageID, published.MessageId)
		assert.Equal(t, "flight_plan.submitted", published.Type)
		assert.Equal(t, 0, pool.Stats().InUse)
	})

	t.Run("Caller message id is kept", func(t *testing.T) {
		broker := newFakeBroker()
		pool := newTestPool(t, broker)
		publisher := NewPublisher(pool, WithPublisherLogger(discardLogger))

		withID := msg
		withID.MessageID = "evt-42"
		conf, err := publisher.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, withID)
		require.NoError(t, err)
		assert.Equal(t, "evt-42", conf.MessageID)
	})

	t.Run("Nack is classified as CouldNotPublish", func(t *testing.T) {
		broker := newFakeBroker()
		broker.nack = true
		pool := newTestPool(t, broker)
		publisher := NewPublisher(pool, WithPublisherLogger(discardLogger))

		_, err := publisher.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		assert.ErrorIs(t, err, ErrCouldNotPublish)
		assert.ErrorIs(t, err, ErrPublishNotConfirmed)

		var pubErr *PublishError
		require.ErrorAs(t, err, &pubErr)
		assert.Equal(t, ExchangeFlightPlan, pubErr.Exchange)
		assert.Equal(t, 0, pool.Stats().InUse)
	})

	t.Run("Broker error mid-send is classified as CouldNotPublish", func(t *testing.T) {
		broker := newFakeBroker()
		broker.publishErr = amqp.ErrClosed
		pool := newTestPool(t, broker)
		publisher := NewPublisher(pool, WithPublisherLogger(discardLogger))

		_, err := publisher.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		assert.ErrorIs(t, err, ErrCouldNotPublish)
		assert.ErrorIs(t, err, amqp.ErrClosed)
		assert.True(t, IsRetryable(err))
	})

	t.Run("Confirmation timeout is classified as CouldNotPublish", func(t *testing.T) {
		broker := newFakeBroker()
		broker.blockConfirm = true
		pool := newTestPool(t, broker)
		publisher := NewPublisher(pool,
			WithConfirmTimeout(20*time.Millisecond),
			WithPublisherLogger(discardLogger))

		start := time.Now()
		_, err := publisher.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		assert.ErrorIs(t, err, ErrCouldNotPublish)
		assert.ErrorIs(t, err, ErrPublishTimeout)
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Equal(t, 0, pool.Stats().InUse)
	})

	t.Run("Cancelled request still returns the lease", func(t *testing.T) {
		broker := newFakeBroker()
		broker.blockConfirm = true
		pool := newTestPool(t, broker)
		publisher := NewPublisher(pool,
			WithConfirmTimeout(time.Minute),
			WithPublisherLogger(discardLogger))

		cctx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := publisher.Publish(cctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		assert.ErrorIs(t, err, ErrCouldNotPublish)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, pool.Stats().InUse)
	})

	t.Run("Pool errors are surfaced unchanged", func(t *testing.T) {
		broker := newFakeBroker()
		pool := newTestPool(t, broker, WithMaxSize(1), WithAcquireTimeout(0))
		publisher := NewPublisher(pool, WithPublisherLogger(discardLogger))

		lease, err := pool.Acquire(ctx)
		require.NoError(t, err)
		defer lease.Release()

		_, err = publisher.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		assert.ErrorIs(t, err, ErrPoolExhausted)
		assert.NotErrorIs(t, err, ErrCouldNotPublish)
	})

	t.Run("Publish observer is called", func(t *testing.T) {
		broker := newFakeBroker()
		pool := newTestPool(t, broker)

		var mu sync.Mutex
		var seen []error
		publisher := NewPublisher(pool,
			WithPublisherLogger(discardLogger),
			WithPublishObserver(func(exchange string, d time.Duration, err error) {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, err)
			}))

		_, err := publisher.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		require.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []error{nil}, seen)
	})
}

func TestPublisherAbsentChannel(t *testing.T) {
	ctx := context.Background()
	msg := Message{Body: []byte("{}")}

	t.Run("Strict policy fails with InvalidChannelState", func(t *testing.T) {
		publisher := NewPublisher(nil, WithPublisherLogger(discardLogger))

		conf, err := publisher.PublishOn(ctx, nil, ExchangeFlightPlan, RoutingKeyCargo, msg)
		assert.Nil(t, conf)
		assert.ErrorIs(t, err, ErrInvalidChannelState)
		assert.NotErrorIs(t, err, ErrCouldNotPublish)
		assert.True(t, IsFatal(err))
	})

	t.Run("Lenient policy is a silent success", func(t *testing.T) {
		publisher := NewPublisher(nil,
			WithAbsentChannelPolicy(LenientChannel),
			WithPublisherLogger(discardLogger))

		conf, err := publisher.PublishOn(ctx, nil, ExchangeFlightPlan, RoutingKeyCargo, msg)
		require.NoError(t, err)
		assert.True(t, conf.Skipped)
		assert.NotEmpty(t, conf.MessageID)
	})

	t.Run("Publisher without pool follows the policy", func(t *testing.T) {
		strict := NewPublisher(nil, WithPublisherLogger(discardLogger))
		_, err := strict.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		assert.ErrorIs(t, err, ErrInvalidChannelState)

		lenient := NewPublisher(nil,
			WithAbsentChannelPolicy(LenientChannel),
			WithPublisherLogger(discardLogger))
		conf, err := lenient.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		require.NoError(t, err)
		assert.True(t, conf.Skipped)
	})

	t.Run("Refused channel on a leased connection follows the policy", func(t *testing.T) {
		broker := newFakeBroker()
		broker.channelErr = errors.New("channel refused")
		pool := newTestPool(t, broker)

		strict := NewPublisher(pool, WithPublisherLogger(discardLogger))
		conf, err := strict.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		assert.Nil(t, conf)
		assert.ErrorIs(t, err, ErrCouldNotCreateChannel)

		lenient := NewPublisher(pool,
			WithAbsentChannelPolicy(LenientChannel),
			WithPublisherLogger(discardLogger))
		conf, err = lenient.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		require.NoError(t, err)
		assert.True(t, conf.Skipped)
		assert.Zero(t, broker.publishedCount())
		assert.Equal(t, 0, pool.Stats().InUse)
	})

	t.Run("Lenient policy does not hide pool failures", func(t *testing.T) {
		broker := newFakeBroker()
		pool := newTestPool(t, broker)
		require.NoError(t, pool.Close())

		lenient := NewPublisher(pool,
			WithAbsentChannelPolicy(LenientChannel),
			WithPublisherLogger(discardLogger))
		_, err := lenient.Publish(ctx, ExchangeFlightPlan, RoutingKeyCargo, msg)
		assert.ErrorIs(t, err, ErrPoolClosed)
	})
}

func TestNoopPublisher(t *testing.T) {
	var publisher EventPublisher = NewNoopPublisher(discardLogger)

	conf, err := publisher.Publish(context.Background(), ExchangeFlightPlan, RoutingKeyCargo, Message{Body: []byte("{}")})
	require.NoError(t, err)
	assert.True(t, conf.Skipped)
	assert.Equal(t, ExchangeFlightPlan, conf.Exchange)
	assert.NotEmpty(t, conf.MessageID)
}

func TestErrors(t *testing.T) {
	t.Run("PublishError does not double wrap the classification", func(t *testing.T) {
		err := &PublishError{Exchange: "x", RoutingKey: "k", Err: ErrCouldNotPublish}
		assert.ErrorIs(t, err, ErrCouldNotPublish)
		assert.Len(t, err.Unwrap(), 1)
	})

	t.Run("TopologyError exposes kind and cause", func(t *testing.T) {
		cause := errors.New("ACCESS_REFUSED")
		err := &TopologyError{Component: "queue", Name: "cargo", Op: "declare", Kind: ErrCouldNotDeclareQueue, Err: cause}
		assert.ErrorIs(t, err, ErrCouldNotDeclareQueue)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "cargo")
	})

	t.Run("Configuration errors are fatal", func(t *testing.T) {
		assert.True(t, IsFatal(ErrMissingConfiguration))
		assert.False(t, IsFatal(nil))
		assert.False(t, IsRetryable(nil))
	})
}
