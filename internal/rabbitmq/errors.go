package rabbitmq

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	// Configuration errors
	ErrMissingConfiguration = errors.New("rabbitmq: missing configuration for amqp pool connection")
	ErrInvalidConfiguration = errors.New("rabbitmq: invalid configuration")

	// Connection errors
	ErrCouldNotConnect   = errors.New("rabbitmq: could not connect to amqp pool")
	ErrConnectionTimeout = errors.New("rabbitmq: connection timeout")
	ErrPoolExhausted     = errors.New("rabbitmq: connection pool exhausted")
	ErrPoolClosed        = errors.New("rabbitmq: connection pool is closed")
	ErrLeaseReleased     = errors.New("rabbitmq: lease already released")

	// Channel errors
	ErrCouldNotCreateChannel = errors.New("rabbitmq: could not create channel")
	ErrInvalidChannelState   = errors.New("rabbitmq: invalid channel state")

	// Publisher errors
	ErrCouldNotPublish     = errors.New("rabbitmq: could not publish to queue")
	ErrPublishTimeout      = errors.New("rabbitmq: publish timeout")
	ErrPublishNotConfirmed = errors.New("rabbitmq: publish not confirmed")

	// Topology errors
	ErrCouldNotDeclareQueue    = errors.New("rabbitmq: could not declare queue")
	ErrCouldNotDeclareExchange = errors.New("rabbitmq: could not declare exchange")
	ErrCouldNotBindQueue       = errors.New("rabbitmq: could not bind queue")
)

// ConnectionError represents a connection-related error
type ConnectionError struct {
	Op        string    // Operation that failed
	URL       string    // Connection URL (sanitized)
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
}

func (e *ConnectionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("rabbitmq connection error: %s %s failed: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("rabbitmq connection error: %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// PublishError represents a publish operation error
type PublishError struct {
	Exchange   string    // Target exchange
	RoutingKey string    // Routing key used
	Err        error     // Underlying error
	Timestamp  time.Time // When the error occurred
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("rabbitmq publish error: failed to publish to %s/%s: %v",
		e.Exchange, e.RoutingKey, e.Err)
}

// Unwrap exposes both the classification and the cause, so errors.Is
// matches ErrCouldNotPublish as well as the broker error underneath.
func (e *PublishError) Unwrap() []error {
	if errors.Is(e.Err, ErrCouldNotPublish) {
		return []error{e.Err}
	}
	return []error{ErrCouldNotPublish, e.Err}
}

// TopologyError represents a topology-related error
type TopologyError struct {
	Component string    // Component type (exchange, queue, binding)
	Name      string    // Component name
	Op        string    // Operation that failed
	Kind      error     // Classification (ErrCouldNotDeclareQueue, ...)
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("rabbitmq topology error: failed to %s %s '%s': %v",
		e.Op, e.Component, e.Name, e.Err)
}

func (e *TopologyError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// IsRetryable reports whether a caller may reasonably retry the operation
// that produced err. The pool never retries on its own.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrMissingConfiguration),
		errors.Is(err, ErrInvalidConfiguration),
		errors.Is(err, ErrInvalidChannelState),
		errors.Is(err, ErrPoolClosed):
		return false
	case errors.Is(err, ErrPoolExhausted),
		errors.Is(err, ErrCouldNotConnect),
		errors.Is(err, ErrCouldNotCreateChannel),
		errors.Is(err, ErrCouldNotPublish):
		return true
	}

	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsFatal determines if an error is fatal and should not be retried
func IsFatal(err error) bool {
	return err != nil && !IsRetryable(err)
}

// SanitizeURL removes the password from a connection URL so it can be logged.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
