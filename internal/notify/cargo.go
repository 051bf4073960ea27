// Package notify turns accepted compliance requests into cargo events on the
// flightplan exchange.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/glimte/svc-compliance/internal/rabbitmq"
	"github.com/glimte/svc-compliance/internal/region"
)

// Event types published on the cargo routing key
const (
	EventFlightPlanSubmitted    = "flight_plan.submitted"
	EventFlightReleaseRequested = "flight_release.requested"
)

// CargoEvent is the JSON body of every cargo message
type CargoEvent struct {
	EventID      string          `json:"eventId"`
	Type         string          `json:"type"`
	FlightPlanID string          `json:"flightPlanId"`
	Region       string          `json:"region"`
	OccurredAt   time.Time       `json:"occurredAt"`
	Data         json.RawMessage `json:"data,omitempty"`
}

var _ region.Notifier = (*CargoNotifier)(nil)

// CargoNotifier implements region.Notifier on top of an EventPublisher
type CargoNotifier struct {
	publisher  rabbitmq.EventPublisher
	exchange   string
	routingKey string
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures the CargoNotifier
type Option func(*CargoNotifier)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(n *CargoNotifier) {
		n.logger = logger
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(n *CargoNotifier) {
		n.now = now
	}
}

// NewCargoNotifier publishes to topology.Exchange with topology.RoutingKey
func NewCargoNotifier(publisher rabbitmq.EventPublisher, topology rabbitmq.Topology, options ...Option) *CargoNotifier {
	n := &CargoNotifier{
		publisher:  publisher,
		exchange:   topology.Exchange,
		routingKey: topology.RoutingKey,
		now:        time.Now,
		logger:     slog.Default(),
	}

	for _, opt := range options {
		opt(n)
	}

	return n
}

// FlightPlanSubmitted implements region.Notifier
func (n *CargoNotifier) FlightPlanSubmitted(ctx context.Context, code region.Code, submission region.FlightPlanSubmission) error {
	return n.announce(ctx, EventFlightPlanSubmitted, code, submission.ID, submission.Payload)
}

// FlightReleaseRequested implements region.Notifier
func (n *CargoNotifier) FlightReleaseRequested(ctx context.Context, code region.Code, request region.FlightReleaseRequest) error {
	return n.announce(ctx, EventFlightReleaseRequested, code, request.ID, request.Payload)
}

func (n *CargoNotifier) announce(ctx context.Context, eventType string, code region.Code, id, payload string) error {
	event := CargoEvent{
		EventID:      uuid.NewString(),
		Type:         eventType,
		FlightPlanID: id,
		Region:       code.String(),
		OccurredAt:   n.now().UTC(),
		Data:         rawData(payload),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	conf, err := n.publisher.Publish(ctx, n.exchange, n.routingKey, rabbitmq.Message{
		Body:        body,
		ContentType: "application/json",
		MessageID:   event.EventID,
		Type:        eventType,
	})
	if err != nil {
		return fmt.Errorf("failed to announce %s for %s: %w", eventType, id, err)
	}

	n.logger.Debug("cargo event announced",
		"type", eventType,
		"flightPlanId", id,
		"eventId", event.EventID,
		"skipped", conf.Skipped)
	return nil
}

// rawData embeds JSON payloads as-is and anything else as a JSON string.
func rawData(payload string) json.RawMessage {
	if payload == "" {
		return nil
	}
	if json.Valid([]byte(payload)) {
		return json.RawMessage(payload)
	}
	quoted, _ := json.Marshal(payload)
	return quoted
}
