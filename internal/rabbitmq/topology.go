package rabbitmq

import (
	"context"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeFlightPlan is the topic exchange for flight plan events
	ExchangeFlightPlan = "flightplan"

	// QueueCargo is the queue consumed by the cargo service
	QueueCargo = "cargo"

	// RoutingKeyCargo routes cargo events from the exchange to QueueCargo
	RoutingKeyCargo = "cargo"
)

// Topology names the exchange, queue and binding this service relies on.
type Topology struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

// DefaultTopology returns the flightplan -> cargo topology
func DefaultTopology() Topology {
	return Topology{
		Exchange:   ExchangeFlightPlan,
		Queue:      QueueCargo,
		RoutingKey: RoutingKeyCargo,
	}
}

// TopologyReport carries the non-fatal problems seen while declaring.
type TopologyReport struct {
	Warnings []error
}

// TopologyManager declares the broker topology
type TopologyManager struct {
	pool     *Pool
	topology Topology
	logger   *slog.Logger
}

// TopologyOption configures the TopologyManager
type TopologyOption func(*TopologyManager)

// WithTopologyLogger sets the logger
func WithTopologyLogger(logger *slog.Logger) TopologyOption {
	return func(tm *TopologyManager) {
		tm.logger = logger
	}
}

// NewTopologyManager creates a new topology manager
func NewTopologyManager(pool *Pool, topology Topology, options ...TopologyOption) *TopologyManager {
	tm := &TopologyManager{
		pool:     pool,
		topology: topology,
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(tm)
	}

	return tm
}

// Topology returns the topology this manager declares
func (tm *TopologyManager) Topology() Topology {
	return tm.topology
}

// DeclareTopology declares the queue, then the topic exchange, then binds
// them. Queue and exchange failures are returned; a binding failure is
// logged and reported as a warning only. Every step is idempotent.
func (tm *TopologyManager) DeclareTopology(ctx context.Context) (TopologyReport, error) {
	var report TopologyReport

	err := tm.pool.Execute(ctx, func(ch Channel) error {
		var err error
		report, err = tm.declare(ch)
		return err
	})

	return report, err
}

func (tm *TopologyManager) declare(ch Channel) (TopologyReport, error) {
	var report TopologyReport
	t := tm.topology

	tm.logger.Info("declaring queue", "queue", t.Queue)
	if _, err := ch.QueueDeclare(
		t.Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		tm.logger.Error("could not declare queue", "queue", t.Queue, "error", err)
		return report, &TopologyError{
			Component: "queue",
			Name:      t.Queue,
			Op:        "declare",
			Kind:      ErrCouldNotDeclareQueue,
			Err:       err,
			Timestamp: time.Now(),
		}
	}

	tm.logger.Info("declaring exchange", "exchange", t.Exchange)
	if err := ch.ExchangeDeclare(
		t.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		tm.logger.Error("could not declare exchange", "exchange", t.Exchange, "error", err)
		return report, &TopologyError{
			Component: "exchange",
			Name:      t.Exchange,
			Op:        "declare",
			Kind:      ErrCouldNotDeclareExchange,
			Err:       err,
			Timestamp: time.Now(),
		}
	}

	tm.logger.Info("binding queue to exchange",
		"queue", t.Queue,
		"exchange", t.Exchange,
		"routingKey", t.RoutingKey)
	if err := ch.QueueBind(
		t.Queue,
		t.RoutingKey,
		t.Exchange,
		false, // no-wait
		nil,
	); err != nil {
		tm.logger.Warn("could not bind queue to exchange",
			"queue", t.Queue,
			"exchange", t.Exchange,
			"error", err)
		report.Warnings = append(report.Warnings, &TopologyError{
			Component: "binding",
			Name:      t.Queue + "->" + t.Exchange,
			Op:        "bind",
			Kind:      ErrCouldNotBindQueue,
			Err:       err,
			Timestamp: time.Now(),
		})
	}

	return report, nil
}
