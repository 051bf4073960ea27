// Package rabbitmq provides the RabbitMQ plumbing of the compliance service.
//
// This package includes:
//   - Pool: a bounded pool of broker connections handed out as leases
//   - TopologyManager: declares the cargo queue, the flightplan topic
//     exchange and the binding between them
//   - Publisher: publishes with publisher confirms through pool leases
//   - NoopPublisher: an EventPublisher that never touches a broker
//
// Connections are validated lazily. A closed connection is discarded when
// it is next taken from the idle set or when its lease is released, and a
// replacement is dialed on demand. Nothing in this package retries on its
// own; IsRetryable tells callers which failures are worth another attempt.
package rabbitmq
