// Package server exposes the bound compliance strategy over gRPC.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	compliancev1 "github.com/glimte/svc-compliance/api/compliance/v1"
	"github.com/glimte/svc-compliance/internal/metrics"
	"github.com/glimte/svc-compliance/internal/region"
)

// RequestRecorder receives one observation per finished request
type RequestRecorder interface {
	RecordRequest(method, region, outcome string, d time.Duration)
}

// ComplianceServer implements compliancev1.ComplianceRPCServer on top of the
// strategy chosen at startup.
type ComplianceServer struct {
	strategy region.Strategy
	code     region.Code
	recorder RequestRecorder
	logger   *slog.Logger
}

var _ compliancev1.ComplianceRPCServer = (*ComplianceServer)(nil)

// Option configures the ComplianceServer
type Option func(*ComplianceServer)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *ComplianceServer) {
		s.logger = logger
	}
}

// WithRequestRecorder sets where request metrics go
func WithRequestRecorder(recorder RequestRecorder) Option {
	return func(s *ComplianceServer) {
		s.recorder = recorder
	}
}

// NewComplianceServer serves the strategy bound by dispatcher
func NewComplianceServer(dispatcher *region.Dispatcher, options ...Option) *ComplianceServer {
	s := &ComplianceServer{
		strategy: dispatcher.Strategy(),
		code:     dispatcher.Code(),
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(s)
	}

	s.logger = s.logger.With("component", "compliance-rpc", "region", s.code.String())
	return s
}

// IsReady answers true once the server exists; startup fails before that
// point if the strategy or topology cannot be set up.
func (s *ComplianceServer) IsReady(ctx context.Context, _ *compliancev1.QueryIsReady) (*compliancev1.ReadyResponse, error) {
	s.record("isReady", metrics.OutcomeAccepted, time.Now())
	return &compliancev1.ReadyResponse{Ready: true}, nil
}

func (s *ComplianceServer) SubmitFlightPlan(ctx context.Context, req *compliancev1.FlightPlanRequest) (*compliancev1.FlightPlanResponse, error) {
	start := time.Now()

	outcome, err := s.strategy.SubmitFlightPlan(ctx, region.FlightPlanSubmission{
		ID:      req.FlightPlanId,
		Payload: req.Data,
	})
	if err != nil {
		s.fail(ctx, "submitFlightPlan", req.FlightPlanId, err, start)
		return nil, toStatus(ctx, err)
	}

	s.record("submitFlightPlan", outcomeLabel(outcome), start)
	return &compliancev1.FlightPlanResponse{
		FlightPlanId: outcome.ID,
		Submitted:    outcome.Accepted,
		Result:       message(outcome),
	}, nil
}

func (s *ComplianceServer) RequestFlightRelease(ctx context.Context, req *compliancev1.FlightReleaseRequest) (*compliancev1.FlightReleaseResponse, error) {
	start := time.Now()

	outcome, err := s.strategy.RequestFlightRelease(ctx, region.FlightReleaseRequest{
		ID:      req.FlightPlanId,
		Payload: req.Data,
	})
	if err != nil {
		s.fail(ctx, "requestFlightRelease", req.FlightPlanId, err, start)
		return nil, toStatus(ctx, err)
	}

	s.record("requestFlightRelease", outcomeLabel(outcome), start)
	return &compliancev1.FlightReleaseResponse{
		FlightPlanId: outcome.ID,
		Released:     outcome.Accepted,
		Result:       message(outcome),
	}, nil
}

func (s *ComplianceServer) fail(ctx context.Context, method, id string, err error, start time.Time) {
	outcome := metrics.OutcomeError
	if kind := region.KindOf(err); kind != 0 {
		outcome = kind.String()
	}
	s.record(method, outcome, start)

	level := slog.LevelWarn
	if region.KindOf(err) == 0 {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "compliance request failed",
		"method", method,
		"flightPlanId", id,
		"outcome", outcome,
		"error", err)
}

func (s *ComplianceServer) record(method, outcome string, start time.Time) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordRequest(method, s.code.String(), outcome, time.Since(start))
}

func outcomeLabel(outcome region.ComplianceOutcome) string {
	if outcome.Accepted {
		return metrics.OutcomeAccepted
	}
	return metrics.OutcomeRejected
}

func message(outcome region.ComplianceOutcome) *string {
	if outcome.Message == "" {
		return nil
	}
	msg := outcome.Message
	return &msg
}

// toStatus translates strategy errors into gRPC status codes. The caller's
// context decides Canceled and DeadlineExceeded; a confirm timeout inside the
// publisher is Unavailable.
func toStatus(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, err.Error())
		}
		return status.Error(codes.Canceled, err.Error())
	}

	switch region.KindOf(err) {
	case region.KindNotImplemented:
		return status.Error(codes.Unimplemented, err.Error())
	case region.KindInvalidRequest:
		return status.Error(codes.InvalidArgument, err.Error())
	case region.KindUnavailable:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
