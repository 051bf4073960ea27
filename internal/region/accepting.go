package region

import (
	"context"
	"log/slog"
)

const (
	opSubmit  = "submit flight plan"
	opRelease = "request flight release"
)

// acceptingStrategy accepts every request that passes validate and
// announces it through the notifier.
type acceptingStrategy struct {
	code     Code
	validate func(id, payload string) error
	notifier Notifier
	logger   *slog.Logger
}

func (s *acceptingStrategy) SubmitFlightPlan(ctx context.Context, submission FlightPlanSubmission) (ComplianceOutcome, error) {
	if err := s.validate(submission.ID, submission.Payload); err != nil {
		return ComplianceOutcome{}, invalidRequest(s.code, opSubmit, err.Error())
	}

	if s.notifier != nil {
		if err := s.notifier.FlightPlanSubmitted(ctx, s.code, submission); err != nil {
			s.logger.Error("could not announce flight plan", "flightPlanId", submission.ID, "error", err)
			return ComplianceOutcome{}, unavailable(s.code, opSubmit, err)
		}
	}

	s.logger.Info("flight plan submitted", "flightPlanId", submission.ID)
	return ComplianceOutcome{
		ID:       submission.ID,
		Accepted: true,
		Message:  "flight plan submitted",
	}, nil
}

func (s *acceptingStrategy) RequestFlightRelease(ctx context.Context, request FlightReleaseRequest) (ComplianceOutcome, error) {
	if err := s.validate(request.ID, request.Payload); err != nil {
		return ComplianceOutcome{}, invalidRequest(s.code, opRelease, err.Error())
	}

	if s.notifier != nil {
		if err := s.notifier.FlightReleaseRequested(ctx, s.code, request); err != nil {
			s.logger.Error("could not announce flight release", "flightPlanId", request.ID, "error", err)
			return ComplianceOutcome{}, unavailable(s.code, opRelease, err)
		}
	}

	s.logger.Info("flight released", "flightPlanId", request.ID)
	return ComplianceOutcome{
		ID:       request.ID,
		Accepted: true,
		Message:  "flight released",
	}, nil
}
