package region

import "context"

// Code identifies a jurisdiction
type Code string

const (
	// CodeUS is the United States rule set
	CodeUS Code = "us"
	// CodeNE is the Netherlands rule set
	CodeNE Code = "ne"
	// CodeStub accepts every well-formed request; for test and dev stacks
	CodeStub Code = "stub"
)

func (c Code) String() string {
	return string(c)
}

// FlightPlanSubmission is an incoming flight plan. Payload is opaque here.
type FlightPlanSubmission struct {
	ID      string
	Payload string
}

// FlightReleaseRequest asks for a submitted flight plan to be released
type FlightReleaseRequest struct {
	ID      string
	Payload string
}

// ComplianceOutcome is the verdict of a strategy for one request.
// Message is optional and empty when there is nothing to add.
type ComplianceOutcome struct {
	ID       string
	Accepted bool
	Message  string
}

// Strategy applies one jurisdiction's rules
type Strategy interface {
	SubmitFlightPlan(ctx context.Context, submission FlightPlanSubmission) (ComplianceOutcome, error)
	RequestFlightRelease(ctx context.Context, request FlightReleaseRequest) (ComplianceOutcome, error)
}

// Notifier announces accepted requests to downstream services
type Notifier interface {
	FlightPlanSubmitted(ctx context.Context, region Code, submission FlightPlanSubmission) error
	FlightReleaseRequested(ctx context.Context, region Code, request FlightReleaseRequest) error
}
