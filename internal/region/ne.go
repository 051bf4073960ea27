package region

import "context"

// neStrategy has no rules yet. It must answer, not crash.
type neStrategy struct{}

func newNEStrategy(Deps) Strategy {
	return neStrategy{}
}

func (neStrategy) SubmitFlightPlan(context.Context, FlightPlanSubmission) (ComplianceOutcome, error) {
	return ComplianceOutcome{}, notImplemented(CodeNE, opSubmit)
}

func (neStrategy) RequestFlightRelease(context.Context, FlightReleaseRequest) (ComplianceOutcome, error) {
	return ComplianceOutcome{}, notImplemented(CodeNE, opRelease)
}
