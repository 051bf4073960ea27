// Package compliancev1 is the RPC contract of the compliance service: the
// request and response messages, the service descriptor used to register a
// server and a typed client.
//
// Messages travel as JSON using the "json" gRPC codec registered by this
// package, so callers must send with content-subtype "json". The client
// returned by NewComplianceRPCClient does that for every call.
package compliancev1

// QueryIsReady asks whether the service is ready. No arguments.
type QueryIsReady struct{}

// ReadyResponse answers QueryIsReady
type ReadyResponse struct {
	// True if ready
	Ready bool `json:"ready"`
}

// FlightPlanRequest submits a flight plan
type FlightPlanRequest struct {
	// Flight Plan Id
	FlightPlanId string `json:"flight_plan_id"`
	// JSON data of the flight plan
	Data string `json:"data"`
}

// FlightPlanResponse is the verdict on a submitted flight plan
type FlightPlanResponse struct {
	FlightPlanId string `json:"flight_plan_id"`
	Submitted    bool   `json:"submitted"`
	// Optional error or warning message
	Result *string `json:"result,omitempty"`
}

// FlightReleaseRequest asks for a flight plan to be released
type FlightReleaseRequest struct {
	FlightPlanId string `json:"flight_plan_id"`
	Data         string `json:"data"`
}

// FlightReleaseResponse is the verdict on a release request
type FlightReleaseResponse struct {
	FlightPlanId string `json:"flight_plan_id"`
	Released     bool   `json:"released"`
	// Optional error or warning message
	Result *string `json:"result,omitempty"`
}

// GetResult returns the result message or "" when none was set
func (r *FlightPlanResponse) GetResult() string {
	if r == nil || r.Result == nil {
		return ""
	}
	return *r.Result
}

// GetResult returns the result message or "" when none was set
func (r *FlightReleaseResponse) GetResult() string {
	if r == nil || r.Result == nil {
		return ""
	}
	return *r.Result
}
