package region

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownJurisdiction is returned for a code outside the supported set
	ErrUnknownJurisdiction = errors.New("region: unknown jurisdiction")

	// ErrNotImplemented is returned by jurisdictions without rules
	ErrNotImplemented = errors.New("region: compliance rules not implemented")

	// ErrInvalidRequest is returned when a request fails validation
	ErrInvalidRequest = errors.New("region: invalid request")
)

// Kind classifies a StrategyError
type Kind int

const (
	// KindNotImplemented means the jurisdiction has no rules for the operation yet
	KindNotImplemented Kind = iota + 1
	// KindInvalidRequest means the request was rejected before any rule ran
	KindInvalidRequest
	// KindUnavailable means an infrastructure dependency failed; retrying may help
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotImplemented:
		return "not_implemented"
	case KindInvalidRequest:
		return "invalid_request"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// StrategyError is the error type returned by every Strategy
type StrategyError struct {
	Kind   Kind
	Op     string
	Region Code
	Err    error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("region %s: %s: %s: %v", e.Region, e.Op, e.Kind, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first StrategyError in err's chain, or 0.
func KindOf(err error) Kind {
	var se *StrategyError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// ConfigurationError reports a jurisdiction selector that cannot be resolved
type ConfigurationError struct {
	Selector string
	Err      error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("region configuration error: %q: %v", e.Selector, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func notImplemented(code Code, op string) error {
	return &StrategyError{Kind: KindNotImplemented, Op: op, Region: code, Err: ErrNotImplemented}
}

func invalidRequest(code Code, op, reason string) error {
	return &StrategyError{
		Kind:   KindInvalidRequest,
		Op:     op,
		Region: code,
		Err:    fmt.Errorf("%w: %s", ErrInvalidRequest, reason),
	}
}

func unavailable(code Code, op string, err error) error {
	return &StrategyError{Kind: KindUnavailable, Op: op, Region: code, Err: err}
}
