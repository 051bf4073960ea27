package region

import (
	"log/slog"
	"slices"
	"strings"
)

// Deps are the collaborators handed to every strategy
type Deps struct {
	// Notifier announces accepted requests. Nil disables announcements.
	Notifier Notifier
	Logger   *slog.Logger
}

type factory func(deps Deps) Strategy

// strategies is the dispatch table; one entry per supported jurisdiction.
var strategies = map[Code]factory{
	CodeUS:   newUSStrategy,
	CodeNE:   newNEStrategy,
	CodeStub: newStubStrategy,
}

// SupportedCodes lists the jurisdictions in a stable order
func SupportedCodes() []Code {
	codes := make([]Code, 0, len(strategies))
	for code := range strategies {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// ParseCode resolves a selector value to a supported Code.
func ParseCode(selector string) (Code, error) {
	code := Code(strings.ToLower(strings.TrimSpace(selector)))
	if _, ok := strategies[code]; !ok {
		return "", &ConfigurationError{Selector: selector, Err: ErrUnknownJurisdiction}
	}
	return code, nil
}

// Dispatcher holds the strategy chosen at startup. It is immutable and safe
// for concurrent use.
type Dispatcher struct {
	code     Code
	strategy Strategy
}

// NewDispatcher resolves selector once and binds the matching strategy.
func NewDispatcher(selector string, deps Deps) (*Dispatcher, error) {
	code, err := ParseCode(selector)
	if err != nil {
		return nil, err
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("region", code.String())

	d := &Dispatcher{
		code:     code,
		strategy: strategies[code](deps),
	}
	deps.Logger.Info("compliance strategy selected")
	return d, nil
}

// Code returns the resolved jurisdiction
func (d *Dispatcher) Code() Code {
	return d.code
}

// Strategy returns the strategy bound at startup
func (d *Dispatcher) Strategy() Strategy {
	return d.strategy
}
