// Package region selects and runs the jurisdiction-specific compliance
// strategy.
//
// The jurisdiction is resolved exactly once, when the Dispatcher is built,
// through a dispatch table keyed by Code. An unknown code is a
// ConfigurationError and the process must not start serving. A jurisdiction
// whose rules are not written yet answers every request with a
// StrategyError of kind KindNotImplemented.
package region
