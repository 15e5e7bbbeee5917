package wam

import "fmt"

// TimeoutError indicates a command did not complete within the transport
// timeout. The device can hang on malformed or unsupported commands, so
// every call is bounded.
type TimeoutError struct {
	Command string
	Addr    string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("wam command %s to %s timed out", e.Command, e.Addr)
}

// UnreachableError indicates the speaker could not be reached at all:
// connection refused, no route, DNS failure.
type UnreachableError struct {
	Command string
	Addr    string
	Err     error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("wam command %s to %s unreachable: %v", e.Command, e.Addr, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// ProtocolError indicates the device answered but the reply was not usable:
// malformed XML, empty body, a missing expected node, or a device-reported
// failure. Raw carries the payload for diagnostics; the codec never
// substitutes defaults.
type ProtocolError struct {
	Command string
	Addr    string
	Reason  string
	Raw     string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wam command %s to %s: %s", e.Command, e.Addr, e.Reason)
}

// InvalidArgumentError is a client-side validation failure. It is returned
// before any network call is made.
type InvalidArgumentError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
