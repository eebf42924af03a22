package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a provider could not supply a usable observation.
type ErrorKind string

const (
	// ErrorTransport covers network faults, timeouts, and upstream 5xx/429.
	ErrorTransport ErrorKind = "transport"
	// ErrorAuth covers credential and permission rejections.
	ErrorAuth ErrorKind = "auth"
	// ErrorParse covers response-shape mismatches.
	ErrorParse ErrorKind = "parse"
	// ErrorNoCoverage means the provider structurally cannot answer for this
	// location or window. Skipped without counting as a fallback hop.
	ErrorNoCoverage ErrorKind = "no_coverage"
	// ErrorNoData means the provider answered but has nothing usable,
	// including the ambiguous satellite zero.
	ErrorNoData ErrorKind = "no_data"
)

// ProviderError is the typed failure returned by provider adapters.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with a provider name and kind.
func NewProviderError(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// NoDataError marks a reachable provider that had nothing usable to say.
func NoDataError(provider, detail string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: ErrorNoData, Err: errors.New(detail)}
}

// KindOf extracts the error kind, defaulting to transport for untyped errors
// (a timeout or cancellation from the context falls in this bucket).
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrorTransport
}

// Failure is one recorded diagnostic from an exhausted fallback chain.
type Failure struct {
	Provider string    `json:"provider"`
	Kind     ErrorKind `json:"kind"`
	Detail   string    `json:"detail,omitempty"`
}

// FailureFrom converts a provider invocation error into a diagnostic record.
func FailureFrom(provider string, err error) Failure {
	f := Failure{Provider: provider, Kind: KindOf(err)}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Err != nil {
		f.Detail = pe.Err.Error()
	} else if err != nil {
		f.Detail = err.Error()
	}
	return f
}

// UnresolvedError is the terminal outcome of a fully exhausted provider
// chain. It is a first-class result, not a crash condition: callers handle it
// as "insufficient information", distinct from a confirmed zero.
type UnresolvedError struct {
	Location Location
	Window   DateWindow
	Failures []Failure
}

func (e *UnresolvedError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("rainfall unresolved for %s %s: no provider supports the window",
			e.Location.Fingerprint(), e.Window)
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s(%s)", f.Provider, f.Kind))
	}
	return fmt.Sprintf("rainfall unresolved for %s %s: tried %s",
		e.Location.Fingerprint(), e.Window, strings.Join(parts, ", "))
}

// AsUnresolved unwraps err into an UnresolvedError, or nil if it is not one.
func AsUnresolved(err error) *UnresolvedError {
	var ue *UnresolvedError
	if errors.As(err, &ue) {
		return ue
	}
	return nil
}
