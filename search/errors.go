package search

import (
	"errors"
	"fmt"
)

// ConfigurationError reports invalid input detected before any fetch.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransportError wraps a network, timeout or cancellation failure.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BlockReason says why a response was not usable as a results page.
type BlockReason int

const (
	// ReasonBlocked is a rate limit, CAPTCHA or anti-automation page.
	ReasonBlocked BlockReason = iota + 1
	// ReasonEmptyResponse is a success status with no body.
	ReasonEmptyResponse
	// ReasonUnexpectedStatus is a non-success status that is not a known block signal.
	ReasonUnexpectedStatus
)

func (r BlockReason) String() string {
	switch r {
	case ReasonBlocked:
		return "blocked"
	case ReasonEmptyResponse:
		return "empty response"
	case ReasonUnexpectedStatus:
		return "unexpected status"
	}
	return "unknown"
}

// BlockedOrNoResultsError is the "try again later or reformulate" signal.
type BlockedOrNoResultsError struct {
	Engine     string
	Reason     BlockReason
	StatusCode int
	Attempts   int
}

func (e *BlockedOrNoResultsError) Error() string {
	msg := fmt.Sprintf("%s returned no usable results (%s, status %d)", e.Engine, e.Reason, e.StatusCode)
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	return msg + ": the engine may be blocking traffic, try again later or change the query"
}

// Blocked reports whether the response matched a block signal.
func (e *BlockedOrNoResultsError) Blocked() bool {
	return e.Reason == ReasonBlocked
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsBlockedOrNoResults(err error) bool {
	var be *BlockedOrNoResultsError
	return errors.As(err, &be)
}
