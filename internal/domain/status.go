package domain

import (
	"errors"
	"fmt"
	"strings"
)

// CallStatus is the outcome of one dispatch attempt, as reported by the
// telephony provider (directly or via a later webhook update).
type CallStatus string

const (
	StatusQueued     CallStatus = "queued"
	StatusInitiated  CallStatus = "initiated"
	StatusRinging    CallStatus = "ringing"
	StatusInProgress CallStatus = "in-progress"
	StatusCompleted  CallStatus = "completed"
	StatusAnswered   CallStatus = "answered"
	StatusBusy       CallStatus = "busy"
	StatusNoAnswer   CallStatus = "no-answer"
	StatusFailed     CallStatus = "failed"
	StatusCanceled   CallStatus = "canceled"
)

// ErrInvalidStatus is returned for unknown status strings.
var ErrInvalidStatus = errors.New("invalid call status")

var allStatuses = map[CallStatus]struct{}{
	StatusQueued: {}, StatusInitiated: {}, StatusRinging: {}, StatusInProgress: {},
	StatusCompleted: {}, StatusAnswered: {}, StatusBusy: {}, StatusNoAnswer: {},
	StatusFailed: {}, StatusCanceled: {},
}

// ParseCallStatus normalizes and validates a provider status string.
func ParseCallStatus(s string) (CallStatus, error) {
	cs := CallStatus(strings.ToLower(strings.TrimSpace(s)))
	if cs == "no_answer" {
		cs = StatusNoAnswer
	}
	if _, ok := allStatuses[cs]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return cs, nil
}

// Terminal reports whether the status is final for the attempt.
// Non-terminal statuses block re-dispatch until a webhook settles them
// or the next occurrence's window opens.
func (s CallStatus) Terminal() bool {
	switch s {
	case StatusQueued, StatusInitiated, StatusRinging, StatusInProgress:
		return false
	}
	return true
}

// Failure reports whether the status counts as a failed attempt.
func (s CallStatus) Failure() bool {
	switch s {
	case StatusBusy, StatusNoAnswer, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// RetryEligible reports whether a schedule with this last status may be
// re-dispatched inside the same occurrence window (given callRetry).
func (s CallStatus) RetryEligible() bool { return s.Terminal() && s.Failure() }
