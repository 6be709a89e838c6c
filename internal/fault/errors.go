// Package fault defines the shared error taxonomy for the captioning
// pipeline. Provider clients and the orchestrator classify failures with a
// Type so callers can tell a provider-reported failure apart from a polling
// timeout or a success payload that is missing required data.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

type Type int

const (
	Transport Type = iota
	Upload
	TaskCreation
	Provider
	IncompleteResult
	PollingTimeout
	Submission
	Render
	MissingOutput
	NotFound
	Unknown
)

func (t Type) String() string {
	switch t {
	case Transport:
		return "Transport"
	case Upload:
		return "Upload"
	case TaskCreation:
		return "TaskCreation"
	case Provider:
		return "Provider"
	case IncompleteResult:
		return "IncompleteResult"
	case PollingTimeout:
		return "PollingTimeout"
	case Submission:
		return "Submission"
	case Render:
		return "Render"
	case MissingOutput:
		return "MissingOutput"
	case NotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

type Error struct {
	Type    Type
	Message string
	Context map[string]any
	Cause   error
}

func New(faultType Type, message string) *Error {
	return &Error{
		Type:    faultType,
		Message: message,
		Context: make(map[string]any),
	}
}

func Wrap(cause error, faultType Type, message string) *Error {
	return &Error{
		Type:    faultType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		var ctxParts []string
		for k, v := range e.Context {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// IsType reports whether err (or anything it wraps) is a fault of the given type.
func IsType(err error, faultType Type) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Type == faultType
	}
	return false
}
