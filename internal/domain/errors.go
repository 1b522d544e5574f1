package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the bridge domain.
var (
	// ErrNoPlugin means no Figma plugin is attached at call time. Callers
	// should not block waiting for a peer that may never arrive.
	ErrNoPlugin = fmt.Errorf("no figma plugin connected")
	// ErrConnectionLost means the plugin disconnected while the command was
	// still pending.
	ErrConnectionLost = fmt.Errorf("figma plugin connection lost")
	// ErrCommandTimeout means no matching reply arrived within the timeout
	// window. Distinct from ErrConnectionLost so callers can tell "never
	// arrived" from "arrived too late".
	ErrCommandTimeout = fmt.Errorf("command timed out")
	// ErrTooManyCalls means the outstanding-command bound was hit.
	ErrTooManyCalls = fmt.Errorf("too many outstanding commands")
	// ErrInvalidParams means the command params could not be encoded into a
	// wire envelope (e.g. a param key collides with an envelope key).
	ErrInvalidParams = fmt.Errorf("invalid command params")
	// ErrBridgeUnavailable means the circuit breaker is open and the command
	// was rejected without reaching the plugin.
	ErrBridgeUnavailable = fmt.Errorf("bridge temporarily unavailable")

	// ErrIgnorableMessage classifies inbound data that is undecodable or
	// unaddressed. Logged and dropped, never surfaced to a caller.
	ErrIgnorableMessage = fmt.Errorf("ignorable message")
)

// RemoteError is a failure the plugin explicitly reported for a command.
// The message is passed through verbatim.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("figma plugin error: %s", e.Message)
}

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Bridge.Call")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeNoPlugin          ErrorCode = "NO_PLUGIN"
	CodeConnectionLost    ErrorCode = "CONNECTION_LOST"
	CodeCommandTimeout    ErrorCode = "COMMAND_TIMEOUT"
	CodeTooManyCalls      ErrorCode = "TOO_MANY_CALLS"
	CodeInvalidParams     ErrorCode = "INVALID_PARAMS"
	CodeBridgeUnavailable ErrorCode = "BRIDGE_UNAVAILABLE"
	CodeRemoteError       ErrorCode = "REMOTE_ERROR"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNoPlugin:          CodeNoPlugin,
	ErrConnectionLost:    CodeConnectionLost,
	ErrCommandTimeout:    CodeCommandTimeout,
	ErrTooManyCalls:      CodeTooManyCalls,
	ErrInvalidParams:     CodeInvalidParams,
	ErrBridgeUnavailable: CodeBridgeUnavailable,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var re *RemoteError
	if errors.As(err, &re) {
		return CodeRemoteError
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is.
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}
