package domain

import (
	"fmt"
	"testing"
)

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, CodeUnknown},
		{"no plugin", ErrNoPlugin, CodeNoPlugin},
		{"connection lost", ErrConnectionLost, CodeConnectionLost},
		{"timeout", ErrCommandTimeout, CodeCommandTimeout},
		{"too many calls", ErrTooManyCalls, CodeTooManyCalls},
		{"invalid params", ErrInvalidParams, CodeInvalidParams},
		{"breaker open", ErrBridgeUnavailable, CodeBridgeUnavailable},
		{"remote error", &RemoteError{Message: "boom"}, CodeRemoteError},
		{"wrapped sentinel", fmt.Errorf("outer: %w", ErrCommandTimeout), CodeCommandTimeout},
		{"domain error", NewDomainError("Bridge.Call", ErrNoPlugin, ""), CodeNoPlugin},
		{"wrapped remote error", WrapOp("execute", &RemoteError{Message: "x"}), CodeRemoteError},
		{"unrelated", fmt.Errorf("something else"), CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCodeOf(tt.err); got != tt.want {
				t.Errorf("ErrorCodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Bridge.Call", ErrNoPlugin, "start the plugin in Figma")
	want := "Bridge.Call: start the plugin in Figma: no figma plugin connected"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewDomainError("Bridge.Call", ErrNoPlugin, "")
	if bare.Error() != "Bridge.Call: no figma plugin connected" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestWrapOpNil(t *testing.T) {
	if WrapOp("op", nil) != nil {
		t.Error("WrapOp(nil) should be nil")
	}
}

func TestRemoteErrorMessageVerbatim(t *testing.T) {
	err := &RemoteError{Message: "node not found: 12:34"}
	if err.Error() != "figma plugin error: node not found: 12:34" {
		t.Errorf("Error() = %q", err.Error())
	}
}
