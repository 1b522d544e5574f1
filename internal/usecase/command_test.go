package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmfisher/figma-mcp/internal/domain"
	"github.com/nmfisher/figma-mcp/internal/infra/config"
)

// --- test doubles ---

type fakeBridge struct {
	mu     sync.Mutex
	calls  []string
	result json.RawMessage
	err    error
}

func (b *fakeBridge) Call(_ context.Context, method string, _ map[string]any) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, method)
	return b.result, b.err
}

func (b *fakeBridge) Connected() bool { return true }

func (b *fakeBridge) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *recordingAudit) Log(_ context.Context, event domain.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *recordingAudit) Close() error { return nil }

func newTestService(b domain.CommandBridge, audit domain.AuditLogger) *CommandService {
	return NewCommandService(b, config.BreakerConfig{
		MaxFailures: 3,
		Timeout:     50 * time.Millisecond,
		Interval:    time.Minute,
	}, audit, slog.Default())
}

// --- tests ---

func TestExecutePassesThrough(t *testing.T) {
	bridge := &fakeBridge{result: json.RawMessage(`{"id":"123:45"}`)}
	audit := &recordingAudit{}
	svc := newTestService(bridge, audit)

	result, err := svc.Execute(context.Background(), "create-rectangle", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"123:45"}`, string(result))

	require.Len(t, audit.events, 1)
	assert.Equal(t, domain.AuditCommandOK, audit.events[0].Type)
	assert.Equal(t, "create-rectangle", audit.events[0].Method)
	assert.Equal(t, "ok", audit.events[0].Outcome)
}

func TestExecuteAuditsFailures(t *testing.T) {
	bridge := &fakeBridge{err: domain.NewDomainError("Bridge.Call", domain.ErrCommandTimeout, "slow")}
	audit := &recordingAudit{}
	svc := newTestService(bridge, audit)

	_, err := svc.Execute(context.Background(), "slow-tool", nil)
	require.ErrorIs(t, err, domain.ErrCommandTimeout)

	require.Len(t, audit.events, 1)
	assert.Equal(t, domain.AuditCommandFailed, audit.events[0].Type)
	assert.Equal(t, string(domain.CodeCommandTimeout), audit.events[0].ErrorCode)
}

func TestBreakerOpensAfterConsecutiveLinkFailures(t *testing.T) {
	bridge := &fakeBridge{err: domain.NewDomainError("Bridge.Call", domain.ErrConnectionLost, "")}
	svc := newTestService(bridge, domain.NopAuditLogger{})

	for i := 0; i < 3; i++ {
		_, err := svc.Execute(context.Background(), "ping", nil)
		require.ErrorIs(t, err, domain.ErrConnectionLost)
	}

	// Circuit open: the bridge is no longer reached.
	before := bridge.callCount()
	_, err := svc.Execute(context.Background(), "ping", nil)
	require.ErrorIs(t, err, domain.ErrBridgeUnavailable)
	assert.Equal(t, before, bridge.callCount())
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	bridge := &fakeBridge{err: domain.NewDomainError("Bridge.Call", domain.ErrConnectionLost, "")}
	svc := newTestService(bridge, domain.NopAuditLogger{})

	for i := 0; i < 3; i++ {
		svc.Execute(context.Background(), "ping", nil)
	}
	_, err := svc.Execute(context.Background(), "ping", nil)
	require.ErrorIs(t, err, domain.ErrBridgeUnavailable)

	// After the open window, a half-open probe goes through.
	time.Sleep(80 * time.Millisecond)
	bridge.mu.Lock()
	bridge.err = nil
	bridge.result = json.RawMessage(`"pong"`)
	bridge.mu.Unlock()

	result, err := svc.Execute(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, `"pong"`, string(result))
}

func TestRemoteErrorsDoNotTripBreaker(t *testing.T) {
	bridge := &fakeBridge{err: &domain.RemoteError{Message: "no node selected"}}
	svc := newTestService(bridge, domain.NopAuditLogger{})

	// Far more RemoteErrors than MaxFailures; the plugin keeps answering,
	// so the link is healthy and every call still reaches the bridge.
	for i := 0; i < 10; i++ {
		_, err := svc.Execute(context.Background(), "set-fill-color", nil)
		var re *domain.RemoteError
		require.ErrorAs(t, err, &re)
	}
	assert.Equal(t, 10, bridge.callCount())
}

func TestIsLinkHealthy(t *testing.T) {
	assert.True(t, isLinkHealthy(nil))
	assert.True(t, isLinkHealthy(&domain.RemoteError{Message: "x"}))
	assert.True(t, isLinkHealthy(domain.ErrInvalidParams))
	assert.True(t, isLinkHealthy(domain.ErrTooManyCalls))
	assert.False(t, isLinkHealthy(domain.ErrConnectionLost))
	assert.False(t, isLinkHealthy(domain.ErrCommandTimeout))
	assert.False(t, isLinkHealthy(domain.ErrNoPlugin))
}
