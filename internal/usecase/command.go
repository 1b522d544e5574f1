// Package usecase hosts the command dispatch service between the MCP
// surface and the plugin bridge.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/nmfisher/figma-mcp/internal/domain"
	"github.com/nmfisher/figma-mcp/internal/infra/config"
	"github.com/nmfisher/figma-mcp/internal/infra/tracer"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CommandService executes commands against the plugin bridge with circuit
// breaker protection, tracing and auditing. When the plugin stalls or the
// link flaps repeatedly, the circuit opens and commands fail fast instead
// of each burning a full timeout.
type CommandService struct {
	bridge  domain.CommandBridge
	breaker *gobreaker.CircuitBreaker[json.RawMessage]
	audit   domain.AuditLogger
	logger  *slog.Logger
}

// NewCommandService wraps bridge with a circuit breaker configured from cfg.
// If cfg is zero-valued, sensible defaults are used.
func NewCommandService(bridge domain.CommandBridge, cfg config.BreakerConfig, audit domain.AuditLogger, logger *slog.Logger) *CommandService {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
		Name:        "figma-bridge",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: isLinkHealthy,
	})

	return &CommandService{
		bridge:  bridge,
		breaker: cb,
		audit:   audit,
		logger:  logger,
	}
}

// isLinkHealthy decides whether an error counts against the breaker. Only
// link-level failures do: a RemoteError is a completed round trip, and
// caller mistakes (invalid params, hitting the outstanding bound) say
// nothing about the plugin connection.
func isLinkHealthy(err error) bool {
	if err == nil {
		return true
	}
	var re *domain.RemoteError
	if errors.As(err, &re) {
		return true
	}
	return !errors.Is(err, domain.ErrConnectionLost) &&
		!errors.Is(err, domain.ErrCommandTimeout) &&
		!errors.Is(err, domain.ErrNoPlugin)
}

// Execute implements domain.CommandExecutor.
func (s *CommandService) Execute(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	ctx, span := tracer.StartSpan(ctx, "figma.command",
		trace.WithAttributes(tracer.StringAttr("figma.method", method)))
	defer span.End()

	start := time.Now()
	result, err := s.breaker.Execute(func() (json.RawMessage, error) {
		return s.bridge.Call(ctx, method, params)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = domain.NewDomainError("CommandService.Execute", domain.ErrBridgeUnavailable, method)
	}

	s.recordAudit(ctx, method, time.Since(start), err)

	if err != nil {
		tracer.RecordError(span, err)
		s.logger.Warn("command failed", "method", method, "code", domain.ErrorCodeOf(err), "error", err)
		return nil, err
	}
	tracer.SetOK(span)
	s.logger.Info("command executed", "method", method, "duration", time.Since(start))
	return result, nil
}

func (s *CommandService) recordAudit(ctx context.Context, method string, elapsed time.Duration, err error) {
	event := domain.AuditEvent{
		Timestamp: time.Now().UTC(),
		Type:      domain.AuditCommandOK,
		Method:    method,
		Outcome:   "ok",
		Duration:  elapsed,
	}
	if err != nil {
		event.Type = domain.AuditCommandFailed
		event.Outcome = "error"
		event.ErrorCode = string(domain.ErrorCodeOf(err))
	}
	if auditErr := s.audit.Log(ctx, event); auditErr != nil {
		s.logger.Warn("audit write failed", "error", auditErr)
	}
}
