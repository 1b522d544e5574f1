package domain

import (
	"context"
	"time"
)

// AuditEventType classifies audit log entries.
type AuditEventType string

const (
	AuditCommandOK     AuditEventType = "command_ok"
	AuditCommandFailed AuditEventType = "command_failed"
	AuditPluginAttach  AuditEventType = "plugin_attach"
	AuditPluginDetach  AuditEventType = "plugin_detach"
)

// AuditEvent represents a single auditable bridge action.
type AuditEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      AuditEventType `json:"type"`
	Method    string         `json:"method,omitempty"`
	Outcome   string         `json:"outcome,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
}

// AuditLogger writes audit events to a persistent log.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent) error
	Close() error
}

// NopAuditLogger discards all events. Used when auditing is disabled.
type NopAuditLogger struct{}

func (NopAuditLogger) Log(context.Context, AuditEvent) error { return nil }
func (NopAuditLogger) Close() error                          { return nil }
