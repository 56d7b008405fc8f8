package tenant

import (
	"context"
	"log/slog"
)

// FallbackEvent describes a request that proceeded without an explicit
// tenant key and was assigned the configured fallback key.
type FallbackEvent struct {
	Route     string `json:"route"`
	Method    string `json:"method"`
	Public    bool   `json:"public"`
	Strict    bool   `json:"strict"`
	HadHeader bool   `json:"had_header"`
	Key       string `json:"key"`
}

// ViolationEvent describes a request rejected by the isolation gate.
type ViolationEvent struct {
	Route  string `json:"route"`
	Method string `json:"method"`
	Public bool   `json:"public"`
	Reason string `json:"reason"`
}

// Telemetry records fallback and isolation-violation events for audit
// through a structured logging sink. All methods are best-effort: they
// never block the request path, never return errors, and tolerate both
// a nil receiver and a nil logger.
type Telemetry struct {
	log *slog.Logger
}

// NewTelemetry creates a recorder writing to the given logger.
func NewTelemetry(log *slog.Logger) *Telemetry {
	return &Telemetry{log: log}
}

// RecordFallback emits one audit record for a fallback-tenant request.
func (t *Telemetry) RecordFallback(ctx context.Context, e FallbackEvent) {
	if t == nil || t.log == nil {
		return
	}
	t.log.WarnContext(ctx, "tenant fallback applied",
		slog.String("event", "tenant_fallback"),
		slog.String("route", e.Route),
		slog.String("method", e.Method),
		slog.Bool("public", e.Public),
		slog.Bool("strict", e.Strict),
		slog.Bool("had_header", e.HadHeader),
		slog.String("key", e.Key),
	)
}

// RecordViolation emits one audit record for a rejected request.
func (t *Telemetry) RecordViolation(ctx context.Context, e ViolationEvent) {
	if t == nil || t.log == nil {
		return
	}
	t.log.WarnContext(ctx, "tenant isolation violation",
		slog.String("event", "tenant_isolation_violation"),
		slog.String("route", e.Route),
		slog.String("method", e.Method),
		slog.Bool("public", e.Public),
		slog.String("reason", e.Reason),
	)
}
