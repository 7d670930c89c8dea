package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crm/internal/adapters/cache"
	"crm/internal/domain/account"
	"crm/internal/domain/audit"
)

// DashboardCacheKey is the cache key of the admin dashboard projection.
// Mutations that change dashboard figures invalidate it.
const DashboardCacheKey = "dashboard:admin"

// ErrForbidden is returned when the actor may not touch the resource.
var ErrForbidden = errors.New("not allowed for this account")

// AuditStore receives audit events.
type AuditStore interface {
	Save(ctx context.Context, e audit.Event) error
}

// CacheInvalidator drops cached projections.
type CacheInvalidator = cache.Invalidator

// recordAudit persists e. A failure is logged and never fails the mutation
// that produced the event.
func recordAudit(ctx context.Context, store AuditStore, e audit.Event) {
	if store == nil {
		return
	}
	if err := e.Validate(); err != nil {
		slog.Error("audit_event", "event", "invalid", "action", e.Action, "error", err)
		return
	}
	if err := store.Save(ctx, e); err != nil {
		slog.Error("audit_event", "event", "save_failed", "action", e.Action, "resource_id", e.ResourceID, "error", err)
	}
}

func invalidateDashboard(ctx context.Context, c CacheInvalidator) {
	if c == nil {
		return
	}
	if err := cache.Invalidate(ctx, c, DashboardCacheKey); err != nil {
		slog.Warn("cache_event", "event", "invalidate_failed", "key", DashboardCacheKey, "error", err)
	}
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now()
}

func requireAdmin(actor audit.Actor) error {
	if actor.Role != account.RoleAdmin {
		return ErrForbidden
	}
	return nil
}
