package web

import (
	"net/http"
	"strconv"

	auditStore "crm/internal/adapters/storage/audit"
	"crm/internal/application/listutil"
	"crm/internal/application/projections"
	auditDomain "crm/internal/domain/audit"
)

// handleAdminAuditTrail lists audit events (GET /api/admin/audit).
// Filters: category, action, actor_id, resource_id, from and to (YYYY-MM-DD,
// inclusive) and limit.
func handleAdminAuditTrail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := auditStore.Filter{
		Category:   auditDomain.Category(q.Get("category")),
		Action:     auditDomain.Action(q.Get("action")),
		ActorID:    q.Get("actor_id"),
		ResourceID: q.Get("resource_id"),
	}
	from, err := listutil.ParseDate(q.Get("from"))
	if err != nil {
		badRequest(w, "from must be YYYY-MM-DD")
		return
	}
	to, err := listutil.ParseDate(q.Get("to"))
	if err != nil {
		badRequest(w, "to must be YYYY-MM-DD")
		return
	}
	filter.From = from
	if !to.IsZero() {
		filter.To = to.AddDate(0, 0, 1)
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		filter.Limit = l
	}

	events, err := projections.QueryGetAuditLog(r.Context(), projections.GetAuditLogQuery{Filter: filter},
		projections.GetAuditLogDeps{AuditStore: stores.AuditStore})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}
