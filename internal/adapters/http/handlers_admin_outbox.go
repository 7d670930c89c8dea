package web

import (
	"log/slog"
	"net/http"
	"slices"

	"crm/internal/application/projections"
	"crm/internal/domain/outbox"
)

var outboxStatuses = []string{
	outbox.StatusPending, outbox.StatusRetrying, outbox.StatusDone, outbox.StatusFailed, outbox.StatusAbandoned,
}

// handleAdminOutbox lists queued notifications with per-status counts
// (GET /api/admin/outbox?status=).
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != "all" && !slices.Contains(outboxStatuses, status) {
		badRequest(w, "unknown outbox status")
		return
	}
	if status == "all" {
		status = ""
	}
	overview, err := projections.QueryGetOutbox(r.Context(), status, projections.GetOutboxDeps{OutboxStore: stores.OutboxStore})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// handleAdminOutboxRetry sends a failed entry again immediately
// (POST /api/admin/outbox/{id}/retry).
func handleAdminOutboxRetry(w http.ResponseWriter, r *http.Request) {
	if settings.Outbox == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "outbox processing is disabled"})
		return
	}
	entry, err := settings.Outbox.RetryEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("outbox_event", "event", "manual_retry", "entry_id", entry.ID, "status", entry.Status)
	writeJSON(w, http.StatusOK, entry)
}

// handleAdminOutboxAbandon gives up on an entry
// (POST /api/admin/outbox/{id}/abandon).
func handleAdminOutboxAbandon(w http.ResponseWriter, r *http.Request) {
	if settings.Outbox == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "outbox processing is disabled"})
		return
	}
	entry, err := settings.Outbox.AbandonEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("outbox_event", "event", "abandoned", "entry_id", entry.ID)
	writeJSON(w, http.StatusOK, entry)
}
