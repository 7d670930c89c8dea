package web

import (
	"net/http"

	"crm/internal/application/projections"
	"crm/internal/domain/account"
)

// loadPortal returns the portal view for a non-admin role, or nil for admins.
func loadPortal(r *http.Request) (any, error) {
	sess, _ := currentActor(r)
	ctx := r.Context()
	switch sess.Role {
	case account.RoleInstructor:
		return projections.QueryGetInstructorPortal(ctx, sess.Actor(), portalDeps())
	case account.RolePartner:
		return projections.QueryGetPartnerPortal(ctx, sess.Actor(), portalDeps())
	case account.RoleStudent:
		return projections.QueryGetStudentPortal(ctx, sess.Actor(), portalDeps())
	}
	return nil, nil
}

// handleDashboardPage renders the home page of the caller's role: the back
// office summary for admins and the matching portal for everyone else.
func handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	if sess.IsAdmin() {
		dash, err := projections.QueryGetAdminDashboard(r.Context(), dashboardDeps())
		if err != nil {
			internalError(w, err)
			return
		}
		renderTemplate(w, r, "dashboard.html", map[string]any{"Dashboard": dash})
		return
	}
	portal, err := loadPortal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	renderTemplate(w, r, "portal.html", map[string]any{"Role": sess.Role, "Portal": portal})
}

// handlePortal handles GET /api/portal.
func handlePortal(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	if sess.IsAdmin() {
		handleDashboard(w, r)
		return
	}
	portal, err := loadPortal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"role": sess.Role, "portal": portal})
}

// handleDashboard handles GET /api/dashboard. Results are cached for the
// configured TTL and dropped on every write that changes a total.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := projections.QueryGetAdminDashboard(r.Context(), dashboardDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
