package web

import (
	"net/http"

	"crm/internal/adapters/http/middleware"
	"crm/internal/domain/account"
)

var (
	anyRole    = middleware.RequireAuth
	adminOnly  = middleware.RequireRole(account.RoleAdmin)
	studioRole = middleware.RequireRole(account.RoleAdmin, account.RolePartner)
)

func gate(m func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
	return m(h)
}

// registerRoutes wires every page and API endpoint onto mux.
func registerRoutes(mux *http.ServeMux) {
	// Public
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /login", handleLoginPage)
	mux.HandleFunc("POST /login", handleLogin)
	mux.HandleFunc("POST /logout", handleLogout)
	mux.HandleFunc("POST /api/token", handleIssueToken)

	// Any signed-in account
	mux.Handle("GET /dashboard", gate(anyRole, handleDashboardPage))
	mux.Handle("GET /change-password", gate(anyRole, handleChangePasswordPage))
	mux.Handle("POST /change-password", gate(anyRole, handleChangePassword))
	mux.Handle("GET /api/me", gate(anyRole, handleMe))
	mux.Handle("POST /api/me/password", gate(anyRole, handleChangePassword))
	mux.Handle("GET /api/portal", gate(anyRole, handlePortal))

	mux.Handle("GET /tickets", gate(anyRole, handleTicketsPage))
	mux.Handle("POST /tickets", gate(anyRole, handleOpenTicket))
	mux.Handle("GET /tickets/{id}", gate(anyRole, handleTicketPage))
	mux.Handle("POST /tickets/{id}/replies", gate(anyRole, handleReplyTicket))
	mux.Handle("GET /api/tickets", gate(anyRole, handleListTickets))
	mux.Handle("POST /api/tickets", gate(anyRole, handleOpenTicket))
	mux.Handle("GET /api/tickets/{id}", gate(anyRole, handleTicketThread))
	mux.Handle("POST /api/tickets/{id}/replies", gate(anyRole, handleReplyTicket))
	mux.Handle("POST /api/tickets/{id}/status", gate(anyRole, handleTicketStatus))
	mux.Handle("POST /api/tickets/{id}/assign", gate(adminOnly, handleAssignTicket))
	mux.Handle("GET /ws/tickets/{id}", gate(anyRole, handleTicketSocket))

	// Deals
	mux.Handle("GET /deals", gate(adminOnly, handleDealsPage))
	mux.Handle("POST /deals", gate(adminOnly, handleCreateDeal))
	mux.Handle("POST /deals/{id}/stage", gate(adminOnly, handleChangeDealStage))
	mux.Handle("GET /api/deals", gate(adminOnly, handleListDeals))
	mux.Handle("POST /api/deals", gate(adminOnly, handleCreateDeal))
	mux.Handle("GET /api/deals/export.xlsx", gate(adminOnly, handleExportDeals))
	mux.Handle("POST /api/deals/import", gate(adminOnly, handleImportDeals))
	mux.Handle("GET /api/deals/{id}", gate(adminOnly, handleGetDeal))
	mux.Handle("PUT /api/deals/{id}", gate(adminOnly, handleUpdateDeal))
	mux.Handle("DELETE /api/deals/{id}", gate(adminOnly, handleDeleteDeal))
	mux.Handle("POST /api/deals/{id}/stage", gate(adminOnly, handleChangeDealStage))

	// Classes
	mux.Handle("GET /api/classes", gate(adminOnly, handleListClasses))
	mux.Handle("POST /api/classes", gate(adminOnly, handleCreateClass))
	mux.Handle("GET /api/classes/{id}", gate(adminOnly, handleClassRoster))
	mux.Handle("PUT /api/classes/{id}", gate(adminOnly, handleUpdateClass))
	mux.Handle("POST /api/classes/{id}/cancel", gate(adminOnly, handleCancelClass))
	mux.Handle("GET /api/modules/upcoming", gate(adminOnly, handleUpcomingModules))

	// Instructors
	mux.Handle("GET /api/instructors", gate(adminOnly, handleListInstructors))
	mux.Handle("POST /api/instructors", gate(adminOnly, handleCreateInstructor))
	mux.Handle("GET /api/instructors/{id}", gate(adminOnly, handleGetInstructor))
	mux.Handle("PUT /api/instructors/{id}", gate(adminOnly, handleUpdateInstructor))
	mux.Handle("POST /api/instructors/{id}/deactivate", gate(adminOnly, handleDeactivateInstructor))

	// Studios
	mux.Handle("GET /api/studios", gate(studioRole, handleListStudios))
	mux.Handle("POST /api/studios", gate(studioRole, handleRegisterStudio))
	mux.Handle("POST /api/studios/radius-check", gate(studioRole, handleCheckRadius))
	mux.Handle("GET /api/studios/inventory.xlsx", gate(studioRole, handleExportInventory))
	mux.Handle("GET /api/studios/{id}", gate(studioRole, handleStudioInventory))
	mux.Handle("PUT /api/studios/{id}", gate(studioRole, handleUpdateStudio))
	mux.Handle("POST /api/studios/{id}/activate", gate(adminOnly, handleActivateStudio))
	mux.Handle("POST /api/studios/{id}/suspend", gate(adminOnly, handleSuspendStudio))
	mux.Handle("GET /api/studios/{id}/schedule", gate(studioRole, handleStudioSchedule))
	mux.Handle("POST /api/studios/{id}/items", gate(studioRole, handleUpsertItem))
	mux.Handle("POST /api/items/{id}/adjust", gate(studioRole, handleAdjustItem))
	mux.Handle("DELETE /api/items/{id}", gate(studioRole, handleDeleteItem))

	// Administration
	mux.Handle("GET /api/dashboard", gate(adminOnly, handleDashboard))
	mux.Handle("GET /api/accounts", gate(adminOnly, handleListAccounts))
	mux.Handle("POST /api/accounts", gate(adminOnly, handleCreateAccount))
	mux.Handle("POST /api/accounts/{id}/role", gate(adminOnly, handleChangeRole))
	mux.Handle("POST /api/accounts/{id}/activate", gate(adminOnly, handleActivateAccount))
	mux.Handle("GET /api/admin/audit", gate(adminOnly, handleAdminAuditTrail))
	mux.Handle("GET /api/admin/outbox", gate(adminOnly, handleAdminOutbox))
	mux.Handle("POST /api/admin/outbox/{id}/retry", gate(adminOnly, handleAdminOutboxRetry))
	mux.Handle("POST /api/admin/outbox/{id}/abandon", gate(adminOnly, handleAdminOutboxAbandon))
	mux.Handle("GET /api/admin/perf", gate(adminOnly, handleAdminPerf))
}
