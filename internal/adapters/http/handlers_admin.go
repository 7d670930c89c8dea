package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	accountStore "crm/internal/adapters/storage/account"
	"crm/internal/application/listutil"
	"crm/internal/application/orchestrators"
	"crm/internal/application/projections"
	"crm/internal/domain/account"
)

// accountView is an account without its credentials.
type accountView struct {
	ID                     string    `json:"id"`
	Email                  string    `json:"email"`
	Role                   string    `json:"role"`
	Status                 string    `json:"status"`
	CreatedAt              time.Time `json:"created_at"`
	Locked                 bool      `json:"locked"`
	PasswordChangeRequired bool      `json:"password_change_required"`
}

func newAccountView(a account.Account) accountView {
	return accountView{
		ID:                     a.ID,
		Email:                  a.Email,
		Role:                   a.Role,
		Status:                 a.Status,
		CreatedAt:              a.CreatedAt,
		Locked:                 a.IsLockedAt(timeNow()),
		PasswordChangeRequired: a.PasswordChangeRequired,
	}
}

// handleListAccounts handles GET /api/accounts?role=&status=&q=&sort=.
func handleListAccounts(w http.ResponseWriter, r *http.Request) {
	params := listutil.Parse(r.URL.Query(), accountStore.SortColumns, projections.FilterRole, projections.FilterStatus)
	result, err := projections.QueryGetAccountList(r.Context(), projections.GetAccountListQuery{Params: params},
		projections.GetAccountListDeps{AccountStore: stores.AccountStore})
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]accountView, 0, len(result.Accounts))
	for _, a := range result.Accounts {
		views = append(views, newAccountView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": views, "page": result.Page})
}

type createAccountRequest struct {
	Email                  string `json:"email"`
	Password               string `json:"password"`
	Role                   string `json:"role"`
	PasswordChangeRequired *bool  `json:"password_change_required"` // defaults to true
	Pending                bool   `json:"pending"`
}

// handleCreateAccount handles POST /api/accounts. New accounts must change
// their password on first login unless the request says otherwise.
func handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	var req createAccountRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	mustChange := true
	if req.PasswordChangeRequired != nil {
		mustChange = *req.PasswordChangeRequired
	}
	id, err := orchestrators.ExecuteCreateAccount(r.Context(), orchestrators.CreateAccountInput{
		Email:                  req.Email,
		Password:               req.Password,
		Role:                   req.Role,
		PasswordChangeRequired: mustChange,
		Pending:                req.Pending,
		Actor:                  sess.Actor(),
	}, orchestrators.CreateAccountDeps{AccountStore: stores.AccountStore, AuditStore: stores.AuditStore, Now: timeNow})
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := stores.AccountStore.GetByID(r.Context(), id)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountView(created))
}

type roleRequest struct {
	Role string `json:"role"`
}

// handleChangeRole handles POST /api/accounts/{id}/role. The account's
// sessions end so the new role applies on its next login.
func handleChangeRole(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	var req roleRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	updated, err := orchestrators.ExecuteChangeRole(r.Context(), orchestrators.ChangeRoleInput{
		AccountID: r.PathValue("id"),
		Role:      req.Role,
		Actor:     sess.Actor(),
	}, orchestrators.ChangeRoleDeps{AccountStore: stores.AccountStore, AuditStore: stores.AuditStore, Now: timeNow})
	if err != nil {
		writeError(w, r, err)
		return
	}
	dropped := sessions.DeleteForAccount(updated.ID)
	slog.Info("auth_event", "event", "sessions_revoked", "account_id", updated.ID, "count", dropped)
	writeJSON(w, http.StatusOK, newAccountView(updated))
}

// handleActivateAccount handles POST /api/accounts/{id}/activate.
func handleActivateAccount(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	activated, err := orchestrators.ExecuteActivateAccount(r.Context(), orchestrators.ActivateAccountInput{
		AccountID: r.PathValue("id"),
		Actor:     sess.Actor(),
	}, orchestrators.ChangeRoleDeps{AccountStore: stores.AccountStore, AuditStore: stores.AuditStore, Now: timeNow})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(activated))
}

// handleAdminPerf handles GET /api/admin/perf?minutes=&top=: request and
// query latency percentiles over the recent window.
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if settings.Perf == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "performance collection is disabled"})
		return
	}
	q := r.URL.Query()
	minutes := listutil.ParseDays(q.Get("minutes"), 15, 24*60)
	top, err := strconv.Atoi(q.Get("top"))
	if err != nil || top <= 0 || top > 50 {
		top = 10
	}
	since := timeNow().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, settings.Perf.Snapshot(since, top))
}
