package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"crm/internal/adapters/http/middleware"
	"crm/internal/application/orchestrators"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *credentials) fillForm(form url.Values) error {
	c.Email = form.Get("Email")
	c.Password = form.Get("Password")
	return nil
}

func loginDeps() orchestrators.LoginDeps {
	return orchestrators.LoginDeps{AccountStore: stores.AccountStore, AuditStore: stores.AuditStore, Now: timeNow}
}

// loginStatus maps a failed login to a status. Every credential failure is
// a 401 so that callers cannot tell which emails exist.
func loginStatus(err error) int {
	switch {
	case errors.Is(err, orchestrators.ErrInvalidCredentials),
		errors.Is(err, orchestrators.ErrPendingActivation):
		return http.StatusUnauthorized
	case errors.Is(err, orchestrators.ErrAccountLocked):
		return http.StatusLocked
	}
	return 0
}

// handleRoot sends visitors to their home page.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentActor(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLoginPage renders the login form (GET /login).
func handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentActor(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	renderTemplate(w, r, "login.html", map[string]any{})
}

// handleLogin authenticates a form post and starts a browser session (POST /login).
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeInput(r, &in); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    in.Email,
		Password: in.Password,
		IP:       middleware.ClientIP(r),
	}, loginDeps())
	if err != nil {
		status := loginStatus(err)
		if status == 0 {
			internalError(w, err)
			return
		}
		renderTemplateStatus(w, r, status, "login.html", map[string]any{"Error": err.Error(), "Email": in.Email})
		return
	}

	tok, err := sessions.Create(result.AccountID, result.Email, result.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, tok, settings.SecureCookies)
	if result.PasswordChangeRequired {
		http.Redirect(w, r, "/change-password", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleLogout ends the browser session (POST /logout).
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if tok := middleware.SessionToken(r); tok != "" {
		sessions.Delete(tok)
	}
	middleware.ClearSessionCookie(w, settings.SecureCookies)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleIssueToken exchanges credentials for a bearer JWT (POST /api/token).
// Accounts that must change their password get no token until they do.
func handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if settings.Tokens == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "api tokens are disabled"})
		return
	}
	var in credentials
	if err := strictDecode(r, &in); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    in.Email,
		Password: in.Password,
		IP:       middleware.ClientIP(r),
	}, loginDeps())
	if err != nil {
		status := loginStatus(err)
		if status == 0 {
			internalError(w, err)
			return
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if result.PasswordChangeRequired {
		slog.Info("auth_event", "event", "token_refused", "account_id", result.AccountID, "reason", "password_change_required")
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "password change required; sign in at /change-password first"})
		return
	}

	tok, exp, err := settings.Tokens.Issue(result.AccountID, result.Email, result.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	slog.Info("auth_event", "event", "token_issued", "account_id", result.AccountID)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"token_type": "Bearer",
		"expires_at": exp.UTC().Format(time.RFC3339),
		"role":       result.Role,
	})
}

// handleMe describes the caller (GET /api/me).
func handleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     sess.AccountID,
		"email":  sess.Email,
		"role":   sess.Role,
		"bearer": sess.Bearer,
	})
}

type passwordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (p *passwordChange) fillForm(form url.Values) error {
	p.CurrentPassword = form.Get("CurrentPassword")
	p.NewPassword = form.Get("NewPassword")
	p.ConfirmPassword = form.Get("ConfirmPassword")
	return nil
}

// handleChangePasswordPage renders the change-password form.
func handleChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "change_password.html", map[string]any{})
}

// handleChangePassword handles POST /change-password and POST /api/me/password.
// Every other session of the account ends; a browser gets a fresh cookie.
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	var in passwordChange
	if err := decodeInput(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	fail := func(status int, msg string) {
		if isJSONBody(r) {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
		renderTemplateStatus(w, r, status, "change_password.html", map[string]any{"Error": msg})
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.NewPassword {
		fail(http.StatusBadRequest, "New passwords do not match")
		return
	}

	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		Actor:           sess.Actor(),
		CurrentPassword: in.CurrentPassword,
		NewPassword:     in.NewPassword,
		IP:              middleware.ClientIP(r),
	}, orchestrators.ChangePasswordDeps{AccountStore: stores.AccountStore, AuditStore: stores.AuditStore, Now: timeNow})
	if err != nil {
		if status := statusFor(err); status != 0 {
			fail(status, err.Error())
			return
		}
		internalError(w, err)
		return
	}

	sessions.DeleteForAccount(sess.AccountID)
	if !sess.Bearer {
		tok, err := sessions.Create(sess.AccountID, sess.Email, sess.Role)
		if err != nil {
			internalError(w, err)
			return
		}
		middleware.SetSessionCookie(w, tok, settings.SecureCookies)
	}
	finish(w, r, http.StatusNoContent, "/dashboard", nil)
}
