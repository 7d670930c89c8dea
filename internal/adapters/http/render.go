package web

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"crm/internal/adapters/export"
	"crm/internal/adapters/http/middleware"
	"crm/internal/application/orchestrators"
	"crm/internal/application/projections"
	"crm/internal/domain/account"
	"crm/internal/domain/deal"
	"crm/internal/domain/geo"
	"crm/internal/domain/instructor"
	"crm/internal/domain/money"
	"crm/internal/domain/outbox"
	"crm/internal/domain/studio"
	"crm/internal/domain/ticket"
	"crm/internal/domain/turma"
)

//go:embed templates/*.html
var templateFS embed.FS

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// formFiller is implemented by request bodies that HTML forms can also post.
type formFiller interface {
	fillForm(form url.Values) error
}

// decodeInput reads a JSON body, or a form post when the request body
// supports one.
func decodeInput(r *http.Request, v any) error {
	if isJSONBody(r) {
		return strictDecode(r, v)
	}
	f, ok := v.(formFiller)
	if !ok {
		return errors.New("expected a JSON body")
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	return f.fillForm(r.PostForm)
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("http_event", "event", "encode_failed", "error", err)
	}
}

// currentActor returns the caller. Routes behind RequireAuth always have one.
func currentActor(r *http.Request) (middleware.Session, bool) {
	return middleware.GetSessionFromContext(r.Context())
}

// badRequestErrors are failures caused by the request content.
var badRequestErrors = []error{
	account.ErrInvalidEmail, account.ErrEmptyEmail, account.ErrEmailTooLong, account.ErrInvalidRole,
	account.ErrEmptyPassword, account.ErrPasswordTooShort, account.ErrWrongPassword,
	orchestrators.ErrPasswordFieldsRequired, orchestrators.ErrCurrentPasswordWrong, orchestrators.ErrNewPasswordSame,
	orchestrators.ErrRoleUnchanged, orchestrators.ErrCannotDemoteSelf,
	account.ErrAlreadyActivated, account.ErrNotPending,
	deal.ErrEmptyName, deal.ErrNameTooLong, deal.ErrInvalidEmail, deal.ErrInvalidStage, deal.ErrNegativeValue,
	deal.ErrNotesTooLong, deal.ErrMod2WithoutMod1, deal.ErrSameClassCode, deal.ErrWonWithoutClass,
	deal.ErrInvalidTransition, deal.ErrStageUnchanged,
	orchestrators.ErrUnknownClassCode, orchestrators.ErrClassModuleMismatch,
	turma.ErrEmptyCourse, turma.ErrCourseTooLong, turma.ErrEmptyMod1Code, turma.ErrEmptyMod1Date, turma.ErrCodeTooLong,
	turma.ErrMod2Incomplete, turma.ErrMod2BeforeMod1, turma.ErrSameCode, turma.ErrNegativeCapacity,
	turma.ErrInvalidStatus, turma.ErrAlreadyCancelled,
	orchestrators.ErrInstructorInactive, orchestrators.ErrStudioSuspended, orchestrators.ErrUseCancel,
	instructor.ErrEmptyName, instructor.ErrNameTooLong, instructor.ErrInvalidEmail, instructor.ErrInvalidStatus,
	instructor.ErrAlreadyInactive, instructor.ErrNegativeSalary, orchestrators.ErrAccountNotInstructor,
	money.ErrEmptyAmount, money.ErrInvalidAmount, money.ErrNegativeAmount, money.ErrAmountTooLarge,
	studio.ErrEmptyName, studio.ErrNameTooLong, studio.ErrAddressTooLong, studio.ErrInvalidStatus,
	studio.ErrInvalidRadius, studio.ErrNegativeSeats, studio.ErrAlreadyActive, studio.ErrAlreadySuspended,
	studio.ErrEmptySKU, studio.ErrEmptyItemName, studio.ErrNegativeQuantity, studio.ErrNegativeMinimum,
	studio.ErrInsufficientStock, geo.ErrInvalidCoordinate,
	ticket.ErrEmptySubject, ticket.ErrSubjectTooLong, ticket.ErrEmptyBody, ticket.ErrBodyTooLong,
	ticket.ErrInvalidStatus, ticket.ErrInvalidPriority, ticket.ErrInvalidTransition, ticket.ErrTicketClosed,
	orchestrators.ErrAssigneeNotAdmin,
	outbox.ErrNotRetryable, outbox.ErrNotAbandonable,
	export.ErrUnsupportedFormat, export.ErrEmptyFile,
	projections.ErrInvalidWindow,
}

var conflictErrors = []error{
	studio.ErrRadiusConflict, studio.ErrDuplicateSKU, turma.ErrDuplicateCode,
	orchestrators.ErrEmailAlreadyExists, orchestrators.ErrAccountAlreadyLinked,
}

var forbiddenErrors = []error{
	orchestrators.ErrForbidden, ticket.ErrNotParticipant, studio.ErrNotOwner,
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps an orchestrator or projection error to an HTTP status.
// Zero means the error is internal.
func statusFor(err error) int {
	var importErr *orchestrators.ImportValidationError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case matchesAny(err, forbiddenErrors):
		return http.StatusForbidden
	case matchesAny(err, conflictErrors):
		return http.StatusConflict
	case errors.As(err, &importErr), matchesAny(err, badRequestErrors):
		return http.StatusBadRequest
	}
	return 0
}

// writeError answers a failed operation. Internal errors are logged and
// hidden; radius conflicts list the overlapping studios.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == 0 {
		internalError(w, err)
		return
	}
	msg := err.Error()
	if status == http.StatusNotFound {
		msg = "not found"
	}
	if isHTMLRequest(r) && !isJSONBody(r) {
		http.Error(w, msg, status)
		return
	}
	body := map[string]any{"error": msg}
	var conflict *orchestrators.ConflictError
	if errors.As(err, &conflict) {
		body["conflicts"] = conflict.Conflicts
	}
	writeJSON(w, status, body)
}

// badRequest answers a malformed request body.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// finish answers a successful mutation: HTML form posts are redirected,
// JSON clients receive v.
func finish(w http.ResponseWriter, r *http.Request, status int, redirect string, v any) {
	if !isJSONBody(r) && redirect != "" {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	if v == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, status, v)
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	renderTemplateStatus(w, r, http.StatusOK, templateName, data)
}

// renderTemplateStatus renders templateName inside layout.html with status.
func renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	role := ""
	email := ""
	if ok {
		role = sess.Role
		email = sess.Email
	}

	funcMap := template.FuncMap{
		"currentRole":  func() string { return role },
		"currentEmail": func() string { return email },
		"isLoggedIn":   func() bool { return role != "" },
		"isAdmin":      func() bool { return role == account.RoleAdmin },
		"csrfToken":    func() string { return csrf.Token(r) },
		"add":          func(a, b int) int { return a + b },
		"sub":          func(a, b int) int { return a - b },
		"money":        money.FormatBRL,
		"percent":      func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006")
		},
		"html": func(s string) template.HTML { return template.HTML(s) }, // sanitized upstream
		"pageQuery": func(page int, q url.Values) template.URL {
			v := url.Values{}
			for k, vals := range q {
				v[k] = vals
			}
			v.Set("page", fmt.Sprint(page))
			return template.URL(v.Encode())
		},
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, fmt.Errorf("parse template %s: %w", templateName, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tpl.Execute(w, data); err != nil {
		slog.Error("internal_error", "error", fmt.Sprintf("render %s: %v", templateName, err))
	}
}
