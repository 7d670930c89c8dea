package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"crm/internal/adapters/token"
	domainAccount "crm/internal/domain/account"
	"crm/internal/domain/audit"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// SessionTTL is how long a browser session lasts.
const SessionTTL = 24 * time.Hour

const sessionCookieName = "crm_session"

// Session is the authenticated identity attached to a request.
type Session struct {
	AccountID string
	Email     string
	Role      string
	CreatedAt time.Time
	Bearer    bool // authenticated with a JWT rather than the session cookie
}

// IsAdmin reports whether the session belongs to an admin.
func (s Session) IsAdmin() bool {
	return s.Role == domainAccount.RoleAdmin
}

// Actor returns the caller as recorded in audit events.
func (s Session) Actor() audit.Actor {
	return audit.Actor{ID: s.AccountID, Email: s.Email, Role: s.Role}
}

// SessionStore is an in-memory browser session store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]Session), now: time.Now}
}

// Create stores a new session and returns its token.
// PRE: accountID, email, role are non-empty
func (ss *SessionStore) Create(accountID, email, role string) (string, error) {
	tok, err := generateToken()
	if err != nil {
		return "", err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[tok] = Session{AccountID: accountID, Email: email, Role: role, CreatedAt: ss.now()}
	return tok, nil
}

// Get returns the session for tok if it exists and has not expired.
func (ss *SessionStore) Get(tok string) (Session, bool) {
	ss.mu.RLock()
	session, ok := ss.sessions[tok]
	ss.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if ss.now().Sub(session.CreatedAt) > SessionTTL {
		ss.Delete(tok)
		return Session{}, false
	}
	return session, true
}

// Delete removes a session by token.
func (ss *SessionStore) Delete(tok string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, tok)
}

// DeleteForAccount ends every session of an account, e.g. after a role or
// password change. It returns the number of sessions removed.
func (ss *SessionStore) DeleteForAccount(accountID string) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	n := 0
	for tok, s := range ss.sessions {
		if s.AccountID == accountID {
			delete(ss.sessions, tok)
			n++
		}
	}
	return n
}

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(raw string) (token.Claims, error)
}

// AccountLookup loads the account a bearer token was issued to.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (domainAccount.Account, error)
}

// Auth attaches the caller's Session to the request context, from the session
// cookie or an "Authorization: Bearer" JWT. It does not block anonymous
// requests; RequireAuth and RequireRole do that.
//
// A token only proves who the caller is. Role and email come from the
// account as stored now, so a role change applies to tokens already issued,
// and tokens for unknown or pending accounts are ignored.
func Auth(sessions *SessionStore, tokens TokenParser, accounts AccountLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, ok := sessionFromRequest(r, sessions, tokens, accounts); ok {
				r = r.WithContext(ContextWithSession(r.Context(), session))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionFromRequest(r *http.Request, sessions *SessionStore, tokens TokenParser, accounts AccountLookup) (Session, bool) {
	if raw, ok := bearerToken(r); ok {
		if tokens == nil || accounts == nil {
			return Session{}, false
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			return Session{}, false
		}
		acct, err := accounts.GetByID(r.Context(), claims.AccountID())
		if err != nil {
			return Session{}, false
		}
		if acct.IsPendingActivation() || acct.PasswordChangeRequired {
			return Session{}, false
		}
		return Session{
			AccountID: acct.ID,
			Email:     acct.Email,
			Role:      acct.Role,
			CreatedAt: claims.IssuedAt.Time,
			Bearer:    true,
		}, true
	}
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, false
	}
	return sessions.Get(cookie.Value)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, raw, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(raw) == "" {
		return "", false
	}
	return strings.TrimSpace(raw), true
}

// RequireAuth blocks anonymous requests: browsers are redirected to /login,
// API clients get 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); !ok {
			deny(w, r, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole blocks requests from sessions without one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := GetSessionFromContext(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized)
				return
			}
			if !slices.Contains(roles, session.Role) {
				deny(w, r, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, status int) {
	if status == http.StatusUnauthorized && wantsHTML(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": strings.ToLower(http.StatusText(status))})
}

func wantsHTML(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// ContextWithSession returns a context carrying sess.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, tok string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    tok,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

// SessionToken returns the raw session cookie value, if any.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
