package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crm/internal/adapters/token"
	domainAccount "crm/internal/domain/account"
)

func whoami(w http.ResponseWriter, r *http.Request) {
	s, ok := GetSessionFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_, _ = w.Write([]byte(s.Role + ":" + s.AccountID))
}

func TestAuth_CookieSession(t *testing.T) {
	sessions := NewSessionStore()
	tok, err := sessions.Create("acc-1", "a@x.test", "partner")
	if err != nil {
		t.Fatal(err)
	}
	handler := Auth(sessions, nil, nil)(http.HandlerFunc(whoami))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tok})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Body.String() != "partner:acc-1" {
		t.Errorf("body = %q", rr.Body.String())
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "bogus"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Errorf("unknown cookie should be anonymous, got %d", rr.Code)
	}
}

type accountMap map[string]domainAccount.Account

func (m accountMap) GetByID(_ context.Context, id string) (domainAccount.Account, error) {
	a, ok := m[id]
	if !ok {
		return domainAccount.Account{}, sql.ErrNoRows
	}
	return a, nil
}

func bearerRequest(raw string) *http.Request {
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	return req
}

func TestAuth_BearerToken(t *testing.T) {
	iss, err := token.NewIssuer("secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	raw, _, err := iss.Issue("acc-9", "s@x.test", "student")
	if err != nil {
		t.Fatal(err)
	}
	accounts := accountMap{"acc-9": {ID: "acc-9", Email: "s@x.test", Role: "student", Status: domainAccount.StatusActive}}
	handler := Auth(NewSessionStore(), iss, accounts)(http.HandlerFunc(whoami))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, bearerRequest(raw))
	if rr.Body.String() != "student:acc-9" {
		t.Errorf("body = %q", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, bearerRequest(raw+"x"))
	if rr.Code != http.StatusNoContent {
		t.Errorf("tampered token should be anonymous, got %d", rr.Code)
	}
}

// TestAuth_BearerFollowsStoredAccount verifies a token carries the account's
// current role, not the role it was issued with.
func TestAuth_BearerFollowsStoredAccount(t *testing.T) {
	iss, err := token.NewIssuer("secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	raw, _, err := iss.Issue("acc-1", "a@x.test", "admin")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		account domainAccount.Account
		known   bool
		want    string
		code    int
	}{
		{"unchanged", domainAccount.Account{ID: "acc-1", Email: "a@x.test", Role: "admin", Status: domainAccount.StatusActive}, true, "admin:acc-1", http.StatusOK},
		{"demoted", domainAccount.Account{ID: "acc-1", Email: "a@x.test", Role: "student", Status: domainAccount.StatusActive}, true, "student:acc-1", http.StatusOK},
		{"pending", domainAccount.Account{ID: "acc-1", Role: "admin", Status: domainAccount.StatusPendingActivation}, true, "", http.StatusNoContent},
		{"must change password", domainAccount.Account{ID: "acc-1", Role: "admin", Status: domainAccount.StatusActive, PasswordChangeRequired: true}, true, "", http.StatusNoContent},
		{"deleted", domainAccount.Account{}, false, "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := accountMap{}
			if tt.known {
				accounts["acc-1"] = tt.account
			}
			rr := httptest.NewRecorder()
			Auth(NewSessionStore(), iss, accounts)(http.HandlerFunc(whoami)).ServeHTTP(rr, bearerRequest(raw))
			if rr.Code != tt.code || rr.Body.String() != tt.want {
				t.Errorf("got %d %q, want %d %q", rr.Code, rr.Body.String(), tt.code, tt.want)
			}
		})
	}
}

func TestSessionStore_ExpiryAndAccountLogout(t *testing.T) {
	ss := NewSessionStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ss.now = func() time.Time { return now }

	a, _ := ss.Create("acc-1", "a@x.test", "admin")
	b, _ := ss.Create("acc-1", "a@x.test", "admin")
	c, _ := ss.Create("acc-2", "b@x.test", "student")

	if n := ss.DeleteForAccount("acc-1"); n != 2 {
		t.Errorf("DeleteForAccount = %d, want 2", n)
	}
	if _, ok := ss.Get(a); ok {
		t.Error("session a should be gone")
	}
	if _, ok := ss.Get(b); ok {
		t.Error("session b should be gone")
	}
	if _, ok := ss.Get(c); !ok {
		t.Fatal("session c should survive")
	}
	now = now.Add(SessionTTL + time.Second)
	if _, ok := ss.Get(c); ok {
		t.Error("session c should have expired")
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole("admin")(http.HandlerFunc(whoami))
	tests := []struct {
		name     string
		session  *Session
		path     string
		accept   string
		wantCode int
	}{
		{"admin allowed", &Session{Role: "admin", AccountID: "1"}, "/api/deals", "", http.StatusOK},
		{"student forbidden", &Session{Role: "student"}, "/api/deals", "", http.StatusForbidden},
		{"anonymous api", nil, "/api/deals", "", http.StatusUnauthorized},
		{"anonymous browser", nil, "/deals", "text/html", http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if tt.session != nil {
				req = req.WithContext(ContextWithSession(req.Context(), *tt.session))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("other clients have their own bucket")
	}
	now = now.Add(time.Second)
	if !rl.Allow("1.1.1.1") {
		t.Error("bucket should refill after the interval")
	}
	now = now.Add(10 * time.Minute)
	rl.Allow("3.3.3.3")
	if len(rl.visitors) != 1 {
		t.Errorf("idle visitors should be swept, have %d", len(rl.visitors))
	}
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(whoami)).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}
