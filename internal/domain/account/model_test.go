package account_test

import (
	"testing"
	"time"

	"crm/internal/domain/account"
)

// TestAccount_Validate tests validation of Account.
func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account account.Account
		wantErr error
	}{
		{"valid admin", account.Account{Email: "admin@crm.test", Role: account.RoleAdmin}, nil},
		{"valid instructor", account.Account{Email: "ana@crm.test", Role: account.RoleInstructor}, nil},
		{"valid partner", account.Account{Email: "studio@crm.test", Role: account.RolePartner}, nil},
		{"valid student", account.Account{Email: "joao@crm.test", Role: account.RoleStudent}, nil},
		{"empty email", account.Account{Role: account.RoleAdmin}, account.ErrEmptyEmail},
		{"no at sign", account.Account{Email: "nope", Role: account.RoleAdmin}, account.ErrInvalidEmail},
		{"unknown role", account.Account{Email: "x@crm.test", Role: "coach"}, account.ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestAccount_SetPassword verifies hashing and the minimum length rule.
func TestAccount_SetPassword(t *testing.T) {
	a := account.Account{}
	if err := a.SetPassword("short"); err != account.ErrPasswordTooShort {
		t.Fatalf("SetPassword(short) = %v, want ErrPasswordTooShort", err)
	}
	if err := a.SetPassword(""); err != account.ErrEmptyPassword {
		t.Fatalf("SetPassword(empty) = %v, want ErrEmptyPassword", err)
	}
	if err := a.SetPassword("correct horse battery"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if a.PasswordHash == "" || a.PasswordHash == "correct horse battery" {
		t.Fatal("expected bcrypt hash to be stored")
	}
	if err := a.CheckPassword("correct horse battery"); err != nil {
		t.Errorf("CheckPassword(correct) = %v", err)
	}
	if err := a.CheckPassword("wrong horse battery"); err != account.ErrWrongPassword {
		t.Errorf("CheckPassword(wrong) = %v, want ErrWrongPassword", err)
	}
}

// TestAccount_Lockout verifies five failures lock the account, the lock
// expires, and a failure after expiry starts counting again.
func TestAccount_Lockout(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := account.Account{}
	for i := 0; i < account.MaxFailedLogins-1; i++ {
		a.RecordFailedLogin(now)
	}
	if a.IsLockedAt(now) {
		t.Fatal("account locked before threshold")
	}
	a.RecordFailedLogin(now)
	if !a.IsLockedAt(now) {
		t.Fatal("account should be locked after threshold")
	}
	if !a.LockedUntil.Equal(now.Add(account.LockoutDuration)) {
		t.Errorf("LockedUntil = %v", a.LockedUntil)
	}

	later := now.Add(account.LockoutDuration + time.Second)
	if a.IsLockedAt(later) {
		t.Fatal("lock should expire")
	}
	a.RecordFailedLogin(later)
	if a.FailedLogins != 1 || a.IsLockedAt(later) {
		t.Errorf("after expiry: failed=%d locked=%v", a.FailedLogins, a.IsLockedAt(later))
	}

	a.ResetFailedLogins()
	if a.IsLockedAt(later) || a.FailedLogins != 0 {
		t.Error("ResetFailedLogins should clear lock and counter")
	}
}

// TestAccount_Activate covers the pending -> active transition.
func TestAccount_Activate(t *testing.T) {
	a := account.Account{Status: account.StatusPendingActivation}
	if err := a.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := a.Activate(); err != account.ErrAlreadyActivated {
		t.Errorf("second Activate = %v, want ErrAlreadyActivated", err)
	}
	b := account.Account{Status: "weird"}
	if err := b.Activate(); err != account.ErrNotPending {
		t.Errorf("Activate(weird) = %v, want ErrNotPending", err)
	}
}
