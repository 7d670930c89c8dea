package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crm/internal/domain/account"
	"crm/internal/domain/audit"
)

var (
	ErrPasswordFieldsRequired = errors.New("current and new password are required")
	ErrCurrentPasswordWrong   = errors.New("current password is incorrect")
	ErrNewPasswordSame        = errors.New("new password must be different from current password")
)

// AccountStoreForChangePassword is the slice of the account store ChangePassword uses.
type AccountStoreForChangePassword interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// ChangePasswordInput identifies the caller and both passwords.
type ChangePasswordInput struct {
	Actor           audit.Actor
	CurrentPassword string
	NewPassword     string
	IP              string
}

// ChangePasswordDeps holds dependencies for ChangePassword.
type ChangePasswordDeps struct {
	AccountStore AccountStoreForChangePassword
	AuditStore   AuditStore
	Now          func() time.Time
}

// ExecuteChangePassword replaces the caller's password after checking the
// current one. A successful change clears the forced-change flag and any
// failed-login lockout, and lands in the security audit trail.
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps ChangePasswordDeps) error {
	if input.Actor.ID == "" || input.CurrentPassword == "" || input.NewPassword == "" {
		return ErrPasswordFieldsRequired
	}
	if input.CurrentPassword == input.NewPassword {
		return ErrNewPasswordSame
	}

	acct, err := deps.AccountStore.GetByID(ctx, input.Actor.ID)
	if err != nil {
		return err
	}
	if acct.CheckPassword(input.CurrentPassword) != nil {
		slog.Warn("auth_event", "event", "password_change_rejected", "account_id", acct.ID)
		return ErrCurrentPasswordWrong
	}
	if err := acct.SetPassword(input.NewPassword); err != nil {
		return err
	}
	acct.PasswordChangeRequired = false
	acct.ResetFailedLogins()
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "account_id", acct.ID)
	e := audit.NewEvent(input.Actor, audit.CategorySecurity, audit.ActionUpdate, clock(deps.Now)).
		WithResource("account", acct.ID).
		WithDescription("changed password")
	e.IPAddress = input.IP
	recordAudit(ctx, deps.AuditStore, e)
	return nil
}
