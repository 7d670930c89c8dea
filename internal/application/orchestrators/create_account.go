package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"crm/internal/domain/account"
	"crm/internal/domain/audit"

	"github.com/google/uuid"
)

// AccountStoreForCreate defines the store interface needed by CreateAccount.
type AccountStoreForCreate interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	Email                  string
	Password               string
	Role                   string
	PasswordChangeRequired bool
	Pending                bool // account cannot log in until activated
	Actor                  audit.Actor
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	AuditStore   AuditStore
	Now          func() time.Time
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteCreateAccount coordinates account creation.
// PRE: Valid email, password >= 12 chars, valid role
// POST: Account created with hashed password
// INVARIANT: Email must be unique
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (string, error) {
	now := clock(deps.Now)
	status := account.StatusActive
	if input.Pending {
		status = account.StatusPendingActivation
	}
	acct := account.Account{
		ID:                     uuid.New().String(),
		Email:                  strings.ToLower(strings.TrimSpace(input.Email)),
		Role:                   input.Role,
		Status:                 status,
		CreatedAt:              now,
		PasswordChangeRequired: input.PasswordChangeRequired,
	}
	if err := acct.Validate(); err != nil {
		return "", err
	}

	if _, err := deps.AccountStore.GetByEmail(ctx, acct.Email); err == nil {
		return "", ErrEmailAlreadyExists
	}

	if err := acct.SetPassword(input.Password); err != nil {
		return "", err
	}

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return "", err
	}

	slog.Info("auth_event", "event", "account_created", "email", acct.Email, "role", acct.Role)
	if input.Actor.ID != "" {
		recordAudit(ctx, deps.AuditStore, audit.NewEvent(input.Actor, audit.CategoryAccount, audit.ActionCreate, now).
			WithResource("account", acct.ID).
			WithDescription(fmt.Sprintf("created %s account %s", acct.Role, acct.Email)))
	}

	return acct.ID, nil
}

// ExecuteSeedAdmin creates a default admin account if no accounts exist.
// PRE: Database is initialized
// POST: Admin account created if count == 0
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, email, password string) error {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err = ExecuteCreateAccount(ctx, CreateAccountInput{
		Email:                  email,
		Password:               password,
		Role:                   account.RoleAdmin,
		PasswordChangeRequired: true,
	}, deps)
	if err != nil {
		return err
	}

	slog.Info("auth_event", "event", "admin_seeded", "email", email)
	return nil
}

// AccountStoreForRoleChange defines the store interface needed by ChangeRole.
type AccountStoreForRoleChange interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// ChangeRoleInput carries input for the role-change orchestrator.
type ChangeRoleInput struct {
	AccountID string
	Role      string
	Actor     audit.Actor
}

// ChangeRoleDeps holds dependencies for ChangeRole.
type ChangeRoleDeps struct {
	AccountStore AccountStoreForRoleChange
	AuditStore   AuditStore
	Now          func() time.Time
}

var (
	ErrRoleUnchanged    = errors.New("account already has that role")
	ErrCannotDemoteSelf = errors.New("administrators cannot change their own role")
)

// ExecuteChangeRole moves an account to another portal role. The caller is
// responsible for dropping the account's live sessions.
// PRE: Actor is an admin
// POST: Account role updated and a critical audit event recorded
func ExecuteChangeRole(ctx context.Context, input ChangeRoleInput, deps ChangeRoleDeps) (account.Account, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return account.Account{}, err
	}
	if input.Actor.ID == input.AccountID {
		return account.Account{}, ErrCannotDemoteSelf
	}
	if !account.IsValidRole(input.Role) {
		return account.Account{}, account.ErrInvalidRole
	}

	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return account.Account{}, err
	}
	if acct.Role == input.Role {
		return account.Account{}, ErrRoleUnchanged
	}

	previous := acct.Role
	acct.Role = input.Role
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, err
	}

	slog.Info("auth_event", "event", "role_changed", "account_id", acct.ID, "from", previous, "to", acct.Role)
	recordAudit(ctx, deps.AuditStore, audit.NewEvent(input.Actor, audit.CategoryAccount, audit.ActionRoleChange, clock(deps.Now)).
		WithSeverity(audit.SeverityCritical).
		WithResource("account", acct.ID).
		WithDescription(fmt.Sprintf("%s: %s -> %s", acct.Email, previous, acct.Role)))

	return acct, nil
}

// ActivateAccountInput names the pending account to activate.
type ActivateAccountInput struct {
	AccountID string
	Actor     audit.Actor
}

// ExecuteActivateAccount lets a pending account log in.
// PRE: Actor is an admin
// POST: Account status is active and an audit event recorded
func ExecuteActivateAccount(ctx context.Context, input ActivateAccountInput, deps ChangeRoleDeps) (account.Account, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return account.Account{}, err
	}
	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return account.Account{}, err
	}
	if err := acct.Activate(); err != nil {
		return account.Account{}, err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, err
	}

	slog.Info("auth_event", "event", "account_activated", "account_id", acct.ID)
	recordAudit(ctx, deps.AuditStore, audit.NewEvent(input.Actor, audit.CategoryAccount, audit.ActionActivate, clock(deps.Now)).
		WithResource("account", acct.ID).
		WithDescription("activated "+acct.Email))
	return acct, nil
}
