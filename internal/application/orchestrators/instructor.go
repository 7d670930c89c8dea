package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"crm/internal/domain/account"
	"crm/internal/domain/instructor"

	"github.com/google/uuid"
)

// InstructorStore defines the store interface needed by the instructor orchestrators.
type InstructorStore interface {
	GetByID(ctx context.Context, id string) (instructor.Instructor, error)
	GetByAccountID(ctx context.Context, accountID string) (instructor.Instructor, error)
	Save(ctx context.Context, in instructor.Instructor) error
}

// AccountLookup resolves an account by ID.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// InstructorDeps holds dependencies for the instructor orchestrators.
type InstructorDeps struct {
	InstructorStore InstructorStore
	Accounts        AccountLookup
	Cache           CacheInvalidator
}

// InstructorInput carries the editable fields of an instructor.
type InstructorInput struct {
	AccountID  string
	Name       string
	Email      string
	Phone      string
	City       string
	SalaryText string
	HiredAt    time.Time
}

var (
	ErrAccountNotInstructor = errors.New("linked account must have the instructor role")
	ErrAccountAlreadyLinked = errors.New("account is already linked to another instructor")
)

func (in InstructorInput) apply(i *instructor.Instructor) {
	i.AccountID = in.AccountID
	i.Name = in.Name
	i.Email = in.Email
	i.Phone = in.Phone
	i.City = in.City
	i.SalaryText = in.SalaryText
	i.HiredAt = in.HiredAt
}

// ExecuteCreateInstructor validates and stores a new instructor.
// POST: SalaryCents parsed from SalaryText; status active
func ExecuteCreateInstructor(ctx context.Context, input InstructorInput, deps InstructorDeps) (instructor.Instructor, error) {
	in := instructor.Instructor{ID: uuid.New().String()}
	input.apply(&in)
	if err := prepareInstructor(ctx, &in, deps); err != nil {
		return instructor.Instructor{}, err
	}
	if err := deps.InstructorStore.Save(ctx, in); err != nil {
		return instructor.Instructor{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("instructor_event", "event", "created", "instructor_id", in.ID)
	return in, nil
}

// ExecuteUpdateInstructor replaces the editable fields of an instructor.
// Status changes go through ExecuteDeactivateInstructor.
func ExecuteUpdateInstructor(ctx context.Context, id string, input InstructorInput, deps InstructorDeps) (instructor.Instructor, error) {
	in, err := deps.InstructorStore.GetByID(ctx, id)
	if err != nil {
		return instructor.Instructor{}, err
	}
	input.apply(&in)
	if err := prepareInstructor(ctx, &in, deps); err != nil {
		return instructor.Instructor{}, err
	}
	if err := deps.InstructorStore.Save(ctx, in); err != nil {
		return instructor.Instructor{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("instructor_event", "event", "updated", "instructor_id", in.ID)
	return in, nil
}

// ExecuteDeactivateInstructor marks an instructor inactive.
func ExecuteDeactivateInstructor(ctx context.Context, id string, deps InstructorDeps) (instructor.Instructor, error) {
	in, err := deps.InstructorStore.GetByID(ctx, id)
	if err != nil {
		return instructor.Instructor{}, err
	}
	if err := in.Deactivate(); err != nil {
		return instructor.Instructor{}, err
	}
	if err := deps.InstructorStore.Save(ctx, in); err != nil {
		return instructor.Instructor{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("instructor_event", "event", "deactivated", "instructor_id", in.ID)
	return in, nil
}

func prepareInstructor(ctx context.Context, in *instructor.Instructor, deps InstructorDeps) error {
	in.Normalize()
	if err := in.ApplySalaryText(); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	if in.AccountID == "" {
		return nil
	}
	if deps.Accounts != nil {
		acct, err := deps.Accounts.GetByID(ctx, in.AccountID)
		if err != nil {
			return err
		}
		if acct.Role != account.RoleInstructor {
			return ErrAccountNotInstructor
		}
	}
	linked, err := deps.InstructorStore.GetByAccountID(ctx, in.AccountID)
	switch {
	case err == nil && linked.ID != in.ID:
		return ErrAccountAlreadyLinked
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return err
	}
	return nil
}
