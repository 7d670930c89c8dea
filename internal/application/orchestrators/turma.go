package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crm/internal/domain/audit"
	"crm/internal/domain/instructor"
	"crm/internal/domain/studio"
	"crm/internal/domain/turma"

	"github.com/google/uuid"
)

// ClassStore defines the store interface needed by the class orchestrators.
type ClassStore interface {
	GetByID(ctx context.Context, id string) (turma.Turma, error)
	Save(ctx context.Context, t turma.Turma) error
	CodeInUse(ctx context.Context, code, excludeID string) (bool, error)
}

// StudioLookup resolves a studio by ID.
type StudioLookup interface {
	GetByID(ctx context.Context, id string) (studio.Studio, error)
}

// InstructorLookup resolves an instructor by ID.
type InstructorLookup interface {
	GetByID(ctx context.Context, id string) (instructor.Instructor, error)
}

// ClassDeps holds dependencies for the class orchestrators.
type ClassDeps struct {
	ClassStore  ClassStore
	Studios     StudioLookup
	Instructors InstructorLookup
	AuditStore  AuditStore
	Cache       CacheInvalidator
	Now         func() time.Time
}

// ClassInput carries the editable fields of a class.
type ClassInput struct {
	Course       string
	City         string
	StudioID     string
	InstructorID string
	Mod1Code     string
	Mod1Date     time.Time
	Mod2Code     string
	Mod2Date     time.Time
	Capacity     int
	Status       string
}

var (
	ErrInstructorInactive = errors.New("instructor is not active")
	ErrStudioSuspended    = errors.New("studio is suspended")
	ErrUseCancel          = errors.New("use cancel to cancel a class")
)

func (in ClassInput) apply(t *turma.Turma) {
	t.Course = in.Course
	t.City = in.City
	t.StudioID = in.StudioID
	t.InstructorID = in.InstructorID
	t.Mod1Code = in.Mod1Code
	t.Mod1Date = in.Mod1Date
	t.Mod2Code = in.Mod2Code
	t.Mod2Date = in.Mod2Date
	t.Capacity = in.Capacity
	if in.Status != "" {
		t.Status = in.Status
	}
}

// ExecuteCreateClass validates and stores a new class.
// PRE: Mod1Code and Mod1Date are set
// POST: Class saved; its codes are unique across all classes
func ExecuteCreateClass(ctx context.Context, input ClassInput, deps ClassDeps) (turma.Turma, error) {
	t := turma.Turma{ID: uuid.New().String(), CreatedAt: clock(deps.Now)}
	input.apply(&t)
	if err := prepareClass(ctx, &t, deps); err != nil {
		return turma.Turma{}, err
	}
	if err := deps.ClassStore.Save(ctx, t); err != nil {
		return turma.Turma{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("class_event", "event", "created", "class_id", t.ID, "mod1_code", t.Mod1Code)
	return t, nil
}

// ExecuteUpdateClass replaces the editable fields of a class.
// PRE: id refers to a class that is not cancelled
// POST: Class saved; its codes are unique across all classes
func ExecuteUpdateClass(ctx context.Context, id string, input ClassInput, deps ClassDeps) (turma.Turma, error) {
	t, err := deps.ClassStore.GetByID(ctx, id)
	if err != nil {
		return turma.Turma{}, err
	}
	if t.Status == turma.StatusCancelled {
		return turma.Turma{}, turma.ErrAlreadyCancelled
	}
	if input.Status == turma.StatusCancelled {
		return turma.Turma{}, ErrUseCancel
	}
	input.apply(&t)
	if err := prepareClass(ctx, &t, deps); err != nil {
		return turma.Turma{}, err
	}
	if err := deps.ClassStore.Save(ctx, t); err != nil {
		return turma.Turma{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("class_event", "event", "updated", "class_id", t.ID)
	return t, nil
}

// ExecuteCancelClass cancels a class. Enrolled deals keep their codes.
// PRE: actor is an admin
// POST: Class status is cancelled and an audit event recorded
func ExecuteCancelClass(ctx context.Context, id string, actor audit.Actor, deps ClassDeps) (turma.Turma, error) {
	if err := requireAdmin(actor); err != nil {
		return turma.Turma{}, err
	}
	t, err := deps.ClassStore.GetByID(ctx, id)
	if err != nil {
		return turma.Turma{}, err
	}
	if err := t.Cancel(); err != nil {
		return turma.Turma{}, err
	}
	if err := deps.ClassStore.Save(ctx, t); err != nil {
		return turma.Turma{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("class_event", "event", "cancelled", "class_id", t.ID, "actor_id", actor.ID)
	recordAudit(ctx, deps.AuditStore, audit.NewEvent(actor, audit.CategoryClass, audit.ActionCancel, clock(deps.Now)).
		WithSeverity(audit.SeverityWarning).
		WithResource("class", t.ID).
		WithDescription(fmt.Sprintf("cancelled %s (%s)", t.Course, t.Mod1Code)))
	return t, nil
}

// prepareClass normalises and validates t, checks its references and the
// uniqueness of its codes. The city defaults to the studio's city.
func prepareClass(ctx context.Context, t *turma.Turma, deps ClassDeps) error {
	t.Normalize()
	if t.StudioID != "" && deps.Studios != nil {
		s, err := deps.Studios.GetByID(ctx, t.StudioID)
		if err != nil {
			return err
		}
		if s.Status == studio.StatusSuspended {
			return ErrStudioSuspended
		}
		if t.City == "" {
			t.City = s.City
		}
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if t.InstructorID != "" && deps.Instructors != nil {
		in, err := deps.Instructors.GetByID(ctx, t.InstructorID)
		if err != nil {
			return err
		}
		if !in.IsActive() {
			return ErrInstructorInactive
		}
	}
	for _, code := range t.Codes() {
		used, err := deps.ClassStore.CodeInUse(ctx, code, t.ID)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: %s", turma.ErrDuplicateCode, code)
		}
	}
	return nil
}
