package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crm/internal/domain/audit"
	"crm/internal/domain/deal"
	"crm/internal/domain/turma"

	"github.com/google/uuid"
)

// DealStore defines the store interface needed by the deal orchestrators.
type DealStore interface {
	GetByID(ctx context.Context, id string) (deal.Deal, error)
	GetByEmail(ctx context.Context, email string) (deal.Deal, error)
	Save(ctx context.Context, d deal.Deal) error
	Delete(ctx context.Context, id string) error
}

// ClassCodeLookup resolves a class code to its class.
type ClassCodeLookup interface {
	GetByCode(ctx context.Context, code string) (turma.Turma, error)
}

// DealDeps holds dependencies for the deal orchestrators.
type DealDeps struct {
	DealStore  DealStore
	ClassStore ClassCodeLookup
	AuditStore AuditStore
	Cache      CacheInvalidator
	Now        func() time.Time
}

// DealInput carries the editable fields of a deal.
type DealInput struct {
	Name          string
	Email         string
	Phone         string
	City          string
	Source        string
	Stage         string
	ValueCents    int64
	ClassCodeMod1 string
	ClassCodeMod2 string
	OwnerID       string
	Notes         string
}

var (
	ErrUnknownClassCode    = errors.New("class code does not match any class")
	ErrClassModuleMismatch = errors.New("class code belongs to the other module")
)

func (in DealInput) apply(d *deal.Deal) {
	d.Name = in.Name
	d.Email = in.Email
	d.Phone = in.Phone
	d.City = in.City
	d.Source = in.Source
	d.ValueCents = in.ValueCents
	d.ClassCodeMod1 = in.ClassCodeMod1
	d.ClassCodeMod2 = in.ClassCodeMod2
	d.OwnerID = in.OwnerID
	d.Notes = in.Notes
}

// ExecuteCreateDeal validates and stores a new deal.
// PRE: input.Name is non-empty
// POST: Deal saved with a fresh ID; dashboard cache invalidated
func ExecuteCreateDeal(ctx context.Context, input DealInput, deps DealDeps) (deal.Deal, error) {
	now := clock(deps.Now)
	d := deal.Deal{
		ID:        uuid.New().String(),
		Stage:     input.Stage,
		CreatedAt: now,
		UpdatedAt: now,
	}
	input.apply(&d)
	d.Normalize()
	if err := d.Validate(); err != nil {
		return deal.Deal{}, err
	}
	if err := checkClassCodes(ctx, deps.ClassStore, d); err != nil {
		return deal.Deal{}, err
	}
	if err := deps.DealStore.Save(ctx, d); err != nil {
		return deal.Deal{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("deal_event", "event", "created", "deal_id", d.ID, "stage", d.Stage)
	return d, nil
}

// ExecuteUpdateDeal replaces the editable fields of a deal. Stage changes go
// through ExecuteChangeDealStage.
// PRE: id refers to an existing deal
// POST: Deal saved with UpdatedAt refreshed; Stage unchanged
func ExecuteUpdateDeal(ctx context.Context, id string, input DealInput, deps DealDeps) (deal.Deal, error) {
	d, err := deps.DealStore.GetByID(ctx, id)
	if err != nil {
		return deal.Deal{}, err
	}
	input.apply(&d)
	d.UpdatedAt = clock(deps.Now)
	d.Normalize()
	if err := d.Validate(); err != nil {
		return deal.Deal{}, err
	}
	if err := checkClassCodes(ctx, deps.ClassStore, d); err != nil {
		return deal.Deal{}, err
	}
	if err := deps.DealStore.Save(ctx, d); err != nil {
		return deal.Deal{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("deal_event", "event", "updated", "deal_id", d.ID)
	return d, nil
}

// ExecuteChangeDealStage moves a deal along the pipeline.
// POST: Deal stage updated when the transition is allowed
func ExecuteChangeDealStage(ctx context.Context, id, stage string, deps DealDeps) (deal.Deal, error) {
	d, err := deps.DealStore.GetByID(ctx, id)
	if err != nil {
		return deal.Deal{}, err
	}
	previous := d.Stage
	if err := d.MoveTo(stage, clock(deps.Now)); err != nil {
		return deal.Deal{}, err
	}
	if err := deps.DealStore.Save(ctx, d); err != nil {
		return deal.Deal{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("deal_event", "event", "stage_changed", "deal_id", d.ID, "from", previous, "to", d.Stage)
	return d, nil
}

// ExecuteDeleteDeal removes a deal.
// PRE: actor is an admin
// POST: Deal deleted and a warning-level audit event recorded
func ExecuteDeleteDeal(ctx context.Context, id string, actor audit.Actor, deps DealDeps) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	d, err := deps.DealStore.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := deps.DealStore.Delete(ctx, id); err != nil {
		return err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("deal_event", "event", "deleted", "deal_id", id, "actor_id", actor.ID)
	recordAudit(ctx, deps.AuditStore, audit.NewEvent(actor, audit.CategoryDeal, audit.ActionDelete, clock(deps.Now)).
		WithSeverity(audit.SeverityWarning).
		WithResource("deal", id).
		WithDescription(fmt.Sprintf("deleted deal %q (%s)", d.Name, d.Stage)))
	return nil
}

// checkClassCodes verifies that the deal's module codes reference existing
// classes under the matching module. A nil lookup skips the check.
func checkClassCodes(ctx context.Context, classes ClassCodeLookup, d deal.Deal) error {
	if classes == nil {
		return nil
	}
	check := func(code string, mod1 bool) error {
		if code == "" {
			return nil
		}
		t, err := classes.GetByCode(ctx, code)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrUnknownClassCode, code)
		}
		if err != nil {
			return err
		}
		if (mod1 && t.Mod1Code != code) || (!mod1 && t.Mod2Code != code) {
			return fmt.Errorf("%w: %s", ErrClassModuleMismatch, code)
		}
		return nil
	}
	if err := check(d.ClassCodeMod1, true); err != nil {
		return err
	}
	return check(d.ClassCodeMod2, false)
}
