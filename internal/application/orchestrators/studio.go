package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	studioStore "crm/internal/adapters/storage/studio"
	"crm/internal/domain/account"
	"crm/internal/domain/audit"
	"crm/internal/domain/studio"

	"github.com/google/uuid"
)

// StudioStore defines the store interface needed by the studio orchestrators.
type StudioStore interface {
	GetByID(ctx context.Context, id string) (studio.Studio, error)
	Save(ctx context.Context, s studio.Studio) error
	List(ctx context.Context, filter studioStore.ListFilter) ([]studio.Studio, error)
	GetItem(ctx context.Context, id string) (studio.Item, error)
	SaveItem(ctx context.Context, item studio.Item) error
	AdjustItemQuantity(ctx context.Context, id string, delta int, now time.Time) (studio.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// StudioDeps holds dependencies for the studio orchestrators.
type StudioDeps struct {
	StudioStore     StudioStore
	AuditStore      AuditStore
	Cache           CacheInvalidator
	DefaultRadiusKm float64
	Now             func() time.Time
}

// StudioInput carries the editable fields of a studio.
type StudioInput struct {
	Name             string
	PartnerAccountID string
	City             string
	Address          string
	Latitude         float64
	Longitude        float64
	RadiusKm         float64
	Seats            int
}

// StudioCommand identifies who acts and whether radius conflicts are overridden.
type StudioCommand struct {
	Actor audit.Actor
	IP    string
	Force bool
}

// ConflictError reports the studios whose exclusive radius would overlap.
type ConflictError struct {
	Conflicts []studio.Conflict
}

func (e *ConflictError) Error() string {
	names := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		names = append(names, fmt.Sprintf("%s (%.1f km)", c.Name, c.DistanceKm))
	}
	return studio.ErrRadiusConflict.Error() + ": " + strings.Join(names, ", ")
}

func (e *ConflictError) Unwrap() error {
	return studio.ErrRadiusConflict
}

func (in StudioInput) apply(s *studio.Studio) {
	s.Name = in.Name
	s.City = in.City
	s.Address = in.Address
	s.Latitude = in.Latitude
	s.Longitude = in.Longitude
	s.RadiusKm = in.RadiusKm
	s.Seats = in.Seats
}

// ExecuteRegisterStudio creates a prospect studio. A partner always registers
// for itself; an admin may name the owning partner.
// PRE: cmd.Actor is an admin or a partner
// POST: Studio saved as prospect, or a *ConflictError when its radius overlaps
// an active studio and the override was not granted
func ExecuteRegisterStudio(ctx context.Context, input StudioInput, cmd StudioCommand, deps StudioDeps) (studio.Studio, error) {
	if cmd.Actor.Role != account.RoleAdmin && cmd.Actor.Role != account.RolePartner {
		return studio.Studio{}, ErrForbidden
	}
	now := clock(deps.Now)
	s := studio.Studio{ID: uuid.New().String(), Status: studio.StatusProspect, CreatedAt: now}
	input.apply(&s)
	s.PartnerAccountID = input.PartnerAccountID
	if cmd.Actor.Role == account.RolePartner {
		s.PartnerAccountID = cmd.Actor.ID
	}
	if s.RadiusKm == 0 {
		s.RadiusKm = deps.DefaultRadiusKm
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return studio.Studio{}, err
	}
	if err := guardRadius(ctx, s, cmd, deps, "register"); err != nil {
		return studio.Studio{}, err
	}
	if err := deps.StudioStore.Save(ctx, s); err != nil {
		return studio.Studio{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("studio_event", "event", "registered", "studio_id", s.ID, "partner_id", s.PartnerAccountID)
	if cmd.Actor.Role == account.RoleAdmin {
		recordAudit(ctx, deps.AuditStore, audit.NewEvent(cmd.Actor, audit.CategoryStudio, audit.ActionCreate, now).
			WithResource("studio", s.ID).
			WithDescription("registered studio "+s.Name).
			WithIP(cmd.IP))
	}
	return s, nil
}

// ExecuteUpdateStudio replaces the editable fields of a studio. Moving an
// active studio or widening its radius rechecks conflicts.
// PRE: cmd.Actor is an admin or the owning partner
func ExecuteUpdateStudio(ctx context.Context, id string, input StudioInput, cmd StudioCommand, deps StudioDeps) (studio.Studio, error) {
	s, err := loadOwnedStudio(ctx, id, cmd.Actor, deps.StudioStore)
	if err != nil {
		return studio.Studio{}, err
	}
	before := s
	input.apply(&s)
	if cmd.Actor.Role == account.RoleAdmin && input.PartnerAccountID != "" {
		s.PartnerAccountID = input.PartnerAccountID
	}
	if s.RadiusKm == 0 {
		s.RadiusKm = before.RadiusKm
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return studio.Studio{}, err
	}
	moved := s.Latitude != before.Latitude || s.Longitude != before.Longitude || s.RadiusKm > before.RadiusKm
	if s.IsActive() && moved {
		if err := guardRadius(ctx, s, cmd, deps, "update"); err != nil {
			return studio.Studio{}, err
		}
	}
	if err := deps.StudioStore.Save(ctx, s); err != nil {
		return studio.Studio{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("studio_event", "event", "updated", "studio_id", s.ID)
	return s, nil
}

// ExecuteActivateStudio moves a studio to active after a radius check.
// PRE: cmd.Actor is an admin
func ExecuteActivateStudio(ctx context.Context, id string, cmd StudioCommand, deps StudioDeps) (studio.Studio, error) {
	if err := requireAdmin(cmd.Actor); err != nil {
		return studio.Studio{}, err
	}
	s, err := deps.StudioStore.GetByID(ctx, id)
	if err != nil {
		return studio.Studio{}, err
	}
	if err := s.Activate(); err != nil {
		return studio.Studio{}, err
	}
	if err := guardRadius(ctx, s, cmd, deps, "activate"); err != nil {
		return studio.Studio{}, err
	}
	if err := deps.StudioStore.Save(ctx, s); err != nil {
		return studio.Studio{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("studio_event", "event", "activated", "studio_id", s.ID)
	return s, nil
}

// ExecuteSuspendStudio moves a studio to suspended.
// PRE: cmd.Actor is an admin
func ExecuteSuspendStudio(ctx context.Context, id string, cmd StudioCommand, deps StudioDeps) (studio.Studio, error) {
	if err := requireAdmin(cmd.Actor); err != nil {
		return studio.Studio{}, err
	}
	s, err := deps.StudioStore.GetByID(ctx, id)
	if err != nil {
		return studio.Studio{}, err
	}
	if err := s.Suspend(); err != nil {
		return studio.Studio{}, err
	}
	if err := deps.StudioStore.Save(ctx, s); err != nil {
		return studio.Studio{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("studio_event", "event", "suspended", "studio_id", s.ID)
	recordAudit(ctx, deps.AuditStore, audit.NewEvent(cmd.Actor, audit.CategoryStudio, audit.ActionUpdate, clock(deps.Now)).
		WithResource("studio", s.ID).
		WithDescription("suspended studio "+s.Name).
		WithIP(cmd.IP))
	return s, nil
}

// CheckRadiusInput describes a candidate location.
type CheckRadiusInput struct {
	ExcludeID string
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// ExecuteCheckRadius previews the conflicts a studio at the given location
// would have. Nothing is written.
func ExecuteCheckRadius(ctx context.Context, input CheckRadiusInput, deps StudioDeps) ([]studio.Conflict, error) {
	candidate := studio.Studio{
		ID:        input.ExcludeID,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		RadiusKm:  input.RadiusKm,
	}
	if candidate.RadiusKm == 0 {
		candidate.RadiusKm = deps.DefaultRadiusKm
	}
	if err := candidate.Point().Validate(); err != nil {
		return nil, err
	}
	if candidate.RadiusKm < 0 || candidate.RadiusKm > studio.MaxRadiusKm {
		return nil, studio.ErrInvalidRadius
	}
	return findConflicts(ctx, candidate, deps.StudioStore)
}

func findConflicts(ctx context.Context, candidate studio.Studio, store StudioStore) ([]studio.Conflict, error) {
	active, err := store.List(ctx, studioStore.ListFilter{Status: studio.StatusActive})
	if err != nil {
		return nil, err
	}
	return studio.FindConflicts(candidate, active), nil
}

// guardRadius fails with a *ConflictError when s overlaps an active studio.
// An admin with Force proceeds and the override is audited.
func guardRadius(ctx context.Context, s studio.Studio, cmd StudioCommand, deps StudioDeps, op string) error {
	conflicts, err := findConflicts(ctx, s, deps.StudioStore)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}
	if !cmd.Force || cmd.Actor.Role != account.RoleAdmin {
		return &ConflictError{Conflicts: conflicts}
	}

	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, c.StudioID)
	}
	slog.Warn("studio_event", "event", "radius_override", "op", op, "studio_id", s.ID, "conflicts", len(conflicts))
	recordAudit(ctx, deps.AuditStore, audit.NewEvent(cmd.Actor, audit.CategoryStudio, audit.ActionForce, clock(deps.Now)).
		WithSeverity(audit.SeverityCritical).
		WithResource("studio", s.ID).
		WithDescription(fmt.Sprintf("%s %s despite radius conflict with %s", op, s.Name, strings.Join(ids, ", "))).
		WithIP(cmd.IP))
	return nil
}

// loadOwnedStudio returns the studio when actor is an admin or its partner.
func loadOwnedStudio(ctx context.Context, id string, actor audit.Actor, store StudioLookup) (studio.Studio, error) {
	s, err := store.GetByID(ctx, id)
	if err != nil {
		return studio.Studio{}, err
	}
	switch actor.Role {
	case account.RoleAdmin:
		return s, nil
	case account.RolePartner:
		if s.OwnedBy(actor.ID) {
			return s, nil
		}
	}
	return studio.Studio{}, ErrForbidden
}

// ItemInput carries the editable fields of an inventory item. An empty ID
// creates a new item.
type ItemInput struct {
	ID          string
	SKU         string
	Name        string
	Quantity    int
	MinQuantity int
}

// ExecuteUpsertItem creates or replaces an inventory item of a studio.
// PRE: actor is an admin or the owning partner
// POST: SKU is unique per studio
func ExecuteUpsertItem(ctx context.Context, studioID string, input ItemInput, actor audit.Actor, deps StudioDeps) (studio.Item, error) {
	if _, err := loadOwnedStudio(ctx, studioID, actor, deps.StudioStore); err != nil {
		return studio.Item{}, err
	}
	item := studio.Item{ID: input.ID, StudioID: studioID}
	if input.ID != "" {
		existing, err := deps.StudioStore.GetItem(ctx, input.ID)
		if err != nil {
			return studio.Item{}, err
		}
		if existing.StudioID != studioID {
			return studio.Item{}, ErrForbidden
		}
	} else {
		item.ID = uuid.New().String()
	}
	item.SKU = input.SKU
	item.Name = input.Name
	item.Quantity = input.Quantity
	item.MinQuantity = input.MinQuantity
	item.UpdatedAt = clock(deps.Now)
	item.Normalize()
	if err := item.Validate(); err != nil {
		return studio.Item{}, err
	}
	if err := deps.StudioStore.SaveItem(ctx, item); err != nil {
		return studio.Item{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("inventory_event", "event", "upserted", "studio_id", studioID, "sku", item.SKU, "quantity", item.Quantity)
	return item, nil
}

// ExecuteAdjustItem changes an item's quantity by delta.
// INVARIANT: quantity never drops below zero
func ExecuteAdjustItem(ctx context.Context, itemID string, delta int, actor audit.Actor, deps StudioDeps) (studio.Item, error) {
	item, err := loadOwnedItem(ctx, itemID, actor, deps.StudioStore)
	if err != nil {
		return studio.Item{}, err
	}
	now := clock(deps.Now)
	if err := item.Adjust(delta, now); err != nil {
		return studio.Item{}, err
	}
	// The store re-checks the floor against the current row.
	item, err = deps.StudioStore.AdjustItemQuantity(ctx, item.ID, delta, now)
	if err != nil {
		return studio.Item{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("inventory_event", "event", "adjusted", "item_id", item.ID, "delta", delta, "quantity", item.Quantity, "low", item.IsLow())
	return item, nil
}

// ExecuteDeleteItem removes an inventory item.
func ExecuteDeleteItem(ctx context.Context, itemID string, actor audit.Actor, deps StudioDeps) error {
	item, err := loadOwnedItem(ctx, itemID, actor, deps.StudioStore)
	if err != nil {
		return err
	}
	if err := deps.StudioStore.DeleteItem(ctx, item.ID); err != nil {
		return err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("inventory_event", "event", "deleted", "item_id", item.ID, "studio_id", item.StudioID)
	return nil
}

func loadOwnedItem(ctx context.Context, itemID string, actor audit.Actor, store StudioStore) (studio.Item, error) {
	item, err := store.GetItem(ctx, itemID)
	if err != nil {
		return studio.Item{}, err
	}
	if _, err := loadOwnedStudio(ctx, item.StudioID, actor, store); err != nil {
		return studio.Item{}, err
	}
	return item, nil
}
