package projections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm/internal/adapters/storage/studio"
	"crm/internal/adapters/storage/turma"
	"crm/internal/application/listutil"
	"crm/internal/application/orchestrators"
	"crm/internal/domain/account"
	"crm/internal/domain/audit"
	domainStudio "crm/internal/domain/studio"
)

// DefaultScheduleDays is the schedule window when no end date is given.
const DefaultScheduleDays = 60

// MaxScheduleDays bounds the schedule window a caller may request.
const MaxScheduleDays = 366

// ErrInvalidWindow is returned when a schedule window is empty, inverted or
// longer than MaxScheduleDays.
var ErrInvalidWindow = errors.New("invalid schedule window")

// GetStudioListQuery carries list parameters. A partner viewer only sees
// its own studios.
type GetStudioListQuery struct {
	Params listutil.Params
	Viewer audit.Actor
}

// GetStudioListResult carries one page of studios.
type GetStudioListResult struct {
	Studios []domainStudio.Studio
	Page    listutil.PageInfo
}

// GetStudioListDeps holds dependencies for GetStudioList.
type GetStudioListDeps struct {
	StudioStore StudioStore
}

// QueryGetStudioList returns one filtered page of studios.
func QueryGetStudioList(ctx context.Context, query GetStudioListQuery, deps GetStudioListDeps) (GetStudioListResult, error) {
	p := query.Params
	filter := studio.ListFilter{
		City:   p.Filters[FilterCity],
		Status: listutil.OneOf(p.Filters[FilterStatus], domainStudio.ValidStatuses),
		Search: p.Search,
		Sort:   p.Sort,
		Dir:    p.Dir,
	}
	if query.Viewer.Role != account.RoleAdmin {
		filter.PartnerID = query.Viewer.ID
	}

	total, err := deps.StudioStore.Count(ctx, filter)
	if err != nil {
		return GetStudioListResult{}, err
	}
	page := listutil.NewPageInfo(p.Page, p.PerPage, total)
	filter.Limit = page.PerPage
	filter.Offset = (page.Page - 1) * page.PerPage

	studios, err := deps.StudioStore.List(ctx, filter)
	if err != nil {
		return GetStudioListResult{}, err
	}
	return GetStudioListResult{Studios: studios, Page: page}, nil
}

// StudioInventory is a studio with its stock.
type StudioInventory struct {
	Studio   domainStudio.Studio
	Items    []domainStudio.Item
	LowStock []domainStudio.Item
}

// GetStudioInventoryDeps holds dependencies for GetStudioInventory.
type GetStudioInventoryDeps struct {
	StudioStore StudioStore
}

// QueryGetStudioInventory returns the items of one studio.
// PRE: viewer is an admin or the owning partner
// POST: LowStock is the subset of Items at or below their minimum
func QueryGetStudioInventory(ctx context.Context, studioID string, viewer audit.Actor, deps GetStudioInventoryDeps) (StudioInventory, error) {
	s, err := loadVisibleStudio(ctx, deps.StudioStore, studioID, viewer)
	if err != nil {
		return StudioInventory{}, err
	}
	items, err := deps.StudioStore.ListItems(ctx, s.ID)
	if err != nil {
		return StudioInventory{}, err
	}
	return StudioInventory{Studio: s, Items: items, LowStock: domainStudio.LowStock(items)}, nil
}

// GetStudioScheduleQuery carries the studio and the window. A zero From is
// today; a zero To is From plus DefaultScheduleDays. The resulting window
// must end after it starts and span at most MaxScheduleDays.
type GetStudioScheduleQuery struct {
	StudioID string
	From     time.Time
	To       time.Time
	Viewer   audit.Actor
}

// StudioSchedule lists the modules held at a studio.
type StudioSchedule struct {
	Studio       domainStudio.Studio
	From         time.Time
	To           time.Time
	Entries      []ModuleView
	DoubleBooked int
}

// GetStudioScheduleDeps holds dependencies for GetStudioSchedule.
type GetStudioScheduleDeps struct {
	StudioStore StudioStore
	ClassStore  ClassStore
	DealStore   DealStore
	Now         func() time.Time
}

// QueryGetStudioSchedule lists the modules of active classes at the studio
// in [From, To) and flags days holding more than one module.
// PRE: viewer is an admin or the owning partner
// POST: Entries are ordered by date, then code
func QueryGetStudioSchedule(ctx context.Context, query GetStudioScheduleQuery, deps GetStudioScheduleDeps) (StudioSchedule, error) {
	s, err := loadVisibleStudio(ctx, deps.StudioStore, query.StudioID, query.Viewer)
	if err != nil {
		return StudioSchedule{}, err
	}
	from := query.From
	if from.IsZero() {
		from = startOfDay(clock(deps.Now))
	}
	to := query.To
	if to.IsZero() {
		to = from.AddDate(0, 0, DefaultScheduleDays)
	}
	if !to.After(from) {
		return StudioSchedule{}, fmt.Errorf("%w: to must be after from", ErrInvalidWindow)
	}
	if to.After(from.AddDate(0, 0, MaxScheduleDays)) {
		return StudioSchedule{}, fmt.Errorf("%w: limited to %d days", ErrInvalidWindow, MaxScheduleDays)
	}

	mods, err := deps.ClassStore.ModulesBetween(ctx, turma.ModuleFilter{From: from, To: to, StudioID: s.ID})
	if err != nil {
		return StudioSchedule{}, err
	}
	entries := domainStudio.BuildSchedule(mods, from, to)
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		codes = append(codes, e.Code)
	}
	counts, err := deps.DealStore.CountByClassCodes(ctx, codes)
	if err != nil {
		return StudioSchedule{}, err
	}

	out := StudioSchedule{Studio: s, From: from, To: to, Entries: make([]ModuleView, 0, len(entries))}
	for _, e := range entries {
		v := newModuleView(e.Module, counts[e.Code])
		v.DoubleBooked = e.DoubleBooked
		if e.DoubleBooked {
			out.DoubleBooked++
		}
		out.Entries = append(out.Entries, v)
	}
	return out, nil
}

func loadVisibleStudio(ctx context.Context, store StudioStore, id string, viewer audit.Actor) (domainStudio.Studio, error) {
	s, err := store.GetByID(ctx, id)
	if err != nil {
		return domainStudio.Studio{}, err
	}
	if viewer.Role != account.RoleAdmin && !s.OwnedBy(viewer.ID) {
		return domainStudio.Studio{}, orchestrators.ErrForbidden
	}
	return s, nil
}
