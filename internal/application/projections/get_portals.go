package projections

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"crm/internal/adapters/storage/studio"
	"crm/internal/adapters/storage/ticket"
	"crm/internal/adapters/storage/turma"
	"crm/internal/domain/audit"
	domainDeal "crm/internal/domain/deal"
	domainInstructor "crm/internal/domain/instructor"
	domainStudio "crm/internal/domain/studio"
	domainTicket "crm/internal/domain/ticket"
	domainTurma "crm/internal/domain/turma"
)

// portalTicketLimit caps the ticket list shown on portal home pages.
const portalTicketLimit = 20

// PortalDeps holds the stores every portal projection reads.
type PortalDeps struct {
	DealStore       DealStore
	ClassStore      ClassStore
	InstructorStore InstructorStore
	StudioStore     StudioStore
	TicketStore     TicketStore
	Now             func() time.Time
}

// InstructorPortal is the instructor home page.
type InstructorPortal struct {
	Instructor *domainInstructor.Instructor // nil when the account is not linked yet
	Tenure     string
	Classes    []ClassSummary
	Upcoming   []ModuleView
	Tickets    []domainTicket.Ticket
}

// QueryGetInstructorPortal lists the classes taught by the viewer's
// instructor record with enrolment counts and the next modules.
// POST: An unlinked account gets an empty portal, not an error
func QueryGetInstructorPortal(ctx context.Context, viewer audit.Actor, deps PortalDeps) (InstructorPortal, error) {
	var out InstructorPortal
	tickets, err := ownTickets(ctx, deps.TicketStore, viewer.ID)
	if err != nil {
		return out, err
	}
	out.Tickets = tickets

	in, err := deps.InstructorStore.GetByAccountID(ctx, viewer.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.Instructor = &in
	out.Tenure = in.Tenure(clock(deps.Now))

	today := startOfDay(clock(deps.Now))
	classes, err := deps.ClassStore.List(ctx, turma.ListFilter{InstructorID: in.ID, From: today, Sort: "mod1_date"})
	if err != nil {
		return out, err
	}
	if out.Classes, err = summarizeClasses(ctx, deps.DealStore, classes); err != nil {
		return out, err
	}
	out.Upcoming, err = QueryGetUpcomingModules(ctx, GetUpcomingModulesQuery{InstructorID: in.ID}, GetUpcomingModulesDeps{
		ClassStore: deps.ClassStore,
		DealStore:  deps.DealStore,
		Now:        deps.Now,
	})
	return out, err
}

// PartnerPortal is the partner home page.
type PartnerPortal struct {
	Studios  []domainStudio.Studio
	LowStock []domainStudio.Item
	Schedule []ModuleView
	Tickets  []domainTicket.Ticket
}

// QueryGetPartnerPortal summarizes the viewer's studios: low stock, the
// schedule of the next DefaultUpcomingDays days, and own tickets.
// INVARIANT: Only studios owned by the viewer contribute
func QueryGetPartnerPortal(ctx context.Context, viewer audit.Actor, deps PortalDeps) (PartnerPortal, error) {
	var out PartnerPortal
	tickets, err := ownTickets(ctx, deps.TicketStore, viewer.ID)
	if err != nil {
		return out, err
	}
	out.Tickets = tickets

	studios, err := deps.StudioStore.List(ctx, studio.ListFilter{PartnerID: viewer.ID, Sort: "name"})
	if err != nil {
		return out, err
	}
	out.Studios = studios
	if len(studios) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(studios))
	for _, s := range studios {
		ids = append(ids, s.ID)
	}
	if out.LowStock, err = deps.StudioStore.ListLowStock(ctx, ids); err != nil {
		return out, err
	}

	from := startOfDay(clock(deps.Now))
	to := from.AddDate(0, 0, DefaultUpcomingDays)
	var entries []domainStudio.ScheduleEntry
	for _, id := range ids {
		mods, err := deps.ClassStore.ModulesBetween(ctx, turma.ModuleFilter{From: from, To: to, StudioID: id})
		if err != nil {
			return out, err
		}
		entries = append(entries, domainStudio.BuildSchedule(mods, from, to)...)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
	mods := make([]domainTurma.Module, 0, len(entries))
	for _, e := range entries {
		mods = append(mods, e.Module)
	}
	views, err := withEnrolment(ctx, deps.DealStore, mods)
	if err != nil {
		return out, err
	}
	for i := range views {
		views[i].DoubleBooked = entries[i].DoubleBooked
	}
	out.Schedule = views
	return out, nil
}

// StudentDeal is the part of a deal its student may see. Notes, owner,
// source and value stay with the sales team.
type StudentDeal struct {
	ID            string
	Name          string
	Stage         string
	ClassCodeMod1 string
	ClassCodeMod2 string
}

func newStudentDeal(d domainDeal.Deal) StudentDeal {
	return StudentDeal{
		ID:            d.ID,
		Name:          d.Name,
		Stage:         d.Stage,
		ClassCodeMod1: d.ClassCodeMod1,
		ClassCodeMod2: d.ClassCodeMod2,
	}
}

// StudentEnrolment is one deal of the student with the class it points to.
type StudentEnrolment struct {
	Deal    StudentDeal
	Modules []ModuleView
}

// StudentPortal is the student home page.
type StudentPortal struct {
	Enrolments []StudentEnrolment
	Tickets    []domainTicket.Ticket
}

// QueryGetStudentPortal matches deals by the viewer's email and resolves
// their class codes into dated modules.
// POST: Codes that no longer match a class are skipped
func QueryGetStudentPortal(ctx context.Context, viewer audit.Actor, deps PortalDeps) (StudentPortal, error) {
	var out StudentPortal
	tickets, err := ownTickets(ctx, deps.TicketStore, viewer.ID)
	if err != nil {
		return out, err
	}
	out.Tickets = tickets

	deals, err := deps.DealStore.ListByEmail(ctx, viewer.Email)
	if err != nil {
		return out, err
	}
	for _, d := range deals {
		if d.Stage == domainDeal.StageLost {
			continue
		}
		enrolment := StudentEnrolment{Deal: newStudentDeal(d)}
		for _, code := range []string{d.ClassCodeMod1, d.ClassCodeMod2} {
			if code == "" {
				continue
			}
			class, err := deps.ClassStore.GetByCode(ctx, code)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return out, err
			}
			for _, m := range class.Modules() {
				if m.Code == code {
					enrolment.Modules = append(enrolment.Modules, newModuleView(m, 0))
				}
			}
		}
		out.Enrolments = append(out.Enrolments, enrolment)
	}
	return out, nil
}

func ownTickets(ctx context.Context, store TicketStore, requesterID string) ([]domainTicket.Ticket, error) {
	if store == nil || requesterID == "" {
		return nil, nil
	}
	return store.List(ctx, ticket.ListFilter{RequesterID: requesterID, Limit: portalTicketLimit})
}
