package projections

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"crm/internal/adapters/storage/deal"
	"crm/internal/adapters/storage/instructor"
	"crm/internal/adapters/storage/studio"
	"crm/internal/adapters/storage/ticket"
	"crm/internal/adapters/storage/turma"
	"crm/internal/domain/account"
	"crm/internal/domain/audit"
	domainDeal "crm/internal/domain/deal"
	domainInstructor "crm/internal/domain/instructor"
	domainStudio "crm/internal/domain/studio"
	domainTicket "crm/internal/domain/ticket"
	domainTurma "crm/internal/domain/turma"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func nowFn() time.Time { return fixedNow }

func day(offset int) time.Time {
	return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func notFound(kind string) error {
	return fmt.Errorf("%s not found: %w", kind, sql.ErrNoRows)
}

var (
	adminViewer      = audit.Actor{ID: "admin-1", Email: "admin@crm.test", Role: account.RoleAdmin}
	partnerViewer    = audit.Actor{ID: "partner-1", Email: "partner@crm.test", Role: account.RolePartner}
	instructorViewer = audit.Actor{ID: "acc-ana", Email: "ana@crm.test", Role: account.RoleInstructor}
	studentViewer    = audit.Actor{ID: "student-1", Email: "joana@crm.test", Role: account.RoleStudent}
)

type mockDealStore struct {
	deals      []domainDeal.Deal
	totalCalls atomic.Int32
}

// List returns every seeded deal matching the stage filter.
// PRE: filter is valid
// POST: Returns a window of seeded deals
func (m *mockDealStore) List(_ context.Context, f deal.ListFilter) ([]domainDeal.Deal, error) {
	var out []domainDeal.Deal
	for _, d := range m.deals {
		if f.Stage == "" || d.Stage == f.Stage {
			out = append(out, d)
		}
	}
	start := min(f.Offset, len(out))
	end := len(out)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(out))
	}
	return out[start:end], nil
}

// Count returns how many seeded deals match the stage filter.
func (m *mockDealStore) Count(_ context.Context, f deal.ListFilter) (int, error) {
	n := 0
	for _, d := range m.deals {
		if f.Stage == "" || d.Stage == f.Stage {
			n++
		}
	}
	return n, nil
}

// ListByClassCode returns deals keyed to code in either module.
func (m *mockDealStore) ListByClassCode(_ context.Context, code string) ([]domainDeal.Deal, error) {
	var out []domainDeal.Deal
	for _, d := range m.deals {
		if d.HasClassCode(code) {
			out = append(out, d)
		}
	}
	return out, nil
}

// ListByEmail returns deals with the exact email.
func (m *mockDealStore) ListByEmail(_ context.Context, email string) ([]domainDeal.Deal, error) {
	var out []domainDeal.Deal
	for _, d := range m.deals {
		if strings.EqualFold(d.Email, email) {
			out = append(out, d)
		}
	}
	return out, nil
}

// CountByClassCodes counts non-lost deals per code.
// POST: Every requested code is present in the result
func (m *mockDealStore) CountByClassCodes(_ context.Context, codes []string) (map[string]int, error) {
	counts := make(map[string]int, len(codes))
	for _, c := range codes {
		counts[c] = 0
		for _, d := range m.deals {
			if d.Stage != domainDeal.StageLost && d.HasClassCode(c) {
				counts[c]++
			}
		}
	}
	return counts, nil
}

// StageTotals sums seeded deals per stage.
func (m *mockDealStore) StageTotals(_ context.Context) ([]deal.StageTotal, error) {
	m.totalCalls.Add(1)
	byStage := map[string]*deal.StageTotal{}
	var order []string
	for _, d := range m.deals {
		t, ok := byStage[d.Stage]
		if !ok {
			t = &deal.StageTotal{Stage: d.Stage}
			byStage[d.Stage] = t
			order = append(order, d.Stage)
		}
		t.Count++
		t.ValueCents += d.ValueCents
	}
	out := make([]deal.StageTotal, 0, len(order))
	for _, s := range order {
		out = append(out, *byStage[s])
	}
	return out, nil
}

type mockClassStore struct {
	classes []domainTurma.Turma
}

// GetByID returns a seeded class.
func (m *mockClassStore) GetByID(_ context.Context, id string) (domainTurma.Turma, error) {
	for _, c := range m.classes {
		if c.ID == id {
			return c, nil
		}
	}
	return domainTurma.Turma{}, notFound("class")
}

// GetByCode returns the seeded class owning code.
func (m *mockClassStore) GetByCode(_ context.Context, code string) (domainTurma.Turma, error) {
	for _, c := range m.classes {
		if c.HasCode(code) {
			return c, nil
		}
	}
	return domainTurma.Turma{}, notFound("class")
}

// List returns seeded classes filtered by instructor and studio.
func (m *mockClassStore) List(_ context.Context, f turma.ListFilter) ([]domainTurma.Turma, error) {
	var out []domainTurma.Turma
	for _, c := range m.classes {
		if f.InstructorID != "" && c.InstructorID != f.InstructorID {
			continue
		}
		if f.StudioID != "" && c.StudioID != f.StudioID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Count returns the number of classes List would return.
func (m *mockClassStore) Count(ctx context.Context, f turma.ListFilter) (int, error) {
	list, err := m.List(ctx, f)
	return len(list), err
}

// ModulesBetween expands active classes into modules within [From, To).
// POST: Modules are ordered by date
func (m *mockClassStore) ModulesBetween(_ context.Context, f turma.ModuleFilter) ([]domainTurma.Module, error) {
	var out []domainTurma.Module
	for _, c := range m.classes {
		if !c.IsActive() {
			continue
		}
		if f.StudioID != "" && c.StudioID != f.StudioID {
			continue
		}
		if f.InstructorID != "" && c.InstructorID != f.InstructorID {
			continue
		}
		for _, mod := range c.Modules() {
			if mod.Date.Before(f.From) || !mod.Date.Before(f.To) {
				continue
			}
			out = append(out, mod)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type mockInstructorStore struct {
	instructors []domainInstructor.Instructor
}

// GetByAccountID returns the seeded instructor linked to accountID.
func (m *mockInstructorStore) GetByAccountID(_ context.Context, accountID string) (domainInstructor.Instructor, error) {
	for _, in := range m.instructors {
		if in.AccountID == accountID {
			return in, nil
		}
	}
	return domainInstructor.Instructor{}, notFound("instructor")
}

// List returns every seeded instructor.
func (m *mockInstructorStore) List(_ context.Context, _ instructor.ListFilter) ([]domainInstructor.Instructor, error) {
	return m.instructors, nil
}

// Count returns the number of seeded instructors.
func (m *mockInstructorStore) Count(_ context.Context, _ instructor.ListFilter) (int, error) {
	return len(m.instructors), nil
}

type mockStudioStore struct {
	studios       []domainStudio.Studio
	items         []domainStudio.Item
	lowStockCalls [][]string
}

// GetByID returns a seeded studio.
func (m *mockStudioStore) GetByID(_ context.Context, id string) (domainStudio.Studio, error) {
	for _, s := range m.studios {
		if s.ID == id {
			return s, nil
		}
	}
	return domainStudio.Studio{}, notFound("studio")
}

// List returns seeded studios filtered by partner and status.
func (m *mockStudioStore) List(_ context.Context, f studio.ListFilter) ([]domainStudio.Studio, error) {
	var out []domainStudio.Studio
	for _, s := range m.studios {
		if f.PartnerID != "" && s.PartnerAccountID != f.PartnerID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Count returns the number of studios List would return.
func (m *mockStudioStore) Count(ctx context.Context, f studio.ListFilter) (int, error) {
	list, err := m.List(ctx, f)
	return len(list), err
}

// ListItems returns the seeded items of one studio.
func (m *mockStudioStore) ListItems(_ context.Context, studioID string) ([]domainStudio.Item, error) {
	var out []domainStudio.Item
	for _, it := range m.items {
		if it.StudioID == studioID {
			out = append(out, it)
		}
	}
	return out, nil
}

// ListLowStock records the call and returns low items of the given studios.
// POST: An empty studioIDs slice means every studio
func (m *mockStudioStore) ListLowStock(_ context.Context, studioIDs []string) ([]domainStudio.Item, error) {
	m.lowStockCalls = append(m.lowStockCalls, studioIDs)
	var out []domainStudio.Item
	for _, it := range m.items {
		if !it.IsLow() {
			continue
		}
		if len(studioIDs) > 0 && !containsString(studioIDs, it.StudioID) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

type mockTicketStore struct {
	tickets  []domainTicket.Ticket
	messages []domainTicket.Message
}

// GetByID returns a seeded ticket.
func (m *mockTicketStore) GetByID(_ context.Context, id string) (domainTicket.Ticket, error) {
	for _, t := range m.tickets {
		if t.ID == id {
			return t, nil
		}
	}
	return domainTicket.Ticket{}, notFound("ticket")
}

// List returns seeded tickets filtered by requester and status set.
func (m *mockTicketStore) List(_ context.Context, f ticket.ListFilter) ([]domainTicket.Ticket, error) {
	var out []domainTicket.Ticket
	for _, t := range m.tickets {
		if f.RequesterID != "" && t.RequesterID != f.RequesterID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if len(f.Statuses) > 0 && !containsString(f.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Count returns the number of tickets List would return.
func (m *mockTicketStore) Count(ctx context.Context, f ticket.ListFilter) (int, error) {
	list, err := m.List(ctx, f)
	return len(list), err
}

// ListMessages returns the seeded messages of one ticket in order.
func (m *mockTicketStore) ListMessages(_ context.Context, ticketID string) ([]domainTicket.Message, error) {
	var out []domainTicket.Message
	for _, msg := range m.messages {
		if msg.TicketID == ticketID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
