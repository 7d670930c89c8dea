package projections

import (
	"context"
	"time"

	"crm/internal/adapters/storage/turma"
	domainTurma "crm/internal/domain/turma"
)

// DefaultUpcomingDays is the look-ahead window of upcoming module lists.
const DefaultUpcomingDays = 30

// ModuleView is one dated class module with its enrolment count.
type ModuleView struct {
	ClassID      string    `json:"class_id"`
	Course       string    `json:"course"`
	City         string    `json:"city"`
	StudioID     string    `json:"studio_id,omitempty"`
	Module       string    `json:"module"`
	Code         string    `json:"code"`
	Date         time.Time `json:"date"`
	Enrolled     int       `json:"enrolled"`
	DoubleBooked bool      `json:"double_booked,omitempty"`
}

func newModuleView(m domainTurma.Module, enrolled int) ModuleView {
	return ModuleView{
		ClassID:  m.TurmaID,
		Course:   m.Course,
		City:     m.City,
		StudioID: m.StudioID,
		Module:   m.Module,
		Code:     m.Code,
		Date:     m.Date,
		Enrolled: enrolled,
	}
}

// GetUpcomingModulesQuery carries the window and optional scope.
type GetUpcomingModulesQuery struct {
	Days         int
	StudioID     string
	InstructorID string
}

// GetUpcomingModulesDeps holds dependencies for GetUpcomingModules.
type GetUpcomingModulesDeps struct {
	ClassStore ClassStore
	DealStore  DealStore
	Now        func() time.Time
}

// QueryGetUpcomingModules lists modules of planned or open classes held
// between today and today plus Days, with non-lost enrolment counts.
// PRE: Days <= 0 means DefaultUpcomingDays
// POST: Modules are ordered by date, then code
func QueryGetUpcomingModules(ctx context.Context, query GetUpcomingModulesQuery, deps GetUpcomingModulesDeps) ([]ModuleView, error) {
	days := query.Days
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	from := startOfDay(clock(deps.Now))
	mods, err := deps.ClassStore.ModulesBetween(ctx, turma.ModuleFilter{
		From:         from,
		To:           from.AddDate(0, 0, days),
		StudioID:     query.StudioID,
		InstructorID: query.InstructorID,
	})
	if err != nil {
		return nil, err
	}
	return withEnrolment(ctx, deps.DealStore, mods)
}

// withEnrolment attaches per-code deal counts to modules.
func withEnrolment(ctx context.Context, deals DealStore, mods []domainTurma.Module) ([]ModuleView, error) {
	codes := make([]string, 0, len(mods))
	for _, m := range mods {
		codes = append(codes, m.Code)
	}
	counts, err := deals.CountByClassCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	views := make([]ModuleView, 0, len(mods))
	for _, m := range mods {
		views = append(views, newModuleView(m, counts[m.Code]))
	}
	return views, nil
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
