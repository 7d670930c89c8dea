package projections

import (
	"context"
	"time"

	"crm/internal/adapters/storage/turma"
	"crm/internal/application/listutil"
	domainDeal "crm/internal/domain/deal"
	domainTurma "crm/internal/domain/turma"
)

// ClassSummary is a class with its per-module enrolment.
type ClassSummary struct {
	Class         domainTurma.Turma
	Mod1Enrolled  int
	Mod2Enrolled  int
	Mod1SeatsLeft int // -1 when capacity is unlimited
}

// GetClassListQuery carries list parameters.
type GetClassListQuery struct {
	Params       listutil.Params
	InstructorID string // optional: restrict to one instructor
	StudioID     string // optional: restrict to one studio
}

// GetClassListResult carries one page of classes.
type GetClassListResult struct {
	Classes []ClassSummary
	Page    listutil.PageInfo
}

// GetClassListDeps holds dependencies for GetClassList.
type GetClassListDeps struct {
	ClassStore ClassStore
	DealStore  DealStore
}

// QueryGetClassList returns one page of classes with enrolment counts.
// PRE: Params came from listutil.Parse with turma.SortColumns
// POST: Counts exclude lost deals
func QueryGetClassList(ctx context.Context, query GetClassListQuery, deps GetClassListDeps) (GetClassListResult, error) {
	p := query.Params
	from, _ := listutil.ParseDate(p.Filters[FilterFrom])
	filter := turma.ListFilter{
		City:         p.Filters[FilterCity],
		Status:       listutil.OneOf(p.Filters[FilterStatus], domainTurma.ValidStatuses),
		StudioID:     firstNonEmpty(query.StudioID, p.Filters[FilterStudio]),
		InstructorID: query.InstructorID,
		From:         from,
		Search:       p.Search,
		Sort:         p.Sort,
		Dir:          p.Dir,
	}

	total, err := deps.ClassStore.Count(ctx, filter)
	if err != nil {
		return GetClassListResult{}, err
	}
	page := listutil.NewPageInfo(p.Page, p.PerPage, total)
	filter.Limit = page.PerPage
	filter.Offset = (page.Page - 1) * page.PerPage

	classes, err := deps.ClassStore.List(ctx, filter)
	if err != nil {
		return GetClassListResult{}, err
	}
	summaries, err := summarizeClasses(ctx, deps.DealStore, classes)
	if err != nil {
		return GetClassListResult{}, err
	}
	return GetClassListResult{Classes: summaries, Page: page}, nil
}

func summarizeClasses(ctx context.Context, deals DealStore, classes []domainTurma.Turma) ([]ClassSummary, error) {
	var codes []string
	for i := range classes {
		codes = append(codes, classes[i].Codes()...)
	}
	counts, err := deals.CountByClassCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	out := make([]ClassSummary, 0, len(classes))
	for _, c := range classes {
		s := ClassSummary{Class: c, Mod1Enrolled: counts[c.Mod1Code]}
		if c.HasMod2() {
			s.Mod2Enrolled = counts[c.Mod2Code]
		}
		s.Mod1SeatsLeft = c.SeatsLeft(s.Mod1Enrolled)
		out = append(out, s)
	}
	return out, nil
}

// RosterModule lists the deals enrolled in one module of a class.
type RosterModule struct {
	Module    string
	Code      string
	Date      time.Time
	Deals     []domainDeal.Deal
	SeatsLeft int // -1 when capacity is unlimited
	FillRate  float64
}

// ClassRoster is a class with a roster per module.
type ClassRoster struct {
	Class   domainTurma.Turma
	Modules []RosterModule
}

// GetClassRosterDeps holds dependencies for GetClassRoster.
type GetClassRosterDeps struct {
	ClassStore ClassStore
	DealStore  DealStore
}

// QueryGetClassRoster lists, for each module of the class, the deals keyed to
// its code.
// PRE: classID identifies an existing class
// POST: Lost deals are left out of every module and of the seat figures
func QueryGetClassRoster(ctx context.Context, classID string, deps GetClassRosterDeps) (ClassRoster, error) {
	c, err := deps.ClassStore.GetByID(ctx, classID)
	if err != nil {
		return ClassRoster{}, err
	}
	roster := ClassRoster{Class: c}
	for _, m := range c.Modules() {
		deals, err := deps.DealStore.ListByClassCode(ctx, m.Code)
		if err != nil {
			return ClassRoster{}, err
		}
		enrolled := make([]domainDeal.Deal, 0, len(deals))
		for _, d := range deals {
			if d.Stage != domainDeal.StageLost {
				enrolled = append(enrolled, d)
			}
		}
		roster.Modules = append(roster.Modules, RosterModule{
			Module:    m.Module,
			Code:      m.Code,
			Date:      m.Date,
			Deals:     enrolled,
			SeatsLeft: c.SeatsLeft(len(enrolled)),
			FillRate:  c.FillRate(len(enrolled)),
		})
	}
	return roster, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
