package projections

import (
	"context"
	"time"

	"crm/internal/adapters/storage/instructor"
	"crm/internal/application/listutil"
	domainInstructor "crm/internal/domain/instructor"
)

// InstructorRow is an instructor with its tenure bucket.
type InstructorRow struct {
	domainInstructor.Instructor
	Tenure string
}

// GetInstructorListQuery carries list parameters.
type GetInstructorListQuery struct {
	Params listutil.Params
}

// GetInstructorListResult carries one page of instructors and the stats of
// every instructor matching the filters.
type GetInstructorListResult struct {
	Instructors []InstructorRow
	Stats       InstructorSummary
	Page        listutil.PageInfo
}

// GetInstructorListDeps holds dependencies for GetInstructorList.
type GetInstructorListDeps struct {
	InstructorStore InstructorStore
	Now             func() time.Time
}

// QueryGetInstructorList returns one page of instructors plus headcount and
// salary figures computed over the whole filtered set.
// PRE: Params came from listutil.Parse with instructor.SortColumns
func QueryGetInstructorList(ctx context.Context, query GetInstructorListQuery, deps GetInstructorListDeps) (GetInstructorListResult, error) {
	now := clock(deps.Now)
	p := query.Params
	filter := instructor.ListFilter{
		City:   p.Filters[FilterCity],
		Status: listutil.OneOf(p.Filters[FilterStatus], []string{domainInstructor.StatusActive, domainInstructor.StatusInactive}),
		Search: p.Search,
		Sort:   p.Sort,
		Dir:    p.Dir,
	}

	all, err := deps.InstructorStore.List(ctx, filter)
	if err != nil {
		return GetInstructorListResult{}, err
	}
	page := listutil.NewPageInfo(p.Page, p.PerPage, len(all))
	start := min((page.Page-1)*page.PerPage, len(all))
	end := min(start+page.PerPage, len(all))

	rows := make([]InstructorRow, 0, end-start)
	for _, in := range all[start:end] {
		rows = append(rows, InstructorRow{Instructor: in, Tenure: in.Tenure(now)})
	}
	return GetInstructorListResult{
		Instructors: rows,
		Stats:       InstructorSummary(domainInstructor.ComputeStats(all, now)),
		Page:        page,
	}, nil
}
