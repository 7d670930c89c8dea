package projections

import (
	"context"

	"crm/internal/adapters/storage/deal"
	"crm/internal/application/listutil"
	domainDeal "crm/internal/domain/deal"
)

// Deal list filter keys accepted in the query string.
const (
	FilterStage     = "stage"
	FilterClassCode = "class_code"
	FilterOwner     = "owner"
	FilterCity      = "city"
	FilterStatus    = "status"
	FilterPriority  = "priority"
	FilterStudio    = "studio"
	FilterFrom      = "from"
	FilterRole      = "role"
	FilterAssignee  = "assignee"
)

// GetDealListQuery carries list parameters.
type GetDealListQuery struct {
	Params listutil.Params
}

// GetDealListResult carries one page of deals.
type GetDealListResult struct {
	Deals []domainDeal.Deal
	Page  listutil.PageInfo
}

// GetDealListDeps holds dependencies for GetDealList.
type GetDealListDeps struct {
	DealStore DealStore
}

// QueryGetDealList returns one filtered, sorted page of deals.
// PRE: Params came from listutil.Parse with deal.SortColumns
// POST: Page.Total counts every deal matching the filters
func QueryGetDealList(ctx context.Context, query GetDealListQuery, deps GetDealListDeps) (GetDealListResult, error) {
	p := query.Params
	filter := deal.ListFilter{
		Stage:     listutil.OneOf(p.Filters[FilterStage], domainDeal.Stages),
		ClassCode: domainDeal.NormalizeCode(p.Filters[FilterClassCode]),
		OwnerID:   p.Filters[FilterOwner],
		City:      p.Filters[FilterCity],
		Search:    p.Search,
		Sort:      p.Sort,
		Dir:       p.Dir,
	}

	total, err := deps.DealStore.Count(ctx, filter)
	if err != nil {
		return GetDealListResult{}, err
	}
	page := listutil.NewPageInfo(p.Page, p.PerPage, total)
	filter.Limit = page.PerPage
	filter.Offset = (page.Page - 1) * page.PerPage

	deals, err := deps.DealStore.List(ctx, filter)
	if err != nil {
		return GetDealListResult{}, err
	}
	return GetDealListResult{Deals: deals, Page: page}, nil
}
