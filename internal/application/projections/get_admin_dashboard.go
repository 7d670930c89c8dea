package projections

import (
	"context"
	"time"

	"crm/internal/adapters/cache"
	"crm/internal/adapters/storage/deal"
	"crm/internal/adapters/storage/instructor"
	"crm/internal/adapters/storage/studio"
	"crm/internal/adapters/storage/ticket"
	"crm/internal/application/orchestrators"
	domainDeal "crm/internal/domain/deal"
	domainInstructor "crm/internal/domain/instructor"
	domainStudio "crm/internal/domain/studio"
	domainTicket "crm/internal/domain/ticket"

	"golang.org/x/sync/errgroup"
)

// StageSummary is the deal count and value of one pipeline stage.
type StageSummary struct {
	Stage      string `json:"stage"`
	Count      int    `json:"count"`
	ValueCents int64  `json:"value_cents"`
}

// InstructorSummary is the headcount and salary block of the dashboard.
type InstructorSummary struct {
	Total              int            `json:"total"`
	Active             int            `json:"active"`
	ByTenure           map[string]int `json:"by_tenure"`
	TotalSalaryCents   int64          `json:"total_salary_cents"`
	AverageSalaryCents int64          `json:"average_salary_cents"`
}

// AdminDashboard carries every administrator KPI.
type AdminDashboard struct {
	Stages             []StageSummary      `json:"stages"`
	TotalDeals         int                 `json:"total_deals"`
	PipelineValueCents int64               `json:"pipeline_value_cents"`
	WonValueCents      int64               `json:"won_value_cents"`
	ConversionRate     float64             `json:"conversion_rate"`
	AverageDealCents   int64               `json:"average_deal_cents"`
	UpcomingModules    []ModuleView        `json:"upcoming_modules"`
	OpenTickets        int                 `json:"open_tickets"`
	ActiveStudios      int                 `json:"active_studios"`
	LowStock           []domainStudio.Item `json:"low_stock"`
	Instructors        InstructorSummary   `json:"instructors"`
	GeneratedAt        time.Time           `json:"generated_at"`
}

// GetAdminDashboardDeps holds dependencies for the admin dashboard projection.
type GetAdminDashboardDeps struct {
	DealStore       DealStore
	ClassStore      ClassStore
	StudioStore     StudioStore
	TicketStore     TicketStore
	InstructorStore InstructorStore
	Cache           cache.Cache // optional: nil computes on every call
	TTL             time.Duration
	Now             func() time.Time
}

// QueryGetAdminDashboard computes the admin KPIs concurrently and caches the
// result under orchestrators.DashboardCacheKey for TTL.
// POST: Stages lists every pipeline stage in order, including empty ones
func QueryGetAdminDashboard(ctx context.Context, deps GetAdminDashboardDeps) (AdminDashboard, error) {
	return cache.Remember(ctx, deps.Cache, orchestrators.DashboardCacheKey, deps.TTL, func(ctx context.Context) (AdminDashboard, error) {
		return computeAdminDashboard(ctx, deps)
	})
}

func computeAdminDashboard(ctx context.Context, deps GetAdminDashboardDeps) (AdminDashboard, error) {
	now := clock(deps.Now)
	out := AdminDashboard{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := deps.DealStore.StageTotals(gctx)
		if err != nil {
			return err
		}
		applyStageTotals(&out, totals)
		return nil
	})
	g.Go(func() error {
		mods, err := QueryGetUpcomingModules(gctx, GetUpcomingModulesQuery{}, GetUpcomingModulesDeps{
			ClassStore: deps.ClassStore,
			DealStore:  deps.DealStore,
			Now:        deps.Now,
		})
		out.UpcomingModules = mods
		return err
	})
	g.Go(func() error {
		n, err := deps.TicketStore.Count(gctx, ticket.ListFilter{
			Statuses: []string{domainTicket.StatusOpen, domainTicket.StatusPending},
		})
		out.OpenTickets = n
		return err
	})
	g.Go(func() error {
		n, err := deps.StudioStore.Count(gctx, studio.ListFilter{Status: domainStudio.StatusActive})
		out.ActiveStudios = n
		return err
	})
	g.Go(func() error {
		items, err := deps.StudioStore.ListLowStock(gctx, nil)
		out.LowStock = items
		return err
	})
	g.Go(func() error {
		list, err := deps.InstructorStore.List(gctx, instructor.ListFilter{})
		if err != nil {
			return err
		}
		out.Instructors = InstructorSummary(domainInstructor.ComputeStats(list, now))
		return nil
	})
	if err := g.Wait(); err != nil {
		return AdminDashboard{}, err
	}
	return out, nil
}

// applyStageTotals fills the pipeline figures.
// INVARIANT: ConversionRate is won/(won+lost) and 0 when no deal is closed
func applyStageTotals(out *AdminDashboard, totals []deal.StageTotal) {
	byStage := make(map[string]deal.StageTotal, len(totals))
	for _, t := range totals {
		byStage[t.Stage] = t
	}

	var totalValue int64
	out.Stages = make([]StageSummary, 0, len(domainDeal.Stages))
	for _, stage := range domainDeal.Stages {
		t := byStage[stage]
		out.Stages = append(out.Stages, StageSummary{Stage: stage, Count: t.Count, ValueCents: t.ValueCents})
		out.TotalDeals += t.Count
		totalValue += t.ValueCents
		switch stage {
		case domainDeal.StageWon:
			out.WonValueCents = t.ValueCents
		case domainDeal.StageLost:
		default:
			out.PipelineValueCents += t.ValueCents
		}
	}

	won, lost := byStage[domainDeal.StageWon].Count, byStage[domainDeal.StageLost].Count
	if won+lost > 0 {
		out.ConversionRate = float64(won) / float64(won+lost)
	}
	if out.TotalDeals > 0 {
		out.AverageDealCents = totalValue / int64(out.TotalDeals)
	}
}
