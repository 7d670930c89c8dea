package projections

import (
	"context"
	"testing"
	"time"

	"crm/internal/adapters/cache"
	"crm/internal/application/orchestrators"
	domainDeal "crm/internal/domain/deal"
	domainInstructor "crm/internal/domain/instructor"
	domainStudio "crm/internal/domain/studio"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func dashboardDeps(f franchise) GetAdminDashboardDeps {
	return GetAdminDashboardDeps{
		DealStore:       f.deals,
		ClassStore:      f.classes,
		StudioStore:     f.studios,
		TicketStore:     f.tickets,
		InstructorStore: f.instructors,
		Now:             nowFn,
	}
}

// TestQueryGetAdminDashboard_Figures verifies every KPI over the seeded franchise.
func TestQueryGetAdminDashboard_Figures(t *testing.T) {
	f := newFranchise()

	got, err := QueryGetAdminDashboard(context.Background(), dashboardDeps(f))
	if err != nil {
		t.Fatalf("QueryGetAdminDashboard: %v", err)
	}

	want := AdminDashboard{
		Stages: []StageSummary{
			{Stage: domainDeal.StageLead, Count: 1, ValueCents: 1000},
			{Stage: domainDeal.StageContacted},
			{Stage: domainDeal.StageNegotiation, Count: 1, ValueCents: 3000},
			{Stage: domainDeal.StageWon, Count: 2, ValueCents: 9000},
			{Stage: domainDeal.StageLost, Count: 1, ValueCents: 2000},
		},
		TotalDeals:         5,
		PipelineValueCents: 4000,
		WonValueCents:      9000,
		ConversionRate:     2.0 / 3.0,
		AverageDealCents:   3000,
		UpcomingModules:    []ModuleView{spMod1View(2), rjMod1View(2)},
		OpenTickets:        2,
		ActiveStudios:      1,
		LowStock: []domainStudio.Item{
			{ID: "i1", StudioID: "st-1", SKU: "MAT", Name: "Mat", Quantity: 1, MinQuantity: 2},
			{ID: "i3", StudioID: "st-2", SKU: "RING", Name: "Ring", Quantity: 0, MinQuantity: 1},
		},
		Instructors: InstructorSummary{
			Total:  3,
			Active: 2,
			ByTenure: map[string]int{
				domainInstructor.TenureUnder6m: 1,
				domainInstructor.Tenure6mTo1y:  0,
				domainInstructor.Tenure1yTo3y:  1,
				domainInstructor.Tenure3yPlus:  1,
				domainInstructor.TenureUnknown: 0,
			},
			TotalSalaryCents:   350000,
			AverageSalaryCents: 350000,
		},
		GeneratedAt: fixedNow,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("dashboard mismatch (-want +got):\n%s", diff)
	}
}

// TestQueryGetAdminDashboard_NoClosedDeals keeps the conversion rate at zero.
func TestQueryGetAdminDashboard_NoClosedDeals(t *testing.T) {
	f := newFranchise()
	f.deals.deals = f.deals.deals[:1]

	got, err := QueryGetAdminDashboard(context.Background(), dashboardDeps(f))
	if err != nil {
		t.Fatal(err)
	}
	if got.ConversionRate != 0 || got.AverageDealCents != 1000 || got.PipelineValueCents != 1000 {
		t.Errorf("got conversion=%v average=%d pipeline=%d", got.ConversionRate, got.AverageDealCents, got.PipelineValueCents)
	}
	if len(got.Stages) != len(domainDeal.Stages) {
		t.Errorf("stages = %d, want every stage", len(got.Stages))
	}
}

// TestQueryGetAdminDashboard_Cached computes once per TTL until invalidated.
func TestQueryGetAdminDashboard_Cached(t *testing.T) {
	f := newFranchise()
	deps := dashboardDeps(f)
	c := cache.NewMemoryCache()
	deps.Cache = c
	deps.TTL = time.Minute
	ctx := context.Background()

	first, err := QueryGetAdminDashboard(ctx, deps)
	if err != nil {
		t.Fatal(err)
	}
	second, err := QueryGetAdminDashboard(ctx, deps)
	if err != nil {
		t.Fatal(err)
	}
	if n := f.deals.totalCalls.Load(); n != 1 {
		t.Errorf("StageTotals calls = %d, want 1", n)
	}
	if diff := cmp.Diff(first, second, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("cached dashboard differs (-first +second):\n%s", diff)
	}

	if err := cache.Invalidate(ctx, c, orchestrators.DashboardCacheKey); err != nil {
		t.Fatal(err)
	}
	if _, err := QueryGetAdminDashboard(ctx, deps); err != nil {
		t.Fatal(err)
	}
	if n := f.deals.totalCalls.Load(); n != 2 {
		t.Errorf("StageTotals calls after invalidation = %d, want 2", n)
	}
}
