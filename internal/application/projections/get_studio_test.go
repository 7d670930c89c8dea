package projections

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"crm/internal/adapters/storage/studio"
	"crm/internal/application/listutil"
	"crm/internal/application/orchestrators"
	"crm/internal/domain/account"
	"crm/internal/domain/audit"

	"github.com/google/go-cmp/cmp"
)

// TestQueryGetStudioSchedule_FlagsDoubleBooking marks both modules sharing day 5.
func TestQueryGetStudioSchedule_FlagsDoubleBooking(t *testing.T) {
	f := newFranchise()
	deps := GetStudioScheduleDeps{StudioStore: f.studios, ClassStore: f.classes, DealStore: f.deals, Now: nowFn}

	got, err := QueryGetStudioSchedule(context.Background(), GetStudioScheduleQuery{StudioID: "st-1", Viewer: partnerViewer}, deps)
	if err != nil {
		t.Fatalf("QueryGetStudioSchedule: %v", err)
	}

	rj, sp := rjMod1View(2), spMod1View(2)
	rj.DoubleBooked, sp.DoubleBooked = true, true
	spMod2 := spMod1View(1)
	spMod2.Module, spMod2.Code, spMod2.Date = "mod2", "SP-M2", day(40)

	if diff := cmp.Diff([]ModuleView{rj, sp, spMod2}, got.Entries); diff != "" {
		t.Errorf("schedule mismatch (-want +got):\n%s", diff)
	}
	if got.DoubleBooked != 2 || !got.From.Equal(day(0)) || !got.To.Equal(day(DefaultScheduleDays)) {
		t.Errorf("double=%d from=%v to=%v", got.DoubleBooked, got.From, got.To)
	}
}

// TestQueryGetStudioSchedule_Window checks the window after defaults apply.
func TestQueryGetStudioSchedule_Window(t *testing.T) {
	f := newFranchise()
	deps := GetStudioScheduleDeps{StudioStore: f.studios, ClassStore: f.classes, DealStore: f.deals, Now: nowFn}

	tests := []struct {
		name     string
		from, to time.Time
		wantErr  bool
	}{
		{name: "defaults", wantErr: false},
		{name: "full year from today", to: day(MaxScheduleDays), wantErr: false},
		{name: "open end far past the cap", from: day(-400), wantErr: false},
		{name: "to equal to from", from: day(10), to: day(10), wantErr: true},
		{name: "to before from", from: day(10), to: day(3), wantErr: true},
		{name: "to before today with no from", to: day(-1), wantErr: true},
		{name: "over the cap with no from", to: day(MaxScheduleDays + 1), wantErr: true},
		{name: "over the cap", from: day(-10), to: day(MaxScheduleDays), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := QueryGetStudioSchedule(context.Background(), GetStudioScheduleQuery{
				StudioID: "st-1", From: tt.from, To: tt.to, Viewer: adminViewer,
			}, deps)
			if tt.wantErr != errors.Is(err, ErrInvalidWindow) {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestQueryGetStudioSchedule_OtherPartnerForbidden hides studios of other partners.
func TestQueryGetStudioSchedule_OtherPartnerForbidden(t *testing.T) {
	f := newFranchise()
	deps := GetStudioScheduleDeps{StudioStore: f.studios, ClassStore: f.classes, DealStore: f.deals, Now: nowFn}

	_, err := QueryGetStudioSchedule(context.Background(), GetStudioScheduleQuery{StudioID: "st-2", Viewer: partnerViewer}, deps)
	if !errors.Is(err, orchestrators.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
	if _, err := QueryGetStudioSchedule(context.Background(), GetStudioScheduleQuery{StudioID: "st-2", Viewer: adminViewer}, deps); err != nil {
		t.Errorf("admin schedule: %v", err)
	}
}

// TestQueryGetStudioInventory splits out low-stock items.
func TestQueryGetStudioInventory(t *testing.T) {
	f := newFranchise()
	got, err := QueryGetStudioInventory(context.Background(), "st-1", partnerViewer, GetStudioInventoryDeps{StudioStore: f.studios})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 2 || len(got.LowStock) != 1 || got.LowStock[0].SKU != "MAT" {
		t.Errorf("inventory = %+v", got)
	}

	student := audit.Actor{ID: "student-1", Role: account.RoleStudent}
	if _, err := QueryGetStudioInventory(context.Background(), "st-1", student, GetStudioInventoryDeps{StudioStore: f.studios}); !errors.Is(err, orchestrators.ErrForbidden) {
		t.Errorf("student inventory error = %v", err)
	}
}

// TestQueryGetStudioList_PartnerScope restricts partners to their own studios.
func TestQueryGetStudioList_PartnerScope(t *testing.T) {
	f := newFranchise()
	params := listutil.Parse(url.Values{}, studio.SortColumns)

	got, err := QueryGetStudioList(context.Background(), GetStudioListQuery{Params: params, Viewer: partnerViewer}, GetStudioListDeps{StudioStore: f.studios})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Studios) != 1 || got.Studios[0].ID != "st-1" || got.Page.Total != 1 {
		t.Errorf("partner list = %+v", got)
	}

	got, err = QueryGetStudioList(context.Background(), GetStudioListQuery{Params: params, Viewer: adminViewer}, GetStudioListDeps{StudioStore: f.studios})
	if err != nil {
		t.Fatal(err)
	}
	if got.Page.Total != 2 {
		t.Errorf("admin total = %d, want 2", got.Page.Total)
	}
}
