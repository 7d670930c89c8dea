package projections

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"crm/internal/adapters/storage/deal"
	"crm/internal/application/listutil"
	"crm/internal/domain/account"
	"crm/internal/domain/audit"
	domainDeal "crm/internal/domain/deal"
	domainTicket "crm/internal/domain/ticket"
	domainTurma "crm/internal/domain/turma"

	"github.com/google/go-cmp/cmp"
)

func ticketIDs(list []domainTicket.Ticket) []string {
	var ids []string
	for _, t := range list {
		ids = append(ids, t.ID)
	}
	return ids
}

// TestQueryGetStudentPortal resolves deal class codes into modules.
func TestQueryGetStudentPortal(t *testing.T) {
	f := newFranchise()

	got, err := QueryGetStudentPortal(context.Background(), studentViewer, f.portalDeps())
	if err != nil {
		t.Fatalf("QueryGetStudentPortal: %v", err)
	}
	if len(got.Enrolments) != 1 || got.Enrolments[0].Deal.ID != "d2" {
		t.Fatalf("enrolments = %+v", got.Enrolments)
	}
	mod2 := spMod1View(0)
	mod2.Module, mod2.Code, mod2.Date = domainTurma.Mod2, "SP-M2", day(40)
	if diff := cmp.Diff([]ModuleView{spMod1View(0), mod2}, got.Enrolments[0].Modules); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"t1", "t3"}, ticketIDs(got.Tickets)); diff != "" {
		t.Errorf("tickets mismatch (-want +got):\n%s", diff)
	}
}

// TestQueryGetStudentPortal_HidesSalesFields keeps notes, owner, source and
// value out of what the student sees.
func TestQueryGetStudentPortal_HidesSalesFields(t *testing.T) {
	f := newFranchise()
	d := &f.deals.deals[1]
	d.Notes, d.OwnerID, d.Source = "prefere desconto", "vendedor-1", "instagram"

	got, err := QueryGetStudentPortal(context.Background(), studentViewer, f.portalDeps())
	if err != nil {
		t.Fatal(err)
	}
	want := StudentDeal{ID: "d2", Name: "Joana", Stage: domainDeal.StageWon, ClassCodeMod1: "SP-M1", ClassCodeMod2: "SP-M2"}
	if len(got.Enrolments) != 1 {
		t.Fatalf("enrolments = %+v", got.Enrolments)
	}
	if diff := cmp.Diff(want, got.Enrolments[0].Deal); diff != "" {
		t.Errorf("deal mismatch (-want +got):\n%s", diff)
	}
	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	for _, leak := range []string{"Notes", "prefere desconto", "OwnerID", "vendedor-1", "Source", "instagram", "ValueCents"} {
		if strings.Contains(string(raw), leak) {
			t.Errorf("portal JSON exposes %q: %s", leak, raw)
		}
	}
}

// TestQueryGetStudentPortal_SkipsLostAndUnknownCodes ignores lost deals and dangling codes.
func TestQueryGetStudentPortal_SkipsLostAndUnknownCodes(t *testing.T) {
	f := newFranchise()
	f.deals.deals[1].ClassCodeMod2 = "GONE-M2"
	rui := audit.Actor{ID: "rui", Email: "rui@crm.test", Role: account.RoleStudent}

	got, err := QueryGetStudentPortal(context.Background(), rui, f.portalDeps())
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Enrolments) != 0 {
		t.Errorf("lost deal shown: %+v", got.Enrolments)
	}

	got, err = QueryGetStudentPortal(context.Background(), studentViewer, f.portalDeps())
	if err != nil {
		t.Fatal(err)
	}
	if n := len(got.Enrolments[0].Modules); n != 1 {
		t.Errorf("modules = %d, want only the module 1 class", n)
	}
}

// TestQueryGetPartnerPortal scopes stock and schedule to the partner's studios.
func TestQueryGetPartnerPortal(t *testing.T) {
	f := newFranchise()

	got, err := QueryGetPartnerPortal(context.Background(), partnerViewer, f.portalDeps())
	if err != nil {
		t.Fatalf("QueryGetPartnerPortal: %v", err)
	}
	if len(got.Studios) != 1 || len(got.LowStock) != 1 || got.LowStock[0].ID != "i1" {
		t.Errorf("studios=%+v lowStock=%+v", got.Studios, got.LowStock)
	}
	rj, sp := rjMod1View(2), spMod1View(2)
	rj.DoubleBooked, sp.DoubleBooked = true, true
	if diff := cmp.Diff([]ModuleView{rj, sp}, got.Schedule); diff != "" {
		t.Errorf("schedule mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"t2"}, ticketIDs(got.Tickets)); diff != "" {
		t.Errorf("tickets mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"st-1"}}, f.studios.lowStockCalls); diff != "" {
		t.Errorf("low stock calls (-want +got):\n%s", diff)
	}
}

// TestQueryGetPartnerPortal_NoStudios never asks for every studio's stock.
func TestQueryGetPartnerPortal_NoStudios(t *testing.T) {
	f := newFranchise()
	newcomer := audit.Actor{ID: "partner-9", Role: account.RolePartner}

	got, err := QueryGetPartnerPortal(context.Background(), newcomer, f.portalDeps())
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Studios) != 0 || len(got.LowStock) != 0 || len(f.studios.lowStockCalls) != 0 {
		t.Errorf("portal = %+v, calls = %v", got, f.studios.lowStockCalls)
	}
}

// TestQueryGetInstructorPortal lists the instructor's classes and upcoming modules.
func TestQueryGetInstructorPortal(t *testing.T) {
	f := newFranchise()

	got, err := QueryGetInstructorPortal(context.Background(), instructorViewer, f.portalDeps())
	if err != nil {
		t.Fatalf("QueryGetInstructorPortal: %v", err)
	}
	if got.Instructor == nil || got.Instructor.ID != "in-ana" || got.Tenure != "1y_3y" {
		t.Fatalf("instructor = %+v tenure = %q", got.Instructor, got.Tenure)
	}
	if len(got.Classes) != 1 || got.Classes[0].Mod1Enrolled != 2 || got.Classes[0].Mod2Enrolled != 1 {
		t.Errorf("classes = %+v", got.Classes)
	}
	if diff := cmp.Diff([]ModuleView{spMod1View(2)}, got.Upcoming); diff != "" {
		t.Errorf("upcoming mismatch (-want +got):\n%s", diff)
	}

	unlinked := audit.Actor{ID: "acc-new", Role: account.RoleInstructor}
	empty, err := QueryGetInstructorPortal(context.Background(), unlinked, f.portalDeps())
	if err != nil || empty.Instructor != nil || len(empty.Classes) != 0 {
		t.Errorf("unlinked portal = %+v, %v", empty, err)
	}
}

// TestQueryGetTicketThread renders sanitized markdown and enforces participation.
func TestQueryGetTicketThread(t *testing.T) {
	f := newFranchise()
	deps := GetTicketThreadDeps{TicketStore: f.tickets}

	got, err := QueryGetTicketThread(context.Background(), "t1", studentViewer, deps)
	if err != nil {
		t.Fatalf("QueryGetTicketThread: %v", err)
	}
	if len(got.Messages) != 2 || !strings.Contains(got.Messages[0].BodyHTML, "<strong>certificate</strong>") {
		t.Errorf("messages = %+v", got.Messages)
	}
	if strings.Contains(got.Messages[1].BodyHTML, "<script>") {
		t.Errorf("script survived sanitizing: %q", got.Messages[1].BodyHTML)
	}

	if _, err := QueryGetTicketThread(context.Background(), "t1", partnerViewer, deps); err != domainTicket.ErrNotParticipant {
		t.Errorf("outsider error = %v, want ErrNotParticipant", err)
	}
	if _, err := QueryGetTicketThread(context.Background(), "t1", adminViewer, deps); err != nil {
		t.Errorf("admin thread: %v", err)
	}
}

// TestQueryGetTicketList_Scope shows every ticket to admins and own tickets to others.
func TestQueryGetTicketList_Scope(t *testing.T) {
	f := newFranchise()
	deps := GetTicketListDeps{TicketStore: f.tickets}
	params := listutil.Parse(url.Values{}, nil)

	own, err := QueryGetTicketList(context.Background(), GetTicketListQuery{Params: params, Viewer: studentViewer}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"t1", "t3"}, ticketIDs(own.Tickets)); diff != "" {
		t.Errorf("student tickets (-want +got):\n%s", diff)
	}

	open := listutil.Parse(url.Values{"status": {"open"}}, nil, FilterStatus)
	all, err := QueryGetTicketList(context.Background(), GetTicketListQuery{Params: open, Viewer: adminViewer}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"t1"}, ticketIDs(all.Tickets)); diff != "" {
		t.Errorf("admin open tickets (-want +got):\n%s", diff)
	}
}

// TestQueryGetDealList_Paging returns the requested page and the full total.
func TestQueryGetDealList_Paging(t *testing.T) {
	f := newFranchise()
	params := listutil.Parse(url.Values{"page": {"2"}, "per_page": {"2"}}, deal.SortColumns, FilterStage)

	got, err := QueryGetDealList(context.Background(), GetDealListQuery{Params: params}, GetDealListDeps{DealStore: f.deals})
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, d := range got.Deals {
		ids = append(ids, d.ID)
	}
	if diff := cmp.Diff([]string{"d3", "d4"}, ids); diff != "" {
		t.Errorf("page 2 (-want +got):\n%s", diff)
	}
	want := listutil.PageInfo{Page: 2, PerPage: 2, Total: 5, TotalPages: 3}
	if diff := cmp.Diff(want, got.Page); diff != "" {
		t.Errorf("page info (-want +got):\n%s", diff)
	}

	won := listutil.Parse(url.Values{"stage": {"won"}}, deal.SortColumns, FilterStage)
	got, err = QueryGetDealList(context.Background(), GetDealListQuery{Params: won}, GetDealListDeps{DealStore: f.deals})
	if err != nil {
		t.Fatal(err)
	}
	if got.Page.Total != 2 {
		t.Errorf("won total = %d, want 2", got.Page.Total)
	}
}
