package projections

import (
	domainDeal "crm/internal/domain/deal"
	domainInstructor "crm/internal/domain/instructor"
	domainStudio "crm/internal/domain/studio"
	domainTicket "crm/internal/domain/ticket"
	domainTurma "crm/internal/domain/turma"
)

// franchise seeds one small franchise: two studios, three classes (one
// cancelled), five deals, three instructors and three tickets. Two modules
// share day 5 at studio st-1.
type franchise struct {
	deals       *mockDealStore
	classes     *mockClassStore
	instructors *mockInstructorStore
	studios     *mockStudioStore
	tickets     *mockTicketStore
}

func newFranchise() franchise {
	return franchise{
		deals: &mockDealStore{deals: []domainDeal.Deal{
			{ID: "d1", Name: "Lia", Email: "lia@crm.test", Stage: domainDeal.StageLead, ValueCents: 1000, ClassCodeMod1: "SP-M1"},
			{ID: "d2", Name: "Joana", Email: "joana@crm.test", Stage: domainDeal.StageWon, ValueCents: 5000, ClassCodeMod1: "SP-M1", ClassCodeMod2: "SP-M2"},
			{ID: "d3", Name: "Rui", Email: "rui@crm.test", Stage: domainDeal.StageLost, ValueCents: 2000, ClassCodeMod1: "SP-M1"},
			{ID: "d4", Name: "Caio", Email: "caio@crm.test", Stage: domainDeal.StageNegotiation, ValueCents: 3000, ClassCodeMod1: "RJ-M1"},
			{ID: "d5", Name: "Duda", Email: "duda@crm.test", Stage: domainDeal.StageWon, ValueCents: 4000, ClassCodeMod1: "RJ-M1"},
		}},
		classes: &mockClassStore{classes: []domainTurma.Turma{
			{
				ID: "cl-sp", Course: "Pilates Mat", City: "São Paulo", StudioID: "st-1", InstructorID: "in-ana",
				Mod1Code: "SP-M1", Mod1Date: day(5), Mod2Code: "SP-M2", Mod2Date: day(40),
				Capacity: 3, Status: domainTurma.StatusOpen,
			},
			{
				ID: "cl-rj", Course: "Reformer", City: "São Paulo", StudioID: "st-1", InstructorID: "in-bruno",
				Mod1Code: "RJ-M1", Mod1Date: day(5), Status: domainTurma.StatusPlanned,
			},
			{
				ID: "cl-old", Course: "Barre", City: "Rio de Janeiro", StudioID: "st-2",
				Mod1Code: "OLD-M1", Mod1Date: day(6), Status: domainTurma.StatusCancelled,
			},
		}},
		instructors: &mockInstructorStore{instructors: []domainInstructor.Instructor{
			{ID: "in-ana", AccountID: "acc-ana", Name: "Ana", SalaryCents: 350000, HiredAt: day(-400), Status: domainInstructor.StatusActive},
			{ID: "in-bruno", Name: "Bruno", HiredAt: day(-30), Status: domainInstructor.StatusActive},
			{ID: "in-carla", Name: "Carla", SalaryCents: 500000, HiredAt: day(-2000), Status: domainInstructor.StatusInactive},
		}},
		studios: &mockStudioStore{
			studios: []domainStudio.Studio{
				{ID: "st-1", Name: "Paulista", PartnerAccountID: "partner-1", Status: domainStudio.StatusActive},
				{ID: "st-2", Name: "Ipanema", PartnerAccountID: "partner-2", Status: domainStudio.StatusSuspended},
			},
			items: []domainStudio.Item{
				{ID: "i1", StudioID: "st-1", SKU: "MAT", Name: "Mat", Quantity: 1, MinQuantity: 2},
				{ID: "i2", StudioID: "st-1", SKU: "BALL", Name: "Ball", Quantity: 10, MinQuantity: 2},
				{ID: "i3", StudioID: "st-2", SKU: "RING", Name: "Ring", Quantity: 0, MinQuantity: 1},
			},
		},
		tickets: &mockTicketStore{
			tickets: []domainTicket.Ticket{
				{ID: "t1", Subject: "Certificate", Status: domainTicket.StatusOpen, RequesterID: "student-1"},
				{ID: "t2", Subject: "Invoice", Status: domainTicket.StatusPending, RequesterID: "partner-1"},
				{ID: "t3", Subject: "Old", Status: domainTicket.StatusClosed, RequesterID: "student-1"},
			},
			messages: []domainTicket.Message{
				{ID: "m1", TicketID: "t1", AuthorID: "student-1", Body: "Where is my **certificate**?"},
				{ID: "m2", TicketID: "t1", AuthorID: "admin-1", Body: "Sent <script>alert(1)</script>today."},
			},
		},
	}
}

func (f franchise) portalDeps() PortalDeps {
	return PortalDeps{
		DealStore:       f.deals,
		ClassStore:      f.classes,
		InstructorStore: f.instructors,
		StudioStore:     f.studios,
		TicketStore:     f.tickets,
		Now:             nowFn,
	}
}

func spMod1View(enrolled int) ModuleView {
	return ModuleView{
		ClassID: "cl-sp", Course: "Pilates Mat", City: "São Paulo", StudioID: "st-1",
		Module: domainTurma.Mod1, Code: "SP-M1", Date: day(5), Enrolled: enrolled,
	}
}

func rjMod1View(enrolled int) ModuleView {
	return ModuleView{
		ClassID: "cl-rj", Course: "Reformer", City: "São Paulo", StudioID: "st-1",
		Module: domainTurma.Mod1, Code: "RJ-M1", Date: day(5), Enrolled: enrolled,
	}
}
