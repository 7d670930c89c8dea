package orchestrators

import (
	"context"
	"testing"

	"crm/internal/domain/deal"
	"crm/internal/domain/studio"
)

// TestSeedDemo_CreatesOneRecordSetAndIsIdempotent runs the seed twice.
func TestSeedDemo_CreatesOneRecordSetAndIsIdempotent(t *testing.T) {
	accounts := newMemAccountStore()
	instructors := newMemInstructorStore()
	studios := newMemStudioStore()
	classes := newMemClassStore()
	deals := newMemDealStore()
	tickets := newMemTicketStore()
	auditStore := &memAuditStore{}

	deps := SeedDemoDeps{
		Accounts:    CreateAccountDeps{AccountStore: accounts, AuditStore: auditStore, Now: nowFn},
		Instructors: InstructorDeps{InstructorStore: instructors, Accounts: accounts},
		Studios:     StudioDeps{StudioStore: studios, AuditStore: auditStore, DefaultRadiusKm: 5, Now: nowFn},
		Classes:     ClassDeps{ClassStore: classes, Studios: studios, Instructors: instructors, Now: nowFn},
		Deals:       DealDeps{DealStore: deals, ClassStore: classes, Now: nowFn},
		Tickets:     TicketDeps{TicketStore: tickets, Now: nowFn},
		Now:         nowFn,
	}
	ctx := context.Background()

	if err := ExecuteSeedDemo(ctx, deps); err != nil {
		t.Fatalf("ExecuteSeedDemo: %v", err)
	}
	if len(accounts.byID) != 3 || len(instructors.byID) != 2 || len(studios.byID) != 2 ||
		len(classes.byID) != 2 || len(deals.byID) != 4 || len(tickets.byID) != 1 || len(studios.items) != 2 {
		t.Fatalf("unexpected counts: accounts=%d instructors=%d studios=%d classes=%d deals=%d tickets=%d items=%d",
			len(accounts.byID), len(instructors.byID), len(studios.byID), len(classes.byID),
			len(deals.byID), len(tickets.byID), len(studios.items))
	}
	for _, s := range studios.byID {
		if s.Status != studio.StatusActive {
			t.Errorf("studio %s status = %s", s.Name, s.Status)
		}
	}
	student, err := deals.GetByEmail(ctx, DemoStudentEmail)
	if err != nil || student.Stage != deal.StageWon || student.ClassCodeMod2 == "" {
		t.Errorf("student deal = %+v, %v", student, err)
	}

	if err := ExecuteSeedDemo(ctx, deps); err != nil {
		t.Fatalf("second ExecuteSeedDemo: %v", err)
	}
	if len(deals.byID) != 4 || len(accounts.byID) != 3 {
		t.Error("second run must not write")
	}
}
