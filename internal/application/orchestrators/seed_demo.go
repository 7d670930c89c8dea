package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crm/internal/domain/account"
	"crm/internal/domain/audit"
	"crm/internal/domain/deal"
	"crm/internal/domain/turma"
)

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "demo-password-2026"

// Demo account emails, one per non-admin portal.
const (
	DemoInstructorEmail = "instructor@crm.test"
	DemoPartnerEmail    = "partner@crm.test"
	DemoStudentEmail    = "student@crm.test"
)

// SeedDemoDeps holds the dependencies of every orchestrator the seed drives.
type SeedDemoDeps struct {
	Accounts    CreateAccountDeps
	Instructors InstructorDeps
	Studios     StudioDeps
	Classes     ClassDeps
	Deals       DealDeps
	Tickets     TicketDeps
	Now         func() time.Time
}

// ExecuteSeedDemo fills an empty database with one record set per portal.
// It is idempotent: nothing is written when the demo partner account exists.
// PRE: Database is migrated.
// POST: demo accounts, instructors, studios, classes, deals, inventory and a ticket exist.
func ExecuteSeedDemo(ctx context.Context, deps SeedDemoDeps) error {
	if _, err := deps.Accounts.AccountStore.GetByEmail(ctx, DemoPartnerEmail); err == nil {
		slog.Info("seed_event", "event", "demo_skipped", "reason", "already_seeded")
		return nil
	}

	admin := audit.Actor{ID: "system", Email: "system@crm.local", Role: account.RoleAdmin}
	ids := make(map[string]string, 3)
	for _, def := range []struct{ email, role string }{
		{DemoInstructorEmail, account.RoleInstructor},
		{DemoPartnerEmail, account.RolePartner},
		{DemoStudentEmail, account.RoleStudent},
	} {
		id, err := ExecuteCreateAccount(ctx, CreateAccountInput{
			Email:    def.email,
			Password: DemoPassword,
			Role:     def.role,
			Actor:    admin,
		}, deps.Accounts)
		if err != nil {
			return fmt.Errorf("seed account %s: %w", def.email, err)
		}
		ids[def.role] = id
	}

	now := clock(deps.Now)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	ana, err := ExecuteCreateInstructor(ctx, InstructorInput{
		AccountID:  ids[account.RoleInstructor],
		Name:       "Ana Souza",
		Email:      DemoInstructorEmail,
		City:       "São Paulo",
		SalaryText: "R$ 4.500,00",
		HiredAt:    today.AddDate(-2, 0, 0),
	}, deps.Instructors)
	if err != nil {
		return fmt.Errorf("seed instructor: %w", err)
	}
	if _, err := ExecuteCreateInstructor(ctx, InstructorInput{
		Name:       "Bruno Lima",
		Email:      "bruno@crm.test",
		City:       "Rio de Janeiro",
		SalaryText: "3.5k",
		HiredAt:    today.AddDate(0, -4, 0),
	}, deps.Instructors); err != nil {
		return fmt.Errorf("seed instructor: %w", err)
	}

	cmd := StudioCommand{Actor: admin}
	paulista, err := ExecuteRegisterStudio(ctx, StudioInput{
		Name:             "Studio Paulista",
		PartnerAccountID: ids[account.RolePartner],
		City:             "São Paulo",
		Address:          "Av. Paulista, 1000",
		Latitude:         -23.5614,
		Longitude:        -46.6559,
		RadiusKm:         5,
		Seats:            14,
	}, cmd, deps.Studios)
	if err != nil {
		return fmt.Errorf("seed studio: %w", err)
	}
	copacabana, err := ExecuteRegisterStudio(ctx, StudioInput{
		Name:      "Studio Copacabana",
		City:      "Rio de Janeiro",
		Address:   "Av. Atlântica, 1702",
		Latitude:  -22.9711,
		Longitude: -43.1822,
		RadiusKm:  5,
		Seats:     10,
	}, cmd, deps.Studios)
	if err != nil {
		return fmt.Errorf("seed studio: %w", err)
	}
	for _, id := range []string{paulista.ID, copacabana.ID} {
		if _, err := ExecuteActivateStudio(ctx, id, cmd, deps.Studios); err != nil {
			return fmt.Errorf("seed studio activation: %w", err)
		}
	}
	for _, item := range []ItemInput{
		{SKU: "MAT", Name: "Mat", Quantity: 20, MinQuantity: 5},
		{SKU: "RING", Name: "Pilates ring", Quantity: 3, MinQuantity: 4},
	} {
		if _, err := ExecuteUpsertItem(ctx, paulista.ID, item, admin, deps.Studios); err != nil {
			return fmt.Errorf("seed inventory: %w", err)
		}
	}

	sp, err := ExecuteCreateClass(ctx, ClassInput{
		Course:       "Pilates Instructor Training",
		StudioID:     paulista.ID,
		InstructorID: ana.ID,
		Mod1Code:     fmt.Sprintf("SP-%d-M1", today.Year()),
		Mod1Date:     today.AddDate(0, 0, 10),
		Mod2Code:     fmt.Sprintf("SP-%d-M2", today.Year()),
		Mod2Date:     today.AddDate(0, 0, 40),
		Capacity:     12,
		Status:       turma.StatusOpen,
	}, deps.Classes)
	if err != nil {
		return fmt.Errorf("seed class: %w", err)
	}
	rj, err := ExecuteCreateClass(ctx, ClassInput{
		Course:   "Pilates Instructor Training",
		StudioID: copacabana.ID,
		Mod1Code: fmt.Sprintf("RJ-%d-M1", today.Year()),
		Mod1Date: today.AddDate(0, 0, 20),
	}, deps.Classes)
	if err != nil {
		return fmt.Errorf("seed class: %w", err)
	}

	for _, in := range []DealInput{
		{Name: "João Pereira", Email: DemoStudentEmail, City: "São Paulo", Source: "instagram", Stage: deal.StageWon,
			ValueCents: 350000, ClassCodeMod1: sp.Mod1Code, ClassCodeMod2: sp.Mod2Code},
		{Name: "Maria Costa", Email: "maria@crm.test", City: "São Paulo", Source: "referral", Stage: deal.StageLead, ValueCents: 350000},
		{Name: "Carla Dias", Email: "carla@crm.test", City: "Rio de Janeiro", Source: "website", Stage: deal.StageNegotiation,
			ValueCents: 280000, ClassCodeMod1: rj.Mod1Code},
		{Name: "Pedro Alves", Phone: "+55 21 99999-0000", City: "Rio de Janeiro", Source: "event", Stage: deal.StageLost, ValueCents: 280000},
	} {
		if _, err := ExecuteCreateDeal(ctx, in, deps.Deals); err != nil {
			return fmt.Errorf("seed deal %s: %w", in.Name, err)
		}
	}

	student := audit.Actor{ID: ids[account.RoleStudent], Email: DemoStudentEmail, Role: account.RoleStudent}
	if _, err := ExecuteOpenTicket(ctx, OpenTicketInput{
		Subject: "Certificate for module 1",
		Body:    "Hi! When will the **module 1** certificate be available?",
		Actor:   student,
	}, deps.Tickets); err != nil {
		return fmt.Errorf("seed ticket: %w", err)
	}

	slog.Info("seed_event", "event", "demo_seeded", "studios", 2, "classes", 2, "deals", 4)
	return nil
}
