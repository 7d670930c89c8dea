package web

import (
	"crm/internal/application/orchestrators"
	"crm/internal/application/projections"
)

func dealDeps() orchestrators.DealDeps {
	return orchestrators.DealDeps{
		DealStore:  stores.DealStore,
		ClassStore: stores.ClassStore,
		AuditStore: stores.AuditStore,
		Cache:      settings.Cache,
		Now:        timeNow,
	}
}

func classDeps() orchestrators.ClassDeps {
	return orchestrators.ClassDeps{
		ClassStore:  stores.ClassStore,
		Studios:     stores.StudioStore,
		Instructors: stores.InstructorStore,
		AuditStore:  stores.AuditStore,
		Cache:       settings.Cache,
		Now:         timeNow,
	}
}

func instructorDeps() orchestrators.InstructorDeps {
	return orchestrators.InstructorDeps{
		InstructorStore: stores.InstructorStore,
		Accounts:        stores.AccountStore,
		Cache:           settings.Cache,
	}
}

func studioDeps() orchestrators.StudioDeps {
	return orchestrators.StudioDeps{
		StudioStore:     stores.StudioStore,
		AuditStore:      stores.AuditStore,
		Cache:           settings.Cache,
		DefaultRadiusKm: settings.DefaultRadiusKm,
		Now:             timeNow,
	}
}

func ticketDeps() orchestrators.TicketDeps {
	deps := orchestrators.TicketDeps{
		TicketStore: stores.TicketStore,
		Accounts:    stores.AccountStore,
		Outbox:      stores.OutboxStore,
		AuditStore:  stores.AuditStore,
		Cache:       settings.Cache,
		BaseURL:     settings.BaseURL,
		Now:         timeNow,
	}
	// a nil *Hub must not become a non-nil Publisher
	if settings.Hub != nil {
		deps.Publisher = settings.Hub
	}
	return deps
}

func portalDeps() projections.PortalDeps {
	return projections.PortalDeps{
		DealStore:       stores.DealStore,
		ClassStore:      stores.ClassStore,
		InstructorStore: stores.InstructorStore,
		StudioStore:     stores.StudioStore,
		TicketStore:     stores.TicketStore,
		Now:             timeNow,
	}
}

func dashboardDeps() projections.GetAdminDashboardDeps {
	return projections.GetAdminDashboardDeps{
		DealStore:       stores.DealStore,
		ClassStore:      stores.ClassStore,
		StudioStore:     stores.StudioStore,
		TicketStore:     stores.TicketStore,
		InstructorStore: stores.InstructorStore,
		Cache:           settings.Cache,
		TTL:             settings.DashboardTTL,
		Now:             timeNow,
	}
}
