package projections

import (
	"context"

	"crm/internal/adapters/storage/ticket"
	"crm/internal/application/listutil"
	"crm/internal/application/orchestrators"
	"crm/internal/domain/account"
	"crm/internal/domain/audit"
	domainTicket "crm/internal/domain/ticket"
)

// GetTicketListQuery carries list parameters. Admins see every ticket;
// everyone else sees only the tickets they opened.
type GetTicketListQuery struct {
	Params listutil.Params
	Viewer audit.Actor
}

// GetTicketListResult carries one page of tickets.
type GetTicketListResult struct {
	Tickets []domainTicket.Ticket
	Page    listutil.PageInfo
}

// GetTicketListDeps holds dependencies for GetTicketList.
type GetTicketListDeps struct {
	TicketStore TicketStore
}

// QueryGetTicketList returns one filtered page of tickets.
// INVARIANT: A non-admin viewer never receives another requester's ticket
func QueryGetTicketList(ctx context.Context, query GetTicketListQuery, deps GetTicketListDeps) (GetTicketListResult, error) {
	p := query.Params
	filter := ticket.ListFilter{
		Status:   listutil.OneOf(p.Filters[FilterStatus], domainTicket.ValidStatuses),
		Priority: listutil.OneOf(p.Filters[FilterPriority], domainTicket.ValidPriorities),
		Search:   p.Search,
	}
	if query.Viewer.Role != account.RoleAdmin {
		filter.RequesterID = query.Viewer.ID
	} else if p.Filters[FilterAssignee] != "" {
		filter.AssigneeID = p.Filters[FilterAssignee]
	}

	total, err := deps.TicketStore.Count(ctx, filter)
	if err != nil {
		return GetTicketListResult{}, err
	}
	page := listutil.NewPageInfo(p.Page, p.PerPage, total)
	filter.Limit = page.PerPage
	filter.Offset = (page.Page - 1) * page.PerPage

	tickets, err := deps.TicketStore.List(ctx, filter)
	if err != nil {
		return GetTicketListResult{}, err
	}
	return GetTicketListResult{Tickets: tickets, Page: page}, nil
}

// TicketThread is a ticket with its rendered messages, oldest first.
type TicketThread struct {
	Ticket   domainTicket.Ticket
	Messages []orchestrators.MessageView
}

// GetTicketThreadDeps holds dependencies for GetTicketThread.
type GetTicketThreadDeps struct {
	TicketStore TicketStore
}

// QueryGetTicketThread loads a ticket and renders its messages.
// PRE: viewer is the requester or an admin
// POST: Message bodies are sanitized HTML
func QueryGetTicketThread(ctx context.Context, ticketID string, viewer audit.Actor, deps GetTicketThreadDeps) (TicketThread, error) {
	t, err := deps.TicketStore.GetByID(ctx, ticketID)
	if err != nil {
		return TicketThread{}, err
	}
	if !t.CanView(viewer.ID, viewer.Role == account.RoleAdmin) {
		return TicketThread{}, domainTicket.ErrNotParticipant
	}
	msgs, err := deps.TicketStore.ListMessages(ctx, t.ID)
	if err != nil {
		return TicketThread{}, err
	}
	thread := TicketThread{Ticket: t, Messages: make([]orchestrators.MessageView, 0, len(msgs))}
	for _, m := range msgs {
		thread.Messages = append(thread.Messages, orchestrators.NewMessageView(m))
	}
	return thread, nil
}
