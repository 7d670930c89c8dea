package web

import (
	"net/http"
	"net/url"

	"crm/internal/application/listutil"
	"crm/internal/application/orchestrators"
	"crm/internal/application/projections"
	"crm/internal/domain/ticket"
)

type openTicketRequest struct {
	Subject  string `json:"subject"`
	Priority string `json:"priority"`
	Body     string `json:"body"`
}

func (o *openTicketRequest) fillForm(form url.Values) error {
	o.Subject = form.Get("Subject")
	o.Priority = form.Get("Priority")
	o.Body = form.Get("Body")
	return nil
}

type replyRequest struct {
	Body string `json:"body"`
}

func (p *replyRequest) fillForm(form url.Values) error {
	p.Body = form.Get("Body")
	return nil
}

func ticketListParams(r *http.Request) listutil.Params {
	return listutil.Parse(r.URL.Query(), nil, projections.FilterStatus, projections.FilterPriority, projections.FilterAssignee)
}

func loadThread(r *http.Request) (projections.TicketThread, error) {
	sess, _ := currentActor(r)
	return projections.QueryGetTicketThread(r.Context(), r.PathValue("id"), sess.Actor(),
		projections.GetTicketThreadDeps{TicketStore: stores.TicketStore})
}

// handleTicketsPage renders the caller's tickets with the open-ticket form.
func handleTicketsPage(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	result, err := projections.QueryGetTicketList(r.Context(), projections.GetTicketListQuery{
		Params: ticketListParams(r),
		Viewer: sess.Actor(),
	}, projections.GetTicketListDeps{TicketStore: stores.TicketStore})
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "tickets.html", map[string]any{
		"Tickets":    result.Tickets,
		"Page":       result.Page,
		"Query":      r.URL.Query(),
		"Statuses":   ticket.ValidStatuses,
		"Priorities": ticket.ValidPriorities,
	})
}

// handleTicketPage renders one thread (GET /tickets/{id}).
func handleTicketPage(w http.ResponseWriter, r *http.Request) {
	thread, err := loadThread(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	renderTemplate(w, r, "ticket.html", map[string]any{
		"Ticket":   thread.Ticket,
		"Messages": thread.Messages,
		"Statuses": ticket.ValidStatuses,
		"Closed":   thread.Ticket.Status == ticket.StatusClosed,
	})
}

// handleListTickets handles GET /api/tickets.
func handleListTickets(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	result, err := projections.QueryGetTicketList(r.Context(), projections.GetTicketListQuery{
		Params: ticketListParams(r),
		Viewer: sess.Actor(),
	}, projections.GetTicketListDeps{TicketStore: stores.TicketStore})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleTicketThread handles GET /api/tickets/{id}.
func handleTicketThread(w http.ResponseWriter, r *http.Request) {
	thread, err := loadThread(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

// handleOpenTicket handles POST /tickets (form) and POST /api/tickets (JSON).
func handleOpenTicket(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	var req openTicketRequest
	if err := decodeInput(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	t, err := orchestrators.ExecuteOpenTicket(r.Context(), orchestrators.OpenTicketInput{
		Subject:  req.Subject,
		Priority: req.Priority,
		Body:     req.Body,
		Actor:    sess.Actor(),
	}, ticketDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	finish(w, r, http.StatusCreated, "/tickets/"+t.ID, t)
}

// handleReplyTicket appends a message and pushes it to live viewers.
func handleReplyTicket(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	var req replyRequest
	if err := decodeInput(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	id := r.PathValue("id")
	msg, err := orchestrators.ExecuteReplyTicket(r.Context(), orchestrators.ReplyInput{
		TicketID: id,
		Body:     req.Body,
		Actor:    sess.Actor(),
	}, ticketDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	finish(w, r, http.StatusCreated, "/tickets/"+id, orchestrators.NewMessageView(msg))
}

type ticketStatusRequest struct {
	Status string `json:"status"`
}

func (s *ticketStatusRequest) fillForm(form url.Values) error {
	s.Status = form.Get("Status")
	return nil
}

// handleTicketStatus handles POST /api/tickets/{id}/status. Requesters may
// only close their own ticket; administrators may move it anywhere.
func handleTicketStatus(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	var req ticketStatusRequest
	if err := decodeInput(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	id := r.PathValue("id")
	t, err := orchestrators.ExecuteChangeTicketStatus(r.Context(), id, req.Status, sess.Actor(), ticketDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	finish(w, r, http.StatusOK, "/tickets/"+id, t)
}

type assignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

func handleAssignTicket(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	var req assignRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	t, err := orchestrators.ExecuteAssignTicket(r.Context(), r.PathValue("id"), req.AssigneeID, sess.Actor(), ticketDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleTicketSocket upgrades GET /ws/tickets/{id} to a websocket that
// receives new messages and status changes for the thread.
func handleTicketSocket(w http.ResponseWriter, r *http.Request) {
	if settings.Hub == nil {
		http.Error(w, "live updates are disabled", http.StatusServiceUnavailable)
		return
	}
	sess, _ := currentActor(r)
	id := r.PathValue("id")
	t, err := stores.TicketStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !t.CanView(sess.AccountID, sess.IsAdmin()) {
		writeError(w, r, ticket.ErrNotParticipant)
		return
	}
	settings.Hub.Serve(w, r, orchestrators.TicketTopic(id))
}
