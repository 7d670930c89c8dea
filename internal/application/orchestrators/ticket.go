package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"crm/internal/adapters/markdown"
	"crm/internal/domain/account"
	"crm/internal/domain/audit"
	"crm/internal/domain/outbox"
	"crm/internal/domain/ticket"

	"github.com/google/uuid"
)

// Realtime event types published on a ticket topic.
const (
	EventTicketMessage = "ticket.message"
	EventTicketStatus  = "ticket.status"
)

// TicketStore defines the store interface needed by the ticket orchestrators.
type TicketStore interface {
	GetByID(ctx context.Context, id string) (ticket.Ticket, error)
	Save(ctx context.Context, t ticket.Ticket) error
	SaveWithMessage(ctx context.Context, t ticket.Ticket, msg ticket.Message) error
}

// OutboxWriter queues side effects for the retry worker.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// Publisher pushes live events to subscribers of a topic.
type Publisher interface {
	Publish(topic, eventType string, payload any)
}

// TicketDeps holds dependencies for the ticket orchestrators.
type TicketDeps struct {
	TicketStore TicketStore
	Accounts    AccountLookup
	Outbox      OutboxWriter
	Publisher   Publisher
	AuditStore  AuditStore
	Cache       CacheInvalidator
	BaseURL     string
	Now         func() time.Time
}

// MessageView is a rendered ticket message as sent to browsers.
type MessageView struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	AuthorID   string    `json:"author_id"`
	AuthorRole string    `json:"author_role"`
	Body       string    `json:"body"`
	BodyHTML   string    `json:"body_html"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMessageView renders the markdown body of m.
func NewMessageView(m ticket.Message) MessageView {
	return MessageView{
		ID:         m.ID,
		TicketID:   m.TicketID,
		AuthorID:   m.AuthorID,
		AuthorRole: m.AuthorRole,
		Body:       m.Body,
		BodyHTML:   markdown.Render(m.Body),
		CreatedAt:  m.CreatedAt,
	}
}

// TicketTopic is the realtime topic of one ticket thread.
func TicketTopic(ticketID string) string {
	return "ticket:" + ticketID
}

var ErrAssigneeNotAdmin = errors.New("tickets can only be assigned to administrators")

// OpenTicketInput carries the subject and first message of a new ticket.
type OpenTicketInput struct {
	Subject  string
	Priority string
	Body     string
	Actor    audit.Actor
}

// ExecuteOpenTicket creates a ticket with its first message.
// POST: Ticket is open and the message stored in the same transaction
func ExecuteOpenTicket(ctx context.Context, input OpenTicketInput, deps TicketDeps) (ticket.Ticket, error) {
	now := clock(deps.Now)
	t := ticket.Ticket{
		ID:             uuid.New().String(),
		Subject:        input.Subject,
		Priority:       input.Priority,
		RequesterID:    input.Actor.ID,
		RequesterEmail: input.Actor.Email,
		RequesterRole:  input.Actor.Role,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastMessageAt:  now,
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return ticket.Ticket{}, err
	}
	msg := ticket.Message{
		ID:         uuid.New().String(),
		TicketID:   t.ID,
		AuthorID:   input.Actor.ID,
		AuthorRole: input.Actor.Role,
		Body:       strings.TrimSpace(input.Body),
		CreatedAt:  now,
	}
	if err := msg.Validate(); err != nil {
		return ticket.Ticket{}, err
	}
	if err := deps.TicketStore.SaveWithMessage(ctx, t, msg); err != nil {
		return ticket.Ticket{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("ticket_event", "event", "opened", "ticket_id", t.ID, "requester_role", t.RequesterRole, "priority", t.Priority)
	return t, nil
}

// ReplyInput carries a reply to a ticket.
type ReplyInput struct {
	TicketID string
	Body     string
	Actor    audit.Actor
}

// ExecuteReplyTicket appends a message to a ticket thread. An admin reply
// queues an email notification to the requester.
// PRE: actor is an admin or the requester
// POST: message stored, ticket status follows the reply rules, subscribers notified
func ExecuteReplyTicket(ctx context.Context, input ReplyInput, deps TicketDeps) (ticket.Message, error) {
	t, err := deps.TicketStore.GetByID(ctx, input.TicketID)
	if err != nil {
		return ticket.Message{}, err
	}
	isAdmin := input.Actor.Role == account.RoleAdmin
	if !t.CanView(input.Actor.ID, isAdmin) {
		return ticket.Message{}, ticket.ErrNotParticipant
	}

	now := clock(deps.Now)
	msg := ticket.Message{
		ID:         uuid.New().String(),
		TicketID:   t.ID,
		AuthorID:   input.Actor.ID,
		AuthorRole: input.Actor.Role,
		Body:       strings.TrimSpace(input.Body),
		CreatedAt:  now,
	}
	if err := msg.Validate(); err != nil {
		return ticket.Message{}, err
	}
	previous := t.Status
	if err := t.ApplyReply(isAdmin && input.Actor.ID != t.RequesterID, now); err != nil {
		return ticket.Message{}, err
	}
	if err := deps.TicketStore.SaveWithMessage(ctx, t, msg); err != nil {
		return ticket.Message{}, err
	}

	slog.Info("ticket_event", "event", "reply", "ticket_id", t.ID, "author_role", msg.AuthorRole, "status", t.Status)
	if deps.Publisher != nil {
		deps.Publisher.Publish(TicketTopic(t.ID), EventTicketMessage, NewMessageView(msg))
		if t.Status != previous {
			deps.Publisher.Publish(TicketTopic(t.ID), EventTicketStatus, map[string]string{"status": t.Status})
		}
	}
	if t.Status != previous {
		invalidateDashboard(ctx, deps.Cache)
	}
	if isAdmin && input.Actor.ID != t.RequesterID {
		queueReplyEmail(ctx, t, msg, deps, now)
	}
	return msg, nil
}

// queueReplyEmail enqueues the requester notification. Failures are logged;
// the reply itself is already committed.
func queueReplyEmail(ctx context.Context, t ticket.Ticket, msg ticket.Message, deps TicketDeps, now time.Time) {
	if deps.Outbox == nil || t.RequesterEmail == "" {
		return
	}
	link := strings.TrimRight(deps.BaseURL, "/") + "/tickets/" + t.ID
	entry, err := outbox.NewEmailEntry(outbox.EmailPayload{
		To:      t.RequesterEmail,
		Subject: "Re: " + t.Subject,
		HTML: fmt.Sprintf(`<p>Your ticket <strong>%s</strong> has a new reply:</p>%s<p><a href="%s">View the conversation</a></p>`,
			html.EscapeString(t.Subject), markdown.Render(msg.Body), html.EscapeString(link)),
		Text:     markdown.PlainText(msg.Body) + "\n\n" + link,
		TicketID: t.ID,
	}, now)
	if err == nil {
		err = deps.Outbox.Save(ctx, entry)
	}
	if err != nil {
		slog.Error("ticket_event", "event", "notify_enqueue_failed", "ticket_id", t.ID, "error", err)
		return
	}
	slog.Info("outbox_event", "event", "enqueued", "entry_id", entry.ID, "action", entry.ActionType, "ticket_id", t.ID)
}

// ExecuteChangeTicketStatus moves a ticket through its lifecycle. The
// requester may only close their own ticket.
func ExecuteChangeTicketStatus(ctx context.Context, ticketID, status string, actor audit.Actor, deps TicketDeps) (ticket.Ticket, error) {
	t, err := deps.TicketStore.GetByID(ctx, ticketID)
	if err != nil {
		return ticket.Ticket{}, err
	}
	isAdmin := actor.Role == account.RoleAdmin
	if !t.CanView(actor.ID, isAdmin) {
		return ticket.Ticket{}, ticket.ErrNotParticipant
	}
	if !isAdmin && status != ticket.StatusClosed {
		return ticket.Ticket{}, ErrForbidden
	}
	if err := t.ChangeStatus(status, clock(deps.Now)); err != nil {
		return ticket.Ticket{}, err
	}
	if err := deps.TicketStore.Save(ctx, t); err != nil {
		return ticket.Ticket{}, err
	}

	invalidateDashboard(ctx, deps.Cache)
	slog.Info("ticket_event", "event", "status_changed", "ticket_id", t.ID, "status", t.Status, "actor_id", actor.ID)
	if deps.Publisher != nil {
		deps.Publisher.Publish(TicketTopic(t.ID), EventTicketStatus, map[string]string{"status": t.Status})
	}
	return t, nil
}

// ExecuteAssignTicket assigns a ticket to an administrator. An empty
// assignee clears the assignment.
// PRE: actor is an admin
func ExecuteAssignTicket(ctx context.Context, ticketID, assigneeID string, actor audit.Actor, deps TicketDeps) (ticket.Ticket, error) {
	if err := requireAdmin(actor); err != nil {
		return ticket.Ticket{}, err
	}
	t, err := deps.TicketStore.GetByID(ctx, ticketID)
	if err != nil {
		return ticket.Ticket{}, err
	}
	if assigneeID != "" && deps.Accounts != nil {
		acct, err := deps.Accounts.GetByID(ctx, assigneeID)
		if err != nil {
			return ticket.Ticket{}, err
		}
		if !acct.IsAdmin() {
			return ticket.Ticket{}, ErrAssigneeNotAdmin
		}
	}
	t.AssigneeID = assigneeID
	t.UpdatedAt = clock(deps.Now)
	if err := deps.TicketStore.Save(ctx, t); err != nil {
		return ticket.Ticket{}, err
	}

	slog.Info("ticket_event", "event", "assigned", "ticket_id", t.ID, "assignee_id", assigneeID)
	return t, nil
}
