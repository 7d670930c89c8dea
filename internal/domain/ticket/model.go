package ticket

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxSubjectLength = 200
	MaxBodyLength    = 10000
)

// Status constants
const (
	StatusOpen     = "open"
	StatusPending  = "pending"
	StatusResolved = "resolved"
	StatusClosed   = "closed"
)

// Priority constants
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidStatuses and ValidPriorities list the accepted values in display order.
var (
	ValidStatuses   = []string{StatusOpen, StatusPending, StatusResolved, StatusClosed}
	ValidPriorities = []string{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}
)

var transitions = map[string]map[string]bool{
	StatusOpen:     {StatusPending: true, StatusResolved: true, StatusClosed: true},
	StatusPending:  {StatusOpen: true, StatusResolved: true, StatusClosed: true},
	StatusResolved: {StatusOpen: true, StatusClosed: true},
	StatusClosed:   {},
}

// Domain errors
var (
	ErrEmptySubject      = errors.New("ticket subject cannot be empty")
	ErrSubjectTooLong    = errors.New("ticket subject cannot exceed 200 characters")
	ErrEmptyBody         = errors.New("message body cannot be empty")
	ErrBodyTooLong       = errors.New("message body cannot exceed 10000 characters")
	ErrInvalidStatus     = errors.New("status must be one of: open, pending, resolved, closed")
	ErrInvalidPriority   = errors.New("priority must be one of: low, normal, high, urgent")
	ErrEmptyRequester    = errors.New("ticket requester is required")
	ErrInvalidTransition = errors.New("ticket status transition is not allowed")
	ErrTicketClosed      = errors.New("ticket is closed")
	ErrNotParticipant    = errors.New("only the requester or an administrator may access this ticket")
)

// Ticket is a help-desk thread between a portal user and the administrators.
type Ticket struct {
	ID             string
	Subject        string
	Status         string
	Priority       string
	RequesterID    string
	RequesterEmail string
	RequesterRole  string
	AssigneeID     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastMessageAt  time.Time
}

// Message is one entry in a ticket thread. Body holds the raw markdown.
type Message struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorRole string
	Body       string
	CreatedAt  time.Time
}

// Normalize canonicalises user-entered fields in place.
func (t *Ticket) Normalize() {
	t.Subject = strings.TrimSpace(t.Subject)
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
}

// Validate checks if the Ticket has valid data.
// PRE: Normalize has been called
// POST: Returns nil if valid, error otherwise
func (t *Ticket) Validate() error {
	if t.Subject == "" {
		return ErrEmptySubject
	}
	if len(t.Subject) > MaxSubjectLength {
		return ErrSubjectTooLong
	}
	if t.RequesterID == "" {
		return ErrEmptyRequester
	}
	if !IsValidStatus(t.Status) {
		return ErrInvalidStatus
	}
	if !IsValidPriority(t.Priority) {
		return ErrInvalidPriority
	}
	return nil
}

// Validate checks if the Message has valid data.
func (m *Message) Validate() error {
	body := strings.TrimSpace(m.Body)
	if body == "" {
		return ErrEmptyBody
	}
	if len(body) > MaxBodyLength {
		return ErrBodyTooLong
	}
	return nil
}

// CanView reports whether the account may read the ticket.
func (t *Ticket) CanView(accountID string, isAdmin bool) bool {
	return isAdmin || (accountID != "" && accountID == t.RequesterID)
}

// ChangeStatus moves the ticket to next after checking the transition table.
// POST: Status is next and UpdatedAt is now, or an error is returned
func (t *Ticket) ChangeStatus(next string, now time.Time) error {
	if !IsValidStatus(next) {
		return ErrInvalidStatus
	}
	if !transitions[t.Status][next] {
		return ErrInvalidTransition
	}
	t.Status = next
	t.UpdatedAt = now
	return nil
}

// ApplyReply updates status and timestamps for a new message.
// An admin reply to an open ticket marks it pending on the requester; a
// requester reply to a pending or resolved ticket reopens it.
// PRE: the author may view the ticket
// POST: LastMessageAt and UpdatedAt are now
func (t *Ticket) ApplyReply(fromAdmin bool, now time.Time) error {
	if t.Status == StatusClosed {
		return ErrTicketClosed
	}
	switch {
	case fromAdmin && t.Status == StatusOpen:
		t.Status = StatusPending
	case !fromAdmin && (t.Status == StatusPending || t.Status == StatusResolved):
		t.Status = StatusOpen
	}
	t.UpdatedAt = now
	t.LastMessageAt = now
	return nil
}

// IsActive reports whether the ticket still needs attention.
func (t *Ticket) IsActive() bool {
	return t.Status == StatusOpen || t.Status == StatusPending
}

// MatchesSearch performs a case-insensitive match against subject and requester email.
func (t *Ticket) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Subject), term) ||
		strings.Contains(strings.ToLower(t.RequesterEmail), term)
}

// IsValidStatus reports whether status is a known ticket status.
func IsValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

// IsValidPriority reports whether priority is a known ticket priority.
func IsValidPriority(priority string) bool {
	for _, p := range ValidPriorities {
		if p == priority {
			return true
		}
	}
	return false
}
