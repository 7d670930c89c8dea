package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Category groups audit events by the aggregate they touch.
type Category string

const (
	CategoryAccount  Category = "account"
	CategoryDeal     Category = "deal"
	CategoryClass    Category = "class"
	CategoryStudio   Category = "studio"
	CategoryTicket   Category = "ticket"
	CategorySecurity Category = "security"
	CategorySystem   Category = "system"
)

// Action is what happened to the resource.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionCancel     Action = "cancel"
	ActionForce      Action = "force"
	ActionRoleChange Action = "role_change"
	ActionActivate   Action = "activate"
	ActionImport     Action = "import"
	ActionExport     Action = "export"
	ActionLogin      Action = "login"
)

// Severity is the importance of an event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Domain errors
var (
	ErrEmptyActor    = errors.New("audit event requires an actor")
	ErrEmptyCategory = errors.New("audit event requires a category")
	ErrEmptyAction   = errors.New("audit event requires an action")
)

// Event is one append-only audit record of an administrative mutation.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ActorID      string    `json:"actor_id"`
	ActorEmail   string    `json:"actor_email"`
	ActorRole    string    `json:"actor_role"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Description  string    `json:"description"`
	IPAddress    string    `json:"ip_address"`
	Metadata     string    `json:"metadata"`
}

// Actor identifies who performed an audited action.
type Actor struct {
	ID    string
	Email string
	Role  string
}

// NewEvent creates an info-level event stamped with now.
// PRE: actor.ID and action are non-empty
func NewEvent(actor Actor, category Category, action Action, now time.Time) Event {
	return Event{
		ID:         uuid.New().String(),
		Timestamp:  now,
		Category:   category,
		Action:     action,
		Severity:   SeverityInfo,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
	}
}

// Validate checks the required fields.
func (e Event) Validate() error {
	if e.ActorID == "" {
		return ErrEmptyActor
	}
	if e.Category == "" {
		return ErrEmptyCategory
	}
	if e.Action == "" {
		return ErrEmptyAction
	}
	return nil
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithResource sets the resource the event refers to.
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets a human readable summary.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithIP records the client address.
func (e Event) WithIP(ip string) Event {
	e.IPAddress = ip
	return e
}

// WithMetadata sets optional JSON metadata.
// PRE: metadata is valid JSON or empty
func (e Event) WithMetadata(metadata string) Event {
	e.Metadata = metadata
	return e
}
