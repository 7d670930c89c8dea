package deal

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength  = 120
	MaxNotesLength = 4000
)

// Pipeline stages.
const (
	StageLead        = "lead"
	StageContacted   = "contacted"
	StageNegotiation = "negotiation"
	StageWon         = "won"
	StageLost        = "lost"
)

// Stages lists every stage in pipeline order.
var Stages = []string{StageLead, StageContacted, StageNegotiation, StageWon, StageLost}

// transitions holds the allowed next stages for each stage.
var transitions = map[string]map[string]bool{
	StageLead:        {StageContacted: true, StageLost: true},
	StageContacted:   {StageNegotiation: true, StageLost: true},
	StageNegotiation: {StageWon: true, StageLost: true},
	StageLost:        {StageLead: true},
	StageWon:         {},
}

// Domain errors
var (
	ErrEmptyName         = errors.New("deal name cannot be empty")
	ErrNameTooLong       = errors.New("deal name cannot exceed 120 characters")
	ErrInvalidEmail      = errors.New("deal email must be valid")
	ErrInvalidStage      = errors.New("stage must be one of: lead, contacted, negotiation, won, lost")
	ErrNegativeValue     = errors.New("deal value cannot be negative")
	ErrNotesTooLong      = errors.New("deal notes cannot exceed 4000 characters")
	ErrMod2WithoutMod1   = errors.New("module 2 class code requires a module 1 class code")
	ErrSameClassCode     = errors.New("module 1 and module 2 class codes must differ")
	ErrWonWithoutClass   = errors.New("a won deal must be enrolled in a module 1 class")
	ErrInvalidTransition = errors.New("stage transition is not allowed")
	ErrStageUnchanged    = errors.New("deal is already in that stage")
)

// Deal is a CRM record for a student or lead, keyed by the class codes the
// person is (or will be) enrolled in.
type Deal struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	City          string
	Source        string
	Stage         string
	ValueCents    int64
	ClassCodeMod1 string
	ClassCodeMod2 string
	OwnerID       string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeCode trims and upper-cases a class code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Normalize canonicalises user-entered fields in place.
// POST: Name/Email/Phone trimmed, Email lower-cased, class codes upper-cased
func (d *Deal) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Phone = strings.TrimSpace(d.Phone)
	d.City = strings.TrimSpace(d.City)
	d.ClassCodeMod1 = NormalizeCode(d.ClassCodeMod1)
	d.ClassCodeMod2 = NormalizeCode(d.ClassCodeMod2)
	if d.Stage == "" {
		d.Stage = StageLead
	}
}

// Validate checks if the Deal has valid data.
// PRE: Normalize has been called
// POST: Returns error if validation fails, nil otherwise
func (d *Deal) Validate() error {
	if d.Name == "" {
		return ErrEmptyName
	}
	if len(d.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if d.Email != "" && !strings.Contains(d.Email, "@") {
		return ErrInvalidEmail
	}
	if !IsValidStage(d.Stage) {
		return ErrInvalidStage
	}
	if d.ValueCents < 0 {
		return ErrNegativeValue
	}
	if len(d.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	if d.ClassCodeMod2 != "" && d.ClassCodeMod1 == "" {
		return ErrMod2WithoutMod1
	}
	if d.ClassCodeMod1 != "" && d.ClassCodeMod1 == d.ClassCodeMod2 {
		return ErrSameClassCode
	}
	if d.Stage == StageWon && d.ClassCodeMod1 == "" {
		return ErrWonWithoutClass
	}
	return nil
}

// CanTransition reports whether the deal may move to stage next.
func (d *Deal) CanTransition(next string) bool {
	return transitions[d.Stage][next]
}

// MoveTo changes the deal stage after checking the pipeline rules.
// PRE: next is a valid stage
// POST: Stage is next and UpdatedAt is now, or an error is returned
func (d *Deal) MoveTo(next string, now time.Time) error {
	if !IsValidStage(next) {
		return ErrInvalidStage
	}
	if d.Stage == next {
		return ErrStageUnchanged
	}
	if !d.CanTransition(next) {
		return ErrInvalidTransition
	}
	if next == StageWon && d.ClassCodeMod1 == "" {
		return ErrWonWithoutClass
	}
	d.Stage = next
	d.UpdatedAt = now
	return nil
}

// IsOpen reports whether the deal is still in the active pipeline.
func (d *Deal) IsOpen() bool {
	return d.Stage != StageWon && d.Stage != StageLost
}

// HasClassCode reports whether the deal is keyed to the given class code in
// either module.
func (d *Deal) HasClassCode(code string) bool {
	code = NormalizeCode(code)
	if code == "" {
		return false
	}
	return d.ClassCodeMod1 == code || d.ClassCodeMod2 == code
}

// MatchesSearch performs a case-insensitive substring match of term against
// name, email and phone.
func (d *Deal) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(d.Name), term) ||
		strings.Contains(d.Email, term) ||
		strings.Contains(d.Phone, term)
}

// IsValidStage reports whether stage is a known pipeline stage.
func IsValidStage(stage string) bool {
	_, ok := transitions[stage]
	return ok
}
