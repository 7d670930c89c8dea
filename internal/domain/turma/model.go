package turma

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxCourseLength = 120
	MaxCodeLength   = 40
)

// Status constants
const (
	StatusPlanned   = "planned"
	StatusOpen      = "open"
	StatusClosed    = "closed"
	StatusCancelled = "cancelled"
)

// Module identifiers used in rosters and schedules.
const (
	Mod1 = "mod1"
	Mod2 = "mod2"
)

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusPlanned, StatusOpen, StatusClosed, StatusCancelled}

// Domain errors
var (
	ErrEmptyCourse      = errors.New("course cannot be empty")
	ErrCourseTooLong    = errors.New("course cannot exceed 120 characters")
	ErrEmptyMod1Code    = errors.New("module 1 code cannot be empty")
	ErrEmptyMod1Date    = errors.New("module 1 date is required")
	ErrCodeTooLong      = errors.New("class code cannot exceed 40 characters")
	ErrMod2Incomplete   = errors.New("module 2 code and date must be set together")
	ErrMod2BeforeMod1   = errors.New("module 2 date must be after module 1 date")
	ErrSameCode         = errors.New("module 1 and module 2 codes must differ")
	ErrNegativeCapacity = errors.New("capacity cannot be negative")
	ErrInvalidStatus    = errors.New("status must be one of: planned, open, closed, cancelled")
	ErrDuplicateCode    = errors.New("class code is already used by another class")
	ErrAlreadyCancelled = errors.New("class is already cancelled")
)

// Turma is a scheduled course instance with up to two modules, each held on
// its own date under its own class code.
type Turma struct {
	ID           string
	Course       string
	City         string
	StudioID     string
	InstructorID string
	Mod1Code     string
	Mod1Date     time.Time
	Mod2Code     string
	Mod2Date     time.Time
	Capacity     int
	Status       string
	CreatedAt    time.Time
}

// Module is one dated session of a class.
type Module struct {
	TurmaID  string
	Course   string
	City     string
	StudioID string
	Module   string
	Code     string
	Date     time.Time
}

// NormalizeCode trims and upper-cases a class code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Normalize canonicalises user-entered fields in place.
func (t *Turma) Normalize() {
	t.Course = strings.TrimSpace(t.Course)
	t.City = strings.TrimSpace(t.City)
	t.Mod1Code = NormalizeCode(t.Mod1Code)
	t.Mod2Code = NormalizeCode(t.Mod2Code)
	if t.Status == "" {
		t.Status = StatusPlanned
	}
}

// Validate checks if the Turma has valid data.
// PRE: Normalize has been called
// POST: Returns nil if valid, error otherwise
func (t *Turma) Validate() error {
	if t.Course == "" {
		return ErrEmptyCourse
	}
	if len(t.Course) > MaxCourseLength {
		return ErrCourseTooLong
	}
	if t.Mod1Code == "" {
		return ErrEmptyMod1Code
	}
	if t.Mod1Date.IsZero() {
		return ErrEmptyMod1Date
	}
	if len(t.Mod1Code) > MaxCodeLength || len(t.Mod2Code) > MaxCodeLength {
		return ErrCodeTooLong
	}
	if (t.Mod2Code == "") != t.Mod2Date.IsZero() {
		return ErrMod2Incomplete
	}
	if t.HasMod2() {
		if !t.Mod2Date.After(t.Mod1Date) {
			return ErrMod2BeforeMod1
		}
		if t.Mod2Code == t.Mod1Code {
			return ErrSameCode
		}
	}
	if t.Capacity < 0 {
		return ErrNegativeCapacity
	}
	if !IsValidStatus(t.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// HasMod2 reports whether the class has a second module scheduled.
func (t *Turma) HasMod2() bool {
	return t.Mod2Code != ""
}

// Codes returns the class codes in module order.
func (t *Turma) Codes() []string {
	if t.HasMod2() {
		return []string{t.Mod1Code, t.Mod2Code}
	}
	return []string{t.Mod1Code}
}

// HasCode reports whether code belongs to either module.
func (t *Turma) HasCode(code string) bool {
	code = NormalizeCode(code)
	return code != "" && (code == t.Mod1Code || code == t.Mod2Code)
}

// Modules expands the class into its dated modules.
func (t *Turma) Modules() []Module {
	mods := []Module{t.module(Mod1, t.Mod1Code, t.Mod1Date)}
	if t.HasMod2() {
		mods = append(mods, t.module(Mod2, t.Mod2Code, t.Mod2Date))
	}
	return mods
}

func (t *Turma) module(name, code string, date time.Time) Module {
	return Module{
		TurmaID:  t.ID,
		Course:   t.Course,
		City:     t.City,
		StudioID: t.StudioID,
		Module:   name,
		Code:     code,
		Date:     date,
	}
}

// Cancel marks the class as cancelled.
// POST: Status is cancelled
func (t *Turma) Cancel() error {
	if t.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	t.Status = StatusCancelled
	return nil
}

// IsActive reports whether the class still runs.
func (t *Turma) IsActive() bool {
	return t.Status == StatusPlanned || t.Status == StatusOpen
}

// SeatsLeft returns the remaining seats given the enrolled count. A zero
// capacity means unlimited and yields -1.
func (t *Turma) SeatsLeft(enrolled int) int {
	if t.Capacity == 0 {
		return -1
	}
	if left := t.Capacity - enrolled; left > 0 {
		return left
	}
	return 0
}

// FillRate returns enrolled/capacity in [0,1], or 0 when capacity is unlimited.
func (t *Turma) FillRate(enrolled int) float64 {
	if t.Capacity == 0 {
		return 0
	}
	rate := float64(enrolled) / float64(t.Capacity)
	if rate > 1 {
		return 1
	}
	return rate
}

// MatchesSearch performs a case-insensitive match against course, city and codes.
func (t *Turma) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Course), term) ||
		strings.Contains(strings.ToLower(t.City), term) ||
		strings.Contains(strings.ToLower(t.Mod1Code), term) ||
		strings.Contains(strings.ToLower(t.Mod2Code), term)
}

// IsValidStatus reports whether status is a known class status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}
