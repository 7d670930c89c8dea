package instructor

import (
	"errors"
	"strings"
	"time"

	"crm/internal/domain/money"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 120
)

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Tenure buckets, ordered from newest to most senior.
const (
	TenureUnder6m = "under_6m"
	Tenure6mTo1y  = "6m_1y"
	Tenure1yTo3y  = "1y_3y"
	Tenure3yPlus  = "3y_plus"
	TenureUnknown = "unknown"
)

// TenureBuckets lists every bucket in display order.
var TenureBuckets = []string{TenureUnder6m, Tenure6mTo1y, Tenure1yTo3y, Tenure3yPlus, TenureUnknown}

// Domain errors
var (
	ErrEmptyName       = errors.New("instructor name cannot be empty")
	ErrNameTooLong     = errors.New("instructor name cannot exceed 120 characters")
	ErrInvalidEmail    = errors.New("instructor email must be valid")
	ErrInvalidStatus   = errors.New("status must be one of: active, inactive")
	ErrAlreadyInactive = errors.New("instructor is already inactive")
	ErrNegativeSalary  = errors.New("salary cannot be negative")
)

// Instructor is a trainer who teaches classes for the franchise.
type Instructor struct {
	ID          string
	AccountID   string
	Name        string
	Email       string
	Phone       string
	City        string
	SalaryText  string
	SalaryCents int64
	HiredAt     time.Time
	Status      string
}

// Normalize canonicalises user-entered fields in place.
func (i *Instructor) Normalize() {
	i.Name = strings.TrimSpace(i.Name)
	i.Email = strings.ToLower(strings.TrimSpace(i.Email))
	i.Phone = strings.TrimSpace(i.Phone)
	i.City = strings.TrimSpace(i.City)
	i.SalaryText = strings.TrimSpace(i.SalaryText)
	if i.Status == "" {
		i.Status = StatusActive
	}
}

// ApplySalaryText parses SalaryText into SalaryCents. An empty text clears
// the salary.
// POST: SalaryCents reflects SalaryText, or an error is returned and
// SalaryCents is unchanged
func (i *Instructor) ApplySalaryText() error {
	if i.SalaryText == "" {
		i.SalaryCents = 0
		return nil
	}
	cents, err := money.ParseCents(i.SalaryText)
	if err != nil {
		return err
	}
	i.SalaryCents = cents
	return nil
}

// Validate checks if the Instructor has valid data.
// PRE: Normalize has been called
// POST: Returns nil if valid, error otherwise
func (i *Instructor) Validate() error {
	if i.Name == "" {
		return ErrEmptyName
	}
	if len(i.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if i.Email != "" && !strings.Contains(i.Email, "@") {
		return ErrInvalidEmail
	}
	if i.Status != StatusActive && i.Status != StatusInactive {
		return ErrInvalidStatus
	}
	if i.SalaryCents < 0 {
		return ErrNegativeSalary
	}
	return nil
}

// Deactivate marks the instructor inactive.
func (i *Instructor) Deactivate() error {
	if i.Status == StatusInactive {
		return ErrAlreadyInactive
	}
	i.Status = StatusInactive
	return nil
}

// IsActive reports whether the instructor is currently active.
func (i *Instructor) IsActive() bool {
	return i.Status == StatusActive
}

// Tenure returns the tenure bucket at now.
func (i *Instructor) Tenure(now time.Time) string {
	return TenureBucket(i.HiredAt, now)
}

// MatchesSearch performs a case-insensitive match against name, email and city.
func (i *Instructor) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(i.Name), term) ||
		strings.Contains(i.Email, term) ||
		strings.Contains(strings.ToLower(i.City), term)
}

// TenureBucket classifies the time between hiredAt and now.
// INVARIANT: a zero or future hiredAt yields TenureUnknown
func TenureBucket(hiredAt, now time.Time) string {
	if hiredAt.IsZero() || hiredAt.After(now) {
		return TenureUnknown
	}
	switch {
	case now.Before(hiredAt.AddDate(0, 6, 0)):
		return TenureUnder6m
	case now.Before(hiredAt.AddDate(1, 0, 0)):
		return Tenure6mTo1y
	case now.Before(hiredAt.AddDate(3, 0, 0)):
		return Tenure1yTo3y
	default:
		return Tenure3yPlus
	}
}

// Stats aggregates headcount and salary figures.
type Stats struct {
	Total              int
	Active             int
	ByTenure           map[string]int
	TotalSalaryCents   int64
	AverageSalaryCents int64
}

// ComputeStats buckets every instructor by tenure and sums the salaries of
// active instructors. Instructors without a salary are left out of the average.
func ComputeStats(list []Instructor, now time.Time) Stats {
	s := Stats{ByTenure: make(map[string]int, len(TenureBuckets))}
	for _, b := range TenureBuckets {
		s.ByTenure[b] = 0
	}
	var paid int64
	for idx := range list {
		in := &list[idx]
		s.Total++
		s.ByTenure[in.Tenure(now)]++
		if !in.IsActive() {
			continue
		}
		s.Active++
		if in.SalaryCents > 0 {
			s.TotalSalaryCents += in.SalaryCents
			paid++
		}
	}
	if paid > 0 {
		s.AverageSalaryCents = s.TotalSalaryCents / paid
	}
	return s
}
