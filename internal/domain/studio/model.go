package studio

import (
	"errors"
	"sort"
	"strings"
	"time"

	"crm/internal/domain/geo"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength    = 120
	MaxAddressLength = 300
	MaxRadiusKm      = 500
)

// Status constants
const (
	StatusProspect  = "prospect"
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusProspect, StatusActive, StatusSuspended}

// Domain errors
var (
	ErrEmptyName        = errors.New("studio name cannot be empty")
	ErrNameTooLong      = errors.New("studio name cannot exceed 120 characters")
	ErrAddressTooLong   = errors.New("studio address cannot exceed 300 characters")
	ErrInvalidStatus    = errors.New("status must be one of: prospect, active, suspended")
	ErrInvalidRadius    = errors.New("radius must be between 0 and 500 km")
	ErrNegativeSeats    = errors.New("seats cannot be negative")
	ErrRadiusConflict   = errors.New("studio overlaps the exclusive radius of another active studio")
	ErrAlreadyActive    = errors.New("studio is already active")
	ErrAlreadySuspended = errors.New("studio is already suspended")
	ErrNotOwner         = errors.New("studio belongs to another partner")
)

// Studio is an affiliated physical location that hosts classes and keeps
// its own inventory.
type Studio struct {
	ID               string
	Name             string
	PartnerAccountID string
	City             string
	Address          string
	Latitude         float64
	Longitude        float64
	RadiusKm         float64
	Status           string
	Seats            int
	CreatedAt        time.Time
}

// Conflict describes another studio whose exclusive radius overlaps.
type Conflict struct {
	StudioID   string  `json:"studio_id"`
	Name       string  `json:"name"`
	City       string  `json:"city"`
	DistanceKm float64 `json:"distance_km"`
	RadiusKm   float64 `json:"radius_km"`
}

// Normalize canonicalises user-entered fields in place.
func (s *Studio) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.City = strings.TrimSpace(s.City)
	s.Address = strings.TrimSpace(s.Address)
	if s.Status == "" {
		s.Status = StatusProspect
	}
}

// Validate checks if the Studio has valid data.
// PRE: Normalize has been called
// POST: Returns nil if valid, error otherwise
func (s *Studio) Validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	if len(s.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if len(s.Address) > MaxAddressLength {
		return ErrAddressTooLong
	}
	if err := s.Point().Validate(); err != nil {
		return err
	}
	if s.RadiusKm < 0 || s.RadiusKm > MaxRadiusKm {
		return ErrInvalidRadius
	}
	if s.Seats < 0 {
		return ErrNegativeSeats
	}
	if !IsValidStatus(s.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// Point returns the studio coordinates.
func (s *Studio) Point() geo.Point {
	return geo.Point{Lat: s.Latitude, Lng: s.Longitude}
}

// IsActive reports whether the studio is currently active.
func (s *Studio) IsActive() bool {
	return s.Status == StatusActive
}

// OwnedBy reports whether the partner account owns the studio.
func (s *Studio) OwnedBy(accountID string) bool {
	return accountID != "" && s.PartnerAccountID == accountID
}

// Activate moves the studio to active.
func (s *Studio) Activate() error {
	if s.Status == StatusActive {
		return ErrAlreadyActive
	}
	s.Status = StatusActive
	return nil
}

// Suspend moves the studio to suspended.
func (s *Studio) Suspend() error {
	if s.Status == StatusSuspended {
		return ErrAlreadySuspended
	}
	s.Status = StatusSuspended
	return nil
}

// MatchesSearch performs a case-insensitive match against name, city and address.
func (s *Studio) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Name), term) ||
		strings.Contains(strings.ToLower(s.City), term) ||
		strings.Contains(strings.ToLower(s.Address), term)
}

// FindConflicts returns the active studios in others whose exclusive radius
// overlaps candidate, nearest first. Two studios conflict when their distance
// is below the larger of the two radii.
// INVARIANT: candidate itself (same ID) and non-active studios are ignored
func FindConflicts(candidate Studio, others []Studio) []Conflict {
	var out []Conflict
	origin := candidate.Point()
	for _, o := range others {
		if o.ID == candidate.ID || !o.IsActive() {
			continue
		}
		radius := max(candidate.RadiusKm, o.RadiusKm)
		d := geo.DistanceKm(origin, o.Point())
		if d < radius {
			out = append(out, Conflict{
				StudioID:   o.ID,
				Name:       o.Name,
				City:       o.City,
				DistanceKm: d,
				RadiusKm:   o.RadiusKm,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

// IsValidStatus reports whether status is a known studio status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}
