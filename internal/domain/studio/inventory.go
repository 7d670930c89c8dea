package studio

import (
	"errors"
	"strings"
	"time"
)

// Inventory errors
var (
	ErrEmptySKU          = errors.New("sku cannot be empty")
	ErrEmptyItemName     = errors.New("item name cannot be empty")
	ErrNegativeQuantity  = errors.New("quantity cannot be negative")
	ErrNegativeMinimum   = errors.New("minimum quantity cannot be negative")
	ErrInsufficientStock = errors.New("adjustment would take quantity below zero")
	ErrDuplicateSKU      = errors.New("sku already exists for this studio")
)

// Item is one stock line kept at a studio.
type Item struct {
	ID          string
	StudioID    string
	SKU         string
	Name        string
	Quantity    int
	MinQuantity int
	UpdatedAt   time.Time
}

// Normalize canonicalises user-entered fields in place.
func (i *Item) Normalize() {
	i.SKU = strings.ToUpper(strings.TrimSpace(i.SKU))
	i.Name = strings.TrimSpace(i.Name)
}

// Validate checks if the Item has valid data.
// PRE: Normalize has been called
func (i *Item) Validate() error {
	if i.SKU == "" {
		return ErrEmptySKU
	}
	if i.Name == "" {
		return ErrEmptyItemName
	}
	if i.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if i.MinQuantity < 0 {
		return ErrNegativeMinimum
	}
	return nil
}

// IsLow reports whether stock is at or below the reorder point.
func (i *Item) IsLow() bool {
	return i.Quantity <= i.MinQuantity
}

// Adjust applies delta to Quantity.
// POST: Quantity >= 0; on ErrInsufficientStock nothing changes
func (i *Item) Adjust(delta int, now time.Time) error {
	next := i.Quantity + delta
	if next < 0 {
		return ErrInsufficientStock
	}
	i.Quantity = next
	i.UpdatedAt = now
	return nil
}

// LowStock filters items down to those at or below their minimum.
func LowStock(items []Item) []Item {
	var out []Item
	for _, it := range items {
		if it.IsLow() {
			out = append(out, it)
		}
	}
	return out
}
