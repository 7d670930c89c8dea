package studio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm/internal/domain/studio"
)

func TestItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    studio.Item
		wantErr error
	}{
		{"valid", studio.Item{SKU: "MAT-01", Name: "Mat", Quantity: 3, MinQuantity: 1}, nil},
		{"no sku", studio.Item{Name: "Mat"}, studio.ErrEmptySKU},
		{"no name", studio.Item{SKU: "MAT-01"}, studio.ErrEmptyItemName},
		{"negative qty", studio.Item{SKU: "M", Name: "Mat", Quantity: -1}, studio.ErrNegativeQuantity},
		{"negative min", studio.Item{SKU: "M", Name: "Mat", MinQuantity: -1}, studio.ErrNegativeMinimum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.item.Validate())
		})
	}
}

func TestItemAdjust(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	it := studio.Item{Quantity: 5, MinQuantity: 2}

	require.NoError(t, it.Adjust(-3, now))
	assert.Equal(t, 2, it.Quantity)
	assert.True(t, it.IsLow(), "quantity equal to minimum is low")
	assert.Equal(t, now, it.UpdatedAt)

	assert.Equal(t, studio.ErrInsufficientStock, it.Adjust(-3, now.Add(time.Hour)))
	assert.Equal(t, 2, it.Quantity)
	assert.Equal(t, now, it.UpdatedAt)

	require.NoError(t, it.Adjust(10, now))
	assert.False(t, it.IsLow())
}

func TestLowStock(t *testing.T) {
	items := []studio.Item{
		{SKU: "A", Quantity: 0, MinQuantity: 0},
		{SKU: "B", Quantity: 4, MinQuantity: 2},
		{SKU: "C", Quantity: 1, MinQuantity: 3},
	}
	low := studio.LowStock(items)
	require.Len(t, low, 2)
	assert.Equal(t, "A", low[0].SKU)
	assert.Equal(t, "C", low[1].SKU)
}

func TestItemNormalize(t *testing.T) {
	it := studio.Item{SKU: " mat-01 ", Name: " Yoga mat "}
	it.Normalize()
	assert.Equal(t, "MAT-01", it.SKU)
	assert.Equal(t, "Yoga mat", it.Name)
}
