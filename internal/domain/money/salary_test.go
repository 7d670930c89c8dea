package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm/internal/domain/money"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"R$ 3.500,00", 350000},
		{"r$3.500", 350000},
		{"3500", 350000},
		{"3,500.50", 350050},
		{"3.500,5", 350050},
		{"3500,75", 350075},
		{"3500.1", 350010},
		{"1.234.567", 123456700},
		{"1,234,567.89", 123456789},
		{"3.5k", 350000},
		{"4K", 400000},
		{"  R$ 12.000,00  ", 1200000},
		{"US$ 2,000", 200000},
		{"0", 0},
		{".5", 50},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := money.ParseCents(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCents_Errors(t *testing.T) {
	tests := []struct {
		in      string
		wantErr error
	}{
		{"", money.ErrEmptyAmount},
		{"R$ ", money.ErrEmptyAmount},
		{"-100", money.ErrNegativeAmount},
		{"abc", money.ErrInvalidAmount},
		{"12a4", money.ErrInvalidAmount},
		{".,", money.ErrInvalidAmount},
		{"k", money.ErrInvalidAmount},
		{"99999999999999999999", money.ErrAmountTooLarge},
		{"R$ 1.000.000.000.000.000.000,00", money.ErrAmountTooLarge},
		{"999999999999999999k", money.ErrAmountTooLarge},
		{"1.000.000.000.000,01", money.ErrAmountTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := money.ParseCents(tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseCents_Limit(t *testing.T) {
	got, err := money.ParseCents("R$ 1.000.000.000.000,00")
	assert.NoError(t, err)
	assert.Equal(t, money.MaxCents, got)
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 3.500,00", money.FormatBRL(350000))
	assert.Equal(t, "R$ 0,05", money.FormatBRL(5))
	assert.Equal(t, "R$ 1.234.567,89", money.FormatBRL(123456789))
	assert.Equal(t, "R$ 999,10", money.FormatBRL(99910))
	assert.Equal(t, "-R$ 12,00", money.FormatBRL(-1200))
}
