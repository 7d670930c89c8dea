package instructor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm/internal/domain/instructor"
	"crm/internal/domain/money"
)

var now = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func TestTenureBucket(t *testing.T) {
	tests := []struct {
		name    string
		hiredAt time.Time
		want    string
	}{
		{"no hire date", time.Time{}, instructor.TenureUnknown},
		{"future hire", now.AddDate(0, 0, 1), instructor.TenureUnknown},
		{"hired today", now, instructor.TenureUnder6m},
		{"five months", now.AddDate(0, -5, 0), instructor.TenureUnder6m},
		{"exactly six months", now.AddDate(0, -6, 0), instructor.Tenure6mTo1y},
		{"eleven months", now.AddDate(0, -11, 0), instructor.Tenure6mTo1y},
		{"exactly one year", now.AddDate(-1, 0, 0), instructor.Tenure1yTo3y},
		{"two and a half years", now.AddDate(-2, -6, 0), instructor.Tenure1yTo3y},
		{"exactly three years", now.AddDate(-3, 0, 0), instructor.Tenure3yPlus},
		{"ten years", now.AddDate(-10, 0, 0), instructor.Tenure3yPlus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, instructor.TenureBucket(tt.hiredAt, now))
		})
	}
}

func TestInstructorValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      instructor.Instructor
		wantErr error
	}{
		{"valid", instructor.Instructor{Name: "Ana", Status: instructor.StatusActive}, nil},
		{"empty name", instructor.Instructor{Status: instructor.StatusActive}, instructor.ErrEmptyName},
		{"bad email", instructor.Instructor{Name: "Ana", Email: "ana", Status: instructor.StatusActive}, instructor.ErrInvalidEmail},
		{"bad status", instructor.Instructor{Name: "Ana", Status: "retired"}, instructor.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.in.Validate())
		})
	}
}

func TestApplySalaryText(t *testing.T) {
	in := instructor.Instructor{SalaryText: "R$ 3.500,00"}
	require.NoError(t, in.ApplySalaryText())
	assert.Equal(t, int64(350000), in.SalaryCents)

	in.SalaryText = "abc"
	assert.ErrorIs(t, in.ApplySalaryText(), money.ErrInvalidAmount)
	assert.Equal(t, int64(350000), in.SalaryCents, "salary must be unchanged on error")

	in.SalaryText = ""
	require.NoError(t, in.ApplySalaryText())
	assert.Zero(t, in.SalaryCents)
}

func TestDeactivate(t *testing.T) {
	in := instructor.Instructor{Name: "Ana"}
	in.Normalize()
	require.True(t, in.IsActive())
	require.NoError(t, in.Deactivate())
	assert.False(t, in.IsActive())
	assert.Equal(t, instructor.ErrAlreadyInactive, in.Deactivate())
}

func TestComputeStats(t *testing.T) {
	list := []instructor.Instructor{
		{Name: "A", Status: instructor.StatusActive, SalaryCents: 300000, HiredAt: now.AddDate(0, -2, 0)},
		{Name: "B", Status: instructor.StatusActive, SalaryCents: 500000, HiredAt: now.AddDate(-4, 0, 0)},
		{Name: "C", Status: instructor.StatusActive, HiredAt: now.AddDate(-2, 0, 0)},
		{Name: "D", Status: instructor.StatusInactive, SalaryCents: 900000},
	}
	s := instructor.ComputeStats(list, now)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Active)
	assert.Equal(t, int64(800000), s.TotalSalaryCents)
	assert.Equal(t, int64(400000), s.AverageSalaryCents)
	assert.Equal(t, map[string]int{
		instructor.TenureUnder6m: 1,
		instructor.Tenure6mTo1y:  0,
		instructor.Tenure1yTo3y:  1,
		instructor.Tenure3yPlus:  1,
		instructor.TenureUnknown: 1,
	}, s.ByTenure)
}

func TestComputeStatsEmpty(t *testing.T) {
	s := instructor.ComputeStats(nil, now)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.AverageSalaryCents)
	assert.Len(t, s.ByTenure, len(instructor.TenureBuckets))
}
