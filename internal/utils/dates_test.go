package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	hcm, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	t.Run("Valid date", func(t *testing.T) {
		d, err := ParseDate("2025-01-15", hcm)
		assert.NoError(t, err)
		assert.Equal(t, 2025, d.Year())
		assert.Equal(t, time.January, d.Month())
		assert.Equal(t, 15, d.Day())
		assert.Equal(t, 0, d.Hour())
		assert.Equal(t, hcm, d.Location())
	})

	t.Run("Invalid format", func(t *testing.T) {
		_, err := ParseDate("2025/01/15", hcm)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "expected yyyy-mm-dd")
	})

	t.Run("Invalid month", func(t *testing.T) {
		_, err := ParseDate("2025-13-15", hcm)
		assert.Error(t, err)
	})
}

func TestDateOf(t *testing.T) {
	hcm, _ := time.LoadLocation("Asia/Ho_Chi_Minh")
	// 20:00 UTC on the 14th is 03:00 on the 15th in Ho Chi Minh City.
	instant := time.Date(2025, 1, 14, 20, 0, 0, 0, time.UTC)
	d := DateOf(instant, hcm)
	assert.Equal(t, 15, d.Day())
	assert.Equal(t, 0, d.Hour())
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		expected int
	}{
		{"same day", "2025-01-15", "2025-01-15", 0},
		{"one day", "2025-01-15", "2025-01-16", 1},
		{"cross month", "2025-01-25", "2025-02-05", 11},
		{"leap february", "2024-02-28", "2024-03-01", 2},
		{"cross year", "2024-12-25", "2025-01-10", 16},
		{"reversed", "2025-01-16", "2025-01-15", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := ParseDate(tt.start, time.UTC)
			e, _ := ParseDate(tt.end, time.UTC)
			assert.Equal(t, tt.expected, DaysBetween(s, e))
		})
	}
}

func TestCalculateRentalCost(t *testing.T) {
	t.Run("Two days plus deposit", func(t *testing.T) {
		s, _ := ParseDate("2025-03-10", time.UTC)
		e, _ := ParseDate("2025-03-12", time.UTC)
		b, err := CalculateRentalCost(s, e, 200_000, 1_000_000)
		assert.NoError(t, err)
		assert.Equal(t, 2, b.Days)
		assert.Equal(t, int64(400_000), b.RentalCost)
		assert.Equal(t, int64(1_400_000), b.Total)
	})

	t.Run("Empty range", func(t *testing.T) {
		s, _ := ParseDate("2025-03-10", time.UTC)
		_, err := CalculateRentalCost(s, s, 200_000, 1_000_000)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "end date must be after start date")
	})

	t.Run("Negative price", func(t *testing.T) {
		s, _ := ParseDate("2025-03-10", time.UTC)
		e, _ := ParseDate("2025-03-11", time.UTC)
		_, err := CalculateRentalCost(s, e, -1, 0)
		assert.Error(t, err)
	})
}

func TestAsDate(t *testing.T) {
	hcm, _ := time.LoadLocation("Asia/Ho_Chi_Minh")
	fromDriver := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	d := AsDate(fromDriver, hcm)
	assert.Equal(t, 10, d.Day())
	assert.Equal(t, hcm, d.Location())
	assert.False(t, d.Equal(fromDriver))
}
