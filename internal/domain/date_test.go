package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, time.June, 1), d)
	assert.Equal(t, "2025-06-01", d.String())

	_, err = ParseDate("06/01/2025")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDateRangeNightsAndDays(t *testing.T) {
	r, err := NewDateRange(NewDate(2025, time.May, 30), NewDate(2025, time.June, 2))
	require.NoError(t, err)

	assert.Equal(t, 3, r.Nights())
	days := r.Days()
	require.Len(t, days, 3)
	assert.Equal(t, "2025-05-30", days[0].String())
	assert.Equal(t, "2025-06-01", days[2].String())
	assert.True(t, r.Contains(NewDate(2025, time.June, 1)))
	assert.False(t, r.Contains(NewDate(2025, time.June, 2)))
}

func TestNewDateRangeRejectsEmptyOrInverted(t *testing.T) {
	d := NewDate(2025, time.June, 1)

	_, err := NewDateRange(d, d)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = NewDateRange(d, d.AddDays(-1))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDateRangeOverlaps(t *testing.T) {
	a := DateRange{Start: NewDate(2025, 6, 1), End: NewDate(2025, 6, 3)}
	b := DateRange{Start: NewDate(2025, 6, 3), End: NewDate(2025, 6, 5)}
	c := DateRange{Start: NewDate(2025, 6, 2), End: NewDate(2025, 6, 4)}

	assert.False(t, a.Overlaps(b), "checkout day is not a night")
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(b))
}

func TestDateISOWeekday(t *testing.T) {
	assert.Equal(t, 7, NewDate(2025, time.June, 1).ISOWeekday())
	assert.Equal(t, 1, NewDate(2025, time.June, 2).ISOWeekday())
	assert.Equal(t, 6, NewDate(2025, time.June, 7).ISOWeekday())
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2025-06-01"))
	assert.Equal(t, "2025-06-01", d.String())

	require.NoError(t, d.Scan([]byte("2025-06-02T00:00:00Z")))
	assert.Equal(t, "2025-06-02", d.String())

	require.NoError(t, d.Scan(time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-06-03", d.String())

	assert.Error(t, d.Scan(42))
}

func TestDateJSON(t *testing.T) {
	payload := struct {
		Day  Date  `json:"day"`
		Open *Date `json:"open"`
	}{Day: NewDate(2025, 6, 1)}

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2025-06-01","open":null}`, string(b))

	var back struct {
		Day Date `json:"day"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2025-12-31"}`), &back))
	assert.Equal(t, NewDate(2025, 12, 31), back.Day)
}

func TestDateIn(t *testing.T) {
	ktm, err := time.LoadLocation("Asia/Kathmandu")
	require.NoError(t, err)

	// 20:00 UTC is already the next day in Kathmandu (+05:45).
	instant := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-02", DateIn(instant, ktm).String())
	assert.Equal(t, "2025-06-01", DateIn(instant, nil).String())
}
