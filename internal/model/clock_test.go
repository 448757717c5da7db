package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	c, err := ParseClockTime("09:30")
	require.NoError(t, err)
	assert.Equal(t, NewClockTime(9, 30), c)

	c, err = ParseClockTime("17:00:00")
	require.NoError(t, err)
	assert.Equal(t, "17:00", c.String())

	_, err = ParseClockTime("25:00")
	assert.Error(t, err)
}

func TestClockTime_JSON(t *testing.T) {
	var w struct {
		Start ClockTime `json:"start"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"start":"08:15"}`), &w))
	assert.Equal(t, NewClockTime(8, 15), w.Start)

	out, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"08:15"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"start":815}`), &w))
}

func TestClockTime_Scan(t *testing.T) {
	var c ClockTime
	require.NoError(t, c.Scan([]byte("09:00:00")))
	assert.Equal(t, NewClockTime(9, 0), c)

	require.NoError(t, c.Scan("13:45:00.000000"))
	assert.Equal(t, NewClockTime(13, 45), c)

	require.NoError(t, c.Scan(time.Date(0, 1, 1, 7, 5, 0, 0, time.UTC)))
	assert.Equal(t, NewClockTime(7, 5), c)

	assert.Error(t, c.Scan(42))

	v, err := NewClockTime(9, 5).Value()
	require.NoError(t, err)
	assert.Equal(t, "09:05:00", v)
}

func TestClockTime_On(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)

	day := time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC) // already the 20th at UTC+2
	got := NewClockTime(9, 0).On(day, loc)

	assert.Equal(t, time.Date(2026, 10, 20, 9, 0, 0, 0, loc), got)
}

func TestClockTime_EndOfDay(t *testing.T) {
	c, err := ParseClockTime("24:00")
	require.NoError(t, err)
	assert.Equal(t, EndOfDay, c)
	assert.False(t, c.IsValid())
	assert.True(t, c.IsValidEnd())
	assert.Equal(t, "24:00", c.String())

	var scanned ClockTime
	require.NoError(t, scanned.Scan("24:00:00"))
	assert.Equal(t, EndOfDay, scanned)

	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), EndOfDay.On(day, time.UTC))

	w := AvailabilityWindow{
		DoctorID:  uuid.New(),
		DayOfWeek: Monday,
		StartTime: NewClockTime(22, 0),
		EndTime:   EndOfDay,
	}
	assert.NoError(t, w.Validate())

	w.StartTime = EndOfDay
	assert.Error(t, w.Validate())
}
