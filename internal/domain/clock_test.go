package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("9:05")
	require.NoError(t, err)
	assert.Equal(t, Clock("09:05"), c)
	assert.Equal(t, 9*60+5, c.Minutes())

	_, err = ParseClock("25:00")
	assert.Error(t, err)
	_, err = ParseClock("noon")
	assert.Error(t, err)

	assert.Equal(t, -1, Clock("bad").Minutes())
}

func TestSlotOverlapsHalfOpen(t *testing.T) {
	s := func(start, end string) Slot {
		return Slot{Date: "2030-01-10", Start: MustClock(start), End: MustClock(end)}
	}

	assert.True(t, s("10:00", "11:00").Overlaps(s("10:30", "11:30")))
	assert.True(t, s("10:00", "11:00").Overlaps(s("09:00", "12:00")))
	assert.False(t, s("10:00", "11:00").Overlaps(s("11:00", "12:00")), "touching end is not an overlap")
	assert.False(t, s("10:00", "11:00").Overlaps(s("09:00", "10:00")), "touching start is not an overlap")

	other := s("10:00", "11:00")
	other.Date = "2030-01-11"
	assert.False(t, s("10:00", "11:00").Overlaps(other))
}

func TestSlotStartIn(t *testing.T) {
	s := Slot{Date: "2030-03-02", Start: "08:30", End: "10:00"}
	at, err := s.StartIn(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 3, 2, 8, 30, 0, 0, time.UTC), at)
	assert.Equal(t, 90*time.Minute, s.Duration())
}

func TestReservationStateTerminal(t *testing.T) {
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateApproved.Terminal())
	assert.True(t, StateRejected.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.True(t, StateFinalized.Terminal())
	assert.False(t, ReservationState("LOST").Valid())
}
