package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	minute, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 510, minute)

	minute, err = ParseClock(" 16:05 ")
	require.NoError(t, err)
	assert.Equal(t, 965, minute)

	_, err = ParseClock("25:00")
	require.Error(t, err)
	_, err = ParseClock("nonsense")
	require.Error(t, err)
}

func TestFormatClockRoundTrip(t *testing.T) {
	for _, raw := range []string{"00:00", "08:30", "13:05", "23:59"} {
		minute, err := ParseClock(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, FormatClock(minute))
	}
}

func TestOverlaps(t *testing.T) {
	// Half-open intervals: back-to-back periods do not collide.
	assert.False(t, Overlaps(510, 560, 560, 610))
	assert.False(t, Overlaps(560, 610, 510, 560))
	assert.True(t, Overlaps(510, 560, 550, 600))
	assert.True(t, Overlaps(510, 610, 530, 540))
	assert.True(t, Overlaps(530, 540, 510, 610))
}

func TestDefaultTimeSlots(t *testing.T) {
	slots := DefaultTimeSlots()
	require.Len(t, slots, 40)

	for _, slot := range slots {
		assert.GreaterOrEqual(t, slot.DayOfWeek, Monday)
		assert.LessOrEqual(t, slot.DayOfWeek, Friday)
		assert.Equal(t, 50, slot.EndMinute-slot.StartMinute)
		// Nothing overlaps the 12:20-13:30 lunch window.
		assert.False(t, Overlaps(slot.StartMinute, slot.EndMinute, 12*60+20, 13*60+30))
	}
}

func TestDayNames(t *testing.T) {
	assert.Equal(t, "MONDAY", DayName(Monday))
	assert.Equal(t, "FRIDAY", DayName(Friday))
	assert.Equal(t, "", DayName(6))

	assert.Equal(t, Wednesday, DayIndex("wednesday"))
	assert.Equal(t, 0, DayIndex("sunday"))
	assert.Len(t, WeekdayNames(), 5)
}
