package models

import (
	"fmt"
	"strings"
)

// Weekday indices used across schedules and time slots.
const (
	Monday    = 1
	Tuesday   = 2
	Wednesday = 3
	Thursday  = 4
	Friday    = 5
)

// TimeSlot is a weekly recurring teaching window. Times are minutes since
// midnight so that overlap checks are plain integer comparisons.
type TimeSlot struct {
	DayOfWeek   int `json:"day_of_week"`
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

var dayIndexMap = map[int]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
}

var dayNameIndex = map[string]int{
	"MONDAY":    Monday,
	"TUESDAY":   Tuesday,
	"WEDNESDAY": Wednesday,
	"THURSDAY":  Thursday,
	"FRIDAY":    Friday,
}

// DayName returns the canonical uppercase name for a weekday index, empty
// when the index is outside Monday-Friday.
func DayName(day int) string {
	return dayIndexMap[day]
}

// WeekdayNames lists the teaching days in order, title-cased for display.
func WeekdayNames() []string {
	return []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
}

// DayIndex resolves a weekday name to its index, 0 when unknown.
func DayIndex(name string) int {
	return dayNameIndex[strings.ToUpper(strings.TrimSpace(name))]
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", raw)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// defaultPeriodStarts are the eight 50-minute teaching periods used when the
// caller supplies no catalogue: four before lunch, four after.
var defaultPeriodStarts = []int{
	8*60 + 30,
	9*60 + 30,
	10*60 + 30,
	11*60 + 30,
	13*60 + 30,
	14*60 + 30,
	15*60 + 30,
	16*60 + 30,
}

const defaultPeriodLength = 50

// DefaultTimeSlots returns the Monday-Friday catalogue of eight fixed
// 50-minute periods between 08:30 and 17:20.
func DefaultTimeSlots() []TimeSlot {
	slots := make([]TimeSlot, 0, 5*len(defaultPeriodStarts))
	for day := Monday; day <= Friday; day++ {
		for _, start := range defaultPeriodStarts {
			slots = append(slots, TimeSlot{
				DayOfWeek:   day,
				StartMinute: start,
				EndMinute:   start + defaultPeriodLength,
			})
		}
	}
	return slots
}

// Overlaps reports whether two half-open intervals [s1,e1) and [s2,e2)
// intersect. Back-to-back periods do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}
