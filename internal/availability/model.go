// Package availability maintains a specialist's recurring weekly windows and
// derives concrete bookable slots from them.
package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/mindbridge/counselling-booking/internal/schedule"
)

// DayOfWeek enumerates the days a window can recur on.
type DayOfWeek string

const (
	Monday    DayOfWeek = "monday"
	Tuesday   DayOfWeek = "tuesday"
	Wednesday DayOfWeek = "wednesday"
	Thursday  DayOfWeek = "thursday"
	Friday    DayOfWeek = "friday"
	Saturday  DayOfWeek = "saturday"
	Sunday    DayOfWeek = "sunday"
)

var weekdayNames = map[time.Weekday]DayOfWeek{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// DayOfDate maps a calendar date to its DayOfWeek.
func DayOfDate(d time.Time) DayOfWeek {
	return weekdayNames[d.Weekday()]
}

// Valid reports whether d is one of the seven known days.
func (d DayOfWeek) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// Window is one recurring weekly availability interval. Start and End are
// wall-clock times; the invariant Start < End holds for every stored row.
type Window struct {
	ID           uuid.UUID
	SpecialistID uuid.UUID
	Day          DayOfWeek
	Start        schedule.TimeOfDay
	End          schedule.TimeOfDay
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Overlaps applies the half-open predicate to two windows on the same day.
func (w Window) Overlaps(other Window) bool {
	return w.Day == other.Day && schedule.MinutesOverlap(w.Start, w.End, other.Start, other.End)
}

// WeeklySchedule groups a specialist's windows per day, Monday first.
type WeeklySchedule struct {
	SpecialistID uuid.UUID
	Days         map[DayOfWeek][]Window
}

// WeekDays is the canonical ordering used for grouped output.
var WeekDays = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
