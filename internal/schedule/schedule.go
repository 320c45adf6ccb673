// Package schedule holds the pure time math the availability and booking
// packages share: wall-clock times of day, half-open intervals, and slot
// generation. Nothing in here touches storage.
package schedule

import (
	"fmt"
	"time"
)

// SlotStride is the step between candidate slot starts.
const SlotStride = 15 * time.Minute

// Booking duration bounds in minutes.
const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 480
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// No timezone conversion is ever applied to it.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" (24h) into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || h*60+m > 24*60 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Minutes returns t as minutes since midnight.
func (t TimeOfDay) Minutes() int { return int(t) }

// Valid reports whether t falls within a single day.
func (t TimeOfDay) Valid() bool { return t >= 0 && t <= 24*60 }

// OnDate anchors t to the calendar date of d, keeping d's location.
func (t TimeOfDay) OnDate(d time.Time) time.Time {
	y, mo, day := d.Date()
	return time.Date(y, mo, day, int(t)/60, int(t)%60, 0, 0, d.Location())
}

// MinutesOverlap is the half-open overlap predicate on times of day:
// [a1,a2) and [b1,b2) overlap iff a1 < b2 && b1 < a2. Touching endpoints
// do not overlap.
func MinutesOverlap(a1, a2, b1, b2 TimeOfDay) bool {
	return a1 < b2 && b1 < a2
}

// Interval is an absolute half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps applies the half-open predicate to absolute intervals.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Slot is a concrete bookable interval derived from an availability window.
type Slot struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"-"`
}

// SlotsInWindow walks a window on a given date in SlotStride increments and
// returns every candidate [t, t+duration) that fits inside the window and
// overlaps none of the busy intervals. Results are in ascending start order.
func SlotsInWindow(date time.Time, winStart, winEnd TimeOfDay, duration time.Duration, busy []Interval) []Slot {
	var slots []Slot

	windowEnd := winEnd.OnDate(date)
	for cursor := winStart.OnDate(date); !cursor.Add(duration).After(windowEnd); cursor = cursor.Add(SlotStride) {
		candidate := Interval{Start: cursor, End: cursor.Add(duration)}

		conflicted := false
		for _, b := range busy {
			if candidate.Overlaps(b) {
				conflicted = true
				break
			}
		}
		if conflicted {
			continue
		}

		slots = append(slots, Slot{Start: candidate.Start, End: candidate.End, Duration: duration})
	}

	return slots
}

// DayBounds returns the half-open calendar-day range [midnight, next midnight)
// containing d, in d's location.
func DayBounds(d time.Time) (time.Time, time.Time) {
	y, mo, day := d.Date()
	start := time.Date(y, mo, day, 0, 0, 0, 0, d.Location())
	return start, start.AddDate(0, 0, 1)
}
