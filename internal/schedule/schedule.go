package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDate  = errors.New("invalid date format")
	ErrInvalidTime  = errors.New("invalid time format")
	ErrInvalidRange = errors.New("start time must be before end time")
)

// Slot is a half-open [Start, End) interval inside a single day, expressed
// as minutes from midnight.
type Slot struct {
	Start int
	End   int
}

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

func ParseDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse("15:04", timeStr); err != nil {
		return time.Time{}, ErrInvalidTime
	}
	if _, err := ParseDate(dateStr, loc); err != nil {
		return time.Time{}, err
	}

	parsed, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return parsed, nil
}

func ParseClockToMinutes(timeStr string) (int, error) {
	tm, err := time.Parse("15:04", timeStr)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

func MinutesToClock(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ParseSlot validates a start/end clock pair and enforces start < end.
// The range check runs before any caller-side write.
func ParseSlot(startStr, endStr string) (Slot, error) {
	start, err := ParseClockToMinutes(startStr)
	if err != nil {
		return Slot{}, err
	}
	end, err := ParseClockToMinutes(endStr)
	if err != nil {
		return Slot{}, err
	}
	if start >= end {
		return Slot{}, ErrInvalidRange
	}
	return Slot{Start: start, End: end}, nil
}

func (s Slot) String() string {
	return MinutesToClock(s.Start) + "-" + MinutesToClock(s.End)
}

func Overlaps(a, b Slot) bool {
	return a.Start < b.End && b.Start < a.End
}

func IsDatePast(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	startToday := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	return date.Before(startToday), nil
}

func IsSlotPast(dateStr, timeStr string, loc *time.Location, now time.Time) (bool, error) {
	slot, err := ParseDateTime(dateStr, timeStr, loc)
	if err != nil {
		return false, err
	}
	return !slot.After(now.In(loc)), nil
}
