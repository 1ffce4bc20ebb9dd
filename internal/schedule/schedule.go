package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	ErrInvalidDate     = errors.New("invalid date format")
	ErrInvalidTime     = errors.New("invalid time format")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidHours    = errors.New("invalid business hours")
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// BusinessHours describes the bookable grid of a day.
type BusinessHours struct {
	Open        string
	Close       string
	SlotMinutes int
	ClosedDays  []time.Weekday
}

func DefaultHours() BusinessHours {
	return BusinessHours{
		Open:        "09:00",
		Close:       "18:00",
		SlotMinutes: 60,
		ClosedDays:  []time.Weekday{time.Sunday},
	}
}

func (h BusinessHours) Validate() error {
	if h.SlotMinutes <= 0 {
		return ErrInvalidDuration
	}
	open, err := ParseClockToMinutes(h.Open)
	if err != nil {
		return ErrInvalidHours
	}
	closing, err := ParseClockToMinutes(h.Close)
	if err != nil || closing <= open {
		return ErrInvalidHours
	}
	return nil
}

func (h BusinessHours) closedOn(day time.Weekday) bool {
	for _, d := range h.ClosedDays {
		if d == day {
			return true
		}
	}
	return false
}

// IsValidClock reports whether value is a strict HH:MM 24h clock.
func IsValidClock(value string) bool {
	return clockPattern.MatchString(value)
}

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

func ParseDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	if !IsValidClock(timeStr) {
		return time.Time{}, ErrInvalidTime
	}
	if _, err := ParseDate(dateStr, loc); err != nil {
		return time.Time{}, err
	}

	parsed, err := time.ParseInLocation(DateLayout+" "+ClockLayout, dateStr+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return parsed, nil
}

func ParseClockToMinutes(timeStr string) (int, error) {
	if !IsValidClock(timeStr) {
		return 0, ErrInvalidTime
	}
	tm, err := time.Parse(ClockLayout, timeStr)
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

func IsDatePast(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	local := now.In(loc)
	startToday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return date.Before(startToday), nil
}

func IsToday(dateStr string, loc *time.Location, now time.Time) bool {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false
	}
	local := now.In(loc)
	return date.Year() == local.Year() && date.YearDay() == local.YearDay()
}

func IsSlotPast(dateStr, timeStr string, loc *time.Location, now time.Time) (bool, error) {
	slot, err := ParseDateTime(dateStr, timeStr, loc)
	if err != nil {
		return false, err
	}
	return !slot.After(now.In(loc)), nil
}

// Slots lists the grid times of a date; closed days yield an empty list.
func (h BusinessHours) Slots(dateStr string, loc *time.Location) ([]string, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if h.closedOn(date.Weekday()) {
		return []string{}, nil
	}

	startMin, _ := ParseClockToMinutes(h.Open)
	endMin, _ := ParseClockToMinutes(h.Close)
	slots := make([]string, 0, (endMin-startMin)/h.SlotMinutes)
	for cursor := startMin; cursor+h.SlotMinutes <= endMin; cursor += h.SlotMinutes {
		slots = append(slots, MinutesToClock(cursor))
	}
	return slots, nil
}

func FilterReserved(slots []string, reserved func(string) bool) []string {
	filtered := make([]string, 0, len(slots))
	for _, s := range slots {
		if !reserved(s) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func FilterPastSlots(dateStr string, slots []string, loc *time.Location, now time.Time) ([]string, error) {
	filtered := make([]string, 0, len(slots))
	for _, s := range slots {
		past, err := IsSlotPast(dateStr, s, loc, now)
		if err != nil {
			return nil, err
		}
		if !past {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}
