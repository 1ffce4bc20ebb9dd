package schedule

import (
	"testing"
	"time"
)

func mustLoadLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestSlotsWeekday(t *testing.T) {
	loc := mustLoadLoc(t)
	slots, err := DefaultHours().Slots("2025-03-11", loc)
	if err != nil {
		t.Fatalf("Slots error: %v", err)
	}
	if len(slots) != 9 {
		t.Fatalf("expected 9 slots, got %d", len(slots))
	}
	if slots[0] != "09:00" || slots[len(slots)-1] != "17:00" {
		t.Fatalf("unexpected boundary slots: %v", slots)
	}
}

func TestSlotsHalfHourGrid(t *testing.T) {
	loc := mustLoadLoc(t)
	hours := BusinessHours{Open: "08:00", Close: "10:00", SlotMinutes: 30}
	slots, err := hours.Slots("2025-03-11", loc)
	if err != nil {
		t.Fatalf("Slots error: %v", err)
	}
	want := []string{"08:00", "08:30", "09:00", "09:30"}
	if len(slots) != len(want) {
		t.Fatalf("expected %v, got %v", want, slots)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, slots)
		}
	}
}

func TestSlotsSundayClosed(t *testing.T) {
	loc := mustLoadLoc(t)
	slots, err := DefaultHours().Slots("2025-03-09", loc)
	if err != nil {
		t.Fatalf("Slots error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected 0 slots, got %d", len(slots))
	}
}

func TestSlotsInvalidHours(t *testing.T) {
	loc := mustLoadLoc(t)
	hours := BusinessHours{Open: "18:00", Close: "09:00", SlotMinutes: 60}
	if _, err := hours.Slots("2025-03-11", loc); err != ErrInvalidHours {
		t.Fatalf("expected ErrInvalidHours, got %v", err)
	}
}

func TestIsValidClock(t *testing.T) {
	for _, ok := range []string{"00:00", "09:30", "23:59"} {
		if !IsValidClock(ok) {
			t.Fatalf("expected %q to be valid", ok)
		}
	}
	for _, bad := range []string{"9:30", "24:00", "12:60", "12h", "", "12:00:00"} {
		if IsValidClock(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

func TestParseDateRejectsImpossibleDates(t *testing.T) {
	loc := mustLoadLoc(t)
	if _, err := ParseDate("2025-02-30", loc); err != ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := ParseDate("11/03/2025", loc); err != ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestIsDatePast(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2025, 3, 11, 10, 0, 0, 0, loc)
	past, err := IsDatePast("2025-03-10", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if !past {
		t.Fatalf("expected date to be past")
	}

	past, err = IsDatePast("2025-03-11", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if past {
		t.Fatalf("expected date to be not past")
	}
}

func TestFilterReserved(t *testing.T) {
	slots := []string{"09:00", "10:00", "11:00"}
	reserved := map[string]bool{"10:00": true}
	filtered := FilterReserved(slots, func(s string) bool { return reserved[s] })
	if len(filtered) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(filtered))
	}
	if filtered[1] != "11:00" {
		t.Fatalf("unexpected slots: %v", filtered)
	}
}

func TestIsSlotPast(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2025, 3, 11, 10, 0, 0, 0, loc)
	past, err := IsSlotPast("2025-03-11", "09:00", loc, now)
	if err != nil {
		t.Fatalf("IsSlotPast error: %v", err)
	}
	if !past {
		t.Fatalf("expected slot to be past")
	}
	past, err = IsSlotPast("2025-03-11", "10:30", loc, now)
	if err != nil {
		t.Fatalf("IsSlotPast error: %v", err)
	}
	if past {
		t.Fatalf("expected slot to be future")
	}
}

func TestFilterPastSlots(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2025, 3, 11, 10, 30, 0, 0, loc)
	filtered, err := FilterPastSlots("2025-03-11", []string{"09:00", "10:00", "11:00"}, loc, now)
	if err != nil {
		t.Fatalf("FilterPastSlots error: %v", err)
	}
	if len(filtered) != 1 || filtered[0] != "11:00" {
		t.Fatalf("unexpected slots: %v", filtered)
	}
}
