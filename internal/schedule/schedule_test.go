package schedule

import (
	"errors"
	"testing"
	"time"
)

func mustLoadLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestParseSlot(t *testing.T) {
	slot, err := ParseSlot("09:00", "09:30")
	if err != nil {
		t.Fatalf("ParseSlot error: %v", err)
	}
	if slot.Start != 540 || slot.End != 570 {
		t.Fatalf("unexpected slot: %+v", slot)
	}
	if slot.String() != "09:00-09:30" {
		t.Fatalf("unexpected string: %s", slot.String())
	}
}

func TestParseSlotRejectsReversedRange(t *testing.T) {
	if _, err := ParseSlot("10:00", "09:00"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := ParseSlot("10:00", "10:00"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for zero-length slot, got %v", err)
	}
}

func TestParseSlotRejectsBadClock(t *testing.T) {
	if _, err := ParseSlot("25:00", "26:00"); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	a := Slot{Start: 540, End: 600}
	b := Slot{Start: 570, End: 630}
	c := Slot{Start: 600, End: 660}
	if !Overlaps(a, b) {
		t.Fatalf("expected overlap between %+v and %+v", a, b)
	}
	if Overlaps(a, c) {
		t.Fatalf("adjacent slots must not overlap")
	}
}

func TestIsDatePast(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 2, 4, 10, 0, 0, 0, loc)

	past, err := IsDatePast("2026-02-03", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if !past {
		t.Fatalf("expected date to be past")
	}

	past, err = IsDatePast("2026-02-04", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if past {
		t.Fatalf("expected date to be not past")
	}
}

func TestIsSlotPast(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 2, 4, 10, 0, 0, 0, loc)

	past, err := IsSlotPast("2026-02-04", "09:00", loc, now)
	if err != nil {
		t.Fatalf("IsSlotPast error: %v", err)
	}
	if !past {
		t.Fatalf("expected slot to be past")
	}

	past, err = IsSlotPast("2026-02-04", "10:30", loc, now)
	if err != nil {
		t.Fatalf("IsSlotPast error: %v", err)
	}
	if past {
		t.Fatalf("expected slot to be future")
	}
}
