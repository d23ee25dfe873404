package ai

import (
	"errors"
	"testing"
)

var options = []SpecialtyOption{
	{ID: "1", Name: "Cardiology"},
	{ID: "2", Name: "Dermatology"},
	{ID: "3", Name: "General Medicine"},
}

func TestMatchSuggestionVerbatimName(t *testing.T) {
	got, err := matchSuggestion("Dermatology\nItchy rash points at a skin condition.", options)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SpecialtyID != "2" || got.SpecialtyName != "Dermatology" {
		t.Fatalf("unexpected match: %+v", got)
	}
	if got.Reason == "" {
		t.Fatal("reason line should be kept")
	}
}

func TestMatchSuggestionCaseAndDecoration(t *testing.T) {
	got, err := matchSuggestion("**cardiology**\nChest pain on exertion.", options)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SpecialtyID != "1" {
		t.Fatalf("unexpected match: %+v", got)
	}
}

func TestMatchSuggestionInventedSpecialtyRejected(t *testing.T) {
	_, err := matchSuggestion("Astrology\nThe stars say so.", options)
	if !errors.Is(err, ErrNoSuggestion) {
		t.Fatalf("expected ErrNoSuggestion, got %v", err)
	}
}

func TestMatchSuggestionMissingReasonLine(t *testing.T) {
	got, err := matchSuggestion("General Medicine", options)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Reason != "" {
		t.Fatalf("no reason expected, got %q", got.Reason)
	}
}
