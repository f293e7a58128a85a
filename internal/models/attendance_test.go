package models

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		out  time.Time
		want string
	}{
		{base.Add(8*time.Hour + 15*time.Minute), "8h 15m"},
		{base.Add(45 * time.Minute), "0h 45m"},
		{base.Add(24 * time.Hour), "24h 0m"},
		{base, "0h 0m"},
		// Reloj corrido hacia atrás: nunca duración negativa
		{base.Add(-time.Hour), "0h 0m"},
	}
	for _, tc := range cases {
		if got := FormatDuration(base, tc.out); got != tc.want {
			t.Errorf("FormatDuration(..., %v) = %q, want %q", tc.out, got, tc.want)
		}
	}
}

func TestActivityFromRecordOpen(t *testing.T) {
	in := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	record := AttendanceRecord{ID: 1, UserID: 2, ClockIn: in}

	if !record.Open() {
		t.Error("Expected record without clock-out to be open")
	}

	entry := ActivityFromRecord(record)
	if entry.Status != "Active" {
		t.Errorf("Expected status Active, got %q", entry.Status)
	}
	if entry.Duration != "" {
		t.Errorf("Expected empty duration for an open record, got %q", entry.Duration)
	}
}

func TestActivityFromRecordCompleted(t *testing.T) {
	in := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	out := in.Add(7*time.Hour + 30*time.Minute)
	record := AttendanceRecord{ID: 1, UserID: 2, ClockIn: in, ClockOut: &out}

	if record.Open() {
		t.Error("Expected record with clock-out to be closed")
	}

	entry := ActivityFromRecord(record)
	if entry.Status != "Completed" {
		t.Errorf("Expected status Completed, got %q", entry.Status)
	}
	if entry.Duration != "7h 30m" {
		t.Errorf("Expected duration '7h 30m', got %q", entry.Duration)
	}
}
