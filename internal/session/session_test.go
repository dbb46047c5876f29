package session

import (
	"math"
	"testing"
)

func TestNormaliseCompound(t *testing.T) {
	tests := []struct {
		in   string
		want Compound
	}{
		{"SOFT", CompoundSoft},
		{"MEDIUM", CompoundMedium},
		{"HARD", CompoundHard},
		{"INTERMEDIATE", CompoundIntermediate},
		{"WET", CompoundWet},
		{"TEST-UNKNOWN", CompoundTestUnknown},
		{"", CompoundUnknown},
		{"soft", CompoundUnknown},
		{"SUPERSOFT", CompoundUnknown},
	}
	for _, tc := range tests {
		if got := NormaliseCompound(tc.in); got != tc.want {
			t.Errorf("NormaliseCompound(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLapPredicates(t *testing.T) {
	l := Lap{LapTime: 90.5, Position: 3}
	if !l.HasLapTime() || !l.HasPosition() {
		t.Error("expected valid lap time and position")
	}

	l = Lap{LapTime: math.NaN(), Position: 0}
	if l.HasLapTime() || l.HasPosition() {
		t.Error("expected absent lap time and position")
	}
}

func TestPickDriver(t *testing.T) {
	laps := []Lap{
		{Driver: "VER", LapNumber: 1},
		{Driver: "HAM", LapNumber: 1},
		{Driver: "VER", LapNumber: 2},
	}

	picked := PickDriver(laps, "VER")
	if len(picked) != 2 {
		t.Fatalf("expected 2 laps, got %d", len(picked))
	}
	if picked[0].LapNumber != 1 || picked[1].LapNumber != 2 {
		t.Errorf("input order not preserved: %+v", picked)
	}
	if got := PickDriver(laps, "ALO"); got != nil {
		t.Errorf("expected nil for unknown driver, got %v", got)
	}
}

func TestDrivers(t *testing.T) {
	laps := []Lap{
		{Driver: "HAM"},
		{Driver: "VER"},
		{Driver: "HAM"},
		{Driver: "ALO"},
	}

	got := Drivers(laps)
	want := []string{"ALO", "HAM", "VER"}
	if len(got) != len(want) {
		t.Fatalf("expected %d drivers, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("driver %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestTeamColor(t *testing.T) {
	if c, ok := TeamColor("Ferrari"); !ok || c != "#E8002D" {
		t.Errorf("Ferrari lookup failed: %q %v", c, ok)
	}
	if _, ok := TeamColor("Privateer Racing"); ok {
		t.Error("unknown team must not resolve")
	}
}

func TestSetTeamColor(t *testing.T) {
	SetTeamColor("Privateer Racing", "#123456")
	defer delete(teamColors, "Privateer Racing")

	if c, ok := TeamColor("Privateer Racing"); !ok || c != "#123456" {
		t.Errorf("override not applied: %q %v", c, ok)
	}
}

func TestCompoundColor(t *testing.T) {
	if c := CompoundColor(CompoundSoft); c != "#FF0000" {
		t.Errorf("unexpected soft colour %q", c)
	}
	if c := CompoundColor(Compound("C5")); c != "#808080" {
		t.Errorf("unrecognised compound should render grey, got %q", c)
	}
}

func TestFormatLapTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{89.123, "1:29.123"},
		{60.0, "1:00.000"},
		{125.4567, "2:05.457"},
		{math.NaN(), "N/A"},
	}
	for _, tc := range tests {
		if got := FormatLapTime(tc.in); got != tc.want {
			t.Errorf("FormatLapTime(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
