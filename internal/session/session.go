// Package session defines the normalised lap and telemetry records that the
// analysis and chart-data packages operate on. Records are value objects:
// once loaded from a session source they are never mutated, and every derived
// structure is freshly allocated by the consumer.
package session

import (
	"math"
	"sort"
)

// Compound is a tyre rubber formulation category.
type Compound string

const (
	CompoundSoft         Compound = "SOFT"
	CompoundMedium       Compound = "MEDIUM"
	CompoundHard         Compound = "HARD"
	CompoundIntermediate Compound = "INTERMEDIATE"
	CompoundWet          Compound = "WET"
	CompoundUnknown      Compound = "UNKNOWN"
	CompoundTestUnknown  Compound = "TEST-UNKNOWN"
)

// ValidCompounds contains all recognised compound values.
var ValidCompounds = []Compound{
	CompoundSoft, CompoundMedium, CompoundHard,
	CompoundIntermediate, CompoundWet,
	CompoundUnknown, CompoundTestUnknown,
}

// NormaliseCompound maps a raw compound string onto a known Compound value.
// Empty or unrecognised input normalises to UNKNOWN.
func NormaliseCompound(raw string) Compound {
	for _, c := range ValidCompounds {
		if raw == string(c) {
			return c
		}
	}
	return CompoundUnknown
}

// Lap is one lap by one driver in one session. Timing fields are seconds;
// NaN means the value is absent (invalid, deleted or in-progress). Position
// zero means no position was recorded for the lap.
type Lap struct {
	Driver    string   `json:"driver"`
	Team      string   `json:"team"`
	LapNumber int      `json:"lap_number"`
	LapTime   float64  `json:"lap_time"`
	Position  int      `json:"position"`
	Compound  Compound `json:"compound"`
	TyreLife  int      `json:"tyre_life"`
	Sector1   float64  `json:"sector1"`
	Sector2   float64  `json:"sector2"`
	Sector3   float64  `json:"sector3"`
	// PitInTime/PitOutTime are session-relative timestamps in seconds.
	// PitInTime present without PitOutTime signals a still-open stop.
	PitInTime  float64 `json:"pit_in_time"`
	PitOutTime float64 `json:"pit_out_time"`
}

// HasLapTime reports whether the lap carries a valid lap time. Laps without
// one are excluded from pace statistics.
func (l Lap) HasLapTime() bool { return !math.IsNaN(l.LapTime) }

// HasPosition reports whether a position was recorded for the lap.
func (l Lap) HasPosition() bool { return l.Position >= 1 }

// Sectors returns the lap's sector times indexed 1..3.
func (l Lap) Sectors() [3]float64 { return [3]float64{l.Sector1, l.Sector2, l.Sector3} }

// TelemetrySample is one distance-indexed sample within a lap. Samples within
// a lap are ordered by Distance; cross-driver comparison requires a
// nearest-distance join, not direct indexing.
type TelemetrySample struct {
	Distance float64 `json:"distance"` // metres along the lap
	Speed    float64 `json:"speed"`    // km/h
	Throttle float64 `json:"throttle"` // 0-100
	Brake    float64 `json:"brake"`    // 0-100
	Gear     int     `json:"gear"`     // 0-8
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Stint is a maximal run of consecutive laps by one driver on one compound.
// Derived from Lap records by detecting compound-change boundaries; never
// persisted.
type Stint struct {
	Driver   string   `json:"driver"`
	Compound Compound `json:"compound"`
	StartLap int      `json:"start_lap"`
	EndLap   int      `json:"end_lap"`
}

// PickDriver returns the laps belonging to one driver, preserving input order.
func PickDriver(laps []Lap, driver string) []Lap {
	var out []Lap
	for _, l := range laps {
		if l.Driver == driver {
			out = append(out, l)
		}
	}
	return out
}

// Drivers returns the distinct driver codes present in laps, sorted.
func Drivers(laps []Lap) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range laps {
		if !seen[l.Driver] {
			seen[l.Driver] = true
			out = append(out, l.Driver)
		}
	}
	sort.Strings(out)
	return out
}

// LapTimes extracts the lap-time column, including NaN entries, preserving
// input order.
func LapTimes(laps []Lap) []float64 {
	times := make([]float64, len(laps))
	for i, l := range laps {
		times[i] = l.LapTime
	}
	return times
}
