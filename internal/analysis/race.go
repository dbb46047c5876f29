package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pitwall-data/laptime.report/internal/session"
)

// DefaultExcludeFirstLaps is the number of opening laps RacePace discards
// before computing representative pace.
const DefaultExcludeFirstLaps = 3

// PitStop is the measured stationary-plus-lane time for one completed stop.
type PitStop struct {
	Driver    string           `json:"driver"`
	LapNumber int              `json:"lap_number"`
	Compound  session.Compound `json:"compound"`
	TyreLife  int              `json:"tyre_life"`
	Duration  float64          `json:"duration"`
}

// PitStopDelta computes pit durations (pit out minus pit in, seconds) for
// laps that carry both timestamps. Laps with only one of the two are an
// in-progress or malformed stop and are excluded. Output preserves input
// order; empty input yields an empty result.
func PitStopDelta(laps []session.Lap) []PitStop {
	var out []PitStop
	for _, l := range laps {
		if math.IsNaN(l.PitInTime) || math.IsNaN(l.PitOutTime) {
			continue
		}
		out = append(out, PitStop{
			Driver:    l.Driver,
			LapNumber: l.LapNumber,
			Compound:  l.Compound,
			TyreLife:  l.TyreLife,
			Duration:  l.PitOutTime - l.PitInTime,
		})
	}
	return out
}

// CompoundPace aggregates representative race pace for one compound.
type CompoundPace struct {
	Compound   session.Compound `json:"compound"`
	LapCount   int              `json:"lap_count"`
	AvgLapTime float64          `json:"avg_lap_time"`
	StdDev     float64          `json:"std_dev"`
	FastestLap float64          `json:"fastest_lap"`
}

// RacePace computes per-compound pace after discarding opening laps and
// statistical outliers. The order of operations is deliberate and
// load-bearing: laps with LapNumber <= excludeFirstLaps are dropped first,
// the IQR outlier filter then runs once over the remaining lap-time series
// as a whole, and only after that are survivors grouped by compound.
// Filtering per compound group instead would change the numbers. StdDev is
// NaN for single-lap groups. Rows are ordered by compound name ascending.
func RacePace(laps []session.Lap, excludeFirstLaps int) []CompoundPace {
	var kept []session.Lap
	for _, l := range laps {
		if l.LapNumber > excludeFirstLaps {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	outliers := IdentifyOutliers(session.LapTimes(kept), DefaultOutlierThreshold)
	groups := make(map[session.Compound][]float64)
	for i, l := range kept {
		if outliers[i] || !l.HasLapTime() {
			continue
		}
		groups[l.Compound] = append(groups[l.Compound], l.LapTime)
	}
	if len(groups) == 0 {
		return nil
	}

	compounds := make([]session.Compound, 0, len(groups))
	for c := range groups {
		compounds = append(compounds, c)
	}
	sort.Slice(compounds, func(i, j int) bool { return compounds[i] < compounds[j] })

	rows := make([]CompoundPace, 0, len(compounds))
	for _, c := range compounds {
		times := groups[c]
		std := math.NaN()
		if len(times) >= 2 {
			std = stat.StdDev(times, nil)
		}
		rows = append(rows, CompoundPace{
			Compound:   c,
			LapCount:   len(times),
			AvgLapTime: stat.Mean(times, nil),
			StdDev:     std,
			FastestLap: floats.Min(times),
		})
	}
	return rows
}

// Overtake records a position gain between consecutive laps of one driver.
type Overtake struct {
	LapNumber       int `json:"lap_number"`
	FromPosition    int `json:"from_position"`
	ToPosition      int `json:"to_position"`
	PositionsGained int `json:"positions_gained"`
}

// Overtakes walks a single driver's lap-ordered position series and emits a
// transition for every numeric decrease in position (lower number = better).
// Unchanged or worsening positions emit nothing, and laps without a recorded
// position are skipped on both sides of a pair. The input order is
// significant; this function does not sort.
func Overtakes(laps []session.Lap) []Overtake {
	var out []Overtake
	for i := 1; i < len(laps); i++ {
		prev, cur := laps[i-1], laps[i]
		if !prev.HasPosition() || !cur.HasPosition() {
			continue
		}
		if prev.Position > cur.Position {
			out = append(out, Overtake{
				LapNumber:       cur.LapNumber,
				FromPosition:    prev.Position,
				ToPosition:      cur.Position,
				PositionsGained: prev.Position - cur.Position,
			})
		}
	}
	return out
}

// GapRow is one driver's leader-relative gap on one lap.
type GapRow struct {
	Driver      string  `json:"driver"`
	LapNumber   int     `json:"lap_number"`
	Position    int     `json:"position"`
	LapTime     float64 `json:"lap_time"`
	GapToLeader float64 `json:"gap_to_leader"`
}

// GapToLeader computes, for every distinct lap number, each driver's lap-time
// gap to whichever driver holds position 1 on that lap. Lap numbers without a
// position-1 record contribute nothing to the result; they are silently
// omitted, not an error. The leader's own gap is exactly zero. Drivers whose
// lap time is absent get a NaN gap within an otherwise populated lap. Lap
// numbers appear in order of first appearance and rows keep input order
// within a lap.
func GapToLeader(laps []session.Lap) []GapRow {
	byLap := make(map[int][]session.Lap)
	var lapOrder []int
	for _, l := range laps {
		if _, ok := byLap[l.LapNumber]; !ok {
			lapOrder = append(lapOrder, l.LapNumber)
		}
		byLap[l.LapNumber] = append(byLap[l.LapNumber], l)
	}

	var out []GapRow
	for _, lapNum := range lapOrder {
		group := byLap[lapNum]
		leaderTime := math.NaN()
		found := false
		for _, l := range group {
			if l.Position == 1 {
				leaderTime = l.LapTime
				found = true
				break
			}
		}
		if !found {
			continue
		}
		for _, l := range group {
			gap := l.LapTime - leaderTime
			if l.Position == 1 {
				gap = 0
			}
			out = append(out, GapRow{
				Driver:      l.Driver,
				LapNumber:   l.LapNumber,
				Position:    l.Position,
				LapTime:     l.LapTime,
				GapToLeader: gap,
			})
		}
	}
	return out
}
