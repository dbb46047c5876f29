// Package chartdata reshapes lap and telemetry collections into named,
// ordered series ready for any plotting front end. This file separates data
// transformation from chart rendering for improved testability: nothing here
// aggregates or infers, it filters, pairs and labels.
//
// All outputs are immutable snapshots freshly computed from the full input
// collection on every call; there is no caching and no incremental update.
package chartdata

import (
	"math"

	"github.com/pitwall-data/laptime.report/internal/session"
)

// LapPoint is a single (lap number, seconds) pair in a driver series.
type LapPoint struct {
	LapNumber int     `json:"lap_number"`
	Seconds   float64 `json:"seconds"`
}

// DriverSeries is one driver's ordered series of lap points. Color is the
// team colour when resolvable from the static table and empty otherwise, in
// which case the renderer falls back to its automatic palette.
type DriverSeries struct {
	Driver string     `json:"driver"`
	Color  string     `json:"color,omitempty"`
	Points []LapPoint `json:"points"`
}

// LapTimeChartData holds prepared per-driver lap-time series.
type LapTimeChartData struct {
	Series    []DriverSeries `json:"series"`
	NumPoints int            `json:"num_points"`
}

// PrepareLapTimeChartData builds one lap-time series per requested driver,
// keeping only laps with a present lap time. Drivers with no valid laps are
// omitted from the output rather than contributing an empty series.
func PrepareLapTimeChartData(laps []session.Lap, drivers []string) *LapTimeChartData {
	out := &LapTimeChartData{Series: []DriverSeries{}}
	for _, driver := range drivers {
		driverLaps := session.PickDriver(laps, driver)
		points := make([]LapPoint, 0, len(driverLaps))
		color := ""
		for _, l := range driverLaps {
			if color == "" {
				if c, ok := session.TeamColor(l.Team); ok {
					color = c
				}
			}
			if !l.HasLapTime() {
				continue
			}
			points = append(points, LapPoint{LapNumber: l.LapNumber, Seconds: l.LapTime})
		}
		if len(points) == 0 {
			continue
		}
		out.Series = append(out.Series, DriverSeries{Driver: driver, Color: color, Points: points})
		out.NumPoints += len(points)
	}
	return out
}

// PositionPoint is a single (lap number, position) pair.
type PositionPoint struct {
	LapNumber int `json:"lap_number"`
	Position  int `json:"position"`
}

// PositionSeries is one driver's ordered position trace.
type PositionSeries struct {
	Driver string          `json:"driver"`
	Color  string          `json:"color,omitempty"`
	Points []PositionPoint `json:"points"`
}

// PositionChartData holds prepared position traces. InvertYAxis flags the
// presentation convention that position 1 is drawn at the top; the renderer
// inverts its axis, the point data itself stays semantically ascending.
type PositionChartData struct {
	Series      []PositionSeries `json:"series"`
	InvertYAxis bool             `json:"invert_y_axis"`
}

// PreparePositionChartData builds per-driver position traces from laps with a
// recorded position. When drivers is nil, every driver present in the input
// gets a series.
func PreparePositionChartData(laps []session.Lap, drivers []string) *PositionChartData {
	if drivers == nil {
		drivers = session.Drivers(laps)
	}
	out := &PositionChartData{Series: []PositionSeries{}, InvertYAxis: true}
	for _, driver := range drivers {
		driverLaps := session.PickDriver(laps, driver)
		points := make([]PositionPoint, 0, len(driverLaps))
		color := ""
		for _, l := range driverLaps {
			if color == "" {
				if c, ok := session.TeamColor(l.Team); ok {
					color = c
				}
			}
			if !l.HasPosition() {
				continue
			}
			points = append(points, PositionPoint{LapNumber: l.LapNumber, Position: l.Position})
		}
		if len(points) == 0 {
			continue
		}
		out.Series = append(out.Series, PositionSeries{Driver: driver, Color: color, Points: points})
	}
	return out
}

// SectorBest is the minimum valid time one driver set in one sector.
type SectorBest struct {
	Sector  int     `json:"sector"`
	Seconds float64 `json:"seconds"`
}

// DriverSectorBests groups a driver's best sector times.
type DriverSectorBests struct {
	Driver string       `json:"driver"`
	Bests  []SectorBest `json:"bests"`
}

// PrepareSectorBests takes, per driver and per sector, the minimum valid
// sector time. Sectors with no valid data for a driver are omitted, not
// zero-filled; drivers with no sector data at all are omitted entirely.
func PrepareSectorBests(laps []session.Lap, drivers []string) []DriverSectorBests {
	var out []DriverSectorBests
	for _, driver := range drivers {
		driverLaps := session.PickDriver(laps, driver)
		var bests []SectorBest
		for sector := 0; sector < 3; sector++ {
			best := math.NaN()
			for _, l := range driverLaps {
				v := l.Sectors()[sector]
				if math.IsNaN(v) {
					continue
				}
				if math.IsNaN(best) || v < best {
					best = v
				}
			}
			if math.IsNaN(best) {
				continue
			}
			bests = append(bests, SectorBest{Sector: sector + 1, Seconds: best})
		}
		if len(bests) == 0 {
			continue
		}
		out = append(out, DriverSectorBests{Driver: driver, Bests: bests})
	}
	return out
}
