// Package analysis computes pace, tyre, telemetry and position metrics from
// session lap and telemetry records.
//
// Every function here follows the same best-effort contract: missing or empty
// input yields an empty result and a statistically undersized input yields
// NaN-valued metric fields. Nothing panics and nothing returns an error; the
// caller distinguishes "not available" (empty) from "N/A" (NaN field) and
// renders accordingly.
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pitwall-data/laptime.report/internal/session"
)

// DefaultOutlierThreshold is the IQR multiplier used when callers do not
// supply their own.
const DefaultOutlierThreshold = 1.5

// PaceMetrics summarises the variability of a lap-time collection. All fields
// are NaN when fewer than two valid samples exist.
type PaceMetrics struct {
	Mean                   float64 `json:"mean"`
	Std                    float64 `json:"std"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
	Fastest                float64 `json:"fastest"`
	Slowest                float64 `json:"slowest"`
}

// IsNaN reports whether the bundle is the undefined sentinel.
func (p PaceMetrics) IsNaN() bool { return math.IsNaN(p.Mean) }

// PaceConsistency computes consistency metrics for a series of lap times in
// seconds. NaN entries are dropped first; with fewer than two valid samples
// every field is NaN. Std is the sample standard deviation (ddof=1) and the
// coefficient of variation is std/mean expressed as a percentage.
func PaceConsistency(lapTimes []float64) PaceMetrics {
	valid := dropNaN(lapTimes)
	if len(valid) < 2 {
		nan := math.NaN()
		return PaceMetrics{Mean: nan, Std: nan, CoefficientOfVariation: nan, Fastest: nan, Slowest: nan}
	}

	mean := stat.Mean(valid, nil)
	std := stat.StdDev(valid, nil)
	return PaceMetrics{
		Mean:                   mean,
		Std:                    std,
		CoefficientOfVariation: std / mean * 100,
		Fastest:                floats.Min(valid),
		Slowest:                floats.Max(valid),
	}
}

// IdentifyOutliers flags lap times outside [Q1-threshold*IQR, Q3+threshold*IQR].
// The returned mask is aligned with the input; NaN entries are never flagged
// and are excluded from the quartile computation. Quartiles use linear
// interpolation between order statistics (see percentile). Deterministic.
func IdentifyOutliers(lapTimes []float64, threshold float64) []bool {
	valid := dropNaN(lapTimes)
	mask := make([]bool, len(lapTimes))
	if len(valid) == 0 {
		return mask
	}

	sorted := make([]float64, len(valid))
	copy(sorted, valid)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 0.25)
	q3 := percentile(sorted, 0.75)
	iqr := q3 - q1
	lower := q1 - threshold*iqr
	upper := q3 + threshold*iqr

	for i, v := range lapTimes {
		if math.IsNaN(v) {
			continue
		}
		mask[i] = v < lower || v > upper
	}
	return mask
}

// DegradationRow aggregates lap times for one tyre-age value.
type DegradationRow struct {
	TyreLife       int     `json:"tyre_life"`
	AvgLapTime     float64 `json:"avg_lap_time"`
	FastestLapTime float64 `json:"fastest_lap_time"`
	LapCount       int     `json:"lap_count"`
}

// TireDegradation groups laps by tyre age and aggregates mean lap time,
// fastest lap time and lap count per distinct tyre-life value. Laps without a
// valid lap time contribute nothing. Rows are ordered by tyre life ascending;
// empty input yields an empty result.
func TireDegradation(laps []session.Lap) []DegradationRow {
	groups := make(map[int][]float64)
	for _, l := range laps {
		if !l.HasLapTime() {
			continue
		}
		groups[l.TyreLife] = append(groups[l.TyreLife], l.LapTime)
	}
	if len(groups) == 0 {
		return nil
	}

	lives := make([]int, 0, len(groups))
	for life := range groups {
		lives = append(lives, life)
	}
	sort.Ints(lives)

	rows := make([]DegradationRow, 0, len(lives))
	for _, life := range lives {
		times := groups[life]
		rows = append(rows, DegradationRow{
			TyreLife:       life,
			AvgLapTime:     stat.Mean(times, nil),
			FastestLapTime: floats.Min(times),
			LapCount:       len(times),
		})
	}
	return rows
}

// SectorStats holds the fastest and mean time for one sector across a lap
// collection.
type SectorStats struct {
	Sector  int     `json:"sector"`
	Fastest float64 `json:"fastest"`
	Mean    float64 `json:"mean"`
}

// SectorAnalysis computes fastest and mean times independently per sector.
// Sectors with no valid samples are omitted entirely rather than zero-filled,
// so a session with only two timed sectors produces two rows.
func SectorAnalysis(laps []session.Lap) []SectorStats {
	var out []SectorStats
	for sector := 0; sector < 3; sector++ {
		var times []float64
		for _, l := range laps {
			v := l.Sectors()[sector]
			if !math.IsNaN(v) {
				times = append(times, v)
			}
		}
		if len(times) == 0 {
			continue
		}
		out = append(out, SectorStats{
			Sector:  sector + 1,
			Fastest: floats.Min(times),
			Mean:    stat.Mean(times, nil),
		})
	}
	return out
}

// BestLap is one driver's best valid lap in a session.
type BestLap struct {
	Driver    string           `json:"driver"`
	LapTime   float64          `json:"lap_time"`
	Compound  session.Compound `json:"compound"`
	LapNumber int              `json:"lap_number"`
}

// QualifyingProgression picks each driver's minimum valid lap time and sorts
// the result ascending by time. Within one driver, ties resolve to the first
// occurrence in input order. Drivers without any valid lap are omitted.
func QualifyingProgression(laps []session.Lap) []BestLap {
	best := make(map[string]session.Lap)
	var order []string
	for _, l := range laps {
		if !l.HasLapTime() {
			continue
		}
		cur, ok := best[l.Driver]
		if !ok {
			best[l.Driver] = l
			order = append(order, l.Driver)
			continue
		}
		if l.LapTime < cur.LapTime {
			best[l.Driver] = l
		}
	}
	if len(best) == 0 {
		return nil
	}

	out := make([]BestLap, 0, len(best))
	for _, driver := range order {
		l := best[driver]
		out = append(out, BestLap{
			Driver:    l.Driver,
			LapTime:   l.LapTime,
			Compound:  l.Compound,
			LapNumber: l.LapNumber,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LapTime < out[j].LapTime })
	return out
}

// dropNaN returns the non-NaN entries of x, preserving order.
func dropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// percentile returns the p-quantile (0..1) of sorted using linear
// interpolation between adjacent order statistics, matching the timing feed
// tooling this package replaced. gonum's Quantile offers Empirical and
// LinInterp cumulant kinds but neither reproduces that interpolation rule, so
// the handful of lines live here instead.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
