package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pitwall-data/laptime.report/internal/session"
)

// DefaultBrakeThreshold is the brake input level above which a sample counts
// as braking.
const DefaultBrakeThreshold = 50.0

// SpeedTrapStats profiles a telemetry speed series. Nil means no speed data
// was available; callers render "not available" rather than an empty table.
type SpeedTrapStats struct {
	Max   float64 `json:"max_speed"`
	Avg   float64 `json:"avg_speed"`
	Min   float64 `json:"min_speed"`
	Top5P float64 `json:"top_5_percent"`
}

// SpeedTrap computes max/avg/min and the 95th-percentile speed from a
// telemetry trace. Returns nil when the trace carries no valid speed samples.
func SpeedTrap(telemetry []session.TelemetrySample) *SpeedTrapStats {
	var speeds []float64
	for _, s := range telemetry {
		if !math.IsNaN(s.Speed) {
			speeds = append(speeds, s.Speed)
		}
	}
	if len(speeds) == 0 {
		return nil
	}

	sorted := make([]float64, len(speeds))
	copy(sorted, speeds)
	sort.Float64s(sorted)

	return &SpeedTrapStats{
		Max:   floats.Max(speeds),
		Avg:   stat.Mean(speeds, nil),
		Min:   floats.Min(speeds),
		Top5P: percentile(sorted, 0.95),
	}
}

// BrakePoint marks the sample where a distinct brake application begins.
type BrakePoint struct {
	Distance float64 `json:"distance"`
	Speed    float64 `json:"speed"`
	Brake    float64 `json:"brake"`
}

// BrakePoints detects rising edges in the brake channel: a sample is a brake
// point iff its brake value exceeds threshold and the preceding sample's did
// not. The first sample is treated as preceded by "not braking", so a trace
// that starts under braking yields exactly one point for that application.
// This is an edge detector, not a level detector; a sustained application
// contributes one point regardless of its length.
func BrakePoints(telemetry []session.TelemetrySample, threshold float64) []BrakePoint {
	var out []BrakePoint
	prevBraking := false
	for _, s := range telemetry {
		braking := s.Brake > threshold
		if braking && !prevBraking {
			out = append(out, BrakePoint{Distance: s.Distance, Speed: s.Speed, Brake: s.Brake})
		}
		prevBraking = braking
	}
	return out
}

// DeltaPoint is one row of a joined two-trace comparison.
type DeltaPoint struct {
	Distance   float64 `json:"distance"`
	Speed1     float64 `json:"speed1"`
	Speed2     float64 `json:"speed2"`
	SpeedDelta float64 `json:"speed_delta"`
}

// TelemetryDelta joins two telemetry traces by nearest distance and computes
// the speed difference at each joined point. Traces from different drivers
// rarely share identical distance samples, so this is an as-of join keyed on
// the first trace's distances: for every sample of t1 the nearest sample of
// t2 (by distance, either direction) supplies the comparison speed. Both
// traces must already be ordered by distance. Empty if either input is empty.
func TelemetryDelta(t1, t2 []session.TelemetrySample) []DeltaPoint {
	if len(t1) == 0 || len(t2) == 0 {
		return nil
	}

	out := make([]DeltaPoint, 0, len(t1))
	for _, s := range t1 {
		n := nearestByDistance(t2, s.Distance)
		out = append(out, DeltaPoint{
			Distance:   s.Distance,
			Speed1:     s.Speed,
			Speed2:     n.Speed,
			SpeedDelta: s.Speed - n.Speed,
		})
	}
	return out
}

// nearestByDistance returns the sample of trace whose Distance is closest to
// d. trace must be non-empty and ordered by Distance.
func nearestByDistance(trace []session.TelemetrySample, d float64) session.TelemetrySample {
	i := sort.Search(len(trace), func(i int) bool { return trace[i].Distance >= d })
	if i == 0 {
		return trace[0]
	}
	if i == len(trace) {
		return trace[len(trace)-1]
	}
	if trace[i].Distance-d < d-trace[i-1].Distance {
		return trace[i]
	}
	return trace[i-1]
}
