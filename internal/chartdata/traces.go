package chartdata

import (
	"math"

	"github.com/pitwall-data/laptime.report/internal/session"
)

// TracePoint is a single (distance, value) pair in a telemetry trace.
type TracePoint struct {
	Distance float64 `json:"distance"`
	Value    float64 `json:"value"`
}

// TraceChannel names a telemetry channel for pass-through reshaping.
type TraceChannel string

const (
	ChannelSpeed    TraceChannel = "speed"
	ChannelThrottle TraceChannel = "throttle"
	ChannelBrake    TraceChannel = "brake"
	ChannelGear     TraceChannel = "gear"
)

// PrepareTrace selects one channel from a telemetry trace keyed by distance.
// Pure column selection with presence filtering; no resampling, no
// aggregation. Samples whose selected value is absent are dropped.
func PrepareTrace(telemetry []session.TelemetrySample, channel TraceChannel) []TracePoint {
	points := make([]TracePoint, 0, len(telemetry))
	for _, s := range telemetry {
		var v float64
		switch channel {
		case ChannelSpeed:
			v = s.Speed
		case ChannelThrottle:
			v = s.Throttle
		case ChannelBrake:
			v = s.Brake
		case ChannelGear:
			v = float64(s.Gear)
		default:
			return nil
		}
		if math.IsNaN(v) {
			continue
		}
		points = append(points, TracePoint{Distance: s.Distance, Value: v})
	}
	return points
}

// TrackMapPoint is a track-position sample coloured by speed.
type TrackMapPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Speed float64 `json:"speed"`
}

// PrepareTrackMap reshapes telemetry into (x, y, speed) points for a
// speed-on-track scatter. Samples missing any of the three values are
// dropped.
func PrepareTrackMap(telemetry []session.TelemetrySample) []TrackMapPoint {
	points := make([]TrackMapPoint, 0, len(telemetry))
	for _, s := range telemetry {
		if math.IsNaN(s.X) || math.IsNaN(s.Y) || math.IsNaN(s.Speed) {
			continue
		}
		points = append(points, TrackMapPoint{X: s.X, Y: s.Y, Speed: s.Speed})
	}
	return points
}
