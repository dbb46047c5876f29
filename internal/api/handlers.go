package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pitwall-data/laptime.report/internal/analysis"
	"github.com/pitwall-data/laptime.report/internal/chartdata"
	"github.com/pitwall-data/laptime.report/internal/session"
)

// LapAPI is the wire shape of a lap record. Without it the raw NaN
// sentinels in session.Lap would break JSON encoding; absent fields
// serialise as null instead.
type LapAPI struct {
	Driver     string           `json:"driver"`
	Team       string           `json:"team"`
	LapNumber  int              `json:"lap_number"`
	LapTime    *float64         `json:"lap_time"`
	Position   *int             `json:"position"`
	Compound   session.Compound `json:"compound"`
	TyreLife   int              `json:"tyre_life"`
	Sector1    *float64         `json:"sector1"`
	Sector2    *float64         `json:"sector2"`
	Sector3    *float64         `json:"sector3"`
	PitInTime  *float64         `json:"pit_in_time"`
	PitOutTime *float64         `json:"pit_out_time"`
}

func lapToAPI(l session.Lap) LapAPI {
	out := LapAPI{
		Driver:     l.Driver,
		Team:       l.Team,
		LapNumber:  l.LapNumber,
		LapTime:    nullable(l.LapTime),
		Compound:   l.Compound,
		TyreLife:   l.TyreLife,
		Sector1:    nullable(l.Sector1),
		Sector2:    nullable(l.Sector2),
		Sector3:    nullable(l.Sector3),
		PitInTime:  nullable(l.PitInTime),
		PitOutTime: nullable(l.PitOutTime),
	}
	if l.HasPosition() {
		pos := l.Position
		out.Position = &pos
	}
	return out
}

// requireGet writes the method-not-allowed error and reports whether
// the request may proceed.
func (s *Server) requireGet(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// sessionLaps loads the laps for the session named in the request, or
// writes the appropriate error and returns false.
func (s *Server) sessionLaps(w http.ResponseWriter, r *http.Request) ([]session.Lap, bool) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'session' parameter")
		return nil, false
	}
	laps, err := s.db.LapsBySession(sessionID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve laps: %v", err))
		return nil, false
	}
	if driver := r.URL.Query().Get("driver"); driver != "" {
		laps = session.PickDriver(laps, driver)
	}
	return laps, true
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write response")
	}
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	sessions, err := s.db.ListSessions()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve sessions: %v", err))
		return
	}
	s.writeJSON(w, sessions)
}

func (s *Server) listLaps(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	laps, ok := s.sessionLaps(w, r)
	if !ok {
		return
	}
	apiLaps := make([]LapAPI, len(laps))
	for i, l := range laps {
		apiLaps[i] = lapToAPI(l)
	}
	s.writeJSON(w, apiLaps)
}

// PaceAPI carries pace metrics plus per-lap outlier flags for one driver.
type PaceAPI struct {
	Driver                 string   `json:"driver"`
	Mean                   *float64 `json:"mean"`
	Std                    *float64 `json:"std"`
	CoefficientOfVariation *float64 `json:"coefficient_of_variation"`
	Fastest                *float64 `json:"fastest"`
	Slowest                *float64 `json:"slowest"`
	Outliers               []bool   `json:"outliers"`
}

func (s *Server) showPace(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	laps, ok := s.sessionLaps(w, r)
	if !ok {
		return
	}

	threshold := analysis.DefaultOutlierThreshold
	if t := r.URL.Query().Get("threshold"); t != "" {
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil || parsed <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'threshold' parameter")
			return
		}
		threshold = parsed
	}

	var out []PaceAPI
	for _, driver := range session.Drivers(laps) {
		times := session.LapTimes(session.PickDriver(laps, driver))
		m := analysis.PaceConsistency(times)
		out = append(out, PaceAPI{
			Driver:                 driver,
			Mean:                   nullable(m.Mean),
			Std:                    nullable(m.Std),
			CoefficientOfVariation: nullable(m.CoefficientOfVariation),
			Fastest:                nullable(m.Fastest),
			Slowest:                nullable(m.Slowest),
			Outliers:               analysis.IdentifyOutliers(times, threshold),
		})
	}
	s.writeJSON(w, out)
}

// CompoundPaceAPI mirrors analysis.CompoundPace with nullable floats.
type CompoundPaceAPI struct {
	Compound   session.Compound `json:"compound"`
	LapCount   int              `json:"lap_count"`
	AvgLapTime *float64         `json:"avg_lap_time"`
	StdDev     *float64         `json:"std_dev"`
	FastestLap *float64         `json:"fastest_lap"`
}

func (s *Server) showRacePace(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	laps, ok := s.sessionLaps(w, r)
	if !ok {
		return
	}

	exclude := analysis.DefaultExcludeFirstLaps
	if e := r.URL.Query().Get("exclude_first"); e != "" {
		parsed, err := strconv.Atoi(e)
		if err != nil || parsed < 0 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'exclude_first' parameter")
			return
		}
		exclude = parsed
	}

	pace := analysis.RacePace(laps, exclude)
	out := make([]CompoundPaceAPI, len(pace))
	for i, p := range pace {
		out[i] = CompoundPaceAPI{
			Compound:   p.Compound,
			LapCount:   p.LapCount,
			AvgLapTime: nullable(p.AvgLapTime),
			StdDev:     nullable(p.StdDev),
			FastestLap: nullable(p.FastestLap),
		}
	}
	s.writeJSON(w, out)
}

// GapAPI mirrors analysis.GapRow with nullable floats.
type GapAPI struct {
	Driver      string   `json:"driver"`
	LapNumber   int      `json:"lap_number"`
	Position    int      `json:"position"`
	LapTime     *float64 `json:"lap_time"`
	GapToLeader *float64 `json:"gap_to_leader"`
}

func (s *Server) showGaps(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	laps, ok := s.sessionLaps(w, r)
	if !ok {
		return
	}

	gaps := analysis.GapToLeader(laps)
	out := make([]GapAPI, len(gaps))
	for i, g := range gaps {
		out[i] = GapAPI{
			Driver:      g.Driver,
			LapNumber:   g.LapNumber,
			Position:    g.Position,
			LapTime:     nullable(g.LapTime),
			GapToLeader: nullable(g.GapToLeader),
		}
	}
	s.writeJSON(w, out)
}

func (s *Server) showStints(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	laps, ok := s.sessionLaps(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, chartdata.PrepareStintChartData(laps, nil))
}

func (s *Server) showDegradation(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	laps, ok := s.sessionLaps(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, analysis.TireDegradation(laps))
}

func (s *Server) showOvertakes(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	if r.URL.Query().Get("driver") == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'driver' parameter")
		return
	}
	laps, ok := s.sessionLaps(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, analysis.Overtakes(laps))
}

func (s *Server) showQualifying(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	laps, ok := s.sessionLaps(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, analysis.QualifyingProgression(laps))
}

// PitStopAPI mirrors analysis.PitStop; durations are always present
// because open stops are excluded upstream.
func (s *Server) showPitStops(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	laps, ok := s.sessionLaps(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, analysis.PitStopDelta(laps))
}

// DriverSectorsAPI carries per-driver sector statistics.
type DriverSectorsAPI struct {
	Driver  string                 `json:"driver"`
	Sectors []analysis.SectorStats `json:"sectors"`
}

func (s *Server) showSectors(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	laps, ok := s.sessionLaps(w, r)
	if !ok {
		return
	}

	var out []DriverSectorsAPI
	for _, driver := range session.Drivers(laps) {
		stats := analysis.SectorAnalysis(session.PickDriver(laps, driver))
		if len(stats) == 0 {
			continue
		}
		out = append(out, DriverSectorsAPI{Driver: driver, Sectors: stats})
	}
	s.writeJSON(w, out)
}

func (s *Server) showBrakePoints(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	telemetry, ok := s.lapTelemetry(w, r)
	if !ok {
		return
	}

	threshold := analysis.DefaultBrakeThreshold
	if t := r.URL.Query().Get("threshold"); t != "" {
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil || parsed <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'threshold' parameter")
			return
		}
		threshold = parsed
	}

	points := analysis.BrakePoints(telemetry, threshold)
	for i := range points {
		points[i].Speed = s.convertSpeed(points[i].Speed)
	}
	s.writeJSON(w, points)
}

// showDelta compares two drivers' speed traces over one lap each:
// ?session=&driver=&lap=&driver2=&lap2=.
func (s *Server) showDelta(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	t1, ok := s.lapTelemetry(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	driver2 := q.Get("driver2")
	if driver2 == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'driver2' parameter")
		return
	}
	lap2, err := strconv.Atoi(q.Get("lap2"))
	if err != nil || lap2 < 1 {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'lap2' parameter")
		return
	}
	t2, err := s.db.TelemetryForLap(q.Get("session"), driver2, lap2)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve telemetry: %v", err))
		return
	}

	delta := analysis.TelemetryDelta(t1, t2)
	for i := range delta {
		delta[i].Speed1 = s.convertSpeed(delta[i].Speed1)
		delta[i].Speed2 = s.convertSpeed(delta[i].Speed2)
		delta[i].SpeedDelta = s.convertSpeed(delta[i].SpeedDelta)
	}
	s.writeJSON(w, delta)
}

// lapTelemetry loads the trace for session/driver/lap named in the
// request, or writes the appropriate error and returns false.
func (s *Server) lapTelemetry(w http.ResponseWriter, r *http.Request) ([]session.TelemetrySample, bool) {
	q := r.URL.Query()
	sessionID := q.Get("session")
	driver := q.Get("driver")
	if sessionID == "" || driver == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'session' or 'driver' parameter")
		return nil, false
	}
	lapNumber, err := strconv.Atoi(q.Get("lap"))
	if err != nil || lapNumber < 1 {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'lap' parameter")
		return nil, false
	}
	telemetry, err := s.db.TelemetryForLap(sessionID, driver, lapNumber)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve telemetry: %v", err))
		return nil, false
	}
	return telemetry, true
}

func (s *Server) showSpeedTrap(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	telemetry, ok := s.lapTelemetry(w, r)
	if !ok {
		return
	}

	stats := analysis.SpeedTrap(telemetry)
	if stats == nil {
		s.writeJSONError(w, http.StatusNotFound, "No speed samples for this lap")
		return
	}
	stats.Max = s.convertSpeed(stats.Max)
	stats.Avg = s.convertSpeed(stats.Avg)
	stats.Min = s.convertSpeed(stats.Min)
	stats.Top5P = s.convertSpeed(stats.Top5P)
	s.writeJSON(w, stats)
}

func (s *Server) showTrace(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	telemetry, ok := s.lapTelemetry(w, r)
	if !ok {
		return
	}

	channel := chartdata.TraceChannel(r.URL.Query().Get("channel"))
	if channel == "" {
		channel = chartdata.ChannelSpeed
	}
	trace := chartdata.PrepareTrace(telemetry, channel)
	if trace == nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'channel' parameter")
		return
	}
	if channel == chartdata.ChannelSpeed {
		for i := range trace {
			trace[i].Value = s.convertSpeed(trace[i].Value)
		}
	}
	s.writeJSON(w, trace)
}
