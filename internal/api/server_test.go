package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall-data/laptime.report/internal/db"
	"github.com/pitwall-data/laptime.report/internal/session"
	"github.com/pitwall-data/laptime.report/internal/units"
)

// newTestServer seeds an in-memory store with one race session and
// returns the server plus the session id.
func newTestServer(t *testing.T, displayUnits string) (*Server, string) {
	t.Helper()

	d, err := db.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	id := uuid.NewString()
	require.NoError(t, d.InsertSession(db.SessionMeta{
		ID: id, Year: 2024, EventName: "Bahrain Grand Prix", SessionType: "R",
	}))

	laps := []session.Lap{
		{Driver: "VER", Team: "Red Bull Racing", LapNumber: 1, LapTime: 95.0, Position: 1, Compound: session.CompoundSoft, TyreLife: 1,
			Sector1: math.NaN(), Sector2: math.NaN(), Sector3: math.NaN(), PitInTime: math.NaN(), PitOutTime: math.NaN()},
		{Driver: "VER", Team: "Red Bull Racing", LapNumber: 2, LapTime: 94.2, Position: 1, Compound: session.CompoundSoft, TyreLife: 2,
			Sector1: 30.0, Sector2: 32.0, Sector3: 32.2, PitInTime: math.NaN(), PitOutTime: math.NaN()},
		{Driver: "LEC", Team: "Ferrari", LapNumber: 1, LapTime: 95.8, Position: 2, Compound: session.CompoundSoft, TyreLife: 1,
			Sector1: math.NaN(), Sector2: math.NaN(), Sector3: math.NaN(), PitInTime: math.NaN(), PitOutTime: math.NaN()},
		{Driver: "LEC", Team: "Ferrari", LapNumber: 2, LapTime: math.NaN(), Position: 3, Compound: session.CompoundSoft, TyreLife: 2,
			Sector1: math.NaN(), Sector2: math.NaN(), Sector3: math.NaN(), PitInTime: 320.5, PitOutTime: 343.1},
	}
	require.NoError(t, d.InsertLaps(id, laps))

	require.NoError(t, d.InsertTelemetry(id, "VER", 2, []session.TelemetrySample{
		{Distance: 0, Speed: 200, Throttle: 100, Brake: 0, Gear: 7},
		{Distance: 100, Speed: 300, Throttle: 100, Brake: 0, Gear: 8},
		{Distance: 200, Speed: 120, Throttle: 0, Brake: 95, Gear: 4},
	}))
	require.NoError(t, d.InsertTelemetry(id, "LEC", 1, []session.TelemetrySample{
		{Distance: 0, Speed: 210, Throttle: 100, Brake: 0, Gear: 7},
		{Distance: 105, Speed: 290, Throttle: 100, Brake: 0, Gear: 8},
		{Distance: 198, Speed: 130, Throttle: 0, Brake: 90, Gear: 4},
	}))

	return NewServer(d, displayUnits), id
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func TestListSessions(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	rec := doGet(t, s, "/api/sessions")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []db.SessionMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "Bahrain Grand Prix", got[0].EventName)
}

func TestListLaps(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	t.Run("missing session parameter", func(t *testing.T) {
		rec := doGet(t, s, "/api/laps")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("absent values serialise as null", func(t *testing.T) {
		rec := doGet(t, s, "/api/laps?session="+id+"&driver=LEC")
		require.Equal(t, http.StatusOK, rec.Code)

		var got []LapAPI
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 2)

		require.NotNil(t, got[0].LapTime)
		assert.Equal(t, 95.8, *got[0].LapTime)
		assert.Nil(t, got[0].Sector1)

		assert.Nil(t, got[1].LapTime)
		require.NotNil(t, got[1].PitInTime)
		assert.Equal(t, 320.5, *got[1].PitInTime)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/laps?session="+id, nil)
		rec := httptest.NewRecorder()
		s.ServeMux().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestShowPace(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	rec := doGet(t, s, "/api/pace?session="+id)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []PaceAPI
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)

	// Drivers come back sorted.
	assert.Equal(t, "LEC", got[0].Driver)
	assert.Equal(t, "VER", got[1].Driver)

	// LEC has one valid lap, under the two needed for metrics.
	assert.Nil(t, got[0].Mean)

	require.NotNil(t, got[1].Mean)
	assert.InDelta(t, 94.6, *got[1].Mean, 1e-9)
	assert.Len(t, got[1].Outliers, 2)
}

func TestShowPaceInvalidThreshold(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	rec := doGet(t, s, "/api/pace?session="+id+"&threshold=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShowRacePace(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	t.Run("invalid exclude_first", func(t *testing.T) {
		rec := doGet(t, s, "/api/race-pace?session="+id+"&exclude_first=x")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("exclude none", func(t *testing.T) {
		rec := doGet(t, s, "/api/race-pace?session="+id+"&exclude_first=0")
		require.Equal(t, http.StatusOK, rec.Code)

		var got []CompoundPaceAPI
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, session.CompoundSoft, got[0].Compound)
		assert.Equal(t, 3, got[0].LapCount)
	})
}

func TestShowGaps(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	rec := doGet(t, s, "/api/gaps?session="+id)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []GapAPI
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 4)

	for _, g := range got {
		if g.Driver == "VER" {
			require.NotNil(t, g.GapToLeader)
			assert.Equal(t, 0.0, *g.GapToLeader)
		}
	}
	// LEC's second lap has no time, so its gap is null.
	for _, g := range got {
		if g.Driver == "LEC" && g.LapNumber == 2 {
			assert.Nil(t, g.GapToLeader)
		}
	}
}

func TestShowStints(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	rec := doGet(t, s, "/api/stints?session="+id)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Drivers []string        `json:"drivers"`
		Stints  []session.Stint `json:"stints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"LEC", "VER"}, got.Drivers)
	require.Len(t, got.Stints, 2)
}

func TestShowOvertakesRequiresDriver(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	rec := doGet(t, s, "/api/overtakes?session="+id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShowPitStops(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	rec := doGet(t, s, "/api/pitstops?session="+id)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []struct {
		Driver   string  `json:"driver"`
		Duration float64 `json:"duration"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "LEC", got[0].Driver)
	assert.InDelta(t, 22.6, got[0].Duration, 1e-9)
}

func TestShowSpeedTrapConvertsUnits(t *testing.T) {
	s, id := newTestServer(t, units.MPH)

	rec := doGet(t, s, "/api/speed-trap?session="+id+"&driver=VER&lap=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Max float64 `json:"max_speed"`
		Min float64 `json:"min_speed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 300*0.621371, got.Max, 1e-6)
	assert.InDelta(t, 120*0.621371, got.Min, 1e-6)
}

func TestShowSpeedTrapNoData(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	rec := doGet(t, s, "/api/speed-trap?session="+id+"&driver=VER&lap=9")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShowTrace(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	t.Run("default channel is speed", func(t *testing.T) {
		rec := doGet(t, s, "/api/trace?session="+id+"&driver=VER&lap=2")
		require.Equal(t, http.StatusOK, rec.Code)

		var got []struct {
			Distance float64 `json:"distance"`
			Value    float64 `json:"value"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 3)
		assert.Equal(t, 200.0, got[0].Value)
	})

	t.Run("unknown channel rejected", func(t *testing.T) {
		rec := doGet(t, s, "/api/trace?session="+id+"&driver=VER&lap=2&channel=tyre_temp")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid lap rejected", func(t *testing.T) {
		rec := doGet(t, s, "/api/trace?session="+id+"&driver=VER&lap=0")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestShowSectors(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	rec := doGet(t, s, "/api/sectors?session="+id)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []DriverSectorsAPI
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	// Only VER has timed sectors in the fixture.
	require.Len(t, got, 1)
	assert.Equal(t, "VER", got[0].Driver)
	require.Len(t, got[0].Sectors, 3)
	assert.Equal(t, 30.0, got[0].Sectors[0].Fastest)
}

func TestShowBrakePoints(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	rec := doGet(t, s, "/api/brake-points?session="+id+"&driver=VER&lap=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []struct {
		Distance float64 `json:"distance"`
		Brake    float64 `json:"brake"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 200.0, got[0].Distance)
}

func TestShowDelta(t *testing.T) {
	s, id := newTestServer(t, units.KPH)

	t.Run("missing driver2", func(t *testing.T) {
		rec := doGet(t, s, "/api/delta?session="+id+"&driver=VER&lap=2")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("joins by nearest distance", func(t *testing.T) {
		rec := doGet(t, s, "/api/delta?session="+id+"&driver=VER&lap=2&driver2=LEC&lap2=1")
		require.Equal(t, http.StatusOK, rec.Code)

		var got []struct {
			Distance   float64 `json:"distance"`
			SpeedDelta float64 `json:"speed_delta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 3)
		assert.Equal(t, -10.0, got[0].SpeedDelta)
		assert.Equal(t, 10.0, got[1].SpeedDelta)
		assert.Equal(t, -10.0, got[2].SpeedDelta)
	})
}

func TestShowConfig(t *testing.T) {
	s, _ := newTestServer(t, units.MPH)

	rec := doGet(t, s, "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, units.MPH, got["units"])
}
