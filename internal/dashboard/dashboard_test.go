package dashboard

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pitwall-data/laptime.report/internal/db"
	"github.com/pitwall-data/laptime.report/internal/session"
	"github.com/pitwall-data/laptime.report/internal/units"
)

func setupServer(t *testing.T) (*WebServer, string) {
	t.Helper()

	d, err := db.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	id := "test-session-1"
	if err := d.InsertSession(db.SessionMeta{ID: id, Year: 2024, EventName: "Monza", SessionType: "R"}); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	laps := []session.Lap{
		{Driver: "VER", Team: "Red Bull Racing", LapNumber: 1, LapTime: 83.1, Position: 1, Compound: session.CompoundMedium,
			Sector1: math.NaN(), Sector2: math.NaN(), Sector3: math.NaN(), PitInTime: math.NaN(), PitOutTime: math.NaN()},
		{Driver: "VER", Team: "Red Bull Racing", LapNumber: 2, LapTime: 82.9, Position: 1, Compound: session.CompoundMedium,
			Sector1: math.NaN(), Sector2: math.NaN(), Sector3: math.NaN(), PitInTime: math.NaN(), PitOutTime: math.NaN()},
	}
	if err := d.InsertLaps(id, laps); err != nil {
		t.Fatalf("InsertLaps: %v", err)
	}
	if err := d.InsertTelemetry(id, "VER", 1, []session.TelemetrySample{
		{Distance: 0, Speed: 250, Throttle: 100, Brake: 0, Gear: 7, X: 0, Y: 0},
		{Distance: 100, Speed: 330, Throttle: 100, Brake: 0, Gear: 8, X: 100, Y: 5},
	}); err != nil {
		t.Fatalf("InsertTelemetry: %v", err)
	}

	return NewWebServer(d, units.KPH), id
}

func get(ws *WebServer, path string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	ws.RegisterRoutes(mux)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestIndexListsSessions(t *testing.T) {
	ws, _ := setupServer(t)

	rec := get(ws, "/dashboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Monza") {
		t.Errorf("index missing event name: %q", body)
	}
	if !strings.Contains(body, "/dashboard/laptimes?session=test-session-1") {
		t.Errorf("index missing chart link")
	}
}

func TestLapTimeChartRenders(t *testing.T) {
	ws, id := setupServer(t)

	rec := get(ws, "/dashboard/laptimes?session="+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "VER") {
		t.Errorf("chart missing driver series")
	}
}

func TestLapTimeChartMissingSession(t *testing.T) {
	ws, _ := setupServer(t)

	if rec := get(ws, "/dashboard/laptimes"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := get(ws, "/dashboard/laptimes?session=unknown"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", rec.Code)
	}
}

func TestPositionChartRenders(t *testing.T) {
	ws, id := setupServer(t)

	rec := get(ws, "/dashboard/positions?session="+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTraceChart(t *testing.T) {
	ws, id := setupServer(t)

	rec := get(ws, "/dashboard/trace?session="+id+"&driver=VER&lap=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := get(ws, "/dashboard/trace?session="+id+"&driver=VER&lap=1&channel=nope"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown channel, got %d", rec.Code)
	}
	if rec := get(ws, "/dashboard/trace?session="+id+"&driver=VER&lap=99"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing lap, got %d", rec.Code)
	}
}

func TestStintChart(t *testing.T) {
	ws, id := setupServer(t)

	rec := get(ws, "/dashboard/stints?session="+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "VER") {
		t.Errorf("stint chart missing driver")
	}
}

func TestDeltaChart(t *testing.T) {
	ws, id := setupServer(t)

	// Self-comparison is valid and yields zero delta everywhere.
	rec := get(ws, "/dashboard/delta?session="+id+"&driver=VER&lap=1&driver2=VER&lap2=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := get(ws, "/dashboard/delta?session="+id+"&driver=VER&lap=1"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without driver2, got %d", rec.Code)
	}
}

func TestTrackMapChart(t *testing.T) {
	ws, id := setupServer(t)

	rec := get(ws, "/dashboard/trackmap?session="+id+"&driver=VER&lap=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
