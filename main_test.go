package main

import (
	"testing"

	"github.com/pitwall-data/laptime.report/internal/db"
	"github.com/pitwall-data/laptime.report/internal/ingest"
	"github.com/pitwall-data/laptime.report/internal/session"
)

func setupRecorder(t *testing.T) (*liveRecorder, *db.DB, string) {
	t.Helper()

	store, err := db.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	id := "live-1"
	if err := store.InsertSession(db.SessionMeta{ID: id, Year: 2024, EventName: "Live Telemetry", SessionType: "LIVE"}); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	return newLiveRecorder(store, id), store, id
}

func frame(driver string, lap int, distance float64) ingest.Frame {
	return ingest.Frame{
		Driver:    driver,
		LapNumber: lap,
		Sample:    session.TelemetrySample{Distance: distance, Speed: 250},
	}
}

func TestLiveRecorderFlushOnLapChange(t *testing.T) {
	recorder, store, id := setupRecorder(t)

	for _, f := range []ingest.Frame{
		frame("VER", 1, 0),
		frame("VER", 1, 100),
		frame("VER", 2, 0), // lap change flushes lap 1
	} {
		if err := recorder.HandleFrame(f); err != nil {
			t.Fatalf("HandleFrame: %v", err)
		}
	}

	lap1, err := store.TelemetryForLap(id, "VER", 1)
	if err != nil {
		t.Fatalf("TelemetryForLap: %v", err)
	}
	if len(lap1) != 2 {
		t.Errorf("lap 1 samples = %d, want 2", len(lap1))
	}

	// Lap 2 is in progress and not yet stored.
	lap2, err := store.TelemetryForLap(id, "VER", 2)
	if err != nil {
		t.Fatalf("TelemetryForLap: %v", err)
	}
	if len(lap2) != 0 {
		t.Errorf("lap 2 samples = %d, want 0 before flush", len(lap2))
	}
}

func TestLiveRecorderFlushAll(t *testing.T) {
	recorder, store, id := setupRecorder(t)

	recorder.HandleFrame(frame("VER", 1, 0))
	recorder.HandleFrame(frame("HAM", 1, 0))
	recorder.FlushAll()

	for _, driver := range []string{"VER", "HAM"} {
		samples, err := store.TelemetryForLap(id, driver, 1)
		if err != nil {
			t.Fatalf("TelemetryForLap(%s): %v", driver, err)
		}
		if len(samples) != 1 {
			t.Errorf("%s samples = %d, want 1", driver, len(samples))
		}
	}
}

func TestLiveRecorderTracksDriversIndependently(t *testing.T) {
	recorder, store, id := setupRecorder(t)

	recorder.HandleFrame(frame("VER", 3, 0))
	recorder.HandleFrame(frame("HAM", 2, 0))
	recorder.HandleFrame(frame("VER", 4, 0)) // flushes VER lap 3 only

	ver, _ := store.TelemetryForLap(id, "VER", 3)
	if len(ver) != 1 {
		t.Errorf("VER lap 3 samples = %d, want 1", len(ver))
	}
	ham, _ := store.TelemetryForLap(id, "HAM", 2)
	if len(ham) != 0 {
		t.Errorf("HAM lap 2 samples = %d, want 0 before flush", len(ham))
	}
}
