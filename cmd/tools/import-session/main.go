// Command import-session loads a session archive (JSON) into the
// session store. Archives use null for absent values; those become
// the in-memory absent sentinels on import.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/google/uuid"

	"github.com/pitwall-data/laptime.report/internal/db"
	"github.com/pitwall-data/laptime.report/internal/session"
)

// sessionArchive is the on-disk layout of an exported session.
type sessionArchive struct {
	Year        int            `json:"year"`
	EventName   string         `json:"event_name"`
	SessionType string         `json:"session_type"`
	Laps        []archiveLap   `json:"laps"`
	Telemetry   []archiveTrace `json:"telemetry"`
}

type archiveLap struct {
	Driver     string   `json:"driver"`
	Team       string   `json:"team"`
	LapNumber  int      `json:"lap_number"`
	LapTime    *float64 `json:"lap_time"`
	Position   *int     `json:"position"`
	Compound   string   `json:"compound"`
	TyreLife   int      `json:"tyre_life"`
	Sector1    *float64 `json:"sector1"`
	Sector2    *float64 `json:"sector2"`
	Sector3    *float64 `json:"sector3"`
	PitInTime  *float64 `json:"pit_in_time"`
	PitOutTime *float64 `json:"pit_out_time"`
}

type archiveTrace struct {
	Driver    string          `json:"driver"`
	LapNumber int             `json:"lap_number"`
	Samples   []archiveSample `json:"samples"`
}

type archiveSample struct {
	Distance float64  `json:"distance"`
	Speed    *float64 `json:"speed"`
	Throttle *float64 `json:"throttle"`
	Brake    *float64 `json:"brake"`
	Gear     int      `json:"gear"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
}

func main() {
	dbPath := flag.String("db", "session_data.db", "path to the session store")
	archivePath := flag.String("file", "", "session archive to import")
	flag.Parse()

	if *archivePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	archive, err := readArchive(*archivePath)
	if err != nil {
		log.Fatalf("failed to read archive: %v", err)
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer store.Close()

	id := uuid.NewString()
	if err := store.InsertSession(db.SessionMeta{
		ID:          id,
		Year:        archive.Year,
		EventName:   archive.EventName,
		SessionType: archive.SessionType,
	}); err != nil {
		log.Fatalf("failed to insert session: %v", err)
	}

	laps := make([]session.Lap, len(archive.Laps))
	for i, al := range archive.Laps {
		laps[i] = al.toLap()
	}
	if err := store.InsertLaps(id, laps); err != nil {
		log.Fatalf("failed to insert laps: %v", err)
	}

	sampleCount := 0
	for _, trace := range archive.Telemetry {
		samples := make([]session.TelemetrySample, len(trace.Samples))
		for i, as := range trace.Samples {
			samples[i] = as.toSample()
		}
		if err := store.InsertTelemetry(id, trace.Driver, trace.LapNumber, samples); err != nil {
			log.Fatalf("failed to insert telemetry for %s lap %d: %v", trace.Driver, trace.LapNumber, err)
		}
		sampleCount += len(samples)
	}

	log.Printf("imported session %s: %d laps, %d telemetry samples", id, len(laps), sampleCount)
}

func readArchive(path string) (*sessionArchive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var archive sessionArchive
	if err := json.NewDecoder(f).Decode(&archive); err != nil {
		return nil, fmt.Errorf("malformed archive: %w", err)
	}
	if archive.EventName == "" {
		return nil, fmt.Errorf("archive has no event name")
	}
	return &archive, nil
}

func (al archiveLap) toLap() session.Lap {
	l := session.Lap{
		Driver:     al.Driver,
		Team:       al.Team,
		LapNumber:  al.LapNumber,
		LapTime:    deref(al.LapTime),
		Compound:   session.NormaliseCompound(al.Compound),
		TyreLife:   al.TyreLife,
		Sector1:    deref(al.Sector1),
		Sector2:    deref(al.Sector2),
		Sector3:    deref(al.Sector3),
		PitInTime:  deref(al.PitInTime),
		PitOutTime: deref(al.PitOutTime),
	}
	if al.Position != nil {
		l.Position = *al.Position
	}
	return l
}

func (as archiveSample) toSample() session.TelemetrySample {
	return session.TelemetrySample{
		Distance: as.Distance,
		Speed:    deref(as.Speed),
		Throttle: deref(as.Throttle),
		Brake:    deref(as.Brake),
		Gear:     as.Gear,
		X:        deref(as.X),
		Y:        deref(as.Y),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
