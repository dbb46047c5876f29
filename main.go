package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/pitwall-data/laptime.report/internal/api"
	"github.com/pitwall-data/laptime.report/internal/config"
	"github.com/pitwall-data/laptime.report/internal/dashboard"
	"github.com/pitwall-data/laptime.report/internal/db"
	"github.com/pitwall-data/laptime.report/internal/ingest"
	"github.com/pitwall-data/laptime.report/internal/session"
	"github.com/pitwall-data/laptime.report/internal/version"
)

var (
	configPath      = flag.String("config", "", "Path to JSON config file")
	listen          = flag.String("listen", "", "Listen address (overrides config)")
	dbPath          = flag.String("db", "", "Path to the session store (overrides config)")
	telemetryListen = flag.String("telemetry-listen", "", "UDP address for live telemetry frames (disabled when empty)")
	showVersion     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		log.Print(version.String())
		return
	}

	cfg := config.EmptyDashboardConfig()
	if *configPath != "" {
		loaded, err := config.LoadDashboardConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	listenAddr := cfg.GetListen()
	if *listen != "" {
		listenAddr = *listen
	}
	storePath := cfg.GetDBPath()
	if *dbPath != "" {
		storePath = *dbPath
	}
	displayUnits := cfg.GetUnits()
	for team, color := range cfg.TeamColors {
		session.SetTeamColor(team, color)
	}

	store, err := db.NewDB(storePath)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer store.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Live telemetry listener, when configured. Frames accumulate per
	// driver and flush to the store on lap change.
	if *telemetryListen != "" {
		liveID := uuid.NewString()
		if err := store.InsertSession(db.SessionMeta{
			ID:          liveID,
			Year:        time.Now().Year(),
			EventName:   "Live Telemetry",
			SessionType: "LIVE",
		}); err != nil {
			log.Fatalf("failed to create live session: %v", err)
		}
		log.Printf("live telemetry session %s", liveID)

		recorder := newLiveRecorder(store, liveID)
		listener := ingest.NewUDPListener(ingest.UDPListenerConfig{
			Address: *telemetryListen,
			RcvBuf:  1 << 20,
			Stats:   ingest.NewPacketStats(),
			Handler: recorder,
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("telemetry listener stopped: %v", err)
			}
			recorder.FlushAll()
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// admin debugging routes (tailSQL console, backup download)
		store.AttachAdminRoutes(mux)

		apiServer := api.NewServer(store, displayUnits)
		mux.Handle("/api/", apiServer.ServeMux())

		dashboard.NewWebServer(store, displayUnits).RegisterRoutes(mux)

		server := &http.Server{
			Addr:    listenAddr,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("HTTP server listening on %s", listenAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// liveRecorder buffers telemetry frames per driver and writes each
// completed lap's trace to the store when the lap number advances.
type liveRecorder struct {
	mu        sync.Mutex
	store     *db.DB
	sessionID string
	current   map[string]*driverBuffer
}

type driverBuffer struct {
	lapNumber int
	samples   []session.TelemetrySample
}

func newLiveRecorder(store *db.DB, sessionID string) *liveRecorder {
	return &liveRecorder{
		store:     store,
		sessionID: sessionID,
		current:   make(map[string]*driverBuffer),
	}
}

func (r *liveRecorder) HandleFrame(f ingest.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf, ok := r.current[f.Driver]
	if !ok {
		buf = &driverBuffer{lapNumber: f.LapNumber}
		r.current[f.Driver] = buf
	}

	if f.LapNumber != buf.lapNumber {
		if err := r.flushLocked(f.Driver, buf); err != nil {
			return err
		}
		buf.lapNumber = f.LapNumber
		buf.samples = buf.samples[:0]
	}

	buf.samples = append(buf.samples, f.Sample)
	return nil
}

// FlushAll writes any in-progress laps, used at shutdown.
func (r *liveRecorder) FlushAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for driver, buf := range r.current {
		if err := r.flushLocked(driver, buf); err != nil {
			log.Printf("failed to flush telemetry for %s: %v", driver, err)
		}
	}
}

func (r *liveRecorder) flushLocked(driver string, buf *driverBuffer) error {
	if len(buf.samples) == 0 {
		return nil
	}
	return r.store.InsertTelemetry(r.sessionID, driver, buf.lapNumber, buf.samples)
}
