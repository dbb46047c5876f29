package ingest

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// FrameHandler consumes decoded telemetry frames.
type FrameHandler interface {
	HandleFrame(f Frame) error
}

// FrameHandlerFunc adapts a function to the FrameHandler interface.
type FrameHandlerFunc func(f Frame) error

func (fn FrameHandlerFunc) HandleFrame(f Frame) error { return fn(f) }

// StatsInterface tracks packet throughput for the listener.
type StatsInterface interface {
	AddPacket(bytes int)
	AddFrame()
	AddDropped()
	LogStats()
}

// UDPListenerConfig configures a telemetry UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Stats       StatsInterface
	Handler     FrameHandler
}

// UDPListener receives telemetry frames from a UDP socket and hands
// the decoded frames to its handler.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	stats       StatsInterface
	handler     FrameHandler
}

// NewUDPListener builds a listener from config. A nil Stats gets a
// no-op implementation so the packet path never has to nil-check.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	stats := config.Stats
	if stats == nil {
		stats = &noopStats{}
	}

	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}

	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		stats:       stats,
		handler:     config.Handler,
	}
}

type noopStats struct{}

func (n *noopStats) AddPacket(bytes int) {}
func (n *noopStats) AddFrame()           {}
func (n *noopStats) AddDropped()         {}
func (n *noopStats) LogStats()           {}

// Start listens until the context is cancelled.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			log.Printf("Warning: failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}

	log.Printf("telemetry listener started on %s", l.address)

	go l.startStatsLogging(ctx)

	buffer := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			log.Print("telemetry listener stopping due to context cancellation")
			return ctx.Err()
		default:
			// Short read deadline so context cancellation is noticed.
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, addr, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("UDP read error: %v", err)
				continue
			}

			if err := l.handlePacket(buffer[:n]); err != nil {
				log.Printf("Error handling packet from %v: %v", addr, err)
			}
		}
	}
}

func (l *UDPListener) startStatsLogging(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}

func (l *UDPListener) handlePacket(packet []byte) error {
	l.stats.AddPacket(len(packet))

	frame, err := ParseFrame(packet)
	if err != nil {
		l.stats.AddDropped()
		return err
	}
	l.stats.AddFrame()

	if l.handler != nil {
		return l.handler.HandleFrame(frame)
	}
	return nil
}

// PacketStats is the default StatsInterface implementation.
type PacketStats struct {
	mu      sync.Mutex
	packets uint64
	bytes   uint64
	frames  uint64
	dropped uint64
}

func NewPacketStats() *PacketStats { return &PacketStats{} }

func (s *PacketStats) AddPacket(n int) {
	s.mu.Lock()
	s.packets++
	s.bytes += uint64(n)
	s.mu.Unlock()
}

func (s *PacketStats) AddFrame() {
	s.mu.Lock()
	s.frames++
	s.mu.Unlock()
}

func (s *PacketStats) AddDropped() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// Snapshot returns current counters.
func (s *PacketStats) Snapshot() (packets, bytes, frames, dropped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packets, s.bytes, s.frames, s.dropped
}

func (s *PacketStats) LogStats() {
	packets, bytes, frames, dropped := s.Snapshot()
	log.Printf("telemetry stats: packets=%d bytes=%d frames=%d dropped=%d",
		packets, bytes, frames, dropped)
}
