// Package ingest receives live telemetry frames over UDP and decodes
// them into samples. Frames can also be replayed from a capture file
// when built with the pcap tag.
package ingest

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pitwall-data/laptime.report/internal/session"
)

// Telemetry frames are little-endian with a fixed layout:
//
//	offset  size  field
//	0       2     magic (0x544C)
//	2       3     driver code (ASCII, space padded)
//	5       2     lap number
//	7       4     distance (m, float32)
//	11      4     speed (km/h, float32)
//	15      4     throttle (%, float32)
//	19      4     brake (%, float32)
//	23      1     gear (int8)
//	24      4     x (m, float32)
//	28      4     y (m, float32)
const (
	frameMagic = 0x544C
	FrameSize  = 32
)

// Frame is one decoded telemetry frame.
type Frame struct {
	Driver    string
	LapNumber int
	Sample    session.TelemetrySample
}

// ParseFrame decodes a single wire frame. Frames that are short, carry
// the wrong magic, or an empty driver code are rejected.
func ParseFrame(packet []byte) (Frame, error) {
	if len(packet) < FrameSize {
		return Frame{}, fmt.Errorf("short frame: %d bytes, need %d", len(packet), FrameSize)
	}
	if binary.LittleEndian.Uint16(packet[0:2]) != frameMagic {
		return Frame{}, fmt.Errorf("bad frame magic %#04x", binary.LittleEndian.Uint16(packet[0:2]))
	}

	driver := trimDriver(packet[2:5])
	if driver == "" {
		return Frame{}, fmt.Errorf("empty driver code")
	}

	f := Frame{
		Driver:    driver,
		LapNumber: int(binary.LittleEndian.Uint16(packet[5:7])),
		Sample: session.TelemetrySample{
			Distance: float64(frameFloat(packet[7:11])),
			Speed:    float64(frameFloat(packet[11:15])),
			Throttle: float64(frameFloat(packet[15:19])),
			Brake:    float64(frameFloat(packet[19:23])),
			Gear:     int(int8(packet[23])),
			X:        float64(frameFloat(packet[24:28])),
			Y:        float64(frameFloat(packet[28:32])),
		},
	}
	return f, nil
}

// EncodeFrame is the inverse of ParseFrame, used by the import tools
// and tests to produce wire frames.
func EncodeFrame(f Frame) []byte {
	packet := make([]byte, FrameSize)
	binary.LittleEndian.PutUint16(packet[0:2], frameMagic)
	copy(packet[2:5], padDriver(f.Driver))
	binary.LittleEndian.PutUint16(packet[5:7], uint16(f.LapNumber))
	putFrameFloat(packet[7:11], float32(f.Sample.Distance))
	putFrameFloat(packet[11:15], float32(f.Sample.Speed))
	putFrameFloat(packet[15:19], float32(f.Sample.Throttle))
	putFrameFloat(packet[19:23], float32(f.Sample.Brake))
	packet[23] = byte(int8(f.Sample.Gear))
	putFrameFloat(packet[24:28], float32(f.Sample.X))
	putFrameFloat(packet[28:32], float32(f.Sample.Y))
	return packet
}

func trimDriver(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return string(b[:end])
}

func padDriver(driver string) []byte {
	b := []byte("   ")
	copy(b, driver)
	return b
}

func frameFloat(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func putFrameFloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}
