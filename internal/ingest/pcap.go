//go:build pcap
// +build pcap

package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// ReadPCAPFile replays telemetry frames from a capture file through
// handler. Only available when building with the 'pcap' tag.
func ReadPCAPFile(ctx context.Context, pcapFile string, udpPort int, stats StatsInterface, handler FrameHandler) error {
	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", pcapFile, err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return fmt.Errorf("failed to set BPF filter '%s': %w", filterStr, err)
	}
	log.Printf("PCAP BPF filter set: %s", filterStr)

	if stats == nil {
		stats = &noopStats{}
	}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetCount := 0
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Printf("PCAP reader stopping due to context cancellation (processed %d packets)", packetCount)
			return ctx.Err()
		case packet := <-packetSource.Packets():
			if packet == nil {
				log.Printf("PCAP file reading complete: %d packets processed in %v", packetCount, time.Since(startTime))
				return nil
			}
			packetCount++

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok {
				continue
			}

			payload := udp.Payload
			if len(payload) == 0 {
				continue
			}
			stats.AddPacket(len(payload))

			frame, err := ParseFrame(payload)
			if err != nil {
				stats.AddDropped()
				log.Printf("Error parsing PCAP packet %d: %v", packetCount, err)
				continue
			}
			stats.AddFrame()

			if handler != nil {
				if err := handler.HandleFrame(frame); err != nil {
					log.Printf("Error handling PCAP frame %d: %v", packetCount, err)
				}
			}
		}
	}
}
