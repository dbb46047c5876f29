//go:build !pcap
// +build !pcap

package ingest

import (
	"context"
	"fmt"
)

// ReadPCAPFile is a stub when PCAP support is disabled.
// Build with -tags=pcap to enable capture replay.
func ReadPCAPFile(ctx context.Context, pcapFile string, udpPort int, stats StatsInterface, handler FrameHandler) error {
	return fmt.Errorf("PCAP support not enabled: rebuild with -tags=pcap to enable capture replay")
}
