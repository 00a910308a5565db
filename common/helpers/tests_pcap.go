// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package helpers

import (
	"os"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// ReadPcapPayloads reads a PCAP file and returns the UDP payload of each
// packet.
func ReadPcapPayloads(t testing.TB, pcapfile string) [][]byte {
	t.Helper()
	f, err := os.Open(pcapfile)
	if err != nil {
		t.Fatalf("Open(%q) error:\n%+v", pcapfile, err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		t.Fatalf("NewReader(%q) error:\n%+v", pcapfile, err)
	}
	payloads := [][]byte{}
	source := gopacket.NewPacketSource(reader, layers.LayerTypeEthernet)
	for packet := range source.Packets() {
		if transport := packet.TransportLayer(); transport != nil {
			payloads = append(payloads, transport.LayerPayload())
		}
	}
	return payloads
}
