// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package file replays NetFlow/IPFIX datagrams captured in PCAP files.
package file

import (
	"errors"
	"fmt"
	"net/netip"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"gopkg.in/tomb.v2"

	"unifimon/common/daemon"
	"unifimon/common/reporter"
	"unifimon/inlet/flow/input"
)

// Input represents the state of a file input.
type Input struct {
	r       *reporter.Reporter
	t       tomb.Tomb
	config  *Configuration
	handler input.HandlerFunc
}

var (
	_ input.Input         = &Input{}
	_ input.Configuration = &Configuration{}
)

// New instantiate a new file input from the provided configuration.
func (configuration *Configuration) New(r *reporter.Reporter, daemon daemon.Component, handler input.HandlerFunc) (input.Input, error) {
	if len(configuration.Paths) == 0 {
		return nil, errors.New("no paths provided for file input")
	}
	input := &Input{
		r:       r,
		config:  configuration,
		handler: handler,
	}
	daemon.Track(&input.t, "inlet/flow/input/file")
	return input, nil
}

// Start starts replaying files.
func (in *Input) Start() error {
	in.r.Info().Strs("paths", in.config.Paths).Msg("file input starting")
	in.t.Go(func() error {
		for {
			for _, path := range in.config.Paths {
				if err := in.replay(path); err != nil {
					in.r.Err(err).Str("path", path).Msg("unable to replay file")
					return err
				}
				if !in.t.Alive() {
					return nil
				}
			}
			if !in.config.Loop {
				break
			}
		}
		<-in.t.Dying()
		return nil
	})
	return nil
}

// replay sends the UDP payloads of a PCAP file to the handler. The
// exporter is the source address of each packet.
func (in *Input) replay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("cannot read PCAP file: %w", err)
	}
	source := gopacket.NewPacketSource(reader, reader.LinkType())
	for packet := range source.Packets() {
		udp, ok := packet.TransportLayer().(*layers.UDP)
		if !ok || packet.NetworkLayer() == nil {
			continue
		}
		exporter, ok := netip.AddrFromSlice(packet.NetworkLayer().NetworkFlow().Src().Raw())
		if !ok {
			continue
		}
		in.handler(exporter.Unmap(), udp.Payload)
		select {
		case <-in.t.Dying():
			return nil
		default:
		}
	}
	return nil
}

// Stop stops the file input.
func (in *Input) Stop() error {
	defer in.r.Info().Msg("file input stopped")
	in.t.Kill(nil)
	return in.t.Wait()
}
