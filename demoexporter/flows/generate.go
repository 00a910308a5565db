// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flows

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/bits"
	"math/rand"
	"net/netip"
	"time"

	"unifimon/common/schema"
)

type generatedFlow struct {
	SrcAddr netip.Addr
	DstAddr netip.Addr
	SrcPort uint16
	DstPort uint16
	Proto   uint8
	Packets uint32
	Octets  uint32
}

// rateToCount converts a per-second rate to the number of items to
// produce for the given time.
func rateToCount(rate float64, now time.Time) int {
	seconds := float64(now.Unix() - now.Truncate(time.Hour*24*30*12).Unix())
	count := math.Trunc((seconds+1)*rate) - math.Trunc(seconds*rate)
	return int(count)
}

// randomIP returns a random IP in the provided prefix.
func randomIP(prefix netip.Prefix, r *rand.Rand) netip.Addr {
	result := make([]byte, prefix.Addr().BitLen()/8)
	for i := range result {
		if prefix.Bits() >= (i+1)*8 {
			result[i] = prefix.Addr().AsSlice()[i]
			continue
		}
		shiftMask := prefix.Bits() - i*8
		if shiftMask < 0 {
			shiftMask = 0
		}
		randomByte := byte(int(r.Int31n(256)))
		randomByte = randomByte & ^bits.Reverse8(byte((1<<shiftMask)-1))
		result[i] = randomByte | prefix.Addr().AsSlice()[i]
	}
	addr, _ := netip.AddrFromSlice(result)
	return addr
}

// peakHourDistance returns distance from peak hour (0 to 1)
func peakHourDistance(now, peak time.Duration) float64 {
	delta := math.Mod(math.Abs((now - peak).Hours()), 24)
	if 24-delta < delta {
		delta = 24 - delta
	}
	return (12 - delta) / 12
}

func chooseRandom[T any](r *rand.Rand, slice []T) T {
	if len(slice) == 0 {
		var result T
		return result
	}
	if len(slice) == 1 {
		return slice[0]
	}
	return slice[r.Intn(len(slice))]
}

// generateFlows generate a set of flows using the provided
// configuration, for the provided date. It returns one second worth
// of flows. This is stateless.
func generateFlows(flowConfigs []FlowConfiguration, seed int64, now time.Time) []generatedFlow {
	flows := []generatedFlow{}
	now = now.Truncate(time.Second)

	hash := fnv.New64()
	fmt.Fprintf(hash, "%d %d", now.Unix(), seed)
	r := rand.New(rand.NewSource(int64(hash.Sum64())))

	nowTime := now.Sub(now.Truncate(time.Hour * 24))
	for _, flowConfig := range flowConfigs {
		distance := peakHourDistance(nowTime, flowConfig.PeakHour)
		square := distance * distance
		multiplier := 1 + (flowConfig.Multiplier-1)*square/(2.*(square-distance)+1.)
		count := rateToCount(flowConfig.PerSecond*multiplier*(0.9+r.Float64()/5), now)
		for ; count > 0; count-- {
			flow := generatedFlow{Packets: uint32(r.Int31n(10) + 1)}
			if flowConfig.Size == 0 {
				flow.Octets = flow.Packets * uint32(r.Int31n(1200)+300)
			} else {
				size := uint32(float64(flowConfig.Size) * (r.NormFloat64()*0.3 + 1))
				if size > 9000 {
					size = 9000
				} else if size > 1500 && flowConfig.Size <= 1500 {
					size = 1500
				} else if size < 64 {
					size = 64
				}
				flow.Octets = flow.Packets * size
			}
			flow.SrcAddr = randomIP(flowConfig.SrcNet, r)
			flow.DstAddr = randomIP(flowConfig.DstNet, r)
			proto := chooseRandom(r, flowConfig.Protocol)
			if proto == "tcp" || proto == "udp" {
				if srcPort := chooseRandom(r, flowConfig.SrcPort); srcPort != 0 {
					flow.SrcPort = srcPort
				} else {
					flow.SrcPort = uint16(r.Int31n(2000) + 33000)
				}
				if dstPort := chooseRandom(r, flowConfig.DstPort); dstPort != 0 {
					flow.DstPort = dstPort
				} else {
					flow.DstPort = uint16(r.Int31n(2000) + 33000)
				}
			}
			switch {
			case proto == "tcp":
				flow.Proto = schema.ProtoTCP
			case proto == "udp":
				flow.Proto = schema.ProtoUDP
			case proto == "icmp" && flow.SrcAddr.Is4():
				flow.Proto = schema.ProtoICMP
			case proto == "icmp":
				flow.Proto = schema.ProtoICMPv6
			}
			flows = append(flows, flow)
			if flowConfig.ReverseDirectionRatio > 0 {
				reverseFlow := flow
				reverseFlow.Octets = uint32(float32(reverseFlow.Octets) * flowConfig.ReverseDirectionRatio)
				reverseFlow.SrcAddr, reverseFlow.DstAddr = reverseFlow.DstAddr, reverseFlow.SrcAddr
				reverseFlow.SrcPort, reverseFlow.DstPort = reverseFlow.DstPort, reverseFlow.SrcPort
				flows = append(flows, reverseFlow)
			}
		}
	}
	return flows
}
