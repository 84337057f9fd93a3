package mpeg

import (
	"github.com/tyrese/avmux/utils/bits"
)

const (
	PackStartCode         = 0x000001ba
	SystemHeaderStartCode = 0x000001bb
	EndCode               = 0x000001b9
	PaddingStream         = 0xbe
	AudioID               = 0xc0
	VideoID               = 0xe0

	PackHeaderSize = 12
	PESHeaderSize  = 6
	PTSSize        = 5

	maxStuffing = 16
)

// packHeader is an ISO 11172-1 pack header. scr is in 90 kHz units,
// muxRate in units of 50 bytes per second.
func packHeader(scr int64, muxRate int) []byte {
	return bits.Fields{
		{32, PackStartCode},
		{4, 0x2},
		{3, uint64(scr >> 30)},
		{1, 1},
		{15, uint64(scr >> 15)},
		{1, 1},
		{15, uint64(scr)},
		{1, 1},
		{1, 1},
		{22, uint64(muxRate)},
		{1, 1},
	}.Marshal()
}

type boundEntry struct {
	id    byte
	audio bool
	size  int
}

func systemHeaderSize(nstreams int) int {
	return 12 + 3*nstreams
}

func systemHeader(muxRate, audioBound, videoBound int, entries []boundEntry) []byte {
	f := bits.Fields{
		{32, SystemHeaderStartCode},
		{16, uint64(systemHeaderSize(len(entries)) - 6)},
		{1, 1},
		{22, uint64(muxRate)},
		{1, 1},
		{6, uint64(audioBound)},
		// variable rate, not constrained
		{1, 0},
		{1, 0},
		// audio and video not locked
		{1, 0},
		{1, 0},
		{1, 1},
		{5, uint64(videoBound)},
		{8, 0xff},
	}
	for _, e := range entries {
		scale, size := uint64(1), uint64(e.size/1024)
		if e.audio {
			scale, size = 0, uint64(e.size/128)
		}
		f = append(f, bits.Fields{
			{8, uint64(e.id)},
			{2, 0x3},
			{1, scale},
			{13, size},
		}...)
	}
	return f.Marshal()
}

// pts encodes a 33 bit presentation time stamp with its '0010' prefix.
func pts(t int64) []byte {
	return bits.Fields{
		{4, 0x2},
		{3, uint64(t >> 30)},
		{1, 1},
		{15, uint64(t >> 15)},
		{1, 1},
		{15, uint64(t)},
		{1, 1},
	}.Marshal()
}

func paddingPacket(n int) []byte {
	b := make([]byte, n)
	b[2] = 1
	b[3] = PaddingStream
	b[4] = byte((n - PESHeaderSize) >> 8)
	b[5] = byte(n - PESHeaderSize)
	for i := PESHeaderSize; i < n; i++ {
		b[i] = 0xff
	}
	return b
}
