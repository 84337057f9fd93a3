// Package pktque provides packet filters applied between a demuxer and a
// muxer.
package pktque

import (
	"io"
	"time"

	"github.com/tyrese/avmux/av"
)

type Filter interface {
	// ModifyPacket may change pkt in place, ask for it to be dropped, or
	// stop the stream by returning io.EOF.
	ModifyPacket(pkt *av.Packet, streams []av.CodecData, videoidx int, audioidx int) (drop bool, err error)
}

type Filters []Filter

func (self Filters) ModifyPacket(pkt *av.Packet, streams []av.CodecData, videoidx int, audioidx int) (drop bool, err error) {
	for _, filter := range self {
		if drop, err = filter.ModifyPacket(pkt, streams, videoidx, audioidx); err != nil {
			return
		}
		if drop {
			return
		}
	}
	return
}

// FilterDemuxer runs every packet of Demuxer through Filter.
type FilterDemuxer struct {
	av.Demuxer
	Filter   Filter
	streams  []av.CodecData
	videoidx int
	audioidx int
}

func (self *FilterDemuxer) Streams() (streams []av.CodecData, err error) {
	if self.streams == nil {
		if self.streams, err = self.Demuxer.Streams(); err != nil {
			return
		}
		self.videoidx, self.audioidx = -1, -1
		for i, stream := range self.streams {
			if stream.Type().IsVideo() {
				self.videoidx = i
			} else if stream.Type().IsAudio() {
				self.audioidx = i
			}
		}
	}
	return self.streams, nil
}

func (self *FilterDemuxer) ReadPacket() (pkt av.Packet, err error) {
	if _, err = self.Streams(); err != nil {
		return
	}
	for {
		if pkt, err = self.Demuxer.ReadPacket(); err != nil {
			return
		}
		var drop bool
		if drop, err = self.Filter.ModifyPacket(&pkt, self.streams, self.videoidx, self.audioidx); err != nil {
			return
		}
		if !drop {
			break
		}
	}
	return
}

// WaitKeyFrame drops everything before the first video key frame.
type WaitKeyFrame struct {
	ok bool
}

func (self *WaitKeyFrame) ModifyPacket(pkt *av.Packet, streams []av.CodecData, videoidx int, audioidx int) (drop bool, err error) {
	if videoidx < 0 {
		return
	}
	if !self.ok && int(pkt.Idx) == videoidx && pkt.IsKeyFrame {
		self.ok = true
	}
	drop = !self.ok
	return
}

type FixTime struct {
	zerobase time.Duration
	started  bool
	incrbase time.Duration
	lasttime time.Duration

	// StartFromZero shifts all times so the first packet is at zero.
	StartFromZero bool
	// MakeIncrement folds backward jumps and gaps over 500ms out of the
	// timeline.
	MakeIncrement bool
}

func (self *FixTime) ModifyPacket(pkt *av.Packet, streams []av.CodecData, videoidx int, audioidx int) (drop bool, err error) {
	if self.StartFromZero {
		if !self.started {
			self.zerobase = pkt.Time
			self.started = true
		}
		pkt.Time -= self.zerobase
	}

	if self.MakeIncrement {
		pkt.Time -= self.incrbase
		if self.lasttime == 0 {
			self.lasttime = pkt.Time
		}
		if pkt.Time < self.lasttime || pkt.Time > self.lasttime+time.Millisecond*500 {
			self.incrbase += pkt.Time - self.lasttime
			pkt.Time = self.lasttime
		}
		self.lasttime = pkt.Time
	}
	return
}

// Limit ends the stream at the first packet at or past Duration.
type Limit struct {
	Duration time.Duration
}

func (self Limit) ModifyPacket(pkt *av.Packet, streams []av.CodecData, videoidx int, audioidx int) (drop bool, err error) {
	if self.Duration > 0 && pkt.Time >= self.Duration {
		err = io.EOF
	}
	return
}
