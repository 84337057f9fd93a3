// Package mpeg writes MPEG-1 System streams (ISO 11172-1).
package mpeg

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/format/mux"
	"github.com/tyrese/avmux/utils/bits/pio"
)

const (
	DefaultPackSize = 2048
	DefaultPreroll  = 500 * time.Millisecond

	audioBufferSize = 4 * 1024
	videoBufferSize = 46 * 1024
)

var Info = mux.Info{
	Name:        "mpeg",
	Ext:         ".mpg",
	Mime:        "video/mpeg",
	AudioCodecs: []av.CodecType{av.MP2, av.MP3},
	VideoCodecs: []av.CodecType{av.MPEG1VIDEO},
}

type frameStart struct {
	pos int64
	pts int64
}

// elementary is the queue of one stream waiting to be cut into packs.
type elementary struct {
	id      byte
	queue   pio.Vec
	pos     int64
	end     int64
	starts  []frameStart
	packets int
}

func (self *elementary) push(data []byte, pts int64) {
	if len(data) == 0 {
		return
	}
	self.starts = append(self.starts, frameStart{self.end, pts})
	self.queue = append(self.queue, append([]byte(nil), data...))
	self.end += int64(len(data))
}

// take removes n bytes from the queue and returns them with the time stamp
// of the first frame starting inside them.
func (self *elementary) take(n int) (data pio.Vec, pts int64, ok bool) {
	data = self.queue.Slice(0, n)
	self.queue = self.queue.Drop(n)
	limit := self.pos + int64(n)
	if len(self.starts) > 0 && self.starts[0].pos < limit {
		pts, ok = self.starts[0].pts, true
	}
	for len(self.starts) > 0 && self.starts[0].pos < limit {
		self.starts = self.starts[1:]
	}
	self.pos = limit
	return
}

// Format cuts every stream into fixed size packs, each holding one PES
// packet. Packs start with a pack header every packHeaderFreq packs and a
// system header every systemHeaderFreq packs.
type Format struct {
	PackSize int
	Preroll  time.Duration

	muxRate          int
	packHeaderFreq   int
	systemHeaderFreq int
	packets          int
	bounds           []boundEntry
	audioBound       int
	videoBound       int
}

func NewFormat() *Format {
	return &Format{
		PackSize: DefaultPackSize,
		Preroll:  DefaultPreroll,
	}
}

func NewMuxer(w io.Writer, opts ...mux.Option) *mux.Muxer {
	return mux.New(avio.NewWriter(w), NewFormat(), opts...)
}

func (self *Format) Info() mux.Info {
	return Info
}

// NbPacks is the number of packs written so far.
func (self *Format) NbPacks() int {
	return self.packets
}

func es(s *mux.Stream) *elementary {
	return s.Priv.(*elementary)
}

func (self *Format) WriteHeader(m *mux.Muxer) (err error) {
	bitRate := 0
	self.bounds = nil
	self.audioBound, self.videoBound = 0, 0
	for _, s := range m.Streams {
		e := &elementary{}
		if s.IsAudio() {
			e.id = byte(AudioID + self.audioBound)
			self.audioBound++
			self.bounds = append(self.bounds, boundEntry{e.id, true, audioBufferSize})
		} else {
			e.id = byte(VideoID + self.videoBound)
			self.videoBound++
			self.bounds = append(self.bounds, boundEntry{e.id, false, videoBufferSize})
		}
		s.Priv = e
		bitRate += s.BitRate
	}

	if self.PackSize > 0xffff || self.payloadSize(0) <= 0 {
		return errors.Wrapf(mux.ErrPacketTooSmall, "pack size %d", self.PackSize)
	}
	self.muxRate = (bitRate + 8*50 - 1) / (8 * 50)
	if self.muxRate == 0 {
		self.muxRate = 1
	}
	// one pack header about every two seconds
	self.packHeaderFreq = 2 * bitRate / self.PackSize / 8
	if self.packHeaderFreq == 0 {
		self.packHeaderFreq = 1
	}
	self.systemHeaderFreq = self.packHeaderFreq * 5
	self.packets = 0
	m.Log.WithField("mux_rate", self.muxRate).WithField("pack_header_freq", self.packHeaderFreq).Debug("mpeg header")
	return
}

func (self *Format) headerSize(n int) (size int) {
	if n%self.packHeaderFreq == 0 {
		size += PackHeaderSize
		if n%self.systemHeaderFreq == 0 {
			size += systemHeaderSize(len(self.bounds))
		}
	}
	return
}

// payloadSize is the room for stream data in pack n.
func (self *Format) payloadSize(n int) int {
	if self.packHeaderFreq == 0 {
		// before WriteHeader: the first pack carries both headers
		return self.PackSize - PackHeaderSize - systemHeaderSize(len(self.bounds)) - PESHeaderSize - PTSSize
	}
	return self.PackSize - self.headerSize(n) - PESHeaderSize - PTSSize
}

// scr derives the system clock from the bytes already sent at mux rate.
func (self *Format) scr(m *mux.Muxer) int64 {
	return m.W.Tell() * 90000 / int64(self.muxRate*50)
}

func ticks(t time.Duration) int64 {
	return int64(t/time.Microsecond) * 9 / 100
}

func (self *Format) WriteAudio(m *mux.Muxer, s *mux.Stream, pkt av.Packet) error {
	return self.writeFrame(m, s, pkt)
}

func (self *Format) WriteVideo(m *mux.Muxer, s *mux.Stream, pkt av.Packet) error {
	return self.writeFrame(m, s, pkt)
}

func (self *Format) writeFrame(m *mux.Muxer, s *mux.Stream, pkt av.Packet) (err error) {
	e := es(s)
	e.push(pkt.Data, ticks(pkt.Time+self.Preroll))
	for e.queue.Len() >= self.payloadSize(self.packets) {
		if err = self.flushPacket(m, e); err != nil {
			return
		}
	}
	return
}

// flushPacket writes one pack with as much of e as fits. A short payload is
// completed with stuffing bytes when few are missing, with a padding packet
// otherwise.
func (self *Format) flushPacket(m *mux.Muxer, e *elementary) (err error) {
	w := m.W
	if self.packets%self.packHeaderFreq == 0 {
		w.Write(packHeader(self.scr(m), self.muxRate))
		if self.packets%self.systemHeaderFreq == 0 {
			w.Write(systemHeader(self.muxRate, self.audioBound, self.videoBound, self.bounds))
		}
	}

	capacity := self.payloadSize(self.packets)
	n := e.queue.Len()
	if n > capacity {
		n = capacity
	}
	data, t, hasPTS := e.take(n)

	tsLen := 1
	if hasPTS {
		tsLen = PTSSize
	}
	// an unused time stamp slot becomes stuffing
	stuffing := capacity - n + PTSSize - tsLen
	padding := 0
	if stuffing > maxStuffing {
		padding = capacity - n
		stuffing = PTSSize - tsLen
	}

	w.WriteU24BE(1)
	w.WriteU8(e.id)
	w.WriteU16BE(uint16(stuffing + tsLen + n))
	for i := 0; i < stuffing; i++ {
		w.WriteU8(0xff)
	}
	if hasPTS {
		w.Write(pts(t))
	} else {
		w.WriteU8(0x0f)
	}
	for _, b := range data {
		w.Write(b)
	}
	if padding > 0 {
		w.Write(paddingPacket(padding))
	}

	self.packets++
	e.packets++
	return w.Err()
}

func (self *Format) WriteTrailer(m *mux.Muxer) (err error) {
	for _, s := range m.Streams {
		e := es(s)
		for e.queue.Len() > 0 {
			if err = self.flushPacket(m, e); err != nil {
				return
			}
		}
	}
	m.W.WriteU32BE(EndCode)
	m.Log.WithField("packs", self.packets).Debug("mpeg trailer")
	return m.W.Err()
}
