package mux

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
)

// PacketLayout describes fixed size transport packets.
type PacketLayout struct {
	Size               int
	HeaderSize         int
	FragmentHeaderSize int
	// MaxFragments and MaxSpan force a flush when reached; 0 disables them.
	MaxFragments int
	MaxSpan      time.Duration
}

func (self PacketLayout) Validate() error {
	if self.HeaderSize < 0 || self.FragmentHeaderSize < 0 || self.Size <= self.HeaderSize+self.FragmentHeaderSize {
		return errors.Wrapf(ErrPacketTooSmall, "size %d, packet header %d, fragment header %d",
			self.Size, self.HeaderSize, self.FragmentHeaderSize)
	}
	return nil
}

// Payload is the room left for fragments in an empty packet.
func (self PacketLayout) Payload() int {
	return self.Size - self.HeaderSize
}

// Fragment is one contiguous piece of a frame placed in a packet.
type Fragment struct {
	Stream     *Stream
	Time       time.Duration
	Key        bool
	Seq        int
	ObjectSize int
	Offset     int
	Data       []byte
}

// Pending is the packet being filled.
type Pending struct {
	Buf       bytes.Buffer
	Left      int
	Start     time.Duration
	End       time.Duration
	Fragments int
}

type Packetizer struct {
	PacketLayout
	Pending

	// PutFragmentHeader appends exactly FragmentHeaderSize bytes describing f.
	PutFragmentHeader func(b *bytes.Buffer, f Fragment)
	// WritePacket emits a complete packet: header, p.Buf and p.Left bytes of padding.
	WritePacket func(p *Pending) error

	// Count is the number of packets written.
	Count int64
}

func NewPacketizer(layout PacketLayout, putHeader func(*bytes.Buffer, Fragment), writePacket func(*Pending) error) (self *Packetizer, err error) {
	if err = layout.Validate(); err != nil {
		return
	}
	self = &Packetizer{
		PacketLayout:      layout,
		PutFragmentHeader: putHeader,
		WritePacket:       writePacket,
	}
	self.reset()
	return
}

func (self *Packetizer) reset() {
	self.Buf.Reset()
	self.Left = self.Payload()
	self.Start = 0
	self.End = 0
	self.Fragments = 0
}

// Flush writes the pending packet if it holds any fragment.
func (self *Packetizer) Flush() (err error) {
	if self.Fragments == 0 {
		return
	}
	if err = self.WritePacket(&self.Pending); err != nil {
		return
	}
	self.Count++
	self.reset()
	return
}

func (self *Packetizer) full(t time.Duration) bool {
	if self.Fragments == 0 {
		return false
	}
	if self.MaxFragments > 0 && self.Fragments >= self.MaxFragments {
		return true
	}
	// streams are ordered independently, so t may fall before Start
	if self.MaxSpan > 0 && (t-self.Start > self.MaxSpan || self.End-t > self.MaxSpan) {
		return true
	}
	return false
}

// WriteFrame splits payload over as many packets as needed, sharing the
// pending packet with earlier frames, and advances the stream's Seq.
func (self *Packetizer) WriteFrame(stream *Stream, t time.Duration, key bool, payload []byte) (err error) {
	off := 0
	for off < len(payload) {
		if self.full(t) {
			if err = self.Flush(); err != nil {
				return
			}
		}
		space := self.Left - self.FragmentHeaderSize
		if space <= 0 {
			if err = self.Flush(); err != nil {
				return
			}
			space = self.Left - self.FragmentHeaderSize
		}
		n := len(payload) - off
		if n > space {
			n = space
		}

		f := Fragment{
			Stream:     stream,
			Time:       t,
			Key:        key,
			Seq:        stream.Seq,
			ObjectSize: len(payload),
			Offset:     off,
			Data:       payload[off : off+n],
		}
		self.PutFragmentHeader(&self.Buf, f)
		self.Buf.Write(f.Data)
		self.Left -= n + self.FragmentHeaderSize

		if self.Fragments == 0 {
			self.Start = t
			self.End = t
		} else {
			if t < self.Start {
				self.Start = t
			}
			if t > self.End {
				self.End = t
			}
		}
		self.Fragments++
		off += n

		if self.Left <= self.FragmentHeaderSize {
			if err = self.Flush(); err != nil {
				return
			}
		}
	}
	stream.Seq++
	return
}
