package mux

import (
	"time"

	"github.com/tyrese/avmux/av"
)

// Stream is the per elementary stream state kept while muxing.
type Stream struct {
	av.CodecData

	Idx           int
	BitRate       int
	FrameDuration time.Duration

	// Seq is the media object number used by packetized formats.
	Seq        int
	FrameCount int64
	ByteCount  int64
	MaxFrame   int

	// LastTime is the time of the last frame written.
	LastTime time.Duration
	// Duration is the end of the latest frame.
	Duration time.Duration

	// Priv is owned by the container format.
	Priv interface{}
}

func newStream(idx int, codec av.CodecData) *Stream {
	self := &Stream{
		CodecData:     codec,
		Idx:           idx,
		FrameDuration: av.FrameDuration(codec),
	}
	switch c := codec.(type) {
	case av.VideoCodecData:
		self.BitRate = c.BitRate()
	case av.AudioCodecData:
		self.BitRate = c.BitRate()
	}
	return self
}

func (self *Stream) IsAudio() bool {
	return self.Type().IsAudio()
}

func (self *Stream) IsVideo() bool {
	return self.Type().IsVideo()
}

func (self *Stream) Video() av.VideoCodecData {
	c, _ := self.CodecData.(av.VideoCodecData)
	return c
}

func (self *Stream) Audio() av.AudioCodecData {
	c, _ := self.CodecData.(av.AudioCodecData)
	return c
}

// Tag returns the FourCC or wave format tag of the codec, 0 when it has none.
func (self *Stream) Tag() uint32 {
	if c, ok := self.CodecData.(av.TagCodecData); ok {
		return c.Tag()
	}
	return 0
}

func (self *Stream) ExtraData() []byte {
	if c, ok := self.CodecData.(av.ExtraDataCodecData); ok {
		return c.ExtraData()
	}
	return nil
}

// NextTime is the constant frame rate timestamp of the next frame, for callers
// that do not carry timestamps of their own.
func (self *Stream) NextTime() time.Duration {
	return time.Duration(self.FrameCount) * self.FrameDuration
}

func (self *Stream) update(pkt av.Packet) {
	dur := pkt.Duration
	if dur == 0 {
		dur = self.FrameDuration
	}
	self.FrameCount++
	self.ByteCount += int64(len(pkt.Data))
	if len(pkt.Data) > self.MaxFrame {
		self.MaxFrame = len(pkt.Data)
	}
	self.LastTime = pkt.Time
	if end := pkt.Time + dur; end > self.Duration {
		self.Duration = end
	}
}
