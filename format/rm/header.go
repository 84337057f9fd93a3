package rm

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/format/mux"
)

func putStr16(w *avio.Writer, s string) {
	w.WriteU16BE(uint16(len(s)))
	w.WriteString(s)
}

func putStr8(w *avio.Writer, s string) {
	w.WriteU8(uint8(len(s)))
	w.WriteString(s)
}

func (self *Format) streamDuration(m *mux.Muxer, s *mux.Stream) time.Duration {
	if !self.finished || !m.W.Seekable() || s.FrameCount == 0 {
		return liveDuration
	}
	return s.Duration
}

// header renders everything before the first data packet. dataSize is the
// size of the packets; it and indexPos are zero until the trailer knows them.
func (self *Format) header(m *mux.Muxer, dataSize, indexPos int64) (b []byte, err error) {
	for _, str := range []string{self.Title, self.Author, self.Copyright, self.Comment} {
		if len(str) > 0xffff {
			return nil, errors.Errorf("rm: metadata string of %d bytes too long", len(str))
		}
	}
	w, buf := avio.NewMemWriter()

	w.WriteTag(".RMF")
	w.WriteU32BE(18)
	w.WriteU16BE(0)
	w.WriteU32BE(0)
	w.WriteU32BE(uint32(4 + len(m.Streams)))

	var bitRate, maxPacket, packets int
	var total int64
	var duration time.Duration
	for _, s := range m.Streams {
		st := stats(s)
		bitRate += s.BitRate
		if st.max > maxPacket {
			maxPacket = st.max
		}
		packets += st.packets
		total += st.total
		if s.Duration > duration {
			duration = s.Duration
		}
	}
	avgPacket := 0
	if packets > 0 {
		avgPacket = int(total / int64(packets))
	}

	w.WriteTag("PROP")
	w.WriteU32BE(50)
	w.WriteU16BE(0)
	w.WriteU32BE(uint32(bitRate))
	w.WriteU32BE(uint32(bitRate))
	w.WriteU32BE(uint32(maxPacket))
	w.WriteU32BE(uint32(avgPacket))
	w.WriteU32BE(uint32(packets))
	w.WriteU32BE(uint32(duration / time.Millisecond))
	w.WriteU32BE(uint32(Preroll / time.Millisecond))
	w.WriteU32BE(uint32(indexPos))
	dataOffsetPos := w.Tell()
	w.WriteU32BE(0)
	w.WriteU16BE(uint16(len(m.Streams)))
	// save allowed, perfect play
	flags := uint16(1 | 2)
	if !m.W.Seekable() {
		// live broadcast
		flags |= 4
	}
	w.WriteU16BE(flags)

	w.WriteTag("CONT")
	w.WriteU32BE(uint32(len(self.Title) + len(self.Author) + len(self.Copyright) + len(self.Comment) + 4*2 + 10))
	w.WriteU16BE(0)
	putStr16(w, self.Title)
	putStr16(w, self.Author)
	putStr16(w, self.Copyright)
	putStr16(w, self.Comment)

	for _, s := range m.Streams {
		if err = self.mediaProperties(w, m, s); err != nil {
			return
		}
	}

	self.dataPos = w.Tell()
	w.WriteTag("DATA")
	w.WriteU32BE(uint32(dataSize + DataHeaderSize))
	w.WriteU16BE(0)
	w.WriteU32BE(uint32(packets))
	w.WriteU32BE(0)

	if err = w.PatchU32BE(dataOffsetPos, uint32(self.dataPos)); err != nil {
		return
	}
	if err = w.Flush(); err != nil {
		return
	}
	return buf.Bytes(), nil
}

func (self *Format) mediaProperties(w *avio.Writer, m *mux.Muxer, s *mux.Stream) (err error) {
	desc, mime, infoSize := videoDesc, videoMime, videoInfoSize
	if s.IsAudio() {
		desc, mime, infoSize = audioDesc, audioMime, audioInfoSize
	}
	st := stats(s)

	w.WriteTag("MDPR")
	w.WriteU32BE(uint32(10 + 9*4 + len(desc) + len(mime) + infoSize))
	w.WriteU16BE(0)
	w.WriteU16BE(uint16(s.Idx))
	w.WriteU32BE(uint32(s.BitRate))
	w.WriteU32BE(uint32(s.BitRate))
	w.WriteU32BE(uint32(st.max))
	w.WriteU32BE(uint32(st.avg()))
	w.WriteU32BE(0)
	w.WriteU32BE(uint32(Preroll / time.Millisecond))
	w.WriteU32BE(uint32(self.streamDuration(m, s) / time.Millisecond))
	putStr8(w, desc)
	putStr8(w, mime)
	w.WriteU32BE(uint32(infoSize))

	if s.IsAudio() {
		return putAudioInfo(w, s)
	}
	return putVideoInfo(w, s)
}

func sampleRateCode(rate int) uint16 {
	switch rate {
	case 48000, 24000, 12000:
		return 1
	case 32000, 16000, 8000:
		return 3
	}
	return 2
}

// putAudioInfo writes the 73 byte .ra4 descriptor.
func putAudioInfo(w *avio.Writer, s *mux.Stream) error {
	a := s.Audio()
	if a.SampleRate() <= 0 {
		return errors.Errorf("rm: invalid sample rate %d", a.SampleRate())
	}
	frameSize := s.BitRate * a.FrameSize() / (8 * a.SampleRate())
	// rounding of 448 kbit/s at 48 kHz
	if frameSize == 557 {
		frameSize--
	}

	w.WriteTag(".ra")
	w.WriteU8(0xfd)
	w.WriteU32BE(0x00040000)
	w.WriteTag(".ra4")
	w.WriteU32BE(0x01b53530)
	w.WriteU16BE(4)
	w.WriteU32BE(0x39)
	w.WriteU16BE(sampleRateCode(a.SampleRate()))
	w.WriteU32BE(uint32(frameSize))
	w.WriteU32BE(0x51540)
	// bytes per minute
	w.WriteU32BE(uint32(s.BitRate / 8 * 60))
	w.WriteU32BE(uint32(s.BitRate / 8 * 60))
	w.WriteU16BE(1)
	w.WriteU16BE(uint16(frameSize))
	w.WriteU32BE(0)
	w.WriteU16BE(uint16(a.SampleRate()))
	w.WriteU32BE(0x10)
	w.WriteU16BE(uint16(a.ChannelLayout().Count()))
	putStr8(w, "Int0")
	putStr8(w, "dnet")
	w.WriteU16BE(0)
	w.WriteU16BE(0)
	w.WriteU16BE(0)
	w.WriteU8(0)
	return nil
}

// putVideoInfo writes the 34 byte VIDORV10 descriptor.
func putVideoInfo(w *avio.Writer, s *mux.Stream) error {
	v := s.Video()
	num, den := v.Framerate()
	fps := 0
	if den > 0 {
		fps = num / den
	}
	w.WriteU32BE(videoInfoSize)
	w.WriteTag("VIDORV10")
	w.WriteU16BE(uint16(v.Width()))
	w.WriteU16BE(uint16(v.Height()))
	w.WriteU16BE(uint16(fps))
	w.WriteU32BE(0)
	w.WriteU16BE(uint16(fps))
	w.WriteU32BE(0)
	w.WriteU16BE(8)
	// basic H.263 bitstream
	w.WriteU32BE(0x10000000)
	return nil
}
