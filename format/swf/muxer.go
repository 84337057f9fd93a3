// Package swf writes Flash movies that play MJPEG video as a sequence of
// JPEG bitmaps and stream MP3 audio.
package swf

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
	// placeholders left in place when the output can not be patched
	DummyFileSize = 100 * 1024 * 1024
	DummyDuration = 600 * time.Second

	twips    = 20
	shapeID  = 1
	bitmapID = 0
	depth    = 1
)

var Info = mux.Info{
	Name:        "swf",
	Ext:         ".swf",
	Mime:        "application/x-shockwave-flash",
	AudioCodecs: []av.CodecType{av.MP3},
	VideoCodecs: []av.CodecType{av.MJPEG},
}

type Format struct {
	width, height int
	fpsNum        int
	fpsDen        int

	frameCountPos int64
}

func NewFormat() *Format {
	return &Format{}
}

func NewMuxer(w io.Writer, opts ...mux.Option) *mux.Muxer {
	return mux.New(avio.NewWriter(w), NewFormat(), opts...)
}

func (self *Format) Info() mux.Info {
	return Info
}

func soundRate(rate int) (code byte, ok bool) {
	switch rate {
	case 11025:
		return 1, true
	case 22050:
		return 2, true
	case 44100:
		return 3, true
	}
	return 0, false
}

func (self *Format) WriteHeader(m *mux.Muxer) (err error) {
	self.width, self.height, self.fpsNum, self.fpsDen = 320, 200, 10, 1
	if v := m.Video(); v != nil {
		c := v.Video()
		self.width, self.height = c.Width(), c.Height()
		if num, den := c.Framerate(); num > 0 && den > 0 {
			self.fpsNum, self.fpsDen = num, den
		}
	}
	var soundFlags byte
	a := m.Audio()
	if a != nil {
		rate, ok := soundRate(a.Audio().SampleRate())
		if !ok {
			return errors.Wrapf(mux.ErrUnsupportedCodec, "swf: sample rate %d", a.Audio().SampleRate())
		}
		// MP3, 16 bit samples
		soundFlags = 0x20 | rate<<2 | 0x02
		if a.Audio().ChannelLayout().Count() == 2 {
			soundFlags |= 1
		}
	}

	w := m.W
	w.WriteString("FWS")
	if a != nil {
		w.WriteU8(4)
	} else {
		w.WriteU8(3)
	}
	w.WriteU32LE(DummyFileSize)
	w.Write(rect(0, self.width*twips, 0, self.height*twips))
	w.WriteU16LE(uint16(self.fpsNum * 256 / self.fpsDen))
	self.frameCountPos = w.Tell()
	w.WriteU16LE(uint16(int64(DummyDuration/time.Second) * int64(self.fpsNum) / int64(self.fpsDen)))

	if m.Video() != nil {
		putTag(w, TagDefineShape, defineShape(shapeID, bitmapID, self.width, self.height), false)
	}
	if a != nil {
		var b [6]byte
		b[0] = soundFlags &^ 0x20
		b[1] = soundFlags
		// average samples per frame, then MP3 latency seek
		pio.PutU16LE(b[2:], uint16(a.Audio().SampleRate()*self.fpsDen/self.fpsNum))
		putTag(w, TagStreamHead, b[:], false)
	}
	return w.Err()
}

// WriteVideo replaces the bitmap shown by the shape with the new JPEG and
// shows one frame.
func (self *Format) WriteVideo(m *mux.Muxer, s *mux.Stream, pkt av.Packet) error {
	w := m.W
	if s.FrameCount > 0 {
		putTag(w, TagRemoveObject, []byte{shapeID, 0, depth, 0}, false)
		putTag(w, TagFreeChar, []byte{bitmapID, 0}, false)
	}

	body := make([]byte, 0, 6+len(pkt.Data))
	body = append(body, bitmapID, 0)
	// empty encoding table
	body = append(body, 0xff, 0xd8, 0xff, 0xd9)
	body = append(body, pkt.Data...)
	putTag(w, TagJPEG2, body, true)

	place := append([]byte{shapeID, 0, depth, 0}, matrix(twips<<fracBits, 0, 0, twips<<fracBits, 0, 0)...)
	putTag(w, TagPlaceObject, place, false)
	putTag(w, TagShowFrame, nil, false)
	return w.Err()
}

// WriteAudio wraps each MP3 frame in a sound stream block.
func (self *Format) WriteAudio(m *mux.Muxer, s *mux.Stream, pkt av.Packet) error {
	body := make([]byte, 4, 4+len(pkt.Data))
	pio.PutU16LE(body, uint16(s.Audio().FrameSize()))
	body = append(body, pkt.Data...)
	putTag(m.W, TagStreamBlock, body, true)
	return m.W.Err()
}

func (self *Format) WriteTrailer(m *mux.Muxer) (err error) {
	w := m.W
	putTag(w, TagEnd, nil, false)
	if err = w.Flush(); err != nil {
		return
	}

	v := m.Video()
	if v == nil {
		return
	}
	var b [4]byte
	pio.PutU32LE(b[:], uint32(w.Tell()))
	var ok bool
	if ok, err = m.Patch(4, b[:]); err != nil || !ok {
		return
	}
	pio.PutU16LE(b[:], uint16(v.FrameCount))
	_, err = m.Patch(self.frameCountPos, b[:2])
	return
}
