// Package mux holds the container independent half of every muxer: the
// header/frames/trailer state machine, per stream bookkeeping and the fixed
// size packetizer.
package mux

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/av/avio"
)

var (
	ErrState            = errors.New("mux: operation not allowed in this state")
	ErrTimeOrder        = errors.New("mux: timestamp goes backwards")
	ErrPacketTooSmall   = errors.New("mux: packet size can not hold one fragment")
	ErrStreamLayout     = errors.New("mux: unsupported stream layout")
	ErrUnsupportedCodec = errors.New("mux: codec not supported by format")
)

type State int

const (
	Uninitialized State = iota
	HeaderWritten
	Streaming
	Finalized
)

func (self State) String() string {
	switch self {
	case Uninitialized:
		return "uninitialized"
	case HeaderWritten:
		return "header_written"
	case Streaming:
		return "streaming"
	case Finalized:
		return "finalized"
	}
	return "?"
}

// Info is the static description of a container format.
type Info struct {
	Name        string
	Ext         string
	Mime        string
	AudioCodecs []av.CodecType
	VideoCodecs []av.CodecType
}

func (self Info) supports(typ av.CodecType) bool {
	list := self.VideoCodecs
	if typ.IsAudio() {
		list = self.AudioCodecs
	}
	for _, t := range list {
		if t == typ {
			return true
		}
	}
	return false
}

// Format writes one container layout. The Muxer calls it only in a valid
// state, with streams already validated and timestamps in order.
type Format interface {
	Info() Info
	WriteHeader(m *Muxer) error
	WriteAudio(m *Muxer, stream *Stream, pkt av.Packet) error
	WriteVideo(m *Muxer, stream *Stream, pkt av.Packet) error
	WriteTrailer(m *Muxer) error
}

type Option func(*Muxer)

func WithLogger(log *logrus.Entry) Option {
	return func(m *Muxer) {
		m.Log = log
	}
}

// WithCloser makes Close close c after the trailer is written.
func WithCloser(c io.Closer) Option {
	return func(m *Muxer) {
		m.closer = c
	}
}

type Muxer struct {
	W       *avio.Writer
	Streams []*Stream
	Log     *logrus.Entry

	format Format
	info   Info
	state  State
	err    error
	closer io.Closer
}

func New(w *avio.Writer, f Format, opts ...Option) *Muxer {
	self := &Muxer{
		W:      w,
		format: f,
		info:   f.Info(),
	}
	for _, opt := range opts {
		opt(self)
	}
	if self.Log == nil {
		self.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	self.Log = self.Log.WithField("format", self.info.Name)
	return self
}

func (self *Muxer) State() State {
	return self.state
}

func (self *Muxer) Format() Format {
	return self.format
}

// Audio returns the audio stream or nil.
func (self *Muxer) Audio() *Stream {
	for _, s := range self.Streams {
		if s.IsAudio() {
			return s
		}
	}
	return nil
}

// Video returns the video stream or nil.
func (self *Muxer) Video() *Stream {
	for _, s := range self.Streams {
		if s.IsVideo() {
			return s
		}
	}
	return nil
}

func (self *Muxer) fail(err error) error {
	self.err = err
	return err
}

func (self *Muxer) WriteHeader(codecs []av.CodecData) (err error) {
	if self.err != nil {
		return self.err
	}
	if self.state != Uninitialized {
		return ErrState
	}
	if len(codecs) == 0 || len(codecs) > 2 {
		return errors.Wrapf(ErrStreamLayout, "%s: %d streams", self.info.Name, len(codecs))
	}
	var naudio, nvideo int
	for _, c := range codecs {
		typ := c.Type()
		if !self.info.supports(typ) {
			return errors.Wrapf(ErrUnsupportedCodec, "%s: codec %v", self.info.Name, typ)
		}
		if typ.IsAudio() {
			naudio++
		} else {
			nvideo++
		}
	}
	if naudio > 1 || nvideo > 1 {
		return errors.Wrapf(ErrStreamLayout, "%s: %d audio and %d video streams", self.info.Name, naudio, nvideo)
	}

	self.Streams = nil
	for i, c := range codecs {
		self.Streams = append(self.Streams, newStream(i, c))
	}
	if err = self.format.WriteHeader(self); err != nil {
		return self.fail(errors.Wrapf(err, "%s: write header", self.info.Name))
	}
	if err = self.W.Flush(); err != nil {
		return self.fail(err)
	}
	self.state = HeaderWritten
	self.Log.WithField("streams", len(self.Streams)).Debug("header written")
	return
}

func (self *Muxer) WriteAudioFrame(pkt av.Packet) error {
	s := self.Audio()
	if s == nil {
		if self.state == Uninitialized {
			return ErrState
		}
		return errors.Wrap(ErrStreamLayout, "no audio stream")
	}
	pkt.Idx = int8(s.Idx)
	return self.WritePacket(pkt)
}

func (self *Muxer) WriteVideoFrame(pkt av.Packet) error {
	s := self.Video()
	if s == nil {
		if self.state == Uninitialized {
			return ErrState
		}
		return errors.Wrap(ErrStreamLayout, "no video stream")
	}
	pkt.Idx = int8(s.Idx)
	return self.WritePacket(pkt)
}

func (self *Muxer) WritePacket(pkt av.Packet) (err error) {
	if self.err != nil {
		return self.err
	}
	if self.state != HeaderWritten && self.state != Streaming {
		return ErrState
	}
	if int(pkt.Idx) < 0 || int(pkt.Idx) >= len(self.Streams) {
		return errors.Wrapf(ErrStreamLayout, "stream index %d", pkt.Idx)
	}
	s := self.Streams[pkt.Idx]
	if pkt.Time < 0 || (s.FrameCount > 0 && pkt.Time < s.LastTime) {
		return errors.Wrapf(ErrTimeOrder, "stream %d: %v after %v", s.Idx, pkt.Time, s.LastTime)
	}
	self.state = Streaming

	if s.IsAudio() {
		err = self.format.WriteAudio(self, s, pkt)
	} else {
		err = self.format.WriteVideo(self, s, pkt)
	}
	if err != nil {
		return self.fail(errors.Wrapf(err, "%s: write frame", self.info.Name))
	}
	s.update(pkt)
	if err = self.W.Flush(); err != nil {
		return self.fail(err)
	}
	return
}

func (self *Muxer) WriteTrailer() (err error) {
	if self.err != nil {
		return self.err
	}
	if self.state != HeaderWritten && self.state != Streaming {
		return ErrState
	}
	if err = self.format.WriteTrailer(self); err != nil {
		return self.fail(errors.Wrapf(err, "%s: write trailer", self.info.Name))
	}
	if err = self.W.Flush(); err != nil {
		return self.fail(err)
	}
	self.state = Finalized
	self.Log.WithField("bytes", self.W.Tell()).Debug("trailer written")
	return
}

// Close writes the trailer if the header was written and closes the
// destination given with WithCloser.
func (self *Muxer) Close() (err error) {
	if self.err == nil && (self.state == HeaderWritten || self.state == Streaming) {
		err = self.WriteTrailer()
	}
	if self.closer != nil {
		if cerr := self.closer.Close(); err == nil {
			err = cerr
		}
	}
	return
}

// Patch rewrites a reserved field when the destination is seekable and
// reports whether it did.
func (self *Muxer) Patch(off int64, b []byte) (ok bool, err error) {
	if !self.W.Seekable() {
		return false, nil
	}
	if err = self.W.PatchAt(off, b); err != nil {
		return
	}
	self.Log.WithField("offset", off).Debug("patched header field")
	return true, nil
}
