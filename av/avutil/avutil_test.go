package avutil

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/codec"
	"github.com/tyrese/avmux/format/mux"
)

type fakeDemuxer struct {
	streams []av.CodecData
	pkts    []av.Packet
}

func (self *fakeDemuxer) Streams() ([]av.CodecData, error) {
	return self.streams, nil
}

func (self *fakeDemuxer) ReadPacket() (pkt av.Packet, err error) {
	if len(self.pkts) == 0 {
		err = io.EOF
		return
	}
	pkt, self.pkts = self.pkts[0], self.pkts[1:]
	return
}

type recorder struct {
	streams []av.CodecData
	pkts    []av.Packet
	trailer bool
	fail    error
}

func (self *recorder) WriteHeader(streams []av.CodecData) error {
	self.streams = streams
	return nil
}

func (self *recorder) WritePacket(pkt av.Packet) error {
	if self.fail != nil {
		return self.fail
	}
	self.pkts = append(self.pkts, pkt)
	return nil
}

func (self *recorder) WriteTrailer() error {
	self.trailer = true
	return nil
}

type nopFormat struct {
	info   mux.Info
	seekOK bool
}

func (self *nopFormat) Info() mux.Info {
	return self.info
}

func (self *nopFormat) WriteHeader(m *mux.Muxer) error {
	self.seekOK = m.W.Seekable()
	return nil
}

func (self *nopFormat) WriteAudio(m *mux.Muxer, s *mux.Stream, pkt av.Packet) error {
	return nil
}

func (self *nopFormat) WriteVideo(m *mux.Muxer, s *mux.Stream, pkt av.Packet) error {
	return nil
}

func (self *nopFormat) WriteTrailer(m *mux.Muxer) error {
	return nil
}

func handler(name, ext string, magic string, f *nopFormat) func(*RegisterHandler) {
	return func(h *RegisterHandler) {
		f.info = mux.Info{Name: name, Ext: ext, AudioCodecs: []av.CodecType{av.MP3}}
		h.SetInfo(f.info)
		h.Probe = func(b []byte) bool {
			return bytes.HasPrefix(b, []byte(magic))
		}
		h.WriterMuxer = func(w *avio.Writer, opts ...mux.Option) *mux.Muxer {
			return mux.New(w, f, opts...)
		}
	}
}

func TestFindAndDetect(t *testing.T) {
	a, b := &nopFormat{}, &nopFormat{}
	h := NewHandlers(handler("one", ".one", "ONE", a), handler("one_stream", ".one", "1NE", b))

	found, ok := h.FindByExt("ONE")
	require.True(t, ok)
	assert.Equal(t, "one", found.Name)
	assert.False(t, found.Streamed())

	found, ok = h.Find("one_stream")
	require.True(t, ok)
	assert.True(t, found.Streamed())

	found, _, ok = h.Detect([]byte("1NE..."))
	require.True(t, ok)
	assert.Equal(t, "one_stream", found.Name)

	_, _, ok = h.Detect([]byte("nothing"))
	assert.False(t, ok)
	assert.Len(t, h.List(), 2)
}

// A streamed format never sees a seekable writer, even over a seekable file.
func TestNewMuxerPicksWriter(t *testing.T) {
	a, b := &nopFormat{}, &nopFormat{}
	h := NewHandlers(handler("one", ".one", "ONE", a), handler("one_stream", ".one", "1NE", b))
	streams := []av.CodecData{codec.NewAudioCodecData(av.MP3, 44100, av.CH_STEREO, 128000)}

	w, _ := avio.NewMemWriter()
	m, err := h.NewMuxer("one", struct {
		io.Writer
		io.Seeker
	}{w, w})
	require.NoError(t, err)
	require.NoError(t, m.WriteHeader(streams))
	assert.True(t, a.seekOK)

	m, err = h.NewMuxer("one_stream", struct {
		io.Writer
		io.Seeker
	}{w, w})
	require.NoError(t, err)
	require.NoError(t, m.WriteHeader(streams))
	assert.False(t, b.seekOK)

	_, err = h.NewMuxer("two", w)
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestCopyFile(t *testing.T) {
	src := &fakeDemuxer{
		streams: []av.CodecData{codec.NewAudioCodecData(av.MP3, 44100, av.CH_STEREO, 128000)},
		pkts:    []av.Packet{{Data: []byte{1}}, {Data: []byte{2}}},
	}
	dst := &recorder{}
	require.NoError(t, CopyFile(dst, src))
	assert.Len(t, dst.streams, 1)
	assert.Len(t, dst.pkts, 2)
	assert.True(t, dst.trailer)

	boom := errors.New("boom")
	src.pkts = []av.Packet{{Data: []byte{1}}}
	dst = &recorder{fail: boom}
	assert.Equal(t, boom, CopyFile(dst, src))
	assert.False(t, dst.trailer)
}

func TestCopyFileContext(t *testing.T) {
	newSrc := func() *fakeDemuxer {
		return &fakeDemuxer{
			streams: []av.CodecData{codec.NewAudioCodecData(av.MP3, 44100, av.CH_STEREO, 128000)},
			pkts:    []av.Packet{{Data: []byte{1}}, {Data: []byte{2}}},
		}
	}

	dst := &recorder{}
	require.NoError(t, CopyFileContext(context.Background(), dst, newSrc()))
	assert.Len(t, dst.pkts, 2)
	assert.True(t, dst.trailer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dst = &recorder{}
	assert.Equal(t, context.Canceled, CopyFileContext(ctx, dst, newSrc()))
	assert.Empty(t, dst.pkts)
	assert.True(t, dst.trailer)

	boom := errors.New("boom")
	dst = &recorder{fail: boom}
	assert.Equal(t, boom, CopyFileContext(context.Background(), dst, newSrc()))
	assert.False(t, dst.trailer)
}
