package rm

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/codec"
	"github.com/tyrese/avmux/format/mux"
	"github.com/tyrese/avmux/utils/bits/pio"
)

type chunk struct {
	tag  string
	off  int
	body []byte
}

func parseChunks(t *testing.T, b []byte) (chunks []chunk, rest []byte) {
	off := 0
	for off+8 <= len(b) {
		tag := string(b[off : off+4])
		if tag == "\x00\x00\x00\x00" {
			break
		}
		size := int(pio.U32BE(b[off+4:]))
		require.True(t, size >= 10 && off+size <= len(b), "chunk %q size %d", tag, size)
		chunks = append(chunks, chunk{tag: tag, off: off, body: b[off+8 : off+size]})
		off += size
	}
	return chunks, b[off:]
}

func tags(chunks []chunk) (s []string) {
	for _, c := range chunks {
		s = append(s, c.tag)
	}
	return
}

type packet struct {
	stream int
	time   time.Duration
	key    bool
	data   []byte
}

func parsePackets(t *testing.T, data []byte) (pkts []packet) {
	n := int(pio.U32BE(data[2:]))
	b := data[10:]
	for i := 0; i < n; i++ {
		require.Equal(t, uint16(0), pio.U16BE(b))
		size := int(pio.U16BE(b[2:]))
		pkts = append(pkts, packet{
			stream: int(pio.U16BE(b[4:])),
			time:   time.Duration(pio.U32BE(b[6:])) * time.Millisecond,
			key:    b[11] == 2,
			data:   b[PacketHeaderSize:size],
		})
		b = b[size:]
	}
	require.Empty(t, b)
	return
}

func quietLogger() mux.Option {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return mux.WithLogger(logrus.NewEntry(log))
}

func codecs() []av.CodecData {
	return []av.CodecData{
		codec.NewVideoCodecData(av.RV10, 176, 144, 25, 1, 200000),
		codec.NewAudioCodecData(av.AC3, 48000, av.CH_STEREO, 448000),
	}
}

func writeSession(t *testing.T, m *mux.Muxer) {
	require.NoError(t, m.WriteHeader(codecs()))
	require.NoError(t, m.WriteVideoFrame(av.Packet{IsKeyFrame: true, Data: bytes.Repeat([]byte{0xaa}, 100)}))
	require.NoError(t, m.WriteAudioFrame(av.Packet{IsKeyFrame: true, Data: []byte("0123456789")}))
	require.NoError(t, m.WriteVideoFrame(av.Packet{Time: 40 * time.Millisecond, Data: bytes.Repeat([]byte{0x55}, 20000)}))
	require.NoError(t, m.WriteTrailer())
}

func TestSeekableFile(t *testing.T) {
	w, buf := avio.NewMemWriter()
	m := mux.New(w, NewFormat(), quietLogger())
	writeSession(t, m)
	require.NoError(t, w.Flush())
	b := buf.Bytes()

	assert.True(t, mimetype.Detect(b).Is("application/vnd.rn-realmedia-vbr"))

	chunks, rest := parseChunks(t, b)
	require.Equal(t, []string{".RMF", "PROP", "CONT", "MDPR", "MDPR", "DATA", "INDX", "INDX"}, tags(chunks))
	assert.Equal(t, make([]byte, 8), rest)
	assert.Equal(t, uint32(6), pio.U32BE(chunks[0].body[6:]))

	prop := chunks[1].body[2:]
	assert.Equal(t, uint32(648000), pio.U32BE(prop[0:]))
	assert.Equal(t, uint32(20011), pio.U32BE(prop[8:]))
	assert.Equal(t, uint32((107+10+20011)/3), pio.U32BE(prop[12:]))
	assert.Equal(t, uint32(3), pio.U32BE(prop[16:]))
	assert.Equal(t, uint32(80), pio.U32BE(prop[20:]))
	assert.Equal(t, uint32(500), pio.U32BE(prop[24:]))
	assert.Equal(t, uint32(chunks[6].off), pio.U32BE(prop[28:]))
	assert.Equal(t, uint32(chunks[5].off), pio.U32BE(prop[32:]))
	assert.Equal(t, uint16(2), pio.U16BE(prop[36:]))
	assert.Equal(t, uint16(3), pio.U16BE(prop[38:]))
	assert.Equal(t, 357, chunks[5].off)

	video := chunks[3].body[2:]
	assert.Equal(t, uint16(0), pio.U16BE(video))
	assert.Equal(t, uint32(80), pio.U32BE(video[26:]))
	assert.Equal(t, videoDesc, string(video[31:31+len(videoDesc)]))
	info := video[len(video)-videoInfoSize:]
	assert.Equal(t, "VIDORV10", string(info[4:12]))
	assert.Equal(t, uint16(176), pio.U16BE(info[12:]))
	assert.Equal(t, uint16(144), pio.U16BE(info[14:]))
	assert.Equal(t, uint16(25), pio.U16BE(info[16:]))

	audio := chunks[4].body[2:]
	assert.Equal(t, uint16(1), pio.U16BE(audio))
	assert.Equal(t, uint32(32), pio.U32BE(audio[26:]))
	ra := audio[len(audio)-audioInfoSize:]
	assert.Equal(t, ".ra\xfd", string(ra[:4]))
	assert.Equal(t, uint16(1), pio.U16BE(ra[22:]))
	assert.Equal(t, uint32(1792), pio.U32BE(ra[24:]))
	assert.Equal(t, uint32(448000/8*60), pio.U32BE(ra[32:]))
	assert.Equal(t, uint32(448000/8*60), pio.U32BE(ra[36:]))
	assert.Equal(t, uint16(48000), pio.U16BE(ra[48:]))
	assert.Equal(t, uint16(2), pio.U16BE(ra[54:]))

	pkts := parsePackets(t, chunks[5].body)
	require.Len(t, pkts, 3)

	assert.Equal(t, 0, pkts[0].stream)
	assert.True(t, pkts[0].key)
	assert.Equal(t, []byte{0x81, 0x81, 0x40, 100, 0x40, 100, 0}, pkts[0].data[:7])
	assert.Equal(t, bytes.Repeat([]byte{0xaa}, 100), pkts[0].data[7:])

	assert.Equal(t, 1, pkts[1].stream)
	assert.Equal(t, []byte("1032547698"), pkts[1].data)

	assert.Equal(t, 40*time.Millisecond, pkts[2].time)
	assert.False(t, pkts[2].key)
	assert.Equal(t, []byte{0x81, 0x01, 0, 0, 0x4e, 0x20, 0, 0, 0x4e, 0x20, 1}, pkts[2].data[:11])
	assert.Len(t, pkts[2].data, 20011)

	first := 357 + DataHeaderSize
	videoIndex := parseIndex(t, chunks[6])
	assert.Equal(t, 0, videoIndex.stream)
	assert.Equal(t, chunks[7].off, videoIndex.next)
	assert.Equal(t, []indexEntry{{ms: 0, pos: uint32(first), packet: 0}}, videoIndex.entries)

	audioIndex := parseIndex(t, chunks[7])
	assert.Equal(t, 1, audioIndex.stream)
	assert.Equal(t, 0, audioIndex.next)
	assert.Equal(t, []indexEntry{{ms: 0, pos: uint32(first + 12 + 107), packet: 1}}, audioIndex.entries)
	assert.Equal(t, "\x00\x00", string(b[audioIndex.entries[0].pos:][:2]))
	assert.Equal(t, uint16(1), pio.U16BE(b[audioIndex.entries[0].pos+4:]))
}

type index struct {
	stream  int
	next    int
	entries []indexEntry
}

func parseIndex(t *testing.T, c chunk) (idx index) {
	require.Equal(t, "INDX", c.tag)
	b := c.body
	require.Equal(t, uint16(0), pio.U16BE(b))
	n := int(pio.U32BE(b[2:]))
	idx.stream = int(pio.U16BE(b[6:]))
	idx.next = int(pio.U32BE(b[8:]))
	b = b[12:]
	require.Len(t, b, indexEntrySize*n)
	for ; len(b) > 0; b = b[indexEntrySize:] {
		require.Equal(t, uint16(0), pio.U16BE(b))
		idx.entries = append(idx.entries, indexEntry{
			ms:     pio.U32BE(b[2:]),
			pos:    pio.U32BE(b[6:]),
			packet: pio.U32BE(b[10:]),
		})
	}
	return
}

func TestIndexListsKeyFramesPerStream(t *testing.T) {
	w, buf := avio.NewMemWriter()
	m := mux.New(w, NewFormat(), quietLogger())
	require.NoError(t, m.WriteHeader(codecs()[:1]))
	for i := 0; i < 5; i++ {
		ts := time.Duration(i) * 40 * time.Millisecond
		require.NoError(t, m.WriteVideoFrame(av.Packet{Time: ts, IsKeyFrame: i%2 == 0, Data: []byte{byte(i)}}))
	}
	require.NoError(t, m.WriteTrailer())
	require.NoError(t, w.Flush())

	chunks, _ := parseChunks(t, buf.Bytes())
	require.Equal(t, "INDX", chunks[len(chunks)-1].tag)
	idx := parseIndex(t, chunks[len(chunks)-1])
	assert.Equal(t, 0, idx.next)
	require.Len(t, idx.entries, 3)
	pkt := 12 + 7 + 1
	for i, e := range idx.entries {
		assert.Equal(t, uint32(80*i), e.ms)
		assert.Equal(t, uint32(2*i), e.packet)
		assert.Equal(t, uint32(chunks[len(chunks)-2].off+DataHeaderSize+2*i*pkt), e.pos)
	}
}

func TestLiveOutputNeverSeeks(t *testing.T) {
	var out bytes.Buffer
	w := avio.NewStreamWriter(&out)
	m := mux.New(w, NewFormat(), quietLogger())
	writeSession(t, m)
	assert.Equal(t, 0, w.SeekCount())

	b := out.Bytes()
	const headerLen = 357 + DataHeaderSize
	chunks, rest := parseChunks(t, b[:headerLen])
	require.Equal(t, []string{".RMF", "PROP", "CONT", "MDPR", "MDPR", "DATA"}, tags(chunks))
	assert.Empty(t, rest)
	assert.Len(t, b, headerLen+(12+107)+(12+10)+(12+20011)+8)
	assert.Equal(t, make([]byte, 8), b[len(b)-8:])

	prop := chunks[1].body[2:]
	assert.Equal(t, uint32(0), pio.U32BE(prop[16:]))
	assert.Equal(t, uint16(7), pio.U16BE(prop[38:]))
	video := chunks[3].body[2:]
	assert.Equal(t, uint32(3600000), pio.U32BE(video[26:]))
}

func TestContentDescription(t *testing.T) {
	w, buf := avio.NewMemWriter()
	f := NewFormat()
	f.Title = "title"
	f.Comment = "hello"
	m := mux.New(w, f, quietLogger())
	require.NoError(t, m.WriteHeader(codecs()[:1]))
	require.NoError(t, m.WriteTrailer())
	require.NoError(t, w.Flush())

	chunks, _ := parseChunks(t, buf.Bytes())
	cont := chunks[2].body[2:]
	assert.Equal(t, []byte("\x00\x05title\x00\x00\x00\x00\x00\x05hello"), cont)
	assert.Equal(t, uint32(5), pio.U32BE(chunks[0].body[6:]))
}

func TestSwap16(t *testing.T) {
	assert.Equal(t, []byte{2, 1, 4, 3, 5}, swap16([]byte{1, 2, 3, 4, 5}))
	assert.Empty(t, swap16(nil))
}

func TestUnsupportedCodec(t *testing.T) {
	w, _ := avio.NewMemWriter()
	m := mux.New(w, NewFormat(), quietLogger())
	err := m.WriteHeader([]av.CodecData{codec.NewAudioCodecData(av.MP3, 44100, av.CH_STEREO, 128000)})
	assert.Equal(t, mux.ErrUnsupportedCodec, errors.Cause(err))
}
