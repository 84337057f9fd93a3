// Package rm writes RealMedia files carrying RealVideo 1.0 and AC-3 audio.
package rm

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/format/mux"
)

const (
	PacketHeaderSize = 12
	DataHeaderSize   = 18
	indexHeaderSize  = 20
	indexEntrySize   = 14
	Preroll          = 500 * time.Millisecond

	// duration announced for live or empty streams
	liveDuration = time.Hour

	audioDesc     = "The Audio Stream"
	audioMime     = "audio/x-pn-realaudio"
	audioInfoSize = 73
	videoDesc     = "The Video Stream"
	videoMime     = "video/x-pn-realvideo"
	videoInfoSize = 34
)

var Info = mux.Info{
	Name:        "rm",
	Ext:         ".rm",
	Mime:        "application/vnd.rn-realmedia",
	AudioCodecs: []av.CodecType{av.AC3},
	VideoCodecs: []av.CodecType{av.RV10},
}

// Metadata fills the CONT chunk.
type Metadata struct {
	Title     string
	Author    string
	Copyright string
	Comment   string
}

type indexEntry struct {
	ms     uint32
	pos    uint32
	packet uint32
}

type streamStats struct {
	packets int
	total   int64
	max     int
	// key frame packets, in write order
	index []indexEntry
}

func (self streamStats) avg() int {
	if self.packets == 0 {
		return 0
	}
	return int(self.total / int64(self.packets))
}

func stats(s *mux.Stream) *streamStats {
	if st, ok := s.Priv.(*streamStats); ok {
		return st
	}
	st := &streamStats{}
	s.Priv = st
	return st
}

// Format writes .RMF, PROP, CONT and one MDPR per stream, then a DATA chunk
// of 12 byte packet headers. The header is rewritten with the final
// statistics when the output is seekable.
type Format struct {
	Metadata

	headerLen int
	dataPos   int64
	packets   uint32
	finished  bool
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

func (self *Format) WriteHeader(m *mux.Muxer) (err error) {
	for _, s := range m.Streams {
		stats(s)
	}
	var hdr []byte
	if hdr, err = self.header(m, 0, 0); err != nil {
		return
	}
	self.headerLen = len(hdr)
	m.W.Write(hdr)
	return m.W.Err()
}

func (self *Format) putPacketHeader(m *mux.Muxer, s *mux.Stream, t time.Duration, length int, key bool) error {
	ms := t / time.Millisecond
	if ms > 0xffffffff {
		return errors.Errorf("rm: timestamp %v out of range", t)
	}
	if length+PacketHeaderSize > 0xffff {
		return errors.Errorf("rm: packet of %d bytes too large", length)
	}
	w := m.W
	st := stats(s)
	st.packets++
	st.total += int64(length)
	if length > st.max {
		st.max = length
	}
	if key {
		st.index = append(st.index, indexEntry{ms: uint32(ms), pos: uint32(w.Tell()), packet: self.packets})
	}
	self.packets++

	w.WriteU16BE(0)
	w.WriteU16BE(uint16(length + PacketHeaderSize))
	w.WriteU16BE(uint16(s.Idx))
	w.WriteU32BE(uint32(ms))
	w.WriteU8(0)
	if key {
		w.WriteU8(2)
	} else {
		w.WriteU8(0)
	}
	return nil
}

// WriteAudio stores AC-3 frames with every 16 bit word byte swapped.
func (self *Format) WriteAudio(m *mux.Muxer, s *mux.Stream, pkt av.Packet) (err error) {
	if err = self.putPacketHeader(m, s, pkt.Time, len(pkt.Data), pkt.IsKeyFrame); err != nil {
		return
	}
	m.W.Write(swap16(pkt.Data))
	return m.W.Err()
}

func swap16(b []byte) []byte {
	out := make([]byte, len(b))
	i := 0
	for ; i+1 < len(b); i += 2 {
		out[i] = b[i+1]
		out[i+1] = b[i]
	}
	if i < len(b) {
		out[i] = b[i]
	}
	return out
}

// WriteVideo sends each frame as a single packet preceded by the RealVideo
// sub header: last-fragment marker, key flag with fragment number 1, total
// size and offset, then the frame sequence number.
func (self *Format) WriteVideo(m *mux.Muxer, s *mux.Stream, pkt av.Packet) (err error) {
	size := len(pkt.Data)
	if size >= 0x40000000 {
		return errors.Errorf("rm: frame of %d bytes too large", size)
	}
	long := size >= 0x4000
	sub := 7
	if long {
		sub += 4
	}
	if err = self.putPacketHeader(m, s, pkt.Time, size+sub, pkt.IsKeyFrame); err != nil {
		return
	}

	w := m.W
	w.WriteU8(0x81)
	if pkt.IsKeyFrame {
		w.WriteU8(0x81)
	} else {
		w.WriteU8(0x01)
	}
	if long {
		w.WriteU32BE(uint32(size))
		w.WriteU32BE(uint32(size))
	} else {
		w.WriteU16BE(uint16(0x4000 | size))
		w.WriteU16BE(uint16(0x4000 | size))
	}
	w.WriteU8(byte(s.FrameCount))
	w.Write(pkt.Data)
	return w.Err()
}

// writeIndex writes one INDX chunk per stream listing its key frame packets.
// Each chunk points at the next one; the last has a zero link.
func (self *Format) writeIndex(w *avio.Writer, streams []*mux.Stream) {
	for i, s := range streams {
		index := stats(s).index
		size := indexHeaderSize + indexEntrySize*len(index)
		next := uint32(0)
		if i < len(streams)-1 {
			next = uint32(w.Tell()) + uint32(size)
		}
		w.WriteTag("INDX")
		w.WriteU32BE(uint32(size))
		w.WriteU16BE(0)
		w.WriteU32BE(uint32(len(index)))
		w.WriteU16BE(uint16(s.Idx))
		w.WriteU32BE(next)
		for _, e := range index {
			w.WriteU16BE(0)
			w.WriteU32BE(e.ms)
			w.WriteU32BE(e.pos)
			w.WriteU32BE(e.packet)
		}
	}
}

func (self *Format) WriteTrailer(m *mux.Muxer) (err error) {
	w := m.W
	if !w.Seekable() {
		// end record only
		w.WriteZeros(8)
		return w.Err()
	}

	indexPos := w.Tell()
	dataSize := indexPos - self.dataPos - DataHeaderSize
	self.writeIndex(w, m.Streams)
	w.WriteZeros(8)
	if err = w.Err(); err != nil {
		return
	}

	self.finished = true
	var hdr []byte
	if hdr, err = self.header(m, dataSize, indexPos); err != nil {
		return
	}
	if len(hdr) != self.headerLen {
		return errors.Errorf("rm: header size changed from %d to %d", self.headerLen, len(hdr))
	}
	_, err = m.Patch(0, hdr)
	return
}
