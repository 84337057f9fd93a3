package asf

import (
	"bytes"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/format/asf/asfio"
	"github.com/tyrese/avmux/format/mux"
	"github.com/tyrese/avmux/utils/bits/pio"
)

const (
	DefaultPacketSize  = 3200
	PacketHeaderSize   = 12
	FragmentHeaderSize = 17
	DefaultPreroll     = 3100 * time.Millisecond
	MaxFragments       = 63
	MaxPacketSpan      = 65535 * time.Millisecond
	MinPacketSize      = 100
	MaxPacketSize      = 65536

	indexInterval = 10000000
	// 100ns units between 1601-01-01 and 1970-01-01
	fileTimeEpoch = 116444736000000000
)

// ErrPacketTooLarge is returned for packets whose length fields would not fit 16 bits.
var ErrPacketTooLarge = errors.New("asf: packet size above 65536")

var Info = mux.Info{
	Name:        "asf",
	Ext:         ".asf",
	Mime:        "video/x-ms-asf",
	AudioCodecs: []av.CodecType{av.MP2, av.MP3, av.AC3, av.PCM_S16LE, av.WMAV2, av.AAC},
	VideoCodecs: []av.CodecType{av.MSMPEG4V3, av.MPEG4, av.WMV1, av.WMV2, av.MJPEG, av.H263, av.H264},
}

var StreamInfo = mux.Info{
	Name:        "asf_stream",
	Ext:         ".asf",
	Mime:        Info.Mime,
	AudioCodecs: Info.AudioCodecs,
	VideoCodecs: Info.VideoCodecs,
}

type Metadata struct {
	Title     string
	Author    string
	Copyright string
	Comment   string
	Rating    string
}

func (self Metadata) empty() bool {
	return self == Metadata{}
}

type indexEntry struct {
	packetNumber uint32
	packetCount  uint16
}

// Format writes Advanced Systems Format files. In streamed mode the header,
// every data packet and the end of stream are wrapped in chunk records and
// the output is never seeked.
type Format struct {
	Streamed     bool
	PacketSize   int
	Preroll      time.Duration
	FileID       asfio.GUID
	CreationTime time.Time
	Metadata

	pk         *mux.Packetizer
	headerLen  int
	dataOffset int64
	chunkSeq   uint32

	index            []indexEntry
	maxPacketCount   uint16
	nextPacketNumber uint32
	nextPacketCount  uint16
	endSec           int
}

func NewFormat(streamed bool) *Format {
	return &Format{
		Streamed:     streamed,
		PacketSize:   DefaultPacketSize,
		Preroll:      DefaultPreroll,
		FileID:       asfio.NewFileID(),
		CreationTime: time.Now(),
	}
}

// NewMuxer returns a muxer writing a seekable ASF file to w.
func NewMuxer(w io.Writer, opts ...mux.Option) *mux.Muxer {
	return mux.New(avio.NewWriter(w), NewFormat(false), opts...)
}

// NewStreamMuxer returns a muxer writing streamed ASF to w.
func NewStreamMuxer(w io.Writer, opts ...mux.Option) *mux.Muxer {
	return mux.New(avio.NewStreamWriter(w), NewFormat(true), opts...)
}

func (self *Format) Info() mux.Info {
	if self.Streamed {
		return StreamInfo
	}
	return Info
}

// NbPackets is the number of data packets written so far.
func (self *Format) NbPackets() int64 {
	if self.pk == nil {
		return 0
	}
	return self.pk.Count
}

func (self *Format) WriteHeader(m *mux.Muxer) (err error) {
	if self.PacketSize < MinPacketSize {
		return errors.Wrapf(mux.ErrPacketTooSmall, "asf: packet size %d", self.PacketSize)
	}
	if self.PacketSize > MaxPacketSize {
		return errors.Wrapf(ErrPacketTooLarge, "asf: packet size %d", self.PacketSize)
	}
	layout := mux.PacketLayout{
		Size:               self.PacketSize,
		HeaderSize:         PacketHeaderSize,
		FragmentHeaderSize: FragmentHeaderSize,
		MaxFragments:       MaxFragments,
		MaxSpan:            MaxPacketSpan,
	}
	if self.pk, err = mux.NewPacketizer(layout, self.putFragmentHeader, func(p *mux.Pending) error {
		return self.writePacket(m, p)
	}); err != nil {
		return
	}

	var hdr []byte
	if hdr, err = self.header(m, 0, asfio.DataHeaderSize); err != nil {
		return
	}
	self.headerLen = len(hdr)
	if self.Streamed {
		self.putChunk(m.W, asfio.ChunkHeader, len(hdr), 0xc00)
	}
	self.dataOffset = m.W.Tell() + int64(len(hdr)) - asfio.DataHeaderSize
	m.W.Write(hdr)
	return m.W.Err()
}

func (self *Format) putChunk(w *avio.Writer, typ uint16, n int, flags uint16) {
	var b [asfio.ChunkHeaderSize]byte
	asfio.PutChunk(b[:], typ, n, self.chunkSeq, flags)
	self.chunkSeq++
	w.Write(b[:])
}

func (self *Format) putFragmentHeader(b *bytes.Buffer, f mux.Fragment) {
	var h [FragmentHeaderSize]byte
	h[0] = byte(f.Stream.Idx + 1)
	if f.Key {
		h[0] |= 0x80
	}
	h[1] = byte(f.Seq)
	pio.PutU32LE(h[2:], uint32(f.Offset))
	h[6] = 8
	pio.PutU32LE(h[7:], uint32(f.ObjectSize))
	pio.PutU32LE(h[11:], uint32((f.Time+self.Preroll)/time.Millisecond))
	pio.PutU16LE(h[15:], uint16(len(f.Data)))
	b.Write(h[:])
}

func (self *Format) writePacket(m *mux.Muxer, p *mux.Pending) error {
	w := m.W
	if self.Streamed {
		self.putChunk(w, asfio.ChunkData, self.PacketSize, 0)
	}

	flags := byte(0x01)
	pad := p.Left
	var padField []byte
	if pad > 0 {
		if pad < 256 {
			flags |= 0x08
			padField = []byte{byte(pad - 1)}
		} else {
			flags |= 0x10
			padField = make([]byte, 2)
			pio.PutU16LE(padField, uint16(pad-2))
		}
		pad -= len(padField)
	}

	w.Write([]byte{0x82, 0x00, 0x00, flags, 0x5d})
	w.Write(padField)
	w.WriteU32LE(uint32(p.Start / time.Millisecond))
	w.WriteU16LE(uint16((p.End - p.Start) / time.Millisecond))
	w.WriteU8(byte(p.Fragments) | 0x80)
	w.Write(p.Buf.Bytes())
	w.WriteZeros(pad)
	m.Log.WithField("fragments", p.Fragments).WithField("padding", p.Left).Debug("packet flushed")
	return w.Err()
}

func (self *Format) WriteAudio(m *mux.Muxer, s *mux.Stream, pkt av.Packet) error {
	pkt.IsKeyFrame = false
	return self.writeFrame(m, s, pkt)
}

func (self *Format) WriteVideo(m *mux.Muxer, s *mux.Stream, pkt av.Packet) error {
	return self.writeFrame(m, s, pkt)
}

func (self *Format) writeFrame(m *mux.Muxer, s *mux.Stream, pkt av.Packet) (err error) {
	if pkt.Time+self.Preroll > 0xffffffff*time.Millisecond {
		return errors.Errorf("asf: timestamp %v out of range", pkt.Time)
	}
	packetNumber := uint32(self.pk.Count)
	if err = self.pk.WriteFrame(s, pkt.Time, pkt.IsKeyFrame, pkt.Data); err != nil {
		return
	}

	startSec := int((int64(self.Preroll/100) + int64(pkt.Time/100) + indexInterval - 1) / indexInterval)
	if !self.Streamed && pkt.IsKeyFrame {
		self.updateIndex(startSec, packetNumber, uint16(uint32(self.pk.Count)-packetNumber))
	}
	self.endSec = startSec
	return
}

// updateIndex fills one entry per second up to startSec with the packet
// range of the previous key frame.
func (self *Format) updateIndex(startSec int, packetNumber uint32, packetCount uint16) {
	if startSec > len(self.index) {
		if len(self.index) == 0 {
			self.nextPacketNumber = packetNumber
			self.nextPacketCount = packetCount
		}
		for len(self.index) < startSec {
			self.index = append(self.index, indexEntry{self.nextPacketNumber, self.nextPacketCount})
		}
	}
	if packetCount > self.maxPacketCount {
		self.maxPacketCount = packetCount
	}
	self.nextPacketNumber = packetNumber
	self.nextPacketCount = packetCount
}

func (self *Format) writeIndex(w *avio.Writer) {
	count := len(self.index)
	w.Write(asfio.SimpleIndexObject[:])
	w.WriteU64LE(uint64(asfio.ObjectHeaderSize + 16 + 8 + 4 + 4 + 6*count))
	w.Write(self.FileID[:])
	w.WriteU64LE(indexInterval)
	w.WriteU32LE(uint32(self.maxPacketCount))
	w.WriteU32LE(uint32(count))
	for _, e := range self.index {
		w.WriteU32LE(e.packetNumber)
		w.WriteU16LE(e.packetCount)
	}
}

func (self *Format) WriteTrailer(m *mux.Muxer) (err error) {
	if err = self.pk.Flush(); err != nil {
		return
	}

	dataSize := m.W.Tell() - self.dataOffset
	if !self.Streamed && len(self.index) > 0 {
		self.updateIndex(self.endSec+1, 0, 0)
		self.writeIndex(m.W)
	}

	if self.Streamed {
		self.putChunk(m.W, asfio.ChunkEnd, 0, 0)
		return m.W.Err()
	}
	if !m.W.Seekable() {
		m.Log.Warn("output is not seekable, header sizes and durations left unset")
		self.putChunk(m.W, asfio.ChunkEnd, 0, 0)
		return m.W.Err()
	}

	var hdr []byte
	if hdr, err = self.header(m, m.W.Tell(), dataSize); err != nil {
		return
	}
	if len(hdr) != self.headerLen {
		return errors.Errorf("asf: header size changed from %d to %d", self.headerLen, len(hdr))
	}
	_, err = m.Patch(0, hdr)
	return
}
