package asf

import (
	"time"

	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/format/asf/asfio"
	"github.com/tyrese/avmux/format/mux"
)

func beginObject(w *avio.Writer, g asfio.GUID) int64 {
	pos := w.Tell()
	w.Write(g[:])
	w.WriteU64LE(asfio.ObjectHeaderSize)
	return pos
}

func endObject(w *avio.Writer, pos int64) error {
	return w.PatchU64LE(pos+16, uint64(w.Tell()-pos))
}

func codecName(typ av.CodecType) string {
	if typ == av.WMAV2 {
		return "Windows Media Audio V8"
	}
	return typ.String()
}

func fileTime(t time.Time) uint64 {
	return uint64(t.UnixNano()/100) + fileTimeEpoch
}

// header renders the header object and the data object header. Sizes that
// are unknown until the trailer are passed as zero.
func (self *Format) header(m *mux.Muxer, fileSize int64, dataSize int64) (b []byte, err error) {
	w, buf := avio.NewMemWriter()

	var duration time.Duration
	bitRate := 0
	for _, s := range m.Streams {
		if s.Duration > duration {
			duration = s.Duration
		}
		bitRate += s.BitRate
	}
	nbPackets := uint64(self.NbPackets())

	nobjs := 3 + len(m.Streams)
	if !self.Metadata.empty() {
		nobjs++
	}
	w.Write(asfio.HeaderObject[:])
	w.WriteU64LE(0)
	w.WriteU32LE(uint32(nobjs))
	w.WriteU8(1)
	w.WriteU8(2)

	pos := beginObject(w, asfio.FilePropertiesObject)
	w.Write(self.FileID[:])
	w.WriteU64LE(uint64(fileSize))
	w.WriteU64LE(fileTime(self.CreationTime))
	w.WriteU64LE(nbPackets)
	w.WriteU64LE(uint64((duration + self.Preroll) / 100))
	w.WriteU64LE(uint64(duration / 100))
	w.WriteU64LE(uint64(self.Preroll / time.Millisecond))
	if self.Streamed || !m.W.Seekable() {
		w.WriteU32LE(3)
	} else {
		w.WriteU32LE(2)
	}
	w.WriteU32LE(uint32(self.PacketSize))
	w.WriteU32LE(uint32(self.PacketSize))
	if bitRate > 0 {
		w.WriteU32LE(uint32(bitRate))
	} else {
		w.WriteU32LE(0xffffffff)
	}
	if err = endObject(w, pos); err != nil {
		return
	}

	pos = beginObject(w, asfio.HeaderExtensionObject)
	w.Write(asfio.HeaderExtensionReserved[:])
	w.WriteU16LE(6)
	w.WriteU32LE(0)
	if err = endObject(w, pos); err != nil {
		return
	}

	if !self.Metadata.empty() {
		pos = beginObject(w, asfio.ContentDescriptionObject)
		var strs [][]byte
		for _, s := range []string{self.Title, self.Author, self.Copyright, self.Comment, self.Rating} {
			if s == "" {
				strs = append(strs, nil)
			} else {
				strs = append(strs, asfio.Str16(s))
			}
		}
		for _, s := range strs {
			w.WriteU16LE(uint16(len(s)))
		}
		for _, s := range strs {
			w.Write(s)
		}
		if err = endObject(w, pos); err != nil {
			return
		}
	}

	for _, s := range m.Streams {
		if err = self.streamProperties(w, s); err != nil {
			return
		}
	}

	pos = beginObject(w, asfio.CodecListObject)
	w.Write(asfio.CodecListReserved[:])
	w.WriteU32LE(uint32(len(m.Streams)))
	for _, s := range m.Streams {
		if s.IsAudio() {
			w.WriteU16LE(2)
		} else {
			w.WriteU16LE(1)
		}
		name := asfio.Str16(codecName(s.Type()))
		w.WriteU16LE(uint16(len(name) / 2))
		w.Write(name)
		w.WriteU16LE(0)
		if s.IsAudio() {
			w.WriteU16LE(2)
			w.WriteU16LE(uint16(s.Tag()))
		} else {
			w.WriteU16LE(4)
			w.WriteU32LE(s.Tag())
		}
	}
	if err = endObject(w, pos); err != nil {
		return
	}
	if err = w.PatchU64LE(16, uint64(w.Tell())); err != nil {
		return
	}

	w.Write(asfio.DataObject[:])
	w.WriteU64LE(uint64(dataSize))
	w.Write(self.FileID[:])
	w.WriteU64LE(nbPackets)
	w.WriteU8(1)
	w.WriteU8(1)

	if err = w.Flush(); err != nil {
		return
	}
	b = buf.Bytes()
	return
}

func (self *Format) streamProperties(w *avio.Writer, s *mux.Stream) (err error) {
	extra := s.ExtraData()
	pos := beginObject(w, asfio.StreamPropertiesObject)
	if s.IsAudio() {
		w.Write(asfio.AudioMedia[:])
		w.Write(asfio.AudioSpread[:])
	} else {
		w.Write(asfio.VideoMedia[:])
		w.Write(asfio.NoErrorCorrection[:])
	}
	w.WriteU64LE(0)
	if s.IsAudio() {
		w.WriteU32LE(uint32(18 + len(extra)))
		w.WriteU32LE(8)
	} else {
		w.WriteU32LE(uint32(11 + 40 + len(extra)))
		w.WriteU32LE(0)
	}
	w.WriteU16LE(uint16(s.Idx + 1))
	w.WriteU32LE(0)

	if s.IsAudio() {
		a := s.Audio()
		blockAlign := putWaveFormat(w, a, s.Tag(), extra)
		// audio spread error correction data
		w.WriteU8(1)
		if blockAlign == 0 {
			blockAlign = 0x0190
		}
		w.WriteU16LE(uint16(blockAlign))
		w.WriteU16LE(uint16(blockAlign))
		w.WriteU16LE(1)
		w.WriteU8(0)
	} else {
		v := s.Video()
		w.WriteU32LE(uint32(v.Width()))
		w.WriteU32LE(uint32(v.Height()))
		w.WriteU8(2)
		w.WriteU16LE(uint16(40 + len(extra)))
		putBitmapInfoHeader(w, v, s.Tag(), extra)
	}
	return endObject(w, pos)
}

// putWaveFormat writes a WAVEFORMATEX and returns its block alignment.
func putWaveFormat(w *avio.Writer, a av.AudioCodecData, tag uint32, extra []byte) int {
	channels := a.ChannelLayout().Count()
	blockAlign := 0
	bitsPerSample := 0
	if a.Type() == av.PCM_S16LE {
		bitsPerSample = 16
		blockAlign = channels * 2
	} else if ba, ok := a.(interface{ BlockAlignment() int }); ok {
		blockAlign = ba.BlockAlignment()
	}
	byteRate := a.BitRate() / 8
	if a.Type() == av.PCM_S16LE {
		byteRate = a.SampleRate() * blockAlign
	}
	w.WriteU16LE(uint16(tag))
	w.WriteU16LE(uint16(channels))
	w.WriteU32LE(uint32(a.SampleRate()))
	w.WriteU32LE(uint32(byteRate))
	w.WriteU16LE(uint16(blockAlign))
	w.WriteU16LE(uint16(bitsPerSample))
	w.WriteU16LE(uint16(len(extra)))
	w.Write(extra)
	return blockAlign
}

func putBitmapInfoHeader(w *avio.Writer, v av.VideoCodecData, tag uint32, extra []byte) {
	w.WriteU32LE(uint32(40 + len(extra)))
	w.WriteU32LE(uint32(v.Width()))
	w.WriteU32LE(uint32(v.Height()))
	w.WriteU16LE(1)
	w.WriteU16LE(24)
	w.WriteU32LE(tag)
	w.WriteU32LE(uint32(v.Width() * v.Height() * 3))
	w.WriteU32LE(0)
	w.WriteU32LE(0)
	w.WriteU32LE(0)
	w.WriteU32LE(0)
	w.Write(extra)
}
