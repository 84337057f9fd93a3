package asf

import (
	"bytes"

	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/av/avutil"
	"github.com/tyrese/avmux/format/asf/asfio"
	"github.com/tyrese/avmux/format/mux"
)

func probe(b []byte) bool {
	return len(b) >= 16 && bytes.Equal(b[:16], asfio.HeaderObject[:])
}

func Handler(h *avutil.RegisterHandler) {
	h.SetInfo(Info)
	h.Probe = probe
	h.WriterMuxer = func(w *avio.Writer, opts ...mux.Option) *mux.Muxer {
		return mux.New(w, NewFormat(false), opts...)
	}
}

func StreamHandler(h *avutil.RegisterHandler) {
	h.SetInfo(StreamInfo)
	h.Probe = func(b []byte) bool {
		if len(b) < asfio.ChunkHeaderSize+16 {
			return false
		}
		c, _, err := asfio.ParseChunk(b)
		return err == nil && c.Type == asfio.ChunkHeader && probe(b[asfio.ChunkHeaderSize:])
	}
	h.WriterMuxer = func(w *avio.Writer, opts ...mux.Option) *mux.Muxer {
		return mux.New(w, NewFormat(true), opts...)
	}
}
