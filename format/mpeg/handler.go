package mpeg

import (
	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/av/avutil"
	"github.com/tyrese/avmux/format/mux"
	"github.com/tyrese/avmux/utils/bits/pio"
)

func Handler(h *avutil.RegisterHandler) {
	h.SetInfo(Info)
	h.Probe = func(b []byte) bool {
		return len(b) >= 4 && pio.U32BE(b) == PackStartCode
	}
	h.WriterMuxer = func(w *avio.Writer, opts ...mux.Option) *mux.Muxer {
		return mux.New(w, NewFormat(), opts...)
	}
}
