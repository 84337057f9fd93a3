package swf

import (
	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/av/avutil"
	"github.com/tyrese/avmux/format/mux"
)

func Handler(h *avutil.RegisterHandler) {
	h.SetInfo(Info)
	h.Probe = func(b []byte) bool {
		return len(b) >= 8 && string(b[:3]) == "FWS"
	}
	h.WriterMuxer = func(w *avio.Writer, opts ...mux.Option) *mux.Muxer {
		return mux.New(w, NewFormat(), opts...)
	}
}
