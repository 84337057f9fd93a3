package format

import (
	"github.com/tyrese/avmux/av/avutil"
	"github.com/tyrese/avmux/format/asf"
	"github.com/tyrese/avmux/format/mpeg"
	"github.com/tyrese/avmux/format/rm"
	"github.com/tyrese/avmux/format/swf"
)

func RegisterAll(h *avutil.Handlers) {
	h.Add(asf.Handler)
	h.Add(asf.StreamHandler)
	h.Add(rm.Handler)
	h.Add(mpeg.Handler)
	h.Add(swf.Handler)
}

// NewHandlers returns a registry holding every format of this module.
func NewHandlers() *avutil.Handlers {
	h := avutil.NewHandlers()
	RegisterAll(h)
	return h
}
