// Package avutil holds the format registry and packet copy helpers.
package avutil

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/format/mux"
)

var ErrNotFound = errors.New("avutil: format not found")

type RegisterHandler struct {
	Name        string
	Ext         string
	Mime        string
	AudioCodecs []av.CodecType
	VideoCodecs []av.CodecType
	WriterMuxer func(w *avio.Writer, opts ...mux.Option) *mux.Muxer
	Probe       func([]byte) bool
}

func (self *RegisterHandler) SetInfo(info mux.Info) {
	self.Name = info.Name
	self.Ext = info.Ext
	self.Mime = info.Mime
	self.AudioCodecs = info.AudioCodecs
	self.VideoCodecs = info.VideoCodecs
}

// Streamed reports whether the format never seeks its output.
func (self RegisterHandler) Streamed() bool {
	return strings.HasSuffix(self.Name, "_stream")
}

type Handlers struct {
	handlers []RegisterHandler
}

func NewHandlers(fns ...func(*RegisterHandler)) *Handlers {
	self := &Handlers{}
	for _, fn := range fns {
		self.Add(fn)
	}
	return self
}

func (self *Handlers) Add(fn func(*RegisterHandler)) {
	handler := &RegisterHandler{}
	fn(handler)
	self.handlers = append(self.handlers, *handler)
}

func (self *Handlers) List() []RegisterHandler {
	return append([]RegisterHandler(nil), self.handlers...)
}

func (self *Handlers) Find(name string) (handler RegisterHandler, ok bool) {
	for _, handler = range self.handlers {
		if handler.Name == name {
			return handler, true
		}
	}
	return RegisterHandler{}, false
}

// FindByExt returns the first registered format using ext.
func (self *Handlers) FindByExt(ext string) (handler RegisterHandler, ok bool) {
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	ext = strings.ToLower(ext)
	for _, handler = range self.handlers {
		if handler.Ext == ext {
			return handler, true
		}
	}
	return RegisterHandler{}, false
}

// NewMuxer creates a muxer of the named format on w. Streamed formats get a
// writer that never seeks.
func (self *Handlers) NewMuxer(name string, w io.Writer, opts ...mux.Option) (m *mux.Muxer, err error) {
	handler, ok := self.Find(name)
	if !ok || handler.WriterMuxer == nil {
		err = errors.Wrapf(ErrNotFound, "%q", name)
		return
	}
	var aw *avio.Writer
	if handler.Streamed() {
		aw = avio.NewStreamWriter(w)
	} else {
		aw = avio.NewWriter(w)
	}
	m = handler.WriterMuxer(aw, opts...)
	return
}

// Create opens a file and picks the format from its extension. The returned
// muxer closes the file.
func (self *Handlers) Create(uri string, opts ...mux.Option) (muxer av.MuxCloser, err error) {
	handler, ok := self.FindByExt(path.Ext(uri))
	if !ok {
		err = errors.Wrapf(ErrNotFound, "create %s", uri)
		return
	}
	var f *os.File
	if f, err = os.Create(uri); err != nil {
		err = errors.Wrapf(err, "avutil: create %s", uri)
		return
	}
	opts = append(opts, mux.WithCloser(f))
	if muxer, err = self.NewMuxer(handler.Name, f, opts...); err != nil {
		f.Close()
	}
	return
}

// Detect sniffs b with mimetype and returns the matching format. Formats
// sharing a MIME type are told apart with their Probe.
func (self *Handlers) Detect(b []byte) (handler RegisterHandler, mime *mimetype.MIME, ok bool) {
	mime = mimetype.Detect(b)
	for _, h := range self.handlers {
		if h.Probe != nil && h.Probe(b) {
			return h, mime, true
		}
	}
	for _, h := range self.handlers {
		if h.Mime != "" && mime.Is(h.Mime) {
			return h, mime, true
		}
	}
	return
}

func CopyPackets(dst av.PacketWriter, src av.PacketReader) (err error) {
	for {
		var pkt av.Packet
		if pkt, err = src.ReadPacket(); err != nil {
			if err == io.EOF {
				break
			}
			return
		}
		if err = dst.WritePacket(pkt); err != nil {
			return
		}
	}
	return nil
}

func CopyFile(dst av.Muxer, src av.Demuxer) (err error) {
	var streams []av.CodecData
	if streams, err = src.Streams(); err != nil {
		return
	}
	if err = dst.WriteHeader(streams); err != nil {
		return
	}
	if err = CopyPackets(dst, src); err != nil {
		return
	}
	if err = dst.WriteTrailer(); err != nil {
		return
	}
	return
}

// CopyFileContext is CopyFile checking ctx between packets. Once ctx is done
// the trailer is still written, so the output stays playable, and ctx.Err()
// is returned.
func CopyFileContext(ctx context.Context, dst av.Muxer, src av.Demuxer) (err error) {
	var streams []av.CodecData
	if streams, err = src.Streams(); err != nil {
		return
	}
	if err = dst.WriteHeader(streams); err != nil {
		return
	}
	for {
		if err = ctx.Err(); err != nil {
			break
		}
		var pkt av.Packet
		if pkt, err = src.ReadPacket(); err != nil {
			if err == io.EOF {
				err = nil
			}
			break
		}
		if err = dst.WritePacket(pkt); err != nil {
			return
		}
	}
	if err != nil && err != ctx.Err() {
		return
	}
	if terr := dst.WriteTrailer(); terr != nil {
		return terr
	}
	return
}
