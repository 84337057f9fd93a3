// Package avio implements the buffered byte sink the container muxers write to.
//
// A Writer tracks its absolute position and, when the destination can seek,
// lets a muxer go back and patch header fields whose values are only known
// once all packets have been written.
package avio

import (
	"bufio"
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"
	"github.com/pkg/errors"
	"github.com/tyrese/avmux/utils/bits/pio"
)

var ErrNotSeekable = errors.New("avio: sink is not seekable")

type Writer struct {
	w      io.Writer
	seeker io.Seeker
	bw     *bufio.Writer
	pos    int64
	err    error
	seeks  int
	b      [8]byte
}

// NewWriter wraps w. The writer is seekable when w implements io.Seeker; w is
// expected to be positioned at offset zero.
func NewWriter(w io.Writer) *Writer {
	self := &Writer{
		w:  w,
		bw: bufio.NewWriterSize(w, pio.RecommendBufioSize),
	}
	if s, ok := w.(io.Seeker); ok {
		self.seeker = s
	}
	return self
}

// NewStreamWriter wraps w as a streamed sink: Seek and PatchAt always fail,
// even if w could seek.
func NewStreamWriter(w io.Writer) *Writer {
	return &Writer{
		w:  w,
		bw: bufio.NewWriterSize(w, pio.RecommendBufioSize),
	}
}

// NewMemWriter returns a seekable writer backed by memory. The buffer holds the
// output once the writer has been flushed.
func NewMemWriter() (*Writer, *seekablebuffer.Buffer) {
	buf := &seekablebuffer.Buffer{}
	return NewWriter(buf), buf
}

func (self *Writer) Seekable() bool {
	return self.seeker != nil
}

// Tell returns the absolute write position, buffered bytes included.
func (self *Writer) Tell() int64 {
	return self.pos
}

// Err returns the first error met by any write.
func (self *Writer) Err() error {
	return self.err
}

// SeekCount is the number of seeks issued on the destination.
func (self *Writer) SeekCount() int {
	return self.seeks
}

func (self *Writer) Write(p []byte) (n int, err error) {
	if self.err != nil {
		return 0, self.err
	}
	n, err = self.bw.Write(p)
	self.pos += int64(n)
	if err != nil {
		self.err = errors.Wrap(err, "avio: write")
		err = self.err
	}
	return
}

func (self *Writer) WriteU8(v uint8) {
	self.b[0] = v
	self.Write(self.b[:1])
}

func (self *Writer) WriteU16LE(v uint16) {
	pio.PutU16LE(self.b[:], v)
	self.Write(self.b[:2])
}

func (self *Writer) WriteU16BE(v uint16) {
	pio.PutU16BE(self.b[:], v)
	self.Write(self.b[:2])
}

func (self *Writer) WriteU24BE(v uint32) {
	pio.PutU24BE(self.b[:], v)
	self.Write(self.b[:3])
}

func (self *Writer) WriteU32LE(v uint32) {
	pio.PutU32LE(self.b[:], v)
	self.Write(self.b[:4])
}

func (self *Writer) WriteU32BE(v uint32) {
	pio.PutU32BE(self.b[:], v)
	self.Write(self.b[:4])
}

func (self *Writer) WriteU64LE(v uint64) {
	pio.PutU64LE(self.b[:], v)
	self.Write(self.b[:8])
}

// WriteTag writes a four character code as it reads, first character first.
func (self *Writer) WriteTag(tag string) {
	var b [4]byte
	copy(b[:], tag)
	self.Write(b[:])
}

func (self *Writer) WriteString(s string) {
	self.Write([]byte(s))
}

var zeros [512]byte

func (self *Writer) WriteZeros(n int) {
	for n > 0 {
		k := n
		if k > len(zeros) {
			k = len(zeros)
		}
		self.Write(zeros[:k])
		n -= k
	}
}

// Flush forwards buffered bytes to the destination.
func (self *Writer) Flush() error {
	if self.err != nil {
		return self.err
	}
	if err := self.bw.Flush(); err != nil {
		self.err = errors.Wrap(err, "avio: flush")
	}
	return self.err
}

// Seek flushes and moves the write position.
func (self *Writer) Seek(offset int64, whence int) (pos int64, err error) {
	if self.seeker == nil {
		err = ErrNotSeekable
		return
	}
	if err = self.Flush(); err != nil {
		return
	}
	self.seeks++
	if pos, err = self.seeker.Seek(offset, whence); err != nil {
		self.err = errors.Wrap(err, "avio: seek")
		err = self.err
		return
	}
	self.pos = pos
	return
}

// PatchAt overwrites bytes at an earlier offset and returns to the current
// position.
func (self *Writer) PatchAt(off int64, b []byte) (err error) {
	if self.seeker == nil {
		return ErrNotSeekable
	}
	end := self.pos
	if off < 0 || off+int64(len(b)) > end {
		return errors.Errorf("avio: patch [%d,%d) outside written range %d", off, off+int64(len(b)), end)
	}
	if _, err = self.Seek(off, io.SeekStart); err != nil {
		return
	}
	if _, err = self.Write(b); err != nil {
		return
	}
	if _, err = self.Seek(end, io.SeekStart); err != nil {
		return
	}
	return
}

func (self *Writer) PatchU32LE(off int64, v uint32) error {
	var b [4]byte
	pio.PutU32LE(b[:], v)
	return self.PatchAt(off, b[:])
}

func (self *Writer) PatchU32BE(off int64, v uint32) error {
	var b [4]byte
	pio.PutU32BE(b[:], v)
	return self.PatchAt(off, b[:])
}

func (self *Writer) PatchU64LE(off int64, v uint64) error {
	var b [8]byte
	pio.PutU64LE(b[:], v)
	return self.PatchAt(off, b[:])
}
