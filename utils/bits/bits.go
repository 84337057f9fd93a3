// Package bits reads and writes MSB-first bit fields.
package bits

import (
	"bytes"
	"io"
)

type Reader struct {
	R    io.Reader
	n    int
	bits uint64
}

func (self *Reader) ReadBits64(n int) (bits uint64, err error) {
	if self.n < n {
		var b [8]byte
		var got int
		want := (n - self.n + 7) / 8
		if got, err = io.ReadFull(self.R, b[:want]); err != nil {
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			return
		}
		for i := 0; i < got; i++ {
			self.bits <<= 8
			self.bits |= uint64(b[i])
		}
		self.n += got * 8
	}
	bits = self.bits >> uint(self.n-n)
	self.bits ^= bits << uint(self.n-n)
	self.n -= n
	return
}

func (self *Reader) ReadBits(n int) (bits uint, err error) {
	var bits64 uint64
	if bits64, err = self.ReadBits64(n); err != nil {
		return
	}
	bits = uint(bits64)
	return
}

func (self *Reader) Read(p []byte) (n int, err error) {
	for n < len(p) {
		want := 4
		if len(p)-n < want {
			want = len(p) - n
		}
		var bits uint64
		if bits, err = self.ReadBits64(want * 8); err != nil {
			break
		}
		for i := 0; i < want; i++ {
			p[n+i] = byte(bits >> uint((want-i-1)*8))
		}
		n += want
	}
	return
}

// Writer emits whole bytes to W as soon as they are complete.
type Writer struct {
	W    io.Writer
	n    int
	bits uint64
	b    [8]byte
}

func (self *Writer) WriteBits64(bits uint64, n int) (err error) {
	for n > 0 {
		take := n
		if take > 32 {
			take = 32
		}
		n -= take
		v := (bits >> uint(n)) & (1<<uint(take) - 1)
		self.bits = self.bits<<uint(take) | v
		self.n += take
		if err = self.drain(); err != nil {
			return
		}
	}
	return
}

func (self *Writer) WriteBits(bits uint, n int) (err error) {
	return self.WriteBits64(uint64(bits), n)
}

func (self *Writer) drain() (err error) {
	count := self.n / 8
	if count == 0 {
		return
	}
	for i := 0; i < count; i++ {
		self.b[i] = byte(self.bits >> uint(self.n-8*(i+1)))
	}
	self.n -= count * 8
	self.bits &= 1<<uint(self.n) - 1
	_, err = self.W.Write(self.b[:count])
	return
}

func (self *Writer) Write(p []byte) (n int, err error) {
	for n < len(p) {
		if err = self.WriteBits64(uint64(p[n]), 8); err != nil {
			return
		}
		n++
	}
	return
}

// Aligned reports whether no partial byte is pending.
func (self *Writer) Aligned() bool {
	return self.n == 0
}

// FlushBits zero-pads the pending partial byte and writes it.
func (self *Writer) FlushBits() (err error) {
	if self.n > 0 {
		self.b[0] = byte(self.bits << uint(8-self.n))
		self.n = 0
		self.bits = 0
		if _, err = self.W.Write(self.b[:1]); err != nil {
			return
		}
	}
	return
}

// Packer assembles one bit-level record in memory.
type Packer struct {
	buf bytes.Buffer
	w   Writer
}

func NewPacker() *Packer {
	self := &Packer{}
	self.w.W = &self.buf
	return self
}

// PutBits appends the low n bits of v, n in [0,32].
func (self *Packer) PutBits(n int, v uint32) {
	self.w.WriteBits64(uint64(v), n)
}

func (self *Packer) PutBits64(n int, v uint64) {
	self.w.WriteBits64(v, n)
}

// Flush pads to a byte boundary and returns the number of bytes produced so far.
func (self *Packer) Flush() int {
	self.w.FlushBits()
	return self.buf.Len()
}

func (self *Packer) Bytes() []byte {
	return self.buf.Bytes()
}

func (self *Packer) Reset() {
	self.buf.Reset()
	self.w.n = 0
	self.w.bits = 0
}
