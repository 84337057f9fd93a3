package bits

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBits(t *testing.T) {
	rdata := []byte{0xf3, 0xb3, 0x45, 0x60}
	r := &Reader{R: bytes.NewReader(rdata)}
	var u32 uint
	u32, _ = r.ReadBits(4)
	assert.Equal(t, uint(0xf), u32)
	u32, _ = r.ReadBits(4)
	assert.Equal(t, uint(0x3), u32)
	u32, _ = r.ReadBits(2)
	assert.Equal(t, uint(0x2), u32)
	u32, _ = r.ReadBits(2)
	assert.Equal(t, uint(0x3), u32)
	b := make([]byte, 2)
	r.Read(b)
	assert.Equal(t, []byte{0x34, 0x56}, b)

	wbuf := &bytes.Buffer{}
	w := &Writer{W: wbuf}
	w.WriteBits(0xf, 4)
	w.WriteBits(0x3, 4)
	w.WriteBits(0x2, 2)
	w.WriteBits(0x3, 2)
	n, _ := w.Write([]byte{0x34, 0x56})
	assert.Equal(t, 2, n)
	assert.False(t, w.Aligned())
	require.NoError(t, w.FlushBits())
	assert.True(t, w.Aligned())
	assert.Equal(t, rdata, wbuf.Bytes())
}

func TestWriterWideFields(t *testing.T) {
	wbuf := &bytes.Buffer{}
	w := &Writer{W: wbuf}
	w.WriteBits(1, 1)
	w.WriteBits64(0x123456789, 36)
	w.WriteBits(0, 3)
	require.NoError(t, w.FlushBits())

	r := &Reader{R: bytes.NewReader(wbuf.Bytes())}
	v, err := r.ReadBits64(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
	v, err = r.ReadBits64(36)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x123456789), v)
	assert.Equal(t, 5, wbuf.Len())
}

func TestPackerFlushPads(t *testing.T) {
	p := NewPacker()
	p.PutBits(3, 0x7)
	assert.Equal(t, 1, p.Flush())
	assert.Equal(t, []byte{0xe0}, p.Bytes())

	p.PutBits(8, 0xab)
	assert.Equal(t, 2, p.Flush())
	assert.Equal(t, []byte{0xe0, 0xab}, p.Bytes())

	p.Reset()
	p.PutBits(0, 0xffff)
	assert.Equal(t, 0, p.Flush())

	p.PutBits(32, 0xdeadbeef)
	assert.Equal(t, 4, p.Flush())
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, p.Bytes())
}

func TestFields(t *testing.T) {
	rec := Fields{
		{4, 0x2},
		{3, 0x5},
		{1, 1},
		{15, 0x7fff},
		{1, 1},
	}
	assert.Equal(t, 24, rec.Bits())
	assert.Equal(t, []byte{0x2b, 0xff, 0xff}, rec.Marshal())

	// values wider than the field are truncated to the field width
	assert.Equal(t, []byte{0xf0}, Fields{{4, 0xff}}.Marshal())
}

func TestSignedBits(t *testing.T) {
	assert.Equal(t, 0, SignedBits(0))
	assert.Equal(t, 0, SignedBits(0, 0, 0))
	assert.Equal(t, 2, SignedBits(0, 1))
	assert.Equal(t, 2, SignedBits(2, 1))
	assert.Equal(t, 14, SignedBits(0, 0, 6400, 0, 4800))
	assert.Equal(t, 14, SignedBits(0, -6400))
}
