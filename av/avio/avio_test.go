package avio

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyrese/avmux/utils/bits/pio"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestWriteHelpers(t *testing.T) {
	w, buf := NewMemWriter()
	w.WriteU8(0x01)
	w.WriteU16LE(0x0302)
	w.WriteU16BE(0x0405)
	w.WriteU24BE(0x060708)
	w.WriteU32LE(0x0c0b0a09)
	w.WriteU32BE(0x0d0e0f10)
	w.WriteTag("RIFF")
	w.WriteZeros(3)
	w.WriteU64LE(1)
	assert.Equal(t, int64(31), w.Tell())
	require.NoError(t, w.Flush())

	assert.Equal(t, []byte{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
		'R', 'I', 'F', 'F', 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0,
	}, buf.Bytes())
}

func TestPatchAt(t *testing.T) {
	w, buf := NewMemWriter()
	w.WriteU32LE(0)
	w.WriteZeros(1000)
	require.NoError(t, w.PatchU32LE(0, uint32(w.Tell())))
	assert.Equal(t, int64(1004), w.Tell())
	w.WriteU8(0xff)
	require.NoError(t, w.Flush())

	b := buf.Bytes()
	require.Len(t, b, 1005)
	assert.Equal(t, []byte{0xec, 0x03, 0, 0}, b[:4])
	assert.Equal(t, byte(0xff), b[1004])
	assert.Equal(t, 2, w.SeekCount())

	assert.Error(t, w.PatchAt(1004, []byte{1, 2}))
}

func TestStreamWriterNeverSeeks(t *testing.T) {
	_, buf := NewMemWriter()
	w := NewStreamWriter(buf)
	assert.False(t, w.Seekable())
	w.WriteU32BE(1)

	_, err := w.Seek(0, io.SeekStart)
	assert.Equal(t, ErrNotSeekable, err)
	assert.Equal(t, ErrNotSeekable, w.PatchU32BE(0, 2))
	assert.Equal(t, int64(4), w.Tell())
	assert.Equal(t, 0, w.SeekCount())
	require.NoError(t, w.Flush())
	assert.Equal(t, []byte{0, 0, 0, 1}, buf.Bytes())
}

func TestPlainWriterIsNotSeekable(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)
	assert.False(t, w.Seekable())
	w.WriteString("abc")
	require.NoError(t, w.Flush())
	assert.Equal(t, "abc", out.String())
}

func TestErrorIsSticky(t *testing.T) {
	w := NewWriter(failingWriter{})
	w.WriteZeros(pio.RecommendBufioSize + 1)
	err := w.Flush()
	require.Error(t, err)
	assert.Equal(t, io.ErrClosedPipe, errors.Cause(err))

	_, err = w.Write([]byte{1})
	assert.Equal(t, io.ErrClosedPipe, errors.Cause(err))
	assert.Equal(t, err, w.Err())
}
